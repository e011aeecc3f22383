package models

import "time"

type User struct {
	Base
	Name                string `gorm:"size:100;not null" json:"name"`
	Email               string `gorm:"size:100;uniqueIndex;not null" json:"email"`
	PasswordHash        string `gorm:"size:255;not null" json:"-"`
	OnboardingCompleted bool   `gorm:"not null;default:false" json:"onboarding_completed"`
	// Diisi saat user menandai onboarding selesai secara manual (lewati semua langkah).
	OnboardingCompletedAt *time.Time `json:"onboarding_completed_at"`
}
