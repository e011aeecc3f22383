package audit

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"sijuk-backend/internal/database"
	"sijuk-backend/internal/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/schema"
)

const (
	EntityMaterial = "material"
	EntityWarung   = "warung"
	EntityExpense  = "expense"
)

var (
	ErrAlreadyUndone = errors.New("perubahan ini sudah dibatalkan")
	ErrNotUndoable   = errors.New("jenis perubahan ini tidak bisa dibatalkan")
	ErrUnknownEntity = errors.New("jenis entitas tidak dikenal")
	ErrLogNotFound   = errors.New("log tidak ditemukan")
	ErrInUse         = errors.New("data masih dipakai oleh transaksi atau produksi")
	ErrEntityGone    = errors.New("data sudah tidak ada")
)

// Stock columns are also moved by batches and visits. Undo reverses the
// logged difference on them instead of writing the old value back.
var stockColumns = map[string]bool{"stock": true, "current_stock": true}

var fixedColumns = map[string]bool{"id": true, "user_id": true, "created_at": true, "updated_at": true}

// newEntity returns an empty model for an entity type.
func newEntity(entityType string) (any, error) {
	switch entityType {
	case EntityMaterial:
		return &models.Material{}, nil
	case EntityWarung:
		return &models.Warung{}, nil
	case EntityExpense:
		return &models.Expense{}, nil
	}
	return nil, ErrUnknownEntity
}

type LogOptions struct {
	UserID      string
	EntityType  string
	EntityID    string
	Action      models.AuditAction
	Description string
	Before      any
	After       any
}

func toJSON(v any) string {
	// jsonb tidak menerima string kosong
	if v == nil {
		return "null"
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "null"
	}
	return string(b)
}

func WriteLog(opts LogOptions) error {
	entry := models.AuditLog{
		UserID:      opts.UserID,
		EntityType:  opts.EntityType,
		EntityID:    opts.EntityID,
		Action:      opts.Action,
		Description: opts.Description,
		BeforeData:  toJSON(opts.Before),
		AfterData:   toJSON(opts.After),
	}

	if err := database.DB.Create(&entry).Error; err != nil {
		return fmt.Errorf("audit log gagal disimpan: %w", err)
	}
	return nil
}

// Record writes a log and only logs the failure; audit never fails a request.
func Record(opts LogOptions) {
	if err := WriteLog(opts); err != nil {
		zap.L().Warn("audit log", zap.String("entity", opts.EntityType), zap.String("id", opts.EntityID), zap.Error(err))
	}
}

// UndoLog reverts one change of the user's own data.
func UndoLog(logID uint, userID string) error {
	var entry models.AuditLog
	if err := database.DB.First(&entry, "id = ? AND user_id = ?", logID, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrLogNotFound
		}
		return err
	}
	if entry.IsUndone {
		return ErrAlreadyUndone
	}

	return database.DB.Transaction(func(tx *gorm.DB) error {
		switch entry.Action {
		case models.AuditActionCreate:
			if err := deleteEntity(tx, entry.EntityType, entry.EntityID, userID); err != nil {
				return fmt.Errorf("entitas gagal dihapus: %w", err)
			}
		case models.AuditActionUpdate:
			if err := revertUpdate(tx, entry.EntityType, entry.BeforeData, entry.AfterData, userID); err != nil {
				return fmt.Errorf("perubahan gagal dikembalikan: %w", err)
			}
		case models.AuditActionDelete:
			if err := restoreEntity(tx, entry.EntityType, entry.BeforeData, userID); err != nil {
				return fmt.Errorf("entitas gagal dipulihkan: %w", err)
			}
		default:
			return ErrNotUndoable
		}

		now := time.Now()
		entry.IsUndone = true
		entry.UndoneAt = &now
		if err := tx.Save(&entry).Error; err != nil {
			return fmt.Errorf("log gagal diperbarui: %w", err)
		}

		undo := models.AuditLog{
			UserID:      userID,
			EntityType:  entry.EntityType,
			EntityID:    entry.EntityID,
			Action:      models.AuditActionUndo,
			Description: "Dibatalkan: " + entry.Description,
			BeforeData:  entry.AfterData,
			AfterData:   entry.BeforeData,
		}
		return tx.Create(&undo).Error
	})
}

func deleteEntity(tx *gorm.DB, entityType, entityID, userID string) error {
	model, err := newEntity(entityType)
	if err != nil {
		return err
	}

	// bahan atau warung yang sudah punya riwayat tidak boleh hilang
	var refs int64
	switch entityType {
	case EntityMaterial:
		err = tx.Model(&models.ProductionItem{}).Where("material_id = ?", entityID).Count(&refs).Error
	case EntityWarung:
		err = tx.Model(&models.Transaction{}).Where("warung_id = ?", entityID).Count(&refs).Error
	}
	if err != nil {
		return err
	}
	if refs > 0 {
		return ErrInUse
	}

	return tx.Where("id = ? AND user_id = ?", entityID, userID).Delete(model).Error
}

// snapshot decodes a logged row and checks that it belongs to userID.
func snapshot(entityType, data, userID string) (any, error) {
	if data == "" || data == "null" {
		return nil, fmt.Errorf("snapshot kosong")
	}
	model, err := newEntity(entityType)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(data), model); err != nil {
		return nil, fmt.Errorf("snapshot rusak: %w", err)
	}

	var owner string
	switch m := model.(type) {
	case *models.Material:
		owner = m.UserID
	case *models.Warung:
		owner = m.UserID
	case *models.Expense:
		owner = m.UserID
	}
	if owner != userID {
		return nil, ErrLogNotFound
	}
	return model, nil
}

// restoreEntity writes a deleted row back from its snapshot.
func restoreEntity(tx *gorm.DB, entityType, data, userID string) error {
	model, err := snapshot(entityType, data, userID)
	if err != nil {
		return err
	}
	return tx.Save(model).Error
}

// changedColumns lists the columns whose JSON differs between the two
// snapshots, with stock columns reported separately.
func changedColumns(tx *gorm.DB, model any, beforeData, afterData string) (cols []string, stock bool, err error) {
	var before, after map[string]json.RawMessage
	if err := json.Unmarshal([]byte(beforeData), &before); err != nil {
		return nil, false, fmt.Errorf("snapshot rusak: %w", err)
	}
	if err := json.Unmarshal([]byte(afterData), &after); err != nil {
		return nil, false, fmt.Errorf("snapshot rusak: %w", err)
	}

	sch, err := schema.Parse(model, &sync.Map{}, tx.NamingStrategy)
	if err != nil {
		return nil, false, err
	}
	for _, f := range sch.Fields {
		if f.DBName == "" || fixedColumns[f.DBName] {
			continue
		}
		name := strings.Split(f.Tag.Get("json"), ",")[0]
		if name == "" || name == "-" {
			continue
		}
		b, a := before[name], after[name]
		if bytes.Equal(b, a) {
			continue
		}
		if stockColumns[f.DBName] {
			stock = true
			continue
		}
		cols = append(cols, f.DBName)
	}
	return cols, stock, nil
}

// revertUpdate puts back only what the logged update changed.
func revertUpdate(tx *gorm.DB, entityType, beforeData, afterData, userID string) error {
	before, err := snapshot(entityType, beforeData, userID)
	if err != nil {
		return err
	}
	after, err := snapshot(entityType, afterData, userID)
	if err != nil {
		return err
	}

	cols, stock, err := changedColumns(tx, before, beforeData, afterData)
	if err != nil {
		return err
	}
	if len(cols) > 0 {
		res := tx.Model(before).Where("user_id = ?", userID).Select(cols).Updates(before)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrEntityGone
		}
	}
	if stock {
		return revertStock(tx, before, after, userID)
	}
	return nil
}

// revertStock applies before-after to the current stock, clamped at 0.
func revertStock(tx *gorm.DB, before, after any, userID string) error {
	locked := tx.Clauses(clause.Locking{Strength: "UPDATE"})

	switch b := before.(type) {
	case *models.Material:
		a := after.(*models.Material)
		var cur models.Material
		if err := locked.First(&cur, "id = ? AND user_id = ?", b.ID, userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrEntityGone
			}
			return err
		}
		next := cur.Stock.Add(b.Stock.Sub(a.Stock))
		if next.IsNegative() {
			next = decimal.Zero
		}
		return tx.Model(&cur).Update("stock", next).Error

	case *models.Warung:
		a := after.(*models.Warung)
		var cur models.Warung
		if err := locked.First(&cur, "id = ? AND user_id = ?", b.ID, userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrEntityGone
			}
			return err
		}
		next := cur.CurrentStock + b.CurrentStock - a.CurrentStock
		if next < 0 {
			next = 0
		}
		return tx.Model(&cur).Update("current_stock", next).Error
	}
	return nil
}
