// Package period parses the date filters shared by the list and summary endpoints.
package period

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

const DateLayout = "2006-01-02"

// ParseDate accepts "2006-01-02" (local time) or RFC3339. Empty means now.
func ParseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Now(), nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.Local(), nil
	}
	return time.ParseInLocation(DateLayout, s, time.Local)
}

// Range is the half-open interval [From, To). A zero bound is unbounded.
type Range struct {
	From time.Time
	To   time.Time
}

// Month returns the range covering one calendar month.
func Month(year int, month time.Month) Range {
	start := time.Date(year, month, 1, 0, 0, 0, 0, time.Local)
	return Range{From: start, To: start.AddDate(0, 1, 0)}
}

// Day returns the range covering the calendar day of t.
func Day(t time.Time) Range {
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.Local)
	return Range{From: start, To: start.AddDate(0, 0, 1)}
}

// Last is the last instant inside the range.
func (r Range) Last() time.Time {
	return r.To.Add(-time.Nanosecond)
}

func (r Range) Contains(t time.Time) bool {
	if !r.From.IsZero() && t.Before(r.From) {
		return false
	}
	if !r.To.IsZero() && !t.Before(r.To) {
		return false
	}
	return true
}

// Apply filters column to the range.
func (r Range) Apply(q *gorm.DB, column string) *gorm.DB {
	if !r.From.IsZero() {
		q = q.Where(column+" >= ?", r.From)
	}
	if !r.To.IsZero() {
		q = q.Where(column+" < ?", r.To)
	}
	return q
}

// FromQuery reads ?from=&to= (both inclusive days, both optional).
func FromQuery(c *fiber.Ctx) (Range, error) {
	var r Range
	if s := c.Query("from"); s != "" {
		from, err := time.ParseInLocation(DateLayout, s, time.Local)
		if err != nil {
			return r, fiber.NewError(fiber.StatusBadRequest, "Tanggal 'from' tidak valid")
		}
		r.From = from
	}
	if s := c.Query("to"); s != "" {
		to, err := time.ParseInLocation(DateLayout, s, time.Local)
		if err != nil {
			return r, fiber.NewError(fiber.StatusBadRequest, "Tanggal 'to' tidak valid")
		}
		r.To = to.AddDate(0, 0, 1)
	}
	if !r.From.IsZero() && !r.To.IsZero() && !r.From.Before(r.To) {
		return r, fiber.NewError(fiber.StatusBadRequest, "Tanggal 'from' harus sebelum 'to'")
	}
	return r, nil
}

// MonthFromQuery reads ?year=&month=, defaulting to the current month.
func MonthFromQuery(c *fiber.Ctx) (year int, month time.Month, err error) {
	now := time.Now()
	year, month = now.Year(), now.Month()

	if s := c.Query("year"); s != "" {
		y, convErr := strconv.Atoi(s)
		if convErr != nil || y < 2000 || y > 9999 {
			return 0, 0, fiber.NewError(fiber.StatusBadRequest, "Tahun tidak valid")
		}
		year = y
	}
	if s := c.Query("month"); s != "" {
		m, convErr := strconv.Atoi(s)
		if convErr != nil || m < 1 || m > 12 {
			return 0, 0, fiber.NewError(fiber.StatusBadRequest, "Bulan harus 1-12")
		}
		month = time.Month(m)
	}
	return year, month, nil
}
