package material

import (
	"fmt"
	"regexp"
	"strings"

	"sijuk-backend/internal/audit"
	"sijuk-backend/internal/auth"
	"sijuk-backend/internal/cache"
	"sijuk-backend/internal/database"
	"sijuk-backend/internal/logger"
	"sijuk-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ImportRow is one parsed spreadsheet line: Nama | Satuan | Harga Beli | Stok.
type ImportRow struct {
	Line     int
	Name     string
	Unit     models.Unit
	BuyPrice decimal.Decimal
	Stock    decimal.Decimal
}

type SkippedRow struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

type ImportResponse struct {
	Created int          `json:"created"`
	Updated int          `json:"updated"`
	Skipped []SkippedRow `json:"skipped"`
	Message string       `json:"message"`
}

var thousandsGrouped = regexp.MustCompile(`^\d{1,3}(\.\d{3})+$`)

// parseNumber reads a price or quantity cell. Numeric cells arrive as raw
// values ("5000", "2.5"). Text cells use the Indonesian format: "." groups
// thousands and "," is the decimal mark ("Rp 1.250,50").
func parseNumber(s string, text bool) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, nil
	}
	if !text {
		return decimal.NewFromString(s)
	}

	if len(s) >= 2 && strings.EqualFold(s[:2], "rp") {
		s = s[2:]
	}
	s = strings.NewReplacer(" ", "", "\u00a0", "").Replace(s)
	s = strings.TrimSuffix(s, ",-")

	switch {
	case strings.Contains(s, ","):
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	case thousandsGrouped.MatchString(s):
		s = strings.ReplaceAll(s, ".", "")
	}
	return decimal.NewFromString(s)
}

// isText reports whether the cell holds a string rather than a number.
func isText(f *excelize.File, sheet string, col, line int) bool {
	name, err := excelize.CoordinatesToCellName(col, line)
	if err != nil {
		return true
	}
	t, err := f.GetCellType(sheet, name)
	if err != nil {
		return true
	}
	return t == excelize.CellTypeSharedString || t == excelize.CellTypeInlineString
}

func isHeader(row []string) bool {
	if len(row) == 0 {
		return false
	}
	first := strings.ToUpper(strings.TrimSpace(row[0]))
	return strings.Contains(first, "NAMA") || strings.Contains(first, "BAHAN")
}

// ParseRows reads the first sheet. A header row is skipped when its first
// cell mentions "nama" or "bahan"; blank lines are ignored.
func ParseRows(f *excelize.File) ([]ImportRow, []SkippedRow, error) {
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil, fmt.Errorf("file tidak memiliki sheet")
	}
	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, nil, err
	}

	parsed := make([]ImportRow, 0, len(rows))
	skipped := make([]SkippedRow, 0)
	for i, row := range rows {
		line := i + 1
		if i == 0 && isHeader(row) {
			continue
		}
		cell := func(n int) string {
			if n < len(row) {
				return strings.TrimSpace(row[n])
			}
			return ""
		}
		if cell(0) == "" {
			continue
		}

		unit := models.Unit(strings.ToLower(cell(1)))
		if !unit.Valid() {
			skipped = append(skipped, SkippedRow{Line: line, Reason: fmt.Sprintf("satuan tidak dikenal: %q", cell(1))})
			continue
		}
		price, err := parseNumber(cell(2), isText(f, sheets[0], 3, line))
		if err != nil || price.IsNegative() {
			skipped = append(skipped, SkippedRow{Line: line, Reason: "harga beli tidak valid"})
			continue
		}
		stock, err := parseNumber(cell(3), isText(f, sheets[0], 4, line))
		if err != nil || stock.IsNegative() {
			skipped = append(skipped, SkippedRow{Line: line, Reason: "stok tidak valid"})
			continue
		}

		parsed = append(parsed, ImportRow{
			Line:     line,
			Name:     cell(0),
			Unit:     unit,
			BuyPrice: price,
			Stock:    stock,
		})
	}
	return parsed, skipped, nil
}

// POST /api/materials/import (multipart, field "file", .xlsx)
// Nama yang sudah ada: harga beli diperbarui dan stok ditambah.
func ImportMaterialsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := auth.UserID(c)
		if err != nil {
			return err
		}

		fileHeader, err := c.FormFile("file")
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "File wajib diunggah")
		}
		if !strings.HasSuffix(strings.ToLower(fileHeader.Filename), ".xlsx") {
			return fiber.NewError(fiber.StatusBadRequest, "Hanya file .xlsx yang didukung")
		}

		file, err := fileHeader.Open()
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "File tidak bisa dibuka")
		}
		defer file.Close()

		xf, err := excelize.OpenReader(file)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "File Excel tidak bisa dibaca")
		}
		defer xf.Close()

		rows, skipped, err := ParseRows(xf)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Sheet tidak bisa dibaca: "+err.Error())
		}
		if len(rows) == 0 && len(skipped) == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "File Excel kosong")
		}

		var logs []audit.LogOptions
		resp := ImportResponse{Skipped: skipped}

		err = database.DB.Transaction(func(tx *gorm.DB) error {
			var existing []models.Material
			if err := tx.Where("user_id = ?", userID).Find(&existing).Error; err != nil {
				return err
			}
			byName := make(map[string]*models.Material, len(existing))
			for i := range existing {
				byName[strings.ToLower(existing[i].Name)] = &existing[i]
			}

			for _, r := range rows {
				if m, ok := byName[strings.ToLower(r.Name)]; ok {
					before := *m
					// stok ditambah di database, bukan read-modify-write
					if err := tx.Model(&models.Material{}).
						Where("id = ? AND user_id = ?", m.ID, userID).
						Updates(map[string]any{
							"unit":      r.Unit,
							"buy_price": r.BuyPrice,
							"stock":     gorm.Expr("stock + ?", r.Stock),
						}).Error; err != nil {
						return err
					}
					if err := tx.First(m, "id = ?", m.ID).Error; err != nil {
						return err
					}
					logs = append(logs, audit.LogOptions{
						UserID:      userID,
						EntityType:  audit.EntityMaterial,
						EntityID:    m.ID,
						Action:      models.AuditActionUpdate,
						Description: fmt.Sprintf("Import Excel: %s diperbarui", m.Name),
						Before:      before,
						After:       *m,
					})
					resp.Updated++
					continue
				}

				m := models.Material{
					UserID:   userID,
					Name:     r.Name,
					Unit:     r.Unit,
					BuyPrice: r.BuyPrice,
					Stock:    r.Stock,
				}
				if err := tx.Create(&m).Error; err != nil {
					return err
				}
				byName[strings.ToLower(m.Name)] = &m
				logs = append(logs, audit.LogOptions{
					UserID:      userID,
					EntityType:  audit.EntityMaterial,
					EntityID:    m.ID,
					Action:      models.AuditActionCreate,
					Description: fmt.Sprintf("Import Excel: %s ditambahkan", m.Name),
					After:       m,
				})
				resp.Created++
			}
			return nil
		})
		if err != nil {
			logger.FromCtx(c).Error("import bahan gagal", zap.Error(err))
			return fiber.NewError(fiber.StatusInternalServerError, "Gagal menyimpan hasil import")
		}

		for _, l := range logs {
			audit.Record(l)
		}
		cache.InvalidateUser(c.UserContext(), userID)

		resp.Message = fmt.Sprintf("%d bahan ditambahkan, %d diperbarui, %d baris dilewati.",
			resp.Created, resp.Updated, len(resp.Skipped))
		return c.JSON(resp)
	}
}
