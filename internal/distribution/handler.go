package distribution

import (
	"errors"
	"strings"

	"sijuk-backend/internal/auth"
	"sijuk-backend/internal/cache"
	"sijuk-backend/internal/costing"
	"sijuk-backend/internal/database"
	"sijuk-backend/internal/logger"
	"sijuk-backend/internal/metrics"
	"sijuk-backend/internal/models"
	"sijuk-backend/internal/notify"
	"sijuk-backend/internal/period"
	"sijuk-backend/internal/production"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// -------------------------
// Request / Response
// -------------------------

type CreateTransactionRequest struct {
	WarungID       string          `json:"warung_id"`
	Date           string          `json:"date"`
	RemainingStock *int            `json:"remaining_stock"`
	RestockAmount  int             `json:"restock_amount"`
	PaidAmount     decimal.Decimal `json:"paid_amount"`
	Notes          string          `json:"notes"`
}

type UpdatePaymentRequest struct {
	PaidAmount *decimal.Decimal `json:"paid_amount"`
}

type Calculations struct {
	InitialStock   int                  `json:"initial_stock"`
	RemainingStock int                  `json:"remaining_stock"`
	Sold           int                  `json:"sold"`
	RestockAmount  int                  `json:"restock_amount"`
	NewStock       int                  `json:"new_stock"`
	UnitPrice      decimal.Decimal      `json:"unit_price"`
	GrossAmount    decimal.Decimal      `json:"gross_amount"`
	Commission     decimal.Decimal      `json:"commission"`
	TotalBill      decimal.Decimal      `json:"total_bill"`
	HPPAtTime      decimal.Decimal      `json:"hpp_at_time"`
	TotalHPP       decimal.Decimal      `json:"total_hpp"`
	Profit         decimal.Decimal      `json:"profit"`
	MarginPercent  decimal.Decimal      `json:"margin_percent"`
	IsLowMargin    bool                 `json:"is_low_margin"`
	PaymentStatus  models.PaymentStatus `json:"payment_status"`
}

type CreateTransactionResponse struct {
	Transaction  models.Transaction `json:"transaction"`
	Calculations Calculations       `json:"calculations"`
}

func calculationsOf(s costing.Settlement) Calculations {
	return Calculations{
		InitialStock:   s.InitialStock,
		RemainingStock: s.RemainingStock,
		Sold:           s.Sold,
		RestockAmount:  s.RestockAmount,
		NewStock:       s.NewStock,
		UnitPrice:      s.Bill.UnitPrice,
		GrossAmount:    s.Bill.Gross,
		Commission:     s.Bill.Commission,
		TotalBill:      s.Bill.Total,
		HPPAtTime:      s.HPP,
		TotalHPP:       s.TotalHPP,
		Profit:         s.Profit,
		MarginPercent:  s.MarginPercent,
		IsLowMargin:    s.LowMargin,
		PaymentStatus:  s.PaymentStatus,
	}
}

func findTransaction(userID, id string) (*models.Transaction, error) {
	var t models.Transaction
	if err := database.DB.Preload("Warung").First(&t, "id = ? AND user_id = ?", id, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fiber.NewError(fiber.StatusNotFound, "Transaksi tidak ditemukan")
		}
		return nil, fiber.NewError(fiber.StatusInternalServerError, "Gagal memuat transaksi")
	}
	return &t, nil
}

// POST /api/transactions
// Stok awal = stok warung saat ini; HPP = HPP batch produksi terakhir.
// Stok warung menjadi sisa + restock.
func CreateTransactionHandler(lowMarginPercent decimal.Decimal) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := auth.UserID(c)
		if err != nil {
			return err
		}

		var body CreateTransactionRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Body request tidak valid")
		}
		if body.WarungID == "" {
			return fiber.NewError(fiber.StatusBadRequest, "warung_id wajib diisi")
		}
		if body.RemainingStock == nil {
			return fiber.NewError(fiber.StatusBadRequest, "Sisa stok wajib diisi")
		}
		date, err := period.ParseDate(body.Date)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Format tanggal harus 'YYYY-MM-DD'")
		}

		var (
			trx    models.Transaction
			warung models.Warung
			settle costing.Settlement
		)

		err = database.DB.Transaction(func(tx *gorm.DB) error {
			// kunci baris warung: kunjungan paralel harus membaca stok terbaru
			if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				First(&warung, "id = ? AND user_id = ?", body.WarungID, userID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return fiber.NewError(fiber.StatusNotFound, "Warung tidak ditemukan")
				}
				return err
			}
			if !warung.IsActive {
				return fiber.NewError(fiber.StatusBadRequest, "Warung sudah tidak aktif")
			}

			hpp, _, err := production.LatestHPP(tx, userID)
			if err != nil {
				return err
			}

			settle, err = costing.Settle(costing.VisitInput{
				InitialStock:     warung.CurrentStock,
				RemainingStock:   *body.RemainingStock,
				RestockAmount:    body.RestockAmount,
				Pricing:          costing.PricingOf(&warung),
				HPP:              hpp,
				PaidAmount:       body.PaidAmount,
				LowMarginPercent: &lowMarginPercent,
			})
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, err.Error())
			}

			trx = models.Transaction{
				UserID:                  userID,
				WarungID:                warung.ID,
				Date:                    date,
				InitialStock:            settle.InitialStock,
				RemainingStock:          settle.RemainingStock,
				Sold:                    settle.Sold,
				RestockAmount:           settle.RestockAmount,
				PriceSchemeAtTime:       warung.PriceScheme,
				UnitPriceAtTime:         settle.Bill.UnitPrice,
				CommissionPercentAtTime: settle.Bill.CommissionPercent,
				TotalBill:               settle.Bill.Total,
				HPPAtTime:               settle.HPP,
				Profit:                  settle.Profit,
				PaymentStatus:           settle.PaymentStatus,
				PaidAmount:              settle.PaidAmount,
				Notes:                   strings.TrimSpace(body.Notes),
			}
			if err := tx.Create(&trx).Error; err != nil {
				return err
			}

			warung.CurrentStock = settle.NewStock
			return tx.Model(&models.Warung{}).
				Where("id = ?", warung.ID).
				Update("current_stock", settle.NewStock).Error
		})
		if err != nil {
			var fe *fiber.Error
			if errors.As(err, &fe) {
				return fe
			}
			logger.FromCtx(c).Error("transaksi gagal disimpan", zap.Error(err))
			return fiber.NewError(fiber.StatusInternalServerError, "Gagal menyimpan transaksi")
		}
		trx.Warung = &warung

		metrics.TransactionsRecorded.WithLabelValues(string(trx.PriceSchemeAtTime), string(trx.PaymentStatus)).Inc()
		metrics.AmountBilled.Add(trx.TotalBill.InexactFloat64())
		if settle.LowMargin {
			metrics.LowMarginTransactions.Inc()
			logger.FromCtx(c).Warn("margin rendah",
				zap.String("warung_id", warung.ID),
				zap.String("margin_percent", settle.MarginPercent.String()))
			notify.Default.LowMargin(notify.LowMarginAlert{
				WarungName:    warung.Name,
				Sold:          settle.Sold,
				UnitPrice:     settle.Bill.UnitPrice,
				HPP:           settle.HPP,
				MarginPercent: settle.MarginPercent,
				Profit:        settle.Profit,
			})
		}
		cache.InvalidateUser(c.UserContext(), userID)

		return c.Status(fiber.StatusCreated).JSON(CreateTransactionResponse{
			Transaction:  trx,
			Calculations: calculationsOf(settle),
		})
	}
}

// GET /api/transactions?warung_id=&from=&to=
func ListTransactionsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := auth.UserID(c)
		if err != nil {
			return err
		}

		r, err := period.FromQuery(c)
		if err != nil {
			return err
		}

		q := database.DB.Preload("Warung").Where("user_id = ?", userID)
		if wid := c.Query("warung_id"); wid != "" {
			q = q.Where("warung_id = ?", wid)
		}
		q = r.Apply(q, "date")

		var rows []models.Transaction
		if err := q.Order("date desc, created_at desc").Find(&rows).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Gagal memuat transaksi")
		}
		return c.JSON(rows)
	}
}

// GET /api/transactions/:id
func GetTransactionHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := auth.UserID(c)
		if err != nil {
			return err
		}

		t, err := findTransaction(userID, c.Params("id"))
		if err != nil {
			return err
		}
		return c.JSON(t)
	}
}

// GET /api/transactions/warung/:warungId/last
// null jika warung belum pernah dikunjungi.
func LastTransactionHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := auth.UserID(c)
		if err != nil {
			return err
		}

		var t models.Transaction
		err = database.DB.
			Where("user_id = ? AND warung_id = ?", userID, c.Params("warungId")).
			Order("date desc, created_at desc").
			First(&t).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.JSON(nil)
		}
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Gagal memuat transaksi")
		}
		return c.JSON(t)
	}
}

// GET /api/transactions/summary?from=&to=
func SummaryHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := auth.UserID(c)
		if err != nil {
			return err
		}

		r, err := period.FromQuery(c)
		if err != nil {
			return err
		}

		rows, err := ListInRange(database.DB, userID, r)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Gagal menghitung ringkasan")
		}
		return c.JSON(Summarize(rows))
	}
}

// PUT /api/transactions/:id/payment
// Status dihitung ulang dari jumlah bayar, tidak diambil dari client.
func UpdatePaymentHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := auth.UserID(c)
		if err != nil {
			return err
		}

		var body UpdatePaymentRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Body request tidak valid")
		}
		if body.PaidAmount == nil {
			return fiber.NewError(fiber.StatusBadRequest, "paid_amount wajib diisi")
		}
		if body.PaidAmount.IsNegative() {
			return fiber.NewError(fiber.StatusBadRequest, costing.ErrNegativePaidAmount.Error())
		}

		t, err := findTransaction(userID, c.Params("id"))
		if err != nil {
			return err
		}

		t.PaidAmount = *body.PaidAmount
		t.PaymentStatus = costing.ResolvePaymentStatus(t.PaidAmount, t.TotalBill)

		if err := database.DB.Model(&models.Transaction{}).
			Where("id = ?", t.ID).
			Updates(map[string]any{
				"paid_amount":    t.PaidAmount,
				"payment_status": t.PaymentStatus,
			}).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Gagal memperbarui pembayaran")
		}

		cache.InvalidateUser(c.UserContext(), userID)
		return c.JSON(t)
	}
}
