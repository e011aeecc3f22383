// Package testutil builds a fully wired app on an in-memory database for
// handler tests.
package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"sijuk-backend/internal/auth"
	"sijuk-backend/internal/cache"
	"sijuk-backend/internal/config"
	"sijuk-backend/internal/database/dbtest"
	"sijuk-backend/internal/models"
	"sijuk-backend/internal/notify"
	"sijuk-backend/internal/server"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	Secret   = "test-secret-test-secret-test-secret"
	Password = "rahasia123"
)

func Config() *config.Config {
	return &config.Config{
		AppEnv:            "test",
		HTTPPort:          "0",
		JWTSecret:         Secret,
		CORSOrigins:       "*",
		LogLevel:          "error",
		LoginRateLimit:    "1000-M",
		LowMarginPercent:  decimal.NewFromInt(10),
		DashboardCacheTTL: 0,
	}
}

// Env is one test's app, database and signed-in owner.
type Env struct {
	T     *testing.T
	App   *fiber.App
	DB    *gorm.DB
	User  models.User
	Token string
}

// New opens a fresh database, builds the app and seeds one user.
func New(t *testing.T) *Env {
	t.Helper()
	return NewWithConfig(t, Config())
}

func NewWithConfig(t *testing.T, cfg *config.Config) *Env {
	t.Helper()

	db := dbtest.Open(t)

	prevCache, prevNotify := cache.Default, notify.Default
	cache.Default, notify.Default = nil, nil
	t.Cleanup(func() {
		cache.Default, notify.Default = prevCache, prevNotify
	})

	app, err := server.New(cfg)
	if err != nil {
		t.Fatalf("server.New: %v", err)
	}

	env := &Env{T: t, App: app, DB: db}
	env.User, env.Token = env.SeedUser("pemilik@sijuk.test")
	return env
}

// SeedUser inserts a user directly and returns a signed token for it.
func (e *Env) SeedUser(email string) (models.User, string) {
	e.T.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(Password), bcrypt.MinCost)
	if err != nil {
		e.T.Fatalf("bcrypt: %v", err)
	}
	u := models.User{Name: "Pemilik", Email: email, PasswordHash: string(hash)}
	if err := e.DB.Create(&u).Error; err != nil {
		e.T.Fatalf("seed user: %v", err)
	}
	token, err := auth.GenerateToken(Secret, &u)
	if err != nil {
		e.T.Fatalf("token: %v", err)
	}
	return u, token
}

// Do sends a JSON request as the seeded user and returns status and body.
func (e *Env) Do(method, path string, body any) (int, []byte) {
	e.T.Helper()
	return e.DoAs(e.Token, method, path, body)
}

// DoAs sends a JSON request with token (empty for anonymous).
func (e *Env) DoAs(token, method, path string, body any) (int, []byte) {
	e.T.Helper()

	var rdr io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			e.T.Fatalf("marshal: %v", err)
		}
		rdr = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, rdr)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return e.Send(req)
}

// Send runs a prepared request through the app.
func (e *Env) Send(req *http.Request) (int, []byte) {
	e.T.Helper()

	resp, err := e.App.Test(req, -1)
	if err != nil {
		e.T.Fatalf("%s %s: %v", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		e.T.Fatalf("read body: %v", err)
	}
	return resp.StatusCode, raw
}

// MustDo is Do that fails the test unless the status matches.
func (e *Env) MustDo(want int, method, path string, body any, dst any) {
	e.T.Helper()

	status, raw := e.Do(method, path, body)
	if status != want {
		e.T.Fatalf("%s %s: status %d, want %d, body %s", method, path, status, want, raw)
	}
	if dst != nil {
		Decode(e.T, raw, dst)
	}
}

func Decode(t *testing.T, raw []byte, dst any) {
	t.Helper()
	if err := json.Unmarshal(raw, dst); err != nil {
		t.Fatalf("decode %s: %v", raw, err)
	}
}

// ErrorMessage extracts {"error": "..."}.
func ErrorMessage(t *testing.T, raw []byte) string {
	t.Helper()
	var e struct {
		Error string `json:"error"`
	}
	Decode(t, raw, &e)
	return e.Error
}

// D parses a decimal literal.
func D(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// Dp is D returning a pointer.
func Dp(s string) *decimal.Decimal {
	d := D(s)
	return &d
}

// AssertDecimal compares decimals by value.
func AssertDecimal(t *testing.T, name string, got decimal.Decimal, want string) {
	t.Helper()
	if !got.Equal(D(want)) {
		t.Errorf("%s = %s, want %s", name, got, want)
	}
}

// TrackRowLocks records the table of every query that carries a
// SELECT ... FOR UPDATE clause. SQLite drops the clause from the SQL, so
// this is how tests see that a handler asked for the lock.
func (e *Env) TrackRowLocks() func() []string {
	e.T.Helper()

	var (
		mu     sync.Mutex
		tables []string
	)
	err := e.DB.Callback().Query().Before("gorm:query").Register("testutil:row_locks", func(db *gorm.DB) {
		if _, ok := db.Statement.Clauses["FOR"]; ok {
			mu.Lock()
			tables = append(tables, db.Statement.Table)
			mu.Unlock()
		}
	})
	if err != nil {
		e.T.Fatalf("register callback: %v", err)
	}
	return func() []string {
		mu.Lock()
		defer mu.Unlock()
		return append([]string(nil), tables...)
	}
}

// TrackUpdates records the SQL of every UPDATE statement.
func (e *Env) TrackUpdates() func() []string {
	e.T.Helper()

	var (
		mu   sync.Mutex
		stmt []string
	)
	err := e.DB.Callback().Update().After("gorm:update").Register("testutil:updates", func(db *gorm.DB) {
		mu.Lock()
		stmt = append(stmt, db.Statement.SQL.String())
		mu.Unlock()
	})
	if err != nil {
		e.T.Fatalf("register callback: %v", err)
	}
	return func() []string {
		mu.Lock()
		defer mu.Unlock()
		return append([]string(nil), stmt...)
	}
}
