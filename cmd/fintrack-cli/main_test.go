package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/auth"
	apihttp "fintrack/internal/http"
	"fintrack/internal/ledger/memory"
	"fintrack/internal/log"
	"fintrack/internal/services"
)

type harness struct {
	t       *testing.T
	api     string
	session string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	store := memory.NewSeeded()
	refs := services.NewReferenceService(store, time.Minute)
	s := apihttp.NewServer(":0", apihttp.Deps{
		Auth:         services.NewAuthService(store, auth.NewTokenIssuer("cli-test-secret-cli-test-secret-1234", auth.DefaultSessionTTL)),
		References:   refs,
		Transactions: services.NewTransactionService(store, refs, nil),
		Store:        store,
		Logger:       log.New(log.Config{Handler: log.NewHandler(io.Discard, "text", slog.LevelError)}),
	}, apihttp.Options{RateLimitPerMinute: 1000})

	srv := httptest.NewServer(s.Handler)
	t.Cleanup(func() {
		srv.Close()
		_ = s.Shutdown(context.Background())
	})
	return &harness{t: t, api: srv.URL + "/api", session: filepath.Join(t.TempDir(), "fintrack", "session")}
}

func (h *harness) run(stdin string, args ...string) (string, error) {
	h.t.Helper()
	var out bytes.Buffer
	full := append([]string{"-api", h.api, "-session", h.session, "-debounce", "1h"}, args...)
	err := run(context.Background(), full, strings.NewReader(stdin), &out, io.Discard)
	return out.String(), err
}

func (h *harness) mustRun(args ...string) string {
	h.t.Helper()
	out, err := h.run("", args...)
	require.NoError(h.t, err, out)
	return out
}

var idPattern = regexp.MustCompile(`\(([0-9a-f-]{36})\)`)

func (h *harness) add(args ...string) string {
	h.t.Helper()
	out := h.mustRun(append([]string{"add"}, args...)...)
	m := idPattern.FindStringSubmatch(out)
	require.Len(h.t, m, 2, out)
	return m[1]
}

func TestRegisterPersistsSession(t *testing.T) {
	h := newHarness(t)

	out, err := h.run("secret123\n", "register", "-name", "Ann", "-email", "ann@example.com")
	require.NoError(t, err)
	assert.Contains(t, out, "Registered Successfully")

	info, err := os.Stat(h.session)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	assert.Contains(t, h.mustRun("me"), "Ann <ann@example.com>")

	assert.Contains(t, h.mustRun("logout"), "Logged out successfully")
	_, err = os.Stat(h.session)
	assert.True(t, os.IsNotExist(err))

	_, err = h.run("", "me")
	assert.ErrorContains(t, err, "not logged in")
}

func TestLoginGreeting(t *testing.T) {
	h := newHarness(t)
	h.mustRun("register", "-name", "Ann", "-email", "ann@example.com", "-password", "pw")
	h.mustRun("logout")

	assert.Contains(t, h.mustRun("login", "-email", "ann@example.com", "-password", "pw"), "Welcome back, Ann")

	_, err := h.run("", "login", "-email", "ann@example.com", "-password", "nope")
	assert.Error(t, err)
}

func TestStaleSessionFileIsRemoved(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(h.session), 0o700))
	require.NoError(t, os.WriteFile(h.session, []byte("expired\n"), 0o600))

	_, err := h.run("", "list")
	assert.ErrorContains(t, err, "not logged in")
	_, err = os.Stat(h.session)
	assert.True(t, os.IsNotExist(err))
}

func TestReferenceCommands(t *testing.T) {
	h := newHarness(t)

	assert.Contains(t, h.mustRun("categories"), "Food (Expense): Groceries, Restaurants, Fast Food")
	assert.Equal(t, "Groceries\nRestaurants\nFast Food\n", h.mustRun("subcategories", "food"))
	assert.Contains(t, h.mustRun("payment-methods"), "Credit Card")

	_, err := h.run("", "subcategories", "Nope")
	assert.Error(t, err)
}

func TestTransactionCommands(t *testing.T) {
	h := newHarness(t)
	h.mustRun("register", "-name", "Ann", "-email", "ann@example.com", "-password", "pw")

	salary := h.add("-type", "income", "-amount", "1000", "-category", "Salary",
		"-subcategory", "Monthly Salary", "-payment", "bank transfer", "-date", "2024-01-05")
	food := h.add("-type", "Expense", "-amount", "300", "-category", "food",
		"-subcategory", "groceries", "-payment", "Cash", "-date", "2024-01-20", "-description", "weekly shop")

	out := h.mustRun("list", "-monthly")
	assert.Contains(t, out, "Income: 1000.00  Expense: 300.00  Balance: 700.00")
	assert.Contains(t, out, "January 2024")
	assert.Contains(t, out, salary)

	out = h.mustRun("list", "-type", "expense")
	assert.Contains(t, out, food)
	assert.NotContains(t, out, salary)

	out = h.mustRun("list", "-sort", "amount", "-desc")
	assert.Contains(t, out, "AMOUNT v")
	assert.Less(t, strings.Index(out, salary), strings.Index(out, food))

	_, err := h.run("", "list", "-page-size", "15")
	assert.Error(t, err)

	out = h.mustRun("update", food, "-amount", "250.5", "-clear-description")
	assert.Contains(t, out, "250.50")
	assert.Contains(t, h.mustRun("list"), "Balance: 749.50")

	_, err = h.run("", "update", food)
	assert.ErrorContains(t, err, "nothing to update")

	assert.Contains(t, h.mustRun("delete", food), "Transaction deleted successfully")
	_, err = h.run("", "delete", food)
	assert.Error(t, err)
}

func TestUpdateNormalizesAmount(t *testing.T) {
	h := newHarness(t)
	h.mustRun("register", "-name", "Ann", "-email", "ann@example.com", "-password", "pw")
	food := h.add("-type", "Expense", "-amount", "300", "-category", "food",
		"-subcategory", "groceries", "-payment", "Cash", "-date", "2024-01-20")

	out := h.mustRun("update", food, "-amount", " 12,50 ")
	assert.Contains(t, out, "12.50")
	assert.Contains(t, h.mustRun("list"), "Expense: 12.50")

	_, err := h.run("", "update", food, "-amount", "abc")
	assert.ErrorContains(t, err, `invalid amount "abc"`)
	assert.Contains(t, h.mustRun("list"), "Expense: 12.50")
}

func TestAddRejectsUnknownReferences(t *testing.T) {
	h := newHarness(t)
	h.mustRun("register", "-name", "Ann", "-email", "ann@example.com", "-password", "pw")

	_, err := h.run("", "add", "-type", "Expense", "-amount", "5", "-category", "Pets",
		"-subcategory", "Food", "-payment", "Cash")
	assert.ErrorContains(t, err, "unknown category")

	_, err = h.run("", "add", "-type", "Expense", "-amount", "5", "-category", "Food",
		"-subcategory", "Groceries", "-payment", "Cheque")
	assert.ErrorContains(t, err, "unknown payment method")
}

func TestSearchRunsLastQuery(t *testing.T) {
	h := newHarness(t)
	h.mustRun("register", "-name", "Ann", "-email", "ann@example.com", "-password", "pw")
	h.add("-type", "Expense", "-amount", "12", "-category", "Food", "-subcategory", "Groceries",
		"-payment", "Cash", "-date", "2024-02-01", "-description", "Farmers market")
	h.add("-type", "Expense", "-amount", "30", "-category", "Entertainment", "-subcategory", "Movies",
		"-payment", "Cash", "-date", "2024-02-02", "-description", "Cinema night")

	out, err := h.run("c\nci\ncinema\n", "search")
	require.NoError(t, err)

	assert.Equal(t, 1, strings.Count(out, "search "))
	assert.Contains(t, out, `search "cinema": 1 matches`)
	assert.Contains(t, out, "Cinema night")
	assert.NotContains(t, out, "Farmers market")
}

func TestUnknownCommand(t *testing.T) {
	h := newHarness(t)
	_, err := h.run("", "frobnicate")
	assert.ErrorContains(t, err, "unknown command")
}
