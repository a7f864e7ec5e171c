package client

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/auth"
	"fintrack/internal/core"
	apihttp "fintrack/internal/http"
	"fintrack/internal/ledger/memory"
	"fintrack/internal/log"
	"fintrack/internal/services"
)

func newTestServer(t *testing.T) string {
	t.Helper()
	store := memory.NewSeeded()
	refs := services.NewReferenceService(store, time.Minute)
	logger := log.New(log.Config{Handler: log.NewHandler(io.Discard, "text", slog.LevelError)})

	s := apihttp.NewServer(":0", apihttp.Deps{
		Auth:         services.NewAuthService(store, auth.NewTokenIssuer("client-test-secret-client-test-secret", auth.DefaultSessionTTL)),
		References:   refs,
		Transactions: services.NewTransactionService(store, refs, nil),
		Store:        store,
		Logger:       logger,
	}, apihttp.Options{FrontendURL: "http://localhost:5173", RateLimitPerMinute: 1000})

	srv := httptest.NewServer(s.Handler)
	t.Cleanup(func() {
		srv.Close()
		_ = s.Shutdown(context.Background())
	})
	return srv.URL + "/api"
}

func loggedIn(t *testing.T, base string) (*Client, context.Context) {
	t.Helper()
	c, err := New(base)
	require.NoError(t, err)

	ctx := context.Background()
	_, err = c.Register(ctx, "Alice", "alice@example.com", "secret123")
	require.NoError(t, err)

	sess, err := Start(ctx, c)
	require.NoError(t, err)
	return c, WithSession(ctx, sess)
}

func amount(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func TestNewRejectsBadURL(t *testing.T) {
	_, err := New("localhost")
	assert.Error(t, err)
}

func TestStartWithoutCookie(t *testing.T) {
	c, err := New(newTestServer(t))
	require.NoError(t, err)

	_, err = Start(context.Background(), c)
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestLoginAndSession(t *testing.T) {
	base := newTestServer(t)
	c, ctx := loggedIn(t, base)

	u, err := SessionFrom(ctx).User()
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", u.Email)
	assert.NotEmpty(t, c.Token())

	other, err := New(base)
	require.NoError(t, err)
	_, msg, err := other.Login(context.Background(), "ALICE@example.com", "secret123")
	require.NoError(t, err)
	assert.Equal(t, "Welcome back, Alice", msg)

	_, _, err = other.Login(context.Background(), "alice@example.com", "wrong")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.ErrorIs(t, err, core.ErrUnauthenticated)
}

func TestSavedTokenRestoresSession(t *testing.T) {
	base := newTestServer(t)
	c, _ := loggedIn(t, base)

	restored, err := New(base)
	require.NoError(t, err)
	restored.SetToken(c.Token())

	sess, err := Start(context.Background(), restored)
	require.NoError(t, err)
	u, err := sess.User()
	require.NoError(t, err)
	assert.Equal(t, "Alice", u.Name)
}

func TestUnauthorizedInvalidatesSession(t *testing.T) {
	base := newTestServer(t)
	c, ctx := loggedIn(t, base)
	sess := SessionFrom(ctx)

	_, err := sess.References(ctx, c)
	require.NoError(t, err)

	c.SetToken("garbage")
	_, err = c.ListTransactions(ctx, core.TransactionFilter{})
	assert.ErrorIs(t, err, core.ErrUnauthenticated)
	assert.False(t, sess.Valid())

	_, err = sess.User()
	assert.ErrorIs(t, err, ErrNoSession)
	_, err = sess.References(ctx, c)
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestLogoutInvalidatesSession(t *testing.T) {
	c, ctx := loggedIn(t, newTestServer(t))

	require.NoError(t, c.Logout(ctx))
	assert.False(t, SessionFrom(ctx).Valid())

	_, err := c.Me(context.Background())
	assert.ErrorIs(t, err, core.ErrUnauthenticated)
}

func TestReferenceData(t *testing.T) {
	c, ctx := loggedIn(t, newTestServer(t))

	refs, err := SessionFrom(ctx).References(ctx, c)
	require.NoError(t, err)
	assert.Len(t, refs.Categories, len(core.DefaultCategories))
	assert.Len(t, refs.PaymentMethods, len(core.DefaultPaymentMethods))

	food, ok := refs.Category("food")
	require.True(t, ok)
	groceries, ok := refs.Subcategory(food, "GROCERIES")
	require.True(t, ok)
	assert.Equal(t, core.DefaultCategories[2].Subcategories[0].ID, groceries.ID)

	method, ok := refs.PaymentMethod("credit card")
	require.True(t, ok)
	assert.Equal(t, "Credit Card", method)

	again, err := SessionFrom(ctx).References(ctx, c)
	require.NoError(t, err)
	assert.Same(t, refs, again)

	subs, err := c.Subcategories(ctx, "Food")
	require.NoError(t, err)
	assert.Len(t, subs, 3)

	_, err = c.Subcategories(ctx, "Nope")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestTransactionRoundTrip(t *testing.T) {
	c, ctx := loggedIn(t, newTestServer(t))
	food := core.DefaultCategories[2]

	created, err := c.AddTransaction(ctx, core.TransactionInput{
		Type:          core.Expense,
		Amount:        amount("42.50"),
		CategoryID:    food.ID,
		SubcategoryID: food.Subcategories[0].ID,
		PaymentMethod: "Cash",
		Date:          core.NewDate(2024, 3, 10),
		Description:   "weekly shop",
	})
	require.NoError(t, err)
	assert.Equal(t, "Food", created.CategoryName)
	assert.Equal(t, "Groceries", created.SubcategoryName)
	assert.True(t, decimal.RequireFromString("42.5").Equal(created.Amount))

	newAmount := "50"
	updated, err := c.UpdateTransaction(ctx, created.ID, Update{Amount: &newAmount, ClearDescription: true})
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(50).Equal(updated.Amount))
	assert.Empty(t, updated.Description)

	start := core.NewDate(2024, 3, 1)
	rows, err := c.ListTransactions(ctx, core.TransactionFilter{StartDate: &start, Type: core.Expense})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, created.ID, rows[0].ID)

	rows, err = c.ListTransactions(ctx, core.TransactionFilter{Type: core.Income})
	require.NoError(t, err)
	assert.Empty(t, rows)

	require.NoError(t, c.DeleteTransaction(ctx, created.ID))
	err = c.DeleteTransaction(ctx, created.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestValidationErrorMessage(t *testing.T) {
	c, ctx := loggedIn(t, newTestServer(t))

	_, err := c.AddTransaction(ctx, core.TransactionInput{Type: core.Expense, PaymentMethod: "Cash"})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.NotEmpty(t, apiErr.Message)
	assert.True(t, errors.Is(err, core.ErrValidation))
}

func TestFilterQuery(t *testing.T) {
	start := core.NewDate(2024, 1, 1)
	end := core.NewDate(2024, 1, 31)
	q := FilterQuery(core.TransactionFilter{
		StartDate:     &start,
		EndDate:       &end,
		Type:          core.Income,
		PaymentMethod: "Cash",
		Search:        "rent",
	})

	assert.Equal(t, "2024-01-01", q.Get("startDate"))
	assert.Equal(t, "2024-01-31", q.Get("endDate"))
	assert.Equal(t, "Income", q.Get("type"))
	assert.Equal(t, "Cash", q.Get("paymentMethod"))
	assert.Equal(t, "rent", q.Get("search"))
	assert.False(t, q.Has("categoryId"))

	assert.Empty(t, FilterQuery(core.TransactionFilter{}))
}

func TestDebouncerRunsLastCallOnly(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)
	defer d.Stop()

	var calls, last atomic.Int32
	for i := int32(1); i <= 5; i++ {
		d.Trigger(func() {
			calls.Add(1)
			last.Store(i)
		})
	}

	assert.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, int32(5), last.Load())
}

func TestDebouncerStop(t *testing.T) {
	d := NewDebouncer(10 * time.Millisecond)

	var called atomic.Bool
	d.Trigger(func() { called.Store(true) })
	d.Stop()

	time.Sleep(40 * time.Millisecond)
	assert.False(t, called.Load())
}
