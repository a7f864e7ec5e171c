package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/auth"
	"fintrack/internal/core"
	"fintrack/internal/ledger"
	"fintrack/internal/ledger/memory"
)

var (
	salary        = core.DefaultCategories[0]
	monthlySalary = salary.Subcategories[0]
	food          = core.DefaultCategories[2]
	groceries     = food.Subcategories[0]
)

type recordedEvent struct {
	op ledger.EventOp
	id string
}

type fakePublisher struct {
	mu     sync.Mutex
	events []recordedEvent
	err    error
}

func (p *fakePublisher) PublishLedgerEvent(_ context.Context, op ledger.EventOp, t core.Transaction) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, recordedEvent{op: op, id: t.ID})
	return p.err
}

type fixture struct {
	store *memory.Store
	auth  *AuthService
	refs  *ReferenceService
	txs   *TransactionService
	pub   *fakePublisher
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	store := memory.NewSeeded()
	refs := NewReferenceService(store, time.Minute)
	pub := &fakePublisher{}
	return fixture{
		store: store,
		auth:  NewAuthService(store, auth.NewTokenIssuer("test-secret", time.Hour)),
		refs:  refs,
		txs:   NewTransactionService(store, refs, pub),
		pub:   pub,
	}
}

func amount(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func salaryInput() core.TransactionInput {
	return core.TransactionInput{
		Type:          core.Income,
		Amount:        amount("1000"),
		CategoryID:    salary.ID,
		SubcategoryID: monthlySalary.ID,
		PaymentMethod: "Bank Transfer",
		Date:          core.NewDate(2024, time.January, 15),
		Description:   "Salary",
	}
}

func groceriesInput() core.TransactionInput {
	return core.TransactionInput{
		Type:          core.Expense,
		Amount:        amount("300"),
		CategoryID:    food.ID,
		SubcategoryID: groceries.ID,
		PaymentMethod: "Cash",
		Date:          core.NewDate(2024, time.January, 20),
		Description:   "Groceries",
	}
}

func TestRegisterThenLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	reg, err := f.auth.Register(ctx, "Ann", " Ann@Example.com ", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, "ann@example.com", reg.User.Email)
	assert.NotEqual(t, "s3cret", reg.User.PasswordHash)
	assert.NotEmpty(t, reg.Token)

	login, err := f.auth.Login(ctx, "ann@example.com", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, login.User.ID)

	_, err = f.auth.Register(ctx, "Ann again", "ANN@example.com", "other")
	assert.ErrorIs(t, err, core.ErrConflict)
	assert.Equal(t, "User Already Exists", core.Message(err, ""))
}

func TestRegisterRequiresAllFields(t *testing.T) {
	f := newFixture(t)
	_, err := f.auth.Register(context.Background(), "Ann", "", "pw")
	assert.ErrorIs(t, err, core.ErrValidation)
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.auth.Register(ctx, "Ann", "ann@example.com", "s3cret")
	require.NoError(t, err)

	_, wrongPassword := f.auth.Login(ctx, "ann@example.com", "nope")
	_, unknownEmail := f.auth.Login(ctx, "bob@example.com", "s3cret")

	require.ErrorIs(t, wrongPassword, core.ErrUnauthenticated)
	require.ErrorIs(t, unknownEmail, core.ErrUnauthenticated)
	assert.Equal(t, wrongPassword.Error(), unknownEmail.Error())
}

func TestLoginComparesPasswordForUnknownEmail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.auth.Register(ctx, "Ann", "ann@example.com", "s3cret")
	require.NoError(t, err)

	var hashes []string
	f.auth.checkPassword = func(hash, password string) (bool, error) {
		hashes = append(hashes, hash)
		return auth.CheckPassword(hash, password)
	}

	_, err = f.auth.Login(ctx, "bob@example.com", "s3cret")
	require.ErrorIs(t, err, core.ErrUnauthenticated)
	require.Len(t, hashes, 1)
	assert.Equal(t, auth.DummyHash(), hashes[0])

	_, err = f.auth.Login(ctx, "ann@example.com", "nope")
	require.ErrorIs(t, err, core.ErrUnauthenticated)
	require.Len(t, hashes, 2)
	assert.NotEqual(t, auth.DummyHash(), hashes[1])
}

func TestAuthenticate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sess, err := f.auth.Register(ctx, "Ann", "ann@example.com", "s3cret")
	require.NoError(t, err)

	u, err := f.auth.Authenticate(ctx, sess.Token)
	require.NoError(t, err)
	assert.Equal(t, sess.User.ID, u.ID)

	_, err = f.auth.Authenticate(ctx, "")
	assert.Equal(t, "Unauthorized: Please log in first", core.Message(err, ""))

	_, err = f.auth.Authenticate(ctx, sess.Token+"x")
	assert.ErrorIs(t, err, core.ErrUnauthenticated)

	other := NewAuthService(f.store, auth.NewTokenIssuer("test-secret", time.Hour))
	orphan, _, err := other.tokens.Issue("ghost")
	require.NoError(t, err)
	_, err = f.auth.Authenticate(ctx, orphan)
	assert.Equal(t, "User not found", core.Message(err, ""))
}

func TestListSubcategories(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	byID, err := f.refs.ListSubcategories(ctx, food.ID)
	require.NoError(t, err)
	assert.Len(t, byID, 3)

	byName, err := f.refs.ListSubcategories(ctx, "food")
	require.NoError(t, err)
	assert.Equal(t, byID, byName)

	_, err = f.refs.ListSubcategories(ctx, "Rent")
	assert.ErrorIs(t, err, core.ErrNotFound)

	_, err = f.refs.ListSubcategories(ctx, " ")
	assert.ErrorIs(t, err, core.ErrValidation)
}

func TestReferenceDataIsCached(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.refs.ListCategories(ctx)
	require.NoError(t, err)
	_, err = f.refs.ListCategories(ctx)
	require.NoError(t, err)

	stats := f.refs.CacheStats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	negative := groceriesInput()
	negative.Amount = amount("-1")
	_, err := f.txs.Create(ctx, "u1", negative)
	assert.ErrorIs(t, err, core.ErrValidation)

	zero := groceriesInput()
	zero.Amount = amount("0")
	_, err = f.txs.Create(ctx, "u1", zero)
	assert.NoError(t, err)

	missing := groceriesInput()
	missing.PaymentMethod = ""
	_, err = f.txs.Create(ctx, "u1", missing)
	assert.Equal(t, "All required fields must be provided", core.Message(err, ""))

	badCategory := groceriesInput()
	badCategory.CategoryID = "nope"
	_, err = f.txs.Create(ctx, "u1", badCategory)
	assert.ErrorIs(t, err, core.ErrNotFound)
	assert.Equal(t, "Category not found", core.Message(err, ""))

	badSub := groceriesInput()
	badSub.SubcategoryID = "nope"
	_, err = f.txs.Create(ctx, "u1", badSub)
	assert.Equal(t, "Subcategory not found", core.Message(err, ""))
}

func TestCreateThenListRoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.txs.Create(ctx, "u1", groceriesInput())
	require.NoError(t, err)
	assert.Equal(t, "u1", created.UserID)
	assert.Equal(t, "Food", created.CategoryName)
	assert.Equal(t, "Groceries", created.SubcategoryName)

	start := core.NewDate(2024, time.January, 20)
	got, err := f.txs.List(ctx, "u1", core.TransactionFilter{
		StartDate:     &start,
		EndDate:       &start,
		Type:          core.Expense,
		CategoryID:    food.ID,
		SubcategoryID: groceries.ID,
		PaymentMethod: "Cash",
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, created, got[0])

	assert.Equal(t, []recordedEvent{{op: ledger.OpCreated, id: created.ID}}, f.pub.events)
}

func TestListIsScopedToOwner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, owner := range []string{"u1", "u2", "u1"} {
		_, err := f.txs.Create(ctx, owner, groceriesInput())
		require.NoError(t, err)
	}

	got, err := f.txs.List(ctx, "u1", core.TransactionFilter{})
	require.NoError(t, err)
	assert.Len(t, got, 2)
	for _, v := range got {
		assert.Equal(t, "u1", v.UserID)
	}
}

func TestSearchIsCaseInsensitive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.txs.Create(ctx, "u1", salaryInput())
	require.NoError(t, err)
	_, err = f.txs.Create(ctx, "u1", groceriesInput())
	require.NoError(t, err)

	got, err := f.txs.List(ctx, "u1", core.TransactionFilter{Search: "grocer"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Groceries", got[0].Description)
}

func TestForeignOwnerCannotUpdateOrDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created, err := f.txs.Create(ctx, "u1", groceriesInput())
	require.NoError(t, err)

	valid := core.TransactionPatch{Amount: core.Some(decimal.NewFromInt(5))}
	invalid := core.TransactionPatch{Amount: core.Some(decimal.NewFromInt(-5))}
	for _, patch := range []core.TransactionPatch{valid, invalid} {
		_, err = f.txs.Update(ctx, created.ID, "u2", patch)
		assert.ErrorIs(t, err, core.ErrForbidden)
	}

	err = f.txs.Delete(ctx, created.ID, "u2")
	assert.ErrorIs(t, err, core.ErrForbidden)

	got, err := f.txs.List(ctx, "u1", core.TransactionFilter{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "300.00", core.FormatAmount(got[0].Amount))
}

func TestUpdateAmountOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created, err := f.txs.Create(ctx, "u1", groceriesInput())
	require.NoError(t, err)

	updated, err := f.txs.Update(ctx, created.ID, "u1", core.TransactionPatch{Amount: core.Some(decimal.NewFromInt(500))})
	require.NoError(t, err)

	assert.Equal(t, "500.00", core.FormatAmount(updated.Amount))
	assert.Equal(t, created.CategoryID, updated.CategoryID)
	assert.Equal(t, created.SubcategoryID, updated.SubcategoryID)
	assert.Equal(t, created.Date, updated.Date)
	assert.Equal(t, created.Description, updated.Description)
	assert.Equal(t, created.CreatedAt, updated.CreatedAt)
}

func TestUpdateValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created, err := f.txs.Create(ctx, "u1", groceriesInput())
	require.NoError(t, err)

	_, err = f.txs.Update(ctx, created.ID, "u1", core.TransactionPatch{Amount: core.Some(decimal.NewFromInt(-1))})
	assert.ErrorIs(t, err, core.ErrValidation)

	_, err = f.txs.Update(ctx, created.ID, "u1", core.TransactionPatch{Amount: core.Some(decimal.Zero)})
	assert.NoError(t, err)

	_, err = f.txs.Update(ctx, created.ID, "u1", core.TransactionPatch{CategoryID: core.Some("nope")})
	assert.ErrorIs(t, err, core.ErrValidation)

	_, err = f.txs.Update(ctx, "missing", "u1", core.TransactionPatch{})
	assert.ErrorIs(t, err, core.ErrNotFound)
	assert.Equal(t, "Transaction not found", core.Message(err, ""))
}

func TestUpdateNullDescriptionClearsIt(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created, err := f.txs.Create(ctx, "u1", groceriesInput())
	require.NoError(t, err)

	updated, err := f.txs.Update(ctx, created.ID, "u1", core.TransactionPatch{
		Description: core.Optional[string]{Set: true, Null: true},
	})
	require.NoError(t, err)
	assert.Equal(t, "", updated.Description)
}

func TestDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created, err := f.txs.Create(ctx, "u1", groceriesInput())
	require.NoError(t, err)

	require.NoError(t, f.txs.Delete(ctx, created.ID, "u1"))
	err = f.txs.Delete(ctx, created.ID, "u1")
	assert.ErrorIs(t, err, core.ErrNotFound)

	require.Len(t, f.pub.events, 2)
	assert.Equal(t, ledger.OpDeleted, f.pub.events[1].op)
}

func TestPublishFailureDoesNotFailWrite(t *testing.T) {
	f := newFixture(t)
	f.pub.err = errors.New("broker down")

	_, err := f.txs.Create(context.Background(), "u1", groceriesInput())
	assert.NoError(t, err)
}

func TestNilPublisherIsAllowed(t *testing.T) {
	f := newFixture(t)
	txs := NewTransactionService(f.store, f.refs, nil)

	_, err := txs.Create(context.Background(), "u1", groceriesInput())
	assert.NoError(t, err)
}

func TestOrphanedReferencesResolveToUnknown(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.txs.Create(ctx, "u1", groceriesInput())
	require.NoError(t, err)

	f.store.DeleteCategory(food.ID)
	f.refs.Invalidate()

	got, err := f.txs.List(ctx, "u1", core.TransactionFilter{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, core.UnknownName, got[0].CategoryName)
	assert.Equal(t, core.UnknownName, got[0].SubcategoryName)
}
