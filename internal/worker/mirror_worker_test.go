package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/ledger"
	"fintrack/internal/ledger/memory"
	"fintrack/internal/services"
)

type fakeWriter struct {
	upserts []core.TransactionView
	deletes []string
	err     error
}

func (f *fakeWriter) UpsertTransaction(_ context.Context, v core.TransactionView) error {
	if f.err != nil {
		return f.err
	}
	f.upserts = append(f.upserts, v)
	return nil
}

func (f *fakeWriter) DeleteTransaction(_ context.Context, id string) error {
	if f.err != nil {
		return f.err
	}
	f.deletes = append(f.deletes, id)
	return nil
}

func setup(t *testing.T) (*MirrorWorker, *memory.Store, *fakeWriter) {
	t.Helper()
	store := memory.NewSeeded()
	writer := &fakeWriter{}
	refs := services.NewReferenceService(store, time.Minute)
	return NewMirrorWorker(store, refs, writer), store, writer
}

func storedTransaction(t *testing.T, store *memory.Store) core.Transaction {
	t.Helper()
	food := core.DefaultCategories[2]
	tx := core.Transaction{
		ID:            "t1",
		UserID:        "u1",
		Type:          core.Expense,
		Amount:        decimal.NewFromInt(300),
		CategoryID:    food.ID,
		SubcategoryID: food.Subcategories[0].ID,
		PaymentMethod: "Cash",
		Date:          core.NewDate(2024, time.January, 20),
		Description:   "Groceries",
	}
	require.NoError(t, store.CreateTransaction(context.Background(), tx))
	return tx
}

func TestHandleEventUpsertsCurrentRow(t *testing.T) {
	w, store, writer := setup(t)
	tx := storedTransaction(t, store)

	err := w.HandleEvent(context.Background(), &amqp.LedgerEvent{Op: ledger.OpCreated, TransactionID: tx.ID})
	require.NoError(t, err)

	require.Len(t, writer.upserts, 1)
	assert.Equal(t, "Food", writer.upserts[0].CategoryName)
	assert.Equal(t, "Groceries", writer.upserts[0].SubcategoryName)
}

func TestHandleEventDelete(t *testing.T) {
	w, _, writer := setup(t)

	err := w.HandleEvent(context.Background(), &amqp.LedgerEvent{Op: ledger.OpDeleted, TransactionID: "t1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"t1"}, writer.deletes)
}

func TestHandleEventForVanishedRowClearsMirror(t *testing.T) {
	w, _, writer := setup(t)

	err := w.HandleEvent(context.Background(), &amqp.LedgerEvent{Op: ledger.OpUpdated, TransactionID: "gone"})
	require.NoError(t, err)
	assert.Empty(t, writer.upserts)
	assert.Equal(t, []string{"gone"}, writer.deletes)
}

func TestHandleEventWriterFailureIsReturned(t *testing.T) {
	w, store, writer := setup(t)
	tx := storedTransaction(t, store)
	writer.err = errors.New("quota exceeded")

	err := w.HandleEvent(context.Background(), &amqp.LedgerEvent{Op: ledger.OpUpdated, TransactionID: tx.ID})
	assert.ErrorContains(t, err, "quota exceeded")
}
