package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"fintrack/internal/core"
	"fintrack/internal/ledger"
)

// TransactionService owns the ledger write path: it validates input, checks
// ownership, persists through the store and then announces the write.
type TransactionService struct {
	store     ledger.TransactionStore
	refs      *ReferenceService
	publisher ledger.EventPublisher
	now       func() time.Time
	newID     func() string
}

// NewTransactionService wires the service. publisher may be nil, in which
// case ledger events are skipped.
func NewTransactionService(store ledger.TransactionStore, refs *ReferenceService, publisher ledger.EventPublisher) *TransactionService {
	return &TransactionService{
		store:     store,
		refs:      refs,
		publisher: publisher,
		now:       func() time.Time { return time.Now().UTC() },
		newID:     uuid.NewString,
	}
}

// Create records a new transaction owned by userID.
func (s *TransactionService) Create(ctx context.Context, userID string, in core.TransactionInput) (core.TransactionView, error) {
	if err := in.Validate(); err != nil {
		return core.TransactionView{}, err
	}

	names, err := s.refs.Names(ctx)
	if err != nil {
		return core.TransactionView{}, err
	}
	t := in.Transaction(s.newID(), userID, s.now())
	if _, ok := names.Categories[t.CategoryID]; !ok {
		return core.TransactionView{}, core.NotFound("Category not found")
	}
	if _, ok := names.Subcategories[t.SubcategoryID]; !ok {
		return core.TransactionView{}, core.NotFound("Subcategory not found")
	}

	if err := s.store.CreateTransaction(ctx, t); err != nil {
		return core.TransactionView{}, fmt.Errorf("save transaction: %w", err)
	}
	s.publish(ctx, ledger.OpCreated, t)
	return names.View(t), nil
}

// List returns the caller's transactions matching f, newest first.
func (s *TransactionService) List(ctx context.Context, userID string, f core.TransactionFilter) ([]core.TransactionView, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	items, err := s.store.ListTransactions(ctx, userID, f)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	names, err := s.refs.Names(ctx)
	if err != nil {
		return nil, err
	}
	views := make([]core.TransactionView, len(items))
	for i, t := range items {
		views[i] = names.View(t)
	}
	return views, nil
}

// Update applies patch to the caller's transaction id.
func (s *TransactionService) Update(ctx context.Context, id, userID string, patch core.TransactionPatch) (core.TransactionView, error) {
	return s.UpdateWith(ctx, id, userID, func(p *core.TransactionPatch) error {
		*p = patch
		return nil
	})
}

// UpdateWith is Update with the patch produced by decode. decode runs after
// the existence and ownership checks, so its errors never hide a 404 or 403.
func (s *TransactionService) UpdateWith(ctx context.Context, id, userID string, decode func(*core.TransactionPatch) error) (core.TransactionView, error) {
	current, err := s.owned(ctx, id, userID, "Unauthorized to update this transaction")
	if err != nil {
		return core.TransactionView{}, err
	}
	var patch core.TransactionPatch
	if err := decode(&patch); err != nil {
		return core.TransactionView{}, err
	}
	if err := patch.Validate(); err != nil {
		return core.TransactionView{}, err
	}

	names, err := s.refs.Names(ctx)
	if err != nil {
		return core.TransactionView{}, err
	}
	if patch.CategoryID.Present() {
		if _, ok := names.Categories[patch.CategoryID.Value]; !ok {
			return core.TransactionView{}, core.Validation("Category does not exist")
		}
	}
	if patch.SubcategoryID.Present() {
		if _, ok := names.Subcategories[patch.SubcategoryID.Value]; !ok {
			return core.TransactionView{}, core.Validation("Subcategory does not exist")
		}
	}

	updated := patch.Apply(current, s.now())
	if err := s.store.UpdateTransaction(ctx, updated); err != nil {
		// Deleted between the read and the write.
		if errors.Is(err, core.ErrNotFound) {
			return core.TransactionView{}, core.NotFound("Transaction not found")
		}
		return core.TransactionView{}, fmt.Errorf("update transaction: %w", err)
	}
	s.publish(ctx, ledger.OpUpdated, updated)
	return names.View(updated), nil
}

// Delete removes the caller's transaction id.
func (s *TransactionService) Delete(ctx context.Context, id, userID string) error {
	current, err := s.owned(ctx, id, userID, "Unauthorized to delete this transaction")
	if err != nil {
		return err
	}
	if err := s.store.DeleteTransaction(ctx, id, userID); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return core.NotFound("Transaction not found")
		}
		return fmt.Errorf("delete transaction: %w", err)
	}
	s.publish(ctx, ledger.OpDeleted, current)
	return nil
}

func (s *TransactionService) owned(ctx context.Context, id, userID, forbidden string) (core.Transaction, error) {
	t, err := s.store.GetTransaction(ctx, id)
	if errors.Is(err, core.ErrNotFound) {
		return core.Transaction{}, core.NotFound("Transaction not found")
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	if t.UserID != userID {
		slog.WarnContext(ctx, "Ownership check failed", "transaction_id", id, "user_id", userID)
		return core.Transaction{}, core.Forbidden(forbidden)
	}
	return t, nil
}

func (s *TransactionService) publish(ctx context.Context, op ledger.EventOp, t core.Transaction) {
	if s.publisher == nil {
		slog.DebugContext(ctx, "Event publisher not available, skipping ledger event", "op", op)
		return
	}
	if err := s.publisher.PublishLedgerEvent(ctx, op, t); err != nil {
		// The write is committed; the mirror catches up on the next event.
		slog.ErrorContext(ctx, "Failed to publish ledger event",
			"op", op, "transaction_id", t.ID, "error", err)
	}
}
