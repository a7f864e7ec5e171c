package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/ledger"
	"fintrack/internal/services"
)

// LedgerWriter is the mirror target.
type LedgerWriter interface {
	UpsertTransaction(ctx context.Context, v core.TransactionView) error
	DeleteTransaction(ctx context.Context, id string) error
}

// NameResolver maps reference ids to display names.
type NameResolver interface {
	Names(ctx context.Context) (services.Names, error)
}

// MirrorWorker copies committed ledger writes from the database to the
// export sheet.
type MirrorWorker struct {
	store  ledger.TransactionStore
	names  NameResolver
	writer LedgerWriter
}

func NewMirrorWorker(store ledger.TransactionStore, names NameResolver, writer LedgerWriter) *MirrorWorker {
	return &MirrorWorker{store: store, names: names, writer: writer}
}

// HandleEvent processes one ledger event. The current row is always read
// from the database, so redelivered or reordered events converge on the
// latest state.
func (w *MirrorWorker) HandleEvent(ctx context.Context, msg *amqp.LedgerEvent) error {
	slog.InfoContext(ctx, "Processing ledger event",
		"op", msg.Op,
		"transaction_id", msg.TransactionID)

	if msg.Op == ledger.OpDeleted {
		return w.remove(ctx, msg.TransactionID)
	}

	t, err := w.store.GetTransaction(ctx, msg.TransactionID)
	if errors.Is(err, core.ErrNotFound) {
		slog.InfoContext(ctx, "Transaction no longer exists, clearing mirror row",
			"transaction_id", msg.TransactionID)
		return w.remove(ctx, msg.TransactionID)
	}
	if err != nil {
		return fmt.Errorf("get transaction from storage: %w", err)
	}

	names, err := w.names.Names(ctx)
	if err != nil {
		return fmt.Errorf("resolve reference names: %w", err)
	}

	if err := w.writer.UpsertTransaction(ctx, names.View(t)); err != nil {
		return fmt.Errorf("mirror transaction: %w", err)
	}
	return nil
}

func (w *MirrorWorker) remove(ctx context.Context, id string) error {
	if err := w.writer.DeleteTransaction(ctx, id); err != nil {
		return fmt.Errorf("clear mirrored transaction: %w", err)
	}
	return nil
}
