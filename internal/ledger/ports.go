// Package ledger declares the storage and event ports shared by every
// backend.
package ledger

import (
	"context"

	"fintrack/internal/core"
)

// EventOp names the write that produced a ledger event.
type EventOp string

const (
	OpCreated EventOp = "created"
	OpUpdated EventOp = "updated"
	OpDeleted EventOp = "deleted"
)

// Ports for outbound adapters.
type (
	// UserStore persists credentials. CreateUser fails with core.ErrConflict
	// when the email is taken; lookups fail with core.ErrNotFound.
	UserStore interface {
		CreateUser(ctx context.Context, u core.User) error
		GetUserByEmail(ctx context.Context, email string) (core.User, error)
		GetUserByID(ctx context.Context, id string) (core.User, error)
	}

	// ReferenceStore reads categories (with their linked subcategories) and
	// payment methods.
	ReferenceStore interface {
		ListCategories(ctx context.Context) ([]core.Category, error)
		ListPaymentMethods(ctx context.Context) ([]core.PaymentMethod, error)
	}

	// TransactionStore persists the ledger. Update and delete match on both
	// id and owner, returning core.ErrNotFound when no row matched.
	TransactionStore interface {
		CreateTransaction(ctx context.Context, t core.Transaction) error
		GetTransaction(ctx context.Context, id string) (core.Transaction, error)
		ListTransactions(ctx context.Context, userID string, f core.TransactionFilter) ([]core.Transaction, error)
		UpdateTransaction(ctx context.Context, t core.Transaction) error
		DeleteTransaction(ctx context.Context, id, userID string) error
	}

	// Store is everything a backend provides.
	Store interface {
		UserStore
		ReferenceStore
		TransactionStore
		Ping(ctx context.Context) error
	}

	// EventPublisher announces committed ledger writes.
	EventPublisher interface {
		PublishLedgerEvent(ctx context.Context, op EventOp, t core.Transaction) error
	}
)
