package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"fintrack/internal/core"
	"fintrack/internal/ledger"
)

var _ ledger.Store = (*Store)(nil)

type Store struct {
	mu           sync.Mutex
	users        map[string]core.User
	emails       map[string]string
	categories   []core.Category
	methods      []core.PaymentMethod
	transactions map[string]core.Transaction
}

func New(categories []core.Category, methods []core.PaymentMethod) *Store {
	return &Store{
		users:        make(map[string]core.User),
		emails:       make(map[string]string),
		categories:   sortedCategories(categories),
		methods:      sortedMethods(methods),
		transactions: make(map[string]core.Transaction),
	}
}

// NewSeeded returns a store holding the default reference data.
func NewSeeded() *Store {
	return New(core.DefaultCategories, core.DefaultPaymentMethods)
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) CreateUser(_ context.Context, u core.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	email := core.NormalizeEmail(u.Email)
	if _, exists := s.emails[email]; exists {
		return fmt.Errorf("create user %s: %w", email, core.ErrConflict)
	}
	u.Email = email
	s.users[u.ID] = u
	s.emails[email] = u.ID
	return nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.emails[core.NormalizeEmail(email)]
	if !ok {
		return core.User{}, fmt.Errorf("get user by email: %w", core.ErrNotFound)
	}
	return s.users[id], nil
}

func (s *Store) GetUserByID(_ context.Context, id string) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return core.User{}, fmt.Errorf("get user %s: %w", id, core.ErrNotFound)
	}
	return u, nil
}

// ListCategories returns categories with their subcategories.
func (s *Store) ListCategories(context.Context) ([]core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneCategories(s.categories), nil
}

func (s *Store) ListPaymentMethods(context.Context) ([]core.PaymentMethod, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.PaymentMethod(nil), s.methods...), nil
}

// DeleteCategory drops a reference row. Transactions keep the orphaned id.
func (s *Store) DeleteCategory(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.categories[:0]
	for _, c := range s.categories {
		if c.ID != id {
			out = append(out, c)
		}
	}
	s.categories = out
}

func (s *Store) CreateTransaction(_ context.Context, t core.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.transactions[t.ID]; exists {
		return fmt.Errorf("create transaction %s: %w", t.ID, core.ErrConflict)
	}
	s.transactions[t.ID] = t
	return nil
}

func (s *Store) GetTransaction(_ context.Context, id string) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.transactions[id]
	if !ok {
		return core.Transaction{}, fmt.Errorf("get transaction %s: %w", id, core.ErrNotFound)
	}
	return t, nil
}

// ListTransactions returns the owner's matching transactions, newest first.
func (s *Store) ListTransactions(_ context.Context, userID string, f core.TransactionFilter) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Transaction, 0)
	for _, t := range s.transactions {
		if t.UserID == userID && f.Matches(t) {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return core.LessRecent(out[i], out[j]) })
	return out, nil
}

func (s *Store) UpdateTransaction(_ context.Context, t core.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.transactions[t.ID]
	if !ok || current.UserID != t.UserID {
		return fmt.Errorf("update transaction %s: %w", t.ID, core.ErrNotFound)
	}
	t.CreatedAt = current.CreatedAt
	s.transactions[t.ID] = t
	return nil
}

func (s *Store) DeleteTransaction(_ context.Context, id, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.transactions[id]
	if !ok || current.UserID != userID {
		return fmt.Errorf("delete transaction %s: %w", id, core.ErrNotFound)
	}
	delete(s.transactions, id)
	return nil
}

func cloneCategories(in []core.Category) []core.Category {
	out := make([]core.Category, len(in))
	for i, c := range in {
		c.Subcategories = append([]core.Subcategory(nil), c.Subcategories...)
		out[i] = c
	}
	return out
}

func sortedMethods(in []core.PaymentMethod) []core.PaymentMethod {
	out := append([]core.PaymentMethod(nil), in...)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// sortedCategories orders categories and their subcategories by name, the
// same order the SQL backends return.
func sortedCategories(in []core.Category) []core.Category {
	out := cloneCategories(in)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	for _, c := range out {
		subs := c.Subcategories
		sort.Slice(subs, func(i, j int) bool { return subs[i].Name < subs[j].Name })
	}
	return out
}
