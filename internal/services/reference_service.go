package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"fintrack/internal/cache"
	"fintrack/internal/core"
	"fintrack/internal/ledger"
)

const (
	categoriesKey     = "categories"
	paymentMethodsKey = "payment_methods"

	// DefaultReferenceTTL bounds how stale cached reference data may get.
	DefaultReferenceTTL = 5 * time.Minute
)

// ReferenceService serves categories, subcategories and payment methods
// through a TTL cache. Returned slices are shared with the cache and must
// not be modified.
type ReferenceService struct {
	store      ledger.ReferenceStore
	categories *cache.LRUCache[[]core.Category]
	methods    *cache.LRUCache[[]core.PaymentMethod]
}

func NewReferenceService(store ledger.ReferenceStore, ttl time.Duration) *ReferenceService {
	if ttl <= 0 {
		ttl = DefaultReferenceTTL
	}
	return &ReferenceService{
		store:      store,
		categories: cache.NewLRUCache[[]core.Category](1, ttl),
		methods:    cache.NewLRUCache[[]core.PaymentMethod](1, ttl),
	}
}

// RegisterCaches hands the service caches to m for periodic cleanup.
func (s *ReferenceService) RegisterCaches(m *cache.Manager) {
	m.Register(s.categories)
	m.Register(s.methods)
}

// Invalidate drops cached reference data.
func (s *ReferenceService) Invalidate() {
	s.categories.Purge()
	s.methods.Purge()
}

// CacheStats reports hit/miss counters of the category cache.
func (s *ReferenceService) CacheStats() cache.Stats {
	return s.categories.Stats()
}

func (s *ReferenceService) ListCategories(ctx context.Context) ([]core.Category, error) {
	cats, err := cache.GetOrLoad(ctx, s.categories, categoriesKey, s.store.ListCategories)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return cats, nil
}

func (s *ReferenceService) ListPaymentMethods(ctx context.Context) ([]core.PaymentMethod, error) {
	methods, err := cache.GetOrLoad(ctx, s.methods, paymentMethodsKey, s.store.ListPaymentMethods)
	if err != nil {
		return nil, fmt.Errorf("list payment methods: %w", err)
	}
	return methods, nil
}

// ListSubcategories returns the subcategories linked to the category whose
// id or name (case-insensitive) equals idOrName.
func (s *ReferenceService) ListSubcategories(ctx context.Context, idOrName string) ([]core.Subcategory, error) {
	idOrName = strings.TrimSpace(idOrName)
	if idOrName == "" {
		return nil, core.Validation("Category is required")
	}
	cats, err := s.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	for _, c := range cats {
		if c.ID == idOrName || strings.EqualFold(c.Name, idOrName) {
			if len(c.Subcategories) == 0 {
				return nil, core.NotFound("No subcategories found for this category")
			}
			return c.Subcategories, nil
		}
	}
	return nil, core.NotFound("Category not found")
}

// Names maps reference ids to display names.
type Names struct {
	Categories    map[string]string
	Subcategories map[string]string
}

func (n Names) Category(id string) string {
	if name, ok := n.Categories[id]; ok {
		return name
	}
	return core.UnknownName
}

func (n Names) Subcategory(id string) string {
	if name, ok := n.Subcategories[id]; ok {
		return name
	}
	return core.UnknownName
}

// View enriches t with its reference names.
func (n Names) View(t core.Transaction) core.TransactionView {
	return core.TransactionView{
		Transaction:     t,
		CategoryName:    n.Category(t.CategoryID),
		SubcategoryName: n.Subcategory(t.SubcategoryID),
	}
}

// Names builds the id to name lookup from the cached categories.
func (s *ReferenceService) Names(ctx context.Context) (Names, error) {
	cats, err := s.ListCategories(ctx)
	if err != nil {
		return Names{}, err
	}
	n := Names{
		Categories:    make(map[string]string, len(cats)),
		Subcategories: make(map[string]string),
	}
	for _, c := range cats {
		n.Categories[c.ID] = c.Name
		for _, sub := range c.Subcategories {
			n.Subcategories[sub.ID] = sub.Name
		}
	}
	return n, nil
}
