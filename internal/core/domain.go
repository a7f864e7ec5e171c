package core

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Income  TransactionType = "Income"
	Expense TransactionType = "Expense"
)

// UnknownName is shown for references that no longer resolve.
const UnknownName = "Unknown"

type (
	TransactionType string

	User struct {
		ID           string    `json:"id"`
		Name         string    `json:"name"`
		Email        string    `json:"email"`
		PasswordHash string    `json:"-"`
		CreatedAt    time.Time `json:"createdAt"`
		UpdatedAt    time.Time `json:"updatedAt"`
	}

	Category struct {
		ID            string          `json:"id"`
		Name          string          `json:"name"`
		Type          TransactionType `json:"type,omitempty"`
		Subcategories []Subcategory   `json:"subcategories"`
	}

	Subcategory struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}

	PaymentMethod struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}

	Transaction struct {
		ID            string          `json:"id"`
		UserID        string          `json:"userId"`
		Type          TransactionType `json:"type"`
		Amount        decimal.Decimal `json:"amount"`
		CategoryID    string          `json:"categoryId"`
		SubcategoryID string          `json:"subcategoryId"`
		PaymentMethod string          `json:"paymentMethod"`
		Date          Date            `json:"date"`
		Description   string          `json:"description"`
		CreatedAt     time.Time       `json:"createdAt"`
		UpdatedAt     time.Time       `json:"updatedAt"`
	}

	// TransactionView is a transaction enriched with reference display names.
	TransactionView struct {
		Transaction
		CategoryName    string `json:"categoryName"`
		SubcategoryName string `json:"subcategoryName"`
	}

	// TransactionFilter is a partial predicate. Zero fields match everything.
	TransactionFilter struct {
		StartDate     *Date
		EndDate       *Date
		Type          TransactionType
		CategoryID    string
		SubcategoryID string
		PaymentMethod string
		Search        string
	}

	// TransactionInput is the payload of a create request. Amount is nil
	// when the caller did not supply it.
	TransactionInput struct {
		Type          TransactionType  `json:"type"`
		Amount        *decimal.Decimal `json:"amount"`
		CategoryID    string           `json:"categoryId"`
		SubcategoryID string           `json:"subcategoryId"`
		PaymentMethod string           `json:"paymentMethod"`
		Date          Date             `json:"date"`
		Description   string           `json:"description"`
	}
)

func (t TransactionType) Valid() bool {
	return t == Income || t == Expense
}

func (t TransactionType) String() string {
	return string(t)
}

// NormalizeEmail lowercases and trims an email for lookups and uniqueness.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Validate checks presence of every required field, then the amount sign
// and the type. Reference resolution is left to the caller.
func (in TransactionInput) Validate() error {
	if in.Type == "" || in.Amount == nil ||
		strings.TrimSpace(in.CategoryID) == "" ||
		strings.TrimSpace(in.SubcategoryID) == "" ||
		strings.TrimSpace(in.PaymentMethod) == "" ||
		in.Date.IsZero() {
		return Validation("All required fields must be provided")
	}
	if !in.Type.Valid() {
		return Validation("Type must be Income or Expense")
	}
	return ValidateAmount(*in.Amount)
}

// Transaction builds the record owned by userID.
func (in TransactionInput) Transaction(id, userID string, now time.Time) Transaction {
	return Transaction{
		ID:            id,
		UserID:        userID,
		Type:          in.Type,
		Amount:        NormalizeAmount(*in.Amount),
		CategoryID:    strings.TrimSpace(in.CategoryID),
		SubcategoryID: strings.TrimSpace(in.SubcategoryID),
		PaymentMethod: strings.TrimSpace(in.PaymentMethod),
		Date:          in.Date,
		Description:   strings.TrimSpace(in.Description),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// Matches reports whether t satisfies every set predicate of f.
func (f TransactionFilter) Matches(t Transaction) bool {
	if f.StartDate != nil && t.Date.Before(f.StartDate.Time) {
		return false
	}
	if f.EndDate != nil && t.Date.After(f.EndDate.Time) {
		return false
	}
	if f.Type != "" && t.Type != f.Type {
		return false
	}
	if f.CategoryID != "" && t.CategoryID != f.CategoryID {
		return false
	}
	if f.SubcategoryID != "" && t.SubcategoryID != f.SubcategoryID {
		return false
	}
	if f.PaymentMethod != "" && t.PaymentMethod != f.PaymentMethod {
		return false
	}
	if f.Search != "" && !strings.Contains(strings.ToLower(t.Description), strings.ToLower(f.Search)) {
		return false
	}
	return true
}

// Validate checks the filter's own consistency.
func (f TransactionFilter) Validate() error {
	if f.Type != "" && !f.Type.Valid() {
		return Validation("Type must be Income or Expense")
	}
	if f.StartDate != nil && f.EndDate != nil && f.EndDate.Before(f.StartDate.Time) {
		return Validation("startDate must not be after endDate")
	}
	return nil
}

// LessRecent orders transactions by date then creation time, newest first.
func LessRecent(a, b Transaction) bool {
	if !a.Date.Equal(b.Date.Time) {
		return a.Date.After(b.Date.Time)
	}
	return a.CreatedAt.After(b.CreatedAt)
}
