package core

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Optional distinguishes an absent JSON field from an explicit null and
// from a value.
type Optional[T any] struct {
	Set   bool
	Null  bool
	Value T
}

// Some returns a set, non-null Optional.
func Some[T any](v T) Optional[T] {
	return Optional[T]{Set: true, Value: v}
}

// Present reports whether a non-null value was supplied.
func (o Optional[T]) Present() bool {
	return o.Set && !o.Null
}

func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		o.Null = true
		return nil
	}
	return json.Unmarshal(data, &o.Value)
}

// TransactionPatch is a partial update. Absent fields are left unchanged;
// a null description clears it; null on any other field is rejected.
type TransactionPatch struct {
	Type          Optional[TransactionType] `json:"type"`
	Amount        Optional[decimal.Decimal] `json:"amount"`
	CategoryID    Optional[string]          `json:"categoryId"`
	SubcategoryID Optional[string]          `json:"subcategoryId"`
	PaymentMethod Optional[string]          `json:"paymentMethod"`
	Date          Optional[Date]            `json:"date"`
	Description   Optional[string]          `json:"description"`
}

// Empty reports whether the patch carries no field at all.
func (p TransactionPatch) Empty() bool {
	return !p.Type.Set && !p.Amount.Set && !p.CategoryID.Set && !p.SubcategoryID.Set &&
		!p.PaymentMethod.Set && !p.Date.Set && !p.Description.Set
}

func (p TransactionPatch) Validate() error {
	if p.Type.Null || p.Amount.Null || p.CategoryID.Null || p.SubcategoryID.Null ||
		p.PaymentMethod.Null || p.Date.Null {
		return Validation("Required fields cannot be cleared")
	}
	if p.Type.Set && !p.Type.Value.Valid() {
		return Validation("Type must be Income or Expense")
	}
	if p.Amount.Set {
		if err := ValidateAmount(p.Amount.Value); err != nil {
			return err
		}
	}
	if p.CategoryID.Set && strings.TrimSpace(p.CategoryID.Value) == "" {
		return Validation("Category cannot be empty")
	}
	if p.SubcategoryID.Set && strings.TrimSpace(p.SubcategoryID.Value) == "" {
		return Validation("Subcategory cannot be empty")
	}
	if p.PaymentMethod.Set && strings.TrimSpace(p.PaymentMethod.Value) == "" {
		return Validation("Payment method cannot be empty")
	}
	if p.Date.Set && p.Date.Value.IsZero() {
		return Validation("Date cannot be empty")
	}
	return nil
}

// Apply returns t with the patch applied and UpdatedAt set to now.
func (p TransactionPatch) Apply(t Transaction, now time.Time) Transaction {
	if p.Type.Present() {
		t.Type = p.Type.Value
	}
	if p.Amount.Present() {
		t.Amount = NormalizeAmount(p.Amount.Value)
	}
	if p.CategoryID.Present() {
		t.CategoryID = strings.TrimSpace(p.CategoryID.Value)
	}
	if p.SubcategoryID.Present() {
		t.SubcategoryID = strings.TrimSpace(p.SubcategoryID.Value)
	}
	if p.PaymentMethod.Present() {
		t.PaymentMethod = strings.TrimSpace(p.PaymentMethod.Value)
	}
	if p.Date.Present() {
		t.Date = p.Date.Value
	}
	if p.Description.Set {
		if p.Description.Null {
			t.Description = ""
		} else {
			t.Description = strings.TrimSpace(p.Description.Value)
		}
	}
	t.UpdatedAt = now
	return t
}
