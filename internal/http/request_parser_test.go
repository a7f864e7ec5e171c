package http

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"fintrack/internal/core"
)

func TestParseTransactionFilter(t *testing.T) {
	tests := []struct {
		name    string
		query   url.Values
		wantErr string
		check   func(t *testing.T, f core.TransactionFilter)
	}{
		{
			name:  "empty query matches everything",
			query: url.Values{},
			check: func(t *testing.T, f core.TransactionFilter) {
				if f.StartDate != nil || f.EndDate != nil || f.Type != "" || f.Search != "" {
					t.Errorf("expected zero filter, got %+v", f)
				}
			},
		},
		{
			name: "all parameters",
			query: url.Values{
				"type":          {"Expense"},
				"startDate":     {"2024-01-01"},
				"endDate":       {"2024-01-31"},
				"categoryId":    {"c1"},
				"subcategoryId": {"s1"},
				"paymentMethod": {"Cash"},
				"search":        {"  grocer "},
			},
			check: func(t *testing.T, f core.TransactionFilter) {
				if f.Type != core.Expense || f.CategoryID != "c1" || f.SubcategoryID != "s1" || f.PaymentMethod != "Cash" {
					t.Errorf("unexpected filter %+v", f)
				}
				if f.Search != "grocer" {
					t.Errorf("Search = %q, want trimmed", f.Search)
				}
				if f.StartDate.String() != "2024-01-01" || f.EndDate.String() != "2024-01-31" {
					t.Errorf("dates = %v..%v", f.StartDate, f.EndDate)
				}
			},
		},
		{
			name:    "bad start date",
			query:   url.Values{"startDate": {"yesterday"}},
			wantErr: "Invalid startDate",
		},
		{
			name:    "unknown type",
			query:   url.Values{"type": {"Transfer"}},
			wantErr: "Type must be Income or Expense",
		},
		{
			name:    "inverted range",
			query:   url.Values{"startDate": {"2024-02-01"}, "endDate": {"2024-01-01"}},
			wantErr: "startDate must not be after endDate",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := ParseTransactionFilter(tt.query)
			if tt.wantErr != "" {
				if err == nil || err.Error() != tt.wantErr {
					t.Fatalf("error = %v, want %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			tt.check(t, f)
		})
	}
}

func TestDecodeJSON(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{"valid", `{"name":"a"}`, false},
		{"malformed", `{"name":`, true},
		{"trailing data", `{"name":"a"} {"name":"b"}`, true},
		{"wrong type", `{"name":5}`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var v struct {
				Name string `json:"name"`
			}
			r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			err := decodeJSON(httptest.NewRecorder(), r, &v)
			if (err != nil) != tt.wantErr {
				t.Fatalf("decodeJSON() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && err.Error() != "Invalid request body" {
				t.Errorf("error message = %q", err.Error())
			}
		})
	}
}

func TestSanitizeInput(t *testing.T) {
	if got := sanitizeInput("  rent\x00 for\tMay\n "); got != "rent for\tMay" {
		t.Errorf("sanitizeInput() = %q", got)
	}
}
