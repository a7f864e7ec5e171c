package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"

	"fintrack/internal/core"
)

// maxBodyBytes bounds every JSON request body.
const maxBodyBytes = 1 << 20

var errInvalidBody = core.Validation("Invalid request body")

// decodeJSON reads a single JSON value from the request body into v.
// Syntax errors, type mismatches and bad dates all map to
// "Invalid request body".
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	return decodeFrom(http.MaxBytesReader(w, r.Body, maxBodyBytes), v)
}

// readBody returns the raw request body for decoding later.
func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	b, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return nil, errInvalidBody
	}
	return b, nil
}

func decodeFrom(rd io.Reader, v any) error {
	dec := json.NewDecoder(rd)
	if err := dec.Decode(v); err != nil {
		return errInvalidBody
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errInvalidBody
	}
	return nil
}

// sanitizeInput drops control characters other than tab and newlines and
// trims surrounding whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s)
}

// ParseTransactionFilter reads the list query string. Empty parameters are
// ignored; malformed dates and types are validation errors.
func ParseTransactionFilter(query url.Values) (core.TransactionFilter, error) {
	get := func(key string) string { return sanitizeInput(query.Get(key)) }

	f := core.TransactionFilter{
		Type:          core.TransactionType(get("type")),
		CategoryID:    get("categoryId"),
		SubcategoryID: get("subcategoryId"),
		PaymentMethod: get("paymentMethod"),
		Search:        get("search"),
	}

	for _, p := range []struct {
		key string
		dst **core.Date
	}{
		{"startDate", &f.StartDate},
		{"endDate", &f.EndDate},
	} {
		raw := get(p.key)
		if raw == "" {
			continue
		}
		d, err := core.ParseDate(raw)
		if err != nil {
			return core.TransactionFilter{}, core.Validation("Invalid " + p.key)
		}
		*p.dst = &d
	}

	return f, f.Validate()
}
