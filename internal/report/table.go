package report

import (
	"fmt"
	"io"
	"slices"
	"sort"
	"strings"
	"text/tabwriter"

	"fintrack/internal/core"
)

// Column identifies a sortable table column.
type Column string

const (
	ColumnDate          Column = "date"
	ColumnType          Column = "type"
	ColumnAmount        Column = "amount"
	ColumnCategory      Column = "category"
	ColumnSubcategory   Column = "subcategory"
	ColumnPaymentMethod Column = "paymentMethod"
	ColumnDescription   Column = "description"
	ColumnID            Column = "id"
)

// Columns in display order.
var Columns = []Column{
	ColumnDate, ColumnType, ColumnAmount, ColumnCategory,
	ColumnSubcategory, ColumnPaymentMethod, ColumnDescription, ColumnID,
}

// PageSizes are the allowed page sizes. The first one is the default.
var PageSizes = []int{10, 20, 30, 40, 50}

// ParseColumn accepts a column name case-insensitively.
func ParseColumn(s string) (Column, error) {
	for _, c := range Columns {
		if strings.EqualFold(string(c), s) {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown column %q", s)
}

// Table is a client-side view over a fixed set of rows.
type Table struct {
	rows     []core.TransactionView
	sortBy   Column
	desc     bool
	pageSize int
	page     int
}

// NewTable copies rows and starts on the first page, unsorted, with the
// default page size.
func NewTable(rows []core.TransactionView) *Table {
	return &Table{
		rows:     slices.Clone(rows),
		pageSize: PageSizes[0],
	}
}

// Sort orders rows by col. Equal rows keep their relative order.
func (t *Table) Sort(col Column, desc bool) {
	less := comparator(col)
	sort.SliceStable(t.rows, func(i, j int) bool {
		if desc {
			return less(t.rows[j], t.rows[i])
		}
		return less(t.rows[i], t.rows[j])
	})
	t.sortBy, t.desc = col, desc
}

// SortedBy reports the current sort column and direction.
func (t *Table) SortedBy() (Column, bool) {
	return t.sortBy, t.desc
}

func comparator(col Column) func(a, b core.TransactionView) bool {
	switch col {
	case ColumnAmount:
		return func(a, b core.TransactionView) bool { return a.Amount.LessThan(b.Amount) }
	case ColumnDate:
		return func(a, b core.TransactionView) bool { return a.Date.Before(b.Date.Time) }
	default:
		return func(a, b core.TransactionView) bool { return cellText(a, col) < cellText(b, col) }
	}
}

// SetPageSize changes the page size and returns to the first page.
func (t *Table) SetPageSize(n int) error {
	if !slices.Contains(PageSizes, n) {
		return fmt.Errorf("page size %d not in %v", n, PageSizes)
	}
	t.pageSize = n
	t.page = 0
	return nil
}

func (t *Table) PageSize() int { return t.pageSize }

// PageCount is at least 1, even for an empty table.
func (t *Table) PageCount() int {
	if len(t.rows) == 0 {
		return 1
	}
	return (len(t.rows) + t.pageSize - 1) / t.pageSize
}

// SetPage moves to page i (zero based), clamped to the valid range.
func (t *Table) SetPage(i int) {
	t.page = max(0, min(i, t.PageCount()-1))
}

func (t *Table) PageIndex() int { return t.page }

func (t *Table) Next()     { t.SetPage(t.page + 1) }
func (t *Table) Previous() { t.SetPage(t.page - 1) }

// Page returns the rows of the current page.
func (t *Table) Page() []core.TransactionView {
	start := t.page * t.pageSize
	if start >= len(t.rows) {
		return nil
	}
	end := min(start+t.pageSize, len(t.rows))
	return t.rows[start:end]
}

func (t *Table) Len() int { return len(t.rows) }

// Render writes the current page as aligned columns followed by a page
// indicator.
func (t *Table) Render(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	headers := make([]string, len(Columns))
	for i, c := range Columns {
		h := strings.ToUpper(string(c))
		if c == t.sortBy {
			if t.desc {
				h += " v"
			} else {
				h += " ^"
			}
		}
		headers[i] = h
	}
	fmt.Fprintln(tw, strings.Join(headers, "\t"))

	for _, r := range t.Page() {
		cells := make([]string, len(Columns))
		for i, c := range Columns {
			cells[i] = cellText(r, c)
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	_, err := fmt.Fprintf(w, "page %d of %d (%d rows, %d per page)\n", t.page+1, t.PageCount(), len(t.rows), t.pageSize)
	return err
}

func cellText(r core.TransactionView, col Column) string {
	switch col {
	case ColumnDate:
		return r.Date.String()
	case ColumnType:
		return r.Type.String()
	case ColumnAmount:
		return core.FormatAmount(r.Amount)
	case ColumnCategory:
		return r.CategoryName
	case ColumnSubcategory:
		return r.SubcategoryName
	case ColumnPaymentMethod:
		return r.PaymentMethod
	case ColumnDescription:
		return r.Description
	case ColumnID:
		return r.ID
	default:
		return ""
	}
}
