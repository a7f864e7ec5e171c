package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"golang.org/x/term"

	"fintrack/internal/client"
	"fintrack/internal/core"
	"fintrack/internal/report"
)

func newFlagSet(name string, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	return fs
}

func (a *app) readPassword() (string, error) {
	if f, ok := a.stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(a.stderr, "Password: ")
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(a.stderr)
		return string(b), err
	}
	line, err := bufio.NewReader(a.stdin).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (a *app) register(ctx context.Context, args []string) error {
	fs := newFlagSet("register", a.stderr)
	name := fs.String("name", "", "display name")
	email := fs.String("email", "", "login email")
	password := fs.String("password", "", "password; prompted for when omitted")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *password == "" {
		var err error
		if *password, err = a.readPassword(); err != nil {
			return err
		}
	}

	u, err := a.api.Register(ctx, *name, *email, *password)
	if err != nil {
		return err
	}
	a.saveToken()
	fmt.Fprintf(a.stdout, "Registered Successfully as %s <%s>\n", u.Name, u.Email)
	return nil
}

func (a *app) login(ctx context.Context, args []string) error {
	fs := newFlagSet("login", a.stderr)
	email := fs.String("email", "", "login email")
	password := fs.String("password", "", "password; prompted for when omitted")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *password == "" {
		var err error
		if *password, err = a.readPassword(); err != nil {
			return err
		}
	}

	_, greeting, err := a.api.Login(ctx, *email, *password)
	if err != nil {
		return err
	}
	a.saveToken()
	fmt.Fprintln(a.stdout, greeting)
	return nil
}

func (a *app) logout(ctx context.Context) error {
	err := a.api.Logout(ctx)
	a.forgetToken()
	if err != nil {
		return err
	}
	fmt.Fprintln(a.stdout, "Logged out successfully")
	return nil
}

func (a *app) me(ctx context.Context, _ []string) error {
	u, err := client.SessionFrom(ctx).User()
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "%s <%s>\nid: %s\nsince: %s\n", u.Name, u.Email, u.ID, u.CreatedAt.Format(time.DateOnly))
	return nil
}

func (a *app) categories(ctx context.Context) error {
	cats, err := a.api.Categories(ctx)
	if err != nil {
		return err
	}
	for _, c := range cats {
		names := make([]string, len(c.Subcategories))
		for i, s := range c.Subcategories {
			names[i] = s.Name
		}
		fmt.Fprintf(a.stdout, "%s (%s): %s\n", c.Name, c.Type, strings.Join(names, ", "))
	}
	return nil
}

func (a *app) subcategories(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: subcategories <category>")
	}
	subs, err := a.api.Subcategories(ctx, args[0])
	if err != nil {
		return err
	}
	for _, s := range subs {
		fmt.Fprintln(a.stdout, s.Name)
	}
	return nil
}

func (a *app) paymentMethods(ctx context.Context) error {
	methods, err := a.api.PaymentMethods(ctx)
	if err != nil {
		return err
	}
	for _, m := range methods {
		fmt.Fprintln(a.stdout, m.Name)
	}
	return nil
}

func (a *app) references(ctx context.Context) (*client.ReferenceData, error) {
	return client.SessionFrom(ctx).References(ctx, a.api)
}

// filterFlags are shared by list and search.
type filterFlags struct {
	typ, category, subcategory, payment, from, to, search string
}

func (f *filterFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&f.typ, "type", "", "Income or Expense")
	fs.StringVar(&f.category, "category", "", "category name or id")
	fs.StringVar(&f.subcategory, "subcategory", "", "subcategory name or id; needs -category")
	fs.StringVar(&f.payment, "payment", "", "payment method")
	fs.StringVar(&f.from, "from", "", "first date, YYYY-MM-DD")
	fs.StringVar(&f.to, "to", "", "last date, YYYY-MM-DD")
	fs.StringVar(&f.search, "search", "", "description contains")
}

func (f filterFlags) resolve(refs *client.ReferenceData) (core.TransactionFilter, error) {
	out := core.TransactionFilter{Search: strings.TrimSpace(f.search)}

	if f.typ != "" {
		t, err := parseType(f.typ)
		if err != nil {
			return out, err
		}
		out.Type = t
	}
	if f.category != "" {
		cat, ok := refs.Category(f.category)
		if !ok {
			return out, fmt.Errorf("unknown category %q", f.category)
		}
		out.CategoryID = cat.ID
		if f.subcategory != "" {
			sub, ok := refs.Subcategory(cat, f.subcategory)
			if !ok {
				return out, fmt.Errorf("unknown subcategory %q of %s", f.subcategory, cat.Name)
			}
			out.SubcategoryID = sub.ID
		}
	} else if f.subcategory != "" {
		return out, errors.New("-subcategory needs -category")
	}
	if f.payment != "" {
		m, ok := refs.PaymentMethod(f.payment)
		if !ok {
			return out, fmt.Errorf("unknown payment method %q", f.payment)
		}
		out.PaymentMethod = m
	}
	for _, d := range []struct {
		raw  string
		dst  **core.Date
		name string
	}{{f.from, &out.StartDate, "-from"}, {f.to, &out.EndDate, "-to"}} {
		if d.raw == "" {
			continue
		}
		parsed, err := core.ParseDate(d.raw)
		if err != nil {
			return out, fmt.Errorf("invalid %s date %q", d.name, d.raw)
		}
		*d.dst = &parsed
	}
	return out, out.Validate()
}

func parseType(s string) (core.TransactionType, error) {
	switch {
	case strings.EqualFold(s, string(core.Income)):
		return core.Income, nil
	case strings.EqualFold(s, string(core.Expense)):
		return core.Expense, nil
	default:
		return "", fmt.Errorf("type must be Income or Expense, got %q", s)
	}
}

func (a *app) list(ctx context.Context, args []string) error {
	fs := newFlagSet("list", a.stderr)
	var ff filterFlags
	ff.register(fs)
	sortBy := fs.String("sort", "", "column to sort by: "+columnNames())
	desc := fs.Bool("desc", false, "sort descending")
	page := fs.Int("page", 1, "page number")
	pageSize := fs.Int("page-size", report.PageSizes[0], "rows per page: 10, 20, 30, 40 or 50")
	monthly := fs.Bool("monthly", false, "print the monthly breakdown")
	if err := fs.Parse(args); err != nil {
		return err
	}

	refs, err := a.references(ctx)
	if err != nil {
		return err
	}
	filter, err := ff.resolve(refs)
	if err != nil {
		return err
	}
	rows, err := a.api.ListTransactions(ctx, filter)
	if err != nil {
		return err
	}

	tbl := report.NewTable(rows)
	if *sortBy != "" {
		col, err := report.ParseColumn(*sortBy)
		if err != nil {
			return err
		}
		tbl.Sort(col, *desc)
	}
	if err := tbl.SetPageSize(*pageSize); err != nil {
		return err
	}
	tbl.SetPage(*page - 1)

	if err := tbl.Render(a.stdout); err != nil {
		return err
	}
	a.printTotals(rows)
	if *monthly {
		a.printMonthly(rows)
	}
	return nil
}

func columnNames() string {
	names := make([]string, len(report.Columns))
	for i, c := range report.Columns {
		names[i] = string(c)
	}
	return strings.Join(names, ", ")
}

func (a *app) printTotals(rows []core.TransactionView) {
	t := report.ComputeTotals(rows)
	fmt.Fprintf(a.stdout, "\nIncome: %s  Expense: %s  Balance: %s\n",
		core.FormatAmount(t.Income), core.FormatAmount(t.Expense), core.FormatAmount(t.Balance()))
}

func (a *app) printMonthly(rows []core.TransactionView) {
	fmt.Fprintln(a.stdout)
	for _, m := range report.Monthly(rows).Sorted() {
		fmt.Fprintf(a.stdout, "%-16s income %12s  expense %12s  balance %12s\n", m.Label,
			core.FormatAmount(m.Totals.Income), core.FormatAmount(m.Totals.Expense), core.FormatAmount(m.Totals.Balance()))
	}
}

func (a *app) add(ctx context.Context, args []string) error {
	fs := newFlagSet("add", a.stderr)
	typ := fs.String("type", "", "Income or Expense")
	amount := fs.String("amount", "", "amount, e.g. 12.50")
	category := fs.String("category", "", "category name or id")
	subcategory := fs.String("subcategory", "", "subcategory name or id")
	payment := fs.String("payment", "", "payment method")
	date := fs.String("date", time.Now().Format(core.DateLayout), "date, YYYY-MM-DD")
	description := fs.String("description", "", "free text")
	if err := fs.Parse(args); err != nil {
		return err
	}

	refs, err := a.references(ctx)
	if err != nil {
		return err
	}

	in := core.TransactionInput{Description: *description}
	if in.Type, err = parseType(*typ); err != nil {
		return err
	}
	amt, err := core.ParseAmount(*amount)
	if err != nil {
		return fmt.Errorf("invalid amount %q", *amount)
	}
	in.Amount = &amt
	cat, ok := refs.Category(*category)
	if !ok {
		return fmt.Errorf("unknown category %q", *category)
	}
	sub, ok := refs.Subcategory(cat, *subcategory)
	if !ok {
		return fmt.Errorf("unknown subcategory %q of %s", *subcategory, cat.Name)
	}
	in.CategoryID, in.SubcategoryID = cat.ID, sub.ID
	if in.PaymentMethod, ok = refs.PaymentMethod(*payment); !ok {
		return fmt.Errorf("unknown payment method %q", *payment)
	}
	if in.Date, err = core.ParseDate(*date); err != nil {
		return fmt.Errorf("invalid date %q", *date)
	}

	v, err := a.api.AddTransaction(ctx, in)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "Added %s %s %s on %s (%s)\n", v.Type, core.FormatAmount(v.Amount), v.CategoryName, v.Date, v.ID)
	return nil
}

func (a *app) update(ctx context.Context, args []string) error {
	if len(args) == 0 || strings.HasPrefix(args[0], "-") {
		return errors.New("usage: update <id> [flags]")
	}
	id := args[0]

	fs := newFlagSet("update", a.stderr)
	typ := fs.String("type", "", "Income or Expense")
	amount := fs.String("amount", "", "amount")
	category := fs.String("category", "", "category name or id")
	subcategory := fs.String("subcategory", "", "subcategory name or id")
	payment := fs.String("payment", "", "payment method")
	date := fs.String("date", "", "date, YYYY-MM-DD")
	description := fs.String("description", "", "free text")
	clearDescription := fs.Bool("clear-description", false, "remove the description")
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}

	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	if len(set) == 0 {
		return errors.New("nothing to update")
	}

	refs, err := a.references(ctx)
	if err != nil {
		return err
	}

	var u client.Update
	if set["type"] {
		t, err := parseType(*typ)
		if err != nil {
			return err
		}
		u.Type = &t
	}
	if set["amount"] {
		amt, err := core.ParseAmount(*amount)
		if err != nil {
			return fmt.Errorf("invalid amount %q", *amount)
		}
		formatted := core.FormatAmount(amt)
		u.Amount = &formatted
	}
	if set["category"] {
		cat, ok := refs.Category(*category)
		if !ok {
			return fmt.Errorf("unknown category %q", *category)
		}
		u.CategoryID = &cat.ID
		if set["subcategory"] {
			sub, ok := refs.Subcategory(cat, *subcategory)
			if !ok {
				return fmt.Errorf("unknown subcategory %q of %s", *subcategory, cat.Name)
			}
			u.SubcategoryID = &sub.ID
		}
	} else if set["subcategory"] {
		// The stored category is unknown here; any match is checked by the server.
		subID := *subcategory
		for _, cat := range refs.Categories {
			if sub, ok := refs.Subcategory(cat, *subcategory); ok {
				subID = sub.ID
				break
			}
		}
		u.SubcategoryID = &subID
	}
	if set["payment"] {
		m, ok := refs.PaymentMethod(*payment)
		if !ok {
			return fmt.Errorf("unknown payment method %q", *payment)
		}
		u.PaymentMethod = &m
	}
	if set["date"] {
		d, err := core.ParseDate(*date)
		if err != nil {
			return fmt.Errorf("invalid date %q", *date)
		}
		u.Date = &d
	}
	if set["description"] {
		u.Description = description
	}
	u.ClearDescription = *clearDescription

	v, err := a.api.UpdateTransaction(ctx, id, u)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "Updated %s: %s %s %s on %s\n", v.ID, v.Type, core.FormatAmount(v.Amount), v.CategoryName, v.Date)
	return nil
}

func (a *app) delete(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: delete <id>")
	}
	if err := a.api.DeleteTransaction(ctx, args[0]); err != nil {
		return err
	}
	fmt.Fprintln(a.stdout, "Transaction deleted successfully")
	return nil
}
