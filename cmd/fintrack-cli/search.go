package main

import (
	"bufio"
	"context"
	"fmt"
	"strings"

	"fintrack/internal/client"
	"fintrack/internal/core"
	"fintrack/internal/report"
)

// search reads one query per line and lists matching transactions once the
// input has been quiet for the debounce delay. End of input runs the last
// pending query.
func (a *app) search(ctx context.Context, args []string) error {
	fs := newFlagSet("search", a.stderr)
	var ff filterFlags
	ff.register(fs)
	pageSize := fs.Int("page-size", report.PageSizes[0], "rows shown per result")
	if err := fs.Parse(args); err != nil {
		return err
	}

	refs, err := a.references(ctx)
	if err != nil {
		return err
	}
	base, err := ff.resolve(refs)
	if err != nil {
		return err
	}

	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(a.stdin)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	fire := make(chan struct{}, 1)
	d := client.NewDebouncer(a.debounce)
	defer d.Stop()

	var (
		latest string
		dirty  bool
	)
	query := func() error {
		dirty = false
		f := base
		f.Search = strings.TrimSpace(latest)
		rows, err := a.api.ListTransactions(ctx, f)
		if err != nil {
			return err
		}
		return a.printSearch(f.Search, rows, *pageSize)
	}

	for {
		select {
		case line, ok := <-lines:
			if !ok {
				d.Stop()
				if dirty {
					return query()
				}
				return nil
			}
			latest, dirty = line, true
			d.Trigger(func() {
				select {
				case fire <- struct{}{}:
				default:
				}
			})
		case <-fire:
			if dirty {
				if err := query(); err != nil {
					return err
				}
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (a *app) printSearch(q string, rows []core.TransactionView, pageSize int) error {
	fmt.Fprintf(a.stdout, "search %q: %d matches\n", q, len(rows))
	tbl := report.NewTable(rows)
	if err := tbl.SetPageSize(pageSize); err != nil {
		return err
	}
	if err := tbl.Render(a.stdout); err != nil {
		return err
	}
	a.printTotals(rows)
	return nil
}
