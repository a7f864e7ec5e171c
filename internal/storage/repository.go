package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"fintrack/internal/core"
	"fintrack/internal/ledger"

	_ "github.com/lib/pq"
)

var _ ledger.Store = (*Repository)(nil)

// Repository is the database/sql backed ledger store for SQLite and Postgres.
type Repository struct {
	db      *sql.DB
	dialect Dialect
}

// SQLiteDSN appends the pragmas every SQLite connection needs.
func SQLiteDSN(dbPath string) string {
	return dbPath + "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
}

func NewSQLiteRepository(dbPath string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}
	return open(SQLite, SQLiteDSN(dbPath))
}

func NewPostgresRepository(databaseURL string) (*Repository, error) {
	return open(Postgres, databaseURL)
}

func open(dialect Dialect, dsn string) (*Repository, error) {
	db, err := sql.Open(dialect.DriverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", dialect, err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if dialect == SQLite {
		// One writer at a time; avoids SQLITE_BUSY under concurrent requests.
		db.SetMaxOpenConns(1)
	}

	// Run migrations
	if err := RunMigrations(dialect, dsn); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Repository{db: db, dialect: dialect}, nil
}

func (r *Repository) Dialect() Dialect {
	return r.dialect
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *Repository) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return r.db.ExecContext(ctx, r.dialect.Rebind(query), args...)
}

func (r *Repository) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return r.db.QueryContext(ctx, r.dialect.Rebind(query), args...)
}

func (r *Repository) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return r.db.QueryRowContext(ctx, r.dialect.Rebind(query), args...)
}

// CreateUser implements ledger.UserStore
func (r *Repository) CreateUser(ctx context.Context, u core.User) error {
	_, err := r.exec(ctx,
		`INSERT INTO users (id, name, email, password_hash, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		u.ID, u.Name, core.NormalizeEmail(u.Email), u.PasswordHash, formatTime(u.CreatedAt), formatTime(u.UpdatedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("create user: %w", core.ErrConflict)
		}
		return fmt.Errorf("create user: %w", err)
	}

	slog.InfoContext(ctx, "User saved", "id", u.ID, "backend", r.dialect)
	return nil
}

func (r *Repository) GetUserByEmail(ctx context.Context, email string) (core.User, error) {
	row := r.queryRow(ctx,
		`SELECT id, name, email, password_hash, created_at, updated_at FROM users WHERE email = ?`,
		core.NormalizeEmail(email))
	u, err := scanUser(row)
	if err != nil {
		return core.User{}, fmt.Errorf("get user by email: %w", err)
	}
	return u, nil
}

func (r *Repository) GetUserByID(ctx context.Context, id string) (core.User, error) {
	row := r.queryRow(ctx,
		`SELECT id, name, email, password_hash, created_at, updated_at FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if err != nil {
		return core.User{}, fmt.Errorf("get user %s: %w", id, err)
	}
	return u, nil
}

func scanUser(row *sql.Row) (core.User, error) {
	var (
		u                    core.User
		createdAt, updatedAt timeValue
	)
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, core.ErrNotFound
	}
	if err != nil {
		return core.User{}, err
	}
	u.CreatedAt = createdAt.Time
	u.UpdatedAt = updatedAt.Time
	return u, nil
}

// ListCategories implements ledger.ReferenceStore
func (r *Repository) ListCategories(ctx context.Context) ([]core.Category, error) {
	rows, err := r.query(ctx, `
		SELECT c.id, c.name, COALESCE(c.type, ''), s.id, s.name
		FROM categories c
		LEFT JOIN category_subcategories cs ON cs.category_id = c.id
		LEFT JOIN subcategories s ON s.id = cs.subcategory_id
		ORDER BY c.name, s.name`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var (
		out   []core.Category
		index = make(map[string]int)
	)
	for rows.Next() {
		var (
			id, name, typ  string
			subID, subName sql.NullString
		)
		if err := rows.Scan(&id, &name, &typ, &subID, &subName); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		i, seen := index[id]
		if !seen {
			out = append(out, core.Category{
				ID:            id,
				Name:          name,
				Type:          core.TransactionType(typ),
				Subcategories: []core.Subcategory{},
			})
			i = len(out) - 1
			index[id] = i
		}
		if subID.Valid {
			out[i].Subcategories = append(out[i].Subcategories, core.Subcategory{ID: subID.String, Name: subName.String})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate categories: %w", err)
	}
	return out, nil
}

func (r *Repository) ListPaymentMethods(ctx context.Context) ([]core.PaymentMethod, error) {
	rows, err := r.query(ctx, `SELECT id, name FROM payment_methods ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list payment methods: %w", err)
	}
	defer rows.Close()

	var out []core.PaymentMethod
	for rows.Next() {
		var pm core.PaymentMethod
		if err := rows.Scan(&pm.ID, &pm.Name); err != nil {
			return nil, fmt.Errorf("scan payment method: %w", err)
		}
		out = append(out, pm)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate payment methods: %w", err)
	}
	return out, nil
}

const transactionColumns = `id, user_id, type, amount, category_id, subcategory_id, payment_method, date, description, created_at, updated_at`

// CreateTransaction implements ledger.TransactionStore
func (r *Repository) CreateTransaction(ctx context.Context, t core.Transaction) error {
	_, err := r.exec(ctx,
		`INSERT INTO transactions (`+transactionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.UserID, string(t.Type), core.FormatAmount(t.Amount), t.CategoryID, t.SubcategoryID,
		t.PaymentMethod, t.Date.String(), t.Description, formatTime(t.CreatedAt), formatTime(t.UpdatedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("create transaction: %w", core.ErrConflict)
		}
		return fmt.Errorf("create transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction saved",
		"id", t.ID,
		"user_id", t.UserID,
		"type", t.Type,
		"amount", core.FormatAmount(t.Amount),
		"date", t.Date.String())
	return nil
}

func (r *Repository) GetTransaction(ctx context.Context, id string) (core.Transaction, error) {
	row := r.queryRow(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, id)
	t, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, fmt.Errorf("get transaction %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction %s: %w", id, err)
	}
	return t, nil
}

// ListTransactions returns the owner's matching transactions, newest first.
func (r *Repository) ListTransactions(ctx context.Context, userID string, f core.TransactionFilter) ([]core.Transaction, error) {
	where, args := buildFilter(r.dialect, userID, f)
	rows, err := r.query(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE `+where+` ORDER BY date DESC, created_at DESC`,
		args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	out := make([]core.Transaction, 0)
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return out, nil
}

// buildFilter turns a filter into a WHERE clause with ? placeholders.
func buildFilter(d Dialect, userID string, f core.TransactionFilter) (string, []any) {
	clauses := []string{"user_id = ?"}
	args := []any{userID}

	if f.StartDate != nil {
		clauses = append(clauses, "date >= ?")
		args = append(args, f.StartDate.String())
	}
	if f.EndDate != nil {
		clauses = append(clauses, "date <= ?")
		args = append(args, f.EndDate.String())
	}
	if f.Type != "" {
		clauses = append(clauses, "type = ?")
		args = append(args, string(f.Type))
	}
	if f.CategoryID != "" {
		clauses = append(clauses, "category_id = ?")
		args = append(args, f.CategoryID)
	}
	if f.SubcategoryID != "" {
		clauses = append(clauses, "subcategory_id = ?")
		args = append(args, f.SubcategoryID)
	}
	if f.PaymentMethod != "" {
		clauses = append(clauses, "payment_method = ?")
		args = append(args, f.PaymentMethod)
	}
	if f.Search != "" {
		clauses = append(clauses, d.Lower("description")+` LIKE ? ESCAPE '\'`)
		args = append(args, "%"+escapeLike(strings.ToLower(f.Search))+"%")
	}
	return strings.Join(clauses, " AND "), args
}

// UpdateTransaction rewrites every mutable column. The owner is part of the
// match so a concurrent ownership change cannot be overwritten.
func (r *Repository) UpdateTransaction(ctx context.Context, t core.Transaction) error {
	res, err := r.exec(ctx, `
		UPDATE transactions
		SET type = ?, amount = ?, category_id = ?, subcategory_id = ?, payment_method = ?,
		    date = ?, description = ?, updated_at = ?
		WHERE id = ? AND user_id = ?`,
		string(t.Type), core.FormatAmount(t.Amount), t.CategoryID, t.SubcategoryID, t.PaymentMethod,
		t.Date.String(), t.Description, formatTime(t.UpdatedAt), t.ID, t.UserID)
	if err != nil {
		return fmt.Errorf("update transaction %s: %w", t.ID, err)
	}
	if err := requireRow(res); err != nil {
		return fmt.Errorf("update transaction %s: %w", t.ID, err)
	}

	slog.InfoContext(ctx, "Transaction updated", "id", t.ID, "user_id", t.UserID)
	return nil
}

func (r *Repository) DeleteTransaction(ctx context.Context, id, userID string) error {
	res, err := r.exec(ctx, `DELETE FROM transactions WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete transaction %s: %w", id, err)
	}
	if err := requireRow(res); err != nil {
		return fmt.Errorf("delete transaction %s: %w", id, err)
	}

	slog.InfoContext(ctx, "Transaction deleted", "id", id, "user_id", userID)
	return nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (core.Transaction, error) {
	var (
		t                    core.Transaction
		typ                  string
		date                 dateValue
		createdAt, updatedAt timeValue
	)
	err := row.Scan(&t.ID, &t.UserID, &typ, &t.Amount, &t.CategoryID, &t.SubcategoryID,
		&t.PaymentMethod, &date, &t.Description, &createdAt, &updatedAt)
	if err != nil {
		return core.Transaction{}, err
	}
	t.Type = core.TransactionType(typ)
	t.Date = date.Date
	t.CreatedAt = createdAt.Time
	t.UpdatedAt = updatedAt.Time
	return t, nil
}
