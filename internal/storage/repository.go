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
	"time"

	"github.com/shopspring/decimal"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"ledger/internal/core"
	"ledger/internal/ports"
)

const (
	dateLayout      = "2006-01-02"
	timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"
)

// dbtx is satisfied by both *sql.DB and *sql.Tx.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type SQLiteRepository struct {
	db *sql.DB
	q  dbtx
	tx *sql.Tx // set on repositories bound to a transaction
}

var _ ports.Repository = (*SQLiteRepository)(nil)

// DSN builds the connection string used for both the main connection and
// migrations. Write transactions take the database lock up front so a
// check-then-write sequence cannot interleave with another writer.
func DSN(dbPath string) string {
	return "file:" + dbPath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_txlock=immediate"
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	dsn := DSN(dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	// Run migrations
	if err := RunMigrations(dsn); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db, q: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.tx != nil {
		return nil
	}
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// WithTx implements ports.Repository. Nested calls reuse the outer transaction.
func (r *SQLiteRepository) WithTx(ctx context.Context, fn func(ports.Repository) error) error {
	if r.tx != nil {
		return fn(r)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(&SQLiteRepository{db: r.db, q: tx, tx: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			slog.ErrorContext(ctx, "Failed to roll back transaction", "error", rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Categories

const categoryColumns = `id, owner_id, name, description, color, type, priority,
	limit_amount, limit_currency, active, created_at, updated_at`

func (r *SQLiteRepository) CreateCategory(ctx context.Context, c core.Category) error {
	amount, currency := nullableMoney(c.Limit)
	_, err := r.q.ExecContext(ctx, `INSERT INTO categories (`+categoryColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.OwnerID, c.Name, c.Description, c.Color, string(c.Type), string(c.Priority),
		amount, currency, c.Active, formatTimestamp(c.CreatedAt), formatTimestamp(c.UpdatedAt))
	if isUniqueViolation(err) {
		return &core.ConflictError{Entity: "category", Key: c.ID}
	}
	if err != nil {
		return fmt.Errorf("create category: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetCategory(ctx context.Context, ownerID, id string) (core.Category, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+categoryColumns+` FROM categories
		WHERE owner_id = ? AND id = ?`, ownerID, id)
	c, err := scanCategory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Category{}, &core.NotFoundError{Entity: "category", ID: id}
	}
	if err != nil {
		return core.Category{}, fmt.Errorf("get category %s: %w", id, err)
	}
	return c, nil
}

func (r *SQLiteRepository) ListCategories(ctx context.Context, ownerID string, f ports.CategoryFilter) ([]core.Category, error) {
	query := `SELECT ` + categoryColumns + ` FROM categories WHERE owner_id = ?`
	args := []any{ownerID}
	if f.Type != "" {
		query += ` AND type = ?`
		args = append(args, string(f.Type))
	}
	if f.Priority != "" {
		query += ` AND priority = ?`
		args = append(args, string(f.Priority))
	}
	if f.ActiveOnly {
		query += ` AND active = 1`
	}
	query += ` ORDER BY name, id`

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var out []core.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) UpdateCategory(ctx context.Context, c core.Category) error {
	amount, currency := nullableMoney(c.Limit)
	res, err := r.q.ExecContext(ctx, `UPDATE categories
		SET name = ?, description = ?, color = ?, type = ?, priority = ?,
			limit_amount = ?, limit_currency = ?, active = ?, updated_at = ?
		WHERE owner_id = ? AND id = ?`,
		c.Name, c.Description, c.Color, string(c.Type), string(c.Priority),
		amount, currency, c.Active, formatTimestamp(c.UpdatedAt), c.OwnerID, c.ID)
	if err != nil {
		return fmt.Errorf("update category: %w", err)
	}
	return requireAffected(res, "category", c.ID)
}

// Transactions

const transactionColumns = `id, owner_id, category_id, description, amount, currency,
	type, date, notes, created_at, updated_at`

func (r *SQLiteRepository) CreateTransaction(ctx context.Context, t core.Transaction) error {
	_, err := r.q.ExecContext(ctx, `INSERT INTO transactions (`+transactionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.OwnerID, t.CategoryID, t.Description, t.Value.Amount.StringFixed(core.Precision), t.Value.Currency,
		string(t.Type), t.Date.Format(dateLayout), t.Notes, formatTimestamp(t.CreatedAt), formatTimestamp(t.UpdatedAt))
	if isUniqueViolation(err) {
		return &core.ConflictError{Entity: "transaction", Key: t.ID}
	}
	if err != nil {
		return fmt.Errorf("create transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction saved to SQLite",
		"id", t.ID,
		"owner_id", t.OwnerID,
		"category_id", t.CategoryID,
		"amount", t.Value.String(),
		"date", t.Date.Format(dateLayout))
	return nil
}

func (r *SQLiteRepository) GetTransaction(ctx context.Context, ownerID, id string) (core.Transaction, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+transactionColumns+` FROM transactions
		WHERE owner_id = ? AND id = ?`, ownerID, id)
	t, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, &core.NotFoundError{Entity: "transaction", ID: id}
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction %s: %w", id, err)
	}
	return t, nil
}

func (r *SQLiteRepository) ListTransactions(ctx context.Context, ownerID string, f ports.TransactionFilter) ([]core.Transaction, error) {
	var (
		conds = []string{"owner_id = ?"}
		args  = []any{ownerID}
	)
	if f.CategoryID != "" {
		conds = append(conds, "category_id = ?")
		args = append(args, f.CategoryID)
	}
	if f.Type != "" {
		conds = append(conds, "type = ?")
		args = append(args, string(f.Type))
	}
	if !f.From.IsZero() {
		conds = append(conds, "date >= ?")
		args = append(args, f.From.Format(dateLayout))
	}
	if !f.To.IsZero() {
		conds = append(conds, "date <= ?")
		args = append(args, f.To.Format(dateLayout))
	}
	if f.ExcludeID != "" {
		conds = append(conds, "id <> ?")
		args = append(args, f.ExcludeID)
	}

	rows, err := r.q.QueryContext(ctx, `SELECT `+transactionColumns+` FROM transactions
		WHERE `+strings.Join(conds, " AND ")+` ORDER BY date, created_at, id`, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) UpdateTransaction(ctx context.Context, t core.Transaction) error {
	res, err := r.q.ExecContext(ctx, `UPDATE transactions
		SET category_id = ?, description = ?, amount = ?, currency = ?, type = ?,
			date = ?, notes = ?, updated_at = ?
		WHERE owner_id = ? AND id = ?`,
		t.CategoryID, t.Description, t.Value.Amount.StringFixed(core.Precision), t.Value.Currency, string(t.Type),
		t.Date.Format(dateLayout), t.Notes, formatTimestamp(t.UpdatedAt), t.OwnerID, t.ID)
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	return requireAffected(res, "transaction", t.ID)
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, ownerID, id string) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM transactions WHERE owner_id = ? AND id = ?`, ownerID, id)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	return requireAffected(res, "transaction", id)
}

// ReassignTransactions moves every matching row with a single UPDATE.
func (r *SQLiteRepository) ReassignTransactions(ctx context.Context, ownerID, fromID, toID string, at time.Time) (int64, error) {
	res, err := r.q.ExecContext(ctx, `UPDATE transactions SET category_id = ?, updated_at = ?
		WHERE owner_id = ? AND category_id = ?`, toID, formatTimestamp(at), ownerID, fromID)
	if err != nil {
		return 0, fmt.Errorf("reassign transactions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("reassign transactions: %w", err)
	}

	slog.InfoContext(ctx, "Transactions reassigned in SQLite",
		"owner_id", ownerID,
		"from_category", fromID,
		"to_category", toID,
		"moved", n)
	return n, nil
}

// Budgets

const budgetColumns = `id, owner_id, year_month, amount, currency, created_at, updated_at`

func (r *SQLiteRepository) CreateBudget(ctx context.Context, b core.MonthlyBudget) error {
	_, err := r.q.ExecContext(ctx, `INSERT INTO monthly_budgets (`+budgetColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.OwnerID, b.Period.String(), b.Value.Amount.StringFixed(core.Precision), b.Value.Currency,
		formatTimestamp(b.CreatedAt), formatTimestamp(b.UpdatedAt))
	if isUniqueViolation(err) {
		return &core.ConflictError{Entity: "monthly budget", Key: b.Period.String()}
	}
	if err != nil {
		return fmt.Errorf("create budget: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetBudget(ctx context.Context, ownerID string, period core.YearMonth) (core.MonthlyBudget, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+budgetColumns+` FROM monthly_budgets
		WHERE owner_id = ? AND year_month = ?`, ownerID, period.String())
	b, err := scanBudget(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.MonthlyBudget{}, &core.NotFoundError{Entity: "monthly budget", ID: period.String()}
	}
	if err != nil {
		return core.MonthlyBudget{}, fmt.Errorf("get budget %s: %w", period, err)
	}
	return b, nil
}

func (r *SQLiteRepository) ListBudgets(ctx context.Context, ownerID string) ([]core.MonthlyBudget, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT `+budgetColumns+` FROM monthly_budgets
		WHERE owner_id = ? ORDER BY year_month`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	defer rows.Close()

	var out []core.MonthlyBudget
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) UpdateBudget(ctx context.Context, b core.MonthlyBudget) error {
	res, err := r.q.ExecContext(ctx, `UPDATE monthly_budgets SET amount = ?, currency = ?, updated_at = ?
		WHERE owner_id = ? AND id = ?`,
		b.Value.Amount.StringFixed(core.Precision), b.Value.Currency, formatTimestamp(b.UpdatedAt), b.OwnerID, b.ID)
	if err != nil {
		return fmt.Errorf("update budget: %w", err)
	}
	return requireAffected(res, "monthly budget", b.ID)
}

// Closures

const closureColumns = `id, owner_id, year_month, closed_at, status,
	total_income, total_expense, net_balance, currency, notes`

func (r *SQLiteRepository) CreateClosure(ctx context.Context, c core.MonthlyClosure) error {
	_, err := r.q.ExecContext(ctx, `INSERT INTO monthly_closures (`+closureColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.OwnerID, c.Period.String(), formatTimestamp(c.ClosedAt), string(c.Status),
		c.TotalIncome.Amount.StringFixed(core.Precision),
		c.TotalExpense.Amount.StringFixed(core.Precision),
		c.NetBalance.Amount.StringFixed(core.Precision),
		c.TotalIncome.Currency, c.Notes)
	if isUniqueViolation(err) {
		return &core.ConflictError{Entity: "monthly closure", Key: c.Period.String()}
	}
	if err != nil {
		return fmt.Errorf("create closure: %w", err)
	}

	slog.InfoContext(ctx, "Monthly closure saved to SQLite",
		"id", c.ID,
		"owner_id", c.OwnerID,
		"period", c.Period.String(),
		"net_balance", c.NetBalance.String())
	return nil
}

func (r *SQLiteRepository) LatestClosure(ctx context.Context, ownerID string, period core.YearMonth) (core.MonthlyClosure, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+closureColumns+` FROM monthly_closures
		WHERE owner_id = ? AND year_month = ?
		ORDER BY closed_at DESC, rowid DESC LIMIT 1`, ownerID, period.String())
	c, err := scanClosure(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.MonthlyClosure{}, &core.NotFoundError{Entity: "monthly closure", ID: period.String()}
	}
	if err != nil {
		return core.MonthlyClosure{}, fmt.Errorf("get closure %s: %w", period, err)
	}
	return c, nil
}

func (r *SQLiteRepository) ListClosures(ctx context.Context, ownerID string) ([]core.MonthlyClosure, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT `+closureColumns+` FROM monthly_closures
		WHERE owner_id = ? ORDER BY year_month, closed_at, rowid`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list closures: %w", err)
	}
	defer rows.Close()

	var out []core.MonthlyClosure
	for rows.Next() {
		c, err := scanClosure(rows)
		if err != nil {
			return nil, fmt.Errorf("scan closure: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) UpdateClosure(ctx context.Context, c core.MonthlyClosure) error {
	res, err := r.q.ExecContext(ctx, `UPDATE monthly_closures SET status = ?, notes = ?
		WHERE owner_id = ? AND id = ?`, string(c.Status), c.Notes, c.OwnerID, c.ID)
	if isUniqueViolation(err) {
		return &core.ConflictError{Entity: "monthly closure", Key: c.Period.String()}
	}
	if err != nil {
		return fmt.Errorf("update closure: %w", err)
	}
	return requireAffected(res, "monthly closure", c.ID)
}

// Audit log

func (r *SQLiteRepository) AppendAudit(ctx context.Context, e core.AuditEntry) error {
	_, err := r.q.ExecContext(ctx, `INSERT INTO audit_log
		(id, owner_id, event_type, period, entity_id, payload, occurred_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.OwnerID, e.EventType, e.Period, e.EntityID, e.Payload, formatTimestamp(e.OccurredAt))
	if isUniqueViolation(err) {
		// Redelivered message; the entry is already recorded.
		return nil
	}
	if err != nil {
		return fmt.Errorf("append audit entry: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) ListAudit(ctx context.Context, ownerID string, limit int) ([]core.AuditEntry, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := r.q.QueryContext(ctx, `SELECT id, owner_id, event_type, period, entity_id, payload, occurred_at
		FROM audit_log WHERE owner_id = ? ORDER BY occurred_at DESC, rowid DESC LIMIT ?`, ownerID, limit)
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	defer rows.Close()

	var out []core.AuditEntry
	for rows.Next() {
		var (
			e          core.AuditEntry
			occurredAt string
		)
		if err := rows.Scan(&e.ID, &e.OwnerID, &e.EventType, &e.Period, &e.EntityID, &e.Payload, &occurredAt); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		if e.OccurredAt, err = parseTimestamp(occurredAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) ListOwners(ctx context.Context) ([]string, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT owner_id FROM categories
		UNION SELECT owner_id FROM transactions ORDER BY 1`)
	if err != nil {
		return nil, fmt.Errorf("list owners: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan owner: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// Row mapping

type scanner interface {
	Scan(dest ...any) error
}

func scanCategory(s scanner) (core.Category, error) {
	var (
		c                    core.Category
		typ, priority        string
		limitAmount, limitCC sql.NullString
		createdAt, updatedAt string
	)
	if err := s.Scan(&c.ID, &c.OwnerID, &c.Name, &c.Description, &c.Color, &typ, &priority,
		&limitAmount, &limitCC, &c.Active, &createdAt, &updatedAt); err != nil {
		return core.Category{}, err
	}
	c.Type = core.TransactionType(typ)
	c.Priority = core.Priority(priority)
	if limitAmount.Valid {
		limit, err := parseMoney(limitAmount.String, limitCC.String)
		if err != nil {
			return core.Category{}, err
		}
		c.Limit = &limit
	}
	var err error
	if c.CreatedAt, err = parseTimestamp(createdAt); err != nil {
		return core.Category{}, err
	}
	if c.UpdatedAt, err = parseTimestamp(updatedAt); err != nil {
		return core.Category{}, err
	}
	return c, nil
}

func scanTransaction(s scanner) (core.Transaction, error) {
	var (
		t                           core.Transaction
		amount, currency, typ, date string
		createdAt, updatedAt        string
	)
	if err := s.Scan(&t.ID, &t.OwnerID, &t.CategoryID, &t.Description, &amount, &currency,
		&typ, &date, &t.Notes, &createdAt, &updatedAt); err != nil {
		return core.Transaction{}, err
	}
	var err error
	if t.Value, err = parseMoney(amount, currency); err != nil {
		return core.Transaction{}, err
	}
	t.Type = core.TransactionType(typ)
	if t.Date, err = time.Parse(dateLayout, date); err != nil {
		return core.Transaction{}, fmt.Errorf("parse date %q: %w", date, err)
	}
	if t.CreatedAt, err = parseTimestamp(createdAt); err != nil {
		return core.Transaction{}, err
	}
	if t.UpdatedAt, err = parseTimestamp(updatedAt); err != nil {
		return core.Transaction{}, err
	}
	return t, nil
}

func scanBudget(s scanner) (core.MonthlyBudget, error) {
	var (
		b                        core.MonthlyBudget
		period, amount, currency string
		createdAt, updatedAt     string
	)
	if err := s.Scan(&b.ID, &b.OwnerID, &period, &amount, &currency, &createdAt, &updatedAt); err != nil {
		return core.MonthlyBudget{}, err
	}
	var err error
	if b.Period, err = core.ParseYearMonth(period); err != nil {
		return core.MonthlyBudget{}, err
	}
	if b.Value, err = parseMoney(amount, currency); err != nil {
		return core.MonthlyBudget{}, err
	}
	if b.CreatedAt, err = parseTimestamp(createdAt); err != nil {
		return core.MonthlyBudget{}, err
	}
	if b.UpdatedAt, err = parseTimestamp(updatedAt); err != nil {
		return core.MonthlyBudget{}, err
	}
	return b, nil
}

func scanClosure(s scanner) (core.MonthlyClosure, error) {
	var (
		c                                  core.MonthlyClosure
		period, closedAt, status, currency string
		income, expense, net               string
	)
	if err := s.Scan(&c.ID, &c.OwnerID, &period, &closedAt, &status,
		&income, &expense, &net, &currency, &c.Notes); err != nil {
		return core.MonthlyClosure{}, err
	}
	var err error
	if c.Period, err = core.ParseYearMonth(period); err != nil {
		return core.MonthlyClosure{}, err
	}
	if c.ClosedAt, err = parseTimestamp(closedAt); err != nil {
		return core.MonthlyClosure{}, err
	}
	c.Status = core.ClosureStatus(status)
	if c.TotalIncome, err = parseMoney(income, currency); err != nil {
		return core.MonthlyClosure{}, err
	}
	if c.TotalExpense, err = parseMoney(expense, currency); err != nil {
		return core.MonthlyClosure{}, err
	}
	if c.NetBalance, err = parseMoney(net, currency); err != nil {
		return core.MonthlyClosure{}, err
	}
	return c, nil
}

func parseMoney(amount, currency string) (core.Money, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return core.Money{}, fmt.Errorf("parse amount %q: %w", amount, err)
	}
	return core.NewMoney(d, currency)
}

func nullableMoney(m *core.Money) (amount, currency sql.NullString) {
	if m == nil {
		return sql.NullString{}, sql.NullString{}
	}
	return sql.NullString{String: m.Amount.StringFixed(core.Precision), Valid: true},
		sql.NullString{String: m.Currency, Valid: true}
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timestampLayout)
}

func parseTimestamp(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(timestampLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}

func requireAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return &core.NotFoundError{Entity: entity, ID: id}
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	code := sqliteErr.Code()
	return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
}
