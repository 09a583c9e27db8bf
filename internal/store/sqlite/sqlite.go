// Package sqlite persists demo snapshots to a single SQLite file so a
// generated dataset can be shipped and inspected offline.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"

	"kasirdemo/backend/internal/domain"
	"kasirdemo/backend/internal/store"
)

//go:embed schema.sql
var schemaSQL string

type Store struct {
	db *sql.DB
}

// Open creates or opens the database at path and applies the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	// single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("execute %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) SaveSnapshot(ctx context.Context, snapshot domain.Snapshot) error {
	if err := store.ValidateSnapshot(snapshot); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, table := range []string{"demo_order_lines", "demo_orders", "demo_items", "demo_taxes", "demo_categories", "demo_runs"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	state := snapshot.State
	var seed any
	if snapshot.Seed != nil {
		seed = strconv.FormatUint(*snapshot.Seed, 10)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO demo_runs (run_id, seed, days, generated_at, store_name, currency, locale)
		VALUES (?,?,?,?,?,?,?)
	`, snapshot.RunID, seed, snapshot.Days, snapshot.GeneratedAt.UnixMilli(),
		state.Settings.Name, state.Settings.Currency, state.Settings.Locale); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for i, c := range state.Categories {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO demo_categories (id, position, name, parent_id, color, picture)
			VALUES (?,?,?,?,?,?)
		`, c.ID, i, c.Name, c.ParentID, c.Color, c.Picture); err != nil {
			return fmt.Errorf("insert category %s: %w", c.ID, err)
		}
	}

	for i, t := range state.Taxes {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO demo_taxes (id, position, name, percentage, is_enabled, is_included_in_price, apply_to_custom_amounts, is_deleted)
			VALUES (?,?,?,?,?,?,?,?)
		`, t.ID, i, t.Name, t.Percentage, t.IsEnabled, t.IsIncludedInPrice, t.ApplyToCustomAmounts, t.IsDeleted); err != nil {
			return fmt.Errorf("insert tax %s: %w", t.ID, err)
		}
	}

	for i, item := range state.Items {
		taxes := item.Taxes
		if taxes == nil {
			taxes = []string{}
		}
		encoded, err := json.Marshal(taxes)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO demo_items (id, position, name, barcode, color, parent_id, picture, price, cost_price, taxes)
			VALUES (?,?,?,?,?,?,?,?,?,?)
		`, item.ID, i, item.Name, item.Barcode, item.Color, item.ParentID, item.Picture, item.Price, item.CostPrice, string(encoded)); err != nil {
			return fmt.Errorf("insert item %s: %w", item.ID, err)
		}
	}

	orderStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO demo_orders (
			id, number, status, amount, tax_amount, date_open, closing_reason,
			cash_payment_amount, card_payment_amount, total_payment_amount, cash_change,
			is_discounted, customer_id, date_close
		)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?)
	`)
	if err != nil {
		return err
	}
	defer orderStmt.Close()

	lineStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO demo_order_lines (order_id, line_no, item_id, name, quantity, price, cost_price, amount, tax_amount)
		VALUES (?,?,?,?,?,?,?,?,?)
	`)
	if err != nil {
		return err
	}
	defer lineStmt.Close()

	for _, o := range state.Orders {
		if _, err := orderStmt.ExecContext(ctx,
			o.ID, o.Number, o.Status, o.Amount, o.TaxAmount, o.DateOpen, o.ClosingReason,
			o.CashPaymentAmount, o.CardPaymentAmount, o.TotalPaymentAmount, o.CashChange,
			o.IsDiscounted, o.CustomerID, o.DateClose,
		); err != nil {
			return fmt.Errorf("insert order %s: %w", o.ID, err)
		}
		for n, line := range o.Items {
			if _, err := lineStmt.ExecContext(ctx,
				o.ID, n, line.ItemID, line.Name, line.Quantity, line.Price, line.CostPrice, line.Amount, line.TaxAmount,
			); err != nil {
				return fmt.Errorf("insert order line %s/%d: %w", o.ID, n, err)
			}
		}
	}

	return tx.Commit()
}

func (s *Store) LatestSnapshot(ctx context.Context) (*domain.Snapshot, error) {
	var snapshot domain.Snapshot
	var seed sql.NullString
	var generatedAt int64
	err := s.db.QueryRowContext(ctx, `
		SELECT run_id, seed, days, generated_at, store_name, currency, locale
		FROM demo_runs
		ORDER BY generated_at DESC
		LIMIT 1
	`).Scan(&snapshot.RunID, &seed, &snapshot.Days, &generatedAt,
		&snapshot.State.Settings.Name, &snapshot.State.Settings.Currency, &snapshot.State.Settings.Locale)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	snapshot.GeneratedAt = time.UnixMilli(generatedAt).UTC()
	if seed.Valid {
		v, err := strconv.ParseUint(seed.String, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("stored seed %q: %w", seed.String, err)
		}
		snapshot.Seed = &v
	}

	if snapshot.State.Categories, err = s.listCategories(ctx); err != nil {
		return nil, err
	}
	if snapshot.State.Taxes, err = s.listTaxes(ctx); err != nil {
		return nil, err
	}
	if snapshot.State.Items, err = s.listItems(ctx); err != nil {
		return nil, err
	}
	if snapshot.State.Orders, err = s.queryOrders(ctx, time.Time{}, time.Time{}, 0, "number"); err != nil {
		return nil, err
	}
	return &snapshot, nil
}

func (s *Store) ListOrders(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.Order, error) {
	var runs int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM demo_runs`).Scan(&runs); err != nil {
		return nil, err
	}
	if runs == 0 {
		return nil, store.ErrNotFound
	}
	return s.queryOrders(ctx, from, to, limit, "date_open, number")
}

func (s *Store) listCategories(ctx context.Context) ([]domain.Category, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, parent_id, color, picture FROM demo_categories ORDER BY position`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Category, 0, 16)
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.ParentID, &c.Color, &c.Picture); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) listTaxes(ctx context.Context) ([]domain.Tax, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, percentage, is_enabled, is_included_in_price, apply_to_custom_amounts, is_deleted
		FROM demo_taxes
		ORDER BY position
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Tax, 0, 4)
	for rows.Next() {
		var t domain.Tax
		if err := rows.Scan(&t.ID, &t.Name, &t.Percentage, &t.IsEnabled, &t.IsIncludedInPrice, &t.ApplyToCustomAmounts, &t.IsDeleted); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Store) listItems(ctx context.Context) ([]domain.Item, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, barcode, color, parent_id, picture, price, cost_price, taxes
		FROM demo_items
		ORDER BY position
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Item, 0, 32)
	for rows.Next() {
		var item domain.Item
		var taxes string
		if err := rows.Scan(&item.ID, &item.Name, &item.Barcode, &item.Color, &item.ParentID, &item.Picture,
			&item.Price, &item.CostPrice, &taxes); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(taxes), &item.Taxes); err != nil {
			return nil, fmt.Errorf("item %s taxes: %w", item.ID, err)
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

// queryOrders loads orders with their lines. orderBy is a trusted column list.
func (s *Store) queryOrders(ctx context.Context, from time.Time, to time.Time, limit int, orderBy string) ([]domain.Order, error) {
	where := []string{"1 = 1"}
	args := []any{}
	if !from.IsZero() {
		where = append(where, "date_open >= ?")
		args = append(args, domain.Timestamp(from))
	}
	if !to.IsZero() {
		where = append(where, "date_open < ?")
		args = append(args, domain.Timestamp(to))
	}
	filter := strings.Join(where, " AND ")
	lim := -1
	if limit > 0 {
		lim = limit
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, number, status, amount, tax_amount, date_open, closing_reason,
		       cash_payment_amount, card_payment_amount, total_payment_amount, cash_change,
		       is_discounted, customer_id, date_close
		FROM demo_orders
		WHERE `+filter+`
		ORDER BY `+orderBy+`
		LIMIT ?
	`, append(args, lim)...)
	if err != nil {
		return nil, err
	}

	orders := make([]domain.Order, 0, 256)
	index := map[string]int{}
	for rows.Next() {
		var o domain.Order
		if err := rows.Scan(&o.ID, &o.Number, &o.Status, &o.Amount, &o.TaxAmount, &o.DateOpen, &o.ClosingReason,
			&o.CashPaymentAmount, &o.CardPaymentAmount, &o.TotalPaymentAmount, &o.CashChange,
			&o.IsDiscounted, &o.CustomerID, &o.DateClose); err != nil {
			_ = rows.Close()
			return nil, err
		}
		o.Items = []domain.OrderLine{}
		index[o.ID] = len(orders)
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, err
	}
	_ = rows.Close()

	if len(orders) == 0 {
		return orders, nil
	}

	lineRows, err := s.db.QueryContext(ctx, `
		SELECT l.order_id, l.item_id, l.name, l.quantity, l.price, l.cost_price, l.amount, l.tax_amount
		FROM demo_order_lines l
		JOIN demo_orders o ON o.id = l.order_id
		WHERE `+filter+`
		ORDER BY l.order_id, l.line_no
	`, args...)
	if err != nil {
		return nil, err
	}
	defer lineRows.Close()

	for lineRows.Next() {
		var orderID string
		var line domain.OrderLine
		if err := lineRows.Scan(&orderID, &line.ItemID, &line.Name, &line.Quantity, &line.Price, &line.CostPrice,
			&line.Amount, &line.TaxAmount); err != nil {
			return nil, err
		}
		if idx, ok := index[orderID]; ok {
			orders[idx].Items = append(orders[idx].Items, line)
		}
	}
	return orders, lineRows.Err()
}

func (s *Store) CreateUser(ctx context.Context, user domain.UserAccount) error {
	user.Username = strings.ToLower(strings.TrimSpace(user.Username))
	if user.Username == "" || strings.TrimSpace(user.Password) == "" {
		return store.ErrInvalidUser
	}
	if user.Role == "" {
		user.Role = "cashier"
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO app_users (username, password, role, active, created_at)
		VALUES (?,?,?,?,?)
	`, user.Username, user.Password, user.Role, user.Active, user.CreatedAt.UnixMilli())
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
			return store.ErrInvalidUser
		}
		return err
	}
	return nil
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT username, password, role, active, created_at
		FROM app_users
		ORDER BY username ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]domain.UserAccount, 0, 16)
	for rows.Next() {
		var user domain.UserAccount
		var createdAt int64
		if err := rows.Scan(&user.Username, &user.Password, &user.Role, &user.Active, &createdAt); err != nil {
			return nil, err
		}
		user.CreatedAt = time.UnixMilli(createdAt).UTC()
		users = append(users, user)
	}
	return users, rows.Err()
}

func (s *Store) UpdateUserPassword(ctx context.Context, username string, password string) error {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" || strings.TrimSpace(password) == "" {
		return store.ErrInvalidUser
	}

	res, err := s.db.ExecContext(ctx, `UPDATE app_users SET password = ? WHERE username = ?`, password, username)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}
