package postgres

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

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"kasirdemo/backend/internal/domain"
	"kasirdemo/backend/internal/store"
)

//go:embed schema.sql
var schemaSQL string

type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// SaveSnapshot replaces the stored run with snapshot in a single transaction.
func (s *Store) SaveSnapshot(ctx context.Context, snapshot domain.Snapshot) error {
	if err := store.ValidateSnapshot(snapshot); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
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
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO demo_runs (run_id, seed, days, generated_at, store_name, currency, locale)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, snapshot.RunID, seedValue(snapshot.Seed), snapshot.Days, snapshot.GeneratedAt.UTC(),
		state.Settings.Name, state.Settings.Currency, state.Settings.Locale); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for i, c := range state.Categories {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO demo_categories (id, position, name, parent_id, color, picture)
			VALUES ($1,$2,$3,$4,$5,$6)
		`, c.ID, i, c.Name, c.ParentID, c.Color, c.Picture); err != nil {
			return fmt.Errorf("insert category %s: %w", c.ID, err)
		}
	}

	for i, t := range state.Taxes {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO demo_taxes (id, position, name, percentage, is_enabled, is_included_in_price, apply_to_custom_amounts, is_deleted)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		`, t.ID, i, t.Name, t.Percentage, t.IsEnabled, t.IsIncludedInPrice, t.ApplyToCustomAmounts, t.IsDeleted); err != nil {
			return fmt.Errorf("insert tax %s: %w", t.ID, err)
		}
	}

	for i, item := range state.Items {
		taxes, err := json.Marshal(nonNil(item.Taxes))
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO demo_items (id, position, name, barcode, color, parent_id, picture, price, cost_price, taxes)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		`, item.ID, i, item.Name, item.Barcode, item.Color, item.ParentID, item.Picture, item.Price, item.CostPrice, string(taxes)); err != nil {
			return fmt.Errorf("insert item %s: %w", item.ID, err)
		}
	}

	orderStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO demo_orders (
			id, number, status, amount, tax_amount, date_open, closing_reason,
			cash_payment_amount, card_payment_amount, total_payment_amount, cash_change,
			is_discounted, customer_id, date_close
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
	`)
	if err != nil {
		return err
	}
	defer orderStmt.Close()

	lineStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO demo_order_lines (order_id, line_no, item_id, name, quantity, price, cost_price, amount, tax_amount)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
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
	err := s.db.QueryRowContext(ctx, `
		SELECT run_id, seed, days, generated_at, store_name, currency, locale
		FROM demo_runs
		ORDER BY generated_at DESC
		LIMIT 1
	`).Scan(&snapshot.RunID, &seed, &snapshot.Days, &snapshot.GeneratedAt,
		&snapshot.State.Settings.Name, &snapshot.State.Settings.Currency, &snapshot.State.Settings.Locale)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	snapshot.GeneratedAt = snapshot.GeneratedAt.UTC()
	if snapshot.Seed, err = parseSeed(seed); err != nil {
		return nil, err
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
	if snapshot.State.Orders, err = s.queryOrders(ctx, nil, nil, nil, "number"); err != nil {
		return nil, err
	}
	return &snapshot, nil
}

func (s *Store) ListOrders(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.Order, error) {
	var exists bool
	if err := s.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM demo_runs)`).Scan(&exists); err != nil {
		return nil, err
	}
	if !exists {
		return nil, store.ErrNotFound
	}

	var fromMS, toMS, lim any
	if !from.IsZero() {
		fromMS = domain.Timestamp(from)
	}
	if !to.IsZero() {
		toMS = domain.Timestamp(to)
	}
	if limit > 0 {
		lim = limit
	}
	return s.queryOrders(ctx, fromMS, toMS, lim, "date_open, number")
}

func (s *Store) listCategories(ctx context.Context) ([]domain.Category, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, parent_id, color, picture
		FROM demo_categories
		ORDER BY position
	`)
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

// queryOrders loads orders and their lines. Nil bounds and limit are
// unrestricted; orderBy is a trusted column list.
func (s *Store) queryOrders(ctx context.Context, fromMS any, toMS any, limit any, orderBy string) ([]domain.Order, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, number, status, amount, tax_amount, date_open, closing_reason,
		       cash_payment_amount, card_payment_amount, total_payment_amount, cash_change,
		       is_discounted, customer_id, date_close
		FROM demo_orders
		WHERE ($1::bigint IS NULL OR date_open >= $1::bigint)
		  AND ($2::bigint IS NULL OR date_open < $2::bigint)
		ORDER BY `+orderBy+`
		LIMIT $3
	`, fromMS, toMS, limit)
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

	ids := make([]string, 0, len(orders))
	for _, o := range orders {
		ids = append(ids, o.ID)
	}
	lineRows, err := s.db.QueryContext(ctx, `
		SELECT order_id, item_id, name, quantity, price, cost_price, amount, tax_amount
		FROM demo_order_lines
		WHERE order_id = ANY($1)
		ORDER BY order_id, line_no
	`, ids)
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
		idx, ok := index[orderID]
		if !ok {
			continue
		}
		orders[idx].Items = append(orders[idx].Items, line)
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
		INSERT INTO app_users (username, password, role, active, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,now())
	`, user.Username, user.Password, user.Role, user.Active, user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
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
		if err := rows.Scan(&user.Username, &user.Password, &user.Role, &user.Active, &user.CreatedAt); err != nil {
			return nil, err
		}
		user.CreatedAt = user.CreatedAt.UTC()
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

func (s *Store) UpdateUserPassword(ctx context.Context, username string, password string) error {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" || strings.TrimSpace(password) == "" {
		return store.ErrInvalidUser
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE app_users
		SET password = $2, updated_at = now()
		WHERE username = $1
	`, username, password)
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

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func seedValue(seed *uint64) any {
	if seed == nil {
		return nil
	}
	return strconv.FormatUint(*seed, 10)
}

func parseSeed(val sql.NullString) (*uint64, error) {
	if !val.Valid {
		return nil, nil
	}
	seed, err := strconv.ParseUint(val.String, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("stored seed %q: %w", val.String, err)
	}
	return &seed, nil
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
