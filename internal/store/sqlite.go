package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	errs "tradefolio/internal/errors"
	"tradefolio/internal/models"
)

// SQLiteStore implements DataStore using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite-based data store.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	store := &SQLiteStore{db: db}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// initSchema creates all required tables and indexes.
func (s *SQLiteStore) initSchema() error {
	schema := `
	-- Trades table: raw inputs plus derived fields. Derived columns are
	-- overwritten wholesale on every recalculation save.
	CREATE TABLE IF NOT EXISTS trades (
		id TEXT PRIMARY KEY,
		trade_no INTEGER NOT NULL,
		symbol TEXT NOT NULL,
		direction TEXT NOT NULL,
		entry_date DATETIME,
		entry REAL NOT NULL,
		quantity REAL NOT NULL,
		pyramid1_price REAL, pyramid1_qty REAL, pyramid1_date DATETIME,
		pyramid2_price REAL, pyramid2_qty REAL, pyramid2_date DATETIME,
		stop_loss REAL,
		trailing_sl REAL,
		cmp REAL,
		exit1_price REAL, exit1_qty REAL, exit1_date DATETIME,
		exit2_price REAL, exit2_qty REAL, exit2_date DATETIME,
		exit3_price REAL, exit3_qty REAL, exit3_date DATETIME,
		status TEXT NOT NULL,
		status_overridden INTEGER DEFAULT 0,
		setup TEXT,
		notes TEXT,
		plan_followed INTEGER DEFAULT 0,
		avg_entry REAL, position_size REAL, allocation REAL, sl_percent REAL,
		open_qty REAL, exited_qty REAL, avg_exit REAL, stock_move REAL,
		reward_risk REAL, holding_days INTEGER, realized REAL, realized_pl REAL,
		pf_impact REAL, cum_pf REAL,
		accrual_pl REAL, cash_pl REAL,
		accrual_pf_impact REAL, cash_pf_impact REAL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	-- Capital change events (deposits and withdrawals)
	CREATE TABLE IF NOT EXISTS capital_changes (
		id TEXT PRIMARY KEY,
		type TEXT NOT NULL,
		amount REAL NOT NULL,
		date DATETIME NOT NULL,
		description TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	-- One starting-capital anchor per calendar year
	CREATE TABLE IF NOT EXISTS yearly_capitals (
		year INTEGER PRIMARY KEY,
		amount REAL NOT NULL,
		updated_at DATETIME NOT NULL
	);

	-- Manual starting-capital overrides for specific months
	CREATE TABLE IF NOT EXISTS monthly_overrides (
		year INTEGER NOT NULL,
		month INTEGER NOT NULL,
		amount REAL NOT NULL,
		PRIMARY KEY (year, month)
	);

	CREATE INDEX IF NOT EXISTS idx_trades_symbol ON trades(symbol);
	CREATE INDEX IF NOT EXISTS idx_trades_entry_date ON trades(entry_date);
	CREATE INDEX IF NOT EXISTS idx_capital_changes_date ON capital_changes(date);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ============================================================================
// Trades Methods
// ============================================================================

const tradeColumns = `id, trade_no, symbol, direction, entry_date, entry, quantity,
	pyramid1_price, pyramid1_qty, pyramid1_date,
	pyramid2_price, pyramid2_qty, pyramid2_date,
	stop_loss, trailing_sl, cmp,
	exit1_price, exit1_qty, exit1_date,
	exit2_price, exit2_qty, exit2_date,
	exit3_price, exit3_qty, exit3_date,
	status, status_overridden, setup, notes, plan_followed,
	avg_entry, position_size, allocation, sl_percent,
	open_qty, exited_qty, avg_exit, stock_move,
	reward_risk, holding_days, realized, realized_pl,
	pf_impact, cum_pf, accrual_pl, cash_pl, accrual_pf_impact, cash_pf_impact`

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}

func tradeArgs(t *models.Trade) []interface{} {
	overridden := 0
	if t.Status.Overridden {
		overridden = 1
	}
	planFollowed := 0
	if t.PlanFollowed {
		planFollowed = 1
	}
	return []interface{}{
		t.ID, t.TradeNo, t.Symbol, string(t.Direction), nullTime(t.EntryDate), t.Entry, t.Quantity,
		t.Pyramid1.Price, t.Pyramid1.Qty, nullTime(t.Pyramid1.Date),
		t.Pyramid2.Price, t.Pyramid2.Qty, nullTime(t.Pyramid2.Date),
		t.StopLoss, t.TrailingSL, t.CMP,
		t.Exit1.Price, t.Exit1.Qty, nullTime(t.Exit1.Date),
		t.Exit2.Price, t.Exit2.Qty, nullTime(t.Exit2.Date),
		t.Exit3.Price, t.Exit3.Qty, nullTime(t.Exit3.Date),
		string(t.Status.Value), overridden, t.Setup, t.Notes, planFollowed,
		t.AvgEntry, t.PositionSize, t.Allocation, t.SLPercent,
		t.OpenQty, t.ExitedQty, t.AvgExit, t.StockMove,
		t.RewardRisk, t.HoldingDays, t.Realized, t.RealizedPL,
		t.PFImpact, t.CumPF, t.AccrualPL, t.CashPL, t.AccrualPFImpact, t.CashPFImpact,
	}
}

func scanTrade(row interface{ Scan(...interface{}) error }) (*models.Trade, error) {
	t := &models.Trade{}
	var (
		direction, status        string
		entryDate                sql.NullTime
		p1d, p2d, x1d, x2d, x3d  sql.NullTime
		overridden, planFollowed int
	)
	err := row.Scan(
		&t.ID, &t.TradeNo, &t.Symbol, &direction, &entryDate, &t.Entry, &t.Quantity,
		&t.Pyramid1.Price, &t.Pyramid1.Qty, &p1d,
		&t.Pyramid2.Price, &t.Pyramid2.Qty, &p2d,
		&t.StopLoss, &t.TrailingSL, &t.CMP,
		&t.Exit1.Price, &t.Exit1.Qty, &x1d,
		&t.Exit2.Price, &t.Exit2.Qty, &x2d,
		&t.Exit3.Price, &t.Exit3.Qty, &x3d,
		&status, &overridden, &t.Setup, &t.Notes, &planFollowed,
		&t.AvgEntry, &t.PositionSize, &t.Allocation, &t.SLPercent,
		&t.OpenQty, &t.ExitedQty, &t.AvgExit, &t.StockMove,
		&t.RewardRisk, &t.HoldingDays, &t.Realized, &t.RealizedPL,
		&t.PFImpact, &t.CumPF, &t.AccrualPL, &t.CashPL, &t.AccrualPFImpact, &t.CashPFImpact,
	)
	if err != nil {
		return nil, err
	}
	t.Direction = models.Direction(direction)
	t.EntryDate = entryDate.Time
	t.Pyramid1.Date = p1d.Time
	t.Pyramid2.Date = p2d.Time
	t.Exit1.Date = x1d.Time
	t.Exit2.Date = x2d.Time
	t.Exit3.Date = x3d.Time
	t.Status = models.Derivable[models.TradeStatus]{
		Value:      models.TradeStatus(status),
		Overridden: overridden != 0,
	}
	t.PlanFollowed = planFollowed != 0
	return t, nil
}

const tradePlaceholders = `?, ?, ?, ?, ?, ?, ?,
	?, ?, ?,
	?, ?, ?,
	?, ?, ?,
	?, ?, ?,
	?, ?, ?,
	?, ?, ?,
	?, ?, ?, ?, ?,
	?, ?, ?, ?,
	?, ?, ?, ?,
	?, ?, ?, ?,
	?, ?, ?, ?, ?, ?`

// SaveTrade inserts or replaces a single trade.
func (s *SQLiteStore) SaveTrade(ctx context.Context, trade *models.Trade) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO trades (`+tradeColumns+`) VALUES (`+tradePlaceholders+`)`,
		tradeArgs(trade)...)
	if err != nil {
		return fmt.Errorf("failed to save trade: %w", err)
	}
	return nil
}

// SaveAllTrades replaces the persisted trade set with the given slice.
// Recalculation renumbers trades, so a full rewrite keeps the stored
// numbering consistent with the in-memory state.
func (s *SQLiteStore) SaveAllTrades(ctx context.Context, trades []*models.Trade) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM trades`); err != nil {
		return fmt.Errorf("failed to clear trades: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO trades (`+tradeColumns+`) VALUES (`+tradePlaceholders+`)`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, t := range trades {
		if _, err := stmt.ExecContext(ctx, tradeArgs(t)...); err != nil {
			return fmt.Errorf("failed to insert trade %s: %w", t.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetAllTrades retrieves every trade ordered by trade number.
func (s *SQLiteStore) GetAllTrades(ctx context.Context) ([]*models.Trade, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+tradeColumns+` FROM trades ORDER BY trade_no ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query trades: %w", err)
	}
	defer rows.Close()

	var trades []*models.Trade
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trade: %w", err)
		}
		trades = append(trades, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating trades: %w", err)
	}
	return trades, nil
}

// GetTrade retrieves one trade by id.
func (s *SQLiteStore) GetTrade(ctx context.Context, id string) (*models.Trade, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+tradeColumns+` FROM trades WHERE id = ?`, id)
	t, err := scanTrade(row)
	if err == sql.ErrNoRows {
		return nil, errs.Wrapf(errs.ErrTradeNotFound, "id %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get trade: %w", err)
	}
	return t, nil
}

// DeleteTrade removes a trade by id.
func (s *SQLiteStore) DeleteTrade(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM trades WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete trade: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errs.Wrapf(errs.ErrTradeNotFound, "id %s", id)
	}
	return nil
}

// ============================================================================
// Capital Methods
// ============================================================================

// GetCapitalChanges retrieves all capital change events ordered by date.
func (s *SQLiteStore) GetCapitalChanges(ctx context.Context) ([]models.CapitalChange, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, type, amount, date, description
		FROM capital_changes ORDER BY date ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query capital changes: %w", err)
	}
	defer rows.Close()

	var changes []models.CapitalChange
	for rows.Next() {
		var c models.CapitalChange
		var typ string
		if err := rows.Scan(&c.ID, &typ, &c.Amount, &c.Date, &c.Description); err != nil {
			return nil, fmt.Errorf("failed to scan capital change: %w", err)
		}
		c.Type = models.CapitalChangeType(typ)
		changes = append(changes, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating capital changes: %w", err)
	}
	return changes, nil
}

// SaveCapitalChange inserts or replaces a capital change event.
func (s *SQLiteStore) SaveCapitalChange(ctx context.Context, change models.CapitalChange) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO capital_changes (id, type, amount, date, description)
		VALUES (?, ?, ?, ?, ?)
	`, change.ID, string(change.Type), change.Amount, change.Date, change.Description)
	if err != nil {
		return fmt.Errorf("failed to save capital change: %w", err)
	}
	return nil
}

// DeleteCapitalChange removes a capital change event by id.
func (s *SQLiteStore) DeleteCapitalChange(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM capital_changes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete capital change: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errs.Wrapf(errs.ErrCapitalChangeNotFound, "id %s", id)
	}
	return nil
}

// GetYearlyStartingCapitals retrieves all yearly anchors ordered by year.
func (s *SQLiteStore) GetYearlyStartingCapitals(ctx context.Context) ([]models.YearlyStartingCapital, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT year, amount, updated_at FROM yearly_capitals ORDER BY year ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query yearly capitals: %w", err)
	}
	defer rows.Close()

	var capitals []models.YearlyStartingCapital
	for rows.Next() {
		var y models.YearlyStartingCapital
		if err := rows.Scan(&y.Year, &y.Amount, &y.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan yearly capital: %w", err)
		}
		capitals = append(capitals, y)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating yearly capitals: %w", err)
	}
	return capitals, nil
}

// SetYearlyStartingCapital upserts the anchor for a year. The primary
// key keeps at most one entry per year.
func (s *SQLiteStore) SetYearlyStartingCapital(ctx context.Context, year int, amount float64) error {
	if amount <= 0 {
		return errs.Wrapf(errs.ErrInvalidAmount, "yearly starting capital %g", amount)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO yearly_capitals (year, amount, updated_at)
		VALUES (?, ?, ?)
	`, year, amount, time.Now())
	if err != nil {
		return fmt.Errorf("failed to set yearly capital: %w", err)
	}
	return nil
}

// GetMonthlyOverrides retrieves all monthly overrides.
func (s *SQLiteStore) GetMonthlyOverrides(ctx context.Context) ([]models.MonthlyOverride, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT year, month, amount FROM monthly_overrides ORDER BY year, month
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query monthly overrides: %w", err)
	}
	defer rows.Close()

	var overrides []models.MonthlyOverride
	for rows.Next() {
		var o models.MonthlyOverride
		var month int
		if err := rows.Scan(&o.Year, &month, &o.Amount); err != nil {
			return nil, fmt.Errorf("failed to scan monthly override: %w", err)
		}
		o.Month = time.Month(month)
		overrides = append(overrides, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating monthly overrides: %w", err)
	}
	return overrides, nil
}

// GetMonthlyOverride retrieves the override for one month.
// ErrDataNotFound when the month has no override.
func (s *SQLiteStore) GetMonthlyOverride(ctx context.Context, month time.Month, year int) (*models.MonthlyOverride, error) {
	var o models.MonthlyOverride
	var m int
	err := s.db.QueryRowContext(ctx, `
		SELECT year, month, amount FROM monthly_overrides WHERE year = ? AND month = ?
	`, year, int(month)).Scan(&o.Year, &m, &o.Amount)
	if err == sql.ErrNoRows {
		return nil, errs.Wrapf(errs.ErrDataNotFound, "override %s %d", month, year)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get monthly override: %w", err)
	}
	o.Month = time.Month(m)
	return &o, nil
}

// SetMonthlyOverride upserts a monthly starting-capital override.
func (s *SQLiteStore) SetMonthlyOverride(ctx context.Context, override models.MonthlyOverride) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO monthly_overrides (year, month, amount)
		VALUES (?, ?, ?)
	`, override.Year, int(override.Month), override.Amount)
	if err != nil {
		return fmt.Errorf("failed to set monthly override: %w", err)
	}
	return nil
}

// DeleteMonthlyOverride removes the override for one month.
func (s *SQLiteStore) DeleteMonthlyOverride(ctx context.Context, month time.Month, year int) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM monthly_overrides WHERE year = ? AND month = ?
	`, year, int(month))
	if err != nil {
		return fmt.Errorf("failed to delete monthly override: %w", err)
	}
	return nil
}
