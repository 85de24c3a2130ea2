// internal/storage/trade/sql.go
package trade

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/newthinker/zella/internal/core"
)

// Supported SQL drivers.
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

const schema = `
CREATE TABLE IF NOT EXISTS trades (
	user_id    TEXT NOT NULL,
	id         TEXT NOT NULL,
	entry_time TIMESTAMP NOT NULL,
	payload    TEXT NOT NULL,
	updated_at TIMESTAMP NOT NULL,
	PRIMARY KEY (user_id, id)
)`

// SQLStore keeps trades in a single table with the trade serialized as a
// JSON payload.
type SQLStore struct {
	db     *sql.DB
	driver string
	logger *zap.Logger
	now    func() time.Time
}

// OpenSQL opens a database for driver and creates the schema.
func OpenSQL(ctx context.Context, driver, dsn string, logger *zap.Logger) (*SQLStore, error) {
	switch driver {
	case DriverSQLite:
		if !strings.Contains(dsn, "?") {
			dsn += "?_journal_mode=WAL&_busy_timeout=5000"
		}
	case DriverPostgres:
	default:
		return nil, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("unsupported sql driver %q", driver))
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, core.WrapError(core.ErrStoreFailed, fmt.Errorf("failed to open database: %w", err))
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	s := NewSQLStore(db, driver, logger)
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewSQLStore wraps an open database.
func NewSQLStore(db *sql.DB, driver string, logger *zap.Logger) *SQLStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SQLStore{db: db, driver: driver, logger: logger, now: time.Now}
}

// Migrate creates the trades table if needed.
func (s *SQLStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return core.WrapError(core.ErrStoreFailed, fmt.Errorf("failed to initialize schema: %w", err))
	}
	return nil
}

// rebind rewrites ? placeholders to $n for postgres.
func (s *SQLStore) rebind(query string) string {
	if s.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Put upserts t.
func (s *SQLStore) Put(ctx context.Context, userID string, t core.Trade) error {
	if t.ID == "" {
		return core.WrapError(core.ErrInvalidTrade, fmt.Errorf("trade id is empty"))
	}
	payload, err := encode(t)
	if err != nil {
		return core.WrapError(core.ErrStoreFailed, err)
	}
	query := s.rebind(`INSERT INTO trades (user_id, id, entry_time, payload, updated_at) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (user_id, id) DO UPDATE SET entry_time = excluded.entry_time, payload = excluded.payload, updated_at = excluded.updated_at`)
	if _, err := s.db.ExecContext(ctx, query, userID, t.ID, t.EntryTime.UTC(), string(payload), s.now().UTC()); err != nil {
		return core.WrapError(core.ErrStoreFailed, err)
	}
	return nil
}

// Get reads one trade.
func (s *SQLStore) Get(ctx context.Context, userID, id string) (core.Trade, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, s.rebind(`SELECT payload FROM trades WHERE user_id = ? AND id = ?`), userID, id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Trade{}, notFound(id)
	}
	if err != nil {
		return core.Trade{}, core.WrapError(core.ErrStoreFailed, err)
	}
	t, err := decode([]byte(payload))
	if err != nil {
		return core.Trade{}, core.WrapError(core.ErrStoreFailed, fmt.Errorf("decoding trade %s: %w", id, err))
	}
	return t, nil
}

// Delete removes one trade.
func (s *SQLStore) Delete(ctx context.Context, userID, id string) error {
	result, err := s.db.ExecContext(ctx, s.rebind(`DELETE FROM trades WHERE user_id = ? AND id = ?`), userID, id)
	if err != nil {
		return core.WrapError(core.ErrStoreFailed, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return core.WrapError(core.ErrStoreFailed, err)
	}
	if n == 0 {
		return notFound(id)
	}
	return nil
}

// Snapshot reads every trade of a user.
func (s *SQLStore) Snapshot(ctx context.Context, userID string) (map[string]core.Trade, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`SELECT id, payload FROM trades WHERE user_id = ?`), userID)
	if err != nil {
		return nil, core.WrapError(core.ErrStoreFailed, err)
	}
	defer rows.Close()

	out := make(map[string]core.Trade)
	for rows.Next() {
		var id, payload string
		if err := rows.Scan(&id, &payload); err != nil {
			return nil, core.WrapError(core.ErrStoreFailed, err)
		}
		t, err := decode([]byte(payload))
		if err != nil {
			s.logger.Warn("skipping undecodable trade", zap.String("user", userID), zap.String("id", id), zap.Error(err))
			continue
		}
		out[id] = t
	}
	if err := rows.Err(); err != nil {
		return nil, core.WrapError(core.ErrStoreFailed, err)
	}
	return out, nil
}

// Close closes the database.
func (s *SQLStore) Close() error {
	return s.db.Close()
}
