package audit

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	// Both SQLite drivers register here; SQLiteConfig.Driver selects one.
	// "sqlite" (modernc, pure Go) is the default, "sqlite3" (mattn, cgo)
	// remains available where cgo builds are acceptable.
	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"
)

// SQLiteConfig contains configuration for the SQLite audit store.
type SQLiteConfig struct {
	// Path is the database file path.
	Path string

	// Driver selects the database/sql driver: "sqlite" (modernc, pure Go)
	// or "sqlite3" (mattn, cgo). Default: "sqlite"
	Driver string

	// MaxOpenConns is the maximum number of open connections.
	// Default: 10
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections.
	// Default: 5
	MaxIdleConns int

	// WALMode enables Write-Ahead Logging for better concurrency.
	// Default: true
	WALMode bool

	// BusyTimeout is how long to wait when the database is locked.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// DefaultSQLiteConfig returns the default SQLite configuration.
func DefaultSQLiteConfig() *SQLiteConfig {
	return &SQLiteConfig{
		Path:         "data/audit.db",
		Driver:       "sqlite",
		MaxOpenConns: 10,
		MaxIdleConns: 5,
		WALMode:      true,
		BusyTimeout:  5 * time.Second,
	}
}

// SQLiteStore implements Store on a SQLite database.
type SQLiteStore struct {
	db     *sql.DB
	config *SQLiteConfig
	logger *slog.Logger
}

// NewSQLiteStore opens the database, applies the schema, and configures the
// connection pool.
func NewSQLiteStore(config *SQLiteConfig) (*SQLiteStore, error) {
	if config == nil {
		config = DefaultSQLiteConfig()
	}
	if config.Driver == "" {
		config.Driver = "sqlite"
	}

	db, err := sql.Open(config.Driver, config.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit database %q: %w", config.Path, err)
	}

	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)

	s := &SQLiteStore{
		db:     db,
		config: config,
		logger: slog.Default().With("component", "audit.sqlite"),
	}

	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

func (s *SQLiteStore) initialize() error {
	if s.config.WALMode {
		if _, err := s.db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			return fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}
	if s.config.BusyTimeout > 0 {
		pragma := fmt.Sprintf("PRAGMA busy_timeout=%d", s.config.BusyTimeout.Milliseconds())
		if _, err := s.db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to set busy timeout: %w", err)
		}
	}

	for _, stmt := range schemaStatements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to apply audit schema: %w", err)
		}
	}

	s.logger.Info("audit store initialized",
		"path", s.config.Path,
		"driver", s.config.Driver,
		"wal_mode", s.config.WALMode,
	)
	return nil
}

// AppendEvaluation stores one rule evaluation record.
func (s *SQLiteStore) AppendEvaluation(ctx context.Context, record *EvaluationRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO rule_evaluations (id, rule_id, rule_name, passed, action, context, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		record.ID, record.RuleID, record.RuleName, boolToInt(record.Passed),
		record.Action, record.Context, record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append evaluation record: %w", err)
	}
	return nil
}

// AppendDecision stores one gateway decision record.
func (s *SQLiteStore) AppendDecision(ctx context.Context, record *DecisionRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO policy_decisions (id, request_id, subject, org, policy_hash, decision, reason, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID, record.RequestID, record.Subject, record.Org,
		record.PolicyHash, record.Decision, record.Reason, record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append decision record: %w", err)
	}
	return nil
}

// RecentEvaluations returns up to limit evaluation records, newest first.
func (s *SQLiteStore) RecentEvaluations(ctx context.Context, limit int) ([]*EvaluationRecord, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, rule_id, rule_name, passed, action, context, created_at
		 FROM rule_evaluations ORDER BY created_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query evaluation records: %w", err)
	}
	defer rows.Close()

	var out []*EvaluationRecord
	for rows.Next() {
		var r EvaluationRecord
		var passed int
		if err := rows.Scan(&r.ID, &r.RuleID, &r.RuleName, &passed, &r.Action, &r.Context, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan evaluation record: %w", err)
		}
		r.Passed = passed != 0
		out = append(out, &r)
	}
	return out, rows.Err()
}

// RecentDecisions returns up to limit decision records, newest first.
func (s *SQLiteStore) RecentDecisions(ctx context.Context, limit int) ([]*DecisionRecord, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, request_id, subject, org, policy_hash, decision, reason, created_at
		 FROM policy_decisions ORDER BY created_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query decision records: %w", err)
	}
	defer rows.Close()

	var out []*DecisionRecord
	for rows.Next() {
		var r DecisionRecord
		if err := rows.Scan(&r.ID, &r.RequestID, &r.Subject, &r.Org, &r.PolicyHash, &r.Decision, &r.Reason, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan decision record: %w", err)
		}
		out = append(out, &r)
	}
	return out, rows.Err()
}

// Prune deletes records older than cutoff and trims each table to its newest
// maxRecords rows when maxRecords > 0. Returns total rows deleted.
func (s *SQLiteStore) Prune(ctx context.Context, cutoff time.Time, maxRecords int) (int64, error) {
	var total int64

	for _, table := range []string{"rule_evaluations", "policy_decisions"} {
		res, err := s.db.ExecContext(ctx,
			fmt.Sprintf("DELETE FROM %s WHERE created_at < ?", table), cutoff)
		if err != nil {
			return total, fmt.Errorf("failed to prune %s by age: %w", table, err)
		}
		if n, err := res.RowsAffected(); err == nil {
			total += n
		}

		if maxRecords > 0 {
			res, err = s.db.ExecContext(ctx, fmt.Sprintf(
				`DELETE FROM %s WHERE id NOT IN (
					SELECT id FROM %s ORDER BY created_at DESC, id LIMIT ?
				)`, table, table), maxRecords)
			if err != nil {
				return total, fmt.Errorf("failed to prune %s by count: %w", table, err)
			}
			if n, err := res.RowsAffected(); err == nil {
				total += n
			}
		}
	}

	return total, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
