package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/bnema/pacer/internal/domain"
	"github.com/bnema/pacer/internal/ports"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Journal is an append-only log of action records in a local sqlite file.
// Every record carries the id of the process run that wrote it.
type Journal struct {
	db    *sql.DB
	runID string
}

var _ ports.ActionJournal = (*Journal)(nil)

// Open creates the database if needed and applies pending migrations.
func Open(ctx context.Context, path string) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create journal dir: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if err := os.Chmod(path, 0o600); err != nil && !errors.Is(err, os.ErrNotExist) {
		_ = db.Close()
		return nil, fmt.Errorf("chmod journal path: %w", err)
	}
	if err := ApplyMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Journal{db: db, runID: uuid.NewString()}, nil
}

func (j *Journal) RunID() string {
	return j.runID
}

func (j *Journal) Close() error {
	if j == nil || j.db == nil {
		return nil
	}

	return j.db.Close()
}

func (j *Journal) Append(ctx context.Context, username string, record domain.ActionRecord) error {
	if username == "" {
		return errors.New("append action record: username is required")
	}
	if record.Type == "" {
		return errors.New("append action record: action type is required")
	}
	if record.Timestamp.IsZero() {
		return errors.New("append action record: timestamp is required")
	}

	_, err := j.db.ExecContext(ctx, `
INSERT INTO action_records(record_id, username, action_type, occurred_at_ns, success, error, run_id)
VALUES (?, ?, ?, ?, ?, ?, ?)
`, uuid.NewString(), username, string(record.Type), record.Timestamp.UnixNano(), boolToInt(record.Success), record.Error, j.runID)
	if err != nil {
		return fmt.Errorf("append action record: %w", err)
	}

	return nil
}

// Since returns the records strictly after since, oldest first.
func (j *Journal) Since(ctx context.Context, username string, since time.Time) ([]domain.ActionRecord, error) {
	rows, err := j.db.QueryContext(ctx, `
SELECT action_type, occurred_at_ns, success, error
FROM action_records
WHERE username = ? AND occurred_at_ns > ?
ORDER BY occurred_at_ns ASC, rowid ASC
`, username, unixNanos(since))
	if err != nil {
		return nil, fmt.Errorf("query action records: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []domain.ActionRecord
	for rows.Next() {
		var (
			actionType string
			occurredAt int64
			success    int
			message    string
		)
		if err := rows.Scan(&actionType, &occurredAt, &success, &message); err != nil {
			return nil, fmt.Errorf("scan action record: %w", err)
		}
		records = append(records, domain.ActionRecord{
			Type:      domain.ActionType(actionType),
			Timestamp: time.Unix(0, occurredAt).UTC(),
			Success:   success == 1,
			Error:     message,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate action records: %w", err)
	}

	return records, nil
}

// Prune deletes records at or before cutoff and reports how many went.
func (j *Journal) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := j.db.ExecContext(ctx, `DELETE FROM action_records WHERE occurred_at_ns <= ?`, cutoff.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("prune action records: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune action records: %w", err)
	}

	return n, nil
}

func unixNanos(t time.Time) int64 {
	if t.IsZero() {
		return math.MinInt64
	}

	return t.UnixNano()
}

func boolToInt(v bool) int {
	if v {
		return 1
	}

	return 0
}
