package snapshot

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"lumine/internal/dataset/models"
	"lumine/pkg/platform/sentinel"
	txcontext "lumine/pkg/platform/tx"
)

// DefaultBatchSize bounds the rows per INSERT statement during ReplaceAll.
const DefaultBatchSize = 300

// PostgresStore persists individuals and records as JSONB payloads plus the
// handful of indexed columns the queries need.
type PostgresStore struct {
	db        *sql.DB
	batchSize int
}

type PostgresOption func(*PostgresStore)

func WithBatchSize(n int) PostgresOption {
	return func(s *PostgresStore) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

func NewPostgres(db *sql.DB, opts ...PostgresOption) *PostgresStore {
	s := &PostgresStore{db: db, batchSize: DefaultBatchSize}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type dbExecutor interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *PostgresStore) ListIndividuals(ctx context.Context) ([]models.Individual, error) {
	rows, err := s.execer(ctx).QueryContext(ctx, `SELECT payload FROM individuals ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list individuals: %w", err)
	}
	defer rows.Close()

	var out []models.Individual
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan individual: %w", err)
		}
		var ind models.Individual
		if err := json.Unmarshal(payload, &ind); err != nil {
			return nil, fmt.Errorf("decode individual: %w", err)
		}
		out = append(out, ind)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate individuals: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) ListRecords(ctx context.Context) ([]models.Record, error) {
	rows, err := s.execer(ctx).QueryContext(ctx, `SELECT payload FROM records ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	var out []models.Record
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		var rec models.Record
		if err := json.Unmarshal(payload, &rec); err != nil {
			return nil, fmt.Errorf("decode record: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Counts(ctx context.Context) (models.Counts, error) {
	var c models.Counts
	err := s.execer(ctx).QueryRowContext(ctx, `
		SELECT (SELECT COUNT(*) FROM individuals), (SELECT COUNT(*) FROM records)
	`).Scan(&c.Individuals, &c.Records)
	if err != nil {
		return models.Counts{}, fmt.Errorf("count dataset: %w", err)
	}
	return c, nil
}

func (s *PostgresStore) FindIndividual(ctx context.Context, id string) (models.Individual, error) {
	var payload []byte
	err := s.execer(ctx).QueryRowContext(ctx, `SELECT payload FROM individuals WHERE id = $1`, id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Individual{}, sentinel.ErrNotFound
	}
	if err != nil {
		return models.Individual{}, fmt.Errorf("find individual: %w", err)
	}
	var ind models.Individual
	if err := json.Unmarshal(payload, &ind); err != nil {
		return models.Individual{}, fmt.Errorf("decode individual: %w", err)
	}
	return ind, nil
}

func (s *PostgresStore) FindRecord(ctx context.Context, id string) (models.Record, error) {
	var payload []byte
	err := s.execer(ctx).QueryRowContext(ctx, `SELECT payload FROM records WHERE id = $1`, id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Record{}, sentinel.ErrNotFound
	}
	if err != nil {
		return models.Record{}, fmt.Errorf("find record: %w", err)
	}
	var rec models.Record
	if err := json.Unmarshal(payload, &rec); err != nil {
		return models.Record{}, fmt.Errorf("decode record: %w", err)
	}
	return rec, nil
}

func (s *PostgresStore) UpsertIndividual(ctx context.Context, ind models.Individual) error {
	payload, err := json.Marshal(ind)
	if err != nil {
		return fmt.Errorf("encode individual: %w", err)
	}
	_, err = s.execer(ctx).ExecContext(ctx, `
		INSERT INTO individuals (id, public_id, status, payload, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			public_id = EXCLUDED.public_id,
			status = EXCLUDED.status,
			payload = EXCLUDED.payload,
			updated_at = EXCLUDED.updated_at
	`, ind.ID, ind.PublicID, string(ind.Status), payload, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("upsert individual: %w", err)
	}
	return nil
}

// InsertRecord returns sentinel.ErrConflict when the id already exists.
func (s *PostgresStore) InsertRecord(ctx context.Context, rec models.Record) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	res, err := s.execer(ctx).ExecContext(ctx, `
		INSERT INTO records (id, child_internal_id, record_date, payload)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO NOTHING
	`, rec.ID, rec.ChildInternalID, rec.Date, payload)
	if err != nil {
		return fmt.Errorf("insert record: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sentinel.ErrConflict
	}
	return nil
}

// ReplaceAll clears both tables and rewrites them in batches. It must run inside
// the caller's transaction; without one it opens its own so a failure part way
// never leaves the tables empty.
func (s *PostgresStore) ReplaceAll(ctx context.Context, individuals []models.Individual, records []models.Record) error {
	if _, ok := txcontext.From(ctx); !ok {
		sqlTx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
		if err != nil {
			return fmt.Errorf("begin replace: %w", err)
		}
		defer func() { _ = sqlTx.Rollback() }()
		if err := s.ReplaceAll(txcontext.WithTx(ctx, sqlTx), individuals, records); err != nil {
			return err
		}
		return sqlTx.Commit()
	}

	exec := s.execer(ctx)
	if _, err := exec.ExecContext(ctx, `DELETE FROM records`); err != nil {
		return fmt.Errorf("clear records: %w", err)
	}
	if _, err := exec.ExecContext(ctx, `DELETE FROM individuals`); err != nil {
		return fmt.Errorf("clear individuals: %w", err)
	}

	now := time.Now().UTC()
	individualRows := make([][]any, 0, len(individuals))
	for _, ind := range individuals {
		payload, err := json.Marshal(ind)
		if err != nil {
			return fmt.Errorf("encode individual %s: %w", ind.ID, err)
		}
		individualRows = append(individualRows, []any{ind.ID, ind.PublicID, string(ind.Status), payload, now})
	}
	if err := s.insertBatches(ctx, exec, "individuals", []string{"id", "public_id", "status", "payload", "updated_at"}, individualRows); err != nil {
		return err
	}

	recordRows := make([][]any, 0, len(records))
	for _, rec := range records {
		payload, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("encode record %s: %w", rec.ID, err)
		}
		recordRows = append(recordRows, []any{rec.ID, rec.ChildInternalID, rec.Date, payload, now})
	}
	return s.insertBatches(ctx, exec, "records", []string{"id", "child_internal_id", "record_date", "payload", "created_at"}, recordRows)
}

func (s *PostgresStore) insertBatches(ctx context.Context, exec dbExecutor, table string, columns []string, rows [][]any) error {
	for start := 0; start < len(rows); start += s.batchSize {
		end := min(start+s.batchSize, len(rows))
		query, args := buildInsert(table, columns, rows[start:end])
		if _, err := exec.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("insert %s batch at %d: %w", table, start, err)
		}
	}
	return nil
}

func buildInsert(table string, columns []string, rows [][]any) (string, []any) {
	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s (%s) VALUES ", table, strings.Join(columns, ", "))
	args := make([]any, 0, len(rows)*len(columns))
	for i, row := range rows {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteByte('(')
		for j := range row {
			if j > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "$%d", len(args)+1)
			args = append(args, row[j])
		}
		b.WriteByte(')')
	}
	return b.String(), args
}
