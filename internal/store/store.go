// Package store keeps a PostgreSQL history of finished runs.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"

	"github.com/seenimoa/sentinews/internal/logging"
	"github.com/seenimoa/sentinews/pkg/models"
)

// ErrNotFound is returned when a run id is unknown.
var ErrNotFound = errors.New("store: run not found")

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id          UUID PRIMARY KEY,
	keyword     TEXT        NOT NULL,
	start_date  DATE        NOT NULL,
	end_date    DATE        NOT NULL,
	status      TEXT        NOT NULL,
	error       TEXT        NOT NULL DEFAULT '',
	stages      TEXT[]      NOT NULL,
	stats       JSONB       NOT NULL,
	started_at  TIMESTAMPTZ NOT NULL,
	finished_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS runs_started_at_idx ON runs (started_at DESC);

CREATE TABLE IF NOT EXISTS run_articles (
	run_id      UUID    NOT NULL REFERENCES runs (id) ON DELETE CASCADE,
	position    INTEGER NOT NULL,
	url         TEXT    NOT NULL,
	title       TEXT    NOT NULL,
	description TEXT    NOT NULL DEFAULT '',
	domain      TEXT    NOT NULL DEFAULT '',
	language    TEXT    NOT NULL DEFAULT '',
	seen_at     TIMESTAMPTZ,
	label       TEXT    NOT NULL,
	PRIMARY KEY (run_id, position)
);

CREATE TABLE IF NOT EXISTS run_verdicts (
	run_id   UUID    NOT NULL REFERENCES runs (id) ON DELETE CASCADE,
	position INTEGER NOT NULL,
	url      TEXT    NOT NULL,
	relevant BOOLEAN NOT NULL,
	reason   TEXT    NOT NULL,
	detail   TEXT    NOT NULL DEFAULT '',
	PRIMARY KEY (run_id, position)
);`

// Store records runs in PostgreSQL.
type Store struct {
	db  *sql.DB
	log *slog.Logger
}

// Open connects to dsn and verifies the connection.
func Open(ctx context.Context, dsn string, log *slog.Logger) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	db.SetMaxOpenConns(8)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return &Store{db: db, log: logging.Or(log)}, nil
}

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

// Migrate creates the tables if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("store: migrate: %w", err)
	}
	return nil
}

// SaveRun stores a finished run with its result articles and verdicts.
func (s *Store) SaveRun(ctx context.Context, res *models.PipelineResult) error {
	stats, err := json.Marshal(res.Stats)
	if err != nil {
		return fmt.Errorf("store: marshal stats: %w", err)
	}
	stages := make([]string, len(res.Stages))
	for i, st := range res.Stages {
		stages[i] = string(st)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, keyword, start_date, end_date, status, error, stages, stats, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		res.RunID, res.Keyword, res.StartDate, res.EndDate, string(res.Status), res.Error,
		pq.Array(stages), string(stats), res.StartedAt, res.FinishedAt)
	if err != nil {
		return fmt.Errorf("store: insert run: %w", err)
	}

	for i, a := range res.Articles {
		var seen sql.NullTime
		if !a.SeenAt.IsZero() {
			seen = sql.NullTime{Time: a.SeenAt, Valid: true}
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO run_articles (run_id, position, url, title, description, domain, language, seen_at, label)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			res.RunID, i, a.URL, a.Title, a.Description, a.Domain, a.Language, seen, string(a.Label))
		if err != nil {
			return fmt.Errorf("store: insert article: %w", err)
		}
	}

	for i, v := range res.Verdicts {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO run_verdicts (run_id, position, url, relevant, reason, detail)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			res.RunID, i, v.URL, v.Relevant, string(v.Reason), v.Detail)
		if err != nil {
			return fmt.Errorf("store: insert verdict: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: commit: %w", err)
	}
	s.log.Debug("run recorded", "run_id", res.RunID, "articles", len(res.Articles))
	return nil
}

// GetRun loads a run by id.
func (s *Store) GetRun(ctx context.Context, id string) (*models.PipelineResult, error) {
	res := &models.PipelineResult{RunID: id, Articles: []models.ScoredArticle{}}
	var (
		start, end time.Time
		status     string
		stages     []string
		stats      []byte
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT keyword, start_date, end_date, status, error, stages, stats, started_at, finished_at
		FROM runs WHERE id = $1`, id).
		Scan(&res.Keyword, &start, &end, &status, &res.Error, pq.Array(&stages), &stats, &res.StartedAt, &res.FinishedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "invalid_text_representation" {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("store: get run: %w", err)
	}
	res.StartDate = start.Format(time.DateOnly)
	res.EndDate = end.Format(time.DateOnly)
	res.Status = models.RunStatus(status)
	for _, st := range stages {
		res.Stages = append(res.Stages, models.Stage(st))
	}
	if err := json.Unmarshal(stats, &res.Stats); err != nil {
		return nil, fmt.Errorf("store: decode stats: %w", err)
	}

	if err := s.loadArticles(ctx, res); err != nil {
		return nil, err
	}
	if err := s.loadVerdicts(ctx, res); err != nil {
		return nil, err
	}
	return res, nil
}

func (s *Store) loadArticles(ctx context.Context, res *models.PipelineResult) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT url, title, description, domain, language, seen_at, label
		FROM run_articles WHERE run_id = $1 ORDER BY position`, res.RunID)
	if err != nil {
		return fmt.Errorf("store: query articles: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			a     models.ScoredArticle
			seen  sql.NullTime
			label string
		)
		if err := rows.Scan(&a.URL, &a.Title, &a.Description, &a.Domain, &a.Language, &seen, &label); err != nil {
			return fmt.Errorf("store: scan article: %w", err)
		}
		if seen.Valid {
			a.SeenAt = seen.Time.UTC()
		}
		a.Label = models.SentimentLabel(label)
		res.Articles = append(res.Articles, a)
	}
	return rows.Err()
}

func (s *Store) loadVerdicts(ctx context.Context, res *models.PipelineResult) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT url, relevant, reason, detail
		FROM run_verdicts WHERE run_id = $1 ORDER BY position`, res.RunID)
	if err != nil {
		return fmt.Errorf("store: query verdicts: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			v      models.RelevanceVerdict
			reason string
		)
		if err := rows.Scan(&v.URL, &v.Relevant, &reason, &v.Detail); err != nil {
			return fmt.Errorf("store: scan verdict: %w", err)
		}
		v.Reason = models.RelevanceReason(reason)
		res.Verdicts = append(res.Verdicts, v)
	}
	return rows.Err()
}

// RunSummary is a row of the run list.
type RunSummary struct {
	RunID      string           `json:"run_id"`
	Keyword    string           `json:"keyword"`
	Status     models.RunStatus `json:"status"`
	Negative   int              `json:"negative"`
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt time.Time        `json:"finished_at"`
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, keyword, status, (stats->>'negative')::int, started_at, finished_at
		FROM runs ORDER BY started_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("store: list runs: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var (
			r      RunSummary
			status string
		)
		if err := rows.Scan(&r.RunID, &r.Keyword, &status, &r.Negative, &r.StartedAt, &r.FinishedAt); err != nil {
			return nil, fmt.Errorf("store: scan run: %w", err)
		}
		r.Status = models.RunStatus(status)
		out = append(out, r)
	}
	return out, rows.Err()
}
