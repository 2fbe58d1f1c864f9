package finalize

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS docgen (
  id SERIAL PRIMARY KEY,
  task_description VARCHAR(255),
  metadata_json TEXT,
  datetime VARCHAR(255),
  score DOUBLE PRECISION
);
CREATE INDEX IF NOT EXISTS idx_docgen_task_description ON docgen (task_description);
`

// Record is one row of the docgen table.
type Record struct {
	TaskDescription string
	Metadata        RecordMetadata
	Datetime        string
	Score           float64
}

// RecordMetadata is stored as JSON in metadata_json.
type RecordMetadata struct {
	Agent      string             `json:"agent"`
	Task       string             `json:"task"`
	Result     string             `json:"result"`
	Confidence float64            `json:"confidence"`
	RunID      string             `json:"run_id"`
	Language   string             `json:"language,omitempty"`
	Scores     map[string]float64 `json:"scores,omitempty"`
	Files      []string           `json:"files,omitempty"`
	Stats      Stats              `json:"stats"`
}

// NewRecord builds the row recorded for a finalized document. Rows are keyed
// by task description, so a rerun on the same folder replaces the earlier row.
func NewRecord(doc Document, rep *Report, now time.Time) Record {
	desc := truncateUTF8("docgen: "+doc.Folder, 255)
	var files []string
	if rep != nil {
		files = rep.Files
	}
	return Record{
		TaskDescription: desc,
		Metadata: RecordMetadata{
			Agent:      "docgen",
			Task:       doc.Folder,
			Result:     fmt.Sprintf("%d files written", len(files)),
			Confidence: doc.Evaluation.Mean / 10,
			RunID:      doc.RunID,
			Language:   doc.Language,
			Scores:     doc.Evaluation.Scores,
			Files:      files,
			Stats:      doc.Stats,
		},
		Datetime: now.Format("2006-01-02T15:04:05.000000"),
		Score:    doc.Evaluation.Mean,
	}
}

// PostgresRecorder upserts one row per documented folder into the docgen
// table.
type PostgresRecorder struct {
	db *sql.DB

	schemaOnce sync.Once
	schemaErr  error
}

func NewPostgresRecorder(dsn string) (*PostgresRecorder, error) {
	db, err := sql.Open("pgx", strings.TrimSpace(dsn))
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	return &PostgresRecorder{db: db}, nil
}

func (p *PostgresRecorder) Name() string { return "postgres recorder" }

func (p *PostgresRecorder) Close() error {
	return p.db.Close()
}

func (p *PostgresRecorder) ensureSchema(ctx context.Context) error {
	p.schemaOnce.Do(func() {
		_, p.schemaErr = p.db.ExecContext(ctx, schemaSQL)
	})
	return p.schemaErr
}

func (p *PostgresRecorder) Mirror(ctx context.Context, doc Document, rep *Report) error {
	return p.Save(ctx, NewRecord(doc, rep, time.Now()))
}

// Save updates the row with the record's task description, or inserts one.
func (p *PostgresRecorder) Save(ctx context.Context, rec Record) error {
	if err := p.ensureSchema(ctx); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	meta, err := json.Marshal(rec.Metadata)
	if err != nil {
		return err
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var id int64
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM docgen WHERE task_description = $1 ORDER BY id LIMIT 1 FOR UPDATE`,
		rec.TaskDescription).Scan(&id)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		_, err = tx.ExecContext(ctx,
			`INSERT INTO docgen (task_description, metadata_json, datetime, score) VALUES ($1,$2,$3,$4)`,
			rec.TaskDescription, string(meta), rec.Datetime, rec.Score)
	case err == nil:
		_, err = tx.ExecContext(ctx,
			`UPDATE docgen SET metadata_json=$2, datetime=$3, score=$4 WHERE id=$1`,
			id, string(meta), rec.Datetime, rec.Score)
	}
	if err != nil {
		return err
	}
	return tx.Commit()
}

// Load returns the stored record for a task description.
func (p *PostgresRecorder) Load(ctx context.Context, desc string) (Record, bool, error) {
	if err := p.ensureSchema(ctx); err != nil {
		return Record{}, false, fmt.Errorf("ensure schema: %w", err)
	}
	var rec Record
	var meta string
	err := p.db.QueryRowContext(ctx,
		`SELECT task_description, metadata_json, datetime, score FROM docgen WHERE task_description = $1 ORDER BY id LIMIT 1`,
		desc).Scan(&rec.TaskDescription, &meta, &rec.Datetime, &rec.Score)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, err
	}
	if err := json.Unmarshal([]byte(meta), &rec.Metadata); err != nil {
		return Record{}, false, fmt.Errorf("decoding metadata: %w", err)
	}
	return rec, true, nil
}

// truncateUTF8 cuts s to at most n bytes without splitting a rune.
func truncateUTF8(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
