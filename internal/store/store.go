// Package store is the relational persistence layer backing workflows,
// executions, step executions, and knowledge documents. It uses
// modernc.org/sqlite (the teacher's own pure-Go driver choice) and
// pressly/goose/v3 for schema migrations, the same combination the
// teacher applies to its own application database.
package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/relaykit/orchestrate/internal/model"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Store wraps a sqlite connection pool.
type Store struct {
	db *sql.DB
}

// Open opens (creating if absent) the sqlite database at path and runs
// pending goose migrations.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return nil, fmt.Errorf("failed to set migration dialect: %w", err)
	}
	if err := goose.Up(db, "migrations"); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveWorkflow upserts a Workflow's definition.
func (s *Store) SaveWorkflow(ctx context.Context, wf *model.Workflow) error {
	def, err := wf.Marshal()
	if err != nil {
		return fmt.Errorf("failed to marshal workflow: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO workflows (id, version, name, description, status, definition, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET
			version = excluded.version,
			name = excluded.name,
			description = excluded.description,
			status = excluded.status,
			definition = excluded.definition,
			updated_at = CURRENT_TIMESTAMP
	`, wf.ID, wf.Version, wf.Name, wf.Description, wf.Status, string(def))
	return err
}

// LoadWorkflow fetches a Workflow by ID.
func (s *Store) LoadWorkflow(ctx context.Context, id string) (*model.Workflow, error) {
	var def string
	err := s.db.QueryRowContext(ctx, `SELECT definition FROM workflows WHERE id = ?`, id).Scan(&def)
	if err != nil {
		return nil, fmt.Errorf("failed to load workflow %q: %w", id, err)
	}
	var wf model.Workflow
	if err := json.Unmarshal([]byte(def), &wf); err != nil {
		return nil, fmt.Errorf("failed to unmarshal workflow %q: %w", id, err)
	}
	return &wf, nil
}

// SaveExecution inserts or updates an Execution record.
func (s *Store) SaveExecution(ctx context.Context, exec *model.Execution) error {
	inputVars, err := json.Marshal(exec.InputVariables)
	if err != nil {
		return fmt.Errorf("failed to marshal input variables: %w", err)
	}
	var finalVars []byte
	if exec.FinalVariables != nil {
		finalVars, err = json.Marshal(exec.FinalVariables)
		if err != nil {
			return fmt.Errorf("failed to marshal final variables: %w", err)
		}
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO executions (id, workflow_id, status, started_at, completed_at, input_variables, final_variables, error, approval_step_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			completed_at = excluded.completed_at,
			final_variables = excluded.final_variables,
			error = excluded.error,
			approval_step_id = excluded.approval_step_id
	`, exec.ID, exec.WorkflowID, exec.Status, exec.StartedAt, exec.CompletedAt, string(inputVars), nullableString(finalVars), exec.Error, exec.ApprovalStepID)
	return err
}

// SaveStepExecution inserts or updates one StepExecution record.
func (s *Store) SaveStepExecution(ctx context.Context, se *model.StepExecution) error {
	output, err := json.Marshal(se.Output)
	if err != nil {
		return fmt.Errorf("failed to marshal step output: %w", err)
	}
	logs, err := json.Marshal(se.Logs)
	if err != nil {
		return fmt.Errorf("failed to marshal step logs: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO step_executions (id, execution_id, step_id, status, output, logs, error, started_at, completed_at, attempts)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			output = excluded.output,
			logs = excluded.logs,
			error = excluded.error,
			completed_at = excluded.completed_at,
			attempts = excluded.attempts
	`, se.ID, se.ExecutionID, se.StepID, se.Status, string(output), string(logs), se.Error, se.StartedAt, se.CompletedAt, se.Attempts)
	return err
}

// SaveDocument upserts a knowledge document's full record, including its
// body (the relational store is the only place body is ever persisted;
// the vector index never sees it).
func (s *Store) SaveDocument(ctx context.Context, kb string, doc *model.KnowledgeDocument) error {
	keywords, _ := json.Marshal(doc.Keywords)
	tags, _ := json.Marshal(doc.Tags)
	now := time.Now()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	doc.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (id, knowledge_base, title, domain, category, keywords, tags, summary, body, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			domain = excluded.domain,
			category = excluded.category,
			keywords = excluded.keywords,
			tags = excluded.tags,
			summary = excluded.summary,
			body = excluded.body,
			updated_at = excluded.updated_at
	`, doc.ID, kb, doc.Title, doc.Domain, doc.Category, string(keywords), string(tags), doc.Summary, doc.Body, doc.CreatedAt, doc.UpdatedAt)
	return err
}

func nullableString(b []byte) any {
	if b == nil {
		return nil
	}
	return string(b)
}
