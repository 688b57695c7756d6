// Package storage persists the service's durable state: namespace
// approval, event trigger correlation, and terminal task results.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/forgebot/forgebot/internal/allowlist"
	"github.com/forgebot/forgebot/internal/events"
	"github.com/forgebot/forgebot/internal/handlers"
)

// NamespaceEntry is one allowlist row.
type NamespaceEntry struct {
	Namespace string    `db:"namespace"`
	Status    string    `db:"status"`
	UpdatedAt time.Time `db:"updated_at"`
}

// TaskResult is one persisted terminal task outcome.
type TaskResult struct {
	ID         int64     `db:"id"`
	Handler    string    `db:"handler"`
	JobType    string    `db:"job_type"`
	TriggerKey string    `db:"trigger_key"`
	Event      []byte    `db:"event"`
	Success    bool      `db:"success"`
	Message    string    `db:"message"`
	Details    []byte    `db:"details"`
	Attempt    int       `db:"attempt"`
	CreatedAt  time.Time `db:"created_at"`
}

// EventData decodes the persisted event snapshot.
func (r *TaskResult) EventData() (events.EventData, error) {
	var data events.EventData
	err := json.Unmarshal(r.Event, &data)
	return data, err
}

// Store defines the interface for all database operations.
type Store interface {
	GetNamespaceStatus(ctx context.Context, namespace string) (allowlist.Status, bool, error)
	SetNamespaceStatus(ctx context.Context, namespace, status string) error
	ListNamespaces(ctx context.Context) ([]NamespaceEntry, error)

	UpsertEventTrigger(ctx context.Context, data events.EventData) error

	SaveTaskResult(ctx context.Context, task handlers.Task, outcome handlers.Outcome) error
	RecentTaskResults(ctx context.Context, limit int) ([]TaskResult, error)
}

type postgresStore struct {
	db *sqlx.DB
}

// NewStore creates a new Store.
func NewStore(db *sqlx.DB) Store {
	return &postgresStore{db: db}
}

func (s *postgresStore) GetNamespaceStatus(ctx context.Context, namespace string) (allowlist.Status, bool, error) {
	var status string
	err := s.db.GetContext(ctx, &status,
		`SELECT status FROM allowlist WHERE namespace = $1`, namespace)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get namespace status: %w", err)
	}
	return allowlist.Status(status), true, nil
}

func (s *postgresStore) SetNamespaceStatus(ctx context.Context, namespace, status string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO allowlist (namespace, status, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (namespace) DO UPDATE SET status = $2, updated_at = now()`,
		namespace, status)
	if err != nil {
		return fmt.Errorf("set namespace status: %w", err)
	}
	return nil
}

func (s *postgresStore) ListNamespaces(ctx context.Context) ([]NamespaceEntry, error) {
	var entries []NamespaceEntry
	err := s.db.SelectContext(ctx, &entries,
		`SELECT namespace, status, updated_at FROM allowlist ORDER BY namespace`)
	if err != nil {
		return nil, fmt.Errorf("list namespaces: %w", err)
	}
	return entries, nil
}

// UpsertEventTrigger records the trigger row an event correlates to, so
// later result callbacks can be traced back. Events without a trigger
// key are skipped.
func (s *postgresStore) UpsertEventTrigger(ctx context.Context, data events.EventData) error {
	if data.TriggerKey == "" {
		return nil
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO event_triggers (trigger_key, kind, project_url, identifier, actor, commit_sha, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
		ON CONFLICT (trigger_key) DO UPDATE SET
			kind = $2, project_url = $3, identifier = $4, actor = $5, commit_sha = $6, updated_at = now()`,
		data.TriggerKey, data.Kind, data.ProjectURL, data.Identifier, data.Actor, data.CommitSHA)
	if err != nil {
		return fmt.Errorf("upsert event trigger: %w", err)
	}
	return nil
}

func (s *postgresStore) SaveTaskResult(ctx context.Context, task handlers.Task, outcome handlers.Outcome) error {
	eventJSON, err := json.Marshal(task.Event)
	if err != nil {
		return fmt.Errorf("marshal event snapshot: %w", err)
	}
	var detailsJSON []byte
	if outcome.Details != nil {
		if detailsJSON, err = json.Marshal(outcome.Details); err != nil {
			return fmt.Errorf("marshal outcome details: %w", err)
		}
	}

	message := outcome.Message
	if outcome.Err != nil && message == "" {
		message = outcome.Err.Error()
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO task_results (handler, job_type, trigger_key, event, success, message, details, attempt, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())`,
		task.Handler, task.JobType(), task.Event.TriggerKey, eventJSON,
		outcome.Success, message, detailsJSON, task.Attempt)
	if err != nil {
		return fmt.Errorf("save task result: %w", err)
	}
	return nil
}

func (s *postgresStore) RecentTaskResults(ctx context.Context, limit int) ([]TaskResult, error) {
	if limit <= 0 {
		limit = 50
	}
	var results []TaskResult
	err := s.db.SelectContext(ctx, &results, `
		SELECT id, handler, job_type, trigger_key, event, success, message, details, attempt, created_at
		FROM task_results
		ORDER BY created_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent task results: %w", err)
	}
	return results, nil
}
