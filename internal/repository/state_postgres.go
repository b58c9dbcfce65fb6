package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"righthome/internal/model"
)

const conversationStatesSchema = `
CREATE TABLE IF NOT EXISTS conversation_states (
	conversation_id TEXT PRIMARY KEY,
	stage           INTEGER NOT NULL DEFAULT 1,
	requirements    JSONB NOT NULL DEFAULT '{}'::jsonb,
	updated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// PostgresStateStore persists conversation state in the conversation_states table
type PostgresStateStore struct {
	db *sqlx.DB
}

// NewPostgresStateStore wraps an open connection pool
func NewPostgresStateStore(db *sqlx.DB) *PostgresStateStore {
	return &PostgresStateStore{db: db}
}

// EnsureSchema creates the backing table if it does not exist
func (s *PostgresStateStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, conversationStatesSchema); err != nil {
		return fmt.Errorf("failed to create conversation_states: %w", err)
	}
	return nil
}

// Get returns the initial state without inserting it when the row is absent
func (s *PostgresStateStore) Get(ctx context.Context, id string) (model.ConversationState, error) {
	var row struct {
		Stage        int                  `db:"stage"`
		Requirements model.RequirementMap `db:"requirements"`
	}
	err := s.db.GetContext(ctx, &row,
		`SELECT stage, requirements FROM conversation_states WHERE conversation_id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return model.NewConversationState(), nil
	}
	if err != nil {
		return model.ConversationState{}, fmt.Errorf("failed to load conversation state: %w", err)
	}
	if row.Requirements == nil {
		row.Requirements = model.RequirementMap{}
	}
	return model.ConversationState{Stage: row.Stage, Requirements: row.Requirements}, nil
}

func (s *PostgresStateStore) Put(ctx context.Context, id string, stage int, requirements model.RequirementMap) error {
	query := `
		INSERT INTO conversation_states (conversation_id, stage, requirements, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (conversation_id)
		DO UPDATE SET stage = EXCLUDED.stage, requirements = EXCLUDED.requirements, updated_at = NOW()
	`
	if _, err := s.db.ExecContext(ctx, query, id, stage, requirements); err != nil {
		return fmt.Errorf("failed to store conversation state: %w", err)
	}
	return nil
}

func (s *PostgresStateStore) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM conversation_states WHERE conversation_id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete conversation state: %w", err)
	}
	return nil
}
