package persistence

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/devlens/devlens/internal/domain"
	"github.com/devlens/devlens/pkg/apperror"
)

// WorkflowProfileStore reads workflow (stage) configuration. Stage lists
// are stored as JSONB documents alongside the profile row.
type WorkflowProfileStore struct {
	db *sql.DB
}

// NewWorkflowProfileStore creates a new PostgreSQL workflow profile store.
func NewWorkflowProfileStore(db *sql.DB) *WorkflowProfileStore {
	return &WorkflowProfileStore{db: db}
}

// Get loads one workflow profile by ID.
func (s *WorkflowProfileStore) Get(ctx context.Context, tenant, profileID string) (domain.WorkflowProfile, error) {
	query := fmt.Sprintf(
		"SELECT id, name, updated_at, pre_stages, post_stages FROM %s WHERE id = $1",
		tenantTable(tenant, "workflow_profiles"))

	var p domain.WorkflowProfile
	var preJSON, postJSON []byte
	err := s.db.QueryRowContext(ctx, query, profileID).Scan(&p.ID, &p.Name, &p.UpdatedAt, &preJSON, &postJSON)
	if err == sql.ErrNoRows {
		return domain.WorkflowProfile{}, apperror.NewNotFound(fmt.Sprintf("workflow profile %q not found", profileID))
	}
	if err != nil {
		return domain.WorkflowProfile{}, fmt.Errorf("failed to load workflow profile: %w", err)
	}
	if len(preJSON) > 0 {
		if err := json.Unmarshal(preJSON, &p.PreStages); err != nil {
			return domain.WorkflowProfile{}, fmt.Errorf("failed to unmarshal pre stages: %w", err)
		}
	}
	if len(postJSON) > 0 {
		if err := json.Unmarshal(postJSON, &p.PostStages); err != nil {
			return domain.WorkflowProfile{}, fmt.Errorf("failed to unmarshal post stages: %w", err)
		}
	}
	return p, nil
}
