package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/mohammadpnp/crm-import/internal/infrastructure/db/models"
)

// WorkspaceAuthorizer grants access to members of a workspace.
type WorkspaceAuthorizer struct {
	db *gorm.DB
}

func NewWorkspaceAuthorizer(db *gorm.DB) *WorkspaceAuthorizer {
	return &WorkspaceAuthorizer{db: db}
}

func (a *WorkspaceAuthorizer) CanAccessWorkspace(ctx context.Context, principalID, workspaceID string) (bool, error) {
	if principalID == "" || workspaceID == "" {
		return false, nil
	}

	var count int64
	err := a.db.WithContext(ctx).
		Model(&models.WorkspaceMember{}).
		Where("workspace_id = ? AND user_id = ?", workspaceID, principalID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("check workspace membership: %w", classify(err))
	}
	return count > 0, nil
}
