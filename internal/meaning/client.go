// Package meaning creates and updates canonical meaning objects on the
// meaning-object service. Payloads are validated before they leave the
// process, and failures are reported as empty results instead of errors so
// callers can keep rendering.
package meaning

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/ull/pkg/types"
)

// Service is the remote meaning-object store.
type Service interface {
	Insert(ctx context.Context, rec *types.MeaningRecord) error
	Update(ctx context.Context, id string, m *types.Meaning, at time.Time) error
	Get(ctx context.Context, id string) (*types.MeaningRecord, error)
}

// Client wraps a Service with client-side validation.
type Client struct {
	svc    Service
	logger *zap.Logger
	now    func() time.Time
}

// NewClient creates a Client over svc.
func NewClient(svc Service, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{svc: svc, logger: logger, now: time.Now}
}

// Create validates payload and stores it as a new meaning object owned by
// workspaceID. It returns the new id, or "" and false when validation or the
// service call fails.
func (c *Client) Create(ctx context.Context, workspaceID, createdBy string, entityType types.MeaningType, sourceLocale string, payload any) (string, bool) {
	m, err := types.ValidateMeaning(payload)
	if err != nil {
		c.logger.Error("meaning rejected", zap.String("workspace_id", workspaceID), zap.Error(err))
		return "", false
	}
	if err := checkOwner(workspaceID, entityType); err != nil {
		c.logger.Error("meaning rejected", zap.String("workspace_id", workspaceID), zap.Error(err))
		return "", false
	}

	id, err := uuid.NewV7()
	if err != nil {
		c.logger.Debug("generate meaning id", zap.Error(err))
		return "", false
	}

	now := c.now().UTC()
	rec := &types.MeaningRecord{
		ID:           id.String(),
		WorkspaceID:  workspaceID,
		CreatedBy:    createdBy,
		EntityType:   entityType,
		SourceLocale: types.NormalizeLocale(sourceLocale),
		Meaning:      *m,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := c.svc.Insert(ctx, rec); err != nil {
		c.logger.Debug("create meaning failed", zap.String("id", rec.ID), zap.Error(err))
		return "", false
	}
	c.logger.Info("meaning created",
		zap.String("id", rec.ID),
		zap.String("workspace_id", workspaceID),
		zap.String("type", string(entityType)))
	return rec.ID, true
}

// Update replaces the payload of meaning object id. It returns false when
// validation or the service call fails.
func (c *Client) Update(ctx context.Context, id string, payload any) bool {
	if _, err := uuid.Parse(id); err != nil {
		c.logger.Error("meaning update rejected", zap.String("id", id), zap.Error(types.ErrInvalidID))
		return false
	}
	m, err := types.ValidateMeaning(payload)
	if err != nil {
		c.logger.Error("meaning update rejected", zap.String("id", id), zap.Error(err))
		return false
	}
	if err := c.svc.Update(ctx, id, m, c.now().UTC()); err != nil {
		c.logger.Debug("update meaning failed", zap.String("id", id), zap.Error(err))
		return false
	}
	return true
}

// Get fetches meaning object id. It returns types.ErrNotFound when no such
// object exists.
func (c *Client) Get(ctx context.Context, id string) (*types.MeaningRecord, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, types.ErrInvalidID
	}
	return c.svc.Get(ctx, id)
}

var errNoWorkspace = errors.New("workspace id is required")

func checkOwner(workspaceID string, entityType types.MeaningType) error {
	if strings.TrimSpace(workspaceID) == "" {
		return errNoWorkspace
	}
	if !entityType.Valid() {
		return fmt.Errorf("%w: unknown entity type %q", types.ErrInvalidMeaning, entityType)
	}
	return nil
}
