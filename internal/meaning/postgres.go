package meaning

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/ull/pkg/types"
)

//go:embed schema.sql
var schemaSQL string

// PGService stores meaning objects in PostgreSQL.
type PGService struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

// NewPGService connects to dsn and verifies the connection.
func NewPGService(ctx context.Context, dsn string, logger *zap.Logger) (*PGService, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	logger.Info("PostgreSQL connected")
	return &PGService{db: pool, logger: logger}, nil
}

// Migrate creates the meaning_objects table if it does not exist.
func (s *PGService) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply meaning schema: %w", err)
	}
	s.logger.Info("Meaning schema applied")
	return nil
}

// Close shuts down the connection pool.
func (s *PGService) Close() {
	s.db.Close()
}

// Insert stores a new meaning object.
func (s *PGService) Insert(ctx context.Context, rec *types.MeaningRecord) error {
	body, err := json.Marshal(rec.Meaning)
	if err != nil {
		return fmt.Errorf("marshal meaning %s: %w", rec.ID, err)
	}
	_, err = s.db.Exec(ctx, `
		INSERT INTO meaning_objects (id, workspace_id, created_by, entity_type, source_locale, meaning_json, created_at, updated_at)
		VALUES ($1::uuid, $2, $3, $4, $5, $6, $7, $8)`,
		rec.ID, rec.WorkspaceID, rec.CreatedBy, string(rec.EntityType),
		rec.SourceLocale, body, rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert meaning %s: %w", rec.ID, err)
	}
	return nil
}

// Update replaces the payload of meaning object id.
func (s *PGService) Update(ctx context.Context, id string, m *types.Meaning, at time.Time) error {
	body, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal meaning %s: %w", id, err)
	}
	tag, err := s.db.Exec(ctx,
		`UPDATE meaning_objects SET meaning_json = $2, updated_at = $3 WHERE id = $1::uuid`,
		id, body, at)
	if err != nil {
		return fmt.Errorf("update meaning %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update meaning %s: %w", id, types.ErrNotFound)
	}
	return nil
}

// Get retrieves a single meaning object by id.
func (s *PGService) Get(ctx context.Context, id string) (*types.MeaningRecord, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id::text, workspace_id, created_by, entity_type, source_locale,
		       meaning_json, created_at, updated_at
		FROM meaning_objects WHERE id = $1::uuid`, id)

	var (
		rec        types.MeaningRecord
		entityType string
		body       []byte
	)
	err := row.Scan(&rec.ID, &rec.WorkspaceID, &rec.CreatedBy, &entityType,
		&rec.SourceLocale, &body, &rec.CreatedAt, &rec.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("get meaning %s: %w", id, types.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get meaning %s: %w", id, err)
	}
	rec.EntityType = types.MeaningType(entityType)
	if err := json.Unmarshal(body, &rec.Meaning); err != nil {
		return nil, fmt.Errorf("decode meaning %s: %w", id, err)
	}
	return &rec, nil
}

var _ Service = (*PGService)(nil)
