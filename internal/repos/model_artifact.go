package repos

import (
  "context"
  "time"
  "gorm.io/gorm"
  "gorm.io/gorm/clause"
  "github.com/smartblood-kerala/smartblood-backend/internal/logger"
  "github.com/smartblood-kerala/smartblood-backend/internal/types"
)

type ModelArtifactRepo interface {
  Upsert(ctx context.Context, tx *gorm.DB, artifact *types.ModelArtifact) error
  GetByName(ctx context.Context, tx *gorm.DB, modelName string) (*types.ModelArtifact, error)
  List(ctx context.Context, tx *gorm.DB) ([]*types.ModelArtifact, error)
}

type modelArtifactRepo struct {
  db  *gorm.DB
  log *logger.Logger
}

func NewModelArtifactRepo(db *gorm.DB, baseLog *logger.Logger) ModelArtifactRepo {
  return &modelArtifactRepo{
    db:  db,
    log: baseLog.With("repo", "ModelArtifactRepo"),
  }
}

func (r *modelArtifactRepo) Upsert(ctx context.Context, tx *gorm.DB, artifact *types.ModelArtifact) error {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  if artifact == nil {
    return nil
  }
  artifact.DeployedAt = time.Now()
  return transaction.WithContext(ctx).
    Clauses(clause.OnConflict{
      Columns:   []clause.Column{{Name: "model_name"}},
      DoUpdates: clause.AssignmentColumns([]string{"version", "artifact_path", "metadata", "is_active", "deployed_at"}),
    }).
    Create(artifact).Error
}

func (r *modelArtifactRepo) GetByName(ctx context.Context, tx *gorm.DB, modelName string) (*types.ModelArtifact, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  if modelName == "" {
    return nil, nil
  }
  var out types.ModelArtifact
  err := transaction.WithContext(ctx).
    Where("model_name = ?", modelName).
    Limit(1).
    Find(&out).Error
  if err != nil {
    return nil, err
  }
  if out.ModelName == "" {
    return nil, nil
  }
  return &out, nil
}

func (r *modelArtifactRepo) List(ctx context.Context, tx *gorm.DB) ([]*types.ModelArtifact, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  var out []*types.ModelArtifact
  err := transaction.WithContext(ctx).
    Order("model_name ASC").
    Find(&out).Error
  if err != nil {
    return nil, err
  }
  return out, nil
}
