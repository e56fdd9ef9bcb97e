package repos

import (
  "context"
  "time"
  "gorm.io/gorm"
  "github.com/smartblood-kerala/smartblood-backend/internal/logger"
  "github.com/smartblood-kerala/smartblood-backend/internal/types"
)

type ModelPredictionLogRepo interface {
  Create(ctx context.Context, tx *gorm.DB, entry *types.ModelPredictionLog) error
  PurgeOlderThan(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error)
}

type modelPredictionLogRepo struct {
  db  *gorm.DB
  log *logger.Logger
}

func NewModelPredictionLogRepo(db *gorm.DB, baseLog *logger.Logger) ModelPredictionLogRepo {
  return &modelPredictionLogRepo{
    db:  db,
    log: baseLog.With("repo", "ModelPredictionLogRepo"),
  }
}

func (r *modelPredictionLogRepo) Create(ctx context.Context, tx *gorm.DB, entry *types.ModelPredictionLog) error {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  if entry == nil {
    return nil
  }
  return transaction.WithContext(ctx).Create(entry).Error
}

func (r *modelPredictionLogRepo) PurgeOlderThan(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  res := transaction.WithContext(ctx).
    Where("created_at < ?", cutoff).
    Delete(&types.ModelPredictionLog{})
  return res.RowsAffected, res.Error
}
