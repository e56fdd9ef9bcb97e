package repos

import (
  "context"
  "github.com/google/uuid"
  "gorm.io/gorm"
  "github.com/smartblood-kerala/smartblood-backend/internal/logger"
  "github.com/smartblood-kerala/smartblood-backend/internal/types"
)

type HospitalRepo interface {
  GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Hospital, error)
  ListByDistrict(ctx context.Context, tx *gorm.DB, district string) ([]*types.Hospital, error)
}

type hospitalRepo struct {
  db  *gorm.DB
  log *logger.Logger
}

func NewHospitalRepo(db *gorm.DB, baseLog *logger.Logger) HospitalRepo {
  return &hospitalRepo{
    db:  db,
    log: baseLog.With("repo", "HospitalRepo"),
  }
}

func (r *hospitalRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Hospital, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  if id == uuid.Nil {
    return nil, nil
  }
  var hospital types.Hospital
  err := transaction.WithContext(ctx).
    Where("id = ?", id).
    Limit(1).
    Find(&hospital).Error
  if err != nil {
    return nil, err
  }
  if hospital.ID == uuid.Nil {
    return nil, nil
  }
  return &hospital, nil
}

func (r *hospitalRepo) ListByDistrict(ctx context.Context, tx *gorm.DB, district string) ([]*types.Hospital, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  var out []*types.Hospital
  if district == "" {
    return out, nil
  }
  err := transaction.WithContext(ctx).
    Where("LOWER(district) = LOWER(?)", district).
    Find(&out).Error
  if err != nil {
    return nil, err
  }
  return out, nil
}
