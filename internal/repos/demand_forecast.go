package repos

import (
  "context"
  "time"
  "gorm.io/gorm"
  "gorm.io/gorm/clause"
  "github.com/smartblood-kerala/smartblood-backend/internal/logger"
  "github.com/smartblood-kerala/smartblood-backend/internal/types"
)

type DemandForecastRepo interface {
  UpsertBatch(ctx context.Context, tx *gorm.DB, rows []*types.DemandForecast) error
  ListByDistrict(ctx context.Context, tx *gorm.DB, district string, from, to time.Time) ([]*types.DemandForecast, error)
}

type demandForecastRepo struct {
  db  *gorm.DB
  log *logger.Logger
}

func NewDemandForecastRepo(db *gorm.DB, baseLog *logger.Logger) DemandForecastRepo {
  return &demandForecastRepo{
    db:  db,
    log: baseLog.With("repo", "DemandForecastRepo"),
  }
}

func (r *demandForecastRepo) UpsertBatch(ctx context.Context, tx *gorm.DB, rows []*types.DemandForecast) error {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  if len(rows) == 0 {
    return nil
  }
  now := time.Now()
  for _, row := range rows {
    row.UpdatedAt = now
  }
  return transaction.WithContext(ctx).
    Clauses(clause.OnConflict{
      Columns:   []clause.Column{{Name: "district"}, {Name: "blood_group"}, {Name: "forecast_date"}},
      DoUpdates: clause.AssignmentColumns([]string{"predicted_demand", "confidence_lower", "confidence_upper", "model_version", "updated_at"}),
    }).
    CreateInBatches(&rows, 200).Error
}

func (r *demandForecastRepo) ListByDistrict(ctx context.Context, tx *gorm.DB, district string, from, to time.Time) ([]*types.DemandForecast, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  var out []*types.DemandForecast
  if district == "" {
    return out, nil
  }
  q := transaction.WithContext(ctx).Where("LOWER(district) = LOWER(?)", district)
  if !from.IsZero() {
    q = q.Where("forecast_date >= ?", from)
  }
  if !to.IsZero() {
    q = q.Where("forecast_date <= ?", to)
  }
  err := q.Order("forecast_date ASC, blood_group ASC").Find(&out).Error
  if err != nil {
    return nil, err
  }
  return out, nil
}
