package repos

import (
  "context"
  "time"
  "github.com/google/uuid"
  "gorm.io/gorm"
  "github.com/smartblood-kerala/smartblood-backend/internal/logger"
  "github.com/smartblood-kerala/smartblood-backend/internal/types"
)

// DemandCount is one cell of the per-district demand aggregation used by
// the forecast writer.
type DemandCount struct {
  District   string `gorm:"column:district"`
  BloodGroup string `gorm:"column:blood_group"`
  Count      int64  `gorm:"column:count"`
}

type RequestRepo interface {
  Create(ctx context.Context, tx *gorm.DB, req *types.Request) (*types.Request, error)
  GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Request, error)
  UpdateStatus(ctx context.Context, tx *gorm.DB, id uuid.UUID, status string) error
  TransitionStatus(ctx context.Context, tx *gorm.DB, id uuid.UUID, from, to string) (bool, error)
  ListBySeeker(ctx context.Context, tx *gorm.DB, seekerID uuid.UUID, limit int) ([]*types.Request, error)
  DemandCounts(ctx context.Context, tx *gorm.DB, since time.Time) ([]DemandCount, error)
}

type requestRepo struct {
  db  *gorm.DB
  log *logger.Logger
}

func NewRequestRepo(db *gorm.DB, baseLog *logger.Logger) RequestRepo {
  return &requestRepo{
    db:  db,
    log: baseLog.With("repo", "RequestRepo"),
  }
}

func (r *requestRepo) Create(ctx context.Context, tx *gorm.DB, req *types.Request) (*types.Request, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  if req == nil {
    return nil, nil
  }
  if err := transaction.WithContext(ctx).Create(req).Error; err != nil {
    return nil, err
  }
  return req, nil
}

func (r *requestRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Request, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  if id == uuid.Nil {
    return nil, nil
  }
  var req types.Request
  err := transaction.WithContext(ctx).
    Preload("Hospital").
    Where("id = ?", id).
    Limit(1).
    Find(&req).Error
  if err != nil {
    return nil, err
  }
  if req.ID == uuid.Nil {
    return nil, nil
  }
  return &req, nil
}

func (r *requestRepo) UpdateStatus(ctx context.Context, tx *gorm.DB, id uuid.UUID, status string) error {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  if id == uuid.Nil {
    return nil
  }
  return transaction.WithContext(ctx).
    Model(&types.Request{}).
    Where("id = ?", id).
    Updates(map[string]interface{}{
      "status":     status,
      "updated_at": time.Now(),
    }).Error
}

// TransitionStatus flips from -> to atomically; reports whether this call
// performed the transition. A false return with nil error means another
// worker got there first, which callers treat as success.
func (r *requestRepo) TransitionStatus(ctx context.Context, tx *gorm.DB, id uuid.UUID, from, to string) (bool, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  if id == uuid.Nil {
    return false, nil
  }
  res := transaction.WithContext(ctx).
    Model(&types.Request{}).
    Where("id = ? AND status = ?", id, from).
    Updates(map[string]interface{}{
      "status":     to,
      "updated_at": time.Now(),
    })
  if res.Error != nil {
    return false, res.Error
  }
  return res.RowsAffected > 0, nil
}

func (r *requestRepo) ListBySeeker(ctx context.Context, tx *gorm.DB, seekerID uuid.UUID, limit int) ([]*types.Request, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  var out []*types.Request
  if seekerID == uuid.Nil {
    return out, nil
  }
  if limit <= 0 {
    limit = 50
  }
  err := transaction.WithContext(ctx).
    Where("seeker_id = ?", seekerID).
    Order("created_at DESC").
    Limit(limit).
    Find(&out).Error
  if err != nil {
    return nil, err
  }
  return out, nil
}

func (r *requestRepo) DemandCounts(ctx context.Context, tx *gorm.DB, since time.Time) ([]DemandCount, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  var out []DemandCount
  err := transaction.WithContext(ctx).
    Model(&types.Request{}).
    Select(`COALESCE(hospital.district, '') AS district, request.blood_group AS blood_group, COUNT(*) AS count`).
    Joins("LEFT JOIN hospital ON hospital.id = request.hospital_id").
    Where("request.created_at >= ?", since).
    Group("COALESCE(hospital.district, ''), request.blood_group").
    Find(&out).Error
  if err != nil {
    return nil, err
  }
  return out, nil
}
