package repos

import (
  "context"
  "time"
  "github.com/google/uuid"
  "gorm.io/gorm"
  "github.com/smartblood-kerala/smartblood-backend/internal/logger"
  "github.com/smartblood-kerala/smartblood-backend/internal/types"
)

// CandidateFilter narrows the donor pool before any scoring happens. The
// bounding box is a cheap index-friendly prefilter; exact distance is
// checked by the caller.
type CandidateFilter struct {
  BloodGroups       []string
  MinLat            float64
  MaxLat            float64
  MinLng            float64
  MaxLng            float64
  EligibilityCutoff time.Time
  Limit             int
}

type DonorRepo interface {
  GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Donor, error)
  GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*types.Donor, error)
  GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.Donor, error)
  FindCandidates(ctx context.Context, tx *gorm.DB, f CandidateFilter) ([]*types.Donor, error)
  ListAvailableByDistrict(ctx context.Context, tx *gorm.DB, district string, bloodGroups []string, eligibilityCutoff time.Time) ([]*types.Donor, error)
}

type donorRepo struct {
  db  *gorm.DB
  log *logger.Logger
}

func NewDonorRepo(db *gorm.DB, baseLog *logger.Logger) DonorRepo {
  return &donorRepo{
    db:  db,
    log: baseLog.With("repo", "DonorRepo"),
  }
}

func (r *donorRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Donor, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  if id == uuid.Nil {
    return nil, nil
  }
  var donor types.Donor
  err := transaction.WithContext(ctx).
    Preload("User").
    Where("id = ?", id).
    Limit(1).
    Find(&donor).Error
  if err != nil {
    return nil, err
  }
  if donor.ID == uuid.Nil {
    return nil, nil
  }
  return &donor, nil
}

func (r *donorRepo) GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*types.Donor, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  if userID == uuid.Nil {
    return nil, nil
  }
  var donor types.Donor
  err := transaction.WithContext(ctx).
    Preload("User").
    Where("user_id = ?", userID).
    Limit(1).
    Find(&donor).Error
  if err != nil {
    return nil, err
  }
  if donor.ID == uuid.Nil {
    return nil, nil
  }
  return &donor, nil
}

func (r *donorRepo) GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.Donor, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  var out []*types.Donor
  if len(ids) == 0 {
    return out, nil
  }
  err := transaction.WithContext(ctx).
    Preload("User").
    Where("id IN ?", ids).
    Find(&out).Error
  if err != nil {
    return nil, err
  }
  return out, nil
}

func (r *donorRepo) FindCandidates(ctx context.Context, tx *gorm.DB, f CandidateFilter) ([]*types.Donor, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  var out []*types.Donor
  if len(f.BloodGroups) == 0 {
    return out, nil
  }
  limit := f.Limit
  if limit <= 0 {
    limit = 500
  }
  err := transaction.WithContext(ctx).
    Preload("User").
    Joins(`JOIN "user" ON "user".id = donor.user_id`).
    Where(`"user".status = ? AND "user".email_verified = ?`, "active", true).
    Where("donor.blood_group IN ?", f.BloodGroups).
    Where("donor.is_available IS NULL OR donor.is_available = ?", true).
    Where("donor.last_donation_date IS NULL OR donor.last_donation_date <= ?", f.EligibilityCutoff).
    Where(
      "donor.lat IS NULL OR donor.lng IS NULL OR (donor.lat BETWEEN ? AND ? AND donor.lng BETWEEN ? AND ?)",
      f.MinLat, f.MaxLat, f.MinLng, f.MaxLng,
    ).
    Limit(limit).
    Find(&out).Error
  if err != nil {
    return nil, err
  }
  return out, nil
}

func (r *donorRepo) ListAvailableByDistrict(ctx context.Context, tx *gorm.DB, district string, bloodGroups []string, eligibilityCutoff time.Time) ([]*types.Donor, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  var out []*types.Donor
  if district == "" || len(bloodGroups) == 0 {
    return out, nil
  }
  err := transaction.WithContext(ctx).
    Preload("User").
    Joins(`JOIN "user" ON "user".id = donor.user_id`).
    Where(`"user".status = ? AND "user".email_verified = ?`, "active", true).
    Where(`LOWER("user".district) = LOWER(?)`, district).
    Where("donor.blood_group IN ?", bloodGroups).
    Where("donor.is_available IS NULL OR donor.is_available = ?", true).
    Where("donor.last_donation_date IS NULL OR donor.last_donation_date <= ?", eligibilityCutoff).
    Find(&out).Error
  if err != nil {
    return nil, err
  }
  return out, nil
}
