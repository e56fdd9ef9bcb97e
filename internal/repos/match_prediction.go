package repos

import (
  "context"
  "time"
  "github.com/google/uuid"
  "gorm.io/gorm"
  "github.com/smartblood-kerala/smartblood-backend/internal/logger"
  "github.com/smartblood-kerala/smartblood-backend/internal/types"
)

type MatchPredictionRepo interface {
  GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.MatchPrediction, error)
  ReplaceForRequest(ctx context.Context, tx *gorm.DB, requestID uuid.UUID, preds []*types.MatchPrediction) error
  AssignRanks(ctx context.Context, tx *gorm.DB, requestID uuid.UUID, orderedIDs []uuid.UUID) error
  GetByRequest(ctx context.Context, tx *gorm.DB, requestID uuid.UUID) ([]*types.MatchPrediction, error)
  GetByRequestSince(ctx context.Context, tx *gorm.DB, requestID uuid.UUID, since time.Time) ([]*types.MatchPrediction, error)
  ClaimNotified(ctx context.Context, tx *gorm.DB, id uuid.UUID) (bool, error)
  CountForRequest(ctx context.Context, tx *gorm.DB, requestID uuid.UUID) (int64, error)
  CountNotified(ctx context.Context, tx *gorm.DB, requestID uuid.UUID) (int64, error)
  PurgeOlderThan(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error)
  PurgeOrphaned(ctx context.Context, tx *gorm.DB) (int64, error)
}

type matchPredictionRepo struct {
  db  *gorm.DB
  log *logger.Logger
}

func NewMatchPredictionRepo(db *gorm.DB, baseLog *logger.Logger) MatchPredictionRepo {
  return &matchPredictionRepo{
    db:  db,
    log: baseLog.With("repo", "MatchPredictionRepo"),
  }
}

func (r *matchPredictionRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.MatchPrediction, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  if id == uuid.Nil {
    return nil, nil
  }
  var pred types.MatchPrediction
  err := transaction.WithContext(ctx).
    Where("id = ?", id).
    Limit(1).
    Find(&pred).Error
  if err != nil {
    return nil, err
  }
  if pred.ID == uuid.Nil {
    return nil, nil
  }
  return &pred, nil
}

// ReplaceForRequest swaps the full prediction set for a request in one
// transaction so pollers never observe a half-written batch. Notified
// state carries forward per (request, donor): a donor alerted by an
// earlier run is never reset to unnotified by a re-run. Carried state is
// written back onto the given preds so callers see it.
func (r *matchPredictionRepo) ReplaceForRequest(ctx context.Context, tx *gorm.DB, requestID uuid.UUID, preds []*types.MatchPrediction) error {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  if requestID == uuid.Nil {
    return nil
  }
  return transaction.WithContext(ctx).Transaction(func(txx *gorm.DB) error {
    var notifiedDonorIDs []uuid.UUID
    err := txx.Model(&types.MatchPrediction{}).
      Where("request_id = ? AND notified = ?", requestID, true).
      Pluck("donor_id", &notifiedDonorIDs).Error
    if err != nil {
      return err
    }
    if err := txx.Where("request_id = ?", requestID).Delete(&types.MatchPrediction{}).Error; err != nil {
      return err
    }
    if len(preds) == 0 {
      return nil
    }
    carried := make(map[uuid.UUID]bool, len(notifiedDonorIDs))
    for _, id := range notifiedDonorIDs {
      carried[id] = true
    }
    for _, p := range preds {
      if carried[p.DonorID] {
        p.Notified = true
      }
    }
    return txx.CreateInBatches(&preds, 100).Error
  })
}

// AssignRanks writes dense 1-based ranks in the order given, all in one
// transaction.
func (r *matchPredictionRepo) AssignRanks(ctx context.Context, tx *gorm.DB, requestID uuid.UUID, orderedIDs []uuid.UUID) error {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  if requestID == uuid.Nil || len(orderedIDs) == 0 {
    return nil
  }
  now := time.Now()
  return transaction.WithContext(ctx).Transaction(func(txx *gorm.DB) error {
    for i, id := range orderedIDs {
      err := txx.Model(&types.MatchPrediction{}).
        Where("id = ? AND request_id = ?", id, requestID).
        Updates(map[string]interface{}{
          "rank":       i + 1,
          "updated_at": now,
        }).Error
      if err != nil {
        return err
      }
    }
    return nil
  })
}

func (r *matchPredictionRepo) GetByRequest(ctx context.Context, tx *gorm.DB, requestID uuid.UUID) ([]*types.MatchPrediction, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  var out []*types.MatchPrediction
  if requestID == uuid.Nil {
    return out, nil
  }
  err := transaction.WithContext(ctx).
    Where("request_id = ?", requestID).
    Order("rank ASC NULLS LAST, match_score DESC").
    Find(&out).Error
  if err != nil {
    return nil, err
  }
  return out, nil
}

func (r *matchPredictionRepo) GetByRequestSince(ctx context.Context, tx *gorm.DB, requestID uuid.UUID, since time.Time) ([]*types.MatchPrediction, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  var out []*types.MatchPrediction
  if requestID == uuid.Nil {
    return out, nil
  }
  q := transaction.WithContext(ctx).Where("request_id = ?", requestID)
  if !since.IsZero() {
    q = q.Where("created_at > ?", since)
  }
  err := q.Order("rank ASC NULLS LAST, match_score DESC").Find(&out).Error
  if err != nil {
    return nil, err
  }
  return out, nil
}

// ClaimNotified flips notified=false -> true and reports whether this call
// won the flip. Losing the race means another dispatcher already owns the
// alert for this row.
func (r *matchPredictionRepo) ClaimNotified(ctx context.Context, tx *gorm.DB, id uuid.UUID) (bool, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  if id == uuid.Nil {
    return false, nil
  }
  res := transaction.WithContext(ctx).
    Model(&types.MatchPrediction{}).
    Where("id = ? AND notified = ?", id, false).
    Updates(map[string]interface{}{
      "notified":   true,
      "updated_at": time.Now(),
    })
  if res.Error != nil {
    return false, res.Error
  }
  return res.RowsAffected > 0, nil
}

func (r *matchPredictionRepo) CountForRequest(ctx context.Context, tx *gorm.DB, requestID uuid.UUID) (int64, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  if requestID == uuid.Nil {
    return 0, nil
  }
  var n int64
  err := transaction.WithContext(ctx).
    Model(&types.MatchPrediction{}).
    Where("request_id = ?", requestID).
    Count(&n).Error
  return n, err
}

func (r *matchPredictionRepo) CountNotified(ctx context.Context, tx *gorm.DB, requestID uuid.UUID) (int64, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  if requestID == uuid.Nil {
    return 0, nil
  }
  var n int64
  err := transaction.WithContext(ctx).
    Model(&types.MatchPrediction{}).
    Where("request_id = ? AND notified = ?", requestID, true).
    Count(&n).Error
  return n, err
}

func (r *matchPredictionRepo) PurgeOlderThan(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  res := transaction.WithContext(ctx).
    Where("created_at < ?", cutoff).
    Delete(&types.MatchPrediction{})
  return res.RowsAffected, res.Error
}

func (r *matchPredictionRepo) PurgeOrphaned(ctx context.Context, tx *gorm.DB) (int64, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  res := transaction.WithContext(ctx).
    Where("request_id NOT IN (?)", transaction.Model(&types.Request{}).Select("id")).
    Delete(&types.MatchPrediction{})
  return res.RowsAffected, res.Error
}
