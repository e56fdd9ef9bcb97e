package repos

import (
  "context"
  "github.com/google/uuid"
  "gorm.io/gorm"
  "github.com/smartblood-kerala/smartblood-backend/internal/logger"
  "github.com/smartblood-kerala/smartblood-backend/internal/types"
)

type NotificationRepo interface {
  Create(ctx context.Context, tx *gorm.DB, n *types.Notification) (*types.Notification, error)
  ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID, unreadOnly bool, limit int) ([]*types.Notification, error)
  MarkRead(ctx context.Context, tx *gorm.DB, userID, id uuid.UUID) error
}

type notificationRepo struct {
  db  *gorm.DB
  log *logger.Logger
}

func NewNotificationRepo(db *gorm.DB, baseLog *logger.Logger) NotificationRepo {
  return &notificationRepo{
    db:  db,
    log: baseLog.With("repo", "NotificationRepo"),
  }
}

func (r *notificationRepo) Create(ctx context.Context, tx *gorm.DB, n *types.Notification) (*types.Notification, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  if n == nil {
    return nil, nil
  }
  if err := transaction.WithContext(ctx).Create(n).Error; err != nil {
    return nil, err
  }
  return n, nil
}

func (r *notificationRepo) ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID, unreadOnly bool, limit int) ([]*types.Notification, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  var out []*types.Notification
  if userID == uuid.Nil {
    return out, nil
  }
  if limit <= 0 {
    limit = 50
  }
  q := transaction.WithContext(ctx).Where("user_id = ?", userID)
  if unreadOnly {
    q = q.Where("is_read = ?", false)
  }
  err := q.Order("created_at DESC").Limit(limit).Find(&out).Error
  if err != nil {
    return nil, err
  }
  return out, nil
}

func (r *notificationRepo) MarkRead(ctx context.Context, tx *gorm.DB, userID, id uuid.UUID) error {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  if userID == uuid.Nil || id == uuid.Nil {
    return nil
  }
  return transaction.WithContext(ctx).
    Model(&types.Notification{}).
    Where("id = ? AND user_id = ?", id, userID).
    Update("is_read", true).Error
}
