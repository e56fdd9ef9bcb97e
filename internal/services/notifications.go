package services

import (
  "context"
  "fmt"

  "github.com/google/uuid"

  "github.com/smartblood-kerala/smartblood-backend/internal/logger"
  "github.com/smartblood-kerala/smartblood-backend/internal/repos"
  "github.com/smartblood-kerala/smartblood-backend/internal/requestdata"
  "github.com/smartblood-kerala/smartblood-backend/internal/types"
)

// NotificationService is the read side of the in-app inbox.
type NotificationService interface {
  ListMine(ctx context.Context, unreadOnly bool, limit int) ([]*types.Notification, error)
  MarkRead(ctx context.Context, notificationID uuid.UUID) error
}

type notificationService struct {
  log  *logger.Logger
  repo repos.NotificationRepo
}

func NewNotificationService(log *logger.Logger, repo repos.NotificationRepo) NotificationService {
  return &notificationService{
    log:  log.With("service", "NotificationService"),
    repo: repo,
  }
}

func (s *notificationService) ListMine(ctx context.Context, unreadOnly bool, limit int) ([]*types.Notification, error) {
  rd := requestdata.GetRequestData(ctx)
  if rd == nil {
    return nil, fmt.Errorf("%w: missing caller identity", ErrForbidden)
  }
  out, err := s.repo.ListByUser(ctx, nil, rd.UserID, unreadOnly, limit)
  if err != nil {
    return nil, fmt.Errorf("Failed to list notifications: %w", err)
  }
  return out, nil
}

func (s *notificationService) MarkRead(ctx context.Context, notificationID uuid.UUID) error {
  rd := requestdata.GetRequestData(ctx)
  if rd == nil {
    return fmt.Errorf("%w: missing caller identity", ErrForbidden)
  }
  if err := s.repo.MarkRead(ctx, nil, rd.UserID, notificationID); err != nil {
    return fmt.Errorf("Failed to mark notification read: %w", err)
  }
  return nil
}
