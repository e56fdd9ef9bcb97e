package services

import (
  "context"
  "errors"
  "testing"

  "github.com/google/uuid"
  "gorm.io/gorm"

  "github.com/smartblood-kerala/smartblood-backend/internal/repos"
  "github.com/smartblood-kerala/smartblood-backend/internal/types"
)

type fakeMatchPredRepo struct {
  repos.MatchPredictionRepo
  pred *types.MatchPrediction
}

func (f *fakeMatchPredRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.MatchPrediction, error) {
  if f.pred != nil && f.pred.ID == id {
    return f.pred, nil
  }
  return nil, nil
}

func (f *fakeMatchPredRepo) ClaimNotified(ctx context.Context, tx *gorm.DB, id uuid.UUID) (bool, error) {
  if f.pred == nil || f.pred.ID != id || f.pred.Notified {
    return false, nil
  }
  f.pred.Notified = true
  return true, nil
}

type fakeDonorByID struct {
  repos.DonorRepo
  donor *types.Donor
}

func (f *fakeDonorByID) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Donor, error) {
  if f.donor != nil && f.donor.ID == id {
    return f.donor, nil
  }
  return nil, nil
}

type fakeRequestByID struct {
  repos.RequestRepo
  req *types.Request
}

func (f *fakeRequestByID) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Request, error) {
  if f.req != nil && f.req.ID == id {
    return f.req, nil
  }
  return nil, nil
}

type countingNotificationRepo struct {
  repos.NotificationRepo
  created []*types.Notification
}

func (f *countingNotificationRepo) Create(ctx context.Context, tx *gorm.DB, n *types.Notification) (*types.Notification, error) {
  f.created = append(f.created, n)
  return n, nil
}

func TestDispatchIdempotence(t *testing.T) {
  donor := &types.Donor{
    ID:         uuid.New(),
    UserID:     uuid.New(),
    BloodGroup: "A+",
  }
  donor.User = &types.User{ID: donor.UserID, Email: "donor@example.com", Phone: "+911234567890"}
  req := &types.Request{ID: uuid.New(), BloodGroup: "A+", UnitsRequired: 1, Urgency: "high"}
  pred := &types.MatchPrediction{ID: uuid.New(), RequestID: req.ID, DonorID: donor.ID}

  notifications := &countingNotificationRepo{}
  d := NewNotificationDispatcher(
    testLog(t),
    &fakeMatchPredRepo{pred: pred},
    &fakeDonorByID{donor: donor},
    &fakeRequestByID{req: req},
    notifications,
    nil, // no SMS client in tests
    nil, // no email client in tests
  )

  if err := d.Dispatch(context.Background(), pred.ID, req.ID); err != nil {
    t.Fatalf("first dispatch: %v", err)
  }
  if err := d.Dispatch(context.Background(), pred.ID, req.ID); err != nil {
    t.Fatalf("second dispatch: %v", err)
  }

  if len(notifications.created) != 1 {
    t.Fatalf("notifications = %d, want exactly 1", len(notifications.created))
  }
  n := notifications.created[0]
  if n.UserID != donor.UserID || n.Type != "blood_request" {
    t.Fatalf("notification = %#v", n)
  }
  if !pred.Notified {
    t.Fatal("prediction must be marked notified")
  }
}

func TestDispatchMissingPrediction(t *testing.T) {
  d := NewNotificationDispatcher(
    testLog(t),
    &fakeMatchPredRepo{},
    &fakeDonorByID{},
    &fakeRequestByID{},
    &countingNotificationRepo{},
    nil,
    nil,
  )
  err := d.Dispatch(context.Background(), uuid.New(), uuid.New())
  if !errors.Is(err, ErrNotFound) {
    t.Fatalf("err = %v, want ErrNotFound", err)
  }
}
