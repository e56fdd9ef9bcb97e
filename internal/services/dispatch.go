package services

import (
  "context"
  "encoding/json"
  "fmt"

  "github.com/google/uuid"
  "gorm.io/datatypes"

  "github.com/smartblood-kerala/smartblood-backend/internal/clients/sendgrid"
  "github.com/smartblood-kerala/smartblood-backend/internal/clients/twilio"
  "github.com/smartblood-kerala/smartblood-backend/internal/logger"
  "github.com/smartblood-kerala/smartblood-backend/internal/metrics"
  "github.com/smartblood-kerala/smartblood-backend/internal/repos"
  "github.com/smartblood-kerala/smartblood-backend/internal/types"
)

// NotificationDispatcher delivers one donor alert per match prediction.
// The notified flag is claimed before any side effect, so a retried
// dispatch is a no-op and a donor is never alerted twice for the same
// request.
type NotificationDispatcher interface {
  Dispatch(ctx context.Context, matchPredictionID, requestID uuid.UUID) error
}

type notificationDispatcher struct {
  log              *logger.Logger
  matchPredRepo    repos.MatchPredictionRepo
  donorRepo        repos.DonorRepo
  requestRepo      repos.RequestRepo
  notificationRepo repos.NotificationRepo
  sms              twilio.Client
  email            sendgrid.Client
}

func NewNotificationDispatcher(
  log *logger.Logger,
  matchPredRepo repos.MatchPredictionRepo,
  donorRepo repos.DonorRepo,
  requestRepo repos.RequestRepo,
  notificationRepo repos.NotificationRepo,
  sms twilio.Client,
  email sendgrid.Client,
) NotificationDispatcher {
  return &notificationDispatcher{
    log:              log.With("service", "NotificationDispatcher"),
    matchPredRepo:    matchPredRepo,
    donorRepo:        donorRepo,
    requestRepo:      requestRepo,
    notificationRepo: notificationRepo,
    sms:              sms,
    email:            email,
  }
}

func (d *notificationDispatcher) Dispatch(ctx context.Context, matchPredictionID, requestID uuid.UUID) error {
  pred, err := d.matchPredRepo.GetByID(ctx, nil, matchPredictionID)
  if err != nil {
    return fmt.Errorf("Failed to load match prediction: %w", err)
  }
  if pred == nil || pred.RequestID != requestID {
    return fmt.Errorf("%w: match prediction %s", ErrNotFound, matchPredictionID)
  }
  if pred.Notified {
    return nil
  }
  donor, err := d.donorRepo.GetByID(ctx, nil, pred.DonorID)
  if err != nil {
    return fmt.Errorf("Failed to load donor: %w", err)
  }
  if donor == nil || donor.User == nil {
    return fmt.Errorf("%w: donor %s", ErrNotFound, pred.DonorID)
  }
  req, err := d.requestRepo.GetByID(ctx, nil, requestID)
  if err != nil {
    return fmt.Errorf("Failed to load request: %w", err)
  }
  if req == nil {
    return fmt.Errorf("%w: request %s", ErrNotFound, requestID)
  }

  // Idempotency gate: whoever wins this update owns the side effects.
  claimed, err := d.matchPredRepo.ClaimNotified(ctx, nil, pred.ID)
  if err != nil {
    return fmt.Errorf("Failed to claim notification: %w", err)
  }
  if !claimed {
    return nil
  }

  hospitalName := "the requesting hospital"
  if req.Hospital != nil && req.Hospital.Name != "" {
    hospitalName = req.Hospital.Name
  }
  message := fmt.Sprintf("Urgent: %s blood needed at %s (%d unit(s), urgency %s). Open SmartBlood to respond.",
    req.BloodGroup, hospitalName, req.UnitsRequired, req.Urgency)

  data, _ := json.Marshal(map[string]string{
    "request_id":          req.ID.String(),
    "match_prediction_id": pred.ID.String(),
  })
  if _, err := d.notificationRepo.Create(ctx, nil, &types.Notification{
    UserID:  donor.UserID,
    Type:    "blood_request",
    Title:   "Blood donation request",
    Message: message,
    Data:    datatypes.JSON(data),
  }); err != nil {
    return fmt.Errorf("Failed to create notification: %w", err)
  }
  metrics.DonorNotificationsTotal.Inc()

  // SMS and email are best-effort; the in-app row is the durable record.
  if d.sms != nil && donor.User.Phone != "" {
    if _, err := d.sms.SendSMS(ctx, donor.User.Phone, message); err != nil {
      d.log.Warn("SMS send failed", "request_id", req.ID, "donor_id", donor.ID, "error", err)
    }
  }
  if d.email != nil && donor.User.Email != "" && donor.User.EmailVerified {
    _, err := d.email.Send(ctx, sendgrid.SendEmailRequest{
      To:      []sendgrid.EmailAddress{{Email: donor.User.Email, Name: donor.User.FirstName}},
      Subject: fmt.Sprintf("%s blood needed near you", req.BloodGroup),
      Text:    message,
    })
    if err != nil {
      d.log.Warn("Email send failed", "request_id", req.ID, "donor_id", donor.ID, "error", err)
    }
  }

  d.log.Info("Donor notified", "request_id", req.ID, "donor_id", donor.ID, "match_prediction_id", pred.ID)
  return nil
}
