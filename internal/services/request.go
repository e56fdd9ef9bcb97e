package services

import (
  "context"
  "encoding/json"
  "fmt"
  "strings"
  "time"

  "github.com/google/uuid"
  "gorm.io/datatypes"

  "github.com/smartblood-kerala/smartblood-backend/internal/blood"
  "github.com/smartblood-kerala/smartblood-backend/internal/config"
  "github.com/smartblood-kerala/smartblood-backend/internal/logger"
  "github.com/smartblood-kerala/smartblood-backend/internal/repos"
  "github.com/smartblood-kerala/smartblood-backend/internal/requestdata"
  "github.com/smartblood-kerala/smartblood-backend/internal/types"
)

const JobTypeDonorMatch = "donor_match"

const (
  maxUnitsPerRequest = 20
  maxPatientNameLen  = 120
  maxNotesLen        = 2000
)

type CreateRequestInput struct {
  HospitalID    *uuid.UUID `json:"hospital_id,omitempty"`
  BloodGroup    string     `json:"blood_group"`
  UnitsRequired int        `json:"units_required"`
  Urgency       string     `json:"urgency"`
  PatientName   string     `json:"patient_name"`
  Notes         string     `json:"notes"`
  RequiredBy    time.Time  `json:"required_by"`
}

type RequestService interface {
  CreateRequest(ctx context.Context, input CreateRequestInput) (*types.Request, error)
  RetryMatching(ctx context.Context, requestID uuid.UUID) error
  ExpandSearch(ctx context.Context, requestID uuid.UUID, radiusKm float64) error
  GetRequest(ctx context.Context, requestID uuid.UUID) (*types.Request, error)
  ListMine(ctx context.Context, limit int) ([]*types.Request, error)
  CloseRequest(ctx context.Context, requestID uuid.UUID, status string) error
  GetMatchJob(ctx context.Context, jobID uuid.UUID) (*types.JobRun, error)
}

type requestService struct {
  cfg         *config.Config
  log         *logger.Logger
  requestRepo repos.RequestRepo
  jobRunRepo  repos.JobRunRepo
}

func NewRequestService(cfg *config.Config, log *logger.Logger, requestRepo repos.RequestRepo, jobRunRepo repos.JobRunRepo) RequestService {
  return &requestService{
    cfg:         cfg,
    log:         log.With("service", "RequestService"),
    requestRepo: requestRepo,
    jobRunRepo:  jobRunRepo,
  }
}

func (s *requestService) CreateRequest(ctx context.Context, input CreateRequestInput) (*types.Request, error) {
  rd := requestdata.GetRequestData(ctx)
  if rd == nil {
    return nil, fmt.Errorf("%w: missing caller identity", ErrForbidden)
  }
  if err := validateCreateRequest(&input); err != nil {
    return nil, err
  }

  req := &types.Request{
    ID:            uuid.New(),
    SeekerID:      &rd.UserID,
    HospitalID:    input.HospitalID,
    BloodGroup:    strings.ToUpper(strings.TrimSpace(input.BloodGroup)),
    UnitsRequired: input.UnitsRequired,
    Urgency:       input.Urgency,
    Status:        types.RequestStatusPending,
    PatientName:   strings.TrimSpace(input.PatientName),
    Notes:         strings.TrimSpace(input.Notes),
    RequiredBy:    input.RequiredBy,
  }
  if _, err := s.requestRepo.Create(ctx, nil, req); err != nil {
    return nil, fmt.Errorf("Failed to create request: %w", err)
  }

  if err := s.enqueueMatchRun(ctx, req.ID, s.cfg.RadiusKmDefault, s.cfg.TopKDefault); err != nil {
    // The request exists; a retry command can recover the missing run.
    s.log.Error("Failed to enqueue match run", "request_id", req.ID, "error", err)
  }
  s.log.Info("Request created", "request_id", req.ID, "blood_group", req.BloodGroup, "urgency", req.Urgency)
  return req, nil
}

func validateCreateRequest(input *CreateRequestInput) error {
  input.BloodGroup = strings.ToUpper(strings.TrimSpace(input.BloodGroup))
  if !blood.ValidGroup(input.BloodGroup) {
    return fmt.Errorf("%w: invalid blood group %q", ErrValidation, input.BloodGroup)
  }
  if input.UnitsRequired < 1 || input.UnitsRequired > maxUnitsPerRequest {
    return fmt.Errorf("%w: units_required must be between 1 and %d", ErrValidation, maxUnitsPerRequest)
  }
  if input.Urgency == "" {
    input.Urgency = "medium"
  }
  if !blood.ValidUrgency(input.Urgency) {
    return fmt.Errorf("%w: invalid urgency %q", ErrValidation, input.Urgency)
  }
  if !input.RequiredBy.After(time.Now()) {
    return fmt.Errorf("%w: required_by must be in the future", ErrValidation)
  }
  if len(input.PatientName) > maxPatientNameLen {
    return fmt.Errorf("%w: patient_name too long", ErrValidation)
  }
  if len(input.Notes) > maxNotesLen {
    return fmt.Errorf("%w: notes too long", ErrValidation)
  }
  return nil
}

func (s *requestService) RetryMatching(ctx context.Context, requestID uuid.UUID) error {
  req, err := s.authorizedRequest(ctx, requestID)
  if err != nil {
    return err
  }
  if err := s.enqueueMatchRun(ctx, req.ID, s.cfg.RadiusKmDefault, s.cfg.TopKDefault); err != nil {
    return fmt.Errorf("Failed to enqueue retry run: %w", err)
  }
  s.log.Info("Match retry queued", "request_id", req.ID)
  return nil
}

func (s *requestService) ExpandSearch(ctx context.Context, requestID uuid.UUID, radiusKm float64) error {
  if radiusKm < s.cfg.RadiusKmDefault || radiusKm > s.cfg.RadiusKmMax {
    return fmt.Errorf("%w: radius_km must be between %.0f and %.0f", ErrValidation, s.cfg.RadiusKmDefault, s.cfg.RadiusKmMax)
  }
  req, err := s.authorizedRequest(ctx, requestID)
  if err != nil {
    return err
  }
  if err := s.enqueueMatchRun(ctx, req.ID, radiusKm, s.cfg.TopKExpanded); err != nil {
    return fmt.Errorf("Failed to enqueue expanded run: %w", err)
  }
  s.log.Info("Expanded search queued", "request_id", req.ID, "radius_km", radiusKm)
  return nil
}

func (s *requestService) GetRequest(ctx context.Context, requestID uuid.UUID) (*types.Request, error) {
  req, err := s.requestRepo.GetByID(ctx, nil, requestID)
  if err != nil {
    return nil, fmt.Errorf("Failed to load request: %w", err)
  }
  if req == nil {
    return nil, fmt.Errorf("%w: request %s", ErrNotFound, requestID)
  }
  return req, nil
}

func (s *requestService) ListMine(ctx context.Context, limit int) ([]*types.Request, error) {
  rd := requestdata.GetRequestData(ctx)
  if rd == nil {
    return nil, fmt.Errorf("%w: missing caller identity", ErrForbidden)
  }
  if limit <= 0 || limit > 100 {
    limit = 50
  }
  out, err := s.requestRepo.ListBySeeker(ctx, nil, rd.UserID, limit)
  if err != nil {
    return nil, fmt.Errorf("Failed to list requests: %w", err)
  }
  return out, nil
}

// CloseRequest lets the seeker (or an admin) settle a request. Only the
// completed and cancelled terminal states are reachable this way; the
// pipeline owns every other transition.
func (s *requestService) CloseRequest(ctx context.Context, requestID uuid.UUID, status string) error {
  if status != types.RequestStatusCompleted && status != types.RequestStatusCancelled {
    return fmt.Errorf("%w: status must be %q or %q", ErrValidation, types.RequestStatusCompleted, types.RequestStatusCancelled)
  }
  req, err := s.authorizedRequest(ctx, requestID)
  if err != nil {
    return err
  }
  if req.Status == types.RequestStatusCompleted || req.Status == types.RequestStatusCancelled {
    return fmt.Errorf("%w: request already %s", ErrValidation, req.Status)
  }
  if err := s.requestRepo.UpdateStatus(ctx, nil, req.ID, status); err != nil {
    return fmt.Errorf("Failed to update request status: %w", err)
  }
  s.log.Info("Request closed", "request_id", req.ID, "status", status)
  return nil
}

// GetMatchJob exposes a queued or finished run row for operator
// dashboards. Route-level guards keep it admin only.
func (s *requestService) GetMatchJob(ctx context.Context, jobID uuid.UUID) (*types.JobRun, error) {
  job, err := s.jobRunRepo.GetByID(ctx, nil, jobID)
  if err != nil {
    return nil, fmt.Errorf("Failed to load job run: %w", err)
  }
  if job == nil {
    return nil, fmt.Errorf("%w: job %s", ErrNotFound, jobID)
  }
  return job, nil
}

// authorizedRequest loads the request and enforces the seeker-or-admin
// guard shared by retry and expand.
func (s *requestService) authorizedRequest(ctx context.Context, requestID uuid.UUID) (*types.Request, error) {
  req, err := s.GetRequest(ctx, requestID)
  if err != nil {
    return nil, err
  }
  rd := requestdata.GetRequestData(ctx)
  if rd == nil {
    return nil, fmt.Errorf("%w: missing caller identity", ErrForbidden)
  }
  if rd.IsAdmin() {
    return req, nil
  }
  if req.SeekerID != nil && *req.SeekerID == rd.UserID {
    return req, nil
  }
  return nil, fmt.Errorf("%w: only the seeker or an admin may act on this request", ErrForbidden)
}

func (s *requestService) enqueueMatchRun(ctx context.Context, requestID uuid.UUID, radiusKm float64, topK int) error {
  payload, err := json.Marshal(map[string]any{
    "request_id": requestID.String(),
    "radius_km":  radiusKm,
    "top_k":      topK,
  })
  if err != nil {
    return err
  }
  entityID := requestID
  _, err = s.jobRunRepo.Create(ctx, nil, &types.JobRun{
    JobType:    JobTypeDonorMatch,
    EntityType: "request",
    EntityID:   &entityID,
    Status:     "queued",
    Payload:    datatypes.JSON(payload),
  })
  return err
}
