package services

import (
  "context"
  "fmt"
  "time"

  "github.com/google/uuid"

  "github.com/smartblood-kerala/smartblood-backend/internal/blood"
  "github.com/smartblood-kerala/smartblood-backend/internal/clients/twilio"
  "github.com/smartblood-kerala/smartblood-backend/internal/geo"
  "github.com/smartblood-kerala/smartblood-backend/internal/logger"
  "github.com/smartblood-kerala/smartblood-backend/internal/repos"
)

// EmergencyResult summarizes an emergency fan-out. DonorsAvailable is an
// informational count of eligible compatible donors in the request's
// district; no donor is contacted by this path.
type EmergencyResult struct {
  HospitalsContacted int `json:"hospitals_contacted"`
  DonorsAvailable    int `json:"donors_available"`
}

// EmergencyService fans an alert out to hospitals in the request's district
// and its neighbors. It deliberately never touches the matching pipeline.
type EmergencyService interface {
  NotifyEmergency(ctx context.Context, requestID uuid.UUID) (*EmergencyResult, error)
}

type emergencyService struct {
  log                *logger.Logger
  requestRepo        repos.RequestRepo
  hospitalRepo       repos.HospitalRepo
  userRepo           repos.UserRepo
  donorRepo          repos.DonorRepo
  sms                twilio.Client
  minEligibilityDays int
}

func NewEmergencyService(
  log *logger.Logger,
  requestRepo repos.RequestRepo,
  hospitalRepo repos.HospitalRepo,
  userRepo repos.UserRepo,
  donorRepo repos.DonorRepo,
  sms twilio.Client,
  minEligibilityDays int,
) EmergencyService {
  return &emergencyService{
    log:                log.With("service", "EmergencyService"),
    requestRepo:        requestRepo,
    hospitalRepo:       hospitalRepo,
    userRepo:           userRepo,
    donorRepo:          donorRepo,
    sms:                sms,
    minEligibilityDays: minEligibilityDays,
  }
}

// NotifyEmergency returns the number of hospitals an SMS was attempted
// for. Individual send failures are logged only.
func (s *emergencyService) NotifyEmergency(ctx context.Context, requestID uuid.UUID) (*EmergencyResult, error) {
  req, err := s.requestRepo.GetByID(ctx, nil, requestID)
  if err != nil {
    return nil, fmt.Errorf("Failed to load request: %w", err)
  }
  if req == nil {
    return nil, fmt.Errorf("%w: request %s", ErrNotFound, requestID)
  }

  district := ""
  if req.Hospital != nil {
    district = req.Hospital.District
  }
  if district == "" && req.SeekerID != nil {
    seeker, err := s.userRepo.GetByID(ctx, nil, *req.SeekerID)
    if err != nil {
      return nil, fmt.Errorf("Failed to load seeker: %w", err)
    }
    if seeker != nil {
      district = seeker.District
    }
  }

  message := fmt.Sprintf("EMERGENCY: %s blood needed urgently (%d unit(s), urgency %s). SmartBlood request %s.",
    req.BloodGroup, req.UnitsRequired, req.Urgency, req.ID)

  seen := map[uuid.UUID]bool{}
  contacted := 0
  for _, d := range geo.NeighboringDistricts(district) {
    hospitals, err := s.hospitalRepo.ListByDistrict(ctx, nil, d)
    if err != nil {
      s.log.Warn("Hospital lookup failed", "district", d, "error", err)
      continue
    }
    for _, h := range hospitals {
      if seen[h.ID] || h.Phone == "" {
        continue
      }
      seen[h.ID] = true
      contacted++
      if s.sms == nil {
        continue
      }
      if _, err := s.sms.SendSMS(ctx, h.Phone, message); err != nil {
        s.log.Warn("Emergency SMS failed", "hospital_id", h.ID, "error", err)
      }
    }
  }

  cutoff := time.Now().AddDate(0, 0, -s.minEligibilityDays)
  donors, err := s.donorRepo.ListAvailableByDistrict(ctx, nil, district, blood.CompatibleDonorGroups(req.BloodGroup), cutoff)
  if err != nil {
    s.log.Warn("Available donor lookup failed", "district", district, "error", err)
  }

  s.log.Info("Emergency fan-out complete", "request_id", req.ID, "district", district, "hospitals", contacted, "donors_available", len(donors))
  return &EmergencyResult{HospitalsContacted: contacted, DonorsAvailable: len(donors)}, nil
}
