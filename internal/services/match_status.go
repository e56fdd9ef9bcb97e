package services

import (
  "context"
  "encoding/json"
  "fmt"
  "time"

  "github.com/google/uuid"

  "github.com/smartblood-kerala/smartblood-backend/internal/geo"
  "github.com/smartblood-kerala/smartblood-backend/internal/logger"
  "github.com/smartblood-kerala/smartblood-backend/internal/repos"
  "github.com/smartblood-kerala/smartblood-backend/internal/types"
)

const (
  MatchStatusRunning   = "running"
  MatchStatusNoneFound = "none_found"
  MatchStatusDone      = "done"
)

type MatchRecord struct {
  MatchPredictionID uuid.UUID `json:"match_prediction_id"`
  DonorID           uuid.UUID `json:"donor_id"`
  Name              string    `json:"name"`
  BloodGroup        string    `json:"blood_group"`
  District          string    `json:"district"`
  DistanceKm        float64   `json:"distance_km"`
  MatchScore        float64   `json:"match_score"`
  AvailabilityScore float64   `json:"availability_score"`
  ResponseTimeHours float64   `json:"response_time_hours"`
  ReliabilityScore  float64   `json:"reliability_score"`
  Rank              *int      `json:"rank,omitempty"`
  Notified          bool      `json:"notified"`
  Phone             string    `json:"phone,omitempty"`
  Email             string    `json:"email,omitempty"`
  Lat               *float64  `json:"lat,omitempty"`
  Lng               *float64  `json:"lng,omitempty"`
  CreatedAt         time.Time `json:"created_at"`
}

type SearchMetadata struct {
  RadiusKm     float64  `json:"radius_km"`
  HospitalName string   `json:"hospital_name,omitempty"`
  HospitalLat  float64  `json:"hospital_lat"`
  HospitalLng  float64  `json:"hospital_lng"`
}

type MatchStatusResponse struct {
  RequestID      uuid.UUID      `json:"request_id"`
  RequestStatus  string         `json:"request_status"`
  Status         string         `json:"status"`
  FoundCount     int            `json:"found_count"`
  NotifiedCount  int            `json:"notified_count"`
  Matched        []MatchRecord  `json:"matched"`
  SearchMetadata SearchMetadata `json:"search_metadata"`
  GeneratedAt    time.Time      `json:"generated_at"`
}

type MatchStatusService interface {
  GetMatchStatus(ctx context.Context, requestID uuid.UUID, since *time.Time) (*MatchStatusResponse, error)
}

type matchStatusService struct {
  log             *logger.Logger
  requestRepo     repos.RequestRepo
  matchPredRepo   repos.MatchPredictionRepo
  donorRepo       repos.DonorRepo
  jobRunRepo      repos.JobRunRepo
  topKDefault     int
  radiusKmDefault float64
  runningGrace    time.Duration
  noneFoundAfter  time.Duration
}

func NewMatchStatusService(
  log *logger.Logger,
  requestRepo repos.RequestRepo,
  matchPredRepo repos.MatchPredictionRepo,
  donorRepo repos.DonorRepo,
  jobRunRepo repos.JobRunRepo,
  topKDefault int,
  radiusKmDefault float64,
  runningGraceSeconds int,
  noneFoundDeadlineSeconds int,
) MatchStatusService {
  return &matchStatusService{
    log:             log.With("service", "MatchStatusService"),
    requestRepo:     requestRepo,
    matchPredRepo:   matchPredRepo,
    donorRepo:       donorRepo,
    jobRunRepo:      jobRunRepo,
    topKDefault:     topKDefault,
    radiusKmDefault: radiusKmDefault,
    runningGrace:    time.Duration(runningGraceSeconds) * time.Second,
    noneFoundAfter:  time.Duration(noneFoundDeadlineSeconds) * time.Second,
  }
}

// deriveMatchStatus is the pure status rule: nothing yet means running
// until the deadline passes; everything notified means done; a fresh
// request keeps polling through the grace window.
func deriveMatchStatus(age time.Duration, foundCount, notifiedCount, topK int, grace, noneFoundAfter time.Duration) string {
  if foundCount == 0 {
    if age < noneFoundAfter {
      return MatchStatusRunning
    }
    return MatchStatusNoneFound
  }
  expected := topK
  if foundCount < expected {
    expected = foundCount
  }
  if notifiedCount >= expected {
    return MatchStatusDone
  }
  if age < grace {
    return MatchStatusRunning
  }
  return MatchStatusDone
}

func (s *matchStatusService) GetMatchStatus(ctx context.Context, requestID uuid.UUID, since *time.Time) (*MatchStatusResponse, error) {
  req, err := s.requestRepo.GetByID(ctx, nil, requestID)
  if err != nil {
    return nil, fmt.Errorf("Failed to load request: %w", err)
  }
  if req == nil {
    return nil, fmt.Errorf("%w: request %s", ErrNotFound, requestID)
  }

  foundCount, err := s.matchPredRepo.CountForRequest(ctx, nil, requestID)
  if err != nil {
    return nil, fmt.Errorf("Failed to count predictions: %w", err)
  }
  notifiedCount, err := s.matchPredRepo.CountNotified(ctx, nil, requestID)
  if err != nil {
    return nil, fmt.Errorf("Failed to count notified predictions: %w", err)
  }

  var visible []*types.MatchPrediction
  if since != nil {
    visible, err = s.matchPredRepo.GetByRequestSince(ctx, nil, requestID, *since)
  } else {
    visible, err = s.matchPredRepo.GetByRequest(ctx, nil, requestID)
  }
  if err != nil {
    return nil, fmt.Errorf("Failed to load predictions: %w", err)
  }

  donorIDs := make([]uuid.UUID, 0, len(visible))
  for _, p := range visible {
    donorIDs = append(donorIDs, p.DonorID)
  }
  donors, err := s.donorRepo.GetByIDs(ctx, nil, donorIDs)
  if err != nil {
    return nil, fmt.Errorf("Failed to load donors: %w", err)
  }
  donorByID := make(map[uuid.UUID]*types.Donor, len(donors))
  for _, d := range donors {
    donorByID[d.ID] = d
  }

  matched := make([]MatchRecord, 0, len(visible))
  for _, p := range visible {
    donor := donorByID[p.DonorID]
    if donor == nil || donor.User == nil {
      // A vanished donor never fails the read; the match is omitted.
      continue
    }
    rec := MatchRecord{
      MatchPredictionID: p.ID,
      DonorID:           p.DonorID,
      Name:              donor.User.FirstName + " " + donor.User.LastName,
      BloodGroup:        donor.BloodGroup,
      District:          donor.User.District,
      DistanceKm:        p.DistanceKm,
      MatchScore:        p.MatchScore,
      AvailabilityScore: p.AvailabilityScore,
      ResponseTimeHours: p.ResponseTimeHours,
      ReliabilityScore:  p.ReliabilityScore,
      Rank:              p.Rank,
      Notified:          p.Notified,
      Lat:               donor.Lat,
      Lng:               donor.Lng,
      CreatedAt:         p.CreatedAt,
    }
    if p.Notified {
      rec.Phone = donor.User.Phone
      rec.Email = donor.User.Email
    }
    matched = append(matched, rec)
  }

  now := time.Now()
  radiusKm, topK := s.effectiveRunParams(ctx, req)
  status := deriveMatchStatus(now.Sub(req.CreatedAt), int(foundCount), int(notifiedCount), topK, s.runningGrace, s.noneFoundAfter)

  return &MatchStatusResponse{
    RequestID:      req.ID,
    RequestStatus:  req.Status,
    Status:         status,
    FoundCount:     int(foundCount),
    NotifiedCount:  int(notifiedCount),
    Matched:        matched,
    SearchMetadata: s.searchMetadata(req, radiusKm),
    GeneratedAt:    now,
  }, nil
}

// effectiveRunParams reads the radius and top-K the latest queued run was
// enqueued with, so an expanded search derives status against its own K.
// Defaults apply when no run exists.
func (s *matchStatusService) effectiveRunParams(ctx context.Context, req *types.Request) (float64, int) {
  radiusKm := s.radiusKmDefault
  topK := s.topKDefault
  if job, err := s.jobRunRepo.GetLatestByEntity(ctx, nil, "request", req.ID, "donor_match"); err == nil && job != nil && len(job.Payload) > 0 {
    var payload struct {
      RadiusKm float64 `json:"radius_km"`
      TopK     int     `json:"top_k"`
    }
    if json.Unmarshal(job.Payload, &payload) == nil {
      if payload.RadiusKm > 0 {
        radiusKm = payload.RadiusKm
      }
      if payload.TopK > 0 {
        topK = payload.TopK
      }
    }
  }
  return radiusKm, topK
}

// searchMetadata reports the effective radius and the hospital position,
// substituting the district centroid when real coordinates are absent.
func (s *matchStatusService) searchMetadata(req *types.Request, radiusKm float64) SearchMetadata {
  meta := SearchMetadata{RadiusKm: radiusKm}

  district := ""
  if req.Hospital != nil {
    meta.HospitalName = req.Hospital.Name
    district = req.Hospital.District
    if req.Hospital.Lat != nil && req.Hospital.Lng != nil {
      meta.HospitalLat = *req.Hospital.Lat
      meta.HospitalLng = *req.Hospital.Lng
      return meta
    }
  }
  p := geo.DistrictCentroid(district)
  meta.HospitalLat = p.Lat
  meta.HospitalLng = p.Lng
  return meta
}
