package services

import (
  "context"
  "fmt"
  "time"

  "github.com/smartblood-kerala/smartblood-backend/internal/geo"
  "github.com/smartblood-kerala/smartblood-backend/internal/blood"
  "github.com/smartblood-kerala/smartblood-backend/internal/logger"
  "github.com/smartblood-kerala/smartblood-backend/internal/repos"
  "github.com/smartblood-kerala/smartblood-backend/internal/types"
)

// Candidate is one donor that survived the selector's filters, with the
// exact distance from the request's reference point.
type Candidate struct {
  Donor      *types.Donor
  DistanceKm float64
}

// ReferencePoint records which fallback produced the search origin.
type ReferencePoint struct {
  Lat    float64
  Lng    float64
  Source string
}

const (
  RefSourceHospitalCoords   = "hospital_coords"
  RefSourceSeekerDistrict   = "seeker_district"
  RefSourceHospitalDistrict = "hospital_district"
  RefSourceDefaultCentroid  = "default_centroid"
)

type CandidateSelector interface {
  Select(ctx context.Context, req *types.Request, radiusKm float64) ([]Candidate, ReferencePoint, error)
  ResolveReferencePoint(ctx context.Context, req *types.Request) (ReferencePoint, error)
}

type candidateSelector struct {
  log                *logger.Logger
  donorRepo          repos.DonorRepo
  userRepo           repos.UserRepo
  hospitalRepo       repos.HospitalRepo
  minEligibilityDays int
}

func NewCandidateSelector(
  log *logger.Logger,
  donorRepo repos.DonorRepo,
  userRepo repos.UserRepo,
  hospitalRepo repos.HospitalRepo,
  minEligibilityDays int,
) CandidateSelector {
  return &candidateSelector{
    log:                log.With("service", "CandidateSelector"),
    donorRepo:          donorRepo,
    userRepo:           userRepo,
    hospitalRepo:       hospitalRepo,
    minEligibilityDays: minEligibilityDays,
  }
}

// ResolveReferencePoint walks the fallback chain: hospital coordinates,
// seeker's district centroid, hospital's district centroid, then the
// default centroid.
func (s *candidateSelector) ResolveReferencePoint(ctx context.Context, req *types.Request) (ReferencePoint, error) {
  hospital := req.Hospital
  if hospital == nil && req.HospitalID != nil {
    h, err := s.hospitalRepo.GetByID(ctx, nil, *req.HospitalID)
    if err != nil {
      return ReferencePoint{}, fmt.Errorf("Failed to load hospital: %w", err)
    }
    hospital = h
  }
  if hospital != nil && hospital.Lat != nil && hospital.Lng != nil {
    return ReferencePoint{Lat: *hospital.Lat, Lng: *hospital.Lng, Source: RefSourceHospitalCoords}, nil
  }
  if req.SeekerID != nil {
    seeker, err := s.userRepo.GetByID(ctx, nil, *req.SeekerID)
    if err != nil {
      return ReferencePoint{}, fmt.Errorf("Failed to load seeker: %w", err)
    }
    if seeker != nil && geo.KnownDistrict(seeker.District) {
      p := geo.DistrictCentroid(seeker.District)
      return ReferencePoint{Lat: p.Lat, Lng: p.Lng, Source: RefSourceSeekerDistrict}, nil
    }
  }
  if hospital != nil && geo.KnownDistrict(hospital.District) {
    p := geo.DistrictCentroid(hospital.District)
    return ReferencePoint{Lat: p.Lat, Lng: p.Lng, Source: RefSourceHospitalDistrict}, nil
  }
  p := geo.DistrictCentroid("")
  return ReferencePoint{Lat: p.Lat, Lng: p.Lng, Source: RefSourceDefaultCentroid}, nil
}

func (s *candidateSelector) Select(ctx context.Context, req *types.Request, radiusKm float64) ([]Candidate, ReferencePoint, error) {
  ref, err := s.ResolveReferencePoint(ctx, req)
  if err != nil {
    return nil, ReferencePoint{}, err
  }

  groups := blood.CompatibleDonorGroups(req.BloodGroup)
  if len(groups) == 0 {
    return nil, ref, fmt.Errorf("%w: unknown blood group %q", ErrValidation, req.BloodGroup)
  }

  cutoff := time.Now().AddDate(0, 0, -s.minEligibilityDays)
  box := geo.BoundingBox(ref.Lat, ref.Lng, radiusKm)
  donors, err := s.donorRepo.FindCandidates(ctx, nil, repos.CandidateFilter{
    BloodGroups:       groups,
    MinLat:            box.MinLat,
    MaxLat:            box.MaxLat,
    MinLng:            box.MinLng,
    MaxLng:            box.MaxLng,
    EligibilityCutoff: cutoff,
  })
  if err != nil {
    return nil, ref, fmt.Errorf("Failed to query candidate donors: %w", err)
  }

  out := s.filterByDistance(donors, ref, radiusKm)
  s.log.Info("Candidate selection complete",
    "request_id", req.ID,
    "blood_group", req.BloodGroup,
    "radius_km", radiusKm,
    "ref_source", ref.Source,
    "prefiltered", len(donors),
    "selected", len(out),
  )
  return out, ref, nil
}

// filterByDistance applies the exact Haversine check. Donors without
// coordinates fall back to their district centroid.
func (s *candidateSelector) filterByDistance(donors []*types.Donor, ref ReferencePoint, radiusKm float64) []Candidate {
  out := make([]Candidate, 0, len(donors))
  for _, donor := range donors {
    var d float64
    switch {
    case donor.Lat != nil && donor.Lng != nil:
      d = geo.DistanceKm(ref.Lat, ref.Lng, *donor.Lat, *donor.Lng)
    case donor.User != nil && geo.KnownDistrict(donor.User.District):
      p := geo.DistrictCentroid(donor.User.District)
      d = geo.DistanceKm(ref.Lat, ref.Lng, p.Lat, p.Lng)
    default:
      d = geo.MissingDistanceKm
    }
    if d <= radiusKm {
      out = append(out, Candidate{Donor: donor, DistanceKm: d})
    }
  }
  return out
}
