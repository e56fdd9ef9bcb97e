package services

import (
  "context"
  "testing"
  "time"

  "github.com/google/uuid"
  "gorm.io/gorm"

  "github.com/smartblood-kerala/smartblood-backend/internal/logger"
  "github.com/smartblood-kerala/smartblood-backend/internal/repos"
  "github.com/smartblood-kerala/smartblood-backend/internal/types"
)

func testLog(t *testing.T) *logger.Logger {
  t.Helper()
  log, err := logger.New("development")
  if err != nil {
    t.Fatalf("logger: %v", err)
  }
  return log
}

func ptrF(v float64) *float64 { return &v }
func ptrB(v bool) *bool       { return &v }

type fakeDonorRepo struct {
  repos.DonorRepo
  lastFilter repos.CandidateFilter
  donors     []*types.Donor
}

func (f *fakeDonorRepo) FindCandidates(ctx context.Context, tx *gorm.DB, filter repos.CandidateFilter) ([]*types.Donor, error) {
  f.lastFilter = filter
  return f.donors, nil
}

type fakeUserRepo struct {
  repos.UserRepo
  users map[uuid.UUID]*types.User
}

func (f *fakeUserRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.User, error) {
  return f.users[id], nil
}

type fakeHospitalRepo struct {
  repos.HospitalRepo
  hospitals map[uuid.UUID]*types.Hospital
}

func (f *fakeHospitalRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Hospital, error) {
  return f.hospitals[id], nil
}

func donorAt(lat, lng float64) *types.Donor {
  return &types.Donor{
    ID:         uuid.New(),
    BloodGroup: "A+",
    Lat:        ptrF(lat),
    Lng:        ptrF(lng),
  }
}

func TestSelectDistanceThreshold(t *testing.T) {
  // Reference point is Ernakulam; donors at 0 km, ~3 km and ~66 km.
  near := donorAt(9.9312, 76.2673)
  close3 := donorAt(9.9500, 76.3000)
  far := donorAt(10.5276, 76.2144)
  donorRepo := &fakeDonorRepo{donors: []*types.Donor{near, close3, far}}

  hLat, hLng := 9.9312, 76.2673
  hospitalID := uuid.New()
  sel := NewCandidateSelector(testLog(t), donorRepo, &fakeUserRepo{}, &fakeHospitalRepo{
    hospitals: map[uuid.UUID]*types.Hospital{
      hospitalID: {ID: hospitalID, Lat: &hLat, Lng: &hLng, District: "Ernakulam"},
    },
  }, 96)

  req := &types.Request{ID: uuid.New(), BloodGroup: "A+", HospitalID: &hospitalID}
  out, ref, err := sel.Select(context.Background(), req, 20)
  if err != nil {
    t.Fatalf("select: %v", err)
  }
  if ref.Source != RefSourceHospitalCoords {
    t.Fatalf("ref source = %q", ref.Source)
  }
  if len(out) != 2 {
    t.Fatalf("survivors = %d, want 2 (got %#v)", len(out), out)
  }
  for _, c := range out {
    if c.Donor.ID == far.ID {
      t.Fatal("66 km donor must not survive a 20 km radius")
    }
    if c.DistanceKm > 20 {
      t.Fatalf("distance %.2f exceeds radius", c.DistanceKm)
    }
  }
}

func TestSelectPassesCompatibleGroupsAndCutoff(t *testing.T) {
  donorRepo := &fakeDonorRepo{}
  sel := NewCandidateSelector(testLog(t), donorRepo, &fakeUserRepo{}, &fakeHospitalRepo{}, 96)

  req := &types.Request{ID: uuid.New(), BloodGroup: "A+"}
  before := time.Now()
  if _, _, err := sel.Select(context.Background(), req, 20); err != nil {
    t.Fatalf("select: %v", err)
  }

  want := map[string]bool{"A+": true, "A-": true, "O+": true, "O-": true}
  if len(donorRepo.lastFilter.BloodGroups) != len(want) {
    t.Fatalf("groups = %#v", donorRepo.lastFilter.BloodGroups)
  }
  for _, g := range donorRepo.lastFilter.BloodGroups {
    if !want[g] {
      t.Fatalf("unexpected group %q", g)
    }
  }

  expectedCutoff := before.AddDate(0, 0, -96)
  diff := donorRepo.lastFilter.EligibilityCutoff.Sub(expectedCutoff)
  if diff < -time.Minute || diff > time.Minute {
    t.Fatalf("eligibility cutoff = %v, want ~%v", donorRepo.lastFilter.EligibilityCutoff, expectedCutoff)
  }
}

func TestReferencePointFallbackChain(t *testing.T) {
  seekerID := uuid.New()
  hospitalID := uuid.New()
  users := &fakeUserRepo{users: map[uuid.UUID]*types.User{
    seekerID: {ID: seekerID, District: "Thrissur"},
  }}
  hospitals := &fakeHospitalRepo{hospitals: map[uuid.UUID]*types.Hospital{
    hospitalID: {ID: hospitalID, District: "Kollam"},
  }}
  sel := NewCandidateSelector(testLog(t), &fakeDonorRepo{}, users, hospitals, 96)
  ctx := context.Background()

  // Hospital without coordinates, seeker with a known district.
  ref, err := sel.ResolveReferencePoint(ctx, &types.Request{SeekerID: &seekerID, HospitalID: &hospitalID})
  if err != nil {
    t.Fatalf("resolve: %v", err)
  }
  if ref.Source != RefSourceSeekerDistrict {
    t.Fatalf("source = %q, want seeker_district", ref.Source)
  }

  // No seeker: hospital district centroid.
  ref, err = sel.ResolveReferencePoint(ctx, &types.Request{HospitalID: &hospitalID})
  if err != nil {
    t.Fatalf("resolve: %v", err)
  }
  if ref.Source != RefSourceHospitalDistrict {
    t.Fatalf("source = %q, want hospital_district", ref.Source)
  }

  // Nothing at all: default centroid (Ernakulam).
  ref, err = sel.ResolveReferencePoint(ctx, &types.Request{})
  if err != nil {
    t.Fatalf("resolve: %v", err)
  }
  if ref.Source != RefSourceDefaultCentroid {
    t.Fatalf("source = %q, want default_centroid", ref.Source)
  }
  if ref.Lat != 9.9312 || ref.Lng != 76.2673 {
    t.Fatalf("default centroid = (%v, %v)", ref.Lat, ref.Lng)
  }
}

func TestSelectDonorWithoutCoordsUsesDistrictCentroid(t *testing.T) {
  noCoords := &types.Donor{
    ID:         uuid.New(),
    BloodGroup: "A+",
    User:       &types.User{District: "Ernakulam"},
  }
  donorRepo := &fakeDonorRepo{donors: []*types.Donor{noCoords}}
  hLat, hLng := 9.9312, 76.2673
  hospitalID := uuid.New()
  sel := NewCandidateSelector(testLog(t), donorRepo, &fakeUserRepo{}, &fakeHospitalRepo{
    hospitals: map[uuid.UUID]*types.Hospital{
      hospitalID: {ID: hospitalID, Lat: &hLat, Lng: &hLng},
    },
  }, 96)

  req := &types.Request{ID: uuid.New(), BloodGroup: "A+", HospitalID: &hospitalID}
  out, _, err := sel.Select(context.Background(), req, 20)
  if err != nil {
    t.Fatalf("select: %v", err)
  }
  if len(out) != 1 {
    t.Fatalf("survivors = %d, want 1", len(out))
  }
  if out[0].DistanceKm != 0 {
    t.Fatalf("centroid distance = %v, want 0", out[0].DistanceKm)
  }
}
