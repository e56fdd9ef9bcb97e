package services

import (
  "context"
  "testing"
  "time"

  "github.com/google/uuid"
  "gorm.io/gorm"

  "github.com/smartblood-kerala/smartblood-backend/internal/repos"
  "github.com/smartblood-kerala/smartblood-backend/internal/types"
)

type districtHospitalRepo struct {
  repos.HospitalRepo
  byDistrict map[string][]*types.Hospital
}

func (f *districtHospitalRepo) ListByDistrict(ctx context.Context, tx *gorm.DB, district string) ([]*types.Hospital, error) {
  return f.byDistrict[district], nil
}

type districtDonorRepo struct {
  repos.DonorRepo
  available []*types.Donor
}

func (f *districtDonorRepo) ListAvailableByDistrict(ctx context.Context, tx *gorm.DB, district string, bloodGroups []string, cutoff time.Time) ([]*types.Donor, error) {
  return f.available, nil
}

func TestNotifyEmergencyDedupsHospitals(t *testing.T) {
  shared := &types.Hospital{ID: uuid.New(), Name: "General", District: "Ernakulam", Phone: "+910000000001"}
  neighbor := &types.Hospital{ID: uuid.New(), Name: "District HQ", District: "Thrissur", Phone: "+910000000002"}
  noPhone := &types.Hospital{ID: uuid.New(), Name: "Clinic", District: "Ernakulam"}

  req := &types.Request{
    ID:            uuid.New(),
    BloodGroup:    "A+",
    UnitsRequired: 2,
    Urgency:       "critical",
    Hospital:      &types.Hospital{District: "Ernakulam"},
  }

  // NeighboringDistricts yields normalized lowercase names.
  hospitals := &districtHospitalRepo{byDistrict: map[string][]*types.Hospital{
    // The same hospital row appearing in two district answers must be
    // counted once.
    "ernakulam": {shared, noPhone},
    "thrissur":  {shared, neighbor},
  }}

  svc := NewEmergencyService(
    testLog(t),
    &fakeRequestByID{req: req},
    hospitals,
    nil,
    &districtDonorRepo{available: []*types.Donor{{ID: uuid.New()}, {ID: uuid.New()}}},
    nil, // no SMS client in tests
    96,
  )

  result, err := svc.NotifyEmergency(context.Background(), req.ID)
  if err != nil {
    t.Fatalf("NotifyEmergency: %v", err)
  }
  if result.HospitalsContacted != 2 {
    t.Fatalf("hospitals_contacted = %d, want 2", result.HospitalsContacted)
  }
  if result.DonorsAvailable != 2 {
    t.Fatalf("donors_available = %d, want 2", result.DonorsAvailable)
  }
}
