package services

import (
  "context"
  "testing"
  "time"

  "github.com/google/uuid"
  "gorm.io/datatypes"
  "gorm.io/gorm"

  "github.com/smartblood-kerala/smartblood-backend/internal/repos"
  "github.com/smartblood-kerala/smartblood-backend/internal/types"
)

func TestDeriveMatchStatus(t *testing.T) {
  grace := 30 * time.Second
  deadline := 60 * time.Second

  cases := []struct {
    name     string
    age      time.Duration
    found    int
    notified int
    topK     int
    want     string
  }{
    {"fresh request, nothing yet", 5 * time.Second, 0, 0, 10, MatchStatusRunning},
    {"deadline passed, nothing found", 90 * time.Second, 0, 0, 10, MatchStatusNoneFound},
    {"everything notified", 5 * time.Second, 10, 10, 10, MatchStatusDone},
    {"fewer found than top_k, all notified", 5 * time.Second, 3, 3, 10, MatchStatusDone},
    {"found but still dispatching inside grace", 10 * time.Second, 10, 2, 10, MatchStatusRunning},
    {"found, grace expired", 45 * time.Second, 10, 2, 10, MatchStatusDone},
    {"exactly at deadline, nothing found", 60 * time.Second, 0, 0, 10, MatchStatusNoneFound},
  }
  for _, tc := range cases {
    got := deriveMatchStatus(tc.age, tc.found, tc.notified, tc.topK, grace, deadline)
    if got != tc.want {
      t.Fatalf("%s: status = %q, want %q", tc.name, got, tc.want)
    }
  }
}

type stubJobRunRepo struct {
  repos.JobRunRepo
  latest *types.JobRun
}

func (f *stubJobRunRepo) GetLatestByEntity(ctx context.Context, tx *gorm.DB, entityType string, entityID uuid.UUID, jobType string) (*types.JobRun, error) {
  return f.latest, nil
}

type donorsByIDs struct {
  repos.DonorRepo
  donors []*types.Donor
}

func (f *donorsByIDs) GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.Donor, error) {
  return f.donors, nil
}

// After an expanded search the latest run's top_k governs the status rule,
// not the configured default. 12 found with 10 notified under K=15 is still
// running inside the grace window; the default K=10 would call it done.
func TestMatchStatusUsesQueuedTopK(t *testing.T) {
  req := &types.Request{
    ID:         uuid.New(),
    BloodGroup: "B+",
    Status:     types.RequestStatusInProgress,
    CreatedAt:  time.Now(),
  }

  store := &memPredStore{}
  for i := 0; i < 12; i++ {
    store.rows = append(store.rows, &types.MatchPrediction{
      ID:        uuid.New(),
      RequestID: req.ID,
      DonorID:   uuid.New(),
      Notified:  i < 10,
    })
  }

  jobs := &stubJobRunRepo{latest: &types.JobRun{
    ID:      uuid.New(),
    JobType: "donor_match",
    Payload: datatypes.JSON([]byte(`{"request_id":"` + req.ID.String() + `","radius_km":100,"top_k":15}`)),
  }}

  svc := NewMatchStatusService(
    testLog(t),
    &fakeRequestByID{req: req},
    store,
    &donorsByIDs{},
    jobs,
    10, // configured default K
    50,
    30,
    60,
  )

  resp, err := svc.GetMatchStatus(context.Background(), req.ID, nil)
  if err != nil {
    t.Fatalf("get match status: %v", err)
  }
  if resp.Status != MatchStatusRunning {
    t.Fatalf("status = %q, want %q under the expanded run's top_k", resp.Status, MatchStatusRunning)
  }
  if resp.FoundCount != 12 || resp.NotifiedCount != 10 {
    t.Fatalf("counts = %d/%d, want 12/10", resp.FoundCount, resp.NotifiedCount)
  }
  if resp.SearchMetadata.RadiusKm != 100 {
    t.Fatalf("radius = %v, want the expanded 100", resp.SearchMetadata.RadiusKm)
  }
}
