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

// memPredStore keeps predictions in memory with the same contract as the
// real repo: ReplaceForRequest carries notified state forward per donor,
// ClaimNotified flips the flag exactly once.
type memPredStore struct {
  repos.MatchPredictionRepo
  rows []*types.MatchPrediction
}

func (s *memPredStore) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.MatchPrediction, error) {
  for _, r := range s.rows {
    if r.ID == id {
      return r, nil
    }
  }
  return nil, nil
}

func (s *memPredStore) ReplaceForRequest(ctx context.Context, tx *gorm.DB, requestID uuid.UUID, preds []*types.MatchPrediction) error {
  notified := map[uuid.UUID]bool{}
  var kept []*types.MatchPrediction
  for _, r := range s.rows {
    if r.RequestID == requestID {
      if r.Notified {
        notified[r.DonorID] = true
      }
      continue
    }
    kept = append(kept, r)
  }
  for _, p := range preds {
    if notified[p.DonorID] {
      p.Notified = true
    }
    kept = append(kept, p)
  }
  s.rows = kept
  return nil
}

func (s *memPredStore) AssignRanks(ctx context.Context, tx *gorm.DB, requestID uuid.UUID, orderedIDs []uuid.UUID) error {
  for i, id := range orderedIDs {
    for _, r := range s.rows {
      if r.ID == id {
        rank := i + 1
        r.Rank = &rank
      }
    }
  }
  return nil
}

func (s *memPredStore) ClaimNotified(ctx context.Context, tx *gorm.DB, id uuid.UUID) (bool, error) {
  for _, r := range s.rows {
    if r.ID == id {
      if r.Notified {
        return false, nil
      }
      r.Notified = true
      return true, nil
    }
  }
  return false, nil
}

func (s *memPredStore) CountForRequest(ctx context.Context, tx *gorm.DB, requestID uuid.UUID) (int64, error) {
  var n int64
  for _, r := range s.rows {
    if r.RequestID == requestID {
      n++
    }
  }
  return n, nil
}

func (s *memPredStore) CountNotified(ctx context.Context, tx *gorm.DB, requestID uuid.UUID) (int64, error) {
  var n int64
  for _, r := range s.rows {
    if r.RequestID == requestID && r.Notified {
      n++
    }
  }
  return n, nil
}

func (s *memPredStore) GetByRequest(ctx context.Context, tx *gorm.DB, requestID uuid.UUID) ([]*types.MatchPrediction, error) {
  var out []*types.MatchPrediction
  for _, r := range s.rows {
    if r.RequestID == requestID {
      out = append(out, r)
    }
  }
  return out, nil
}

type stubSelector struct {
  candidates []Candidate
}

func (s *stubSelector) Select(ctx context.Context, req *types.Request, radiusKm float64) ([]Candidate, ReferencePoint, error) {
  return s.candidates, ReferencePoint{Lat: 9.93, Lng: 76.26, Source: RefSourceHospitalCoords}, nil
}

func (s *stubSelector) ResolveReferencePoint(ctx context.Context, req *types.Request) (ReferencePoint, error) {
  return ReferencePoint{Lat: 9.93, Lng: 76.26, Source: RefSourceHospitalCoords}, nil
}

// stubScorer builds fresh unnotified predictions each run, the way the
// real engine does.
type stubScorer struct{}

func (stubScorer) Score(ctx context.Context, req *types.Request, candidates []Candidate) ([]*types.MatchPrediction, error) {
  preds := make([]*types.MatchPrediction, 0, len(candidates))
  for i, c := range candidates {
    preds = append(preds, &types.MatchPrediction{
      RequestID:  req.ID,
      DonorID:    c.Donor.ID,
      MatchScore: 1 - float64(i)*0.1,
      DistanceKm: c.DistanceKm,
    })
  }
  return preds, nil
}

type transitioningRequestRepo struct {
  repos.RequestRepo
  req *types.Request
}

func (f *transitioningRequestRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Request, error) {
  if f.req != nil && f.req.ID == id {
    return f.req, nil
  }
  return nil, nil
}

func (f *transitioningRequestRepo) TransitionStatus(ctx context.Context, tx *gorm.DB, id uuid.UUID, from, to string) (bool, error) {
  if f.req != nil && f.req.ID == id && f.req.Status == from {
    f.req.Status = to
    return true, nil
  }
  return false, nil
}

func TestRerunDoesNotRenotifyDonor(t *testing.T) {
  donor := &types.Donor{ID: uuid.New(), UserID: uuid.New(), BloodGroup: "O-"}
  donor.User = &types.User{ID: donor.UserID, Email: "donor@example.com", Phone: "+919876543210"}
  req := &types.Request{
    ID:            uuid.New(),
    BloodGroup:    "O-",
    UnitsRequired: 2,
    Urgency:       "high",
    Status:        types.RequestStatusPending,
    CreatedAt:     time.Now(),
  }

  store := &memPredStore{}
  notifications := &countingNotificationRepo{}
  dispatcher := NewNotificationDispatcher(
    testLog(t),
    store,
    &fakeDonorByID{donor: donor},
    &fakeRequestByID{req: req},
    notifications,
    nil,
    nil,
  )
  svc := NewMatchService(
    testLog(t),
    &transitioningRequestRepo{req: req},
    store,
    &stubSelector{candidates: []Candidate{{Donor: donor, DistanceKm: 4.2}}},
    stubScorer{},
    dispatcher,
    noopRecorder{},
    nil,
  )

  first, err := svc.MatchForRequest(context.Background(), req.ID, 20, 10, true)
  if err != nil {
    t.Fatalf("first run: %v", err)
  }
  // A retry or expanded search re-scores the same donor from scratch.
  second, err := svc.MatchForRequest(context.Background(), req.ID, 40, 10, true)
  if err != nil {
    t.Fatalf("second run: %v", err)
  }

  if len(notifications.created) != 1 {
    t.Fatalf("notifications across reruns = %d, want exactly 1", len(notifications.created))
  }
  if first.NotifiedCount != 1 || second.NotifiedCount != 1 {
    t.Fatalf("notified counts = %d then %d, want 1 and 1", first.NotifiedCount, second.NotifiedCount)
  }
  preds, _ := store.GetByRequest(context.Background(), nil, req.ID)
  if len(preds) != 1 || !preds[0].Notified {
    t.Fatalf("stored predictions = %#v, want one notified row", preds)
  }
}
