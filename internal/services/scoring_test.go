package services

import (
  "context"
  "encoding/json"
  "os"
  "path/filepath"
  "testing"

  "github.com/google/uuid"

  "github.com/smartblood-kerala/smartblood-backend/internal/ml"
  "github.com/smartblood-kerala/smartblood-backend/internal/types"
)

type noopRecorder struct{}

func (noopRecorder) Record(modelName, modelVersion, endpoint string, input any, output any, inferenceMs float64, callErr error) {
}

// emptyRegistry initializes a registry whose file lists no models, so every
// model call fails and the fallback policy applies.
func emptyRegistry(t *testing.T) *ml.Registry {
  t.Helper()
  dir := t.TempDir()
  path := filepath.Join(dir, "registry.json")
  raw, _ := json.Marshal(map[string]any{"models": map[string]any{}})
  if err := os.WriteFile(path, raw, 0o644); err != nil {
    t.Fatalf("write registry: %v", err)
  }
  r := ml.NewRegistry(testLog(t), ml.Config{ArtifactRoot: dir, RegistryPath: path}, nil)
  if err := r.Initialize(); err != nil {
    t.Fatalf("initialize: %v", err)
  }
  return r
}

func TestFallbackScoring(t *testing.T) {
  engine := NewScoringEngine(testLog(t), emptyRegistry(t), noopRecorder{}, 50)

  donor := &types.Donor{
    ID:               uuid.New(),
    BloodGroup:       "A+",
    IsAvailable:      ptrB(true),
    ReliabilityScore: 0.8,
  }
  req := &types.Request{ID: uuid.New(), BloodGroup: "A+", UnitsRequired: 2, Urgency: "high"}

  preds, err := engine.Score(context.Background(), req, []Candidate{{Donor: donor, DistanceKm: 10}})
  if err != nil {
    t.Fatalf("score: %v", err)
  }
  if len(preds) != 1 {
    t.Fatalf("predictions = %d, want 1", len(preds))
  }
  p := preds[0]
  // 0.4*0.7 + 0.3*(1-10/50) + 0.3*0.8 = 0.76
  if p.MatchScore != 0.76 {
    t.Fatalf("fallback score = %v, want 0.76", p.MatchScore)
  }
  if p.AvailabilityScore != 0.7 {
    t.Fatalf("availability = %v, want 0.7", p.AvailabilityScore)
  }
  if p.ResponseTimeHours != 12.0 {
    t.Fatalf("response hours = %v, want 12", p.ResponseTimeHours)
  }
  if len(p.FeatureVector) == 0 {
    t.Fatal("feature vector missing")
  }
}

func TestFallbackScoringUnavailableDonor(t *testing.T) {
  engine := NewScoringEngine(testLog(t), emptyRegistry(t), noopRecorder{}, 50)

  donor := &types.Donor{
    ID:               uuid.New(),
    BloodGroup:       "O-",
    IsAvailable:      ptrB(false),
    ReliabilityScore: 0.5,
  }
  req := &types.Request{ID: uuid.New(), BloodGroup: "O-", UnitsRequired: 1, Urgency: "low"}

  preds, err := engine.Score(context.Background(), req, []Candidate{{Donor: donor, DistanceKm: 0}})
  if err != nil {
    t.Fatalf("score: %v", err)
  }
  if preds[0].AvailabilityScore != 0.1 {
    t.Fatalf("availability = %v, want 0.1", preds[0].AvailabilityScore)
  }
}

func TestSortPredictionsDeterminism(t *testing.T) {
  mk := func(score, dist float64) *types.MatchPrediction {
    return &types.MatchPrediction{DonorID: uuid.New(), MatchScore: score, DistanceKm: dist}
  }
  a := mk(0.90, 5)
  b := mk(0.90, 3)
  c := mk(0.80, 10)
  d := mk(0.70, 2)

  preds := []*types.MatchPrediction{a, b, c, d}
  sortPredictions(preds)

  wantOrder := []*types.MatchPrediction{b, a, c, d}
  for i, p := range wantOrder {
    if preds[i] != p {
      t.Fatalf("position %d: got (%.2f, %.0f km), want (%.2f, %.0f km)",
        i, preds[i].MatchScore, preds[i].DistanceKm, p.MatchScore, p.DistanceKm)
    }
  }
}

func TestSortPredictionsTieBreakByDonorID(t *testing.T) {
  lo := uuid.MustParse("00000000-0000-0000-0000-000000000001")
  hi := uuid.MustParse("ffffffff-ffff-ffff-ffff-ffffffffffff")
  a := &types.MatchPrediction{DonorID: hi, MatchScore: 0.5, DistanceKm: 4}
  b := &types.MatchPrediction{DonorID: lo, MatchScore: 0.5, DistanceKm: 4}

  preds := []*types.MatchPrediction{a, b}
  sortPredictions(preds)
  if preds[0] != b {
    t.Fatal("equal score and distance must order by donor id ascending")
  }
}

func TestCombinedScoreRounding(t *testing.T) {
  // 0.4*0.33333 + 0.3*(1-7/50) + 0.3*0.12345 = 0.428367
  got := combinedScore(0.33333, 7, 0.12345)
  if got != 0.4284 {
    t.Fatalf("combined = %v, want 0.4284", got)
  }
  if s := combinedScore(0, 1000, 0); s != 0 {
    t.Fatalf("distant unreliable donor score = %v, want 0", s)
  }
}
