package services

import (
  "bytes"
  "context"
  "encoding/json"
  "fmt"
  "math"
  "sort"
  "sync"
  "time"

  "golang.org/x/sync/errgroup"
  "gorm.io/datatypes"

  "github.com/smartblood-kerala/smartblood-backend/internal/features"
  "github.com/smartblood-kerala/smartblood-backend/internal/logger"
  "github.com/smartblood-kerala/smartblood-backend/internal/ml"
  "github.com/smartblood-kerala/smartblood-backend/internal/types"
)

// Per-call fallbacks, applied when an individual model call fails. A donor
// never drops out of the run because one predictor is unhealthy.
const (
  fallbackAvailableScore   = 0.7
  fallbackUnavailableScore = 0.1
  fallbackResponseHours    = 12.0
  proximityHalfDistanceKm  = 50.0
)

type ScoringEngine interface {
  Score(ctx context.Context, req *types.Request, candidates []Candidate) ([]*types.MatchPrediction, error)
}

type scoringEngine struct {
  log       *logger.Logger
  registry  *ml.Registry
  recorder  PredictionRecorder
  batchSize int
}

func NewScoringEngine(log *logger.Logger, registry *ml.Registry, recorder PredictionRecorder, batchSize int) ScoringEngine {
  if batchSize < 1 {
    batchSize = 50
  }
  return &scoringEngine{
    log:       log.With("service", "ScoringEngine"),
    registry:  registry,
    recorder:  recorder,
    batchSize: batchSize,
  }
}

// Score runs the three model families over every candidate in bounded
// batches and returns unsaved predictions sorted by combined score
// descending, distance ascending, donor id ascending.
func (s *scoringEngine) Score(ctx context.Context, req *types.Request, candidates []Candidate) ([]*types.MatchPrediction, error) {
  now := time.Now()
  var mu sync.Mutex
  out := make([]*types.MatchPrediction, 0, len(candidates))

  for start := 0; start < len(candidates); start += s.batchSize {
    end := start + s.batchSize
    if end > len(candidates) {
      end = len(candidates)
    }
    g, gctx := errgroup.WithContext(ctx)
    for _, cand := range candidates[start:end] {
      cand := cand
      g.Go(func() error {
        pred, err := s.scoreOne(gctx, req, cand, now)
        if err != nil {
          // Candidate-level failure: drop and keep going.
          s.log.Warn("Dropping candidate after scoring failure",
            "request_id", req.ID,
            "donor_id", cand.Donor.ID,
            "error", err,
          )
          return nil
        }
        mu.Lock()
        out = append(out, pred)
        mu.Unlock()
        return nil
      })
    }
    if err := g.Wait(); err != nil {
      return nil, err
    }
    if ctx.Err() != nil {
      return nil, ctx.Err()
    }
  }

  sortPredictions(out)
  return out, nil
}

func (s *scoringEngine) scoreOne(ctx context.Context, req *types.Request, cand Candidate, now time.Time) (*types.MatchPrediction, error) {
  donor := cand.Donor
  if donor == nil {
    return nil, fmt.Errorf("candidate without donor")
  }

  matchFeats := features.Match(donor, req, cand.DistanceKm, now)
  availFeats := features.Availability(donor, now)
  respFeats := features.ResponseTime(donor, req, cand.DistanceKm, now)

  rawMatch, ms, err := s.registry.Predict(ctx, ml.ModelDonorSeekerMatch, matchFeats)
  s.recorder.Record(ml.ModelDonorSeekerMatch, s.registry.Version(ml.ModelDonorSeekerMatch), "score_candidates", matchFeats, rawMatch, ms, err)
  if err != nil {
    rawMatch = 0
  }

  availability := fallbackAvailability(donor)
  probs, ms, err := s.registry.PredictProba(ctx, ml.ModelDonorAvailability, availFeats)
  s.recorder.Record(ml.ModelDonorAvailability, s.registry.Version(ml.ModelDonorAvailability), "score_candidates", availFeats, probs, ms, err)
  if err == nil && len(probs) == 2 {
    availability = probs[1]
  }
  availability = clamp01(availability)

  responseHours, ms, err := s.registry.Predict(ctx, ml.ModelDonorResponseTime, respFeats)
  s.recorder.Record(ml.ModelDonorResponseTime, s.registry.Version(ml.ModelDonorResponseTime), "score_candidates", respFeats, responseHours, ms, err)
  if err != nil {
    responseHours = fallbackResponseHours
  }
  if responseHours < 0 {
    responseHours = 0
  }

  score := combinedScore(availability, cand.DistanceKm, donor.ReliabilityScore)

  vec, err := json.Marshal(map[string]any{
    "match":           matchFeats,
    "availability":    availFeats,
    "response_time":   respFeats,
    "raw_match_score": rawMatch,
  })
  if err != nil {
    return nil, fmt.Errorf("Failed to serialize feature vector: %w", err)
  }

  return &types.MatchPrediction{
    RequestID:         req.ID,
    DonorID:           donor.ID,
    MatchScore:        score,
    AvailabilityScore: availability,
    ResponseTimeHours: responseHours,
    ReliabilityScore:  donor.ReliabilityScore,
    DistanceKm:        cand.DistanceKm,
    FeatureVector:     datatypes.JSON(vec),
    ModelVersion:      s.registry.Version(ml.ModelDonorSeekerMatch),
  }, nil
}

// combinedScore is the authoritative weighted formula: availability 0.4,
// proximity 0.3, reliability 0.3, rounded to 4 decimals.
func combinedScore(availability, distanceKm, reliability float64) float64 {
  proximity := math.Max(0, 1-distanceKm/proximityHalfDistanceKm)
  score := 0.4*availability + 0.3*proximity + 0.3*reliability
  return math.Round(score*10000) / 10000
}

func fallbackAvailability(donor *types.Donor) float64 {
  if donor.IsAvailable == nil || *donor.IsAvailable {
    return fallbackAvailableScore
  }
  return fallbackUnavailableScore
}

func clamp01(v float64) float64 {
  if v < 0 {
    return 0
  }
  if v > 1 {
    return 1
  }
  return v
}

// sortPredictions orders by score descending, then distance ascending,
// then donor id ascending so equal inputs always rank identically.
func sortPredictions(preds []*types.MatchPrediction) {
  sort.SliceStable(preds, func(i, j int) bool {
    if preds[i].MatchScore != preds[j].MatchScore {
      return preds[i].MatchScore > preds[j].MatchScore
    }
    if preds[i].DistanceKm != preds[j].DistanceKm {
      return preds[i].DistanceKm < preds[j].DistanceKm
    }
    return bytes.Compare(preds[i].DonorID[:], preds[j].DonorID[:]) < 0
  })
}
