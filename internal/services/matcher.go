package services

import (
  "context"
  "fmt"
  "time"

  "github.com/google/uuid"

  sbredis "github.com/smartblood-kerala/smartblood-backend/internal/clients/redis"
  "github.com/smartblood-kerala/smartblood-backend/internal/logger"
  "github.com/smartblood-kerala/smartblood-backend/internal/metrics"
  "github.com/smartblood-kerala/smartblood-backend/internal/ml"
  "github.com/smartblood-kerala/smartblood-backend/internal/repos"
  "github.com/smartblood-kerala/smartblood-backend/internal/types"
)

const (
  OutcomeMatched   = "matched"
  OutcomeNoneFound = "none_found"
)

// MatchRunSummary is what a completed run reports back to the job queue
// and the aggregate prediction log.
type MatchRunSummary struct {
  Outcome       string  `json:"outcome"`
  FoundCount    int     `json:"found_count"`
  NotifiedCount int     `json:"notified_count"`
  TopScore      float64 `json:"top_score"`
  RefSource     string  `json:"ref_source"`
  ElapsedMs     float64 `json:"elapsed_ms"`
}

type MatchService interface {
  MatchForRequest(ctx context.Context, requestID uuid.UUID, radiusKm float64, topK int, save bool) (*MatchRunSummary, error)
}

type matchService struct {
  log           *logger.Logger
  requestRepo   repos.RequestRepo
  matchPredRepo repos.MatchPredictionRepo
  selector      CandidateSelector
  scoring       ScoringEngine
  dispatcher    NotificationDispatcher
  recorder      PredictionRecorder
  bus           sbredis.MatchBus
}

func NewMatchService(
  log *logger.Logger,
  requestRepo repos.RequestRepo,
  matchPredRepo repos.MatchPredictionRepo,
  selector CandidateSelector,
  scoring ScoringEngine,
  dispatcher NotificationDispatcher,
  recorder PredictionRecorder,
  bus sbredis.MatchBus,
) MatchService {
  return &matchService{
    log:           log.With("service", "MatchService"),
    requestRepo:   requestRepo,
    matchPredRepo: matchPredRepo,
    selector:      selector,
    scoring:       scoring,
    dispatcher:    dispatcher,
    recorder:      recorder,
    bus:           bus,
  }
}

// MatchForRequest runs the full pipeline for one request: select, score,
// persist, rank, notify, log. With save=false it stops after scoring and
// returns the would-be summary (dashboard preview).
func (m *matchService) MatchForRequest(ctx context.Context, requestID uuid.UUID, radiusKm float64, topK int, save bool) (*MatchRunSummary, error) {
  start := time.Now()
  runLog := m.log.With("request_id", requestID)

  req, err := m.requestRepo.GetByID(ctx, nil, requestID)
  if err != nil {
    return nil, fmt.Errorf("Failed to load request: %w", err)
  }
  if req == nil {
    return nil, fmt.Errorf("%w: request %s", ErrNotFound, requestID)
  }

  // Idempotent: only a pending request moves; matched/completed/cancelled
  // are never overwritten.
  if save {
    if _, err := m.requestRepo.TransitionStatus(ctx, nil, req.ID, types.RequestStatusPending, types.RequestStatusInProgress); err != nil {
      return nil, fmt.Errorf("Failed to transition request status: %w", err)
    }
  }
  m.publish(ctx, req.ID, "started", 0, "")

  candidates, ref, err := m.selector.Select(ctx, req, radiusKm)
  if err != nil {
    return nil, err
  }
  metrics.MatchCandidatesFound.Observe(float64(len(candidates)))
  if len(candidates) == 0 {
    summary := &MatchRunSummary{
      Outcome:   OutcomeNoneFound,
      RefSource: ref.Source,
      ElapsedMs: elapsedMs(start),
    }
    metrics.MatchRunsTotal.WithLabelValues(OutcomeNoneFound).Inc()
    m.logAggregate(req, radiusKm, topK, summary)
    m.publish(ctx, req.ID, OutcomeNoneFound, 0, "no compatible donors in radius")
    runLog.Info("Match run found no candidates", "radius_km", radiusKm, "ref_source", ref.Source)
    return summary, nil
  }
  m.publish(ctx, req.ID, "scoring", len(candidates), "")

  preds, err := m.scoring.Score(ctx, req, candidates)
  if err != nil {
    return nil, err
  }
  if len(preds) == 0 {
    summary := &MatchRunSummary{
      Outcome:   OutcomeNoneFound,
      RefSource: ref.Source,
      ElapsedMs: elapsedMs(start),
    }
    metrics.MatchRunsTotal.WithLabelValues(OutcomeNoneFound).Inc()
    m.logAggregate(req, radiusKm, topK, summary)
    m.publish(ctx, req.ID, OutcomeNoneFound, 0, "all candidates dropped during scoring")
    return summary, nil
  }

  summary := &MatchRunSummary{
    Outcome:    OutcomeMatched,
    FoundCount: len(preds),
    TopScore:   preds[0].MatchScore,
    RefSource:  ref.Source,
  }

  if !save {
    summary.ElapsedMs = elapsedMs(start)
    return summary, nil
  }

  for _, p := range preds {
    p.ID = uuid.New()
  }
  if err := m.matchPredRepo.ReplaceForRequest(ctx, nil, req.ID, preds); err != nil {
    return nil, fmt.Errorf("Failed to persist predictions: %w", err)
  }

  orderedIDs := make([]uuid.UUID, len(preds))
  for i, p := range preds {
    orderedIDs[i] = p.ID
    rank := i + 1
    p.Rank = &rank
  }
  if err := m.matchPredRepo.AssignRanks(ctx, nil, req.ID, orderedIDs); err != nil {
    return nil, fmt.Errorf("Failed to assign ranks: %w", err)
  }
  m.publish(ctx, req.ID, "ranked", len(preds), "")

  // Notify the top K. Dispatcher failures stay local to the pair. A
  // donor whose notified flag carried over from an earlier run counts
  // but is never contacted again.
  limit := topK
  if limit > len(preds) {
    limit = len(preds)
  }
  for _, p := range preds[:limit] {
    if p.Notified {
      summary.NotifiedCount++
      continue
    }
    if err := m.dispatcher.Dispatch(ctx, p.ID, req.ID); err != nil {
      runLog.Warn("Dispatch failed", "match_prediction_id", p.ID, "error", err)
      continue
    }
    summary.NotifiedCount++
  }

  summary.ElapsedMs = elapsedMs(start)
  metrics.MatchRunsTotal.WithLabelValues(OutcomeMatched).Inc()
  m.logAggregate(req, radiusKm, topK, summary)
  m.publish(ctx, req.ID, "done", summary.FoundCount, "")
  runLog.Info("Match run complete",
    "found", summary.FoundCount,
    "notified", summary.NotifiedCount,
    "top_score", summary.TopScore,
    "elapsed_ms", summary.ElapsedMs,
  )
  return summary, nil
}

func (m *matchService) logAggregate(req *types.Request, radiusKm float64, topK int, summary *MatchRunSummary) {
  m.recorder.Record(
    ml.ModelDonorSeekerMatch,
    "",
    "match_donors_for_request",
    map[string]any{
      "request_id": req.ID,
      "radius_km":  radiusKm,
      "top_k":      topK,
    },
    summary,
    summary.ElapsedMs,
    nil,
  )
}

func (m *matchService) publish(ctx context.Context, requestID uuid.UUID, stage string, found int, msg string) {
  if m.bus == nil {
    return
  }
  _ = m.bus.PublishMatchEvent(ctx, sbredis.MatchEvent{
    RequestID:  requestID.String(),
    Stage:      stage,
    FoundCount: found,
    Message:    msg,
  })
}

func elapsedMs(start time.Time) float64 {
  return float64(time.Since(start).Microseconds()) / 1000.0
}
