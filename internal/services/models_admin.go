package services

import (
  "context"
  "fmt"
  "time"

  "github.com/google/uuid"

  "github.com/smartblood-kerala/smartblood-backend/internal/features"
  "github.com/smartblood-kerala/smartblood-backend/internal/logger"
  "github.com/smartblood-kerala/smartblood-backend/internal/metrics"
  "github.com/smartblood-kerala/smartblood-backend/internal/ml"
  "github.com/smartblood-kerala/smartblood-backend/internal/repos"
  "github.com/smartblood-kerala/smartblood-backend/internal/requestdata"
  "github.com/smartblood-kerala/smartblood-backend/internal/types"
)

// AvailabilityInsight is the single-donor availability readout shown on
// admin and donor dashboards.
type AvailabilityInsight struct {
  DonorID      uuid.UUID `json:"donor_id"`
  Probability  float64   `json:"probability"`
  ModelVersion string    `json:"model_version,omitempty"`
  Fallback     bool      `json:"fallback"`
  Note         string    `json:"note,omitempty"`
}

type ModelAdminService interface {
  ListModels(ctx context.Context) []ml.ModelInfo
  ReloadModel(ctx context.Context, name string) error
  PredictAvailability(ctx context.Context, donorID uuid.UUID) (*AvailabilityInsight, error)
  PredictMyAvailability(ctx context.Context) (*AvailabilityInsight, error)
}

type modelAdminService struct {
  log          *logger.Logger
  registry     *ml.Registry
  donorRepo    repos.DonorRepo
  artifactRepo repos.ModelArtifactRepo
  recorder     PredictionRecorder
}

func NewModelAdminService(log *logger.Logger, registry *ml.Registry, donorRepo repos.DonorRepo, artifactRepo repos.ModelArtifactRepo, recorder PredictionRecorder) ModelAdminService {
  return &modelAdminService{
    log:          log.With("service", "ModelAdminService"),
    registry:     registry,
    donorRepo:    donorRepo,
    artifactRepo: artifactRepo,
    recorder:     recorder,
  }
}

func (s *modelAdminService) ListModels(ctx context.Context) []ml.ModelInfo {
  return s.registry.List()
}

func (s *modelAdminService) ReloadModel(ctx context.Context, name string) error {
  if err := s.registry.Reload(ctx, name); err != nil {
    return fmt.Errorf("Failed to reload model %q: %w", name, err)
  }
  metrics.ModelReloadsTotal.WithLabelValues(name).Inc()
  s.recordDeployment(ctx, name)
  s.log.Info("Model reloaded", "model", name, "version", s.registry.Version(name))
  return nil
}

// recordDeployment keeps the model_artifact table in sync with what the
// registry actually serves. Audit only, so failures are logged and dropped.
func (s *modelAdminService) recordDeployment(ctx context.Context, name string) {
  for _, info := range s.registry.List() {
    if info.Name != name {
      continue
    }
    artifact := &types.ModelArtifact{
      ModelName:    info.Name,
      Version:      info.Version,
      ArtifactPath: info.ArtifactPath,
      IsActive:     info.Loaded,
    }
    if err := s.artifactRepo.Upsert(ctx, nil, artifact); err != nil {
      s.log.Warn("Failed to record model deployment", "model", name, "error", err)
    }
    return
  }
}

func (s *modelAdminService) PredictAvailability(ctx context.Context, donorID uuid.UUID) (*AvailabilityInsight, error) {
  donor, err := s.donorRepo.GetByID(ctx, nil, donorID)
  if err != nil {
    return nil, fmt.Errorf("Failed to load donor: %w", err)
  }
  if donor == nil {
    return nil, fmt.Errorf("%w: donor %s", ErrNotFound, donorID)
  }
  return s.availabilityInsight(ctx, donor)
}

// PredictMyAvailability is the donor self-service variant, resolving the
// donor profile from the authenticated caller.
func (s *modelAdminService) PredictMyAvailability(ctx context.Context) (*AvailabilityInsight, error) {
  rd := requestdata.GetRequestData(ctx)
  if rd == nil {
    return nil, fmt.Errorf("%w: missing caller identity", ErrForbidden)
  }
  donor, err := s.donorRepo.GetByUserID(ctx, nil, rd.UserID)
  if err != nil {
    return nil, fmt.Errorf("Failed to load donor profile: %w", err)
  }
  if donor == nil {
    return nil, fmt.Errorf("%w: no donor profile for user %s", ErrNotFound, rd.UserID)
  }
  return s.availabilityInsight(ctx, donor)
}

func (s *modelAdminService) availabilityInsight(ctx context.Context, donor *types.Donor) (*AvailabilityInsight, error) {
  feats := features.Availability(donor, time.Now())
  probs, ms, err := s.registry.PredictProba(ctx, ml.ModelDonorAvailability, feats)
  s.recorder.Record(ml.ModelDonorAvailability, s.registry.Version(ml.ModelDonorAvailability), "predict_availability", feats, probs, ms, err)
  if err != nil || len(probs) != 2 {
    return &AvailabilityInsight{
      DonorID:     donor.ID,
      Probability: clamp01(fallbackAvailability(donor)),
      Fallback:    true,
      Note:        "model unavailable; heuristic estimate",
    }, nil
  }
  return &AvailabilityInsight{
    DonorID:      donor.ID,
    Probability:  clamp01(probs[1]),
    ModelVersion: s.registry.Version(ml.ModelDonorAvailability),
  }, nil
}
