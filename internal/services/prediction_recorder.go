package services

import (
  "context"
  "encoding/json"
  "time"

  "gorm.io/datatypes"

  "github.com/smartblood-kerala/smartblood-backend/internal/logger"
  "github.com/smartblood-kerala/smartblood-backend/internal/repos"
  "github.com/smartblood-kerala/smartblood-backend/internal/types"
)

// PredictionRecorder appends one ModelPredictionLog row per model call or
// per aggregate run. Writes are detached from the caller's context so a
// cancelled run still leaves its audit trail.
type PredictionRecorder interface {
  Record(modelName, modelVersion, endpoint string, input any, output any, inferenceMs float64, callErr error)
}

type predictionRecorder struct {
  log  *logger.Logger
  repo repos.ModelPredictionLogRepo
}

func NewPredictionRecorder(log *logger.Logger, repo repos.ModelPredictionLogRepo) PredictionRecorder {
  return &predictionRecorder{
    log:  log.With("service", "PredictionRecorder"),
    repo: repo,
  }
}

func (r *predictionRecorder) Record(modelName, modelVersion, endpoint string, input any, output any, inferenceMs float64, callErr error) {
  entry := &types.ModelPredictionLog{
    ModelName:       modelName,
    ModelVersion:    modelVersion,
    Endpoint:        endpoint,
    InferenceTimeMs: inferenceMs,
    Success:         callErr == nil,
  }
  if callErr != nil {
    entry.ErrorMessage = callErr.Error()
  }
  if input != nil {
    if raw, err := json.Marshal(input); err == nil {
      entry.InputData = datatypes.JSON(raw)
    }
  }
  if output != nil {
    if raw, err := json.Marshal(output); err == nil {
      entry.PredictionOutput = datatypes.JSON(raw)
    }
  }

  go func() {
    ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
    defer cancel()
    if err := r.repo.Create(ctx, nil, entry); err != nil {
      r.log.Warn("Failed to write prediction log", "model", modelName, "endpoint", endpoint, "error", err)
    }
  }()
}
