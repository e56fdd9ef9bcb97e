package services

import (
  "context"
  "fmt"
  "time"

  "github.com/smartblood-kerala/smartblood-backend/internal/config"
  "github.com/smartblood-kerala/smartblood-backend/internal/logger"
  "github.com/smartblood-kerala/smartblood-backend/internal/repos"
  "github.com/smartblood-kerala/smartblood-backend/internal/types"
)

const (
  demandLookbackDays  = 90
  forecastModelTag    = "naive-seasonal-v1"
  weekendDemandFactor = 1.15
)

// MaintenanceService holds the cron-driven housekeeping: the retention
// sweep over prediction logs and the naive demand forecast writer.
type MaintenanceService interface {
  RunRetentionSweep(ctx context.Context) error
  RunDemandForecast(ctx context.Context) error
  GetForecast(ctx context.Context, district string) ([]*types.DemandForecast, error)
}

type maintenanceService struct {
  cfg           *config.Config
  log           *logger.Logger
  matchPredRepo repos.MatchPredictionRepo
  predLogRepo   repos.ModelPredictionLogRepo
  requestRepo   repos.RequestRepo
  forecastRepo  repos.DemandForecastRepo
}

func NewMaintenanceService(
  cfg *config.Config,
  log *logger.Logger,
  matchPredRepo repos.MatchPredictionRepo,
  predLogRepo repos.ModelPredictionLogRepo,
  requestRepo repos.RequestRepo,
  forecastRepo repos.DemandForecastRepo,
) MaintenanceService {
  return &maintenanceService{
    cfg:           cfg,
    log:           log.With("service", "MaintenanceService"),
    matchPredRepo: matchPredRepo,
    predLogRepo:   predLogRepo,
    requestRepo:   requestRepo,
    forecastRepo:  forecastRepo,
  }
}

func (s *maintenanceService) RunRetentionSweep(ctx context.Context) error {
  cutoff := time.Now().AddDate(0, 0, -s.cfg.PredictionRetentionDays)

  logsPurged, err := s.predLogRepo.PurgeOlderThan(ctx, nil, cutoff)
  if err != nil {
    return fmt.Errorf("Failed to purge prediction logs: %w", err)
  }
  orphansPurged, err := s.matchPredRepo.PurgeOrphaned(ctx, nil)
  if err != nil {
    return fmt.Errorf("Failed to purge orphaned predictions: %w", err)
  }

  s.log.Info("Retention sweep complete",
    "cutoff", cutoff.Format(time.RFC3339),
    "prediction_logs_purged", logsPurged,
    "orphaned_predictions_purged", orphansPurged,
  )
  return nil
}

// RunDemandForecast writes FORECAST_HORIZON_DAYS of per (district, blood
// group) estimates. The estimator is the documented naive one: average
// daily request volume over the lookback window, bumped on weekends, with
// a flat ±30% confidence band.
func (s *maintenanceService) RunDemandForecast(ctx context.Context) error {
  since := time.Now().AddDate(0, 0, -demandLookbackDays)
  counts, err := s.requestRepo.DemandCounts(ctx, nil, since)
  if err != nil {
    return fmt.Errorf("Failed to aggregate demand: %w", err)
  }
  if len(counts) == 0 {
    s.log.Info("No recent demand to forecast")
    return nil
  }

  today := time.Now().Truncate(24 * time.Hour)
  rows := make([]*types.DemandForecast, 0, len(counts)*s.cfg.ForecastHorizonDays)
  for _, c := range counts {
    if c.District == "" {
      continue
    }
    dailyRate := float64(c.Count) / demandLookbackDays
    for day := 1; day <= s.cfg.ForecastHorizonDays; day++ {
      date := today.AddDate(0, 0, day)
      predicted := dailyRate
      wd := date.Weekday()
      if wd == time.Saturday || wd == time.Sunday {
        predicted *= weekendDemandFactor
      }
      rows = append(rows, &types.DemandForecast{
        District:        c.District,
        BloodGroup:      c.BloodGroup,
        ForecastDate:    date,
        PredictedDemand: predicted,
        ConfidenceLower: predicted * 0.7,
        ConfidenceUpper: predicted * 1.3,
        ModelVersion:    forecastModelTag,
      })
    }
  }

  if err := s.forecastRepo.UpsertBatch(ctx, nil, rows); err != nil {
    return fmt.Errorf("Failed to upsert forecasts: %w", err)
  }
  s.log.Info("Demand forecast written", "series", len(counts), "rows", len(rows))
  return nil
}

func (s *maintenanceService) GetForecast(ctx context.Context, district string) ([]*types.DemandForecast, error) {
  if district == "" {
    return nil, fmt.Errorf("%w: district is required", ErrValidation)
  }
  today := time.Now().Truncate(24 * time.Hour)
  out, err := s.forecastRepo.ListByDistrict(ctx, nil, district, today, today.AddDate(0, 0, s.cfg.ForecastHorizonDays))
  if err != nil {
    return nil, fmt.Errorf("Failed to list forecasts: %w", err)
  }
  return out, nil
}
