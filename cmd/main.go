package main

import (
  "context"
  "fmt"
  "os"
  "time"

  "github.com/robfig/cron/v3"
  "github.com/smartblood-kerala/smartblood-backend/internal/clients/hf"
  sbredis "github.com/smartblood-kerala/smartblood-backend/internal/clients/redis"
  "github.com/smartblood-kerala/smartblood-backend/internal/clients/sendgrid"
  "github.com/smartblood-kerala/smartblood-backend/internal/clients/twilio"
  "github.com/smartblood-kerala/smartblood-backend/internal/config"
  "github.com/smartblood-kerala/smartblood-backend/internal/db"
  "github.com/smartblood-kerala/smartblood-backend/internal/handlers"
  "github.com/smartblood-kerala/smartblood-backend/internal/jobs/match"
  "github.com/smartblood-kerala/smartblood-backend/internal/jobs/runtime"
  "github.com/smartblood-kerala/smartblood-backend/internal/jobs/worker"
  "github.com/smartblood-kerala/smartblood-backend/internal/logger"
  "github.com/smartblood-kerala/smartblood-backend/internal/middleware"
  "github.com/smartblood-kerala/smartblood-backend/internal/ml"
  "github.com/smartblood-kerala/smartblood-backend/internal/repos"
  "github.com/smartblood-kerala/smartblood-backend/internal/server"
  "github.com/smartblood-kerala/smartblood-backend/internal/services"
  "github.com/smartblood-kerala/smartblood-backend/internal/utils"
)

func main() {
  // Config
  cfg, err := config.Load()
  if err != nil {
    fmt.Printf("Failed to load config: %v\n", err)
    os.Exit(1)
  }

  // Logger
  log, err := logger.New(cfg.LogMode)
  if err != nil {
    fmt.Printf("Failed to init logger: %v\n", err)
    os.Exit(1)
  }
  defer log.Sync()

  // Postgres
  postgresService, err := db.NewPostgresService(cfg, log)
  if err != nil {
    log.Error("Postgres init failed", "error", err)
    os.Exit(1)
  }
  if err = postgresService.AutoMigrateAll(); err != nil {
    log.Warn("Postgres auto migration failed", "error", err)
  }
  thePG := postgresService.DB()

  // Repos
  log.Info("Setting up Repos from main...")
  userRepo := repos.NewUserRepo(thePG, log)
  donorRepo := repos.NewDonorRepo(thePG, log)
  hospitalRepo := repos.NewHospitalRepo(thePG, log)
  requestRepo := repos.NewRequestRepo(thePG, log)
  matchPredRepo := repos.NewMatchPredictionRepo(thePG, log)
  notificationRepo := repos.NewNotificationRepo(thePG, log)
  predLogRepo := repos.NewModelPredictionLogRepo(thePG, log)
  modelArtifactRepo := repos.NewModelArtifactRepo(thePG, log)
  forecastRepo := repos.NewDemandForecastRepo(thePG, log)
  jobRunRepo := repos.NewJobRunRepo(thePG, log)

  // Clients
  log.Info("Setting up clients from main...")
  matchBus, err := sbredis.NewMatchBus(log, cfg.RedisAddr, cfg.RedisPassword)
  if err != nil {
    log.Warn("Redis match bus unavailable, match events disabled", "error", err)
    matchBus = nil
  }
  smsClient, err := twilio.NewFromEnv(log)
  if err != nil {
    log.Warn("Twilio unavailable, SMS disabled", "error", err)
    smsClient = nil
  }
  emailClient, err := sendgrid.NewFromEnv(log)
  if err != nil {
    log.Warn("SendGrid unavailable, email disabled", "error", err)
    emailClient = nil
  }
  hubClient, err := hf.New(log, hf.Config{
    BaseURL:    utils.GetEnv("HF_BASE_URL", "https://huggingface.co", log),
    Token:      cfg.RemoteArtifactToken,
    MaxRetries: utils.GetEnvAsInt("HF_MAX_RETRIES", 3, log),
  })
  if err != nil {
    log.Error("Could not init artifact hub client", "error", err)
    os.Exit(1)
  }

  // Models
  log.Info("Setting up model registry from main...")
  registry := ml.NewRegistry(log, ml.Config{
    ArtifactRoot: cfg.ArtifactRootDir,
    RegistryPath: cfg.ArtifactRegistryPath,
    RemoteToken:  cfg.RemoteArtifactToken,
  }, hubClient)
  if err := registry.Initialize(); err != nil {
    log.Warn("Model registry init failed, falling back to heuristics", "error", err)
  } else {
    warmCtx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
    if err := registry.ReloadAll(warmCtx); err != nil {
      log.Warn("Model warm load failed", "error", err)
    }
    cancel()
  }

  // Services
  log.Info("Setting up Services from main...")
  recorder := services.NewPredictionRecorder(log, predLogRepo)
  selector := services.NewCandidateSelector(log, donorRepo, userRepo, hospitalRepo, cfg.MinEligibilityDays)
  scoring := services.NewScoringEngine(log, registry, recorder, cfg.BatchSize)
  dispatcher := services.NewNotificationDispatcher(log, matchPredRepo, donorRepo, requestRepo, notificationRepo, smsClient, emailClient)
  matchService := services.NewMatchService(log, requestRepo, matchPredRepo, selector, scoring, dispatcher, recorder, matchBus)
  requestService := services.NewRequestService(cfg, log, requestRepo, jobRunRepo)
  statusService := services.NewMatchStatusService(
    log,
    requestRepo,
    matchPredRepo,
    donorRepo,
    jobRunRepo,
    cfg.TopKDefault,
    cfg.RadiusKmDefault,
    cfg.StatusRunningGraceSeconds,
    cfg.StatusNoneFoundDeadlineSeconds,
  )
  emergencyService := services.NewEmergencyService(log, requestRepo, hospitalRepo, userRepo, donorRepo, smsClient, cfg.MinEligibilityDays)
  modelAdminService := services.NewModelAdminService(log, registry, donorRepo, modelArtifactRepo, recorder)
  notificationService := services.NewNotificationService(log, notificationRepo)
  maintenanceService := services.NewMaintenanceService(cfg, log, matchPredRepo, predLogRepo, requestRepo, forecastRepo)

  // Jobs
  log.Info("Setting up job worker from main...")
  jobRegistry := runtime.NewRegistry()
  if err := jobRegistry.Register(match.NewHandler(cfg, log, matchService)); err != nil {
    log.Error("Could not register match job handler", "error", err)
    os.Exit(1)
  }
  jobWorker := worker.NewWorker(thePG, log, jobRunRepo, jobRegistry, cfg.WorkerConcurrency, cfg.RunMaxRetries)
  jobWorker.Start(context.Background())

  // Cron
  log.Info("Setting up maintenance cron from main...")
  scheduler := cron.New()
  if _, err := scheduler.AddFunc(cfg.RetentionCronSchedule, func() {
    ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
    defer cancel()
    if err := maintenanceService.RunRetentionSweep(ctx); err != nil {
      log.Warn("Retention sweep failed", "error", err)
    }
  }); err != nil {
    log.Warn("Could not schedule retention sweep", "error", err)
  }
  if _, err := scheduler.AddFunc(cfg.ForecastCronSchedule, func() {
    ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
    defer cancel()
    if err := maintenanceService.RunDemandForecast(ctx); err != nil {
      log.Warn("Demand forecast failed", "error", err)
    }
  }); err != nil {
    log.Warn("Could not schedule demand forecast", "error", err)
  }
  scheduler.Start()

  // Handlers
  log.Info("Setting up handlers from main...")
  requestHandler := handlers.NewRequestHandler(requestService, statusService, matchService, emergencyService)
  modelsHandler := handlers.NewModelsHandler(modelAdminService)
  notificationsHandler := handlers.NewNotificationsHandler(notificationService)
  forecastHandler := handlers.NewForecastHandler(maintenanceService)

  // Middleware
  log.Info("Setting up middleware from main...")
  authMiddleware := middleware.NewAuthMiddleware(log, cfg.JWTSecretKey)

  // Router
  log.Info("Setting up router from main...")
  router := server.NewRouter(server.RouterConfig{
    AuthMiddleware:       authMiddleware,
    RequestHandler:       requestHandler,
    ModelsHandler:        modelsHandler,
    NotificationsHandler: notificationsHandler,
    ForecastHandler:      forecastHandler,
  })

  fmt.Printf("Server listening on :%s\n", cfg.HTTPPort)
  if err := router.Run(":" + cfg.HTTPPort); err != nil {
    log.Warn("Server failed", "error", err)
  }
}
