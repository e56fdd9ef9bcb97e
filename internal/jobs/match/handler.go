package match

import (
	"fmt"

	"github.com/smartblood-kerala/smartblood-backend/internal/config"
	"github.com/smartblood-kerala/smartblood-backend/internal/jobs/runtime"
	"github.com/smartblood-kerala/smartblood-backend/internal/logger"
	"github.com/smartblood-kerala/smartblood-backend/internal/services"
)

// Handler drives a queued donor-match run. The queue gives the run its
// retry semantics; the service itself is retry-agnostic.
type Handler struct {
	cfg     *config.Config
	log     *logger.Logger
	matcher services.MatchService
}

func NewHandler(cfg *config.Config, log *logger.Logger, matcher services.MatchService) *Handler {
	return &Handler{
		cfg:     cfg,
		log:     log.With("handler", "DonorMatch"),
		matcher: matcher,
	}
}

func (h *Handler) Type() string { return services.JobTypeDonorMatch }

func (h *Handler) Run(jc *runtime.Context) error {
	requestID, ok := jc.PayloadUUID("request_id")
	if !ok {
		jc.Fail("validate", fmt.Errorf("payload missing request_id"))
		return nil
	}

	radiusKm := h.cfg.RadiusKmDefault
	if v, ok := jc.Payload()["radius_km"].(float64); ok && v > 0 {
		radiusKm = v
	}
	topK := h.cfg.TopKDefault
	if v, ok := jc.Payload()["top_k"].(float64); ok && v > 0 {
		topK = int(v)
	}

	jc.Progress("matching", 10)
	summary, err := h.matcher.MatchForRequest(jc.Ctx, requestID, radiusKm, topK, true)
	if err != nil {
		jc.Fail("matching", err)
		return nil
	}

	jc.Succeed(summary.Outcome, summary)
	return nil
}
