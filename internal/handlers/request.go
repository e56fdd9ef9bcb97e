package handlers

import (
  "net/http"
  "strconv"
  "time"
  "github.com/gin-gonic/gin"
  "github.com/google/uuid"
  "github.com/smartblood-kerala/smartblood-backend/internal/services"
)

type RequestHandler struct {
  requestService   services.RequestService
  statusService    services.MatchStatusService
  matchService     services.MatchService
  emergencyService services.EmergencyService
}

func NewRequestHandler(
  requestService services.RequestService,
  statusService services.MatchStatusService,
  matchService services.MatchService,
  emergencyService services.EmergencyService,
) *RequestHandler {
  return &RequestHandler{
    requestService:   requestService,
    statusService:    statusService,
    matchService:     matchService,
    emergencyService: emergencyService,
  }
}

func (rh *RequestHandler) Create(c *gin.Context) {
  var input services.CreateRequestInput
  if err := c.ShouldBindJSON(&input); err != nil {
    c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
    return
  }
  req, err := rh.requestService.CreateRequest(c.Request.Context(), input)
  if err != nil {
    respondError(c, err)
    return
  }
  c.JSON(http.StatusCreated, gin.H{"request_id": req.ID, "status": req.Status})
}

func (rh *RequestHandler) ListMine(c *gin.Context) {
  limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
  out, err := rh.requestService.ListMine(c.Request.Context(), limit)
  if err != nil {
    respondError(c, err)
    return
  }
  c.JSON(http.StatusOK, gin.H{"requests": out})
}

func (rh *RequestHandler) Close(c *gin.Context) {
  requestID, err := uuid.Parse(c.Param("id"))
  if err != nil {
    c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request id"})
    return
  }
  var body struct {
    Status string `json:"status"`
  }
  if err := c.ShouldBindJSON(&body); err != nil {
    c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
    return
  }
  if err := rh.requestService.CloseRequest(c.Request.Context(), requestID, body.Status); err != nil {
    respondError(c, err)
    return
  }
  c.JSON(http.StatusOK, gin.H{"status": body.Status})
}

func (rh *RequestHandler) GetMatches(c *gin.Context) {
  requestID, err := uuid.Parse(c.Param("id"))
  if err != nil {
    c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request id"})
    return
  }
  var since *time.Time
  if raw := c.Query("since"); raw != "" {
    t, err := time.Parse(time.RFC3339, raw)
    if err != nil {
      c.JSON(http.StatusBadRequest, gin.H{"error": "since must be RFC3339"})
      return
    }
    since = &t
  }
  status, err := rh.statusService.GetMatchStatus(c.Request.Context(), requestID, since)
  if err != nil {
    respondError(c, err)
    return
  }
  c.JSON(http.StatusOK, status)
}

func (rh *RequestHandler) Retry(c *gin.Context) {
  requestID, err := uuid.Parse(c.Param("id"))
  if err != nil {
    c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request id"})
    return
  }
  if err := rh.requestService.RetryMatching(c.Request.Context(), requestID); err != nil {
    respondError(c, err)
    return
  }
  c.JSON(http.StatusAccepted, gin.H{"queued": true})
}

func (rh *RequestHandler) Expand(c *gin.Context) {
  requestID, err := uuid.Parse(c.Param("id"))
  if err != nil {
    c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request id"})
    return
  }
  var body struct {
    RadiusKm float64 `json:"radius_km"`
  }
  if err := c.ShouldBindJSON(&body); err != nil {
    c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
    return
  }
  if err := rh.requestService.ExpandSearch(c.Request.Context(), requestID, body.RadiusKm); err != nil {
    respondError(c, err)
    return
  }
  c.JSON(http.StatusAccepted, gin.H{"queued": true, "radius_km": body.RadiusKm})
}

func (rh *RequestHandler) Emergency(c *gin.Context) {
  requestID, err := uuid.Parse(c.Param("id"))
  if err != nil {
    c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request id"})
    return
  }
  result, err := rh.emergencyService.NotifyEmergency(c.Request.Context(), requestID)
  if err != nil {
    respondError(c, err)
    return
  }
  c.JSON(http.StatusOK, result)
}

func (rh *RequestHandler) GetJob(c *gin.Context) {
  jobID, err := uuid.Parse(c.Param("id"))
  if err != nil {
    c.JSON(http.StatusBadRequest, gin.H{"error": "invalid job id"})
    return
  }
  job, err := rh.requestService.GetMatchJob(c.Request.Context(), jobID)
  if err != nil {
    respondError(c, err)
    return
  }
  c.JSON(http.StatusOK, job)
}

// MatchNow runs the pipeline inline for dashboards; admin only.
func (rh *RequestHandler) MatchNow(c *gin.Context) {
  requestID, err := uuid.Parse(c.Param("id"))
  if err != nil {
    c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request id"})
    return
  }
  var body struct {
    RadiusKm float64 `json:"radius_km"`
    TopK     int     `json:"top_k"`
    Save     *bool   `json:"save"`
  }
  _ = c.ShouldBindJSON(&body)
  if body.RadiusKm <= 0 {
    body.RadiusKm = 20
  }
  if body.TopK <= 0 {
    body.TopK = 10
  }
  save := true
  if body.Save != nil {
    save = *body.Save
  }
  summary, err := rh.matchService.MatchForRequest(c.Request.Context(), requestID, body.RadiusKm, body.TopK, save)
  if err != nil {
    respondError(c, err)
    return
  }
  c.JSON(http.StatusOK, summary)
}
