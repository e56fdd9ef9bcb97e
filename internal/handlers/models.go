package handlers

import (
  "net/http"
  "github.com/gin-gonic/gin"
  "github.com/google/uuid"
  "github.com/smartblood-kerala/smartblood-backend/internal/services"
)

type ModelsHandler struct {
  modelAdminService services.ModelAdminService
}

func NewModelsHandler(modelAdminService services.ModelAdminService) *ModelsHandler {
  return &ModelsHandler{modelAdminService: modelAdminService}
}

func (mh *ModelsHandler) List(c *gin.Context) {
  c.JSON(http.StatusOK, gin.H{"models": mh.modelAdminService.ListModels(c.Request.Context())})
}

func (mh *ModelsHandler) Reload(c *gin.Context) {
  name := c.Param("name")
  if err := mh.modelAdminService.ReloadModel(c.Request.Context(), name); err != nil {
    respondError(c, err)
    return
  }
  c.JSON(http.StatusOK, gin.H{"reloaded": name})
}

func (mh *ModelsHandler) MyAvailability(c *gin.Context) {
  insight, err := mh.modelAdminService.PredictMyAvailability(c.Request.Context())
  if err != nil {
    respondError(c, err)
    return
  }
  c.JSON(http.StatusOK, insight)
}

func (mh *ModelsHandler) PredictAvailability(c *gin.Context) {
  donorID, err := uuid.Parse(c.Param("id"))
  if err != nil {
    c.JSON(http.StatusBadRequest, gin.H{"error": "invalid donor id"})
    return
  }
  insight, err := mh.modelAdminService.PredictAvailability(c.Request.Context(), donorID)
  if err != nil {
    respondError(c, err)
    return
  }
  c.JSON(http.StatusOK, insight)
}
