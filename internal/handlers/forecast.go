package handlers

import (
  "net/http"
  "github.com/gin-gonic/gin"
  "github.com/smartblood-kerala/smartblood-backend/internal/services"
)

type ForecastHandler struct {
  maintenanceService services.MaintenanceService
}

func NewForecastHandler(maintenanceService services.MaintenanceService) *ForecastHandler {
  return &ForecastHandler{maintenanceService: maintenanceService}
}

func (fh *ForecastHandler) GetByDistrict(c *gin.Context) {
  rows, err := fh.maintenanceService.GetForecast(c.Request.Context(), c.Param("district"))
  if err != nil {
    respondError(c, err)
    return
  }
  c.JSON(http.StatusOK, gin.H{"forecasts": rows})
}
