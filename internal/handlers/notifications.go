package handlers

import (
  "net/http"
  "strconv"
  "github.com/gin-gonic/gin"
  "github.com/google/uuid"
  "github.com/smartblood-kerala/smartblood-backend/internal/services"
)

type NotificationsHandler struct {
  notificationService services.NotificationService
}

func NewNotificationsHandler(notificationService services.NotificationService) *NotificationsHandler {
  return &NotificationsHandler{notificationService: notificationService}
}

func (nh *NotificationsHandler) List(c *gin.Context) {
  unreadOnly := c.Query("unread") == "true"
  limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
  out, err := nh.notificationService.ListMine(c.Request.Context(), unreadOnly, limit)
  if err != nil {
    respondError(c, err)
    return
  }
  c.JSON(http.StatusOK, gin.H{"notifications": out})
}

func (nh *NotificationsHandler) MarkRead(c *gin.Context) {
  id, err := uuid.Parse(c.Param("id"))
  if err != nil {
    c.JSON(http.StatusBadRequest, gin.H{"error": "invalid notification id"})
    return
  }
  if err := nh.notificationService.MarkRead(c.Request.Context(), id); err != nil {
    respondError(c, err)
    return
  }
  c.JSON(http.StatusOK, gin.H{"read": true})
}
