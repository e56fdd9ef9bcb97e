package types

import (
  "time"
  "github.com/google/uuid"
  "gorm.io/datatypes"
)

type Notification struct {
  ID        uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
  UserID    uuid.UUID      `gorm:"type:uuid;not null;column:user_id;index" json:"user_id"`
  Type      string         `gorm:"not null;column:type;index" json:"type"`
  Title     string         `gorm:"not null;column:title" json:"title"`
  Message   string         `gorm:"not null;column:message" json:"message"`
  Data      datatypes.JSON `gorm:"column:data;type:jsonb" json:"data"`
  IsRead    bool           `gorm:"not null;default:false;column:is_read" json:"is_read"`
  CreatedAt time.Time      `gorm:"not null;default:now();index" json:"created_at"`
}

func (Notification) TableName() string {
  return "notification"
}
