package types

import (
  "time"
  "github.com/google/uuid"
)

// Hospital rows are populated by the admin tooling; read-only here.
type Hospital struct {
  ID        uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
  Name      string    `gorm:"not null;column:name" json:"name"`
  District  string    `gorm:"not null;column:district;index" json:"district"`
  City      string    `gorm:"column:city" json:"city"`
  Lat       *float64  `gorm:"column:lat" json:"lat,omitempty"`
  Lng       *float64  `gorm:"column:lng" json:"lng,omitempty"`
  Phone     string    `gorm:"column:phone" json:"phone"`
  CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
  UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (Hospital) TableName() string {
  return "hospital"
}
