package types

import (
  "time"
  "github.com/google/uuid"
)

type Request struct {
  ID            uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
  SeekerID      *uuid.UUID `gorm:"type:uuid;column:seeker_id;index" json:"seeker_id,omitempty"`
  HospitalID    *uuid.UUID `gorm:"type:uuid;column:hospital_id;index" json:"hospital_id,omitempty"`
  BloodGroup    string     `gorm:"not null;column:blood_group;index" json:"blood_group"`
  UnitsRequired int        `gorm:"not null;column:units_required" json:"units_required"`
  Urgency       string     `gorm:"not null;default:'medium';column:urgency" json:"urgency"`
  Status        string     `gorm:"not null;default:'pending';column:status;index" json:"status"`
  PatientName   string     `gorm:"column:patient_name" json:"patient_name"`
  Notes         string     `gorm:"column:notes" json:"notes"`
  RequiredBy    time.Time  `gorm:"not null;column:required_by" json:"required_by"`
  CreatedAt     time.Time  `gorm:"not null;default:now();index" json:"created_at"`
  UpdatedAt     time.Time  `gorm:"not null;default:now()" json:"updated_at"`

  Hospital *Hospital `gorm:"foreignKey:HospitalID" json:"hospital,omitempty"`
}

func (Request) TableName() string {
  return "request"
}

const (
  RequestStatusPending    = "pending"
  RequestStatusInProgress = "in_progress"
  RequestStatusMatched    = "matched"
  RequestStatusCompleted  = "completed"
  RequestStatusCancelled  = "cancelled"
)
