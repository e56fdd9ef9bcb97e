package types

import (
  "time"
  "github.com/google/uuid"
)

type Donor struct {
  ID               uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
  UserID           uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex;column:user_id" json:"user_id"`
  BloodGroup       string     `gorm:"not null;column:blood_group;index" json:"blood_group"`
  Lat              *float64   `gorm:"column:lat" json:"lat,omitempty"`
  Lng              *float64   `gorm:"column:lng" json:"lng,omitempty"`
  IsAvailable      *bool      `gorm:"column:is_available" json:"is_available,omitempty"`
  LastDonationDate *time.Time `gorm:"column:last_donation_date" json:"last_donation_date,omitempty"`
  TotalDonations   int        `gorm:"not null;default:0;column:total_donations" json:"total_donations"`
  ReliabilityScore float64    `gorm:"not null;default:0.5;column:reliability_score" json:"reliability_score"`
  DateOfBirth      *time.Time `gorm:"column:date_of_birth" json:"date_of_birth,omitempty"`
  CreatedAt        time.Time  `gorm:"not null;default:now()" json:"created_at"`
  UpdatedAt        time.Time  `gorm:"not null;default:now()" json:"updated_at"`

  User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

func (Donor) TableName() string {
  return "donor"
}
