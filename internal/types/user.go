package types

import (
  "time"
  "github.com/google/uuid"
)

// User rows are owned by the account service; the matching core only reads
// the fields it filters and notifies on.
type User struct {
  ID            uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
  Email         string     `gorm:"uniqueIndex;not null;column:email" json:"email"`
  Phone         string     `gorm:"column:phone" json:"phone"`
  FirstName     string     `gorm:"not null;column:first_name" json:"first_name"`
  LastName      string     `gorm:"not null;column:last_name" json:"last_name"`
  Role          string     `gorm:"not null;default:'donor';column:role;index" json:"role"`
  District      string     `gorm:"column:district;index" json:"district"`
  City          string     `gorm:"column:city" json:"city"`
  Status        string     `gorm:"not null;default:'active';column:status;index" json:"status"`
  EmailVerified bool       `gorm:"not null;default:false;column:email_verified" json:"email_verified"`
  CreatedAt     time.Time  `gorm:"not null;default:now()" json:"created_at"`
  UpdatedAt     time.Time  `gorm:"not null;default:now()" json:"updated_at"`
}

func (User) TableName() string {
  return "user"
}
