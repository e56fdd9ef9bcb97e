package types

import (
  "time"
  "github.com/google/uuid"
  "gorm.io/datatypes"
)

// MatchPrediction ties one donor to one request with a score and a dense
// rank. Rank stays null between the persist and rank commits; readers sort
// by match_score when rank is missing.
type MatchPrediction struct {
  ID                uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
  RequestID         uuid.UUID      `gorm:"type:uuid;not null;column:request_id;index:idx_match_prediction_pair,unique" json:"request_id"`
  DonorID           uuid.UUID      `gorm:"type:uuid;not null;column:donor_id;index:idx_match_prediction_pair,unique" json:"donor_id"`
  MatchScore        float64        `gorm:"not null;column:match_score" json:"match_score"`
  AvailabilityScore float64        `gorm:"not null;column:availability_score" json:"availability_score"`
  ResponseTimeHours float64        `gorm:"not null;column:response_time_hours" json:"response_time_hours"`
  ReliabilityScore  float64        `gorm:"not null;column:reliability_score" json:"reliability_score"`
  DistanceKm        float64        `gorm:"not null;column:distance_km" json:"distance_km"`
  FeatureVector     datatypes.JSON `gorm:"column:feature_vector;type:jsonb" json:"feature_vector"`
  Rank              *int           `gorm:"column:rank" json:"rank,omitempty"`
  Notified          bool           `gorm:"not null;default:false;column:notified" json:"notified"`
  ModelVersion      string         `gorm:"column:model_version" json:"model_version"`
  CreatedAt         time.Time      `gorm:"not null;default:now();index" json:"created_at"`
  UpdatedAt         time.Time      `gorm:"not null;default:now()" json:"updated_at"`
}

func (MatchPrediction) TableName() string {
  return "match_prediction"
}
