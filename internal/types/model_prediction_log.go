package types

import (
  "time"
  "github.com/google/uuid"
  "gorm.io/datatypes"
)

// ModelPredictionLog is append-only; the retention sweep purges rows past
// the configured horizon.
type ModelPredictionLog struct {
  ID               uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
  ModelName        string         `gorm:"not null;column:model_name;index" json:"model_name"`
  ModelVersion     string         `gorm:"column:model_version" json:"model_version"`
  Endpoint         string         `gorm:"column:endpoint" json:"endpoint"`
  InputData        datatypes.JSON `gorm:"column:input_data;type:jsonb" json:"input_data"`
  PredictionOutput datatypes.JSON `gorm:"column:prediction_output;type:jsonb" json:"prediction_output"`
  InferenceTimeMs  float64        `gorm:"column:inference_time_ms" json:"inference_time_ms"`
  Success          bool           `gorm:"not null;default:true;column:success" json:"success"`
  ErrorMessage     string         `gorm:"column:error_message" json:"error_message,omitempty"`
  CreatedAt        time.Time      `gorm:"not null;default:now();index" json:"created_at"`
}

func (ModelPredictionLog) TableName() string {
  return "model_prediction_log"
}
