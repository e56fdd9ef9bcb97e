package types

import (
  "time"
  "github.com/google/uuid"
)

type DemandForecast struct {
  ID              uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
  District        string    `gorm:"not null;column:district;index:idx_demand_forecast_key,unique" json:"district"`
  BloodGroup      string    `gorm:"not null;column:blood_group;index:idx_demand_forecast_key,unique" json:"blood_group"`
  ForecastDate    time.Time `gorm:"not null;column:forecast_date;index:idx_demand_forecast_key,unique" json:"forecast_date"`
  PredictedDemand float64   `gorm:"not null;column:predicted_demand" json:"predicted_demand"`
  ConfidenceLower float64   `gorm:"not null;column:confidence_lower" json:"confidence_lower"`
  ConfidenceUpper float64   `gorm:"not null;column:confidence_upper" json:"confidence_upper"`
  ModelVersion    string    `gorm:"column:model_version" json:"model_version"`
  CreatedAt       time.Time `gorm:"not null;default:now()" json:"created_at"`
  UpdatedAt       time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (DemandForecast) TableName() string {
  return "demand_forecast"
}
