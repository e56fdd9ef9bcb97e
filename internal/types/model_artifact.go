package types

import (
  "time"
  "github.com/google/uuid"
  "gorm.io/datatypes"
)

// ModelArtifact mirrors the deployment process's registry table. The core
// only reads it; the JSON registry file is the boot-time source of truth.
type ModelArtifact struct {
  ID           uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
  ModelName    string         `gorm:"not null;uniqueIndex;column:model_name" json:"model_name"`
  Version      string         `gorm:"not null;column:version" json:"version"`
  ArtifactPath string         `gorm:"not null;column:artifact_path" json:"artifact_path"`
  Metadata     datatypes.JSON `gorm:"column:metadata;type:jsonb" json:"metadata"`
  IsActive     bool           `gorm:"not null;default:true;column:is_active" json:"is_active"`
  DeployedAt   time.Time      `gorm:"not null;default:now();column:deployed_at" json:"deployed_at"`
}

func (ModelArtifact) TableName() string {
  return "model_artifact"
}
