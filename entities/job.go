package entities

import (
	"dreamreel/constant"
	"github.com/google/uuid"
	"time"
)

type Job struct {
	ID         uuid.UUID          `json:"id" gorm:"type:uuid;primary_key"`
	EntityId   *uuid.UUID         `json:"entity_id" gorm:"type:uuid"`
	EntityType string             `json:"entity_type" gorm:"type:varchar(50);not null"`
	Status     constant.JobStatus `json:"status" gorm:"type:varchar(20);not null;index:idx_jobs_status"`
	JobType    constant.JobType   `json:"job_type" gorm:"type:varchar(50);not null"`
	Error      string             `json:"error,omitempty" gorm:"type:text"`
	CreatedAt  time.Time          `json:"created_at"`
	UpdatedAt  time.Time          `json:"updated_at"`
}

func (Job) TableName() string {
	return "jobs"
}
