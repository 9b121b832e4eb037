package models

import "time"

type JobStatus string

const (
	JobStatusActive  JobStatus = "active"
	JobStatusPaused  JobStatus = "paused"
	JobStatusExpired JobStatus = "expired"
	JobStatusDeleted JobStatus = "deleted"
)

// Job is a listing. Only the boost and expiry fields are touched here.
type Job struct {
	ID        string    `gorm:"column:id;type:uuid;primary_key" json:"id"`
	JobID     string    `gorm:"column:job_id;type:varchar(64);not null;uniqueIndex" json:"job_id"`
	CompanyID string    `gorm:"column:company_id;type:varchar(64);index" json:"company_id"`
	UserEmail string    `gorm:"column:user_email;type:varchar(255);index" json:"user_email"`
	Title     string    `gorm:"column:title;type:varchar(255)" json:"title"`
	Status    JobStatus `gorm:"column:status;type:varchar(16);not null;default:active;index" json:"status"`
	// IsBoosted implies BoostExpiry is set while the boost lasts.
	IsBoosted     bool       `gorm:"column:is_boosted;not null;default:false;index" json:"is_boosted"`
	BoostExpiry   *time.Time `gorm:"column:boost_expiry" json:"boost_expiry"`
	JobPostExpiry *time.Time `gorm:"column:job_post_expiry" json:"job_post_expiry"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

func (Job) TableName() string {
	return "jobs"
}
