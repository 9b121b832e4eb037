package models

import "time"

// JobAdvertLimit counts the listings a user posted in the current quota period.
type JobAdvertLimit struct {
	ID            string    `gorm:"column:id;type:uuid;primary_key" json:"id"`
	UserEmail     string    `gorm:"column:user_email;type:varchar(255);not null;uniqueIndex" json:"user_email"`
	UserPlan      string    `gorm:"column:user_plan;type:varchar(64)" json:"user_plan"`
	NoOfJobs      int       `gorm:"column:no_of_jobs;not null;default:0" json:"no_of_jobs"`
	PaymentStatus string    `gorm:"column:payment_status;type:varchar(32)" json:"payment_status"`
	FreeBoosts    int       `gorm:"column:free_boosts;not null;default:0" json:"free_boosts"`
	CreatedAt     time.Time `json:"created_at"`
	// UpdatedAt marks the start of the current quota period.
	UpdatedAt time.Time `gorm:"index" json:"updated_at"`
}

func (JobAdvertLimit) TableName() string {
	return "job_advert_limits"
}
