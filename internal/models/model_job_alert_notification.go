package models

import (
	"time"

	"gorm.io/datatypes"
)

type AlertStatus string

const (
	AlertStatusPending AlertStatus = "pending"
	AlertStatusSent    AlertStatus = "sent"
	AlertStatusFailed  AlertStatus = "failed"
)

// JobAlertData is the listing snapshot rendered into the alert email.
type JobAlertData struct {
	JobTitle            string     `json:"job_title"`
	JobID               string     `json:"job_id"`
	CompanyName         string     `json:"company_name"`
	ApplicationDeadline *time.Time `json:"application_deadline,omitempty"`
	WorkLocation        string     `json:"work_location,omitempty"`
	SalaryInfo          string     `json:"salary_info,omitempty"`
	WorkArrangement     string     `json:"work_arrangement,omitempty"`
}

// JobAlertNotification is a job alert queued by the main backend for
// delivery at ScheduledFor.
type JobAlertNotification struct {
	ID             string                                `gorm:"column:id;type:uuid;primary_key" json:"id"`
	JobID          string                                `gorm:"column:job_id;type:varchar(64);not null;index" json:"job_id"`
	JobTitle       string                                `gorm:"column:job_title;type:varchar(255)" json:"job_title"`
	CompanyName    string                                `gorm:"column:company_name;type:varchar(255)" json:"company_name"`
	UserEmails     datatypes.JSONSlice[string]           `gorm:"column:user_emails;type:jsonb;not null" json:"user_emails"`
	JobData        datatypes.JSONType[*JobAlertData]     `gorm:"column:job_data;type:jsonb;default:'{}'" json:"job_data"`
	ScheduledFor   time.Time                             `gorm:"column:scheduled_for;not null;index" json:"scheduled_for"`
	Status         AlertStatus                           `gorm:"column:status;type:varchar(16);not null;default:pending;index" json:"status"`
	SentAt         *time.Time                            `gorm:"column:sent_at" json:"sent_at"`
	DeliveredCount int                                   `gorm:"column:delivered_count;not null;default:0" json:"delivered_count"`
	FailedCount    int                                   `gorm:"column:failed_count;not null;default:0" json:"failed_count"`
	CreatedAt      time.Time                             `json:"created_at"`
	UpdatedAt      time.Time                             `json:"updated_at"`
}

func (JobAlertNotification) TableName() string {
	return "job_alert_notifications"
}

// Data returns the job snapshot, falling back to the top-level columns.
func (n *JobAlertNotification) Data() JobAlertData {
	if d := n.JobData.Data(); d != nil {
		out := *d
		if out.JobTitle == "" {
			out.JobTitle = n.JobTitle
		}
		if out.CompanyName == "" {
			out.CompanyName = n.CompanyName
		}
		if out.JobID == "" {
			out.JobID = n.JobID
		}
		return out
	}
	return JobAlertData{JobTitle: n.JobTitle, JobID: n.JobID, CompanyName: n.CompanyName}
}
