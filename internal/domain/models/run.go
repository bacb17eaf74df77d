package models

// JobReportRun is the queue message type of an on-demand report run.
const JobReportRun = "report.run"

// RunRequest asks for a report run. Zero fields fall back to the configured values.
type RunRequest struct {
	Codes         []string `json:"codes,omitempty" validate:"omitempty,max=200,dive,required,max=16"`
	ReportDate    string   `json:"report_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	RetentionDays *int     `json:"retention_days,omitempty" validate:"omitempty,gte=0,lte=3650"`
}
