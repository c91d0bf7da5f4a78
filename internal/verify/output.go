package verify

import "github.com/AlexTo8319/ukraine-event-intelligence/models"

// Stats summarizes one verification run.
type Stats struct {
	TotalRecords     int     `json:"total_records" yaml:"total_records"`
	Kept             int     `json:"kept" yaml:"kept"`
	Updated          int     `json:"updated" yaml:"updated"`
	Removed          int     `json:"removed" yaml:"removed"`
	Failed           int     `json:"failed,omitempty" yaml:"failed,omitempty"`
	TotalTimeSeconds float64 `json:"total_time_seconds" yaml:"total_time_seconds"`
}

// OutcomeSummary is the per-record entry in the final report.
type OutcomeSummary struct {
	ID          int64              `json:"id,omitempty" yaml:"id,omitempty"`
	URL         string             `json:"url" yaml:"url"`
	Title       string             `json:"title" yaml:"title"`
	Action      string             `json:"action" yaml:"action"`
	Corrections models.Corrections `json:"corrections,omitempty" yaml:"corrections,omitempty"`
	Reasons     []string           `json:"reasons,omitempty" yaml:"reasons,omitempty"`
	Trace       []string           `json:"trace,omitempty" yaml:"trace,omitempty"`
	ApplyError  string             `json:"apply_error,omitempty" yaml:"apply_error,omitempty"`
}

// FinalOutput is the top-level report printed to stdout.
type FinalOutput struct {
	Status  string           `json:"status" yaml:"status"`
	DryRun  bool             `json:"dry_run" yaml:"dry_run"`
	Results []OutcomeSummary `json:"results" yaml:"results"`
	Stats   Stats            `json:"stats" yaml:"stats"`
}

// PurgedRecord names one record removed by the purge command.
type PurgedRecord struct {
	ID     int64  `json:"id" yaml:"id"`
	URL    string `json:"url" yaml:"url"`
	Title  string `json:"title" yaml:"title"`
	Reason string `json:"reason" yaml:"reason"`
}

// BuildSummary flattens an outcome for reporting.
func BuildSummary(out models.Outcome) OutcomeSummary {
	return OutcomeSummary{
		ID:          out.Event.ID,
		URL:         out.Event.URL,
		Title:       out.Event.Title,
		Action:      string(out.Action),
		Corrections: out.Corrections,
		Reasons:     out.Reasons,
		Trace:       out.Trace,
	}
}
