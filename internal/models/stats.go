package models

// UserStats is recomputed from the prayer log on every read and never stored
type UserStats struct {
	Streak            int     `json:"streak"`
	TotalMarked       int     `json:"total_marked"`
	OnTimeCount       int     `json:"on_time_count"`
	OnTimeRatio       float64 `json:"on_time_ratio"`
	LastCompletedDate string  `json:"last_completed_date,omitempty"`
}
