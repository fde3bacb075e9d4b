package models

// KPISummary is the headline dashboard numbers over a window.
type KPISummary struct {
	Days                 int     `json:"days"`
	TotalCalls           int     `json:"total_calls"`
	InboundCalls         int     `json:"inbound_calls"`
	OutboundCalls        int     `json:"outbound_calls"`
	AvgDurationSeconds   float64 `json:"avg_duration_seconds"`
	AnalyzedCalls        int     `json:"analyzed_calls"`
	AvgUrgencyScore      float64 `json:"avg_urgency_score"`
	OpenActionItems      int     `json:"open_action_items"`
	CompletedActionItems int     `json:"completed_action_items"`
}

// CallVolumePoint is one day of call volume.
type CallVolumePoint struct {
	Day      string `db:"day" json:"day"`
	Inbound  int    `db:"inbound" json:"inbound"`
	Outbound int    `db:"outbound" json:"outbound"`
	Total    int    `db:"total" json:"total"`
}

// SentimentBreakdown is the sentiment distribution over a window.
type SentimentBreakdown struct {
	Positive int `db:"positive" json:"positive"`
	Neutral  int `db:"neutral" json:"neutral"`
	Negative int `db:"negative" json:"negative"`
}

// ActionItemStats is the action item completion breakdown.
type ActionItemStats struct {
	Pending        int     `db:"pending" json:"pending"`
	InProgress     int     `db:"in_progress" json:"in_progress"`
	Completed      int     `db:"completed" json:"completed"`
	Cancelled      int     `db:"cancelled" json:"cancelled"`
	CompletionRate float64 `json:"completion_rate"`
}

// TopicCount is one topic with its occurrence count.
type TopicCount struct {
	Topic string `json:"topic"`
	Count int    `json:"count"`
}
