package schema

import "time"

// CategoryStatus summarizes the cache entries of one category.
type CategoryStatus struct {
	Entries   int   `json:"entries"`
	SizeBytes int64 `json:"size_bytes"`
}

// CacheStatus represents the status of the cache store.
type CacheStatus struct {
	Backend         string                           `json:"backend"`
	Location        string                           `json:"location,omitempty"`
	Connected       bool                             `json:"connected"`
	TotalEntries    int                              `json:"total_entries"`
	TotalSizeBytes  int64                            `json:"total_size_bytes"`
	StorageBytes    int64                            `json:"storage_bytes,omitempty"`
	LastEntryTime   time.Time                        `json:"last_entry_time"`
	OldestEntryTime time.Time                        `json:"oldest_entry_time"`
	ByCategory      map[CacheCategory]CategoryStatus `json:"by_category"`
}

// HistoryStatus represents the status of the run history store.
type HistoryStatus struct {
	Backend              string           `json:"backend"`
	Connected            bool             `json:"connected"`
	TotalRuns            int              `json:"total_runs"`
	LastRunID            int64            `json:"last_run_id"`
	LastRunTime          time.Time        `json:"last_run_time"`
	OldestRunTime        time.Time        `json:"oldest_run_time"`
	TotalRecommendations int              `json:"total_recommendations"`
	TableSizes           map[string]int64 `json:"table_sizes"`
}

// RunRecord represents a row from the ranking runs table.
type RunRecord struct {
	RunID         int64
	RunUUID       string
	Persona       string
	StartTime     time.Time
	EndTime       *time.Time
	RunDurationMs *int64
	TotalAreas    *int
	FilteredOut   *int
	ConfigParams  *string
}

// RecommendationRecord represents a row from the recommendations table.
type RecommendationRecord struct {
	RunID          int64
	AreaCode       string
	Persona        string
	Rank           int
	CompositeScore float64
	FactorScores   string // JSON-encoded factor scores
	Strengths      string
	Weaknesses     string
	TradeOffs      string
	RecordedAt     time.Time
}
