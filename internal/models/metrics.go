package models

import "time"

// MetricsSnapshot summarises client activity for logs and the stub server.
type MetricsSnapshot struct {
	APICalls             uint64    `json:"api_calls"`
	APIFailures          uint64    `json:"api_failures"`
	AverageAPIDurationMs float64   `json:"average_api_duration_ms"`
	CacheHits            uint64    `json:"cache_hits"`
	CacheMisses          uint64    `json:"cache_misses"`
	CacheHitRatio        float64   `json:"cache_hit_ratio"`
	DBQueries            uint64    `json:"db_queries"`
	GeneratedAt          time.Time `json:"generated_at"`
}
