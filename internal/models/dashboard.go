package models

import "time"

// DashboardSnapshot aggregates the counts surfaced on the admin
// dashboard. Cached in Redis; regenerated on workflow mutations.
type DashboardSnapshot struct {
	PackagesByStatus     map[PackageStatus]int `json:"packages_by_status"`
	PendingKYC           int                   `json:"pending_kyc"`
	PendingRewardClaims  int                   `json:"pending_reward_claims"`
	LockersTotal         int                   `json:"lockers_total"`
	LockersOccupied      int                   `json:"lockers_occupied"`
	ActiveRegistrations  int                   `json:"active_registrations"`
	ExpiredRegistrations int                   `json:"expired_registrations"`
	GeneratedAt          time.Time             `json:"generated_at"`
}

// SystemMetrics is the lightweight runtime snapshot exposed alongside
// the Prometheus endpoint.
type SystemMetrics struct {
	CacheHitRatio            float64   `json:"cache_hit_ratio"`
	CacheHits                uint64    `json:"cache_hits"`
	CacheMisses              uint64    `json:"cache_misses"`
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	DBQueryCount             uint64    `json:"db_query_count"`
	AverageDBQueryDurationMs float64   `json:"average_db_query_duration_ms"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}
