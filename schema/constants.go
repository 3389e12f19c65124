package schema

import "time"

// Custom string types for type safety.
type (
	// Factor names one dimension of area quality.
	Factor string

	// Persona names a user archetype with a base weighting profile.
	Persona string

	// CacheCategory groups cache entries that share a freshness window.
	CacheCategory string

	// OutputMode represents the format of the output.
	OutputMode string

	// DatabaseBackend represents a storage backend for the cache or run history.
	DatabaseBackend string
)

// All factors known to the scoring engine, in canonical order.
const (
	Affordability     Factor = "affordability"
	Commute           Factor = "commute"
	Safety            Factor = "safety"
	Schools           Factor = "schools"
	Amenities         Factor = "amenities"
	InvestmentQuality Factor = "investment_quality"
	DemandIndex       Factor = "demand_index"
	RiskScore         Factor = "risk_score"
	Infrastructure    Factor = "infrastructure"
)

// AllFactors lists every factor in canonical order. Iteration over factor
// maps always goes through this slice so results stay deterministic.
var AllFactors = []Factor{
	Affordability,
	Commute,
	Safety,
	Schools,
	Amenities,
	InvestmentQuality,
	DemandIndex,
	RiskScore,
	Infrastructure,
}

// Built-in personas.
const (
	StudentPersona   Persona = "student" // default
	ParentPersona    Persona = "parent"
	DeveloperPersona Persona = "developer"
)

// Cache categories used by upstream collaborators.
const (
	PropertyCategory       CacheCategory = "scansan_property"
	TrendsCategory         CacheCategory = "scansan_trends"
	CommuteCategory        CacheCategory = "tfl_commute"
	CrimeCategory          CacheCategory = "crime"
	SchoolsCategory        CacheCategory = "schools"
	AmenitiesCategory      CacheCategory = "amenities"
	InfrastructureCategory CacheCategory = "infrastructure"
	ExplanationCategory    CacheCategory = "explanation"
	VideoURLCategory       CacheCategory = "video_url"
)

// NeverExpires marks a category whose entries stay fresh forever.
const NeverExpires time.Duration = -1

// DefaultCacheTTL applies to categories missing from CacheTTL.
const DefaultCacheTTL = 24 * time.Hour

// CacheTTL is the freshness window of every known category.
var CacheTTL = map[CacheCategory]time.Duration{
	PropertyCategory:       24 * time.Hour,
	TrendsCategory:         168 * time.Hour,
	CommuteCategory:        168 * time.Hour,
	CrimeCategory:          720 * time.Hour,
	SchoolsCategory:        2160 * time.Hour,
	AmenitiesCategory:      720 * time.Hour,
	InfrastructureCategory: 720 * time.Hour,
	ExplanationCategory:    24 * time.Hour,
	VideoURLCategory:       NeverExpires,
}

// TTLFor returns the freshness window for a category. Unknown categories get
// DefaultCacheTTL.
func TTLFor(category CacheCategory) time.Duration {
	if ttl, ok := CacheTTL[category]; ok {
		return ttl
	}
	return DefaultCacheTTL
}

// All output modes supported.
const (
	CSVOut     OutputMode = "csv"
	TextOut    OutputMode = "text" // default
	JSONOut    OutputMode = "json"
	ParquetOut OutputMode = "parquet"
)

// All storage backends supported. Not every backend serves both stores.
const (
	FileBackend       DatabaseBackend = "file" // default cache backend
	SQLiteBackend     DatabaseBackend = "sqlite"
	MySQLBackend      DatabaseBackend = "mysql"
	PostgreSQLBackend DatabaseBackend = "postgresql"
	RedisBackend      DatabaseBackend = "redis"
	BadgerBackend     DatabaseBackend = "badger"
	NoneBackend       DatabaseBackend = "none"
)

// ValidOutputModes lists all valid output modes.
var ValidOutputModes = map[OutputMode]struct{}{
	CSVOut:     {},
	TextOut:    {},
	JSONOut:    {},
	ParquetOut: {},
}

// ValidCacheBackends lists all valid cache backends.
var ValidCacheBackends = map[DatabaseBackend]struct{}{
	FileBackend:       {},
	SQLiteBackend:     {},
	MySQLBackend:      {},
	PostgreSQLBackend: {},
	RedisBackend:      {},
	BadgerBackend:     {},
	NoneBackend:       {},
}

// ValidHistoryBackends lists all valid run history backends.
var ValidHistoryBackends = map[DatabaseBackend]struct{}{
	SQLiteBackend:     {},
	MySQLBackend:      {},
	PostgreSQLBackend: {},
	NoneBackend:       {},
}

// ValidFactors lists all valid factor names.
var ValidFactors = func() map[Factor]struct{} {
	out := make(map[Factor]struct{}, len(AllFactors))
	for _, f := range AllFactors {
		out[f] = struct{}{}
	}
	return out
}()
