package upstream

import (
	"bytes"
	"fmt"
	"slices"

	"github.com/goccy/go-json"
	"github.com/huangsam/placewise/internal/contract"
	"github.com/huangsam/placewise/schema"
)

// AreaCategories are the collaborator categories that feed an AreaRecord,
// in canonical order.
var AreaCategories = []schema.CacheCategory{
	schema.PropertyCategory,
	schema.TrendsCategory,
	schema.CommuteCategory,
	schema.CrimeCategory,
	schema.SchoolsCategory,
	schema.AmenitiesCategory,
	schema.InfrastructureCategory,
}

// isEmptyObject reports whether a payload carries no data at all.
func isEmptyObject(payload []byte) bool {
	trimmed := bytes.TrimSpace(payload)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("{}")) || bytes.Equal(trimmed, []byte("null"))
}

// Apply decodes one collaborator payload into the matching sub-record of
// area. Empty payloads leave the category unknown. Malformed payloads return
// an error wrapping ErrTransient so callers treat them like a failed fetch.
func Apply(area *schema.AreaRecord, category schema.CacheCategory, payload []byte) error {
	if isEmptyObject(payload) {
		return nil
	}

	var err error
	switch category {
	case schema.PropertyCategory:
		area.Property, err = decode[schema.PropertyRecord](payload)
	case schema.TrendsCategory:
		// Trend figures only fill property fields the main feed left empty
		var trends *schema.PropertyRecord
		if trends, err = decode[schema.PropertyRecord](payload); err == nil {
			area.Property = mergeProperty(area.Property, trends)
		}
	case schema.CommuteCategory:
		area.Commute, err = decode[schema.CommuteRecord](payload)
	case schema.CrimeCategory:
		area.Safety, err = decode[schema.SafetyRecord](payload)
	case schema.SchoolsCategory:
		area.Schools, err = decode[schema.SchoolsRecord](payload)
	case schema.AmenitiesCategory:
		area.Amenities, err = decode[schema.AmenitiesRecord](payload)
	case schema.InfrastructureCategory:
		area.Infrastructure, err = decode[schema.InfrastructureRecord](payload)
	default:
		return fmt.Errorf("no area field for category %s", category)
	}
	if err != nil {
		return fmt.Errorf("%w: decoding %s payload for %s: %v", contract.ErrTransient, category, area.AreaCode, err)
	}
	return nil
}

// Validate checks that a payload decodes into its category record without
// touching any area. Categories outside AreaCategories are not checked.
func Validate(category schema.CacheCategory, payload []byte) error {
	if !slices.Contains(AreaCategories, category) {
		return nil
	}
	var scratch schema.AreaRecord
	return Apply(&scratch, category, payload)
}

func decode[T any](payload []byte) (*T, error) {
	out := new(T)
	if err := json.Unmarshal(payload, out); err != nil {
		return nil, err
	}
	return out, nil
}

// mergeProperty fills nil fields of base from extra.
func mergeProperty(base, extra *schema.PropertyRecord) *schema.PropertyRecord {
	if base == nil {
		return extra
	}
	merged := *base
	fill := func(dst **float64, src *float64) {
		if *dst == nil {
			*dst = src
		}
	}
	fill(&merged.AffordabilityScore, extra.AffordabilityScore)
	fill(&merged.InvestmentQuality, extra.InvestmentQuality)
	fill(&merged.DemandIndex, extra.DemandIndex)
	fill(&merged.RiskScore, extra.RiskScore)
	fill(&merged.AvgPrice, extra.AvgPrice)
	return &merged
}
