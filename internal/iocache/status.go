package iocache

import (
	"fmt"
	"io"
	"slices"

	"github.com/huangsam/placewise/schema"
)

const statusTimeFormat = "2006-01-02 15:04:05"

// PrintCacheStatus prints cache status information.
func PrintCacheStatus(w io.Writer, status schema.CacheStatus) {
	_, _ = fmt.Fprintf(w, "Cache Backend: %s\n", status.Backend)
	if status.Location != "" {
		_, _ = fmt.Fprintf(w, "Location: %s\n", status.Location)
	}
	_, _ = fmt.Fprintf(w, "Connected: %t\n", status.Connected)
	if !status.Connected {
		return
	}
	_, _ = fmt.Fprintf(w, "Total Entries: %d\n", status.TotalEntries)
	if status.TotalEntries > 0 {
		_, _ = fmt.Fprintf(w, "Last Entry: %s\n", status.LastEntryTime.Local().Format(statusTimeFormat))
		_, _ = fmt.Fprintf(w, "Oldest Entry: %s\n", status.OldestEntryTime.Local().Format(statusTimeFormat))
	}
	_, _ = fmt.Fprintf(w, "Payload Size: %d bytes\n", status.TotalSizeBytes)
	if status.StorageBytes > 0 {
		_, _ = fmt.Fprintf(w, "Storage Size: %d bytes\n", status.StorageBytes)
	}
	if len(status.ByCategory) == 0 {
		return
	}

	categories := make([]schema.CacheCategory, 0, len(status.ByCategory))
	for category := range status.ByCategory {
		categories = append(categories, category)
	}
	slices.Sort(categories)

	_, _ = fmt.Fprintln(w, "Categories:")
	for _, category := range categories {
		cs := status.ByCategory[category]
		ttl := "never expires"
		if d := schema.TTLFor(category); d != schema.NeverExpires {
			ttl = "ttl " + d.String()
		}
		_, _ = fmt.Fprintf(w, "  %s: %d entries, %d bytes (%s)\n", category, cs.Entries, cs.SizeBytes, ttl)
	}
}

// PrintHistoryStatus prints run history status information.
func PrintHistoryStatus(w io.Writer, status schema.HistoryStatus) {
	_, _ = fmt.Fprintf(w, "History Backend: %s\n", status.Backend)
	_, _ = fmt.Fprintf(w, "Connected: %t\n", status.Connected)
	if !status.Connected {
		return
	}
	_, _ = fmt.Fprintf(w, "Total Runs: %d\n", status.TotalRuns)
	if status.TotalRuns > 0 {
		_, _ = fmt.Fprintf(w, "Last Run ID: %d\n", status.LastRunID)
		_, _ = fmt.Fprintf(w, "Last Run: %s\n", status.LastRunTime.Local().Format(statusTimeFormat))
		_, _ = fmt.Fprintf(w, "Oldest Run: %s\n", status.OldestRunTime.Local().Format(statusTimeFormat))
		_, _ = fmt.Fprintf(w, "Total Recommendations: %d\n", status.TotalRecommendations)
	}

	tables := make([]string, 0, len(status.TableSizes))
	for table := range status.TableSizes {
		tables = append(tables, table)
	}
	slices.Sort(tables)
	_, _ = fmt.Fprintln(w, "Table Sizes:")
	for _, table := range tables {
		_, _ = fmt.Fprintf(w, "  %s: %d rows\n", table, status.TableSizes[table])
	}
}
