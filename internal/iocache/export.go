package iocache

import (
	"context"
	"errors"
	"fmt"

	"github.com/huangsam/placewise/internal/parquet"
)

// ExecuteHistoryExport exports the run history to Parquet files named
// <outputFile>.runs.parquet and <outputFile>.recommendations.parquet.
func ExecuteHistoryExport(ctx context.Context, outputFile string) error {
	if outputFile == "" {
		return errors.New("--output-file is required for export command")
	}

	store := Manager.GetHistoryStore()
	if store == nil {
		return errors.New("run history is disabled. Set --history-backend to export it")
	}

	status, err := store.GetStatus(ctx)
	if err != nil {
		return fmt.Errorf("failed to get history status: %w", err)
	}
	if status.TotalRuns == 0 {
		return errors.New("no run history found to export")
	}

	fmt.Printf("Exporting data from %s backend...\n", status.Backend)
	fmt.Printf("Total runs: %d\n", status.TotalRuns)
	fmt.Printf("Total recommendations: %d\n", status.TotalRecommendations)

	runs, err := store.GetAllRuns(ctx)
	if err != nil {
		return fmt.Errorf("failed to retrieve runs: %w", err)
	}
	recommendations, err := store.GetAllRecommendations(ctx)
	if err != nil {
		return fmt.Errorf("failed to retrieve recommendations: %w", err)
	}

	runsFile := outputFile + ".runs.parquet"
	parquetRuns := parquet.ConvertRunRecords(runs)
	if err := parquet.WriteRunsParquet(parquetRuns, runsFile); err != nil {
		return fmt.Errorf("failed to write runs: %w", err)
	}
	fmt.Printf("Exported %d runs to: %s\n", len(parquetRuns), runsFile)

	recommendationsFile := outputFile + ".recommendations.parquet"
	parquetRecommendations := parquet.ConvertRecommendationRecords(recommendations)
	if err := parquet.WriteRecommendationsParquet(parquetRecommendations, recommendationsFile); err != nil {
		return fmt.Errorf("failed to write recommendations: %w", err)
	}
	fmt.Printf("Exported %d recommendations to: %s\n", len(parquetRecommendations), recommendationsFile)

	fmt.Println("\nExport complete! The Parquet files can be read with DuckDB, Pandas (via pyarrow) or Spark.")
	return nil
}
