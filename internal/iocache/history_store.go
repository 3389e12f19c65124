package iocache

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/huangsam/placewise/internal/contract"
	"github.com/huangsam/placewise/schema"
)

// Table names for run history.
const (
	runsTable            = "placewise_runs"
	recommendationsTable = "placewise_recommendations"
)

// HistoryStoreImpl records ranking runs and their recommendations.
type HistoryStoreImpl struct {
	db      *sql.DB
	backend schema.DatabaseBackend
}

var _ contract.HistoryStore = &HistoryStoreImpl{} // Compile-time check

// NewHistoryStore creates a new HistoryStore with the specified backend.
func NewHistoryStore(backend schema.DatabaseBackend, connStr string) (*HistoryStoreImpl, error) {
	if backend == schema.NoneBackend {
		// No-op store for disabled tracking
		return &HistoryStoreImpl{backend: backend}, nil
	}
	if _, ok := schema.ValidHistoryBackends[backend]; !ok {
		return nil, fmt.Errorf("unsupported history backend: %s", backend)
	}

	db, err := openSQL(backend, connStr, contract.GetHistoryDBFilePath())
	if err != nil {
		return nil, err
	}
	if err := createHistoryTables(db, backend); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create history tables: %w", err)
	}
	return &HistoryStoreImpl{db: db, backend: backend}, nil
}

// createHistoryTables creates the run history tables.
func createHistoryTables(db *sql.DB, backend schema.DatabaseBackend) error {
	tables := []struct {
		name  string
		query string
	}{
		{runsTable, getCreateRunsQuery(backend)},
		{recommendationsTable, getCreateRecommendationsQuery(backend)},
	}
	for _, table := range tables {
		if _, err := db.Exec(table.query); err != nil {
			return fmt.Errorf("failed to create table %s: %w", table.name, err)
		}
	}
	return nil
}

// getCreateRunsQuery returns the CREATE TABLE query for placewise_runs.
func getCreateRunsQuery(backend schema.DatabaseBackend) string {
	quoted := quoteTableName(runsTable, backend)
	switch backend {
	case schema.MySQLBackend:
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				run_id BIGINT AUTO_INCREMENT PRIMARY KEY,
				run_uuid CHAR(36) NOT NULL,
				persona VARCHAR(32) NOT NULL,
				start_time DATETIME(6) NOT NULL,
				end_time DATETIME(6),
				run_duration_ms BIGINT,
				total_areas INT,
				filtered_out INT,
				config_params TEXT
			);
		`, quoted)

	case schema.PostgreSQLBackend:
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				run_id BIGSERIAL PRIMARY KEY,
				run_uuid TEXT NOT NULL,
				persona TEXT NOT NULL,
				start_time TIMESTAMPTZ NOT NULL,
				end_time TIMESTAMPTZ,
				run_duration_ms BIGINT,
				total_areas INT,
				filtered_out INT,
				config_params TEXT
			);
		`, quoted)

	default: // SQLite
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				run_id INTEGER PRIMARY KEY AUTOINCREMENT,
				run_uuid TEXT NOT NULL,
				persona TEXT NOT NULL,
				start_time TEXT NOT NULL,
				end_time TEXT,
				run_duration_ms INTEGER,
				total_areas INTEGER,
				filtered_out INTEGER,
				config_params TEXT
			);
		`, quoted)
	}
}

// getCreateRecommendationsQuery returns the CREATE TABLE query for placewise_recommendations.
func getCreateRecommendationsQuery(backend schema.DatabaseBackend) string {
	quoted := quoteTableName(recommendationsTable, backend)
	switch backend {
	case schema.MySQLBackend:
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				run_id BIGINT NOT NULL,
				area_code VARCHAR(32) NOT NULL,
				persona VARCHAR(32) NOT NULL,
				rank_position INT NOT NULL,
				composite_score DOUBLE NOT NULL,
				factor_scores TEXT NOT NULL,
				strengths TEXT,
				weaknesses TEXT,
				trade_offs TEXT,
				recorded_at DATETIME(6) NOT NULL,
				PRIMARY KEY (run_id, area_code)
			);
		`, quoted)

	case schema.PostgreSQLBackend:
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				run_id BIGINT NOT NULL,
				area_code TEXT NOT NULL,
				persona TEXT NOT NULL,
				rank_position INT NOT NULL,
				composite_score DOUBLE PRECISION NOT NULL,
				factor_scores TEXT NOT NULL,
				strengths TEXT,
				weaknesses TEXT,
				trade_offs TEXT,
				recorded_at TIMESTAMPTZ NOT NULL,
				PRIMARY KEY (run_id, area_code)
			);
		`, quoted)

	default: // SQLite
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				run_id INTEGER NOT NULL,
				area_code TEXT NOT NULL,
				persona TEXT NOT NULL,
				rank_position INTEGER NOT NULL,
				composite_score REAL NOT NULL,
				factor_scores TEXT NOT NULL,
				strengths TEXT,
				weaknesses TEXT,
				trade_offs TEXT,
				recorded_at TEXT NOT NULL,
				PRIMARY KEY (run_id, area_code)
			);
		`, quoted)
	}
}

func (hs *HistoryStoreImpl) disabled() bool {
	return hs.backend == schema.NoneBackend || hs.db == nil
}

// timeDest returns a scan destination for a timestamp column. SQLite stores
// RFC3339 text, the other backends native datetimes.
func (hs *HistoryStoreImpl) timeDest() any {
	if hs.backend == schema.SQLiteBackend {
		return new(sql.NullString)
	}
	return new(sql.NullTime)
}

// timeValue converts a scanned timeDest into a time. ok is false for NULL.
func timeValue(dest any) (t time.Time, ok bool, err error) {
	switch v := dest.(type) {
	case *sql.NullString:
		if !v.Valid {
			return time.Time{}, false, nil
		}
		t, err = time.Parse(time.RFC3339Nano, v.String)
		if err != nil {
			return time.Time{}, false, fmt.Errorf("failed to parse time %q: %w", v.String, err)
		}
		return t, true, nil
	case *sql.NullTime:
		return v.Time, v.Valid, nil
	default:
		return time.Time{}, false, fmt.Errorf("unexpected time destination %T", dest)
	}
}

// BeginRun creates a new run and returns its ID.
func (hs *HistoryStoreImpl) BeginRun(ctx context.Context, runUUID string, persona schema.Persona, startTime time.Time, configParams map[string]any) (int64, error) {
	if hs.disabled() {
		return 0, nil
	}

	configJSON, err := json.Marshal(configParams)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal config params: %w", err)
	}

	quoted := quoteTableName(runsTable, hs.backend)
	args := []any{runUUID, string(persona), formatTime(startTime, hs.backend), string(configJSON)}

	var runID int64
	switch hs.backend {
	case schema.PostgreSQLBackend:
		query := fmt.Sprintf(`INSERT INTO %s (run_uuid, persona, start_time, config_params) VALUES ($1, $2, $3, $4) RETURNING run_id`, quoted)
		err = hs.db.QueryRowContext(ctx, query, args...).Scan(&runID)
	default: // SQLite and MySQL
		query := fmt.Sprintf(`INSERT INTO %s (run_uuid, persona, start_time, config_params) VALUES (?, ?, ?, ?)`, quoted)
		var result sql.Result
		result, err = hs.db.ExecContext(ctx, query, args...)
		if err == nil {
			runID, err = result.LastInsertId()
		}
	}
	if err != nil {
		return 0, fmt.Errorf("failed to insert run: %w", err)
	}
	return runID, nil
}

// EndRun stores completion data for a run.
func (hs *HistoryStoreImpl) EndRun(ctx context.Context, runID int64, endTime time.Time, totalAreas, filteredOut int) error {
	if hs.disabled() {
		return nil
	}

	quoted := quoteTableName(runsTable, hs.backend)
	query := fmt.Sprintf(`SELECT start_time FROM %s WHERE run_id = %s`, quoted, placeholder(hs.backend, 1))
	dest := hs.timeDest()
	if err := hs.db.QueryRowContext(ctx, query, runID).Scan(dest); err != nil {
		return fmt.Errorf("failed to get start_time for run %d: %w", runID, err)
	}
	startTime, _, err := timeValue(dest)
	if err != nil {
		return err
	}
	durationMs := endTime.Sub(startTime).Milliseconds()

	update := fmt.Sprintf(`UPDATE %s SET end_time = %s, run_duration_ms = %s, total_areas = %s, filtered_out = %s WHERE run_id = %s`,
		quoted,
		placeholder(hs.backend, 1), placeholder(hs.backend, 2), placeholder(hs.backend, 3),
		placeholder(hs.backend, 4), placeholder(hs.backend, 5))
	if _, err := hs.db.ExecContext(ctx, update, formatTime(endTime, hs.backend), durationMs, totalAreas, filteredOut, runID); err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}
	return nil
}

// RecordRecommendation stores one ranked candidate of a run.
func (hs *HistoryStoreImpl) RecordRecommendation(ctx context.Context, runID int64, persona schema.Persona, candidate schema.ScoredCandidate) error {
	if hs.disabled() {
		return nil
	}

	scores, err := json.Marshal(candidate.FactorScores)
	if err != nil {
		return fmt.Errorf("failed to marshal factor scores: %w", err)
	}

	query := fmt.Sprintf(`INSERT INTO %s (run_id, area_code, persona, rank_position, composite_score, factor_scores,
		strengths, weaknesses, trade_offs, recorded_at) VALUES (%s)`,
		quoteTableName(recommendationsTable, hs.backend), placeholders(hs.backend, 10))
	_, err = hs.db.ExecContext(ctx, query,
		runID, candidate.AreaCode, string(persona), candidate.Rank, candidate.CompositeScore, string(scores),
		strings.Join(candidate.Strengths, ", "), strings.Join(candidate.Weaknesses, ", "), candidate.TradeOffs,
		formatTime(time.Now(), hs.backend),
	)
	if err != nil {
		return fmt.Errorf("failed to insert recommendation %s: %w", candidate.AreaCode, err)
	}
	return nil
}

// GetStatus returns status information about the history store.
func (hs *HistoryStoreImpl) GetStatus(ctx context.Context) (schema.HistoryStatus, error) {
	status := schema.HistoryStatus{
		Backend:    string(hs.backend),
		Connected:  hs.db != nil,
		TableSizes: make(map[string]int64),
	}
	if hs.disabled() {
		return status, nil
	}

	runs := quoteTableName(runsTable, hs.backend)
	for _, table := range []string{runsTable, recommendationsTable} {
		var count int64
		query := fmt.Sprintf("SELECT COUNT(*) FROM %s", quoteTableName(table, hs.backend))
		if err := hs.db.QueryRowContext(ctx, query).Scan(&count); err != nil {
			return status, fmt.Errorf("failed to get count for table %s: %w", table, err)
		}
		status.TableSizes[table] = count
	}
	status.TotalRuns = int(status.TableSizes[runsTable])
	status.TotalRecommendations = int(status.TableSizes[recommendationsTable])
	if status.TotalRuns == 0 {
		return status, nil
	}

	dest := hs.timeDest()
	lastQuery := fmt.Sprintf("SELECT run_id, start_time FROM %s ORDER BY run_id DESC LIMIT 1", runs)
	if err := hs.db.QueryRowContext(ctx, lastQuery).Scan(&status.LastRunID, dest); err != nil {
		return status, fmt.Errorf("failed to get last run info: %w", err)
	}
	lastRunTime, _, err := timeValue(dest)
	if err != nil {
		return status, err
	}
	status.LastRunTime = lastRunTime

	dest = hs.timeDest()
	oldestQuery := fmt.Sprintf("SELECT start_time FROM %s ORDER BY run_id ASC LIMIT 1", runs)
	if err := hs.db.QueryRowContext(ctx, oldestQuery).Scan(dest); err != nil {
		return status, fmt.Errorf("failed to get oldest run time: %w", err)
	}
	oldestRunTime, _, err := timeValue(dest)
	if err != nil {
		return status, err
	}
	status.OldestRunTime = oldestRunTime
	return status, nil
}

// GetAllRuns retrieves all runs ordered by ID.
func (hs *HistoryStoreImpl) GetAllRuns(ctx context.Context) ([]schema.RunRecord, error) {
	if hs.disabled() {
		return nil, nil
	}

	query := fmt.Sprintf(`SELECT run_id, run_uuid, persona, start_time, end_time, run_duration_ms, total_areas, filtered_out, config_params
		FROM %s ORDER BY run_id`, quoteTableName(runsTable, hs.backend))
	rows, err := hs.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []schema.RunRecord
	for rows.Next() {
		var record schema.RunRecord
		startDest, endDest := hs.timeDest(), hs.timeDest()
		if err := rows.Scan(&record.RunID, &record.RunUUID, &record.Persona, startDest, endDest,
			&record.RunDurationMs, &record.TotalAreas, &record.FilteredOut, &record.ConfigParams); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		if record.StartTime, _, err = timeValue(startDest); err != nil {
			return nil, err
		}
		endTime, ok, err := timeValue(endDest)
		if err != nil {
			return nil, err
		}
		if ok {
			record.EndTime = &endTime
		}
		results = append(results, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}
	return results, nil
}

// GetAllRecommendations retrieves all recommendations ordered by run and rank.
func (hs *HistoryStoreImpl) GetAllRecommendations(ctx context.Context) ([]schema.RecommendationRecord, error) {
	if hs.disabled() {
		return nil, nil
	}

	query := fmt.Sprintf(`SELECT run_id, area_code, persona, rank_position, composite_score, factor_scores,
		strengths, weaknesses, trade_offs, recorded_at
		FROM %s ORDER BY run_id, rank_position`, quoteTableName(recommendationsTable, hs.backend))
	rows, err := hs.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query recommendations: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []schema.RecommendationRecord
	for rows.Next() {
		var record schema.RecommendationRecord
		var strengths, weaknesses, tradeOffs sql.NullString
		recorded := hs.timeDest()
		if err := rows.Scan(&record.RunID, &record.AreaCode, &record.Persona, &record.Rank, &record.CompositeScore,
			&record.FactorScores, &strengths, &weaknesses, &tradeOffs, recorded); err != nil {
			return nil, fmt.Errorf("failed to scan recommendation: %w", err)
		}
		record.Strengths, record.Weaknesses, record.TradeOffs = strengths.String, weaknesses.String, tradeOffs.String
		if record.RecordedAt, _, err = timeValue(recorded); err != nil {
			return nil, err
		}
		results = append(results, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating recommendations: %w", err)
	}
	return results, nil
}

// Close closes the underlying connection.
func (hs *HistoryStoreImpl) Close() error {
	if hs.db != nil {
		return hs.db.Close()
	}
	return nil
}
