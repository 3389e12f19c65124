package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/huangsam/placewise/internal/contract"
	"github.com/huangsam/placewise/internal/parquet"
	"github.com/huangsam/placewise/schema"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

// PrintRankingResult outputs a ranking, dispatching based on the output format configured.
func PrintRankingResult(result *schema.RankingResult, cfg *contract.Config, duration time.Duration) error {
	fmtFloat := createFormatter(cfg.Precision)

	switch cfg.Output {
	case schema.JSONOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, result)
		}, "Wrote JSON"); err != nil {
			return fmt.Errorf("error writing JSON output: %w", err)
		}
	case schema.CSVOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeRankingCSV(w, result, fmtFloat)
		}, "Wrote CSV"); err != nil {
			return fmt.Errorf("error writing CSV output: %w", err)
		}
	case schema.ParquetOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return parquet.WriteRows(w, parquet.ConvertRankingResult(result))
		}, "Wrote Parquet"); err != nil {
			return fmt.Errorf("error writing Parquet output: %w", err)
		}
	default:
		// Default to human-readable table
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeRankingTable(w, result, cfg, fmtFloat, duration)
		}, "Wrote table")
	}
	return nil
}

// writeRankingTable generates and writes the human-readable table.
func writeRankingTable(w io.Writer, result *schema.RankingResult, cfg *contract.Config, fmtFloat func(float64) string, duration time.Duration) error {
	factors := result.AdjustedWeights.Factors()
	textWidth := getMaxTextWidth(cfg, len(factors))

	if _, err := fmt.Fprintf(w, "Top %d areas for %s (%d scored, %d filtered out)\n",
		len(result.Recommendations), result.Persona, result.ScoredCount, result.FilteredOutCount); err != nil {
		return err
	}

	table := tablewriter.NewWriter(w)

	// 1. Define Headers
	headers := []string{"Rank", "Area", "Score", "Label"}
	if cfg.Detail {
		for _, f := range factors {
			headers = append(headers, schema.FactorLabel(f))
		}
	}
	headers = append(headers, "Strengths", "Trade-offs")
	table.Header(headers)

	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})

	// 2. Populate Rows
	var data [][]string
	for _, c := range result.Recommendations {
		row := []string{
			strconv.Itoa(c.Rank),
			areaDisplayName(c),
			fmtFloat(c.CompositeScore),
			contract.GetColorLabel(c.CompositeScore),
		}
		if cfg.Detail {
			for _, f := range factors {
				row = append(row, strconv.FormatFloat(schema.RoundTo(c.FactorScores[f], 0), 'f', 0, 64))
			}
		}
		row = append(row,
			orDash(strings.Join(c.Strengths, ", ")),
			contract.TruncateText(c.TradeOffs, textWidth),
		)
		data = append(data, row)
	}

	// 3. Render the table
	if err := table.Bulk(data); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}

	if err := writeExplanations(w, result); err != nil {
		return err
	}
	if err := writeFilteredReasons(w, result); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Weights: %s\n", formatWeights(result.AdjustedWeights)); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Ranking completed in %v with %d workers. Cache backend: %s. Run ID: %s\n",
		duration.Round(time.Millisecond), cfg.Workers, cfg.CacheBackend, result.RunID); err != nil {
		return err
	}
	return nil
}

func writeExplanations(w io.Writer, result *schema.RankingResult) error {
	header := false
	for _, c := range result.Recommendations {
		if c.Explanation == nil {
			continue
		}
		if !header {
			if _, err := fmt.Fprintln(w, "Explanations:"); err != nil {
				return err
			}
			header = true
		}
		text := c.Explanation.Text
		if !c.Explanation.Success {
			text = "unavailable (" + c.Explanation.Error + ")"
		}
		if _, err := fmt.Fprintf(w, "  #%d %s: %s\n", c.Rank, c.AreaCode, text); err != nil {
			return err
		}
		if c.Explanation.VideoURL != "" {
			if _, err := fmt.Fprintf(w, "     video: %s\n", c.Explanation.VideoURL); err != nil {
				return err
			}
		}
	}
	return nil
}

func writeFilteredReasons(w io.Writer, result *schema.RankingResult) error {
	if result.FilteredOutCount == 0 {
		return nil
	}
	if _, err := fmt.Fprintln(w, "Filtered out:"); err != nil {
		return err
	}
	for _, f := range result.FilteredOutReasons {
		if _, err := fmt.Fprintf(w, "  - %s: %s\n", f.AreaCode, f.Reason); err != nil {
			return err
		}
	}
	if more := result.FilteredOutCount - len(result.FilteredOutReasons); more > 0 {
		if _, err := fmt.Fprintf(w, "  ... and %d more\n", more); err != nil {
			return err
		}
	}
	return nil
}

// writeRankingCSV writes one row per recommendation with every factor score.
func writeRankingCSV(w io.Writer, result *schema.RankingResult, fmtFloat func(float64) string) error {
	header := []string{"rank", "area_code", "area_name", "composite_score", "label"}
	for _, f := range schema.AllFactors {
		header = append(header, string(f))
	}
	header = append(header, "strengths", "weaknesses", "trade_offs", "explanation", "persona", "run_id")

	return writeCSVWithHeader(w, header, func(cw *csv.Writer) error {
		for _, c := range result.Recommendations {
			rec := []string{
				strconv.Itoa(c.Rank),
				c.AreaCode,
				c.AreaName,
				fmtFloat(c.CompositeScore),
				contract.GetPlainLabel(c.CompositeScore),
			}
			for _, f := range schema.AllFactors {
				if score, ok := c.FactorScores[f]; ok {
					rec = append(rec, strconv.FormatFloat(schema.RoundTo(score, 0), 'f', 0, 64))
				} else {
					rec = append(rec, "")
				}
			}
			explanation := ""
			if c.Explanation != nil && c.Explanation.Success {
				explanation = c.Explanation.Text
			}
			rec = append(rec,
				strings.Join(c.Strengths, "|"),
				strings.Join(c.Weaknesses, "|"),
				c.TradeOffs,
				explanation,
				string(result.Persona),
				result.RunID,
			)
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
		return nil
	})
}

// formatWeights formats adjusted weights in canonical factor order, e.g.
// "affordability 35.0%, commute 25.0%".
func formatWeights(weights schema.WeightMap) string {
	var parts []string
	for _, f := range weights.Factors() {
		if weights[f] > 0 {
			parts = append(parts, fmt.Sprintf("%s %.1f%%", schema.FactorPhrase(f), weights[f]))
		}
	}
	return strings.Join(parts, ", ")
}

func areaDisplayName(c schema.ScoredCandidate) string {
	if c.AreaName == "" {
		return c.AreaCode
	}
	return fmt.Sprintf("%s (%s)", c.AreaCode, contract.TruncateText(c.AreaName, 20))
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
