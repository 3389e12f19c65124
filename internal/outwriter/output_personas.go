package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/huangsam/placewise/internal/contract"
	"github.com/huangsam/placewise/schema"
	"github.com/olekukonko/tablewriter"
)

// PrintPersonas displays the base weight of every factor for each persona.
// This is a static display that does not need any area data.
func PrintPersonas(profiles []schema.PersonaProfile, cfg *contract.Config) error {
	switch cfg.Output {
	case schema.JSONOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, profiles)
		}, "Wrote JSON")
	case schema.CSVOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writePersonasCSV(w, profiles)
		}, "Wrote CSV")
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writePersonasText(w, profiles, cfg)
		}, "Wrote text")
	}
}

func writePersonasText(w io.Writer, profiles []schema.PersonaProfile, cfg *contract.Config) error {
	for _, p := range profiles {
		marker := ""
		if p.Name == cfg.Persona {
			marker = " (selected)"
		}
		if _, err := fmt.Fprintf(w, "%s%s: %s\n", p.Name, marker, p.Description); err != nil {
			return err
		}

		table := tablewriter.NewWriter(w)
		table.Header([]string{"Factor", "Weight", "Share"})
		total := p.Weights.Sum()
		var data [][]string
		for _, f := range p.Weights.Factors() {
			share := 0.0
			if total > 0 {
				share = p.Weights[f] / total * 100
			}
			data = append(data, []string{
				schema.FactorLabel(f),
				strconv.FormatFloat(p.Weights[f], 'f', -1, 64),
				fmt.Sprintf("%.1f%%", share),
			})
		}
		if err := table.Bulk(data); err != nil {
			return err
		}
		if err := table.Render(); err != nil {
			return err
		}
		if _, err := fmt.Fprintln(w); err != nil {
			return err
		}
	}
	return nil
}

func writePersonasCSV(w io.Writer, profiles []schema.PersonaProfile) error {
	return writeCSVWithHeader(w, []string{"persona", "factor", "weight"}, func(cw *csv.Writer) error {
		for _, p := range profiles {
			for _, f := range p.Weights.Factors() {
				if err := cw.Write([]string{string(p.Name), string(f), strconv.FormatFloat(p.Weights[f], 'f', -1, 64)}); err != nil {
					return err
				}
			}
		}
		return nil
	})
}
