package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/example/analysis-worker/internal/events"
	"github.com/example/analysis-worker/internal/plugin"
	"github.com/example/analysis-worker/internal/processor"
)

// reportSummary aggregates the signature section of a report file.
type reportSummary struct {
	Input      string         `json:"input"`
	Results    int            `json:"results"`
	Matches    int            `json:"matches"`
	Alerts     int            `json:"alerts"`
	BySeverity map[string]int `json:"bySeverity"`
}

func newReportCmd() *cobra.Command {
	var inputPath string
	var summaryPath string

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Summarize the signatures of a report file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if inputPath == "" {
				return errors.New("--input is required")
			}

			summary, matches, err := summarizeReport(inputPath)
			if err != nil {
				return err
			}

			table, err := renderMatchTable(matches)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.ErrOrStderr(), table)

			emitter := events.NewEmitter(cmd.OutOrStdout())
			if err := emitter.Emit(events.Event{Type: events.TypeReportSummarized, Message: "Report summarized", Fields: map[string]interface{}{
				"input":       summary.Input,
				"matches":     summary.Matches,
				"alerts":      summary.Alerts,
				"bySeverity":  summary.BySeverity,
				"generatedAt": time.Now().UTC().Format(time.RFC3339),
			}}); err != nil {
				return err
			}

			if summaryPath != "" {
				if err := writeJSONFile(summaryPath, summary); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Summary written to %s\n", summaryPath)
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&inputPath, "input", "", "Path to a report JSON file")
	cmd.Flags().StringVar(&summaryPath, "summary-file", "", "Optional path to store summary JSON")
	if err := cmd.MarkFlagRequired("input"); err != nil {
		panic(err)
	}

	return cmd
}

func summarizeReport(path string) (reportSummary, []plugin.Match, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return reportSummary{}, nil, err
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return reportSummary{}, nil, fmt.Errorf("parse report: %w", err)
	}

	var matches []plugin.Match
	if sigs, ok := raw[processor.SignaturesKey]; ok {
		if err := json.Unmarshal(sigs, &matches); err != nil {
			return reportSummary{}, nil, fmt.Errorf("parse %s: %w", processor.SignaturesKey, err)
		}
	}

	summary := reportSummary{
		Input:      path,
		Results:    len(raw),
		Matches:    len(matches),
		BySeverity: map[string]int{},
	}
	if _, ok := raw[processor.SignaturesKey]; ok {
		summary.Results--
	}
	for _, m := range matches {
		summary.BySeverity[strconv.Itoa(m.Severity)]++
		if m.Alert {
			summary.Alerts++
		}
	}
	return summary, matches, nil
}

func renderMatchTable(matches []plugin.Match) (string, error) {
	sorted := append([]plugin.Match(nil), matches...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Severity > sorted[j].Severity })

	data := pterm.TableData{{"Severity", "Signature", "Alert", "Description"}}
	for _, m := range sorted {
		data = append(data, []string{strconv.Itoa(m.Severity), m.Name, strconv.FormatBool(m.Alert), m.Description})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
}
