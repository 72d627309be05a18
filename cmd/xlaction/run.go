package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/javajack/xlaction"
)

var (
	outputPath  string
	requestText string
	planFile    string
	scriptFile  string
	sheetName   string
	previewRows int
	format      string
	strict      bool
)

var runCmd = &cobra.Command{
	Use:   "run <input.xlsx>",
	Short: "Apply a plan to a workbook and save the result",
	Example: `  xlaction run sales.xlsx -o clean.xlsx --request "remove duplicates and clean"
  xlaction run sales.xlsx -o pivot.xlsx --plan plan.yaml
  xlaction run sales.xlsx -o split.xlsx --script steps.xl`,
	Args: cobra.ExactArgs(1),
	RunE: runPlan,
}

var planCmd = &cobra.Command{
	Use:   "plan <request text>",
	Short: "Show the plan a request would produce",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runPlanPreview,
}

var previewCmd = &cobra.Command{
	Use:   "preview <input.xlsx>",
	Short: "Show the headers and first rows of a sheet",
	Args:  cobra.ExactArgs(1),
	RunE:  runPreview,
}

func init() {
	runCmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output workbook (default: <input>_output.xlsx)")
	runCmd.Flags().StringVarP(&requestText, "request", "r", "", "Plain-language request")
	runCmd.Flags().StringVar(&planFile, "plan", "", "Plan file (.json, .yaml or script notation)")
	runCmd.Flags().StringVar(&scriptFile, "script", "", "Script file with one xl: step per line")
	runCmd.Flags().BoolVar(&strict, "strict", false, "Refuse to run when validation finds errors")
	runCmd.Flags().StringVar(&format, "format", "text", "Result format: text or json")
	runCmd.MarkFlagsMutuallyExclusive("request", "plan", "script")
	runCmd.MarkFlagsOneRequired("request", "plan", "script")

	planCmd.Flags().StringVar(&format, "format", "text", "Plan format: text, json or yaml")

	previewCmd.Flags().StringVar(&sheetName, "sheet", "", "Sheet to preview (default: first sheet)")
	previewCmd.Flags().IntVarP(&previewRows, "rows", "n", xlaction.DefaultPreviewRows, "Number of data rows")
	previewCmd.Flags().StringVar(&format, "format", "text", "Preview format: text or json")
}

// loadPlan builds the plan selected by the run flags.
func loadPlan() (xlaction.Plan, error) {
	switch {
	case planFile != "":
		return xlaction.LoadPlanFile(planFile)
	case scriptFile != "":
		data, err := os.ReadFile(scriptFile)
		if err != nil {
			return nil, fmt.Errorf("read script: %w", err)
		}
		return xlaction.ParseScript(string(data))
	default:
		return xlaction.Interpret(requestText), nil
	}
}

func defaultOutputPath(input string) string {
	ext := filepath.Ext(input)
	return strings.TrimSuffix(input, ext) + "_output.xlsx"
}

func runPlan(cmd *cobra.Command, args []string) error {
	input := args[0]
	plan, err := loadPlan()
	if err != nil {
		return err
	}
	if len(plan) == 0 {
		return errors.New("could not understand the request; no actions were recognized")
	}

	wb, err := xlaction.Open(input)
	if err != nil {
		return err
	}
	defer wb.Close()

	issues := xlaction.ValidatePlan(wb, plan)
	for _, is := range issues {
		logger.Warn("Plan issue", zap.String("issue", is.String()))
	}
	if strict && xlaction.HasErrors(issues) {
		return fmt.Errorf("plan has %d issue(s); not running with --strict", len(issues))
	}

	result, diff := xlaction.Execute(wb, plan, xlaction.WithLogger(logger))

	out := outputPath
	if out == "" {
		out = defaultOutputPath(input)
	}
	if err := wb.SaveAs(out); err != nil {
		return err
	}
	logger.Info("Workbook saved",
		zap.String("output", out),
		zap.Int("completed", result.ActionsCompleted),
		zap.Int("errors", len(result.Errors)))

	w := cmd.OutOrStdout()
	if format == "json" {
		return writeJSON(w, map[string]any{
			"output":      out,
			"results":     result,
			"diffSummary": diff,
		})
	}
	fmt.Fprintf(w, "Saved %s\n", out)
	fmt.Fprintf(w, "Completed %d of %d action(s)\n", result.ActionsCompleted, len(plan))
	for _, c := range diff.Changes {
		fmt.Fprintf(w, "  + %s\n", c)
	}
	for _, e := range result.Errors {
		fmt.Fprintf(w, "  ! %s\n", e)
	}
	if !result.Success {
		return errors.New("one or more actions failed")
	}
	return nil
}

func runPlanPreview(cmd *cobra.Command, args []string) error {
	plan := xlaction.Interpret(strings.Join(args, " "))
	w := cmd.OutOrStdout()
	switch format {
	case "json":
		return writeJSON(w, plan)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(plan); err != nil {
			return err
		}
		return enc.Close()
	default:
		_, err := io.WriteString(w, xlaction.DescribePlan(plan))
		return err
	}
}

func runPreview(cmd *cobra.Command, args []string) error {
	wb, err := xlaction.Open(args[0])
	if err != nil {
		return err
	}
	defer wb.Close()

	p, err := xlaction.PreviewSheet(wb, sheetName, previewRows)
	if err != nil {
		return err
	}
	w := cmd.OutOrStdout()
	if format == "json" {
		return writeJSON(w, p)
	}

	fmt.Fprintf(w, "Sheet %s (sheets: %s)\n", p.ActiveSheet, strings.Join(p.Sheets, ", "))
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(p.Headers, "\t"))
	for _, row := range p.Rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(w, "%d data row(s), %d column(s)\n", p.TotalRows, p.TotalColumns)
	for _, is := range p.Issues {
		fmt.Fprintf(w, "issue: %s\n", is)
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
