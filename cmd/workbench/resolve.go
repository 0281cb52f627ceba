package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kingrea/workbench/internal/config"
	"github.com/kingrea/workbench/internal/render"
	"github.com/kingrea/workbench/internal/tier"
)

var (
	resolveScore      string
	resolveScale      string
	resolveTable      string
	resolveComponents []string
	resolveJSON       bool
	resolveWidth      int
)

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Resolve one score against a tier table",
	Long: `Resolve a score the way the board does and print its label, percent and bar.

Components are given as name=score[:weight] and replace --score when present.`,
	Example: `  workbench resolve --score 72
  workbench resolve --table completeness --score 0.55 --scale fraction
  workbench resolve --component scope=90:0.5 --component budget=70:0.5`,
	Args: cobra.NoArgs,
	RunE: runResolve,
}

func init() {
	resolveCmd.Flags().StringVar(&resolveScore, "score", "", "Raw score (omit for no score)")
	resolveCmd.Flags().StringVar(&resolveScale, "scale", "percent", "Score scale: percent or fraction")
	resolveCmd.Flags().StringVar(&resolveTable, "table", "", "Tier table (defaults to board.default_table)")
	resolveCmd.Flags().StringArrayVar(&resolveComponents, "component", nil, "Weighted component name=score[:weight] (repeatable)")
	resolveCmd.Flags().BoolVar(&resolveJSON, "json", false, "Print the result as JSON")
	resolveCmd.Flags().IntVar(&resolveWidth, "width", render.DefaultBarWidth, "Bar width in cells")
	rootCmd.AddCommand(resolveCmd)
}

func runResolve(cmd *cobra.Command, args []string) error {
	e, err := loadEnv()
	if err != nil {
		return err
	}
	defer e.Close()
	input, err := buildScoreInput(resolveScore, resolveScale, resolveComponents)
	if err != nil {
		return err
	}
	table, err := lookupTable(e.cfg, resolveTable)
	if err != nil {
		return err
	}
	result := tier.Resolve(input, table.Thresholds)
	e.logger.Debugf("resolve table=%s input=%+v result=%+v", table.Name, input, result)
	if resolveJSON {
		return writeResultJSON(cmd.OutOrStdout(), result)
	}
	palette := render.NewPalette(e.cfg.Project.Palette)
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s %4s %s\n", palette.Bar(result, resolveWidth), render.Percent(result), palette.Label(result))
	return err
}

func writeResultJSON(w io.Writer, result tier.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// lookupTable returns the named table, or the default when name is blank.
func lookupTable(cfg *config.Config, name string) (config.TierTable, error) {
	if strings.TrimSpace(name) == "" {
		name = cfg.DefaultTable()
	}
	table, ok := cfg.Table(name)
	if !ok {
		var known []string
		for _, t := range cfg.Tables() {
			known = append(known, t.Name)
		}
		return config.TierTable{}, fmt.Errorf("unknown tier table %q (known: %s)", name, strings.Join(known, ", "))
	}
	return table, nil
}

func buildScoreInput(score, scale string, components []string) (tier.ScoreInput, error) {
	parsedScale, err := tier.ParseScale(scale)
	if err != nil {
		return tier.ScoreInput{}, err
	}
	input := tier.ScoreInput{Scale: parsedScale}
	if value := strings.TrimSpace(score); value != "" {
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return tier.ScoreInput{}, fmt.Errorf("--score %q is not a number", score)
		}
		input.RawScore = &f
	}
	if len(components) > 0 {
		input.Components = make(map[string]tier.Component, len(components))
		for _, raw := range components {
			name, component, err := parseComponent(raw)
			if err != nil {
				return tier.ScoreInput{}, err
			}
			if _, dup := input.Components[name]; dup {
				return tier.ScoreInput{}, fmt.Errorf("component %q given twice", name)
			}
			input.Components[name] = component
		}
	}
	return input, nil
}

// parseComponent reads name=score[:weight]. A missing weight leaves the
// component out of the weighted sum, matching the upstream payloads.
func parseComponent(raw string) (string, tier.Component, error) {
	name, rest, ok := strings.Cut(raw, "=")
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		return "", tier.Component{}, fmt.Errorf("expected name=score[:weight], got %q", raw)
	}
	scoreText, weightText, hasWeight := strings.Cut(rest, ":")
	var component tier.Component
	if s := strings.TrimSpace(scoreText); s != "" {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return "", tier.Component{}, fmt.Errorf("component %s: score %q is not a number", name, s)
		}
		component.Score = &v
	}
	if hasWeight {
		w, err := strconv.ParseFloat(strings.TrimSpace(weightText), 64)
		if err != nil {
			return "", tier.Component{}, fmt.Errorf("component %s: weight %q is not a number", name, weightText)
		}
		component.Weight = &w
	}
	return name, component, nil
}
