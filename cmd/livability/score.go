package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/spf13/cobra"

	"github.com/i474232898/livability/internal/livability"
)

var scoreCmd = &cobra.Command{
	Use:   "score <address>",
	Short: "Score a single address and print the result",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")

		p, err := newPipeline(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer p.Close()

		ev, err := p.service.Evaluate(cmd.Context(), strings.Join(args, " "))
		if err != nil {
			return err
		}

		if asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(map[string]any{
				"run_id":      ev.RunID,
				"lat":         ev.Match.Query.Lat,
				"lon":         ev.Match.Query.Lon,
				"score":       ev.Score.Score,
				"explanation": ev.Score.Explanation,
				"data":        ev.Payload,
			})
		}
		return printEvaluation(ev)
	},
}

func init() {
	scoreCmd.Flags().Bool("json", false, "Print the result and aggregated data as JSON")
}

var (
	goodColor = color.New(color.FgGreen, color.Bold)
	fairColor = color.New(color.FgYellow, color.Bold)
	poorColor = color.New(color.FgRed, color.Bold)
)

// scoreLabel colors a score by band.
func scoreLabel(score float64) string {
	s := strconv.FormatFloat(score, 'f', -1, 64)
	switch {
	case score >= 70:
		return goodColor.Sprint(s)
	case score >= 40:
		return fairColor.Sprint(s)
	default:
		return poorColor.Sprint(s)
	}
}

func printEvaluation(ev *livability.Evaluation) error {
	table := tablewriter.NewWriter(os.Stdout)
	table.Header([]string{"Field", "Value"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignLeft
	})

	r := ev.Match.Record
	data := [][]string{
		{"Query", ev.Query},
		{"Location", ev.Location.DisplayName},
		{"Coordinates", fmt.Sprintf("%.5f, %.5f", ev.Match.Query.Lat, ev.Match.Query.Lon)},
		{"ZIP", fmt.Sprintf("%05d (%s, %s)", r.Zipcode, r.City, r.State)},
		{"Distance", fmt.Sprintf("%d mi", ev.Match.DistanceMiles)},
	}
	for _, k := range livability.Kinds {
		status := "ok"
		if err := ev.Bundle.Reason(k); err != nil {
			status = color.HiBlackString(err.Error())
		}
		data = append(data, []string{string(k), status})
	}
	data = append(data,
		[]string{"Score", scoreLabel(ev.Score.Score)},
		[]string{"Explanation", ev.Score.Explanation},
	)

	if err := table.Bulk(data); err != nil {
		return err
	}
	return table.Render()
}
