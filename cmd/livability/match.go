package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/i474232898/livability/internal/livability"
)

var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Print the nearest reference ZIP code for a coordinate",
	RunE: func(cmd *cobra.Command, args []string) error {
		lat, _ := cmd.Flags().GetFloat64("lat")
		lon, _ := cmd.Flags().GetFloat64("lon")
		maxMiles, _ := cmd.Flags().GetFloat64("max-miles")

		p, err := newPipeline(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer p.Close()

		m, err := p.service.Nearest(livability.Coordinate{Lat: lat, Lon: lon}, maxMiles)
		if err != nil {
			return err
		}

		table := tablewriter.NewWriter(os.Stdout)
		table.Header([]string{"ZIP", "City", "State", "Distance (mi)", "Raw distance (mi)"})
		if err := table.Append([]string{
			fmt.Sprintf("%05d", m.Record.Zipcode),
			m.Record.City,
			m.Record.State,
			strconv.Itoa(m.DistanceMiles),
			strconv.FormatFloat(m.RawDistanceMiles, 'f', 3, 64),
		}); err != nil {
			return err
		}
		return table.Render()
	},
}

func init() {
	matchCmd.Flags().Float64("lat", 0, "Latitude in decimal degrees")
	matchCmd.Flags().Float64("lon", 0, "Longitude in decimal degrees")
	matchCmd.Flags().Float64("max-miles", 0, "Maximum match distance in miles (0 uses the configured default)")
	_ = matchCmd.MarkFlagRequired("lat")
	_ = matchCmd.MarkFlagRequired("lon")
}
