package main

import (
	"fmt"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/iconidentify/makanmap/internal/app"
	"github.com/iconidentify/makanmap/internal/service"
)

const nameWidth = 40

func newNearCommand(ctx *commandContext) *cobra.Command {
	var q service.NearbyQuery

	cmd := &cobra.Command{
		Use:   "near",
		Short: "List restaurants around a point",
		Example: "  makanmap near --lat -6.2 --lng 106.8 --radius 5 --sort views",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(a *app.App) error {
				results, err := a.Restaurants.Nearby(cmd.Context(), q)
				if err != nil {
					return err
				}
				if len(results) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No restaurants found")
					return nil
				}
				rows := make([][]string, 0, len(results))
				for _, r := range results {
					rows = append(rows, []string{
						text.Trim(r.Name, nameWidth),
						fmt.Sprintf("%.2f km", r.DistanceKm),
						strconv.FormatInt(r.ViewCount, 10),
						r.ChannelName,
						r.MapsURL,
					})
				}
				fmt.Fprint(cmd.OutOrStdout(), renderTable(
					[]string{"Name", "Distance", "Views", "Channel", "Map"},
					rows,
					[]columnAlignment{alignLeft, alignRight, alignRight, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}

	cmd.Flags().Float64Var(&q.Lat, "lat", 0, "Latitude of the search centre")
	cmd.Flags().Float64Var(&q.Lng, "lng", 0, "Longitude of the search centre")
	cmd.Flags().Float64Var(&q.RadiusKm, "radius", service.DefaultRadiusKm, "Search radius in kilometres")
	cmd.Flags().StringVar(&q.Sort, "sort", service.SortDistance, "Sort order: distance, views or recent")
	cmd.Flags().IntVar(&q.Limit, "limit", 20, "Maximum results")
	_ = cmd.MarkFlagRequired("lat")
	_ = cmd.MarkFlagRequired("lng")
	return cmd
}
