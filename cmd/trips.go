package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	tripfinder "github.com/mnrtools/tripfinder"
	"github.com/mnrtools/tripfinder/config"
	"github.com/mnrtools/tripfinder/downloader"
)

var tripsCmd = &cobra.Command{
	Use:   "trips <origin> <destination>",
	Short: "Lists upcoming trips between two stations",
	Args:  cobra.ExactArgs(2),
	RunE:  trips,
}

var (
	tripsDate     string
	tripsRealtime bool
)

func init() {
	tripsCmd.Flags().StringVarP(&tripsDate, "date", "d", "", "Travel date (YYYY-MM-DD, default today)")
	tripsCmd.Flags().BoolVarP(&tripsRealtime, "realtime", "r", true, "Overlay live delay data")
}

func trips(cmd *cobra.Command, args []string) error {
	origin, destination := args[0], args[1]

	logger := zap.NewNop()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	st, err := openStorage(cfg)
	if err != nil {
		return err
	}

	dl := downloader.NewHTTP()
	store := tripfinder.NewStore(storeConfig(cfg), st, dl, logger)
	if err := store.Load(cmd.Context()); err != nil {
		return err
	}

	now := time.Now().In(cfg.Location)
	day := now
	if tripsDate != "" {
		day, err = time.ParseInLocation("2006-01-02", tripsDate, cfg.Location)
		if err != nil {
			return fmt.Errorf("invalid date %q, expected YYYY-MM-DD", tripsDate)
		}
	}

	var overlay *tripfinder.Overlay
	if tripsRealtime && cfg.RealtimeURL != "" {
		overlay, err = tripfinder.FetchOverlay(cmd.Context(), dl, cfg.RealtimeURL)
		if err != nil {
			fmt.Printf("Warning: failed to fetch real-time updates: %v\n", err)
			overlay = nil
		}
	}

	snapshot, err := store.Snapshot()
	if err != nil {
		return err
	}

	connections, err := snapshot.FindTrips(origin, destination, day, now, overlay)
	if err != nil {
		return err
	}

	for _, c := range connections {
		fmt.Printf("%s - %s | %s -> %s | Track: %s | Duration: %d min | Stops: %d | Last Stop: %s | Dep Status: %s | Arr Status: %s\n",
			c.ScheduledDeparture,
			c.ScheduledArrival,
			c.Origin,
			c.Destination,
			c.Track,
			c.DurationMinutes,
			c.StopCount,
			c.LastStop,
			c.DepartureStatus,
			c.ArrivalStatus,
		)
	}

	return nil
}
