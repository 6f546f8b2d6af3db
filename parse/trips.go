package parse

import (
	"fmt"
	"io"

	"github.com/gocarina/gocsv"

	"github.com/mnrtools/tripfinder/model"
	"github.com/mnrtools/tripfinder/storage"
)

type TripCSV struct {
	ID        string `csv:"trip_id"`
	ServiceID string `csv:"service_id"`
	ShortName string `csv:"trip_short_name"`
	// RouteID  string `csv:"route_id"`
	// Headsign string `csv:"trip_headsign"`
}

// Returns the set of trip IDs seen.
func ParseTrips(
	writer storage.FeedWriter,
	data io.Reader,
	services map[string]bool,
) (map[string]bool, error) {
	tripCsv := []*TripCSV{}
	if err := gocsv.Unmarshal(data, &tripCsv); err != nil {
		return nil, fmt.Errorf("unmarshaling trips csv: %w", err)
	}

	trips := map[string]bool{}
	for _, t := range tripCsv {
		if t.ID == "" {
			return nil, fmt.Errorf("empty trip_id")
		}
		if trips[t.ID] {
			return nil, fmt.Errorf("repeated trip_id '%s'", t.ID)
		}
		trips[t.ID] = true

		if !services[t.ServiceID] {
			return nil, fmt.Errorf("unknown service_id '%s'", t.ServiceID)
		}

		err := writer.WriteTrip(&model.Trip{
			ID:        t.ID,
			ServiceID: t.ServiceID,
			ShortName: t.ShortName,
		})
		if err != nil {
			return nil, fmt.Errorf("writing trip: %w", err)
		}
	}

	return trips, nil
}
