package parse

import (
	"fmt"
	"io"

	"github.com/gocarina/gocsv"

	"github.com/mnrtools/tripfinder/model"
	"github.com/mnrtools/tripfinder/storage"
)

type StopCSV struct {
	ID   string `csv:"stop_id"`
	Name string `csv:"stop_name"`
	// Lat  float64 `csv:"stop_lat"`
	// Lon  float64 `csv:"stop_lon"`
	// ZoneID string `csv:"zone_id"`
	// URL    string `csv:"stop_url"`
}

// Returns the set of stop IDs seen.
func ParseStops(writer storage.FeedWriter, data io.Reader) (map[string]bool, error) {
	stopCsv := []*StopCSV{}
	if err := gocsv.Unmarshal(data, &stopCsv); err != nil {
		return nil, fmt.Errorf("unmarshaling stops csv: %w", err)
	}

	stopIDs := map[string]bool{}
	for _, st := range stopCsv {
		if st.ID == "" {
			return nil, fmt.Errorf("empty stop_id")
		}
		if stopIDs[st.ID] {
			return nil, fmt.Errorf("repeated stop_id '%s'", st.ID)
		}
		stopIDs[st.ID] = true

		if st.Name == "" {
			return nil, fmt.Errorf("empty stop_name for stop_id '%s'", st.ID)
		}

		err := writer.WriteStop(&model.Stop{
			ID:   st.ID,
			Name: st.Name,
		})
		if err != nil {
			return nil, fmt.Errorf("writing stop '%s': %w", st.ID, err)
		}
	}

	return stopIDs, nil
}
