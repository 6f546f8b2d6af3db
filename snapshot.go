package tripfinder

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/mnrtools/tripfinder/model"
	"github.com/mnrtools/tripfinder/storage"
)

// Snapshot is one complete, immutable copy of the schedule tables as
// of a given load, with the lookup structures queries need built up
// front. Snapshots are replaced wholesale by the Store, never mutated.
type Snapshot struct {
	Metadata *storage.FeedMetadata

	reader   storage.FeedReader
	location *time.Location

	nameToID        map[string]string
	idToName        map[string]string
	tripsByID       map[string]*model.Trip
	stopTimesByTrip map[string][]*model.StopTime
}

func NewSnapshot(reader storage.FeedReader, metadata *storage.FeedMetadata, location *time.Location) (*Snapshot, error) {
	s := &Snapshot{
		Metadata: metadata,
		reader:   reader,
		location: location,

		nameToID:        map[string]string{},
		idToName:        map[string]string{},
		tripsByID:       map[string]*model.Trip{},
		stopTimesByTrip: map[string][]*model.StopTime{},
	}

	stops, err := reader.Stops()
	if err != nil {
		return nil, fmt.Errorf("reading stops: %w", err)
	}
	for _, stop := range stops {
		// Lookups by name are case and whitespace
		// insensitive. On duplicate normalized names the last
		// row wins.
		s.nameToID[normalizeStationName(stop.Name)] = stop.ID
		s.idToName[stop.ID] = strings.TrimSpace(stop.Name)
	}

	trips, err := reader.Trips()
	if err != nil {
		return nil, fmt.Errorf("reading trips: %w", err)
	}
	for _, trip := range trips {
		s.tripsByID[trip.ID] = trip
	}

	stopTimes, err := reader.StopTimes()
	if err != nil {
		return nil, fmt.Errorf("reading stop times: %w", err)
	}
	for _, st := range stopTimes {
		s.stopTimesByTrip[st.TripID] = append(s.stopTimesByTrip[st.TripID], st)
	}
	for _, sts := range s.stopTimesByTrip {
		sort.Slice(sts, func(i, j int) bool {
			return sts[i].StopSequence < sts[j].StopSequence
		})
	}

	return s, nil
}

func normalizeStationName(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}

// StationID resolves a station name to its stop ID.
func (s *Snapshot) StationID(name string) (string, bool) {
	id, ok := s.nameToID[normalizeStationName(name)]
	return id, ok
}

// StationName returns the display name for a stop ID, or the ID
// itself if unknown.
func (s *Snapshot) StationName(id string) string {
	if name, ok := s.idToName[id]; ok {
		return name
	}
	return id
}

// ActiveServices returns the set of service IDs active on the given
// day.
func (s *Snapshot) ActiveServices(day time.Time) (map[string]bool, error) {
	serviceIDs, err := s.reader.ActiveServices(day.Format("20060102"))
	if err != nil {
		return nil, fmt.Errorf("resolving active services: %w", err)
	}

	active := map[string]bool{}
	for _, serviceID := range serviceIDs {
		active[serviceID] = true
	}
	return active, nil
}

func (s *Snapshot) Location() *time.Location {
	return s.location
}
