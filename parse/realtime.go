package parse

import (
	"fmt"
	"time"

	gtfsproto "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	proto "google.golang.org/protobuf/proto"
)

// A single per-stop record from a realtime feed, flattened to what
// the delay overlay needs. EntityID is the ID of the feed entity the
// record came from; some feeds use the trip's short name there.
type StopTimeUpdate struct {
	EntityID          string
	TripID            string
	StopID            string
	DepartureDelaySet bool
	DepartureDelay    time.Duration
}

// Key data from a decoded realtime feed.
type Realtime struct {
	Timestamp uint64
	Updates   []*StopTimeUpdate
}

func ParseRealtime(feed []byte) (*Realtime, error) {
	f := &gtfsproto.FeedMessage{}
	err := proto.Unmarshal(feed, f)
	if err != nil {
		return nil, fmt.Errorf("unmarshaling protobuf: %w", err)
	}

	rt := &Realtime{
		Timestamp: f.GetHeader().GetTimestamp(),
		Updates:   []*StopTimeUpdate{},
	}

	for _, entity := range f.GetEntity() {
		// We only care about TripUpdates
		if entity.TripUpdate == nil {
			continue
		}

		trip := entity.TripUpdate.Trip
		if trip == nil || trip.GetTripId() == "" {
			continue
		}

		for _, update := range entity.TripUpdate.GetStopTimeUpdate() {
			if update.GetStopId() == "" {
				continue
			}

			stup := &StopTimeUpdate{
				EntityID: entity.GetId(),
				TripID:   trip.GetTripId(),
				StopID:   update.GetStopId(),
			}

			if update.Departure != nil && update.Departure.Delay != nil {
				stup.DepartureDelaySet = true
				stup.DepartureDelay = time.Duration(update.GetDeparture().GetDelay()) * time.Second
			}

			rt.Updates = append(rt.Updates, stup)
		}
	}

	return rt, nil
}
