package tripfinder

import (
	"sort"
	"time"

	"github.com/pkg/errors"

	"github.com/mnrtools/tripfinder/model"
)

// ErrUnknownStation means an origin or destination name did not
// resolve to any station in the current schedule.
var ErrUnknownStation = errors.New("unknown station")

// Most connections returned by a single query.
const MaxConnections = 10

// Connection is one scheduled run from an origin to a destination
// station, with live status merged in when available.
type Connection struct {
	TripShortName      string `json:"trip_short_name"`
	Origin             string `json:"origin"`
	Destination        string `json:"destination"`
	TripID             string `json:"trip_id"`
	ScheduledDeparture string `json:"scheduled_departure_time"`
	ScheduledArrival   string `json:"scheduled_arrival_time"`
	DepartureStatus    string `json:"departure_status,omitempty"`
	ArrivalStatus      string `json:"arrival_status,omitempty"`
	DurationMinutes    int    `json:"duration_minutes"`
	Track              string `json:"track"`
	StopCount          int    `json:"stop_count"`
	LastStop           string `json:"last_stop"`

	// The departure instant, for ordering.
	Departure time.Time `json:"-"`
}

// FindTrips returns up to MaxConnections trips from origin to
// destination on the given day, ordered by departure time. When day
// is today (relative to now), trips whose departure time-of-day has
// already passed are excluded. The overlay may be nil.
func (s *Snapshot) FindTrips(origin, destination string, day, now time.Time, overlay *Overlay) ([]Connection, error) {
	fromID, ok := s.StationID(origin)
	if !ok {
		return nil, errors.Wrap(ErrUnknownStation, origin)
	}
	toID, ok := s.StationID(destination)
	if !ok {
		return nil, errors.Wrap(ErrUnknownStation, destination)
	}

	active, err := s.ActiveServices(day)
	if err != nil {
		return nil, err
	}

	day = day.In(s.location)
	now = now.In(s.location)
	sameDay := day.Format("20060102") == now.Format("20060102")

	// Noon minus 12h dodges DST transitions shifting the start of
	// the day.
	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 12, 0, 0, 0, s.location).
		Add(-12 * time.Hour)

	connections := []Connection{}

	for tripID, stopTimes := range s.stopTimesByTrip {
		trip := s.tripsByID[tripID]
		if trip == nil || !active[trip.ServiceID] {
			continue
		}

		fromIdx, toIdx := stopPositions(stopTimes, fromID, toID)
		if fromIdx < 0 || toIdx < 0 || fromIdx >= toIdx {
			continue
		}

		depOffset := stopTimes[fromIdx].DepartureTime()
		arrOffset := stopTimes[toIdx].ArrivalTime()

		// An arrival offset below the departure offset means the
		// trip crosses into the next calendar day.
		if arrOffset < depOffset {
			arrOffset += 24 * time.Hour
		}

		dep := dayStart.Add(depOffset)
		arr := dayStart.Add(arrOffset)

		if sameDay && clockOf(dep) <= clockOf(now) {
			// Already departed. Compares time-of-day only,
			// matching the system this schedule mirrors.
			continue
		}

		track := stopTimes[fromIdx].Headsign
		if track == "" {
			track = stopTimes[fromIdx].Track
		}
		if track == "" {
			track = "N/A"
		}

		last := stopTimes[len(stopTimes)-1]

		connections = append(connections, Connection{
			TripShortName:      trip.ShortName,
			Origin:             s.StationName(fromID),
			Destination:        s.StationName(toID),
			TripID:             tripID,
			ScheduledDeparture: dep.Format("03:04 PM"),
			ScheduledArrival:   arr.Format("03:04 PM"),
			DepartureStatus:    overlay.StatusFor(trip.ShortName, tripID, fromID),
			ArrivalStatus:      overlay.StatusFor(trip.ShortName, tripID, toID),
			DurationMinutes:    int((arrOffset - depOffset).Minutes()),
			Track:              track,
			StopCount:          toIdx - fromIdx + 1,
			LastStop:           s.StationName(last.StopID),
			Departure:          dep,
		})
	}

	sort.SliceStable(connections, func(i, j int) bool {
		return connections[i].Departure.Before(connections[j].Departure)
	})

	if len(connections) > MaxConnections {
		connections = connections[:MaxConnections]
	}

	return connections, nil
}

// stopPositions returns the positions of the two stops within a
// trip's sorted stop sequence, or -1 for stops the trip never visits.
func stopPositions(stopTimes []*model.StopTime, fromID, toID string) (int, int) {
	fromIdx, toIdx := -1, -1
	for i, st := range stopTimes {
		if fromIdx < 0 && st.StopID == fromID {
			fromIdx = i
		}
		if toIdx < 0 && st.StopID == toID {
			toIdx = i
		}
	}
	return fromIdx, toIdx
}

// clockOf reduces an instant to its time-of-day.
func clockOf(t time.Time) time.Duration {
	return time.Duration(t.Hour())*time.Hour +
		time.Duration(t.Minute())*time.Minute +
		time.Duration(t.Second())*time.Second
}
