package tripfinder

import (
	"fmt"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mnrtools/tripfinder/parse"
	"github.com/mnrtools/tripfinder/testutil"
)

func TestFindTrips(t *testing.T) {
	snapshot := loadSnapshot(t, testutil.ValidFeed())

	// Query for a future day, so no departure is filtered out.
	day := time.Date(2097, 6, 3, 0, 0, 0, 0, time.UTC)
	now := time.Date(2025, 6, 3, 9, 0, 0, 0, time.UTC)

	connections, err := snapshot.FindTrips("stamford", "GRAND CENTRAL", day, now, nil)
	require.NoError(t, err)

	require.Len(t, connections, 2)
	assert.Equal(t, Connection{
		TripShortName:      "6501",
		Origin:             "Stamford",
		Destination:        "Grand Central",
		TripID:             "t1",
		ScheduledDeparture: "08:15 AM",
		ScheduledArrival:   "09:10 AM",
		DurationMinutes:    55,
		Track:              "5",
		StopCount:          3,
		LastStop:           "Grand Central",
		Departure:          time.Date(2097, 6, 3, 8, 15, 0, 0, time.UTC),
	}, connections[0])
	assert.Equal(t, "6503", connections[1].TripShortName)
	assert.Equal(t, "09:15 AM", connections[1].ScheduledDeparture)
	assert.Equal(t, "3", connections[1].Track)
}

func TestFindTripsReverseDirection(t *testing.T) {
	snapshot := loadSnapshot(t, testutil.ValidFeed())

	day := time.Date(2097, 6, 3, 0, 0, 0, 0, time.UTC)
	now := time.Date(2025, 6, 3, 9, 0, 0, 0, time.UTC)

	// Only the outbound trip visits the stations in this order.
	connections, err := snapshot.FindTrips("Grand Central", "Stamford", day, now, nil)
	require.NoError(t, err)

	require.Len(t, connections, 1)
	assert.Equal(t, "6502", connections[0].TripShortName)
	assert.Equal(t, "24", connections[0].Track)
	assert.Equal(t, "Stamford", connections[0].LastStop)
}

func TestFindTripsUnknownStation(t *testing.T) {
	snapshot := loadSnapshot(t, testutil.ValidFeed())

	day := time.Date(2097, 6, 3, 0, 0, 0, 0, time.UTC)

	_, err := snapshot.FindTrips("Narnia", "Grand Central", day, day, nil)
	assert.True(t, errors.Is(err, ErrUnknownStation))

	_, err = snapshot.FindTrips("Stamford", "Narnia", day, day, nil)
	assert.True(t, errors.Is(err, ErrUnknownStation))
}

func TestFindTripsAlreadyDeparted(t *testing.T) {
	snapshot := loadSnapshot(t, testutil.ValidFeed())

	day := time.Date(2097, 6, 3, 0, 0, 0, 0, time.UTC)

	// Querying for today at 09:00: the 08:15 has left, the 09:15
	// has not.
	now := time.Date(2097, 6, 3, 9, 0, 0, 0, time.UTC)
	connections, err := snapshot.FindTrips("Stamford", "Grand Central", day, now, nil)
	require.NoError(t, err)
	require.Len(t, connections, 1)
	assert.Equal(t, "6503", connections[0].TripShortName)

	// A departure at exactly now counts as departed.
	now = time.Date(2097, 6, 3, 9, 15, 0, 0, time.UTC)
	connections, err = snapshot.FindTrips("Stamford", "Grand Central", day, now, nil)
	require.NoError(t, err)
	assert.Len(t, connections, 0)

	// For any other day the filter does not apply, even when the
	// clock reads later than every departure.
	now = time.Date(2025, 6, 3, 23, 0, 0, 0, time.UTC)
	connections, err = snapshot.FindTrips("Stamford", "Grand Central", day, now, nil)
	require.NoError(t, err)
	assert.Len(t, connections, 2)
}

func TestFindTripsOvernight(t *testing.T) {
	files := testutil.ValidFeed()
	files["trips.txt"] = `trip_id,service_id,trip_short_name
late,WK,6599
owl,WK,6597
`
	files["stop_times.txt"] = `trip_id,stop_id,stop_sequence,arrival_time,departure_time
late,3,1,23:45:00,23:50:00
late,1,2,00:20:00,00:22:00
owl,3,1,25:25:00,25:30:00
owl,1,2,26:10:00,26:12:00
`

	snapshot := loadSnapshot(t, files)

	day := time.Date(2097, 6, 3, 0, 0, 0, 0, time.UTC)
	now := time.Date(2025, 6, 3, 9, 0, 0, 0, time.UTC)

	connections, err := snapshot.FindTrips("Stamford", "Grand Central", day, now, nil)
	require.NoError(t, err)
	require.Len(t, connections, 2)

	// An arrival clocked before the departure rolls into the next
	// day.
	late := connections[0]
	assert.Equal(t, "6599", late.TripShortName)
	assert.Equal(t, "11:50 PM", late.ScheduledDeparture)
	assert.Equal(t, "12:20 AM", late.ScheduledArrival)
	assert.Equal(t, 30, late.DurationMinutes)

	// Hours past 24 land on the next day as well.
	owl := connections[1]
	assert.Equal(t, "6597", owl.TripShortName)
	assert.Equal(t, "01:30 AM", owl.ScheduledDeparture)
	assert.Equal(t, "02:10 AM", owl.ScheduledArrival)
	assert.Equal(t, 40, owl.DurationMinutes)
	assert.Equal(t, time.Date(2097, 6, 4, 1, 30, 0, 0, time.UTC), owl.Departure)
}

func TestFindTripsLimitAndOrder(t *testing.T) {
	files := testutil.ValidFeed()

	trips := "trip_id,service_id,trip_short_name\n"
	stopTimes := "trip_id,stop_id,stop_sequence,arrival_time,departure_time\n"
	for i := 0; i < 12; i++ {
		trips += fmt.Sprintf("x%d,WK,%d\n", i, 6500+i)
		// Departures in reverse order, one per hour from 18:05
		// down to 07:05.
		stopTimes += fmt.Sprintf("x%d,3,1,%02d:00:00,%02d:05:00\n", i, 18-i, 18-i)
		stopTimes += fmt.Sprintf("x%d,1,2,%02d:55:00,%02d:56:00\n", i, 18-i, 18-i)
	}
	files["trips.txt"] = trips
	files["stop_times.txt"] = stopTimes

	snapshot := loadSnapshot(t, files)

	day := time.Date(2097, 6, 3, 0, 0, 0, 0, time.UTC)
	now := time.Date(2025, 6, 3, 9, 0, 0, 0, time.UTC)

	connections, err := snapshot.FindTrips("Stamford", "Grand Central", day, now, nil)
	require.NoError(t, err)

	// The two latest departures fall off the end.
	require.Len(t, connections, MaxConnections)
	for i := 1; i < len(connections); i++ {
		assert.False(t, connections[i].Departure.Before(connections[i-1].Departure))
	}
	assert.Equal(t, "07:05 AM", connections[0].ScheduledDeparture)
	assert.Equal(t, "04:05 PM", connections[9].ScheduledDeparture)
}

func TestFindTripsWithOverlay(t *testing.T) {
	snapshot := loadSnapshot(t, testutil.ValidFeed())

	// The feed keys entities by the trip's short name.
	overlay := NewOverlay(&parse.Realtime{
		Updates: []*parse.StopTimeUpdate{
			{
				EntityID:          "6501",
				TripID:            "t1",
				StopID:            "3",
				DepartureDelaySet: true,
				DepartureDelay:    2 * time.Minute,
			},
			{
				EntityID:          "6501",
				TripID:            "t1",
				StopID:            "1",
				DepartureDelaySet: true,
				DepartureDelay:    0,
			},
		},
	})

	day := time.Date(2097, 6, 3, 0, 0, 0, 0, time.UTC)
	now := time.Date(2025, 6, 3, 9, 0, 0, 0, time.UTC)

	connections, err := snapshot.FindTrips("Stamford", "Grand Central", day, now, overlay)
	require.NoError(t, err)
	require.Len(t, connections, 2)

	assert.Equal(t, "Delayed 2 min(s)", connections[0].DepartureStatus)
	assert.Equal(t, "On Time", connections[0].ArrivalStatus)

	// No realtime record for the second trip.
	assert.Equal(t, "", connections[1].DepartureStatus)
	assert.Equal(t, "", connections[1].ArrivalStatus)
}

func TestFindTripsIdempotent(t *testing.T) {
	snapshot := loadSnapshot(t, testutil.ValidFeed())

	day := time.Date(2097, 6, 3, 0, 0, 0, 0, time.UTC)
	now := time.Date(2025, 6, 3, 9, 0, 0, 0, time.UTC)

	first, err := snapshot.FindTrips("Stamford", "Grand Central", day, now, nil)
	require.NoError(t, err)
	second, err := snapshot.FindTrips("Stamford", "Grand Central", day, now, nil)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}
