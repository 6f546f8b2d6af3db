package tripfinder

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mnrtools/tripfinder/parse"
	"github.com/mnrtools/tripfinder/storage"
	"github.com/mnrtools/tripfinder/testutil"
)

// loadSnapshot parses the given schedule files into a fresh memory
// backend and builds a snapshot over them.
func loadSnapshot(t *testing.T, files map[string]string) *Snapshot {
	t.Helper()

	s := storage.NewMemoryStorage()
	writer, err := s.GetWriter("test")
	require.NoError(t, err)

	metadata, err := parse.ParseStatic(writer, testutil.BuildZip(t, files))
	require.NoError(t, err)

	reader, err := s.GetReader("test")
	require.NoError(t, err)

	snapshot, err := NewSnapshot(reader, metadata, time.UTC)
	require.NoError(t, err)

	return snapshot
}

func TestSnapshotStationLookup(t *testing.T) {
	snapshot := loadSnapshot(t, testutil.ValidFeed())

	// Name lookups ignore case and surrounding whitespace.
	for _, name := range []string{
		"Grand Central",
		"GRAND CENTRAL",
		"grand central",
		"  Grand Central  ",
	} {
		id, ok := snapshot.StationID(name)
		assert.True(t, ok, "name %q", name)
		assert.Equal(t, "1", id)
	}

	_, ok := snapshot.StationID("Poughkeepsie")
	assert.False(t, ok)

	// Display names keep the schedule's casing.
	assert.Equal(t, "Grand Central", snapshot.StationName("1"))
	assert.Equal(t, "Stamford", snapshot.StationName("3"))

	// Unknown IDs fall back to the ID itself.
	assert.Equal(t, "99", snapshot.StationName("99"))
}

func TestSnapshotDuplicateStationNames(t *testing.T) {
	files := testutil.ValidFeed()
	files["stops.txt"] = `stop_id,stop_name
1,Grand Central
2,grand central
`
	files["stop_times.txt"] = `trip_id,stop_id,stop_sequence,arrival_time,departure_time
t1,1,1,08:10:00,08:15:00
t1,2,2,09:10:00,09:12:00
t2,1,1,09:10:00,09:15:00
t3,1,1,08:00:00,08:07:00
`

	snapshot := loadSnapshot(t, files)

	// On duplicate normalized names the last stop row wins.
	id, ok := snapshot.StationID("GRAND CENTRAL")
	assert.True(t, ok)
	assert.Equal(t, "2", id)
}

func TestSnapshotActiveServices(t *testing.T) {
	snapshot := loadSnapshot(t, testutil.ValidFeed())

	// A plain day within the calendar range.
	active, err := snapshot.ActiveServices(time.Date(2025, 6, 9, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"WK": true}, active)

	// The calendar_dates holiday adds HOL.
	active, err = snapshot.ActiveServices(time.Date(2025, 7, 4, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"WK": true, "HOL": true}, active)
}
