package parse

import (
	"bytes"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mnrtools/tripfinder/model"
	"github.com/mnrtools/tripfinder/storage"
)

func TestStops(t *testing.T) {
	for _, tc := range []struct {
		name     string
		content  string
		expected []*model.Stop
		err      bool
	}{
		{
			"two stations",
			`
stop_id,stop_name
1,Grand Central
3,Stamford`,
			[]*model.Stop{
				{ID: "1", Name: "Grand Central"},
				{ID: "3", Name: "Stamford"},
			},
			false,
		},

		{
			"extra columns ignored",
			`
stop_id,stop_name,stop_lat,stop_lon
1,Grand Central,40.752998,-73.977056`,
			[]*model.Stop{
				{ID: "1", Name: "Grand Central"},
			},
			false,
		},

		{
			"empty stop_id",
			`
stop_id,stop_name
,Grand Central`,
			nil,
			true,
		},

		{
			"repeated stop_id",
			`
stop_id,stop_name
1,Grand Central
1,Stamford`,
			nil,
			true,
		},

		{
			"empty stop_name",
			`
stop_id,stop_name
1,`,
			nil,
			true,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			s := storage.NewMemoryStorage()
			writer, err := s.GetWriter("test")
			require.NoError(t, err)

			stopIDs, err := ParseStops(writer, bytes.NewBufferString(tc.content))
			if tc.err {
				assert.Error(t, err)
				return
			}

			assert.NoError(t, err)

			reader, err := s.GetReader("test")
			require.NoError(t, err)
			stops, err := reader.Stops()
			require.NoError(t, err)

			sort.Slice(stops, func(i, j int) bool {
				return stops[i].ID < stops[j].ID
			})
			assert.Equal(t, tc.expected, stops)

			assert.Equal(t, len(tc.expected), len(stopIDs))
			for _, st := range tc.expected {
				assert.True(t, stopIDs[st.ID])
			}
		})
	}
}
