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

func TestCalendarDates(t *testing.T) {
	for _, tc := range []struct {
		name     string
		content  string
		expected []*model.CalendarDate
		minDate  string
		maxDate  string
		err      bool
	}{
		{
			"added and removed",
			`
service_id,date,exception_type
s1,20250704,1
s2,20250704,2
s1,20251225,2`,
			[]*model.CalendarDate{
				{ServiceID: "s1", Date: "20250704", ExceptionType: model.ServiceAdded},
				{ServiceID: "s1", Date: "20251225", ExceptionType: model.ServiceRemoved},
				{ServiceID: "s2", Date: "20250704", ExceptionType: model.ServiceRemoved},
			},
			"20250704",
			"20251225",
			false,
		},

		{
			"illegal exception_type",
			`
service_id,date,exception_type
s1,20250704,3`,
			nil, "", "", true,
		},

		{
			"invalid date",
			`
service_id,date,exception_type
s1,20251301,1`,
			nil, "", "", true,
		},

		{
			"duplicate service and date",
			`
service_id,date,exception_type
s1,20250704,1
s1,20250704,2`,
			nil, "", "", true,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			s := storage.NewMemoryStorage()
			writer, err := s.GetWriter("test")
			require.NoError(t, err)

			serviceIDs, minDate, maxDate, err := ParseCalendarDates(writer, bytes.NewBufferString(tc.content))
			if tc.err {
				assert.Error(t, err)
				return
			}

			assert.NoError(t, err)

			reader, err := s.GetReader("test")
			require.NoError(t, err)
			cds, err := reader.CalendarDates()
			require.NoError(t, err)

			sort.Slice(cds, func(i, j int) bool {
				if cds[i].ServiceID != cds[j].ServiceID {
					return cds[i].ServiceID < cds[j].ServiceID
				}
				return cds[i].Date < cds[j].Date
			})
			assert.Equal(t, tc.expected, cds)
			for _, cd := range cds {
				assert.True(t, serviceIDs[cd.ServiceID])
			}

			assert.Equal(t, tc.minDate, minDate)
			assert.Equal(t, tc.maxDate, maxDate)
		})
	}
}
