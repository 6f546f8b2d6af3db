package testutil

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"testing"

	"github.com/mnrtools/tripfinder/downloader"
)

// BuildZip packs the given files into a zip archive, for feeding the
// static schedule parser in tests.
func BuildZip(t *testing.T, files map[string]string) []byte {
	t.Helper()

	buf := &bytes.Buffer{}
	w := zip.NewWriter(buf)
	for filename, content := range files {
		f, err := w.Create(filename)
		if err != nil {
			t.Fatalf("creating %s in zip: %v", filename, err)
		}
		if _, err := f.Write([]byte(content)); err != nil {
			t.Fatalf("writing %s to zip: %v", filename, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("closing zip: %v", err)
	}

	return buf.Bytes()
}

// ValidFeed returns a small self-consistent schedule: three stations
// on one line, a daily service, and two inbound plus one outbound
// trip.
func ValidFeed() map[string]string {
	return map[string]string{
		"stops.txt": `stop_id,stop_name
1,Grand Central
2,Harlem-125 St
3,Stamford
`,
		"calendar.txt": `service_id,monday,tuesday,wednesday,thursday,friday,saturday,sunday,start_date,end_date
WK,1,1,1,1,1,1,1,20200101,20991231
`,
		"calendar_dates.txt": `service_id,date,exception_type
HOL,20250704,1
`,
		"trips.txt": `trip_id,service_id,trip_short_name
t1,WK,6501
t2,WK,6503
t3,WK,6502
`,
		"stop_times.txt": `trip_id,stop_id,stop_sequence,arrival_time,departure_time,track,stop_headsign
t1,3,1,08:10:00,08:15:00,5,
t1,2,2,08:55:00,08:56:00,,
t1,1,3,09:10:00,09:12:00,,
t2,3,1,09:10:00,09:15:00,3,
t2,2,2,09:55:00,09:56:00,,
t2,1,3,10:10:00,10:12:00,,
t3,1,1,08:00:00,08:07:00,24,
t3,2,2,08:20:00,08:21:00,,
t3,3,3,09:00:00,09:02:00,,
`,
	}
}

// StubDownloader serves canned bytes per URL, or a fixed error.
type StubDownloader struct {
	Responses map[string][]byte
	Err       error
}

func (d *StubDownloader) Get(ctx context.Context, url string, options downloader.GetOptions) ([]byte, error) {
	if d.Err != nil {
		return nil, d.Err
	}
	body, ok := d.Responses[url]
	if !ok {
		return nil, fmt.Errorf("no response for %s", url)
	}
	return body, nil
}
