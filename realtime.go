package tripfinder

import (
	"context"
	"fmt"
	"time"

	"github.com/mnrtools/tripfinder/downloader"
	"github.com/mnrtools/tripfinder/parse"
)

const (
	DefaultRealtimeTimeout = 15 * time.Second
	DefaultRealtimeMaxSize = 1 << 20 // 1 MB
)

// Overlay is per-trip, per-stop live status derived from a realtime
// feed. It is fetched fresh for a query and discarded afterwards. A
// nil Overlay is valid and reports no status for anything; the
// schedule answer never depends on the overlay being present.
type Overlay struct {
	statuses map[statusKey]string
}

type statusKey struct {
	id     string
	stopID string
}

// NewOverlay derives status labels from decoded realtime records. A
// record with a departure delay of 0 is "On Time"; a non-zero delay
// is "Delayed N min(s)"; a record without a delay field counts as on
// time. Records are indexed under both the feed entity ID and the
// trip ID, since feeds differ in which one carries the trip's short
// name.
func NewOverlay(rt *parse.Realtime) *Overlay {
	o := &Overlay{
		statuses: map[statusKey]string{},
	}

	for _, update := range rt.Updates {
		status := "On Time"
		if update.DepartureDelaySet && update.DepartureDelay != 0 {
			status = fmt.Sprintf("Delayed %d min(s)", int(update.DepartureDelay.Seconds())/60)
		}

		o.statuses[statusKey{update.EntityID, update.StopID}] = status
		if update.TripID != update.EntityID {
			o.statuses[statusKey{update.TripID, update.StopID}] = status
		}
	}

	return o
}

// StatusFor looks up the status label for one stop of a trip. The
// trip's short name is tried first, then its trip ID. Returns "" when
// neither key matches.
func (o *Overlay) StatusFor(tripShortName, tripID, stopID string) string {
	if o == nil {
		return ""
	}

	if status, ok := o.statuses[statusKey{tripShortName, stopID}]; ok {
		return status
	}
	if status, ok := o.statuses[statusKey{tripID, stopID}]; ok {
		return status
	}
	return ""
}

// FetchOverlay downloads and decodes the realtime feed. Callers treat
// any error as "no overlay"; it never blocks a schedule query.
func FetchOverlay(ctx context.Context, dl downloader.Downloader, url string) (*Overlay, error) {
	body, err := dl.Get(ctx, url, downloader.GetOptions{
		Timeout: DefaultRealtimeTimeout,
		MaxSize: DefaultRealtimeMaxSize,
	})
	if err != nil {
		return nil, fmt.Errorf("downloading realtime feed: %w", err)
	}

	rt, err := parse.ParseRealtime(body)
	if err != nil {
		return nil, fmt.Errorf("decoding realtime feed: %w", err)
	}

	return NewOverlay(rt), nil
}
