package storage

import (
	"time"

	"github.com/mnrtools/tripfinder/model"
)

// Storage holds parsed schedule feeds, keyed by the SHA256 of the
// archive they were parsed from. The memory implementation lives for
// the process; the SQLite implementation survives restarts, so a
// last-known-good schedule can be served before the first successful
// download.
type Storage interface {
	// All feed metadata records, most recently retrieved first.
	ListFeeds() ([]*FeedMetadata, error)

	// Writes a FeedMetadata record. An existing record with the
	// same hash is replaced.
	WriteFeedMetadata(metadata *FeedMetadata) error

	// Gets a reader for the feed with the given hash.
	GetReader(hash string) (FeedReader, error)

	// Gets a writer for the feed with the given hash.
	GetWriter(hash string) (FeedWriter, error)
}

// Metadata for a parsed schedule feed.
type FeedMetadata struct {
	SHA256            string
	URL               string
	RetrievedAt       time.Time
	CalendarStartDate string
	CalendarEndDate   string
}

// Writes records for a single feed.
//
// stop_times.txt tends to dwarf the other tables, so BeginStopTimes()
// and EndStopTimes() bracket all calls to WriteStopTime(), allowing
// transactions/batching.
type FeedWriter interface {
	WriteStop(stop *model.Stop) error
	WriteTrip(trip *model.Trip) error
	WriteCalendar(cal *model.Calendar) error
	WriteCalendarDate(caldate *model.CalendarDate) error
	BeginStopTimes() error
	WriteStopTime(stopTime *model.StopTime) error
	EndStopTimes() error
	Close() error
}

type FeedReader interface {
	Stops() ([]*model.Stop, error)
	Trips() ([]*model.Trip, error)
	StopTimes() ([]*model.StopTime, error)
	Calendars() ([]*model.Calendar, error)
	CalendarDates() ([]*model.CalendarDate, error)

	// Service IDs for all services active on the given date. Date
	// is given as YYYYMMDD. A service is active if a calendar row
	// covers the date's weekday within its date range, then
	// calendar_dates overrides are applied: ServiceAdded forces a
	// service in, ServiceRemoved forces it out.
	ActiveServices(date string) ([]string, error)
}
