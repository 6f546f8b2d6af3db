package storage

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/mnrtools/tripfinder/model"
)

type SQLiteConfig struct {
	OnDisk    bool
	Directory string
}

// SQLite implementation of Storage. All feeds share one database;
// table rows are namespaced by the feed hash.
type SQLiteStorage struct {
	SQLiteConfig

	db *sql.DB
}

type SQLiteFeedWriter struct {
	db             *sql.DB
	hash           string
	stopTimeInsert *sql.Stmt
	stopTimeTx     *sql.Tx
}

type SQLiteFeedReader struct {
	db   *sql.DB
	hash string
}

func NewSQLiteStorage(cfg ...SQLiteConfig) (*SQLiteStorage, error) {
	onDisk := false
	directory := ""
	if len(cfg) > 0 {
		onDisk = cfg[0].OnDisk
		directory = cfg[0].Directory
	}

	sourceName := ":memory:"
	if onDisk {
		sourceName = directory + "/tripfinder.db"
	}

	db, err := sql.Open("sqlite3", sourceName)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if !onDisk {
		// Every connection to :memory: gets its own database.
		db.SetMaxOpenConns(1)
	}

	_, err = db.Exec(`
CREATE TABLE IF NOT EXISTS feed (
    sha256 TEXT,
    url TEXT NOT NULL,
    retrieved_at TIMESTAMP NOT NULL,
    calendar_start TEXT NOT NULL,
    calendar_end TEXT NOT NULL,
PRIMARY KEY (sha256)
);

CREATE TABLE IF NOT EXISTS stop (
    feed TEXT NOT NULL,
    id TEXT NOT NULL,
    name TEXT NOT NULL,
PRIMARY KEY (feed, id)
);

CREATE TABLE IF NOT EXISTS trip (
    feed TEXT NOT NULL,
    id TEXT NOT NULL,
    service_id TEXT NOT NULL,
    short_name TEXT NOT NULL,
PRIMARY KEY (feed, id)
);

CREATE TABLE IF NOT EXISTS stop_time (
    feed TEXT NOT NULL,
    trip_id TEXT NOT NULL,
    stop_id TEXT NOT NULL,
    stop_sequence INTEGER NOT NULL,
    arrival TEXT NOT NULL,
    departure TEXT NOT NULL,
    track TEXT NOT NULL,
    headsign TEXT NOT NULL,
PRIMARY KEY (feed, trip_id, stop_sequence)
);

CREATE TABLE IF NOT EXISTS calendar (
    feed TEXT NOT NULL,
    service_id TEXT NOT NULL,
    start_date TEXT NOT NULL,
    end_date TEXT NOT NULL,
    weekday INTEGER NOT NULL,
PRIMARY KEY (feed, service_id)
);

CREATE TABLE IF NOT EXISTS calendar_date (
    feed TEXT NOT NULL,
    service_id TEXT NOT NULL,
    date TEXT NOT NULL,
    exception_type INTEGER NOT NULL,
PRIMARY KEY (feed, service_id, date)
);`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating tables: %w", err)
	}

	return &SQLiteStorage{
		SQLiteConfig: SQLiteConfig{
			OnDisk:    onDisk,
			Directory: directory,
		},
		db: db,
	}, nil
}

func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

func (s *SQLiteStorage) ListFeeds() ([]*FeedMetadata, error) {
	rows, err := s.db.Query(`
SELECT sha256, url, retrieved_at, calendar_start, calendar_end
FROM feed
ORDER BY retrieved_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing feeds: %w", err)
	}
	defer rows.Close()

	feeds := []*FeedMetadata{}
	for rows.Next() {
		var feed FeedMetadata
		err := rows.Scan(
			&feed.SHA256,
			&feed.URL,
			&feed.RetrievedAt,
			&feed.CalendarStartDate,
			&feed.CalendarEndDate,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning feed: %w", err)
		}
		feeds = append(feeds, &feed)
	}

	return feeds, rows.Err()
}

func (s *SQLiteStorage) WriteFeedMetadata(metadata *FeedMetadata) error {
	_, err := s.db.Exec(`
INSERT INTO feed (sha256, url, retrieved_at, calendar_start, calendar_end)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (sha256) DO UPDATE SET
    url = excluded.url,
    retrieved_at = excluded.retrieved_at,
    calendar_start = excluded.calendar_start,
    calendar_end = excluded.calendar_end`,
		metadata.SHA256,
		metadata.URL,
		metadata.RetrievedAt,
		metadata.CalendarStartDate,
		metadata.CalendarEndDate,
	)
	if err != nil {
		return fmt.Errorf("writing feed metadata: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) GetReader(hash string) (FeedReader, error) {
	return &SQLiteFeedReader{db: s.db, hash: hash}, nil
}

func (s *SQLiteStorage) GetWriter(hash string) (FeedWriter, error) {
	// Discard any partial data from an earlier failed parse.
	for _, table := range []string{"stop", "trip", "stop_time", "calendar", "calendar_date"} {
		_, err := s.db.Exec(fmt.Sprintf("DELETE FROM %s WHERE feed = ?", table), hash)
		if err != nil {
			return nil, fmt.Errorf("clearing %s: %w", table, err)
		}
	}

	return &SQLiteFeedWriter{db: s.db, hash: hash}, nil
}

func (w *SQLiteFeedWriter) WriteStop(stop *model.Stop) error {
	_, err := w.db.Exec(
		"INSERT INTO stop (feed, id, name) VALUES (?, ?, ?)",
		w.hash, stop.ID, stop.Name,
	)
	return err
}

func (w *SQLiteFeedWriter) WriteTrip(trip *model.Trip) error {
	_, err := w.db.Exec(
		"INSERT INTO trip (feed, id, service_id, short_name) VALUES (?, ?, ?, ?)",
		w.hash, trip.ID, trip.ServiceID, trip.ShortName,
	)
	return err
}

func (w *SQLiteFeedWriter) WriteCalendar(cal *model.Calendar) error {
	_, err := w.db.Exec(
		"INSERT INTO calendar (feed, service_id, start_date, end_date, weekday) VALUES (?, ?, ?, ?, ?)",
		w.hash, cal.ServiceID, cal.StartDate, cal.EndDate, cal.Weekday,
	)
	return err
}

func (w *SQLiteFeedWriter) WriteCalendarDate(caldate *model.CalendarDate) error {
	_, err := w.db.Exec(
		"INSERT INTO calendar_date (feed, service_id, date, exception_type) VALUES (?, ?, ?, ?)",
		w.hash, caldate.ServiceID, caldate.Date, caldate.ExceptionType,
	)
	return err
}

func (w *SQLiteFeedWriter) BeginStopTimes() error {
	tx, err := w.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	stmt, err := tx.Prepare(`
INSERT INTO stop_time (feed, trip_id, stop_id, stop_sequence, arrival, departure, track, headsign)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("preparing insert: %w", err)
	}

	w.stopTimeTx = tx
	w.stopTimeInsert = stmt
	return nil
}

func (w *SQLiteFeedWriter) WriteStopTime(stopTime *model.StopTime) error {
	_, err := w.stopTimeInsert.Exec(
		w.hash,
		stopTime.TripID,
		stopTime.StopID,
		stopTime.StopSequence,
		stopTime.Arrival,
		stopTime.Departure,
		stopTime.Track,
		stopTime.Headsign,
	)
	return err
}

func (w *SQLiteFeedWriter) EndStopTimes() error {
	err := w.stopTimeTx.Commit()
	w.stopTimeInsert = nil
	w.stopTimeTx = nil
	return err
}

func (w *SQLiteFeedWriter) Close() error {
	if w.stopTimeTx != nil {
		w.stopTimeTx.Rollback()
		w.stopTimeTx = nil
		w.stopTimeInsert = nil
	}
	return nil
}

func (r *SQLiteFeedReader) Stops() ([]*model.Stop, error) {
	rows, err := r.db.Query("SELECT id, name FROM stop WHERE feed = ?", r.hash)
	if err != nil {
		return nil, fmt.Errorf("querying stops: %w", err)
	}
	defer rows.Close()

	stops := []*model.Stop{}
	for rows.Next() {
		var stop model.Stop
		if err := rows.Scan(&stop.ID, &stop.Name); err != nil {
			return nil, fmt.Errorf("scanning stop: %w", err)
		}
		stops = append(stops, &stop)
	}
	return stops, rows.Err()
}

func (r *SQLiteFeedReader) Trips() ([]*model.Trip, error) {
	rows, err := r.db.Query("SELECT id, service_id, short_name FROM trip WHERE feed = ?", r.hash)
	if err != nil {
		return nil, fmt.Errorf("querying trips: %w", err)
	}
	defer rows.Close()

	trips := []*model.Trip{}
	for rows.Next() {
		var trip model.Trip
		if err := rows.Scan(&trip.ID, &trip.ServiceID, &trip.ShortName); err != nil {
			return nil, fmt.Errorf("scanning trip: %w", err)
		}
		trips = append(trips, &trip)
	}
	return trips, rows.Err()
}

func (r *SQLiteFeedReader) StopTimes() ([]*model.StopTime, error) {
	rows, err := r.db.Query(`
SELECT trip_id, stop_id, stop_sequence, arrival, departure, track, headsign
FROM stop_time
WHERE feed = ?
ORDER BY trip_id, stop_sequence`, r.hash)
	if err != nil {
		return nil, fmt.Errorf("querying stop times: %w", err)
	}
	defer rows.Close()

	stopTimes := []*model.StopTime{}
	for rows.Next() {
		var st model.StopTime
		err := rows.Scan(
			&st.TripID,
			&st.StopID,
			&st.StopSequence,
			&st.Arrival,
			&st.Departure,
			&st.Track,
			&st.Headsign,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning stop time: %w", err)
		}
		stopTimes = append(stopTimes, &st)
	}
	return stopTimes, rows.Err()
}

func (r *SQLiteFeedReader) Calendars() ([]*model.Calendar, error) {
	rows, err := r.db.Query(
		"SELECT service_id, start_date, end_date, weekday FROM calendar WHERE feed = ?",
		r.hash,
	)
	if err != nil {
		return nil, fmt.Errorf("querying calendars: %w", err)
	}
	defer rows.Close()

	cals := []*model.Calendar{}
	for rows.Next() {
		var cal model.Calendar
		err := rows.Scan(&cal.ServiceID, &cal.StartDate, &cal.EndDate, &cal.Weekday)
		if err != nil {
			return nil, fmt.Errorf("scanning calendar: %w", err)
		}
		cals = append(cals, &cal)
	}
	return cals, rows.Err()
}

func (r *SQLiteFeedReader) CalendarDates() ([]*model.CalendarDate, error) {
	rows, err := r.db.Query(
		"SELECT service_id, date, exception_type FROM calendar_date WHERE feed = ?",
		r.hash,
	)
	if err != nil {
		return nil, fmt.Errorf("querying calendar dates: %w", err)
	}
	defer rows.Close()

	cds := []*model.CalendarDate{}
	for rows.Next() {
		var cd model.CalendarDate
		err := rows.Scan(&cd.ServiceID, &cd.Date, &cd.ExceptionType)
		if err != nil {
			return nil, fmt.Errorf("scanning calendar date: %w", err)
		}
		cds = append(cds, &cd)
	}
	return cds, rows.Err()
}

func (r *SQLiteFeedReader) ActiveServices(date string) ([]string, error) {
	parsedDate, err := time.Parse("20060102", date)
	if err != nil {
		return nil, fmt.Errorf("invalid date: %s", date)
	}
	weekdayBit := int8(1 << parsedDate.Weekday())

	rows, err := r.db.Query(`
SELECT service_id, weekday
FROM calendar
WHERE feed = ? AND start_date <= ? AND end_date >= ?`,
		r.hash, date, date,
	)
	if err != nil {
		return nil, fmt.Errorf("querying calendars: %w", err)
	}
	defer rows.Close()

	services := map[string]bool{}
	for rows.Next() {
		var serviceID string
		var weekday int8
		if err := rows.Scan(&serviceID, &weekday); err != nil {
			return nil, fmt.Errorf("scanning calendar: %w", err)
		}
		if weekday&weekdayBit != 0 {
			services[serviceID] = true
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	cdRows, err := r.db.Query(
		"SELECT service_id, exception_type FROM calendar_date WHERE feed = ? AND date = ?",
		r.hash, date,
	)
	if err != nil {
		return nil, fmt.Errorf("querying calendar dates: %w", err)
	}
	defer cdRows.Close()

	for cdRows.Next() {
		var serviceID string
		var exceptionType int8
		if err := cdRows.Scan(&serviceID, &exceptionType); err != nil {
			return nil, fmt.Errorf("scanning calendar date: %w", err)
		}
		if model.ExceptionType(exceptionType) == model.ServiceAdded {
			services[serviceID] = true
		} else if model.ExceptionType(exceptionType) == model.ServiceRemoved {
			services[serviceID] = false
		}
	}
	if err := cdRows.Err(); err != nil {
		return nil, err
	}

	activeServices := []string{}
	for serviceID, active := range services {
		if active {
			activeServices = append(activeServices, serviceID)
		}
	}

	return activeServices, nil
}
