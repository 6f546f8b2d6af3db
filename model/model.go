package model

import (
	"strconv"
	"time"
)

// Typed records for the schedule tables served by storage.

type Stop struct {
	ID   string
	Name string
}

type Trip struct {
	ID        string
	ServiceID string
	ShortName string
}

// A single visit of a trip at a stop. Arrival and Departure are
// "HHMMSS" strings; the hour may exceed 23 for service running past
// midnight.
type StopTime struct {
	TripID       string
	StopID       string
	StopSequence uint32
	Arrival      string
	Departure    string
	Track        string
	Headsign     string
}

func (st *StopTime) ArrivalTime() time.Duration {
	return hhmmss(st.Arrival)
}

func (st *StopTime) DepartureTime() time.Duration {
	return hhmmss(st.Departure)
}

func hhmmss(s string) time.Duration {
	h, _ := strconv.Atoi(s[0:2])
	m, _ := strconv.Atoi(s[2:4])
	sec, _ := strconv.Atoi(s[4:6])
	return time.Duration(h)*time.Hour + time.Duration(m)*time.Minute + time.Duration(sec)*time.Second
}

// A recurring weekly validity window for a service. Weekday is a
// bitmask indexed by time.Weekday. Dates are "YYYYMMDD".
type Calendar struct {
	ServiceID string
	StartDate string
	EndDate   string
	Weekday   int8
}

type ExceptionType int8

const (
	ServiceAdded   ExceptionType = 1
	ServiceRemoved ExceptionType = 2
)

// A single-date override of a Calendar's effect.
type CalendarDate struct {
	ServiceID     string
	Date          string
	ExceptionType ExceptionType
}
