package storage

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/mnrtools/tripfinder/model"
)

// In memory implementation of Storage below

type MemoryStorage struct {
	mutex    sync.Mutex
	feeds    map[string]*MemoryFeed
	metadata map[string]*FeedMetadata
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		feeds:    map[string]*MemoryFeed{},
		metadata: map[string]*FeedMetadata{},
	}
}

func (s *MemoryStorage) ListFeeds() ([]*FeedMetadata, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	feeds := []*FeedMetadata{}
	for _, metadata := range s.metadata {
		feeds = append(feeds, metadata)
	}
	sort.Slice(feeds, func(i, j int) bool {
		return feeds[i].RetrievedAt.After(feeds[j].RetrievedAt)
	})
	return feeds, nil
}

func (s *MemoryStorage) WriteFeedMetadata(metadata *FeedMetadata) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.metadata[metadata.SHA256] = metadata
	return nil
}

func (s *MemoryStorage) GetReader(hash string) (FeedReader, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	f, ok := s.feeds[hash]
	if !ok {
		return nil, fmt.Errorf("feed not found")
	}
	return f, nil
}

func (s *MemoryStorage) GetWriter(hash string) (FeedWriter, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	f := &MemoryFeed{
		stops:           map[string]*model.Stop{},
		trips:           map[string]*model.Trip{},
		calendar:        map[string]*model.Calendar{},
		calendarDate:    map[string][]*model.CalendarDate{},
		stopTimesByTrip: map[string][]*model.StopTime{},
	}

	s.feeds[hash] = f

	return f, nil
}

// A single parsed feed. Implements both FeedWriter and FeedReader.
type MemoryFeed struct {
	stops           map[string]*model.Stop
	trips           map[string]*model.Trip
	calendar        map[string]*model.Calendar
	calendarDate    map[string][]*model.CalendarDate
	stopTimesByTrip map[string][]*model.StopTime
}

func (f *MemoryFeed) WriteStop(stop *model.Stop) error {
	f.stops[stop.ID] = stop
	return nil
}

func (f *MemoryFeed) WriteTrip(trip *model.Trip) error {
	f.trips[trip.ID] = trip
	return nil
}

func (f *MemoryFeed) WriteCalendar(cal *model.Calendar) error {
	f.calendar[cal.ServiceID] = cal
	return nil
}

func (f *MemoryFeed) WriteCalendarDate(caldate *model.CalendarDate) error {
	f.calendarDate[caldate.ServiceID] = append(f.calendarDate[caldate.ServiceID], caldate)
	return nil
}

func (f *MemoryFeed) BeginStopTimes() error {
	return nil
}

func (f *MemoryFeed) WriteStopTime(stopTime *model.StopTime) error {
	f.stopTimesByTrip[stopTime.TripID] = append(f.stopTimesByTrip[stopTime.TripID], stopTime)
	return nil
}

func (f *MemoryFeed) EndStopTimes() error {
	return nil
}

func (f *MemoryFeed) Close() error {
	return nil
}

func (f *MemoryFeed) Stops() ([]*model.Stop, error) {
	stops := []*model.Stop{}
	for _, v := range f.stops {
		stops = append(stops, v)
	}
	return stops, nil
}

func (f *MemoryFeed) Trips() ([]*model.Trip, error) {
	trips := []*model.Trip{}
	for _, v := range f.trips {
		trips = append(trips, v)
	}
	return trips, nil
}

func (f *MemoryFeed) StopTimes() ([]*model.StopTime, error) {
	stopTimes := []*model.StopTime{}
	for _, v := range f.stopTimesByTrip {
		stopTimes = append(stopTimes, v...)
	}
	return stopTimes, nil
}

func (f *MemoryFeed) Calendars() ([]*model.Calendar, error) {
	cals := []*model.Calendar{}
	for _, v := range f.calendar {
		cals = append(cals, v)
	}
	return cals, nil
}

func (f *MemoryFeed) CalendarDates() ([]*model.CalendarDate, error) {
	cds := []*model.CalendarDate{}
	for _, v := range f.calendarDate {
		cds = append(cds, v...)
	}
	return cds, nil
}

func (f *MemoryFeed) ActiveServices(date string) ([]string, error) {
	parsedDate, err := time.Parse("20060102", date)
	if err != nil {
		return nil, fmt.Errorf("invalid date: %s", date)
	}

	services := map[string]bool{}

	for _, cal := range f.calendar {
		if cal.Weekday&(1<<parsedDate.Weekday()) == 0 {
			continue
		}
		if cal.StartDate > date {
			continue
		}
		if cal.EndDate < date {
			continue
		}
		services[cal.ServiceID] = true
	}

	for _, cds := range f.calendarDate {
		for _, cd := range cds {
			if cd.Date != date {
				continue
			}
			if cd.ExceptionType == model.ServiceAdded {
				services[cd.ServiceID] = true
			} else if cd.ExceptionType == model.ServiceRemoved {
				services[cd.ServiceID] = false
			}
		}
	}

	activeServices := []string{}
	for serviceID, active := range services {
		if active {
			activeServices = append(activeServices, serviceID)
		}
	}

	return activeServices, nil
}
