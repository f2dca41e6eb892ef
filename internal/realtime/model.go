package realtime

import (
	"encoding/json"
	"sort"
	"time"
)

// Directions resolved for trips and stations.
const (
	North   = "North"
	South   = "South"
	East    = "East"
	West    = "West"
	Unknown = "Unknown"
)

// now is swapped in tests.
var now = time.Now

// Arrival is one expected train event at one stop.
type Arrival struct {
	RouteID        string     `json:"routeId"`
	TripID         string     `json:"tripId"`
	StationID      string     `json:"stationId"` // "626N", "R20S"
	ArrivalTime    *time.Time `json:"arrivalTime"`
	DepartureTime  *time.Time `json:"departureTime"`
	Direction      string     `json:"direction"`
	FeedSource     string     `json:"feedSource"`
	TrainID        *string    `json:"trainId,omitempty"`
	Assigned       *bool      `json:"assigned,omitempty"`
	ScheduledTrack *string    `json:"scheduledTrack,omitempty"`
	ActualTrack    *string    `json:"actualTrack,omitempty"`
}

// MinutesAway returns whole minutes from t until arrival, or nil when the
// arrival time is unknown.
func (a Arrival) MinutesAway(t time.Time) *int {
	if a.ArrivalTime == nil {
		return nil
	}
	m := int(a.ArrivalTime.Sub(t) / time.Minute)
	return &m
}

// MarshalJSON adds minutesAway, computed at encode time. It is never decoded.
func (a Arrival) MarshalJSON() ([]byte, error) {
	type plain Arrival
	return json.Marshal(struct {
		plain
		MinutesAway *int `json:"minutesAway"`
	}{plain(a), a.MinutesAway(now())})
}

// Station is one stop in one direction.
type Station struct {
	StationID   string `json:"stationId"`
	StationName string `json:"stationName"`
	Direction   string `json:"direction"`
}

type stationKey struct {
	id, direction string
}

// Snapshot is the complete output of one collection cycle.
type Snapshot struct {
	LastUpdated   time.Time `json:"lastUpdated"`
	Trains        []Arrival `json:"trains"`
	Stations      []Station `json:"stations"`
	TotalTrains   int       `json:"totalTrains"`
	TotalStations int       `json:"totalStations"`
}

// Builder merges normalized output from any number of feeds.
type Builder struct {
	arrivals []Arrival
	stations map[stationKey]Station
}

// NewBuilder creates an empty builder.
func NewBuilder() *Builder {
	return &Builder{stations: make(map[stationKey]Station)}
}

// Add appends arrivals and merges stations by (id, direction).
func (b *Builder) Add(arrivals []Arrival, stations []Station) {
	b.arrivals = append(b.arrivals, arrivals...)
	for _, s := range stations {
		k := stationKey{s.StationID, s.Direction}
		if _, ok := b.stations[k]; !ok {
			b.stations[k] = s
		}
	}
}

// Build returns a new Snapshot. Trains are ordered by arrival time with
// unknown arrivals last; stations by name, then id, then direction.
func (b *Builder) Build(at time.Time) *Snapshot {
	trains := make([]Arrival, len(b.arrivals))
	copy(trains, b.arrivals)
	SortByArrival(trains)

	stations := make([]Station, 0, len(b.stations))
	for _, s := range b.stations {
		stations = append(stations, s)
	}
	sort.Slice(stations, func(i, j int) bool {
		si, sj := stations[i], stations[j]
		if si.StationName != sj.StationName {
			return si.StationName < sj.StationName
		}
		if si.StationID != sj.StationID {
			return si.StationID < sj.StationID
		}
		return si.Direction < sj.Direction
	})

	return &Snapshot{
		LastUpdated:   at.UTC(),
		Trains:        trains,
		Stations:      stations,
		TotalTrains:   len(trains),
		TotalStations: len(stations),
	}
}

// SortByArrival stably orders arrivals by arrival time, unknown times last.
func SortByArrival(arrivals []Arrival) {
	sort.SliceStable(arrivals, func(i, j int) bool {
		ai, aj := arrivals[i].ArrivalTime, arrivals[j].ArrivalTime
		switch {
		case ai == nil:
			return false
		case aj == nil:
			return true
		default:
			return ai.Before(*aj)
		}
	})
}
