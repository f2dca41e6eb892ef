package realtime

import (
	"strings"
	"time"

	gtfs "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"

	"subwayfeed/internal/stations"
)

// Normalizer turns decoded trip updates into arrival and station records.
type Normalizer struct {
	directory *stations.Directory
}

// NewNormalizer creates a Normalizer that names stations from directory.
func NewNormalizer(directory *stations.Directory) *Normalizer {
	return &Normalizer{directory: directory}
}

// NormalizeFeed normalizes every trip update entity in msg.
func (n *Normalizer) NormalizeFeed(feedID string, msg *gtfs.FeedMessage) ([]Arrival, []Station) {
	var (
		arrivals []Arrival
		stations []Station
	)
	for _, entity := range msg.GetEntity() {
		tu := entity.GetTripUpdate()
		if tu == nil {
			continue
		}
		a, s := n.Normalize(tu, feedID)
		arrivals = append(arrivals, a...)
		stations = append(stations, s...)
	}
	return arrivals, stations
}

// Normalize converts one trip update. Every stop time update yields a station;
// only those carrying an arrival or departure time yield an arrival.
func (n *Normalizer) Normalize(tu *gtfs.TripUpdate, feedID string) ([]Arrival, []Station) {
	trip := tu.GetTrip()

	var (
		trainID   *string
		assigned  *bool
		direction string // empty until resolved per stop
	)
	if ext := TripExtension(trip); ext != nil {
		trainID = ext.TrainID
		assigned = ext.IsAssigned
		direction = ext.DirectionName()
	}

	var (
		arrivals []Arrival
		stations []Station
	)
	for _, stu := range tu.GetStopTimeUpdate() {
		stopID := stu.GetStopId()

		var scheduledTrack, actualTrack *string
		if ext := StopTimeExtension(stu); ext != nil {
			scheduledTrack = ext.ScheduledTrack
			actualTrack = ext.ActualTrack
		}

		dir := direction
		if dir == "" {
			dir = DirectionFromStopID(stopID)
		}

		arrivalTime := eventTime(stu.GetArrival())
		departureTime := eventTime(stu.GetDeparture())
		if arrivalTime != nil || departureTime != nil {
			arrivals = append(arrivals, Arrival{
				RouteID:        trip.GetRouteId(),
				TripID:         trip.GetTripId(),
				StationID:      stopID,
				ArrivalTime:    arrivalTime,
				DepartureTime:  departureTime,
				Direction:      dir,
				FeedSource:     feedID,
				TrainID:        trainID,
				Assigned:       assigned,
				ScheduledTrack: scheduledTrack,
				ActualTrack:    actualTrack,
			})
		}

		stations = append(stations, Station{
			StationID:   stopID,
			StationName: n.directory.Name(stopID),
			Direction:   dir,
		})
	}
	return arrivals, stations
}

// DirectionFromStopID infers direction from the N/S platform suffix.
func DirectionFromStopID(stopID string) string {
	switch {
	case strings.HasSuffix(stopID, "N"):
		return North
	case strings.HasSuffix(stopID, "S"):
		return South
	default:
		return Unknown
	}
}

func eventTime(ev *gtfs.TripUpdate_StopTimeEvent) *time.Time {
	if ev == nil || ev.Time == nil {
		return nil
	}
	t := time.Unix(ev.GetTime(), 0).UTC()
	return &t
}
