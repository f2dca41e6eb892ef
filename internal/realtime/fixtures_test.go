package realtime

import (
	"io"
	"log/slog"
	"testing"

	gtfs "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func stopUpdate(stopID string, arrival, departure int64) *gtfs.TripUpdate_StopTimeUpdate {
	stu := &gtfs.TripUpdate_StopTimeUpdate{StopId: proto.String(stopID)}
	if arrival != 0 {
		stu.Arrival = &gtfs.TripUpdate_StopTimeEvent{Time: proto.Int64(arrival)}
	}
	if departure != 0 {
		stu.Departure = &gtfs.TripUpdate_StopTimeEvent{Time: proto.Int64(departure)}
	}
	return stu
}

func withStopExtension(stu *gtfs.TripUpdate_StopTimeUpdate, ext NyctStopTimeUpdate) *gtfs.TripUpdate_StopTimeUpdate {
	stu.ProtoReflect().SetUnknown(protoreflect.RawFields(AppendStopTimeExtension(nil, ext)))
	return stu
}

func tripUpdate(routeID, tripID string, ext *NyctTripDescriptor, stops ...*gtfs.TripUpdate_StopTimeUpdate) *gtfs.TripUpdate {
	trip := &gtfs.TripDescriptor{
		TripId:  proto.String(tripID),
		RouteId: proto.String(routeID),
	}
	if ext != nil {
		trip.ProtoReflect().SetUnknown(protoreflect.RawFields(AppendTripExtension(nil, *ext)))
	}
	return &gtfs.TripUpdate{Trip: trip, StopTimeUpdate: stops}
}

func feedMessage(version string, updates ...*gtfs.TripUpdate) *gtfs.FeedMessage {
	header := &gtfs.FeedHeader{
		GtfsRealtimeVersion: proto.String("1.0"),
		Timestamp:           proto.Uint64(1700000000),
	}
	if version != "" {
		header.ProtoReflect().SetUnknown(protoreflect.RawFields(AppendHeaderExtension(nil, NyctFeedHeader{SubwayVersion: version})))
	}
	msg := &gtfs.FeedMessage{Header: header}
	for i, tu := range updates {
		msg.Entity = append(msg.Entity, &gtfs.FeedEntity{
			Id:         proto.String(string(rune('a' + i))),
			TripUpdate: tu,
		})
	}
	return msg
}

func encodeFeed(t *testing.T, msg *gtfs.FeedMessage) []byte {
	t.Helper()
	b, err := proto.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal feed: %v", err)
	}
	return b
}
