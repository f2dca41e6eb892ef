package realtime

import (
	gtfs "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"google.golang.org/protobuf/encoding/protowire"
	"google.golang.org/protobuf/proto"
)

// NYCT subway extensions all live at field 1001 of the extended message.
const nyctExtensionField protowire.Number = 1001

// NyctTripDescriptor is the vendor extension on TripDescriptor.
type NyctTripDescriptor struct {
	TrainID    *string
	IsAssigned *bool
	Direction  *int32
}

// NYCT direction enum values.
const (
	nyctNorth int32 = 1
	nyctEast  int32 = 2
	nyctSouth int32 = 3
	nyctWest  int32 = 4
)

// DirectionName maps the vendor direction enum; unknown values yield Unknown.
func (d *NyctTripDescriptor) DirectionName() string {
	if d == nil || d.Direction == nil {
		return ""
	}
	switch *d.Direction {
	case nyctNorth:
		return North
	case nyctEast:
		return East
	case nyctSouth:
		return South
	case nyctWest:
		return West
	default:
		return Unknown
	}
}

// NyctStopTimeUpdate is the vendor extension on StopTimeUpdate.
type NyctStopTimeUpdate struct {
	ScheduledTrack *string
	ActualTrack    *string
}

// NyctFeedHeader is the vendor extension on FeedHeader.
type NyctFeedHeader struct {
	SubwayVersion string
}

// TripExtension decodes the NYCT trip descriptor, or nil if absent or malformed.
func TripExtension(td *gtfs.TripDescriptor) *NyctTripDescriptor {
	raw, ok := extensionBytes(td)
	if !ok {
		return nil
	}
	ext := &NyctTripDescriptor{}
	err := walkFields(raw, func(num protowire.Number, typ protowire.Type, b []byte) int {
		switch {
		case num == 1 && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(b)
			if n >= 0 {
				ext.TrainID = &v
			}
			return n
		case num == 2 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n >= 0 {
				assigned := protowire.DecodeBool(v)
				ext.IsAssigned = &assigned
			}
			return n
		case num == 3 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n >= 0 {
				dir := int32(v)
				ext.Direction = &dir
			}
			return n
		}
		return protowire.ConsumeFieldValue(num, typ, b)
	})
	if err != nil {
		return nil
	}
	return ext
}

// StopTimeExtension decodes the NYCT stop time update, or nil.
func StopTimeExtension(stu *gtfs.TripUpdate_StopTimeUpdate) *NyctStopTimeUpdate {
	raw, ok := extensionBytes(stu)
	if !ok {
		return nil
	}
	ext := &NyctStopTimeUpdate{}
	err := walkFields(raw, func(num protowire.Number, typ protowire.Type, b []byte) int {
		if typ == protowire.BytesType && (num == 1 || num == 2) {
			v, n := protowire.ConsumeString(b)
			if n >= 0 {
				if num == 1 {
					ext.ScheduledTrack = &v
				} else {
					ext.ActualTrack = &v
				}
			}
			return n
		}
		return protowire.ConsumeFieldValue(num, typ, b)
	})
	if err != nil {
		return nil
	}
	return ext
}

// HeaderExtension decodes the NYCT feed header, or nil.
func HeaderExtension(h *gtfs.FeedHeader) *NyctFeedHeader {
	raw, ok := extensionBytes(h)
	if !ok {
		return nil
	}
	ext := &NyctFeedHeader{}
	err := walkFields(raw, func(num protowire.Number, typ protowire.Type, b []byte) int {
		if num == 1 && typ == protowire.BytesType {
			v, n := protowire.ConsumeString(b)
			if n >= 0 {
				ext.SubwayVersion = v
			}
			return n
		}
		return protowire.ConsumeFieldValue(num, typ, b)
	})
	if err != nil {
		return nil
	}
	return ext
}

// extensionBytes collects the payload of field 1001 from m's unknown fields.
// Repeated occurrences are concatenated, which is protobuf merge semantics.
func extensionBytes(m proto.Message) ([]byte, bool) {
	if m == nil || !m.ProtoReflect().IsValid() {
		return nil, false
	}
	var (
		out   []byte
		found bool
	)
	err := walkFields(m.ProtoReflect().GetUnknown(), func(num protowire.Number, typ protowire.Type, b []byte) int {
		if num != nyctExtensionField || typ != protowire.BytesType {
			return protowire.ConsumeFieldValue(num, typ, b)
		}
		v, n := protowire.ConsumeBytes(b)
		if n >= 0 {
			out = append(out, v...)
			found = true
		}
		return n
	})
	if err != nil {
		return nil, false
	}
	return out, found
}

// walkFields calls fn for every field in b. fn consumes the field value and
// returns its length, or a negative length on malformed input.
func walkFields(b []byte, fn func(num protowire.Number, typ protowire.Type, value []byte) int) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]
		m := fn(num, typ, b)
		if m < 0 {
			return protowire.ParseError(m)
		}
		b = b[m:]
	}
	return nil
}

// AppendTripExtension encodes ext as field 1001 onto b. Used to build fixtures
// and by tools that re-encode feeds.
func AppendTripExtension(b []byte, ext NyctTripDescriptor) []byte {
	var inner []byte
	if ext.TrainID != nil {
		inner = protowire.AppendTag(inner, 1, protowire.BytesType)
		inner = protowire.AppendString(inner, *ext.TrainID)
	}
	if ext.IsAssigned != nil {
		inner = protowire.AppendTag(inner, 2, protowire.VarintType)
		inner = protowire.AppendVarint(inner, protowire.EncodeBool(*ext.IsAssigned))
	}
	if ext.Direction != nil {
		inner = protowire.AppendTag(inner, 3, protowire.VarintType)
		inner = protowire.AppendVarint(inner, uint64(*ext.Direction))
	}
	return appendExtension(b, inner)
}

// AppendStopTimeExtension encodes ext as field 1001 onto b.
func AppendStopTimeExtension(b []byte, ext NyctStopTimeUpdate) []byte {
	var inner []byte
	if ext.ScheduledTrack != nil {
		inner = protowire.AppendTag(inner, 1, protowire.BytesType)
		inner = protowire.AppendString(inner, *ext.ScheduledTrack)
	}
	if ext.ActualTrack != nil {
		inner = protowire.AppendTag(inner, 2, protowire.BytesType)
		inner = protowire.AppendString(inner, *ext.ActualTrack)
	}
	return appendExtension(b, inner)
}

// AppendHeaderExtension encodes ext as field 1001 onto b.
func AppendHeaderExtension(b []byte, ext NyctFeedHeader) []byte {
	var inner []byte
	inner = protowire.AppendTag(inner, 1, protowire.BytesType)
	inner = protowire.AppendString(inner, ext.SubwayVersion)
	return appendExtension(b, inner)
}

func appendExtension(b, inner []byte) []byte {
	b = protowire.AppendTag(b, nyctExtensionField, protowire.BytesType)
	return protowire.AppendBytes(b, inner)
}
