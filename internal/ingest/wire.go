// Package ingest implements the client side of the telemetry ingestion RPC.
//
// The backend exposes a single unary method taking a SendDataRequest and
// answering with a SendDataResponse. Messages are encoded with the protobuf
// wire format using the field numbers below, so the client interoperates with
// servers generated from the backend's telemetry.proto.
package ingest

import (
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

// SendDataRequest field numbers.
const (
	fieldTruckID    protowire.Number = 1
	fieldLatitude   protowire.Number = 2
	fieldLongitude  protowire.Number = 3
	fieldSpeed      protowire.Number = 4
	fieldEngineTemp protowire.Number = 5
	fieldTimestamp  protowire.Number = 6
)

// SendDataResponse field numbers.
const (
	fieldSuccess protowire.Number = 1
	fieldMessage protowire.Number = 2
)

// SendDataRequest is one telemetry reading on the wire.
type SendDataRequest struct {
	TruckID    string  `json:"truck_id"`
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
	Speed      float64 `json:"speed"`
	EngineTemp float64 `json:"engine_temp"`
	Timestamp  string  `json:"timestamp"`
}

// SendDataResponse is the backend's verdict on a reading.
type SendDataResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Marshal encodes the request. Zero values are omitted as in proto3.
func (m *SendDataRequest) Marshal() ([]byte, error) {
	var b []byte
	b = appendString(b, fieldTruckID, m.TruckID)
	b = appendDouble(b, fieldLatitude, m.Latitude)
	b = appendDouble(b, fieldLongitude, m.Longitude)
	b = appendDouble(b, fieldSpeed, m.Speed)
	b = appendDouble(b, fieldEngineTemp, m.EngineTemp)
	b = appendString(b, fieldTimestamp, m.Timestamp)
	return b, nil
}

// Unmarshal decodes b into the request, skipping unknown fields.
func (m *SendDataRequest) Unmarshal(b []byte) error {
	*m = SendDataRequest{}
	return consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch {
		case num == fieldTruckID && typ == protowire.BytesType:
			return consumeString(b, &m.TruckID)
		case num == fieldLatitude && typ == protowire.Fixed64Type:
			return consumeDouble(b, &m.Latitude)
		case num == fieldLongitude && typ == protowire.Fixed64Type:
			return consumeDouble(b, &m.Longitude)
		case num == fieldSpeed && typ == protowire.Fixed64Type:
			return consumeDouble(b, &m.Speed)
		case num == fieldEngineTemp && typ == protowire.Fixed64Type:
			return consumeDouble(b, &m.EngineTemp)
		case num == fieldTimestamp && typ == protowire.BytesType:
			return consumeString(b, &m.Timestamp)
		}
		return skipField(num, typ, b)
	})
}

// Marshal encodes the response.
func (m *SendDataResponse) Marshal() ([]byte, error) {
	var b []byte
	if m.Success {
		b = protowire.AppendTag(b, fieldSuccess, protowire.VarintType)
		b = protowire.AppendVarint(b, protowire.EncodeBool(true))
	}
	b = appendString(b, fieldMessage, m.Message)
	return b, nil
}

// Unmarshal decodes b into the response, skipping unknown fields.
func (m *SendDataResponse) Unmarshal(b []byte) error {
	*m = SendDataResponse{}
	return consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch {
		case num == fieldSuccess && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return 0, protowire.ParseError(n)
			}
			m.Success = protowire.DecodeBool(v)
			return n, nil
		case num == fieldMessage && typ == protowire.BytesType:
			return consumeString(b, &m.Message)
		}
		return skipField(num, typ, b)
	})
}

func appendString(b []byte, num protowire.Number, s string) []byte {
	if s == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

func appendDouble(b []byte, num protowire.Number, v float64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.Fixed64Type)
	return protowire.AppendFixed64(b, math.Float64bits(v))
}

func consumeFields(b []byte, field func(protowire.Number, protowire.Type, []byte) (int, error)) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return fmt.Errorf("decode tag: %w", protowire.ParseError(n))
		}
		b = b[n:]
		n, err := field(num, typ, b)
		if err != nil {
			return fmt.Errorf("decode field %d: %w", num, err)
		}
		b = b[n:]
	}
	return nil
}

func consumeString(b []byte, dst *string) (int, error) {
	v, n := protowire.ConsumeString(b)
	if n < 0 {
		return 0, protowire.ParseError(n)
	}
	*dst = v
	return n, nil
}

func consumeDouble(b []byte, dst *float64) (int, error) {
	v, n := protowire.ConsumeFixed64(b)
	if n < 0 {
		return 0, protowire.ParseError(n)
	}
	*dst = math.Float64frombits(v)
	return n, nil
}

func skipField(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
	n := protowire.ConsumeFieldValue(num, typ, b)
	if n < 0 {
		return 0, protowire.ParseError(n)
	}
	return n, nil
}
