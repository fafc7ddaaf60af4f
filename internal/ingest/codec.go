package ingest

import (
	"errors"
	"fmt"
)

// ErrUnknownMessage is returned by Codec for values it cannot encode.
var ErrUnknownMessage = errors.New("ingest: unsupported message type")

type wireMessage interface {
	Marshal() ([]byte, error)
	Unmarshal([]byte) error
}

// Codec is a gRPC codec for the ingestion messages. It is not registered
// globally; callers force it per connection with grpc.ForceCodec or
// grpc.ForceServerCodec. Its name is the "proto" content subtype, so the
// wire carries standard application/grpc+proto traffic.
type Codec struct{}

// Marshal implements encoding.Codec.
func (Codec) Marshal(v any) ([]byte, error) {
	m, ok := v.(wireMessage)
	if !ok {
		return nil, fmt.Errorf("%w: %T", ErrUnknownMessage, v)
	}
	return m.Marshal()
}

// Unmarshal implements encoding.Codec.
func (Codec) Unmarshal(data []byte, v any) error {
	m, ok := v.(wireMessage)
	if !ok {
		return fmt.Errorf("%w: %T", ErrUnknownMessage, v)
	}
	return m.Unmarshal(data)
}

// Name implements encoding.Codec.
func (Codec) Name() string { return "proto" }
