package ingest

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"

	"geostream-sim/internal/telemetry"
)

// DefaultMethod is the full gRPC method name of the ingestion call.
const DefaultMethod = "/telemetry.v1.TelemetryService/SendData"

// RunIDHeader carries the simulation run id on every call.
const RunIDHeader = "x-simulation-run-id"

// Result is the backend's answer to one reading.
type Result struct {
	Accepted bool
	Message  string
}

// Client sends readings to the ingestion backend. A Client is owned by a
// single vehicle and closed exactly once when the vehicle stops.
type Client interface {
	SendData(ctx context.Context, r telemetry.Reading) (Result, error)
	Close() error
}

// Dialer acquires a Client for one vehicle.
type Dialer interface {
	Dial(ctx context.Context, id telemetry.VehicleID) (Client, error)
}

// DialerFunc adapts a function to the Dialer interface.
type DialerFunc func(ctx context.Context, id telemetry.VehicleID) (Client, error)

// Dial implements Dialer.
func (f DialerFunc) Dial(ctx context.Context, id telemetry.VehicleID) (Client, error) {
	return f(ctx, id)
}

// GRPCDialer opens one gRPC channel per vehicle.
type GRPCDialer struct {
	Target  string
	Method  string
	RunID   string
	Options []grpc.DialOption
}

// Dial implements Dialer.
func (d GRPCDialer) Dial(_ context.Context, id telemetry.VehicleID) (Client, error) {
	return NewGRPCClient(d.Target, d.Method, d.RunID, d.Options...)
}

// GRPCClient is a Client backed by a gRPC channel.
type GRPCClient struct {
	conn   *grpc.ClientConn
	method string
	md     metadata.MD
}

// NewGRPCClient creates a client for target. Connections are established
// lazily on the first call; only an invalid target fails here.
func NewGRPCClient(target, method, runID string, opts ...grpc.DialOption) (*GRPCClient, error) {
	if method == "" {
		method = DefaultMethod
	}
	base := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.ForceCodec(Codec{})),
	}
	conn, err := grpc.NewClient(target, append(base, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", target, err)
	}
	c := &GRPCClient{conn: conn, method: method}
	if runID != "" {
		c.md = metadata.Pairs(RunIDHeader, runID)
	}
	return c, nil
}

// SendData transmits one reading and returns the backend verdict. Errors are
// returned unchanged so Classify can inspect their gRPC status.
func (c *GRPCClient) SendData(ctx context.Context, r telemetry.Reading) (Result, error) {
	if c.md != nil {
		ctx = metadata.NewOutgoingContext(ctx, c.md)
	}
	req := NewRequest(r)
	resp := new(SendDataResponse)
	if err := c.conn.Invoke(ctx, c.method, req, resp); err != nil {
		return Result{}, err
	}
	return Result{Accepted: resp.Success, Message: resp.Message}, nil
}

// Close releases the underlying channel.
func (c *GRPCClient) Close() error {
	return c.conn.Close()
}

// NewRequest converts a reading into its wire form.
func NewRequest(r telemetry.Reading) *SendDataRequest {
	return &SendDataRequest{
		TruckID:    r.VehicleID.String(),
		Latitude:   r.Position.Lat,
		Longitude:  r.Position.Lon,
		Speed:      r.Speed,
		EngineTemp: r.EngineTemp,
		Timestamp:  r.Timestamp.UTC().Format(time.RFC3339Nano),
	}
}
