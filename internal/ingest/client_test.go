package ingest_test

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"geostream-sim/internal/ingest"
	"geostream-sim/internal/ingest/ingesttest"
	"geostream-sim/internal/telemetry"
)

func sampleReading() telemetry.Reading {
	return telemetry.Reading{
		VehicleID:  "TRUCK-001",
		Position:   telemetry.GeoPosition{Lat: 40.7130, Lon: -74.0061},
		Speed:      42.5,
		EngineTemp: 195.25,
		Timestamp:  time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestGRPCClientAccepted(t *testing.T) {
	backend := ingesttest.Accepting("Stored in Kafka")
	dialer := ingesttest.Start(t, backend, "run-1")

	cli, err := dialer.Dial(context.Background(), "TRUCK-001")
	require.NoError(t, err)
	defer cli.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	res, err := cli.SendData(ctx, sampleReading())
	require.NoError(t, err)
	assert.True(t, res.Accepted)
	assert.Equal(t, "Stored in Kafka", res.Message)

	requests := backend.Requests()
	require.Len(t, requests, 1)
	got := requests[0]
	assert.Equal(t, "TRUCK-001", got.TruckID)
	assert.Equal(t, 40.7130, got.Latitude)
	assert.Equal(t, -74.0061, got.Longitude)
	assert.Equal(t, 42.5, got.Speed)
	assert.Equal(t, 195.25, got.EngineTemp)
	assert.Equal(t, "2024-05-01T12:00:00Z", got.Timestamp)
	assert.Equal(t, []string{"run-1"}, backend.RunIDs())
}

func TestGRPCClientRejected(t *testing.T) {
	backend := &ingesttest.Backend{Respond: func(*ingest.SendDataRequest) (*ingest.SendDataResponse, error) {
		return &ingest.SendDataResponse{Success: false, Message: "duplicate"}, nil
	}}
	dialer := ingesttest.Start(t, backend, "run-1")

	cli, err := dialer.Dial(context.Background(), "TRUCK-001")
	require.NoError(t, err)
	defer cli.Close()

	ctx := context.Background()
	res, err := cli.SendData(ctx, sampleReading())
	require.NoError(t, err)
	assert.Equal(t, ingest.OutcomeRejected, ingest.Classify(ctx, res, err))
	assert.Equal(t, "duplicate", res.Message)
}

func TestGRPCClientStatusError(t *testing.T) {
	backend := &ingesttest.Backend{Respond: func(*ingest.SendDataRequest) (*ingest.SendDataResponse, error) {
		return nil, status.Error(codes.Unavailable, "Kafka Error")
	}}
	dialer := ingesttest.Start(t, backend, "run-1")

	cli, err := dialer.Dial(context.Background(), "TRUCK-001")
	require.NoError(t, err)
	defer cli.Close()

	ctx := context.Background()
	res, err := cli.SendData(ctx, sampleReading())
	require.Error(t, err)
	assert.Equal(t, ingest.OutcomeTransport, ingest.Classify(ctx, res, err))
	assert.Equal(t, codes.Unavailable, ingest.Code(err))
}

func TestGRPCClientUnreachable(t *testing.T) {
	cli, err := ingest.NewGRPCClient("passthrough:///unreachable", "", "", grpc.WithContextDialer(
		func(context.Context, string) (net.Conn, error) {
			return nil, &net.OpError{Op: "dial", Err: net.UnknownNetworkError("refused")}
		},
	))
	require.NoError(t, err)
	defer cli.Close()

	ctx := context.Background()
	callCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	res, err := cli.SendData(callCtx, sampleReading())
	require.Error(t, err)
	assert.Equal(t, ingest.OutcomeTransport, ingest.Classify(ctx, res, err))
}

func TestNewGRPCClientInvalidTarget(t *testing.T) {
	_, err := ingest.NewGRPCClient("unknown-scheme:///x\x00", "", "")
	assert.Error(t, err)
}
