// Package ingesttest runs an in-memory ingestion backend for tests.
package ingesttest

import (
	"context"
	"net"
	"sync"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/test/bufconn"

	"geostream-sim/internal/ingest"
)

type ingestionServer interface {
	SendData(context.Context, *ingest.SendDataRequest) (*ingest.SendDataResponse, error)
}

// Backend records requests and answers through Respond. A nil Respond
// accepts everything.
type Backend struct {
	Respond func(*ingest.SendDataRequest) (*ingest.SendDataResponse, error)

	mu       sync.Mutex
	requests []*ingest.SendDataRequest
	runIDs   []string
}

// Accepting returns a backend that acknowledges every reading with msg.
func Accepting(msg string) *Backend {
	return &Backend{Respond: func(*ingest.SendDataRequest) (*ingest.SendDataResponse, error) {
		return &ingest.SendDataResponse{Success: true, Message: msg}, nil
	}}
}

// SendData implements the unary handler.
func (b *Backend) SendData(ctx context.Context, req *ingest.SendDataRequest) (*ingest.SendDataResponse, error) {
	b.mu.Lock()
	b.requests = append(b.requests, req)
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		b.runIDs = append(b.runIDs, md.Get(ingest.RunIDHeader)...)
	}
	respond := b.Respond
	b.mu.Unlock()

	if respond == nil {
		return &ingest.SendDataResponse{Success: true}, nil
	}
	return respond(req)
}

// Requests returns a copy of every request received so far.
func (b *Backend) Requests() []*ingest.SendDataRequest {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*ingest.SendDataRequest(nil), b.requests...)
}

// RunIDs returns the run id header of every request received so far.
func (b *Backend) RunIDs() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.runIDs...)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: "telemetry.v1.TelemetryService",
	HandlerType: (*ingestionServer)(nil),
	Methods: []grpc.MethodDesc{{
		MethodName: "SendData",
		Handler: func(srv any, ctx context.Context, dec func(any) error, _ grpc.UnaryServerInterceptor) (any, error) {
			in := new(ingest.SendDataRequest)
			if err := dec(in); err != nil {
				return nil, err
			}
			return srv.(ingestionServer).SendData(ctx, in)
		},
	}},
}

// Start serves b over an in-memory listener until the test ends and returns
// a dialer connected to it.
func Start(t testing.TB, b *Backend, runID string) ingest.GRPCDialer {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer(grpc.ForceServerCodec(ingest.Codec{}))
	srv.RegisterService(&serviceDesc, b)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	return ingest.GRPCDialer{
		Target: "passthrough:///bufnet",
		RunID:  runID,
		Options: []grpc.DialOption{
			grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
				return lis.DialContext(ctx)
			}),
		},
	}
}
