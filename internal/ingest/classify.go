package ingest

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Outcome classifies the result of one SendData call.
type Outcome int

const (
	// OutcomeAccepted means the backend stored the reading.
	OutcomeAccepted Outcome = iota
	// OutcomeRejected means the call succeeded but the backend refused the reading.
	OutcomeRejected
	// OutcomeTransport covers RPC-level failures: unreachable server,
	// deadline exceeded, unavailable and any other gRPC status.
	OutcomeTransport
	// OutcomeFatal is anything that is not a gRPC status. The vehicle stops.
	OutcomeFatal
	// OutcomeCanceled means the run was stopped while the call was in flight.
	OutcomeCanceled
)

var outcomeNames = [...]string{
	OutcomeAccepted:  "accepted",
	OutcomeRejected:  "rejected",
	OutcomeTransport: "transport_error",
	OutcomeFatal:     "fatal",
	OutcomeCanceled:  "canceled",
}

func (o Outcome) String() string {
	if o < 0 || int(o) >= len(outcomeNames) {
		return "unknown"
	}
	return outcomeNames[o]
}

// MarshalText renders the outcome name in JSON and logs.
func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// Recoverable reports whether the vehicle keeps ticking after this outcome.
func (o Outcome) Recoverable() bool {
	return o == OutcomeAccepted || o == OutcomeRejected || o == OutcomeTransport
}

// Classify maps a call result onto an Outcome. runCtx is the vehicle's run
// context, not the per-call context: a per-call deadline is a transport
// failure while a canceled run is not a failure at all.
func Classify(runCtx context.Context, res Result, err error) Outcome {
	if err == nil {
		if res.Accepted {
			return OutcomeAccepted
		}
		return OutcomeRejected
	}
	if runCtx.Err() != nil {
		return OutcomeCanceled
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return OutcomeTransport
	}
	if _, ok := status.FromError(err); ok {
		return OutcomeTransport
	}
	return OutcomeFatal
}

// Code returns the gRPC status code carried by err, codes.OK for nil.
func Code(err error) codes.Code {
	if errors.Is(err, context.DeadlineExceeded) {
		return codes.DeadlineExceeded
	}
	return status.Code(err)
}
