package ingest

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestClassify(t *testing.T) {
	live := context.Background()
	canceled, cancel := context.WithCancel(context.Background())
	cancel()

	cases := []struct {
		name string
		ctx  context.Context
		res  Result
		err  error
		want Outcome
	}{
		{"accepted", live, Result{Accepted: true}, nil, OutcomeAccepted},
		{"rejected", live, Result{Message: "duplicate"}, nil, OutcomeRejected},
		{"unavailable", live, Result{}, status.Error(codes.Unavailable, "connection refused"), OutcomeTransport},
		{"deadline status", live, Result{}, status.Error(codes.DeadlineExceeded, "deadline"), OutcomeTransport},
		{"call deadline", live, Result{}, fmt.Errorf("send: %w", context.DeadlineExceeded), OutcomeTransport},
		{"internal", live, Result{}, status.Error(codes.Internal, "boom"), OutcomeTransport},
		{"plain error", live, Result{}, errors.New("nil pointer"), OutcomeFatal},
		{"run canceled", canceled, Result{}, status.Error(codes.Canceled, "context canceled"), OutcomeCanceled},
		{"canceled success", canceled, Result{Accepted: true}, nil, OutcomeAccepted},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Classify(tc.ctx, tc.res, tc.err))
		})
	}
}

func TestOutcomeRecoverable(t *testing.T) {
	assert.True(t, OutcomeAccepted.Recoverable())
	assert.True(t, OutcomeRejected.Recoverable())
	assert.True(t, OutcomeTransport.Recoverable())
	assert.False(t, OutcomeFatal.Recoverable())
	assert.False(t, OutcomeCanceled.Recoverable())
	assert.Equal(t, "transport_error", OutcomeTransport.String())
	assert.Equal(t, "unknown", Outcome(42).String())
}
