package cron

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rentmoto/rentmoto-backend/internal/rentals"
	pkgerrors "github.com/rentmoto/rentmoto-backend/pkg/errors"
	"github.com/rentmoto/rentmoto-backend/pkg/logger"
)

type stubSweeper struct {
	batches []map[rentals.SweepReason]int
	err     error
	calls   int
}

func (s *stubSweeper) SweepBatch(ctx context.Context, limit int) (map[rentals.SweepReason]int, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	if len(s.batches) == 0 {
		return map[rentals.SweepReason]int{}, nil
	}
	batch := s.batches[0]
	s.batches = s.batches[1:]
	return batch, nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func TestRentalDeadlineJobSweepsUntilEmpty(t *testing.T) {
	sweeper := &stubSweeper{
		batches: []map[rentals.SweepReason]int{
			{rentals.SweepReasonConfirmationExpired: 2, rentals.SweepReasonPaymentExpired: 1},
			{rentals.SweepReasonConfirmationExpired: 1},
		},
	}
	job, err := NewRentalDeadlineJob(RentalDeadlineJobParams{
		Logger:  testLogger(),
		Rentals: sweeper,
	})
	require.NoError(t, err)

	require.NoError(t, job.Run(context.Background()))
	// two productive batches plus the empty batch that stops the loop
	assert.Equal(t, 3, sweeper.calls)
}

func TestRentalDeadlineJobPropagatesErrors(t *testing.T) {
	sweeper := &stubSweeper{err: pkgerrors.New(pkgerrors.CodeDependency, "db unavailable")}
	job, err := NewRentalDeadlineJob(RentalDeadlineJobParams{
		Logger:  testLogger(),
		Rentals: sweeper,
	})
	require.NoError(t, err)

	assert.Error(t, job.Run(context.Background()))
}

func TestRentalDeadlineJobValidation(t *testing.T) {
	_, err := NewRentalDeadlineJob(RentalDeadlineJobParams{Logger: testLogger()})
	assert.Error(t, err)

	_, err = NewRentalDeadlineJob(RentalDeadlineJobParams{Rentals: &stubSweeper{}})
	assert.Error(t, err)
}
