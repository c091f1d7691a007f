package cron

import (
	"context"
	"fmt"

	"go.uber.org/multierr"

	"github.com/rentmoto/rentmoto-backend/internal/rentals"
	"github.com/rentmoto/rentmoto-backend/pkg/logger"
	"github.com/rentmoto/rentmoto-backend/pkg/metrics"
)

const defaultSweepBatch = 200

// deadlineSweeper is the slice of the rentals service this job drives.
type deadlineSweeper interface {
	SweepBatch(ctx context.Context, limit int) (map[rentals.SweepReason]int, error)
}

type RentalDeadlineJobParams struct {
	Logger    *logger.Logger
	Rentals   deadlineSweeper
	Metrics   *metrics.CronJobMetrics
	BatchSize int
}

// rentalDeadlineJob cancels rentals whose confirmation or payment deadline
// elapsed while nobody read them. Reads already sweep lazily; this job keeps
// the unread tail from accumulating.
type rentalDeadlineJob struct {
	logg    *logger.Logger
	rentals deadlineSweeper
	metrics *metrics.CronJobMetrics
	batch   int
}

func NewRentalDeadlineJob(params RentalDeadlineJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Rentals == nil {
		return nil, fmt.Errorf("rentals sweeper required")
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultSweepBatch
	}
	return &rentalDeadlineJob{
		logg:    params.Logger,
		rentals: params.Rentals,
		metrics: params.Metrics,
		batch:   batch,
	}, nil
}

func (j *rentalDeadlineJob) Name() string { return "rental-deadline" }

func (j *rentalDeadlineJob) Run(ctx context.Context) error {
	var errs []error
	total := 0

	// keep sweeping batches until a batch comes back empty
	for {
		swept, err := j.rentals.SweepBatch(ctx, j.batch)
		if err != nil {
			errs = append(errs, fmt.Errorf("sweep batch: %w", err))
			break
		}

		batchTotal := 0
		for reason, count := range swept {
			batchTotal += count
			if j.metrics != nil {
				for i := 0; i < count; i++ {
					j.metrics.IncSwept(string(reason))
				}
			}
		}
		total += batchTotal
		if batchTotal == 0 {
			break
		}
	}

	j.logg.Info(j.logg.WithField(ctx, "swept", total), "deadline sweep finished")
	return multierr.Combine(errs...)
}
