package pollination

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Poll defaults matching the guide: five attempts, one minute apart.
const (
	DefaultPollAttempts = 5
	DefaultPollInterval = time.Minute
)

// Sleeper pauses between poll attempts. Implementations must honor context
// cancellation; tests substitute one that never really sleeps.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// PollConfig bounds the job status poll. Zero values fall back to the
// defaults above.
type PollConfig struct {
	Attempts int
	Interval time.Duration
}

// WaitForJob polls the job until it reaches a terminal state or the attempt
// budget runs out. It returns the last observed status and whether a terminal
// state was seen. Exhausting the budget is not an error; the caller decides
// what an unfinished job means.
func (c *Client) WaitForJob(ctx context.Context, projectName, jobID string, cfg PollConfig, sleeper Sleeper) (string, bool, error) {
	attempts := cfg.Attempts
	if attempts <= 0 {
		attempts = DefaultPollAttempts
	}
	interval := cfg.Interval
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	c.logger.Info("waiting for job to finish",
		zap.String("job_id", jobID),
		zap.Duration("max_wait", time.Duration(attempts)*interval),
	)

	remaining := attempts
	last := ""
	for remaining > 0 {
		job, err := c.GetJob(ctx, projectName, jobID)
		if err != nil {
			return last, false, err
		}
		last = job.State()
		switch last {
		case StatusCompleted:
			c.logger.Info("job finished", zap.String("job_id", jobID))
			return last, true, nil
		case StatusCancelled:
			c.logger.Info("job cancelled", zap.String("job_id", jobID))
			return last, true, nil
		}
		if err := sleeper.Sleep(ctx, interval); err != nil {
			return last, false, err
		}
		remaining--
		c.logger.Info("job still pending",
			zap.String("job_id", jobID),
			zap.String("status", last),
			zap.Int("attempts_remaining", remaining),
		)
	}
	return last, false, nil
}
