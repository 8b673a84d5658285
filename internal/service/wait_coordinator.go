package service

import (
	"context"
	"time"

	"github.com/oncepay/oncepay/internal/domain"
)

type AwaitStatus string

const (
	AwaitCompleted AwaitStatus = "completed"
	AwaitFailed    AwaitStatus = "failed"
	AwaitTimedOut  AwaitStatus = "timed_out"
)

// AwaitOutcome is the result of waiting on another caller's in-flight
// execution. TimedOut is an explicit outcome, never a guess about the
// winner's fate.
type AwaitOutcome struct {
	Status AwaitStatus
	Record *domain.IdempotencyKey
}

// AwaitResult polls the store at a fixed interval until the key reaches a
// terminal status, the bounded wait elapses, or ctx is cancelled. The loop
// observes ctx on every iteration, so callers hanging up stop the polling
// immediately.
func (s *IdempotencyService) AwaitResult(ctx context.Context, key string) (*AwaitOutcome, error) {
	deadline := time.Now().Add(s.cfg.MaxWait)

	record, err := s.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, ErrKeyUnknown
	}
	if outcome := terminalOutcome(record); outcome != nil {
		return outcome, nil
	}

	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}

		record, err = s.Get(ctx, key)
		if err != nil {
			return nil, err
		}
		if record == nil {
			// The sweeper only deletes expired reservations, so a vanished
			// key mid-wait means it was never claimed.
			return nil, ErrKeyUnknown
		}
		if outcome := terminalOutcome(record); outcome != nil {
			return outcome, nil
		}
		if !time.Now().Before(deadline) {
			recordWaitTimedOut()
			logLifecycleAudit(key, record.Status+"->await_timed_out", nil)
			return &AwaitOutcome{Status: AwaitTimedOut, Record: record}, nil
		}
	}
}

func terminalOutcome(record *domain.IdempotencyKey) *AwaitOutcome {
	switch record.Status {
	case domain.KeyStatusCompleted:
		return &AwaitOutcome{Status: AwaitCompleted, Record: record}
	case domain.KeyStatusFailed:
		return &AwaitOutcome{Status: AwaitFailed, Record: record}
	default:
		return nil
	}
}
