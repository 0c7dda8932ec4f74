package redis

import (
	"context"
	"errors"
	"time"
)

// ErrRunInProgress is returned when another process already holds the
// ingestion run lock.
var ErrRunInProgress = errors.New("an ingestion run is already in progress")

const runLockKey = "baobab:ingest:run_lock"

// releaseScript deletes the lock only when the caller still owns it.
const releaseScript = `
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`

// RunLock serializes ingestion runs across processes. The lock expires
// on its own so a crashed run cannot wedge ingestion forever.
type RunLock struct {
	client *Client
	ttl    time.Duration
}

func NewRunLock(client *Client, ttl time.Duration) *RunLock {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &RunLock{
		client: client,
		ttl:    ttl,
	}
}

// Acquire takes the lock for runID. Returns ErrRunInProgress when
// another run holds it.
func (l *RunLock) Acquire(ctx context.Context, runID string) error {
	ok, err := l.client.SetNX(ctx, runLockKey, runID, l.ttl)
	if err != nil {
		return err
	}
	if !ok {
		return ErrRunInProgress
	}
	return nil
}

// Release drops the lock if runID still owns it.
func (l *RunLock) Release(ctx context.Context, runID string) error {
	_, err := l.client.Eval(ctx, releaseScript, []string{runLockKey}, runID)
	return err
}
