package db

import (
	"context"
	"time"

	"gorm.io/gorm"
)

const (
	txMaxAttempts   = 3
	txInitialDelay  = 50 * time.Millisecond
	txBackoffFactor = 2
)

// RunInTx runs fn inside a transaction, retrying transient conflicts
// (serialization failures, deadlocks, invalidated prepared statements)
// with capped exponential backoff. Business errors are returned as-is.
func RunInTx(ctx context.Context, conn *gorm.DB, fn func(tx *gorm.DB) error) error {
	delay := txInitialDelay

	var err error
	for attempt := 1; attempt <= txMaxAttempts; attempt++ {
		err = conn.WithContext(ctx).Transaction(fn)
		if err == nil || !IsRetryableTxErr(err) {
			return err
		}
		if attempt == txMaxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= txBackoffFactor
	}
	return err
}
