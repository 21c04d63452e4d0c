// Package runutil includes helpers for scheduling runnable, periodic functions.
package runutil

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// RunEvery runs the provided command periodically. It runs in a goroutine, and
// can be cancelled by finishing the supplied context.
func RunEvery(ctx context.Context, period time.Duration, f func()) {
	funcName := "callback"
	ticker := time.NewTicker(period)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				logrus.WithField("function", funcName).Trace("running")
				f()
			case <-ctx.Done():
				logrus.WithField("function", funcName).Debug("context is closed, exiting")
				return
			}
		}
	}()
}
