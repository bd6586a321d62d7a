// safego.go — Panic-recovering goroutine launcher.
package util

import (
	"runtime/debug"

	"github.com/sirupsen/logrus"
)

// SafeGo launches fn in a goroutine with deferred panic recovery. A panic is
// logged with its stack and swallowed so a background failure never takes
// the bridge down with it.
func SafeGo(logger logrus.FieldLogger, fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.WithField("panic", r).Errorf("recovered panic in background goroutine\n%s", debug.Stack())
			}
		}()
		fn()
	}()
}
