// Package goroutine wraps goroutine launches with panic recovery.
package goroutine

import (
	"fmt"
	"runtime/debug"

	"parceldesk/internal/shared/logger"
)

// SafeGo runs fn on a new goroutine. A panic in fn is recovered and logged
// with its stack under the given name; the process keeps running. Used for
// the hub's per-connection pumps, where one bad client must not take the
// server down.
func SafeGo(log logger.Interface, name string, fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Errorw("goroutine panicked",
					"goroutine", name,
					"panic", fmt.Sprintf("%v", r),
					"stack", string(debug.Stack()),
				)
			}
		}()
		fn()
	}()
}
