package account

import (
	"time"

	"github.com/sasha-s/go-deadlock"
	"go.uber.org/zap"
)

func init() {
	// Account mutexes behave like plain sync.Mutex until diagnostics are configured.
	deadlock.Opts.Disable = true
	deadlock.Opts.OnPotentialDeadlock = func() {}
}

// Diagnostics controls go-deadlock detection on account locks.
type Diagnostics struct {
	Enabled bool
	// Timeout is how long a Lock may wait before it is reported.
	Timeout time.Duration
	// LockOrder reports accounts locked in inconsistent orders.
	LockOrder bool
	// OnPotentialDeadlock is called after the report is logged.
	OnPotentialDeadlock func()
}

// ConfigureLockDiagnostics applies d process-wide. It must be called before
// accounts are shared between goroutines. Potential deadlocks are logged and
// never terminate the process.
func ConfigureLockDiagnostics(d Diagnostics, logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}

	deadlock.Opts.Disable = !d.Enabled
	deadlock.Opts.DisableLockOrderDetection = !d.LockOrder
	deadlock.Opts.DeadlockTimeout = d.Timeout

	hook := d.OnPotentialDeadlock
	deadlock.Opts.OnPotentialDeadlock = func() {
		logger.Error("potential deadlock on account lock",
			zap.Duration("timeout", d.Timeout),
			zap.Bool("lock_order", d.LockOrder),
		)
		if hook != nil {
			hook()
		}
	}
}
