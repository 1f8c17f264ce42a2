package bot

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/onnwee/chatkeeper/catalog"
	"github.com/onnwee/chatkeeper/telemetry"
)

// Scheduler runs one goroutine per repeating command, emitting the command
// text on its configured interval. Loops re-read the catalog record before
// every emission, so text and auth edits take effect without a restart;
// repeat, interval, and delete edits need a Sync call to start or stop the
// loop itself.
type Scheduler struct {
	cat    *catalog.Catalog
	sender Sender

	mu      sync.Mutex
	ctx     context.Context
	cancels map[string]context.CancelFunc
}

// NewScheduler returns a Scheduler delivering through sender.
func NewScheduler(cat *catalog.Catalog, sender Sender) *Scheduler {
	return &Scheduler{
		cat:     cat,
		sender:  sender,
		cancels: make(map[string]context.CancelFunc),
	}
}

// Start launches loops for every repeating command in the catalog. It must
// be called once before Sync; ctx cancellation stops all loops.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ctx = ctx
	for _, cmd := range s.cat.Commands() {
		if cmd.Repeating {
			s.startLocked(cmd.Name)
		}
	}
}

// Sync reconciles the loop for name with its current catalog record,
// starting or stopping it as needed. Safe to call for deleted commands.
func (s *Scheduler) Sync(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ctx == nil {
		return
	}

	cmd, ok := s.cat.Lookup(name)
	shouldRun := ok && cmd.Repeating && !cmd.Disabled

	if cancel, running := s.cancels[name]; running {
		// Restart so interval and delay edits take effect immediately.
		cancel()
		delete(s.cancels, name)
	}
	if shouldRun {
		s.startLocked(name)
	}
	telemetry.SetBroadcasters(len(s.cancels))
}

func (s *Scheduler) startLocked(name string) {
	loopCtx, cancel := context.WithCancel(s.ctx)
	s.cancels[name] = cancel
	go s.run(loopCtx, name)
	telemetry.SetBroadcasters(len(s.cancels))
}

// run is one broadcast loop. It sleeps the initial delay once, then emits on
// the interval, re-reading the record each wake so edits are picked up. The
// loop exits when the record is gone, no longer repeating, disabled, or has
// an interval below the minimum.
func (s *Scheduler) run(ctx context.Context, name string) {
	cmd, ok := s.cat.Lookup(name)
	if !ok {
		return
	}
	if !sleep(ctx, time.Duration(cmd.InitialDelaySeconds)*time.Second) {
		return
	}

	for {
		cmd, ok := s.cat.Lookup(name)
		if !ok || !cmd.Repeating || cmd.Disabled {
			return
		}
		interval := time.Duration(cmd.IntervalSeconds) * time.Second
		if interval < catalog.MinRepeatInterval {
			slog.Warn("broadcast interval below minimum, stopping loop",
				slog.String("command", name),
				slog.Int64("interval_seconds", cmd.IntervalSeconds))
			return
		}

		// Parameterized text cannot be broadcast; keep the loop alive in
		// case the text is edited back.
		if !strings.Contains(cmd.Text, catalog.ParamToken) {
			if s.cat.CheckAndArmCooldown(name, time.Now()) {
				Deliver(s.sender, []Action{Reply(cmd.Text)})
				count(telemetry.BroadcastsSent)
			}
		}

		if !sleep(ctx, interval) {
			return
		}
	}
}

// sleep waits for d or until ctx is done, reporting whether the full wait
// elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
