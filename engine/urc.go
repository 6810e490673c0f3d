package engine

import (
	"log/slog"
	"sync/atomic"

	"github.com/atline-io/atline/internal/metrics"
)

// urcSink is the bounded queue unsolicited result codes are published to.
// A full sink drops per the configured policy; drops are counted, never
// silent.
type urcSink struct {
	ch     chan string
	policy DropPolicy
	drops  atomic.Uint64
	log    *slog.Logger
}

func newURCSink(size int, policy DropPolicy, log *slog.Logger) *urcSink {
	return &urcSink{
		ch:     make(chan string, size),
		policy: policy,
		log:    log,
	}
}

// push publishes a URC line. Callers hold the engine lock, so there is a
// single producer and the evict-then-send sequence cannot interleave with
// another push.
func (s *urcSink) push(line string) {
	metrics.URCsReceived.Inc()
	select {
	case s.ch <- line:
		return
	default:
	}

	s.drops.Add(1)
	metrics.URCsDropped.Inc()

	if s.policy == DropOldest {
		select {
		case old := <-s.ch:
			s.log.Warn("URC sink full, dropped oldest", "dropped", old)
		default:
		}
		select {
		case s.ch <- line:
		default:
		}
		return
	}
	s.log.Warn("URC sink full, dropped newest", "dropped", line)
}
