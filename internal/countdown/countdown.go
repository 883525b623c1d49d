// Package countdown runs the per-question countdown clock. It owns no
// session state: it only turns wall time (or a fake clock in tests) into
// tick and expiry events delivered to a single sink, where the reducer
// decides what they mean.
package countdown

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

type Event interface{ isCountdownEvent() }

// Tick reports one second elapsed on the countdown for a question.
type Tick struct {
	QuestionID string
	Remaining  int
}

// Expired fires exactly once, when the countdown reaches zero.
type Expired struct{ QuestionID string }

func (Tick) isCountdownEvent()    {}
func (Expired) isCountdownEvent() {}

// Controller decrements a per-question countdown at one-second granularity.
// At most one question is armed at a time: arming a new question cancels the
// previous timer before the new one starts. Events from a cancelled timer
// that were already in flight carry the old question id, so consumers filter
// by id rather than trusting delivery order.
type Controller struct {
	clock clockwork.Clock
	log   *zap.Logger
	emit  func(Event)

	mu         sync.Mutex
	stop       chan struct{}
	questionID string
}

// New builds a controller delivering events through emit. The emit callback
// must not block indefinitely; it is invoked from the timer goroutine.
func New(clock clockwork.Clock, log *zap.Logger, emit func(Event)) *Controller {
	return &Controller{clock: clock, log: log, emit: emit}
}

// Arm starts a countdown of the given number of seconds for questionID,
// cancelling any previously armed countdown first.
func (c *Controller) Arm(questionID string, seconds int) {
	c.mu.Lock()
	if c.stop != nil {
		close(c.stop)
	}
	stop := make(chan struct{})
	c.stop = stop
	c.questionID = questionID
	c.mu.Unlock()

	if seconds <= 0 {
		// A question must carry a positive time limit; treat anything else
		// as immediately expired rather than running forever. Delivery goes
		// through a goroutine like every other event: emit may feed the
		// inbox of the very loop that called Arm.
		c.log.Warn("countdown armed with non-positive limit",
			zap.String("question_id", questionID), zap.Int("seconds", seconds))
		c.finish(stop)
		go c.emit(Expired{QuestionID: questionID})
		return
	}

	c.log.Debug("countdown armed",
		zap.String("question_id", questionID), zap.Int("seconds", seconds))
	go c.run(questionID, seconds, stop)
}

// Stop cancels any armed countdown. It is idempotent and safe to call on an
// idle controller, e.g. when the channel closes during teardown.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stop != nil {
		close(c.stop)
		c.stop = nil
		c.questionID = ""
	}
}

// Armed reports the question id currently counting down, if any.
func (c *Controller) Armed() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.questionID, c.stop != nil
}

func (c *Controller) run(questionID string, seconds int, stop chan struct{}) {
	ticker := c.clock.NewTicker(time.Second)
	defer ticker.Stop()

	remaining := seconds
	for {
		select {
		case <-stop:
			return
		case <-ticker.Chan():
			// A close may race the tick wakeup; re-check before emitting.
			select {
			case <-stop:
				return
			default:
			}
			remaining--
			if remaining <= 0 {
				c.finish(stop)
				c.emit(Expired{QuestionID: questionID})
				return
			}
			c.emit(Tick{QuestionID: questionID, Remaining: remaining})
		}
	}
}

// finish clears the armed slot when a countdown runs to completion on its
// own, without clobbering a newer countdown that already replaced it.
func (c *Controller) finish(stop chan struct{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stop == stop {
		c.stop = nil
		c.questionID = ""
	}
}
