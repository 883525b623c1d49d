package channel

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// DefaultReconnectInterval matches the fixed delay the clients have always
// used between redial attempts.
const DefaultReconnectInterval = 3 * time.Second

// Reconnector keeps a Client dialed until its context is cancelled, waiting
// a fixed interval between attempts. It never replays outbound traffic:
// after every reopen the owning adapter re-sends its explicit rejoin message
// through the client's OnOpen subscribers, because the server keeps no
// durable queue of a client's intent.
type Reconnector struct {
	client   *Client
	url      string
	interval time.Duration
	clock    clockwork.Clock
	log      *zap.Logger
}

func NewReconnector(client *Client, url string, clock clockwork.Clock, log *zap.Logger) *Reconnector {
	return &Reconnector{
		client:   client,
		url:      url,
		interval: DefaultReconnectInterval,
		clock:    clock,
		log:      log,
	}
}

// SetInterval overrides the redial delay, mainly for tests.
func (r *Reconnector) SetInterval(d time.Duration) { r.interval = d }

// Run dials and then redials whenever the connection drops, until ctx is
// cancelled. It closes the client on the way out.
func (r *Reconnector) Run(ctx context.Context) error {
	policy := backoff.NewConstantBackOff(r.interval)

	dropped := make(chan struct{}, 1)
	r.client.OnClose(func() {
		select {
		case dropped <- struct{}{}:
		default:
		}
	})

	for {
		if err := r.client.Dial(ctx, r.url); err != nil {
			if err == ErrClosed {
				return nil
			}
			r.log.Warn("dial failed, retrying",
				zap.String("url", r.url),
				zap.Duration("in", r.interval),
				zap.Error(err))
			if err := r.wait(ctx, policy.NextBackOff()); err != nil {
				return err
			}
			continue
		}
		policy.Reset()

		select {
		case <-ctx.Done():
			r.client.Close()
			return ctx.Err()
		case <-dropped:
		}

		r.log.Info("connection dropped, reconnecting",
			zap.Duration("in", r.interval))
		if err := r.wait(ctx, policy.NextBackOff()); err != nil {
			return err
		}
	}
}

func (r *Reconnector) wait(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		r.client.Close()
		return ctx.Err()
	case <-r.clock.After(d):
		return nil
	}
}
