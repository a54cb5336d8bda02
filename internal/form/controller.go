// Package form implements the identification form: validation of the six
// sensor inputs, submission to the backend, and the resulting outcome state.
package form

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"dravyalabs/internal/dravya"
)

// subscriberBuffer is how many transitions a slow subscriber may lag behind
// before older frames are dropped.
const subscriberBuffer = 8

// Identifier is the part of the backend client the controller needs
type Identifier interface {
	Identify(ctx context.Context, req dravya.IdentifyRequest) (*dravya.IdentifyResult, error)
}

// Controller owns the outcome state of one form.
// Submissions are serialized: a second Submit waits for the first to finish.
type Controller struct {
	client Identifier
	logger *zap.Logger

	slot chan struct{}

	mu      sync.RWMutex
	state   Outcome
	subs    map[int]chan Outcome
	nextSub int
}

// NewController creates a controller in the Idle state
func NewController(client Identifier, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{
		client: client,
		logger: logger,
		slot:   make(chan struct{}, 1),
		state:  Idle(),
		subs:   make(map[int]chan Outcome),
	}
}

// State returns the current outcome
func (c *Controller) State() Outcome {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Submit validates the reading, sends it to the backend and returns the
// terminal outcome (Success or Error). The error is non-nil only when ctx
// ends while waiting for an earlier submission; state is then unchanged.
//
// Once sent, the backend call is not cancelled by ctx and its outcome is
// always applied.
func (c *Controller) Submit(ctx context.Context, r Reading) (out Outcome, err error) {
	if err := ctx.Err(); err != nil {
		return c.State(), err
	}
	select {
	case c.slot <- struct{}{}:
	case <-ctx.Done():
		return c.State(), ctx.Err()
	}
	defer func() { <-c.slot }()

	attempt := uuid.New()
	log := c.logger.With(zap.String("attempt", attempt.String()))
	c.set(loading(attempt))

	var sent *dravya.IdentifyRequest
	final := failed(attempt, nil, FailureClient, FallbackIdentify)
	defer func() {
		if p := recover(); p != nil {
			log.Error("identify panicked", zap.Any("panic", p))
			final = failed(attempt, sent, FailureClient, FallbackIdentify)
		}
		c.set(final)
		out = final
	}()

	req, perr := r.Parse()
	if perr != nil {
		log.Debug("rejected reading", zap.Error(perr))
		final = failed(attempt, nil, FailureValidation, MsgInvalidReading)
		return final, nil
	}
	sent = &req

	res, ierr := c.client.Identify(context.WithoutCancel(ctx), req)
	switch {
	case ierr != nil:
		kind := Classify(ierr)
		log.Warn("identify failed", zap.Stringer("kind", kind), zap.Error(ierr))
		final = failed(attempt, sent, kind, FailureMessage(ierr, FallbackIdentify))
	case res == nil:
		final = failed(attempt, sent, FailureClient, FallbackIdentify)
	default:
		log.Info("identified", zap.String("dravya", res.Dravya), zap.Bool("image", res.HasImage()))
		final = succeeded(attempt, req, res)
	}
	return final, nil
}

// Subscribe returns a channel receiving every state transition from now on,
// and a function that ends the subscription and closes the channel.
func (c *Controller) Subscribe() (<-chan Outcome, func()) {
	ch := make(chan Outcome, subscriberBuffer)

	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = ch
	c.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.subs, id)
			c.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

func (c *Controller) set(o Outcome) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.state = o
	for _, ch := range c.subs {
		select {
		case ch <- o:
		default:
			// Full: drop the oldest frame to make room.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- o:
			default:
			}
		}
	}
}
