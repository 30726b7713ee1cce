package voicepool

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/drgolem/sfxmanager/pkg/types"
)

// DefaultMaxIdle is the default bound on idle channels.
const DefaultMaxIdle = 8

var (
	ErrForeignChannel  = errors.New("channel does not belong to this pool")
	ErrAlreadyReleased = errors.New("channel already released")
)

// Channel is a pooled voice tagged with the format it was created for.
type Channel struct {
	types.Voice
	format types.AudioFormat
	id     uint64
	pool   *Pool
	pooled bool // guarded by pool.mu
}

// Format returns the format the native voice was created with.
func (c *Channel) Format() types.AudioFormat { return c.format }

// ID returns the creation sequence number of the channel.
func (c *Channel) ID() uint64 { return c.id }

// Stats is a snapshot of pool occupancy.
type Stats struct {
	Idle     int
	Draining int
	Created  uint64
	Evicted  uint64
}

// Pool hands out reusable voices.
//
// Idle channels are kept in release order and reused oldest first, but only
// for a request with the same format they were created for. Released
// channels that are still playing are parked as draining until
// ReclaimExcess sees them finish. The number of idle channels is brought
// back to maxIdle by ReclaimExcess, not on release.
//
// Pool methods are safe for concurrent use.
type Pool struct {
	master  types.Master
	maxIdle int
	logger  *slog.Logger

	mu       sync.Mutex
	idle     []*Channel
	draining []*Channel
	nextID   uint64
	evicted  uint64
}

// New creates a pool creating voices through master. A maxIdle below one
// selects DefaultMaxIdle.
func New(master types.Master, maxIdle int, logger *slog.Logger) *Pool {
	if maxIdle < 1 {
		maxIdle = DefaultMaxIdle
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pool{
		master:  master,
		maxIdle: maxIdle,
		logger:  logger,
	}
}

// MaxIdle returns the idle bound.
func (p *Pool) MaxIdle() int { return p.maxIdle }

// Acquire returns the longest-idle channel created for format, or a new
// channel when none matches. Creation failures are returned as
// KindResourceCreation and leave the pool unchanged.
func (p *Pool) Acquire(format types.AudioFormat) (*Channel, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i, ch := range p.idle {
		if ch.format == format {
			p.idle = append(p.idle[:i], p.idle[i+1:]...)
			ch.pooled = false
			return ch, nil
		}
	}

	voice, err := p.master.NewVoice(format)
	if err != nil {
		return nil, types.NewError(types.KindResourceCreation, "acquire", "", err)
	}
	p.nextID++
	ch := &Channel{Voice: voice, format: format, id: p.nextID, pool: p}

	p.logger.Debug("Voice created",
		"id", ch.id,
		"sample_rate", format.SampleRate,
		"channels", format.Channels,
		"bits_per_sample", format.BitsPerSample)
	return ch, nil
}

// Release hands ch back. A finished channel becomes idle right away;
// one still playing is parked until it finishes.
func (p *Pool) Release(ch *Channel) error {
	if ch == nil || ch.pool != p {
		return ErrForeignChannel
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if ch.pooled {
		return ErrAlreadyReleased
	}
	ch.pooled = true

	if ch.Done() {
		p.idle = append(p.idle, ch)
	} else {
		p.draining = append(p.draining, ch)
	}
	return nil
}

// ReclaimExcess moves finished draining channels to the idle queue, then
// destroys the oldest idle channels until at most MaxIdle remain.
// It is meant to be called once per engine tick.
//
// A channel that fails to destroy is logged and dropped; the remaining
// evictions still run.
func (p *Pool) ReclaimExcess() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.draining) > 0 {
		still := p.draining[:0]
		for _, ch := range p.draining {
			if ch.Done() {
				p.idle = append(p.idle, ch)
			} else {
				still = append(still, ch)
			}
		}
		clear(p.draining[len(still):])
		p.draining = still
	}

	for len(p.idle) > p.maxIdle {
		ch := p.idle[0]
		p.idle[0] = nil
		p.idle = p.idle[1:]
		p.evicted++

		if err := ch.Destroy(); err != nil {
			p.logger.Warn("Failed to destroy evicted voice", "id", ch.id, "error", err)
			continue
		}
		p.logger.Debug("Voice evicted", "id", ch.id, "idle", len(p.idle))
	}
}

// DestroyAll destroys every idle and draining channel. Channels currently
// checked out are not tracked by the pool and stay with their holder.
// It returns the first destroy error after attempting all of them.
func (p *Pool) DestroyAll() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var firstErr error
	for _, ch := range append(p.idle, p.draining...) {
		if err := ch.Destroy(); err != nil {
			p.logger.Warn("Failed to destroy voice", "id", ch.id, "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	p.idle = nil
	p.draining = nil
	return firstErr
}

// Stats returns the current pool occupancy.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Stats{
		Idle:     len(p.idle),
		Draining: len(p.draining),
		Created:  p.nextID,
		Evicted:  p.evicted,
	}
}
