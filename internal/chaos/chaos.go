// Package chaos injects faults into exchange connections so the reconnect
// and decode paths can be soaked against live venues.
package chaos

import (
	"context"
	"math/rand/v2"
	"time"

	"aggregator/pkg/exception"
	"aggregator/pkg/websocket"

	"github.com/yanun0323/errors"
)

// Config controls fault injection. The zero value injects nothing.
type Config struct {
	Seed uint64
	// DropRate is the chance a data frame is discarded.
	DropRate float64
	// DuplicateRate is the chance a data frame is delivered twice.
	DuplicateRate float64
	// DisconnectRate is the chance a read fails as if the connection was lost.
	DisconnectRate float64
	// MaxDelay bounds a random pause before each data frame.
	MaxDelay time.Duration
}

// Enabled reports whether any fault is configured.
func (c Config) Enabled() bool {
	return c.DropRate > 0 || c.DuplicateRate > 0 || c.DisconnectRate > 0 || c.MaxDelay > 0
}

// Validate ensures the config is within supported ranges.
func (c Config) Validate() error {
	for name, rate := range map[string]float64{
		"dropRate":       c.DropRate,
		"duplicateRate":  c.DuplicateRate,
		"disconnectRate": c.DisconnectRate,
	} {
		if rate < 0 || rate > 1 {
			return errors.Wrapf(exception.ErrInvalidArgument, "chaos %s must be between 0 and 1", name)
		}
	}
	if c.MaxDelay < 0 {
		return errors.Wrap(exception.ErrInvalidArgument, "chaos maxDelay must be >= 0")
	}
	return nil
}

// Wrap returns a dialer whose connections misbehave per cfg. A disabled
// config returns inner unchanged.
func Wrap(inner websocket.Dialer, cfg Config) websocket.Dialer {
	if !cfg.Enabled() {
		return inner
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	rng := rand.New(rand.NewPCG(seed, seed>>1|1))
	return websocket.DialerFunc(func(ctx context.Context) (websocket.Conn, error) {
		conn, err := inner.Dial(ctx)
		if err != nil {
			return nil, err
		}
		// each connection gets its own stream so reads need no locking
		return &faultyConn{Conn: conn, cfg: cfg, rng: rand.New(rand.NewPCG(rng.Uint64(), rng.Uint64()))}, nil
	})
}

type faultyConn struct {
	websocket.Conn
	cfg Config
	rng *rand.Rand

	repeat     bool
	repeatType websocket.MessageType
	repeatData []byte
}

func (c *faultyConn) Read(ctx context.Context) (websocket.MessageType, []byte, error) {
	if c.repeat {
		c.repeat = false
		return c.repeatType, c.repeatData, nil
	}
	for {
		if c.hit(c.cfg.DisconnectRate) {
			return 0, nil, errors.Wrap(exception.ErrWebSocketConnectionClose, "chaos disconnect")
		}
		typ, payload, err := c.Conn.Read(ctx)
		if err != nil {
			return typ, payload, err
		}
		if !typ.IsData() {
			return typ, payload, nil
		}
		if c.hit(c.cfg.DropRate) {
			continue
		}
		if err := c.delay(ctx); err != nil {
			return 0, nil, err
		}
		if c.hit(c.cfg.DuplicateRate) {
			c.repeat, c.repeatType, c.repeatData = true, typ, payload
		}
		return typ, payload, nil
	}
}

func (c *faultyConn) hit(rate float64) bool {
	return rate > 0 && c.rng.Float64() < rate
}

func (c *faultyConn) delay(ctx context.Context) error {
	if c.cfg.MaxDelay <= 0 {
		return nil
	}
	d := time.Duration(c.rng.Int64N(int64(c.cfg.MaxDelay) + 1))
	if d == 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
