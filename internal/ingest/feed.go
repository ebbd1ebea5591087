package ingest

import (
	"context"
	"strings"
	"time"

	"aggregator/internal/chaos"
	"aggregator/internal/model/enum"
	"aggregator/internal/obs"
	"aggregator/pkg/exception"
	"aggregator/pkg/websocket"

	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"
)

// DecodePolicy selects what a feed does with a frame that fails to decode.
type DecodePolicy uint8

const (
	// DecodeSkip drops the frame and keeps the connection.
	DecodeSkip DecodePolicy = iota
	// DecodeRestart ends the current connection; the feed then reconnects if retries remain.
	DecodeRestart
)

func (p DecodePolicy) String() string {
	switch p {
	case DecodeSkip:
		return "skip"
	case DecodeRestart:
		return "restart"
	default:
		return "unknown"
	}
}

func ParseDecodePolicy(name string) (DecodePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "skip":
		return DecodeSkip, nil
	case "restart":
		return DecodeRestart, nil
	default:
		return 0, errors.Wrapf(exception.ErrInvalidArgument, "decode policy %q", name)
	}
}

// FeedConfig holds the connection lifecycle knobs shared by every exchange feed.
type FeedConfig struct {
	HandshakeTimeout time.Duration
	// ReadTimeout fails a connection that delivers nothing for this long. Zero waits forever.
	ReadTimeout time.Duration
	// MaxRetries is the number of consecutive reconnect attempts after a
	// connection ends. Zero ends the sequence with the first connection.
	MaxRetries int
	Backoff    websocket.Backoff

	QueueSize     int
	Overflow      websocket.OverflowPolicy
	OnDecodeError DecodePolicy

	// Chaos injects connection faults. Disabled by default.
	Chaos chaos.Config
}

// DefaultFeedConfig returns a single slot blocking queue with no reconnect.
func DefaultFeedConfig() FeedConfig {
	return FeedConfig{
		HandshakeTimeout: websocket.DefaultHandshakeTimeout,
		Backoff:          websocket.DefaultBackoff(),
		QueueSize:        1,
		Overflow:         websocket.OverflowBlock,
		OnDecodeError:    DecodeSkip,
	}
}

// Decoder turns one text frame into an item. ok is false, with a nil error,
// for frames that are valid but carry nothing.
type Decoder[T any] func(payload []byte) (item T, ok bool, err error)

// FeedOptions describes one exchange feed.
type FeedOptions[T any] struct {
	ID     enum.ExchangeID
	Dialer websocket.Dialer
	Decode Decoder[T]
	// OnConnect runs after every successful dial, e.g. to send a subscribe message.
	OnConnect func(ctx context.Context, conn websocket.Conn) error
	// RequestsReconnect inspects frames that decoded to no item. When it
	// reports true and Config.MaxRetries > 0 the session ends and the feed
	// reconnects; otherwise the frame is ignored.
	RequestsReconnect func(payload []byte) bool
	Config            FeedConfig
	Metrics           *obs.Metrics
}

// Connect dials the exchange and starts the receive loop. Dial or OnConnect
// failures are returned wrapped in exception.ErrConnection. The returned
// exchange lives until ctx ends, Close is called, or the connection is lost
// with no retries left.
func Connect[T any](ctx context.Context, opt FeedOptions[T]) (Exchange[T], error) {
	if opt.Dialer == nil || opt.Decode == nil {
		return Exchange[T]{}, errors.Wrap(exception.ErrInvalidArgument, "feed needs a dialer and a decoder").With("exchange", opt.ID.String())
	}
	if err := opt.Config.Chaos.Validate(); err != nil {
		return Exchange[T]{}, err
	}

	f := &feed[T]{
		opt:    opt,
		dialer: chaos.Wrap(opt.Dialer, opt.Config.Chaos),
		done:   make(chan struct{}),
	}
	f.queue = websocket.NewQueue(opt.Config.QueueSize, opt.Config.Overflow, func(T) {
		opt.Metrics.IncQueueDrop(opt.ID)
	})

	conn, err := f.dial(ctx)
	if err != nil {
		return Exchange[T]{}, errors.Wrap(exception.Classify(exception.ErrConnection, err), "connect feed").With("exchange", opt.ID.String())
	}
	logs.Infof("%s feed connected", opt.ID)

	runCtx, cancel := context.WithCancel(ctx)
	f.cancel = cancel
	go f.run(runCtx, conn)
	return NewExchange[T](opt.ID, f), nil
}

type feed[T any] struct {
	opt    FeedOptions[T]
	dialer websocket.Dialer
	queue  *websocket.Queue[T]
	cancel context.CancelFunc
	done   chan struct{}
	err    error
}

func (f *feed[T]) Next(ctx context.Context) (T, error) {
	v, err := f.queue.Pop(ctx)
	if errors.Is(err, exception.ErrQueueClosed) {
		return v, exception.ErrStreamClosed
	}
	return v, err
}

func (f *feed[T]) Close() error {
	f.cancel()
	<-f.done
	return nil
}

// Err reports why the receive loop stopped, or nil while it is running.
func (f *feed[T]) Err() error {
	select {
	case <-f.done:
		return f.err
	default:
		return nil
	}
}

func (f *feed[T]) dial(ctx context.Context) (websocket.Conn, error) {
	conn, err := f.dialer.Dial(ctx)
	if err != nil {
		return nil, err
	}
	if f.opt.OnConnect != nil {
		if err := f.opt.OnConnect(ctx, conn); err != nil {
			_ = conn.Close(websocket.CloseNormal, "on_connect_failed")
			return nil, errors.Wrap(err, "on connect")
		}
	}
	return conn, nil
}

func (f *feed[T]) run(ctx context.Context, conn websocket.Conn) {
	defer close(f.done)
	defer f.queue.Close()
	defer f.cancel()

	cfg := f.opt.Config
	attempt := 0
	for {
		delivered, err := f.session(ctx, conn)
		_ = conn.Close(websocket.CloseNormal, "session_end")
		if ctx.Err() != nil {
			f.err = ctx.Err()
			return
		}
		if delivered {
			attempt = 0
		}
		logs.Errorf("%s feed: connection lost, err: %+v", f.opt.ID, err)

		conn = nil
		for conn == nil {
			attempt++
			if attempt > cfg.MaxRetries {
				f.err = err
				return
			}
			f.opt.Metrics.IncReconnect(f.opt.ID)
			if !cfg.Backoff.Wait(ctx, attempt) {
				f.err = ctx.Err()
				return
			}
			if conn, err = f.dial(ctx); err != nil {
				logs.Errorf("%s feed: reconnect attempt %d failed, err: %+v", f.opt.ID, attempt, err)
				continue
			}
			logs.Infof("%s feed reconnected after %d attempt(s)", f.opt.ID, attempt)
		}
	}
}

// session runs the receive loop on one connection until it fails. It reports
// whether at least one item was queued.
func (f *feed[T]) session(ctx context.Context, conn websocket.Conn) (bool, error) {
	stop := context.AfterFunc(ctx, func() {
		_ = conn.Close(websocket.CloseGoingAway, "")
	})
	defer stop()

	delivered := false
	for {
		typ, payload, err := conn.Read(ctx)
		if err != nil {
			return delivered, err
		}
		if typ != websocket.MessageText {
			continue
		}

		item, ok, err := f.opt.Decode(payload)
		if err != nil {
			f.opt.Metrics.IncFeedDecodeError(f.opt.ID)
			if f.opt.Config.OnDecodeError == DecodeRestart {
				return delivered, errors.Wrap(err, "decode frame")
			}
			logs.Errorf("%s feed: skip malformed message, err: %+v", f.opt.ID, err)
			continue
		}
		if !ok {
			if f.reconnectRequested(payload) {
				return delivered, exception.ErrReconnectRequested
			}
			continue
		}

		f.opt.Metrics.IncFeedMessage(f.opt.ID)
		if _, err := f.queue.Push(ctx, item); err != nil {
			return delivered, err
		}
		delivered = true
	}
}

func (f *feed[T]) reconnectRequested(payload []byte) bool {
	return f.opt.RequestsReconnect != nil && f.opt.Config.MaxRetries > 0 && f.opt.RequestsReconnect(payload)
}
