package websocket

import (
	"context"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"aggregator/pkg/exception"

	"github.com/gorilla/websocket"
	"github.com/yanun0323/errors"
)

const (
	DefaultHandshakeTimeout = 10 * time.Second
	DefaultWriteTimeout     = 5 * time.Second
	DefaultReadBufferSize   = 32 << 10
)

// Option configures connections created by NewDialer.
type Option struct {
	URL    string
	Header http.Header

	// HandshakeTimeout bounds the TCP, TLS and upgrade exchange.
	HandshakeTimeout time.Duration
	// ReadTimeout bounds the wait for the next message. Pings from the remote
	// extend it. Zero waits forever.
	ReadTimeout time.Duration
	// WriteTimeout bounds every write including pong replies.
	WriteTimeout time.Duration
	// ReadLimit caps the size of a single message. Zero keeps the library default.
	ReadLimit int64

	// OnPing is called after a ping has been answered.
	OnPing func(appData string)
}

type dialer struct {
	opt Option
	ws  websocket.Dialer
}

// NewDialer returns a Dialer for opt.URL backed by gorilla/websocket.
func NewDialer(opt Option) Dialer {
	if opt.HandshakeTimeout <= 0 {
		opt.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if opt.WriteTimeout <= 0 {
		opt.WriteTimeout = DefaultWriteTimeout
	}
	return &dialer{
		opt: opt,
		ws: websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: opt.HandshakeTimeout,
			ReadBufferSize:   DefaultReadBufferSize,
		},
	}
}

func (d *dialer) Dial(ctx context.Context) (Conn, error) {
	conn, resp, err := d.ws.DialContext(ctx, d.opt.URL, d.opt.Header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		if errors.Is(err, websocket.ErrBadHandshake) {
			status := 0
			if resp != nil {
				status = resp.StatusCode
			}
			return nil, errors.Wrap(exception.ErrWebSocketHandshake, err.Error()).With("url", d.opt.URL).With("status", status)
		}
		return nil, errors.Wrap(err, "dial websocket").With("url", d.opt.URL)
	}
	return newConn(conn, d.opt), nil
}

type wsConn struct {
	conn      *websocket.Conn
	opt       Option
	buf       []byte
	writeMu   sync.Mutex
	closeOnce sync.Once
	closeErr  error
}

func newConn(conn *websocket.Conn, opt Option) *wsConn {
	c := &wsConn{
		conn: conn,
		opt:  opt,
		buf:  make([]byte, 0, DefaultReadBufferSize),
	}
	if opt.ReadLimit > 0 {
		conn.SetReadLimit(opt.ReadLimit)
	}
	conn.SetPingHandler(c.handlePing)
	return c
}

func (c *wsConn) handlePing(appData string) error {
	err := c.conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(c.opt.WriteTimeout))
	if c.opt.ReadTimeout > 0 {
		_ = c.conn.SetReadDeadline(time.Now().Add(c.opt.ReadTimeout))
	}
	if c.opt.OnPing != nil {
		c.opt.OnPing(appData)
	}
	if err == nil || errors.Is(err, websocket.ErrCloseSent) {
		return nil
	}
	if ne, ok := err.(net.Error); ok && ne.Timeout() {
		return nil
	}
	return err
}

func (c *wsConn) Read(ctx context.Context) (MessageType, []byte, error) {
	if err := ctx.Err(); err != nil {
		return 0, nil, err
	}
	if err := c.conn.SetReadDeadline(c.readDeadline(ctx)); err != nil {
		return 0, nil, err
	}
	typ, r, err := c.conn.NextReader()
	if err != nil {
		return 0, nil, c.readError(ctx, err)
	}
	c.buf, err = appendReader(c.buf[:0], r)
	if err != nil {
		return 0, nil, c.readError(ctx, err)
	}
	return MessageType(typ), c.buf, nil
}

func (c *wsConn) readDeadline(ctx context.Context) time.Time {
	var deadline time.Time
	if c.opt.ReadTimeout > 0 {
		deadline = time.Now().Add(c.opt.ReadTimeout)
	}
	if d, ok := ctx.Deadline(); ok && (deadline.IsZero() || d.Before(deadline)) {
		deadline = d
	}
	return deadline
}

func (c *wsConn) readError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		return errors.Wrap(exception.ErrWebSocketConnectionClose, err.Error())
	}
	if ne, ok := err.(net.Error); ok && ne.Timeout() {
		return errors.Wrap(err, "read timeout").With("timeout", c.opt.ReadTimeout.String())
	}
	return errors.Wrap(err, "read message")
}

func (c *wsConn) Write(ctx context.Context, msgType MessageType, payload []byte) error {
	deadline := time.Now().Add(c.opt.WriteTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	switch msgType {
	case MessageText, MessageBinary:
	case MessagePing, MessagePong, MessageClose:
		return c.conn.WriteControl(int(msgType), payload, deadline)
	default:
		return exception.ErrWebSocketProtocol
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.conn.SetWriteDeadline(deadline); err != nil {
		return err
	}
	if err := c.conn.WriteMessage(int(msgType), payload); err != nil {
		return errors.Wrap(err, "write message")
	}
	return nil
}

// Close sends a close frame when possible and releases the connection. It is safe to call more than once.
func (c *wsConn) Close(code CloseCode, reason string) error {
	c.closeOnce.Do(func() {
		msg := websocket.FormatCloseMessage(int(code), reason)
		_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(c.opt.WriteTimeout))
		c.closeErr = c.conn.Close()
	})
	return c.closeErr
}

func appendReader(buf []byte, r io.Reader) ([]byte, error) {
	for {
		if len(buf) == cap(buf) {
			buf = append(buf, 0)[:len(buf)]
		}
		n, err := r.Read(buf[len(buf):cap(buf)])
		buf = buf[:len(buf)+n]
		if err == io.EOF {
			return buf, nil
		}
		if err != nil {
			return buf, err
		}
	}
}
