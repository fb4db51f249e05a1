// Package dispatch is the scheduler's end of the dispatch channel: it sends
// one task call at a time to a worker and waits for the reply.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"chainflow/pkg/api"
	"chainflow/pkg/netstack"
	"chainflow/pkg/protocol"
	"chainflow/pkg/protocol/stream"
	"chainflow/pkg/transport"
	"chainflow/pkg/value"
)

// Client holds one connection to a worker. Calls are serialized: each
// request is answered before the next one is sent.
type Client struct {
	opts Options
	tr   transport.Transport

	mu     sync.Mutex
	sess   transport.Session
	conn   *stream.Conn
	closed bool
	// lost is the failure that dropped the last connection.
	lost error
}

var _ api.Dispatcher = (*Client)(nil)

// Dial connects to the worker at opts.Address.
func Dial(ctx context.Context, opts Options) (*Client, error) {
	opts = opts.withDefaults()
	tr := opts.Transport
	if tr == nil {
		var err error
		if tr, err = netstack.NewByKind(opts.Kind); err != nil {
			return nil, err
		}
	}
	c := &Client{opts: opts, tr: tr}
	sess, err := netstack.Dial(ctx, tr, opts.Address, netstack.Options{
		BackoffInitial: opts.BackoffInitial,
		BackoffMax:     opts.BackoffMax,
		Attempts:       opts.DialAttempts,
	})
	if err != nil {
		return nil, fmt.Errorf("dial worker %s: %w", opts.Address, err)
	}
	if err := c.attach(ctx, sess); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Client) attach(ctx context.Context, sess transport.Session) error {
	st, err := sess.OpenStream(ctx)
	if err != nil {
		_ = sess.Close()
		return &ConnError{Op: "open stream", Err: err}
	}
	c.sess = sess
	c.conn = stream.New(st, c.opts.FragmentSize)
	return nil
}

// drop closes the current session. Caller holds c.mu.
func (c *Client) drop() {
	if c.sess != nil {
		_ = c.sess.Close()
	}
	c.sess, c.conn = nil, nil
}

// Dispatch sends task(arg) and returns the worker's outcome. The workflow
// step stored by api.WithStep, if any, is copied into the request header.
func (c *Client) Dispatch(ctx context.Context, task string, arg value.Value) (api.Outcome, error) {
	h := protocol.NewHeader(protocol.MsgTask, protocol.NewCorrelation())
	if st, ok := api.StepFrom(ctx); ok {
		h.WorkflowID = protocol.WorkflowID(st.Workflow)
		h.Step = uint32(st.Index)
	}
	req, err := protocol.NewCallEnvelope(h, c.opts.Format, api.Call{Task: task, Arg: arg}, c.opts.Codecs)
	if err != nil {
		return api.Outcome{}, fmt.Errorf("encode call %s: %w", task, err)
	}
	zap.L().Debug("dispatching", zap.String("task", task),
		zap.String("correlation", protocol.CorrelationString(h.Correlation)))

	rep, err := c.exchange(ctx, req)
	if err != nil {
		return api.Outcome{}, err
	}
	if rep.Header.Type != protocol.MsgResult {
		return api.Outcome{}, fmt.Errorf("dispatch %s: unexpected reply type %s", task, protocol.TypeName(rep.Header.Type))
	}
	out, _, err := protocol.DecodeOutcome(c.opts.Codecs, rep.Payload)
	if err != nil {
		return api.Outcome{}, fmt.Errorf("dispatch %s: %w", task, err)
	}
	return out, nil
}

// Ping sends a heartbeat and returns the round-trip time.
func (c *Client) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	req := protocol.Envelope{Header: protocol.NewHeader(protocol.MsgHeartbeat, protocol.NewCorrelation())}
	rep, err := c.exchange(ctx, req)
	if err != nil {
		return 0, err
	}
	if rep.Header.Type != protocol.MsgHeartbeat {
		return 0, fmt.Errorf("ping: unexpected reply type %s", protocol.TypeName(rep.Header.Type))
	}
	return time.Since(start), nil
}

// ListTasks asks the worker which task names it can execute.
func (c *Client) ListTasks(ctx context.Context) (protocol.ControlReply, error) {
	return c.control(ctx, protocol.OpListTasks)
}

// Stats asks the worker for its per-task execution counters.
func (c *Client) Stats(ctx context.Context) (protocol.ControlReply, error) {
	return c.control(ctx, protocol.OpStats)
}

func (c *Client) control(ctx context.Context, op string) (protocol.ControlReply, error) {
	b, err := protocol.EncodeControlRequest(c.opts.Codecs, c.opts.Format, protocol.ControlRequest{Op: op})
	if err != nil {
		return protocol.ControlReply{}, err
	}
	req := protocol.Envelope{Header: protocol.NewHeader(protocol.MsgControl, protocol.NewCorrelation()), Payload: b}
	rep, err := c.exchange(ctx, req)
	if err != nil {
		return protocol.ControlReply{}, err
	}
	out, _, err := protocol.DecodeControlReply(c.opts.Codecs, rep.Payload)
	if err != nil {
		return out, fmt.Errorf("%s: %w", op, err)
	}
	if out.Error != "" {
		return out, fmt.Errorf("%s: %s", op, out.Error)
	}
	return out, nil
}

// Close drops the connection. Later calls fail with ErrClosed.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.drop()
	return nil
}

// exchange sends req and waits for the reply carrying the same correlation
// id. With MaxRetries > 0, timeouts and connection failures reconnect and
// resend the same request with an increased attempt number. Without retries
// a lost connection stays lost and later calls fail with ErrClosed.
func (c *Client) exchange(ctx context.Context, req protocol.Envelope) (protocol.Envelope, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var attempt uint32
	op := func() (protocol.Envelope, error) {
		if c.closed {
			return protocol.Envelope{}, backoff.Permanent(ErrClosed)
		}
		attempt++
		req.Header.Attempt = attempt
		req.SetFlag(protocol.FlagRetry, attempt > 1)
		if c.conn == nil {
			if c.opts.MaxRetries == 0 {
				return protocol.Envelope{}, backoff.Permanent(fmt.Errorf("%w: connection lost: %v", ErrClosed, c.lost))
			}
			sess, err := c.tr.Dial(ctx, c.opts.Address)
			if err != nil {
				return protocol.Envelope{}, &ConnError{Op: "redial", Err: err}
			}
			if err := c.attach(ctx, sess); err != nil {
				return protocol.Envelope{}, err
			}
		}
		rep, err := c.once(ctx, &req)
		if err == nil {
			c.lost = nil
			return rep, nil
		}
		// the stream position is unknown after any failure
		c.drop()
		c.lost = err
		if IsRetryable(err) {
			return rep, err
		}
		return rep, backoff.Permanent(err)
	}

	if c.opts.MaxRetries == 0 {
		rep, err := op()
		var perm *backoff.PermanentError
		if errors.As(err, &perm) {
			err = perm.Err
		}
		return rep, err
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.opts.BackoffInitial
	b.MaxInterval = c.opts.BackoffMax
	b.MaxElapsedTime = 0
	bo := backoff.WithContext(backoff.WithMaxRetries(b, c.opts.MaxRetries), ctx)
	notify := func(err error, next time.Duration) {
		zap.L().Warn("dispatch retry", zap.Uint32("attempt", attempt),
			zap.String("correlation", protocol.CorrelationString(req.Header.Correlation)),
			zap.Duration("retry_in", next), zap.Error(err))
	}
	return backoff.RetryNotifyWithData(op, bo, notify)
}

// once performs a single send/receive on the current connection. Caller
// holds c.mu.
func (c *Client) once(ctx context.Context, req *protocol.Envelope) (protocol.Envelope, error) {
	callCtx := ctx
	if c.opts.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, c.opts.Timeout)
		defer cancel()
	}

	type result struct {
		rep protocol.Envelope
		err error
	}
	done := make(chan result, 1)
	conn := c.conn
	go func() {
		if err := conn.Send(req); err != nil {
			done <- result{err: wrapConn("send", err)}
			return
		}
		for {
			var rep protocol.Envelope
			if err := conn.Recv(&rep); err != nil {
				done <- result{err: wrapConn("receive", err)}
				return
			}
			if rep.Header.Correlation != req.Header.Correlation {
				zap.L().Warn("dropping reply for another request",
					zap.String("correlation", protocol.CorrelationString(rep.Header.Correlation)))
				continue
			}
			done <- result{rep: rep}
			return
		}
	}()

	select {
	case r := <-done:
		return r.rep, r.err
	case <-callCtx.Done():
		// closing the session unblocks the exchange goroutine
		c.drop()
		<-done
		if err := ctx.Err(); err != nil {
			return protocol.Envelope{}, err
		}
		return protocol.Envelope{}, ErrTimeout
	}
}

// wrapConn marks transport failures as connection errors. Malformed frames
// are protocol errors and stay unwrapped.
func wrapConn(op string, err error) error {
	if errors.Is(err, protocol.ErrBadMagic) || errors.Is(err, protocol.ErrShortHeader) ||
		errors.Is(err, protocol.ErrPayloadTooLarge) || errors.Is(err, transport.ErrFrameTooLarge) {
		return fmt.Errorf("dispatch: %s: %w", op, err)
	}
	return &ConnError{Op: op, Err: err}
}
