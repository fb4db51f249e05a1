package worker

import (
	"context"
	"errors"
	"io"
	"net"

	"go.uber.org/zap"

	"chainflow/pkg/api"
	"chainflow/pkg/protocol"
	"chainflow/pkg/protocol/stream"
	"chainflow/pkg/transport"
)

// Serve accepts sessions from l one at a time and answers every request on
// a session before accepting the next. It returns nil when ctx ends.
func (w *Worker) Serve(ctx context.Context, l transport.Listener) error {
	zap.L().Info("worker serving", zap.String("worker", w.name), zap.String("addr", l.Addr().String()))
	for {
		sess, err := l.Accept(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		w.serveSession(ctx, sess)
	}
}

func (w *Worker) serveSession(ctx context.Context, sess transport.Session) {
	log := zap.L().With(zap.String("remote", sess.RemoteAddr().String()))
	log.Info("session opened")
	stop := context.AfterFunc(ctx, func() { _ = sess.Close() })
	defer stop()
	defer sess.Close()

	st, err := sess.AcceptStream(ctx)
	if err != nil {
		log.Warn("accept stream failed", zap.Error(err))
		return
	}
	conn := stream.New(st, w.fragSize)
	for {
		var req protocol.Envelope
		if err := conn.Recv(&req); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) || ctx.Err() != nil {
				log.Info("session closed")
			} else {
				log.Warn("receive failed", zap.Error(err))
			}
			return
		}
		rep, err := w.Handle(ctx, req)
		if err != nil {
			log.Error("build reply failed", zap.Error(err))
			return
		}
		if err := conn.Send(&rep); err != nil {
			log.Warn("send reply failed", zap.Error(err))
			return
		}
	}
}

// Handle answers one request envelope.
func (w *Worker) Handle(ctx context.Context, req protocol.Envelope) (protocol.Envelope, error) {
	switch req.Header.Type {
	case protocol.MsgTask:
		return w.handleTask(ctx, req)
	case protocol.MsgControl:
		return w.handleControl(req)
	case protocol.MsgHeartbeat:
		rep := req
		rep.Header.Flags = 0
		return rep, nil
	default:
		msg := "unexpected message type " + protocol.TypeName(req.Header.Type)
		return protocol.NewReplyEnvelope(req.Header, protocol.FormatCBOR, api.Failure(msg), w.codecs)
	}
}

func (w *Worker) handleTask(ctx context.Context, req protocol.Envelope) (protocol.Envelope, error) {
	key := protocol.CorrelationString(req.Header.Correlation)
	log := zap.L().With(
		zap.String("correlation", key),
		zap.Uint64("workflow_id", req.Header.WorkflowID),
		zap.Uint32("step", req.Header.Step),
		zap.Uint32("attempt", req.Header.Attempt),
	)
	if cached, ok := w.cachedReply(key); ok {
		log.Info("replaying cached reply")
		return cached, nil
	}

	call, format, err := protocol.DecodeCall(w.codecs, req.Payload)
	var out api.Outcome
	if err != nil {
		log.Warn("decode request failed", zap.Error(err))
		out = api.Failure("decode request: " + err.Error())
	} else {
		out = w.Execute(ctx, call.Task, call.Arg)
	}
	if _, cerr := protocol.CodecFor(w.codecs, format); cerr != nil {
		format = protocol.FormatCBOR
	}
	rep, err := protocol.NewReplyEnvelope(req.Header, format, out, w.codecs)
	if err != nil {
		// the task result itself cannot be encoded; report that instead
		log.Warn("encode reply failed", zap.Error(err))
		rep, err = protocol.NewReplyEnvelope(req.Header, format, api.Failure("encode reply: "+err.Error()), w.codecs)
		if err != nil {
			return protocol.Envelope{}, err
		}
	}
	w.rememberReply(key, &rep)
	return rep, nil
}

func (w *Worker) handleControl(req protocol.Envelope) (protocol.Envelope, error) {
	creq, format, err := protocol.DecodeControlRequest(w.codecs, req.Payload)
	var rep protocol.ControlReply
	rep.Worker = w.name
	switch {
	case err != nil:
		rep.Error = "decode request: " + err.Error()
		format = protocol.FormatCBOR
	case creq.Op == protocol.OpListTasks:
		rep.Tasks = w.reg.Names()
	case creq.Op == protocol.OpStats:
		rep.Stats = w.Stats()
	default:
		rep.Error = "unknown control op " + creq.Op
	}
	b, err := protocol.EncodeControlReply(w.codecs, format, rep)
	if err != nil {
		return protocol.Envelope{}, err
	}
	h := req.Header
	h.Flags = 0
	return protocol.Envelope{Header: h, Payload: b}, nil
}

func (w *Worker) cachedReply(key string) (protocol.Envelope, bool) {
	if w.replies == nil {
		return protocol.Envelope{}, false
	}
	b, ok := w.replies.Get(key)
	if !ok {
		return protocol.Envelope{}, false
	}
	var e protocol.Envelope
	if err := e.DecodeFrame(b); err != nil {
		return protocol.Envelope{}, false
	}
	return e, true
}

func (w *Worker) rememberReply(key string, rep *protocol.Envelope) {
	if w.replies == nil {
		return
	}
	frame, err := rep.EncodeFrame()
	if err != nil {
		return
	}
	w.replies.Set(key, frame, w.ttl)
}
