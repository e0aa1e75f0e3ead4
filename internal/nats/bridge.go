package nats

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/smazurov/scannode/internal/events"
	"github.com/smazurov/scannode/internal/host"
	"github.com/smazurov/scannode/internal/scanner"
	"github.com/smazurov/scannode/internal/session"
)

const (
	commandTimeout = 5 * time.Second
	maxWait        = 60 * time.Second
	flushTimeout   = time.Second
)

// ScannerHost is the part of the host the control subjects drive.
type ScannerHost interface {
	Open(ctx context.Context) (host.Status, error)
	Scan(ctx context.Context, onMatch session.MatchFunc) error
	Stop(ctx context.Context) error
	Close(ctx context.Context) error
	Status(ctx context.Context) (host.Status, error)
}

// BridgeOptions configures a Bridge.
type BridgeOptions struct {
	URL    string
	Node   string      // subject token; dots and wildcards are replaced
	Bus    *events.Bus // nil disables event forwarding
	Host   ScannerHost // nil disables control subjects
	Logger *slog.Logger
}

// Bridge forwards bus events to NATS and serves control requests.
type Bridge struct {
	opts   BridgeOptions
	node   string
	logger *slog.Logger

	mu     sync.Mutex
	conn   *nats.Conn
	subs   []*nats.Subscription
	unsubs []func()
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewBridge creates a bridge; nothing connects until Start.
func NewBridge(opts BridgeOptions) *Bridge {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Bridge{
		opts:   opts,
		node:   NodeToken(opts.Node),
		logger: logger.With("component", "nats-bridge"),
	}
}

// NodeToken makes name usable as a single subject token.
func NodeToken(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "default"
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ', '\t':
			return '-'
		}
		return r
	}, name)
}

// Node returns the subject token the bridge publishes under.
func (b *Bridge) Node() string { return b.node }

// Start connects and begins forwarding and serving.
func (b *Bridge) Start() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	conn, err := nats.Connect(b.opts.URL,
		nats.Name("scannode-"+b.node),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				b.logger.Warn("NATS disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			b.logger.Info("NATS reconnected")
		}),
	)
	if err != nil {
		return err
	}
	b.conn = conn

	if b.opts.Host != nil {
		handlers := map[string]func(context.Context, ControlRequest) ControlReply{
			OpOpen:   b.handleOpen,
			OpScan:   b.handleScan,
			OpStop:   b.handleStop,
			OpClose:  b.handleClose,
			OpStatus: b.handleStatus,
		}
		for op, handle := range handlers {
			sub, err := conn.Subscribe(SubjectControl(b.node, op), b.serve(op, handle))
			if err != nil {
				b.cleanup()
				return err
			}
			b.subs = append(b.subs, sub)
		}
	}

	if b.opts.Bus != nil {
		ch := make(chan any, 64)
		b.unsubs = []func(){
			events.SubscribeToChannel[events.CodeDetectedEvent](b.opts.Bus, ch),
			events.SubscribeToChannel[events.SessionStateChangedEvent](b.opts.Bus, ch),
		}
		ctx, cancel := context.WithCancel(context.Background())
		b.cancel = cancel
		b.wg.Add(1)
		go b.forward(ctx, ch)
	}

	b.logger.Info("NATS bridge connected", "url", conn.ConnectedUrl(), "node", b.node)
	return nil
}

// Stop flushes pending messages and disconnects.
func (b *Bridge) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cleanup()
}

func (b *Bridge) cleanup() {
	for _, unsub := range b.unsubs {
		unsub()
	}
	b.unsubs = nil
	if b.cancel != nil {
		b.cancel()
		b.cancel = nil
	}
	b.wg.Wait()

	for _, sub := range b.subs {
		_ = sub.Unsubscribe()
	}
	b.subs = nil
	if b.conn != nil {
		if err := b.conn.FlushTimeout(flushTimeout); err != nil {
			b.logger.Debug("NATS flush failed", "error", err)
		}
		b.conn.Close()
		b.conn = nil
	}
}

func (b *Bridge) forward(ctx context.Context, ch <-chan any) {
	defer b.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-ch:
			var subject string
			switch ev.(type) {
			case events.CodeDetectedEvent:
				subject = SubjectDetections(b.node)
			case events.SessionStateChangedEvent:
				subject = SubjectState(b.node)
			default:
				continue
			}
			data, err := json.Marshal(ev)
			if err != nil {
				b.logger.Warn("Failed to encode event", "subject", subject, "error", err)
				continue
			}
			if err := b.conn.Publish(subject, data); err != nil {
				b.logger.Debug("Failed to publish event", "subject", subject, "error", err)
			}
		}
	}
}

func (b *Bridge) serve(op string, handle func(context.Context, ControlRequest) ControlReply) nats.MsgHandler {
	return func(msg *nats.Msg) {
		var req ControlRequest
		var reply ControlReply
		if len(msg.Data) > 0 {
			if err := json.Unmarshal(msg.Data, &req); err != nil {
				reply = ControlReply{Code: CodeBadRequest, Error: err.Error()}
			}
		}
		if reply.Code == "" {
			ctx, cancel := context.WithTimeout(context.Background(), commandTimeout+waitFor(req))
			reply = handle(ctx, req)
			cancel()
		}
		b.logger.Debug("Control request", "op", op, "ok", reply.OK, "code", reply.Code)

		data, err := json.Marshal(reply)
		if err != nil {
			b.logger.Warn("Failed to encode reply", "op", op, "error", err)
			return
		}
		if err := msg.Respond(data); err != nil && !errors.Is(err, nats.ErrMsgNoReply) {
			b.logger.Debug("Failed to send reply", "op", op, "error", err)
		}
	}
}

func waitFor(req ControlRequest) time.Duration {
	return min(time.Duration(max(req.WaitSeconds, 0))*time.Second, maxWait)
}

func (b *Bridge) statusReply(ctx context.Context) ControlReply {
	st, err := b.opts.Host.Status(ctx)
	if err != nil {
		return errorReply(err)
	}
	return ControlReply{OK: true, Status: toStatusMessage(st)}
}

func (b *Bridge) handleOpen(ctx context.Context, _ ControlRequest) ControlReply {
	st, err := b.opts.Host.Open(ctx)
	if err != nil {
		return errorReply(err)
	}
	return ControlReply{OK: true, Status: toStatusMessage(st)}
}

func (b *Bridge) handleScan(ctx context.Context, req ControlRequest) ControlReply {
	found := make(chan scanner.Result, 1)
	if err := b.opts.Host.Scan(ctx, func(r scanner.Result) {
		select {
		case found <- r:
		default:
		}
	}); err != nil {
		return errorReply(err)
	}

	wait := waitFor(req)
	if wait <= 0 {
		return b.statusReply(ctx)
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case r := <-found:
		reply := b.statusReply(ctx)
		reply.Result = &r
		return reply
	case <-timer.C:
	case <-ctx.Done():
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := b.opts.Host.Stop(stopCtx); err != nil {
		b.logger.Warn("Failed to stop expired scan", "error", err)
	}
	return ControlReply{Code: CodeTimeout, Error: "no code detected before the wait expired"}
}

func (b *Bridge) handleStop(ctx context.Context, _ ControlRequest) ControlReply {
	if err := b.opts.Host.Stop(ctx); err != nil {
		return errorReply(err)
	}
	return b.statusReply(ctx)
}

func (b *Bridge) handleClose(ctx context.Context, _ ControlRequest) ControlReply {
	if err := b.opts.Host.Close(ctx); err != nil {
		return errorReply(err)
	}
	return ControlReply{OK: true}
}

func (b *Bridge) handleStatus(ctx context.Context, _ ControlRequest) ControlReply {
	return b.statusReply(ctx)
}

func errorReply(err error) ControlReply {
	reply := ControlReply{Code: CodeInternal, Error: err.Error()}
	var serr *session.Error
	switch {
	case errors.As(err, &serr):
		reply.Code = serr.Code
	case errors.Is(err, host.ErrNoSession):
		reply.Code = CodeNoSession
	}
	return reply
}
