package ws

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/bnema/condenser/internal/domain"
	"github.com/bnema/condenser/internal/ports"
	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"
)

var _ ports.AppClient = (*Client)(nil)

const defaultWriteTimeout = 10 * time.Second

type Option func(*Client)

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func WithWriteTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.writeTimeout = d
		}
	}
}

// WithOrigin sets the Origin header the conductor checks against its allowed origins.
func WithOrigin(origin string) Option {
	return func(c *Client) {
		c.origin = origin
	}
}

// Client is an AppClient bound to one installed app over one websocket connection.
// Requests are multiplexed by id; signals are fanned out to the registered handlers.
type Client struct {
	conn         *websocket.Conn
	appID        string
	agent        domain.AgentPubKey
	origin       string
	writeTimeout time.Duration
	logger       *slog.Logger

	writeMu sync.Mutex

	mu          sync.Mutex
	nextID      uint64
	pending     map[uint64]chan frame
	handlers    map[uint64]ports.SignalHandler
	nextHandler uint64

	done     chan struct{}
	doneErr  error
	doneOnce sync.Once
}

// Dial connects to the app interface at url and loads the app's agent key.
func Dial(ctx context.Context, url string, appID string, opts ...Option) (*Client, error) {
	c := &Client{
		appID:        appID,
		writeTimeout: defaultWriteTimeout,
		logger:       slog.Default(),
		pending:      map[uint64]chan frame{},
		handlers:     map[uint64]ports.SignalHandler{},
		done:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}

	header := http.Header{}
	if c.origin != "" {
		header.Set("Origin", c.origin)
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, header)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w: %w", url, domain.ErrConductorUnreachable, err)
	}
	c.conn = conn
	go c.readLoop()

	info, err := c.AppInfo(ctx)
	if err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("load app info for %q: %w", appID, err)
	}
	c.agent = info.AgentPubKey

	c.logger.Debug("connected to conductor", "url", url, "app_id", appID, "agent", c.agent.B64())
	return c, nil
}

func (c *Client) MyPubKey() domain.AgentPubKey {
	return c.agent
}

func (c *Client) Close() error {
	c.shutdown(errors.New("client closed"))
	return c.conn.Close()
}

func (c *Client) shutdown(err error) {
	c.doneOnce.Do(func() {
		c.mu.Lock()
		c.doneErr = err
		c.mu.Unlock()
		close(c.done)
	})
}

func (c *Client) readLoop() {
	for {
		messageType, raw, err := c.conn.ReadMessage()
		if err != nil {
			c.shutdown(err)
			return
		}
		if messageType != websocket.BinaryMessage {
			continue
		}

		f, err := decodeFrame(raw)
		if err != nil {
			c.logger.Warn("drop undecodable frame", "error", err)
			continue
		}

		switch f.Type {
		case frameResponse:
			c.mu.Lock()
			ch, ok := c.pending[f.ID]
			delete(c.pending, f.ID)
			c.mu.Unlock()
			if ok {
				ch <- f
			}
		case frameSignal:
			c.dispatchSignal(f.Data)
		default:
			c.logger.Debug("ignore frame", "type", f.Type)
		}
	}
}

// dispatchSignal calls handlers outside of c.mu so they may call back into the client.
func (c *Client) dispatchSignal(raw []byte) {
	var sig domain.AppSignal
	if err := msgpack.Unmarshal(raw, &sig); err != nil {
		c.logger.Warn("drop undecodable signal", "error", err)
		return
	}

	c.mu.Lock()
	handlers := make([]ports.SignalHandler, 0, len(c.handlers))
	for _, h := range c.handlers {
		handlers = append(handlers, h)
	}
	c.mu.Unlock()

	for _, h := range handlers {
		h(sig)
	}
}

func (c *Client) OnSignal(handler ports.SignalHandler) func() {
	c.mu.Lock()
	id := c.nextHandler
	c.nextHandler++
	c.handlers[id] = handler
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.handlers, id)
		c.mu.Unlock()
	}
}

func (c *Client) unreachable(op string) error {
	c.mu.Lock()
	cause := c.doneErr
	c.mu.Unlock()
	if cause == nil {
		return fmt.Errorf("%s: %w", op, domain.ErrConductorUnreachable)
	}
	return fmt.Errorf("%s: %w: %w", op, domain.ErrConductorUnreachable, cause)
}

// request sends one app request and decodes the response data of the expected type into out.
func (c *Client) request(ctx context.Context, reqType string, data any, wantType string, out any) error {
	payload, err := encodeMessage(reqType, data)
	if err != nil {
		return err
	}

	ch := make(chan frame, 1)
	c.mu.Lock()
	select {
	case <-c.done:
		c.mu.Unlock()
		return c.unreachable(reqType)
	default:
	}
	c.nextID++
	id := c.nextID
	c.pending[id] = ch
	c.mu.Unlock()

	forget := func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}

	raw, err := encodeFrame(frame{ID: id, Type: frameRequest, Data: payload})
	if err != nil {
		forget()
		return err
	}
	if err := c.write(raw); err != nil {
		forget()
		return fmt.Errorf("%s: %w: %w", reqType, domain.ErrConductorUnreachable, err)
	}

	var resp frame
	select {
	case <-ctx.Done():
		forget()
		return fmt.Errorf("%s: %w", reqType, ctx.Err())
	case <-c.done:
		forget()
		return c.unreachable(reqType)
	case resp = <-ch:
	}

	msg, err := decodeMessage(resp.Data)
	if err != nil {
		return err
	}
	switch msg.Type {
	case respError:
		remote := &domain.ConductorError{}
		if err := msgpack.Unmarshal(msg.Data, remote); err != nil {
			return fmt.Errorf("decode %s error: %w", reqType, err)
		}
		return remote
	case wantType:
	default:
		return fmt.Errorf("%s: unexpected response type %q", reqType, msg.Type)
	}

	if out == nil || len(msg.Data) == 0 {
		return nil
	}
	if err := msgpack.Unmarshal(msg.Data, out); err != nil {
		return fmt.Errorf("decode %s response: %w", reqType, err)
	}
	return nil
}

func (c *Client) write(raw []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.BinaryMessage, raw)
}

func (c *Client) AppInfo(ctx context.Context) (domain.AppInfo, error) {
	var info domain.AppInfo
	if err := c.request(ctx, reqAppInfo, map[string]string{"installed_app_id": c.appID}, respAppInfo, &info); err != nil {
		return domain.AppInfo{}, err
	}
	return info, nil
}

func (c *Client) CallZome(ctx context.Context, call domain.ZomeCall, out any) error {
	payload, err := msgpack.Marshal(call.Payload)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", call.FnName, err)
	}

	var result []byte
	err = c.request(ctx, reqCallZome, callZomeRequest{
		CellID:     call.CellID,
		ZomeName:   call.ZomeName,
		FnName:     call.FnName,
		Payload:    payload,
		Provenance: c.agent,
	}, respZomeCalled, &result)
	if err != nil {
		return err
	}

	if out == nil {
		return nil
	}
	if err := msgpack.Unmarshal(result, out); err != nil {
		return fmt.Errorf("decode %s result: %w", call.FnName, err)
	}
	return nil
}

func (c *Client) CreateCloneCell(ctx context.Context, req domain.CreateCloneCellRequest) (domain.ClonedCell, error) {
	props, err := msgpack.Marshal(req.Modifiers.Properties)
	if err != nil {
		return domain.ClonedCell{}, fmt.Errorf("encode clone properties: %w", err)
	}
	wire := createCloneCellRequest{
		RoleName: req.RoleName,
		Modifiers: domain.DnaModifiers{
			NetworkSeed: req.Modifiers.NetworkSeed,
			Properties:  props,
			OriginTime:  req.Modifiers.OriginTime,
		},
		Name: req.Name,
	}

	var cell domain.ClonedCell
	if err := c.request(ctx, reqCreateCloneCell, wire, respCloneCellCreated, &cell); err != nil {
		return domain.ClonedCell{}, err
	}
	return cell, nil
}

func (c *Client) EnableCloneCell(ctx context.Context, id domain.CellID) (domain.ClonedCell, error) {
	var cell domain.ClonedCell
	if err := c.request(ctx, reqEnableCloneCell, cloneCellRequest{CloneCellID: id}, respCloneCellEnabled, &cell); err != nil {
		return domain.ClonedCell{}, err
	}
	return cell, nil
}

func (c *Client) DisableCloneCell(ctx context.Context, id domain.CellID) error {
	return c.request(ctx, reqDisableCloneCell, cloneCellRequest{CloneCellID: id}, respCloneCellDisabled, nil)
}
