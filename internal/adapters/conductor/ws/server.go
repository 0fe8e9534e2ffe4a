package ws

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/bnema/condenser/internal/domain"
	"github.com/bnema/condenser/internal/ports"
	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"
)

// Server exposes an AppClient as an app interface, so a local conductor can be shared
// between processes.
type Server struct {
	client       ports.AppClient
	upgrader     websocket.Upgrader
	writeTimeout time.Duration
	logger       *slog.Logger

	mu     sync.Mutex
	conns  map[*websocket.Conn]struct{}
	closed bool
}

func NewServer(client ports.AppClient, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		client:       client,
		upgrader:     websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
		writeTimeout: defaultWriteTimeout,
		logger:       logger,
		conns:        map[*websocket.Conn]struct{}{},
	}
}

// Close drops every open connection and refuses new ones.
func (s *Server) Close() error {
	s.mu.Lock()
	s.closed = true
	conns := make([]*websocket.Conn, 0, len(s.conns))
	for conn := range s.conns {
		conns = append(conns, conn)
	}
	s.mu.Unlock()

	var errs []error
	for _, conn := range conns {
		if err := conn.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *Server) track(conn *websocket.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.conns[conn] = struct{}{}
	return true
}

func (s *Server) untrack(conn *websocket.Conn) {
	s.mu.Lock()
	delete(s.conns, conn)
	s.mu.Unlock()
}

type serverConn struct {
	server  *Server
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	if !s.track(conn) {
		_ = conn.Close()
		return
	}
	sc := &serverConn{server: s, conn: conn}
	defer func() {
		s.untrack(conn)
		_ = conn.Close()
	}()

	unsubscribe := s.client.OnSignal(sc.pushSignal)
	defer unsubscribe()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	var inflight sync.WaitGroup
	defer inflight.Wait()

	for {
		messageType, raw, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Debug("app interface connection closed", "error", err)
			}
			return
		}
		if messageType != websocket.BinaryMessage {
			continue
		}
		f, err := decodeFrame(raw)
		if err != nil || f.Type != frameRequest {
			s.logger.Warn("drop unexpected frame", "type", f.Type, "error", err)
			continue
		}

		inflight.Add(1)
		go func() {
			defer inflight.Done()
			sc.respond(ctx, f)
		}()
	}
}

func (sc *serverConn) send(f frame) {
	raw, err := encodeFrame(f)
	if err != nil {
		sc.server.logger.Error("encode frame", "error", err)
		return
	}

	sc.writeMu.Lock()
	defer sc.writeMu.Unlock()
	if err := sc.conn.SetWriteDeadline(time.Now().Add(sc.server.writeTimeout)); err != nil {
		return
	}
	if err := sc.conn.WriteMessage(websocket.BinaryMessage, raw); err != nil {
		sc.server.logger.Debug("write frame failed", "type", f.Type, "error", err)
	}
}

func (sc *serverConn) pushSignal(sig domain.AppSignal) {
	raw, err := msgpack.Marshal(sig)
	if err != nil {
		sc.server.logger.Error("encode signal", "error", err)
		return
	}
	sc.send(frame{Type: frameSignal, Data: raw})
}

func (sc *serverConn) respond(ctx context.Context, req frame) {
	respType, data, err := sc.handle(ctx, req.Data)
	if err != nil {
		respType, data = respError, toConductorError(err)
	}

	payload, err := encodeMessage(respType, data)
	if err != nil {
		payload, _ = encodeMessage(respError, toConductorError(err))
	}
	sc.send(frame{ID: req.ID, Type: frameResponse, Data: payload})
}

func (sc *serverConn) handle(ctx context.Context, raw []byte) (string, any, error) {
	msg, err := decodeMessage(raw)
	if err != nil {
		return "", nil, err
	}
	client := sc.server.client

	switch msg.Type {
	case reqAppInfo:
		info, err := client.AppInfo(ctx)
		return respAppInfo, info, err

	case reqCallZome:
		var req callZomeRequest
		if err := msgpack.Unmarshal(msg.Data, &req); err != nil {
			return "", nil, err
		}
		var result msgpack.RawMessage
		err := client.CallZome(ctx, domain.ZomeCall{
			CellID:   req.CellID,
			ZomeName: req.ZomeName,
			FnName:   req.FnName,
			Payload:  msgpack.RawMessage(req.Payload),
		}, &result)
		return respZomeCalled, []byte(result), err

	case reqCreateCloneCell:
		var req createCloneCellRequest
		if err := msgpack.Unmarshal(msg.Data, &req); err != nil {
			return "", nil, err
		}
		cell, err := client.CreateCloneCell(ctx, domain.CreateCloneCellRequest{
			RoleName: req.RoleName,
			Modifiers: domain.CloneModifiers{
				NetworkSeed: req.Modifiers.NetworkSeed,
				Properties:  msgpack.RawMessage(req.Modifiers.Properties),
				OriginTime:  req.Modifiers.OriginTime,
			},
			Name: req.Name,
		})
		return respCloneCellCreated, cell, err

	case reqEnableCloneCell:
		var req cloneCellRequest
		if err := msgpack.Unmarshal(msg.Data, &req); err != nil {
			return "", nil, err
		}
		cell, err := client.EnableCloneCell(ctx, req.CloneCellID)
		return respCloneCellEnabled, cell, err

	case reqDisableCloneCell:
		var req cloneCellRequest
		if err := msgpack.Unmarshal(msg.Data, &req); err != nil {
			return "", nil, err
		}
		return respCloneCellDisabled, nil, client.DisableCloneCell(ctx, req.CloneCellID)
	}

	return "", nil, &domain.ConductorError{Type: domain.ConductorErrorInternal, Message: "unknown request type " + msg.Type}
}

func toConductorError(err error) *domain.ConductorError {
	var ce *domain.ConductorError
	if errors.As(err, &ce) {
		return ce
	}
	return &domain.ConductorError{Type: domain.ConductorErrorInternal, Message: err.Error()}
}
