package controllers

import (
	"encoding/json"
	"io"
	"net"
	"sync"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"github.com/google/uuid"
	"github.com/lintang-b-s/ehorizon/pkg/engine"
	"github.com/lintang-b-s/ehorizon/pkg/util"
	"go.uber.org/zap"
)

// OUTBOX_SIZE. horizon updates buffered per session, newer updates are dropped while the client lags behind.
const OUTBOX_SIZE = 16

// sessionRequest. one client frame, a position, a partial configuration or both.
type sessionRequest struct {
	Position      *positionRequest      `json:"position,omitempty"`
	Configuration *configurationRequest `json:"configuration,omitempty"`
}

/*
User. websocket vehicle session. every session owns a map engine, horizon updates of the engine are queued in
the outbox and written by the session writer goroutine so that the engine loop never blocks on the network.
*/
type User struct {
	io   sync.Mutex
	conn io.ReadWriteCloser

	id         uuid.UUID
	hub        *Hub
	engine     *engine.MapEngine
	listenerID engine.ListenerID

	outbox    chan engine.Update
	done      chan struct{}
	closeOnce sync.Once
}

func (u *User) ID() uuid.UUID {
	return u.id
}

func (u *User) readRequest() (*sessionRequest, error) {
	u.io.Lock()
	defer u.io.Unlock()

	h, r, err := wsutil.NextReader(u.conn, ws.StateServerSide)
	if err != nil {
		return nil, err
	}
	if h.OpCode.IsControl() {
		return nil, wsutil.ControlFrameHandler(u.conn, ws.StateServerSide)(h, r)
	}

	req := &sessionRequest{}
	decoder := json.NewDecoder(r)
	if err := decoder.Decode(req); err != nil {
		return nil, util.WrapErrorf(err, util.ErrBadParamInput, "invalid session frame")
	}
	return req, nil
}

/*
Receive. reads one client frame and feeds it to the session engine. invalid frames are answered with an error
frame and keep the session open, a connection error is returned to the caller.
*/
func (u *User) Receive() error {
	req, err := u.readRequest()
	if err != nil {
		if util.ErrorCode(err) == util.ErrBadParamInput {
			return u.writeError(err)
		}
		return err
	}

	if req == nil {
		// control frame
		return nil
	}

	if err := validateStruct(req); err != nil {
		return u.writeError(err)
	}

	if req.Configuration != nil {
		cfg, err := req.Configuration.ToConfiguration()
		if err != nil {
			return u.writeError(err)
		}
		if err := u.engine.UpdateConfiguration(cfg); err != nil {
			return u.writeError(err)
		}
	}

	if req.Position != nil {
		u.engine.UpdateState(req.Position.Point())
	}
	return nil
}

// OnUpdate. runs on the engine loop.
func (u *User) OnUpdate(update engine.Update) {
	select {
	case <-u.done:
	case u.outbox <- update:
	default:
		u.hub.log.Warn("session outbox full, dropping horizon update", zap.String("session_id", u.id.String()))
	}
}

func (u *User) writeLoop() {
	for {
		select {
		case <-u.done:
			return
		case update := <-u.outbox:
			if err := u.write(envelope{"data": NewUpdateResponse(update)}); err != nil {
				u.hub.log.Info("cannot write horizon update, closing session", zap.String("session_id", u.id.String()),
					zap.Error(err))
				u.hub.Remove(u)
				return
			}
		}
	}
}

func (u *User) writeError(err error) error {
	return u.write(envelope{"error": map[string]string{
		"code":    "Bad Request",
		"message": err.Error(),
	}})
}

func (u *User) write(x interface{}) error {
	w := wsutil.NewWriter(u.conn, ws.StateServerSide, ws.OpText)
	encoder := json.NewEncoder(w)

	u.io.Lock()
	defer u.io.Unlock()

	if err := encoder.Encode(x); err != nil {
		return err
	}

	return w.Flush()
}

func (u *User) close() {
	u.closeOnce.Do(func() {
		close(u.done)
		u.engine.UnregisterListener(u.listenerID)
		u.hub.sessions.CloseSession(u.engine)
		u.conn.Close()
	})
}

type Hub struct {
	mu       sync.RWMutex
	users    map[uuid.UUID]*User
	sessions SessionService
	log      *zap.Logger
}

func NewHub(sessions SessionService, log *zap.Logger) *Hub {
	return &Hub{
		users:    make(map[uuid.UUID]*User),
		sessions: sessions,
		log:      log,
	}
}

// Register. starts a session for conn, the caller closes conn if an error is returned.
func (h *Hub) Register(conn net.Conn) (*User, error) {
	e, err := h.sessions.NewSession()
	if err != nil {
		return nil, err
	}

	user := &User{
		conn:   conn,
		id:     uuid.New(),
		hub:    h,
		engine: e,
		outbox: make(chan engine.Update, OUTBOX_SIZE),
		done:   make(chan struct{}),
	}
	user.listenerID = e.RegisterListener(user)

	h.mu.Lock()
	h.users[user.id] = user
	h.mu.Unlock()

	go user.writeLoop()

	h.log.Info("registered vehicle session", zap.String("session_id", user.id.String()))
	return user, nil
}

func (h *Hub) Remove(user *User) {
	h.mu.Lock()
	if _, ok := h.users[user.id]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.users, user.id)
	h.mu.Unlock()

	user.close()
	h.log.Info("removed vehicle session", zap.String("session_id", user.id.String()))
}

func (h *Hub) RemoveAllUser() {
	h.mu.RLock()
	users := make([]*User, 0, len(h.users))
	for _, user := range h.users {
		users = append(users, user)
	}
	h.mu.RUnlock()

	for _, user := range users {
		h.Remove(user)
	}
}

func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.users)
}
