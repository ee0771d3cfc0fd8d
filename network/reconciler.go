// Package network implements the NetworkReconciliation ordered phase: a
// bounded inbox of authoritative remote state, drained once per frame.
// Transport is a thin websocket envelope with the Start/Stop lifecycle
// this codebase's raw-TCP transport used, rebuilt on gorilla/websocket so
// framing is not hand-rolled. A dropped connection is not re-established.
package network

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"

	"github.com/lixenwraith/frameorc/event"
)

// Role identifies which side of the connection this process plays.
type Role int

const (
	RoleNone Role = iota
	RoleServer
	RoleClient
)

// StateUpdate is the authoritative remote payload applied during
// NetworkReconciliation.
type StateUpdate struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
	Frame uint64 `json:"frame"`
}

// Config configures a Reconciler's transport.
type Config struct {
	Role    Role
	Address string // server: listen address; client: dial URL
}

// Reconciler owns the websocket transport and a bounded inbox of pending
// StateUpdates, drained once per frame by the NetworkReconciliation phase.
type Reconciler struct {
	cfg Config

	inbox *event.Queue[StateUpdate]

	server   *http.Server
	upgrader websocket.Upgrader

	conn   *websocket.Conn
	connMu sync.Mutex

	running atomic.Bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// New constructs a Reconciler for the given configuration. The inbox has
// the same fixed capacity as every other ring-buffer queue in this
// codebase (constant.EventQueueSize); overflow drops the oldest unread
// update, matching the rest of the system's "never block a producer"
// discipline.
func New(cfg Config) *Reconciler {
	return &Reconciler{
		cfg:    cfg,
		inbox:  event.NewQueue[StateUpdate](),
		stopCh: make(chan struct{}),
	}
}

// Start begins listening (server) or connecting (client). RoleNone is a
// no-op, matching a single-process run with no network collaborator.
func (r *Reconciler) Start() error {
	if !r.running.CompareAndSwap(false, true) {
		return nil
	}
	switch r.cfg.Role {
	case RoleServer:
		return r.startServer()
	case RoleClient:
		return r.startClient()
	default:
		return nil
	}
}

func (r *Reconciler) startServer() error {
	mux := http.NewServeMux()
	mux.HandleFunc("/reconcile", r.handleConn)
	r.server = &http.Server{Addr: r.cfg.Address, Handler: mux}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		_ = r.server.ListenAndServe()
	}()
	return nil
}

func (r *Reconciler) handleConn(w http.ResponseWriter, req *http.Request) {
	conn, err := r.upgrader.Upgrade(w, req, nil)
	if err != nil {
		return
	}
	r.connMu.Lock()
	r.conn = conn
	r.connMu.Unlock()
	r.readLoop(conn)
}

func (r *Reconciler) startClient() error {
	conn, _, err := websocket.DefaultDialer.Dial(r.cfg.Address, nil)
	if err != nil {
		r.running.Store(false)
		return err
	}
	r.connMu.Lock()
	r.conn = conn
	r.connMu.Unlock()

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.readLoop(conn)
	}()
	return nil
}

func (r *Reconciler) readLoop(conn *websocket.Conn) {
	for {
		select {
		case <-r.stopCh:
			return
		default:
		}
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var update StateUpdate
		if err := json.Unmarshal(data, &update); err != nil {
			continue
		}
		r.inbox.Push(update)
	}
}

// Send transmits a StateUpdate to the connected peer, if any.
func (r *Reconciler) Send(update StateUpdate) error {
	r.connMu.Lock()
	conn := r.conn
	r.connMu.Unlock()
	if conn == nil {
		return nil
	}
	data, err := json.Marshal(update)
	if err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, data)
}

// Stop halts the transport. Idempotent.
func (r *Reconciler) Stop() error {
	if !r.running.CompareAndSwap(true, false) {
		return nil
	}
	close(r.stopCh)
	r.connMu.Lock()
	if r.conn != nil {
		_ = r.conn.Close()
	}
	r.connMu.Unlock()
	if r.server != nil {
		_ = r.server.Close()
	}
	r.wg.Wait()
	return nil
}

// Drain returns every StateUpdate received since the last Drain call — the
// bounded per-frame inbox consumption NetworkReconciliation performs.
func (r *Reconciler) Drain() []StateUpdate {
	return r.inbox.Consume()
}

// ApplyTo is a convenience hook a NetworkReconciliation module's ordered
// hook can call: drains the inbox and applies each update to a game-state
// setter, under the caller's own capability discipline.
func (r *Reconciler) ApplyTo(ctx context.Context, apply func(StateUpdate)) {
	for _, u := range r.Drain() {
		if ctx.Err() != nil {
			return
		}
		apply(u)
	}
}
