package tracking

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"

	"dispatch/pkg/apperror"
	"dispatch/pkg/authtoken"
	"dispatch/pkg/logger"
	"dispatch/pkg/metrics"
)

// ConnectionID identifies one live tracking subscriber session.
type ConnectionID string

// FrameType enumerates the closed set of WebSocket frame `type` values.
type FrameType string

const (
	FrameConnectionEstablished FrameType = "connection_established"
	FrameSubscriptionConfirmed FrameType = "subscription_confirmed"
	FrameError                 FrameType = "error"
	FrameLocationUpdate        FrameType = "location_update"
	FrameVisitStatusUpdate     FrameType = "visit_status_update"
	FrameETAUpdate             FrameType = "eta_update"
	FrameDelayAlert            FrameType = "delay_alert"
	FramePing                  FrameType = "ping"
)

// Frame is one server-sent WebSocket JSON message.
type Frame struct {
	Type    FrameType `json:"type"`
	Payload any       `json:"payload,omitempty"`
}

// SubscriptionKind is the subscription target named by client frames.
type SubscriptionKind string

const (
	SubscriptionVehicle SubscriptionKind = "vehicle"
	SubscriptionRoute   SubscriptionKind = "route"
)

// clientFrame is the JSON shape a client sends:
// {action: "subscribe"|"unsubscribe"|"pong", type: "vehicle"|"route", id: N}.
type clientFrame struct {
	Action string           `json:"action"`
	Type   SubscriptionKind `json:"type"`
	ID     int64            `json:"id"`
}

// Session is the transport-level send primitive a connection owns. The
// concrete WebSocket wiring belongs to the out-of-scope HTTP surface;
// this module only depends on being able to push a Frame to a client.
type Session interface {
	Send(frame Frame) error
}

type connectionState struct {
	id          ConnectionID
	session     Session
	principal   *authtoken.Principal
	vehicleSubs map[int64]struct{}
	routeSubs   map[int64]struct{}
	missedPings int
}

// ConnectionManager is a bidirectional session registry that
// authenticates subscribers and fans per-vehicle and per-route updates
// to them.
type ConnectionManager struct {
	mu sync.Mutex

	connections        map[ConnectionID]*connectionState
	vehicleSubscribers map[int64]map[ConnectionID]struct{}
	routeSubscribers   map[int64]map[ConnectionID]struct{}

	verifier     *authtoken.Verifier
	pingInterval time.Duration
	idleTimeout  time.Duration
}

// NewConnectionManager wires a ConnectionManager. verifier may be nil to
// accept every connection unauthenticated (local/dev use only).
func NewConnectionManager(verifier *authtoken.Verifier, pingInterval, idleTimeout time.Duration) *ConnectionManager {
	if pingInterval <= 0 {
		pingInterval = 30 * time.Second
	}
	if idleTimeout <= 0 {
		idleTimeout = 60 * time.Second
	}
	return &ConnectionManager{
		connections:        make(map[ConnectionID]*connectionState),
		vehicleSubscribers: make(map[int64]map[ConnectionID]struct{}),
		routeSubscribers:   make(map[int64]map[ConnectionID]struct{}),
		verifier:           verifier,
		pingInterval:       pingInterval,
		idleTimeout:        idleTimeout,
	}
}

// Connect opens a session, verifying token when present and emitting
// connection_established.
func (m *ConnectionManager) Connect(token string, session Session) (ConnectionID, error) {
	var principal *authtoken.Principal
	if token != "" {
		if m.verifier == nil {
			return "", apperror.New(apperror.CodeInternal, "connection manager has no token verifier configured")
		}
		p, err := m.verifier.Verify(token)
		if err != nil {
			return "", apperror.Wrap(apperror.CodeForbidden, err, "policy violation: invalid access token")
		}
		principal = &p
	}

	id := ConnectionID(uuid.NewString())
	state := &connectionState{
		id:          id,
		session:     session,
		principal:   principal,
		vehicleSubs: make(map[int64]struct{}),
		routeSubs:   make(map[int64]struct{}),
	}

	m.mu.Lock()
	m.connections[id] = state
	m.mu.Unlock()

	metrics.Get().ActiveConnections.Inc()

	if err := session.Send(Frame{Type: FrameConnectionEstablished, Payload: map[string]any{"connection_id": id}}); err != nil {
		m.Disconnect(id)
		return "", err
	}
	return id, nil
}

// HandleFrame dispatches one client-sent frame.
// Unknown actions elicit an error frame rather than a returned error.
func (m *ConnectionManager) HandleFrame(connID ConnectionID, raw []byte) error {
	var frame clientFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		return m.sendError(connID, "malformed frame")
	}

	switch frame.Action {
	case "subscribe":
		return m.subscribe(connID, frame.Type, frame.ID)
	case "unsubscribe":
		return m.unsubscribe(connID, frame.Type, frame.ID)
	case "pong":
		m.recordPong(connID)
		return nil
	default:
		return m.sendError(connID, "unknown action: "+frame.Action)
	}
}

func (m *ConnectionManager) subscribe(connID ConnectionID, kind SubscriptionKind, id int64) error {
	m.mu.Lock()
	state, ok := m.connections[connID]
	if !ok {
		m.mu.Unlock()
		return apperror.NotFound("connection", connID)
	}

	switch kind {
	case SubscriptionVehicle:
		state.vehicleSubs[id] = struct{}{}
		if m.vehicleSubscribers[id] == nil {
			m.vehicleSubscribers[id] = make(map[ConnectionID]struct{})
		}
		m.vehicleSubscribers[id][connID] = struct{}{}
	case SubscriptionRoute:
		state.routeSubs[id] = struct{}{}
		if m.routeSubscribers[id] == nil {
			m.routeSubscribers[id] = make(map[ConnectionID]struct{})
		}
		m.routeSubscribers[id][connID] = struct{}{}
	default:
		m.mu.Unlock()
		return m.sendError(connID, "unknown subscription type")
	}
	session := state.session
	m.mu.Unlock()

	return session.Send(Frame{Type: FrameSubscriptionConfirmed, Payload: map[string]any{"type": kind, "id": id}})
}

func (m *ConnectionManager) unsubscribe(connID ConnectionID, kind SubscriptionKind, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.connections[connID]
	if !ok {
		return apperror.NotFound("connection", connID)
	}

	switch kind {
	case SubscriptionVehicle:
		delete(state.vehicleSubs, id)
		delete(m.vehicleSubscribers[id], connID)
	case SubscriptionRoute:
		delete(state.routeSubs, id)
		delete(m.routeSubscribers[id], connID)
	}
	return nil
}

func (m *ConnectionManager) sendError(connID ConnectionID, message string) error {
	m.mu.Lock()
	state, ok := m.connections[connID]
	m.mu.Unlock()
	if !ok {
		return apperror.NotFound("connection", connID)
	}
	return state.session.Send(Frame{Type: FrameError, Payload: map[string]any{"message": message}})
}

func (m *ConnectionManager) recordPong(connID ConnectionID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if state, ok := m.connections[connID]; ok {
		state.missedPings = 0
	}
}

// Disconnect removes connID and every subscription it held.
func (m *ConnectionManager) Disconnect(connID ConnectionID) {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.connections[connID]
	if !ok {
		return
	}
	for vehicleID := range state.vehicleSubs {
		delete(m.vehicleSubscribers[vehicleID], connID)
	}
	for routeID := range state.routeSubs {
		delete(m.routeSubscribers[routeID], connID)
	}
	delete(m.connections, connID)
	metrics.Get().ActiveConnections.Dec()
}

// broadcast fans frame out to every connection subscribed to kind/id,
// disconnecting any session whose send fails.
func (m *ConnectionManager) broadcast(subs map[int64]map[ConnectionID]struct{}, id int64, frame Frame) {
	m.mu.Lock()
	subscribers := subs[id]
	targets := make([]*connectionState, 0, len(subscribers))
	for connID := range subscribers {
		if state, ok := m.connections[connID]; ok {
			targets = append(targets, state)
		}
	}
	m.mu.Unlock()

	for _, state := range targets {
		if err := state.session.Send(frame); err != nil {
			logger.Log.Warn("dropping connection after failed send", "connection_id", state.id, "error", err)
			m.Disconnect(state.id)
		}
	}
}

// BroadcastLocationUpdate fans a location_update frame to vehicleID's
// subscribers.
func (m *ConnectionManager) BroadcastLocationUpdate(vehicleID int64, payload any) {
	m.broadcast(m.vehicleSubscribers, vehicleID, Frame{Type: FrameLocationUpdate, Payload: payload})
}

// BroadcastVisitStatusUpdate fans a visit_status_update frame to routeID's
// subscribers.
func (m *ConnectionManager) BroadcastVisitStatusUpdate(routeID int64, payload any) {
	m.broadcast(m.routeSubscribers, routeID, Frame{Type: FrameVisitStatusUpdate, Payload: payload})
}

// BroadcastETAUpdate fans an eta_update frame to routeID's subscribers.
func (m *ConnectionManager) BroadcastETAUpdate(routeID int64, payload any) {
	m.broadcast(m.routeSubscribers, routeID, Frame{Type: FrameETAUpdate, Payload: payload})
}

// BroadcastDelayAlert fans a delay_alert frame to routeID's subscribers.
func (m *ConnectionManager) BroadcastDelayAlert(routeID int64, payload any) {
	m.broadcast(m.routeSubscribers, routeID, Frame{Type: FrameDelayAlert, Payload: payload})
}

// RunPingLoop sends a ping to every open session every m.pingInterval,
// disconnecting sessions that fail to pong within two consecutive pings
//. It blocks until stop is closed.
func (m *ConnectionManager) RunPingLoop(stop <-chan struct{}) {
	ticker := time.NewTicker(m.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			m.pingAll()
		}
	}
}

func (m *ConnectionManager) pingAll() {
	m.mu.Lock()
	var toDisconnect []ConnectionID
	var toPing []*connectionState
	for id, state := range m.connections {
		if state.missedPings >= 2 {
			toDisconnect = append(toDisconnect, id)
			continue
		}
		state.missedPings++
		toPing = append(toPing, state)
	}
	m.mu.Unlock()

	for _, id := range toDisconnect {
		m.Disconnect(id)
	}
	for _, state := range toPing {
		if err := state.session.Send(Frame{Type: FramePing}); err != nil {
			m.Disconnect(state.id)
		}
	}
}

// ConnectionCount reports the number of open sessions, mainly for tests
// and metrics reconciliation.
func (m *ConnectionManager) ConnectionCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.connections)
}
