package services

import (
	"pm-lab/auth"
	"pm-lab/contract"
	"pm-lab/domain"
	"pm-lab/runtime"
)

// IPresenceService is the transport-facing façade over the coordinator and
// the connection gate. The gateway depends on this interface only.
type IPresenceService interface {
	Authenticate(creds auth.Credentials) (auth.Principal, error)
	Connect(principal auth.Principal, sink contract.EventSink) (*runtime.Conn, error)
	Snapshot(conn *runtime.Conn) ([]domain.Peer, error)
	Announce(conn *runtime.Conn)
	Send(conn *runtime.Conn, content, to string) error
	Disconnect(conn *runtime.Conn)
}

type PresenceService struct {
	gate        auth.Gate
	coordinator *runtime.Coordinator
}

func NewPresenceService(gate auth.Gate, coordinator *runtime.Coordinator) *PresenceService {
	return &PresenceService{gate: gate, coordinator: coordinator}
}

func (s *PresenceService) Authenticate(creds auth.Credentials) (auth.Principal, error) {
	return s.gate.Resolve(creds)
}

func (s *PresenceService) Connect(principal auth.Principal, sink contract.EventSink) (*runtime.Conn, error) {
	return s.coordinator.Connect(principal, sink)
}

func (s *PresenceService) Snapshot(conn *runtime.Conn) ([]domain.Peer, error) {
	return s.coordinator.Snapshot(conn)
}

func (s *PresenceService) Announce(conn *runtime.Conn) {
	s.coordinator.Announce(conn)
}

func (s *PresenceService) Send(conn *runtime.Conn, content, to string) error {
	return s.coordinator.Send(conn, content, to)
}

func (s *PresenceService) Disconnect(conn *runtime.Conn) {
	s.coordinator.Disconnect(conn)
}
