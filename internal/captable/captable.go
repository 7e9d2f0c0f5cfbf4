package captable

import (
	"log/slog"

	"captable/internal/captable/handler"
	"captable/internal/captable/ports"
	"captable/internal/captable/service"
)

// Service is the single writer of every token's log.
type Service = service.Service

// Handler wires HTTP endpoints to the token service.
type Handler = handler.Handler

// NewService constructs the token service over a log, a snapshot reader and
// a slot source.
func NewService(log ports.EventLog, snapshots ports.Snapshots, slots ports.SlotSource, opts ...service.Option) (*Service, error) {
	return service.New(log, snapshots, slots, opts...)
}

// NewHandler constructs the HTTP handler for token routes.
func NewHandler(s *Service, logger *slog.Logger) *Handler {
	return handler.New(s, logger)
}
