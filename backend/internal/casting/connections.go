package casting

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"owing/backend/internal/graph"
	"owing/backend/pkg/errors"
)

// ConnectionRequest describes a new edge between two live castings
type ConnectionRequest struct {
	SourceID     int64                `json:"sourceId"`
	TargetID     int64                `json:"targetId"`
	UUID         string               `json:"uuid"`
	Label        string               `json:"label"`
	SourceHandle string               `json:"sourceHandle"`
	TargetHandle string               `json:"targetHandle"`
	Kind         graph.ConnectionKind `json:"connectionType"`
}

// CreateConnection writes a single labeled edge between two live castings
// and returns it as re-read from the graph, so the caller gets exactly
// the edge a later traversal will see. A missing uuid gets a generated one.
func (s *Service) CreateConnection(ctx context.Context, req ConnectionRequest) (*graph.Connection, error) {
	if !req.Kind.Valid() {
		return nil, errors.NewInvalidConnectionKind(string(req.Kind))
	}

	source, err := s.graph.FindCastingNode(ctx, req.SourceID)
	if err != nil {
		return nil, err
	}
	if source == nil {
		return nil, errors.NewCastingNotFound(req.SourceID)
	}
	target, err := s.graph.FindCastingNode(ctx, req.TargetID)
	if err != nil {
		return nil, err
	}
	if target == nil {
		return nil, errors.NewCastingNotFound(req.TargetID)
	}

	if req.UUID == "" {
		req.UUID = uuid.NewString()
	}

	created, err := s.graph.CreateConnection(ctx, graph.Connection{
		UUID:         req.UUID,
		Label:        req.Label,
		SourceID:     req.SourceID,
		TargetID:     req.TargetID,
		SourceHandle: req.SourceHandle,
		TargetHandle: req.TargetHandle,
		Kind:         req.Kind,
	})
	if err != nil {
		return nil, err
	}
	if !created {
		// An endpoint was deleted between the check and the write
		return nil, errors.NewCastingNotFound(req.SourceID)
	}

	// Re-read through the same traversal the canvas uses. Not finding the
	// edge we just wrote means the write did not land where reads look.
	conns, err := s.graph.OutgoingConnections(ctx, req.SourceID, req.Kind)
	if err != nil {
		return nil, err
	}
	for i := range conns {
		if connectionMatches(&conns[i], req) {
			s.logger.Info("connection created",
				zap.String("uuid", conns[i].UUID),
				zap.String("kind", string(req.Kind)),
			)
			return &conns[i], nil
		}
	}
	return nil, errors.NewConnectionNotFound(req.UUID)
}

// connectionMatches reports whether an edge read back from the graph is
// the one the request asked for. Bidirectional edges may come back with
// the endpoints in either order.
func connectionMatches(conn *graph.Connection, req ConnectionRequest) bool {
	if conn.Label != req.Label {
		return false
	}
	if conn.SourceID == req.SourceID && conn.TargetID == req.TargetID {
		return true
	}
	return req.Kind == graph.Bidirectional &&
		conn.SourceID == req.TargetID && conn.TargetID == req.SourceID
}

// RenameConnection sets a new label on the edge identified by uuid and
// its endpoint pair. The kind decides whether the match respects
// direction.
func (s *Service) RenameConnection(ctx context.Context, connUUID string, sourceID, targetID int64, kind graph.ConnectionKind, newLabel string) (*graph.Connection, error) {
	if !kind.Valid() {
		return nil, errors.NewInvalidConnectionKind(string(kind))
	}

	source, err := s.graph.FindCastingNode(ctx, sourceID)
	if err != nil {
		return nil, err
	}
	if source == nil {
		return nil, errors.NewCastingNotFound(sourceID)
	}
	target, err := s.graph.FindCastingNode(ctx, targetID)
	if err != nil {
		return nil, err
	}
	if target == nil {
		return nil, errors.NewCastingNotFound(targetID)
	}

	var conn *graph.Connection
	if kind == graph.Bidirectional {
		conn, err = s.graph.UpdateBidirectionalConnectionLabel(ctx, connUUID, sourceID, targetID, newLabel)
	} else {
		conn, err = s.graph.UpdateDirectionalConnectionLabel(ctx, connUUID, sourceID, targetID, newLabel)
	}
	if err != nil {
		return nil, err
	}
	if conn == nil {
		return nil, errors.NewConnectionNameUpdateFailed(connUUID)
	}
	return conn, nil
}

// DeleteConnection removes the edge carrying the uuid. Exactly one edge
// must go: zero means the connection does not exist, more than one means
// the uuid uniqueness assumption is broken and the fault is surfaced, not
// repaired.
func (s *Service) DeleteConnection(ctx context.Context, connUUID string) error {
	deleted, err := s.graph.DeleteConnectionByUUID(ctx, connUUID)
	if err != nil {
		return err
	}
	switch {
	case deleted == 0:
		return errors.NewConnectionNotFound(connUUID)
	case deleted > 1:
		return errors.NewInvalidDeleteCount(connUUID, deleted)
	}

	s.logger.Info("connection deleted", zap.String("uuid", connUUID))
	return nil
}
