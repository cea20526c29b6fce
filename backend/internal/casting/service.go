// Package casting is the facade over the two casting stores. The
// relational record is authoritative for descriptive fields; the graph
// twin carries the same id and anchors connections. Writes go relational
// first, then graph, and a graph failure after the relational commit
// surfaces as a partial-write error instead of being rolled back.
package casting

import (
	"context"

	"go.uber.org/zap"

	"owing/backend/internal/adapter"
	"owing/backend/internal/graph"
	"owing/backend/internal/store"
	"owing/backend/pkg/errors"
	"owing/backend/pkg/logger"
)

// Store is the relational side of the facade, satisfied by *store.Store
type Store interface {
	CreateCasting(ctx context.Context, rec *store.CastingRecord) (*store.CastingRecord, error)
	GetCasting(ctx context.Context, id int64) (*store.CastingRecord, error)
	UpdateCastingInfo(ctx context.Context, id int64, name string, age int64, gender, role, detail, imageURL string) (bool, error)
	UpdateCastingCoord(ctx context.Context, id int64, coordX, coordY int) (bool, error)
	UpdateCastingImage(ctx context.Context, id int64, imageURL string) (bool, error)
	SoftDeleteCasting(ctx context.Context, id int64) (bool, error)
}

// Graph is the graph side of the facade, satisfied by *graph.Repository
type Graph interface {
	CreateCastingNode(ctx context.Context, node *graph.CastingNode) (*graph.CastingNode, error)
	FindCastingNode(ctx context.Context, id int64) (*graph.CastingNode, error)
	UpdateCastingNodeInfo(ctx context.Context, id int64, name string, age int64, gender, role, imageURL string) (*graph.CastingNode, error)
	UpdateCastingNodeCoord(ctx context.Context, id int64, coordX, coordY int) (*graph.CastingNode, error)
	UpdateCastingNodeImage(ctx context.Context, id int64, imageURL string) (*graph.CastingNode, error)
	SoftDeleteCastingNode(ctx context.Context, id int64) (bool, error)
	LinkCastingToPlot(ctx context.Context, castingID, plotID int64) error
	ListCastingNodesByProject(ctx context.Context, projectID int64) ([]graph.CastingNode, error)
	ListConnectionsByProject(ctx context.Context, projectID int64) ([]graph.Connection, error)
	CreateConnection(ctx context.Context, conn graph.Connection) (bool, error)
	OutgoingConnections(ctx context.Context, nodeID int64, kind graph.ConnectionKind) ([]graph.Connection, error)
	UpdateDirectionalConnectionLabel(ctx context.Context, uuid string, sourceID, targetID int64, label string) (*graph.Connection, error)
	UpdateBidirectionalConnectionLabel(ctx context.Context, uuid string, sourceID, targetID int64, label string) (*graph.Connection, error)
	DeleteConnectionByUUID(ctx context.Context, uuid string) (int64, error)
}

// Generator is the OpenAI surface the facade consumes, satisfied by
// *adapter.OpenAIAdapter
type Generator interface {
	GenerateImage(ctx context.Context, prompt string) (string, error)
	ExtractCast(ctx context.Context, manuscript string, known []adapter.CastingSummary) ([]adapter.CastingSummary, error)
}

// Service coordinates the relational store, the graph and the generator
type Service struct {
	store     Store
	graph     Graph
	generator Generator
	logger    *zap.Logger
}

// NewService creates a casting service. generator may be nil when no
// OpenAI key is configured; generation operations then fail fast.
func NewService(st Store, gr Graph, gen Generator) *Service {
	return &Service{
		store:     st,
		graph:     gr,
		generator: gen,
		logger:    logger.Get(),
	}
}

// CreateCasting inserts the relational record, then its graph twin under
// the same id. The response comes from the graph so the caller sees what
// the canvas will see.
func (s *Service) CreateCasting(ctx context.Context, rec *store.CastingRecord) (*graph.CastingNode, error) {
	created, err := s.store.CreateCasting(ctx, rec)
	if err != nil {
		return nil, err
	}

	node, err := s.graph.CreateCastingNode(ctx, &graph.CastingNode{
		ID:       created.ID,
		Name:     created.Name,
		Age:      created.Age,
		Gender:   created.Gender,
		Role:     created.Role,
		ImageURL: created.ImageURL,
		CoordX:   created.CoordX,
		CoordY:   created.CoordY,
	})
	if err != nil {
		return nil, errors.NewPartialWriteFailure("create casting", err)
	}

	s.logger.Info("casting created", zap.Int64("casting_id", created.ID))
	return node, nil
}

// GetCasting returns the relational record for a live casting
func (s *Service) GetCasting(ctx context.Context, id int64) (*store.CastingRecord, error) {
	rec, err := s.store.GetCasting(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, errors.NewCastingNotFound(id)
	}
	return rec, nil
}

// UpdateCastingInfo replaces the descriptive fields in both stores. The
// graph twin must already exist; it is never created on the fly.
func (s *Service) UpdateCastingInfo(ctx context.Context, id int64, name string, age int64, gender, role, detail, imageURL string) (*graph.CastingNode, error) {
	matched, err := s.store.UpdateCastingInfo(ctx, id, name, age, gender, role, detail, imageURL)
	if err != nil {
		return nil, err
	}
	if !matched {
		return nil, errors.NewCastingNotFound(id)
	}

	node, err := s.graph.UpdateCastingNodeInfo(ctx, id, name, age, gender, role, imageURL)
	if err != nil {
		return nil, errors.NewPartialWriteFailure("update casting info", err)
	}
	if node == nil {
		return nil, errors.NewCastingNodeNotFound(id)
	}
	return node, nil
}

// UpdateCastingCoord moves the casting on the relationship canvas
func (s *Service) UpdateCastingCoord(ctx context.Context, id int64, coordX, coordY int) (*graph.CastingNode, error) {
	matched, err := s.store.UpdateCastingCoord(ctx, id, coordX, coordY)
	if err != nil {
		return nil, err
	}
	if !matched {
		return nil, errors.NewCastingNotFound(id)
	}

	node, err := s.graph.UpdateCastingNodeCoord(ctx, id, coordX, coordY)
	if err != nil {
		return nil, errors.NewPartialWriteFailure("update casting coord", err)
	}
	if node == nil {
		return nil, errors.NewCastingNodeNotFound(id)
	}
	return node, nil
}

// DeleteCasting soft-deletes the casting in both stores. Edges and rows
// stay in place; reads filter them out.
func (s *Service) DeleteCasting(ctx context.Context, id int64) error {
	matched, err := s.store.SoftDeleteCasting(ctx, id)
	if err != nil {
		return err
	}
	if !matched {
		return errors.NewCastingNotFound(id)
	}

	deleted, err := s.graph.SoftDeleteCastingNode(ctx, id)
	if err != nil {
		return errors.NewPartialWriteFailure("delete casting", err)
	}
	if !deleted {
		return errors.NewCastingNodeNotFound(id)
	}

	s.logger.Info("casting deleted", zap.Int64("casting_id", id))
	return nil
}

// AppearInPlot records that a casting appears in a story plot
func (s *Service) AppearInPlot(ctx context.Context, castingID, plotID int64) error {
	rec, err := s.store.GetCasting(ctx, castingID)
	if err != nil {
		return err
	}
	if rec == nil {
		return errors.NewCastingNotFound(castingID)
	}
	return s.graph.LinkCastingToPlot(ctx, castingID, plotID)
}
