package casting

import (
	"context"

	"golang.org/x/sync/errgroup"

	"owing/backend/internal/graph"
)

// ProjectGraph is the canvas view of a project: every live casting
// reachable through the project's plots plus every distinct edge between
// them.
type ProjectGraph struct {
	Castings    []graph.CastingNode `json:"castings"`
	Connections []graph.Connection  `json:"connections"`
}

// GetProjectGraph fetches the project's nodes and edges concurrently.
// The two reads are independent traversals, so either failure cancels
// the other.
func (s *Service) GetProjectGraph(ctx context.Context, projectID int64) (*ProjectGraph, error) {
	var pg ProjectGraph

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		nodes, err := s.graph.ListCastingNodesByProject(ctx, projectID)
		if err != nil {
			return err
		}
		pg.Castings = nodes
		return nil
	})
	g.Go(func() error {
		conns, err := s.graph.ListConnectionsByProject(ctx, projectID)
		if err != nil {
			return err
		}
		pg.Connections = conns
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &pg, nil
}
