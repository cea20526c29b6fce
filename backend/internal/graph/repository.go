package graph

import (
	"context"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"owing/backend/pkg/logger"
)

// Repository handles all Neo4j database operations for the casting graph
type Repository struct {
	driver neo4j.DriverWithContext
	logger *zap.Logger
}

// NewRepository creates a new graph repository
func NewRepository(driver neo4j.DriverWithContext) *Repository {
	return &Repository{
		driver: driver,
		logger: logger.Get(),
	}
}

// Close closes the Neo4j driver connection
func (r *Repository) Close() error {
	return r.driver.Close(context.Background())
}

func (r *Repository) readSession(ctx context.Context) neo4j.SessionWithContext {
	return r.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
}

func (r *Repository) writeSession(ctx context.Context) neo4j.SessionWithContext {
	return r.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
}

// EnsureConstraints creates the uniqueness constraints the casting graph
// relies on. Safe to run repeatedly.
func (r *Repository) EnsureConstraints(ctx context.Context) error {
	session := r.writeSession(ctx)
	defer session.Close(ctx)

	queries := []string{
		"CREATE CONSTRAINT cast_id IF NOT EXISTS FOR (c:Cast) REQUIRE c.id IS UNIQUE",
		"CREATE CONSTRAINT plot_id IF NOT EXISTS FOR (p:StoryPlot) REQUIRE p.id IS UNIQUE",
		"CREATE CONSTRAINT project_id IF NOT EXISTS FOR (p:Project) REQUIRE p.id IS UNIQUE",
	}
	for _, q := range queries {
		if _, err := session.Run(ctx, q, nil); err != nil {
			r.logger.Warn("failed to create constraint", zap.String("query", q), zap.Error(err))
		}
	}
	return nil
}
