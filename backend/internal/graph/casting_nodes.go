package graph

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Casting node operations. Every read filters on deletedAt IS NULL; nodes
// are never physically removed because historical edges may reference them.
// Lookups return (nil, nil) for missing or deleted nodes so callers can
// attach the error appropriate to their operation.

const nodeReturnClause = `
	c.id AS id, c.name AS name, c.age AS age, c.gender AS gender,
	c.role AS role, c.imageUrl AS imageUrl, c.coordX AS coordX, c.coordY AS coordY`

// CreateCastingNode creates the graph twin for a casting record. The id
// must be the relational record's id.
func (r *Repository) CreateCastingNode(ctx context.Context, node *CastingNode) (*CastingNode, error) {
	session := r.writeSession(ctx)
	defer session.Close(ctx)

	query := `
		CREATE (c:Cast {
			id: $id, name: $name, age: $age, gender: $gender, role: $role,
			imageUrl: $imageUrl, coordX: $coordX, coordY: $coordY,
			createdAt: datetime()
		})
		RETURN` + nodeReturnClause

	result, err := session.Run(ctx, query, map[string]interface{}{
		"id":       node.ID,
		"name":     node.Name,
		"age":      node.Age,
		"gender":   node.Gender,
		"role":     node.Role,
		"imageUrl": node.ImageURL,
		"coordX":   node.CoordX,
		"coordY":   node.CoordY,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create casting node: %w", err)
	}

	record, err := result.Single(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to verify casting node creation: %w", err)
	}

	r.logger.Info("casting node created", zap.Int64("casting_id", node.ID))
	return nodeFromRecord(record), nil
}

// FindCastingNode returns the live node with the given id, or nil when it
// is missing or soft-deleted.
func (r *Repository) FindCastingNode(ctx context.Context, id int64) (*CastingNode, error) {
	session := r.readSession(ctx)
	defer session.Close(ctx)

	query := `
		MATCH (c:Cast {id: $id})
		WHERE c.deletedAt IS NULL
		RETURN` + nodeReturnClause

	result, err := session.Run(ctx, query, map[string]interface{}{"id": id})
	if err != nil {
		return nil, fmt.Errorf("failed to find casting node: %w", err)
	}

	if !result.Next(ctx) {
		if err := result.Err(); err != nil {
			return nil, fmt.Errorf("failed to fetch casting node record: %w", err)
		}
		return nil, nil
	}
	return nodeFromRecord(result.Record()), nil
}

// UpdateCastingNodeInfo replaces the descriptive fields of a live node and
// returns the updated node, or nil when no live node matched.
func (r *Repository) UpdateCastingNodeInfo(ctx context.Context, id int64, name string, age int64, gender, role, imageURL string) (*CastingNode, error) {
	session := r.writeSession(ctx)
	defer session.Close(ctx)

	query := `
		MATCH (c:Cast {id: $id})
		WHERE c.deletedAt IS NULL
		SET c.name = $name, c.age = $age, c.gender = $gender,
		    c.role = $role, c.imageUrl = $imageUrl
		RETURN` + nodeReturnClause

	result, err := session.Run(ctx, query, map[string]interface{}{
		"id": id, "name": name, "age": age, "gender": gender,
		"role": role, "imageUrl": imageURL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update casting node info: %w", err)
	}

	if !result.Next(ctx) {
		if err := result.Err(); err != nil {
			return nil, fmt.Errorf("failed to fetch updated casting node: %w", err)
		}
		return nil, nil
	}
	return nodeFromRecord(result.Record()), nil
}

// UpdateCastingNodeCoord moves a node on the relationship canvas
func (r *Repository) UpdateCastingNodeCoord(ctx context.Context, id int64, coordX, coordY int) (*CastingNode, error) {
	session := r.writeSession(ctx)
	defer session.Close(ctx)

	query := `
		MATCH (c:Cast {id: $id})
		WHERE c.deletedAt IS NULL
		SET c.coordX = $coordX, c.coordY = $coordY
		RETURN` + nodeReturnClause

	result, err := session.Run(ctx, query, map[string]interface{}{
		"id": id, "coordX": coordX, "coordY": coordY,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update casting node coord: %w", err)
	}

	if !result.Next(ctx) {
		if err := result.Err(); err != nil {
			return nil, fmt.Errorf("failed to fetch updated casting node: %w", err)
		}
		return nil, nil
	}
	return nodeFromRecord(result.Record()), nil
}

// UpdateCastingNodeImage stores a freshly generated portrait URL on the node
func (r *Repository) UpdateCastingNodeImage(ctx context.Context, id int64, imageURL string) (*CastingNode, error) {
	session := r.writeSession(ctx)
	defer session.Close(ctx)

	query := `
		MATCH (c:Cast {id: $id})
		WHERE c.deletedAt IS NULL
		SET c.imageUrl = $imageUrl
		RETURN` + nodeReturnClause

	result, err := session.Run(ctx, query, map[string]interface{}{
		"id": id, "imageUrl": imageURL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update casting node image: %w", err)
	}

	if !result.Next(ctx) {
		if err := result.Err(); err != nil {
			return nil, fmt.Errorf("failed to fetch updated casting node: %w", err)
		}
		return nil, nil
	}
	return nodeFromRecord(result.Record()), nil
}

// SoftDeleteCastingNode stamps deletedAt on a live node. Edges stay in
// place; every traversal filters deleted endpoints out. Returns false when
// no live node matched.
func (r *Repository) SoftDeleteCastingNode(ctx context.Context, id int64) (bool, error) {
	session := r.writeSession(ctx)
	defer session.Close(ctx)

	query := `
		MATCH (c:Cast {id: $id})
		WHERE c.deletedAt IS NULL
		SET c.deletedAt = datetime()
		RETURN c.id AS id`

	result, err := session.Run(ctx, query, map[string]interface{}{"id": id})
	if err != nil {
		return false, fmt.Errorf("failed to soft-delete casting node: %w", err)
	}

	if !result.Next(ctx) {
		if err := result.Err(); err != nil {
			return false, fmt.Errorf("failed to fetch soft-delete result: %w", err)
		}
		return false, nil
	}

	r.logger.Info("casting node soft-deleted", zap.Int64("casting_id", id))
	return true, nil
}

// EnsurePlotNode mirrors a story plot into the graph and links it under
// its project, so castings can be scoped by project ancestry.
func (r *Repository) EnsurePlotNode(ctx context.Context, projectID, plotID int64, name string) error {
	session := r.writeSession(ctx)
	defer session.Close(ctx)

	query := `
		MERGE (p:Project {id: $projectId})
		MERGE (sp:StoryPlot {id: $plotId})
		SET sp.name = $name
		MERGE (p)-[:INCLUDED]->(sp)`

	_, err := session.Run(ctx, query, map[string]interface{}{
		"projectId": projectID, "plotId": plotID, "name": name,
	})
	if err != nil {
		return fmt.Errorf("failed to ensure plot node: %w", err)
	}
	return nil
}

// SoftDeletePlotNode stamps deletedAt on a plot node so project-scoped
// traversals stop crossing it.
func (r *Repository) SoftDeletePlotNode(ctx context.Context, plotID int64) error {
	session := r.writeSession(ctx)
	defer session.Close(ctx)

	query := `
		MATCH (sp:StoryPlot {id: $plotId})
		WHERE sp.deletedAt IS NULL
		SET sp.deletedAt = datetime()`

	_, err := session.Run(ctx, query, map[string]interface{}{"plotId": plotID})
	if err != nil {
		return fmt.Errorf("failed to soft-delete plot node: %w", err)
	}
	return nil
}

// LinkCastingToPlot records that a casting appears in a plot. Idempotent.
func (r *Repository) LinkCastingToPlot(ctx context.Context, castingID, plotID int64) error {
	session := r.writeSession(ctx)
	defer session.Close(ctx)

	query := `
		MATCH (c:Cast {id: $castingId}), (sp:StoryPlot {id: $plotId})
		WHERE c.deletedAt IS NULL AND sp.deletedAt IS NULL
		MERGE (c)-[:APPEARED]->(sp)
		RETURN c.id AS id`

	result, err := session.Run(ctx, query, map[string]interface{}{
		"castingId": castingID, "plotId": plotID,
	})
	if err != nil {
		return fmt.Errorf("failed to link casting to plot: %w", err)
	}
	if _, err := result.Single(ctx); err != nil {
		return fmt.Errorf("casting or plot missing for appearance link: %w", err)
	}
	return nil
}

// ListCastingNodesByProject returns every live casting reachable through
// the project's plots.
func (r *Repository) ListCastingNodesByProject(ctx context.Context, projectID int64) ([]CastingNode, error) {
	session := r.readSession(ctx)
	defer session.Close(ctx)

	query := `
		MATCH (p:Project {id: $projectId})-[:INCLUDED]->(sp:StoryPlot)-[:APPEARED]-(c:Cast)
		WHERE p.deletedAt IS NULL AND sp.deletedAt IS NULL AND c.deletedAt IS NULL
		RETURN DISTINCT` + nodeReturnClause

	result, err := session.Run(ctx, query, map[string]interface{}{"projectId": projectID})
	if err != nil {
		return nil, fmt.Errorf("failed to list casting nodes by project: %w", err)
	}

	nodes := []CastingNode{}
	for result.Next(ctx) {
		nodes = append(nodes, *nodeFromRecord(result.Record()))
	}
	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate casting nodes: %w", err)
	}
	return nodes, nil
}
