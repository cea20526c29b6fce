package graph

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Connection operations. A directional connection is one CONNECTION edge
// matched source→target; a bidirectional connection is one BI_CONNECTION
// edge matched without direction. It is never stored as two edges; the
// relationship type alone decides whether a query respects direction.

const connectionReturnClause = `
	r.uuid AS uuid, r.label AS label, r.sourceId AS sourceId, r.targetId AS targetId,
	r.sourceHandle AS sourceHandle, r.targetHandle AS targetHandle, type(r) AS relType`

// CreateConnection writes a single edge of the connection's kind between
// two live casting nodes. Returns false when either endpoint is missing
// or soft-deleted.
func (r *Repository) CreateConnection(ctx context.Context, conn Connection) (bool, error) {
	session := r.writeSession(ctx)
	defer session.Close(ctx)

	query := fmt.Sprintf(`
		MATCH (a:Cast {id: $sourceId}), (b:Cast {id: $targetId})
		WHERE a.deletedAt IS NULL AND b.deletedAt IS NULL
		CREATE (a)-[r:%s {
			uuid: $uuid, label: $label,
			sourceId: $sourceId, targetId: $targetId,
			sourceHandle: $sourceHandle, targetHandle: $targetHandle
		}]->(b)
		RETURN r.uuid AS uuid`, conn.Kind.relType())

	result, err := session.Run(ctx, query, map[string]interface{}{
		"uuid":         conn.UUID,
		"label":        conn.Label,
		"sourceId":     conn.SourceID,
		"targetId":     conn.TargetID,
		"sourceHandle": conn.SourceHandle,
		"targetHandle": conn.TargetHandle,
	})
	if err != nil {
		return false, fmt.Errorf("failed to create connection: %w", err)
	}

	if !result.Next(ctx) {
		if err := result.Err(); err != nil {
			return false, fmt.Errorf("failed to verify connection creation: %w", err)
		}
		return false, nil
	}

	r.logger.Info("connection created",
		zap.String("uuid", conn.UUID),
		zap.Int64("source_id", conn.SourceID),
		zap.Int64("target_id", conn.TargetID),
		zap.String("kind", string(conn.Kind)),
	)
	return true, nil
}

// OutgoingConnections returns the edge set of the given kind reachable
// from a node. Directional edges are traversed forward only; bidirectional
// edges are found regardless of the stored direction. Deleted neighbours
// are filtered out.
func (r *Repository) OutgoingConnections(ctx context.Context, nodeID int64, kind ConnectionKind) ([]Connection, error) {
	session := r.readSession(ctx)
	defer session.Close(ctx)

	var pattern string
	if kind == Bidirectional {
		pattern = "(a:Cast {id: $nodeId})-[r:" + relTypeBidirectional + "]-(b:Cast)"
	} else {
		pattern = "(a:Cast {id: $nodeId})-[r:" + relTypeDirectional + "]->(b:Cast)"
	}

	query := `
		MATCH ` + pattern + `
		WHERE a.deletedAt IS NULL AND b.deletedAt IS NULL
		RETURN` + connectionReturnClause

	result, err := session.Run(ctx, query, map[string]interface{}{"nodeId": nodeID})
	if err != nil {
		return nil, fmt.Errorf("failed to list outgoing connections: %w", err)
	}

	conns := []Connection{}
	for result.Next(ctx) {
		conns = append(conns, connectionFromRecord(result.Record()))
	}
	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate outgoing connections: %w", err)
	}
	return conns, nil
}

// UpdateDirectionalConnectionLabel renames a directional edge matched
// exactly by (uuid, source→target). Returns nil when no edge matched.
func (r *Repository) UpdateDirectionalConnectionLabel(ctx context.Context, uuid string, sourceID, targetID int64, label string) (*Connection, error) {
	query := `
		MATCH (a:Cast {id: $sourceId})-[r:` + relTypeDirectional + ` {uuid: $uuid}]->(b:Cast {id: $targetId})
		WHERE a.deletedAt IS NULL AND b.deletedAt IS NULL
		SET r.label = $label
		RETURN` + connectionReturnClause
	return r.updateConnectionLabel(ctx, query, uuid, sourceID, targetID, label)
}

// UpdateBidirectionalConnectionLabel renames a bidirectional edge matched
// by (uuid, unordered endpoint pair). Returns nil when no edge matched.
func (r *Repository) UpdateBidirectionalConnectionLabel(ctx context.Context, uuid string, sourceID, targetID int64, label string) (*Connection, error) {
	query := `
		MATCH (a:Cast {id: $sourceId})-[r:` + relTypeBidirectional + ` {uuid: $uuid}]-(b:Cast {id: $targetId})
		WHERE a.deletedAt IS NULL AND b.deletedAt IS NULL
		SET r.label = $label
		RETURN` + connectionReturnClause
	return r.updateConnectionLabel(ctx, query, uuid, sourceID, targetID, label)
}

func (r *Repository) updateConnectionLabel(ctx context.Context, query, uuid string, sourceID, targetID int64, label string) (*Connection, error) {
	session := r.writeSession(ctx)
	defer session.Close(ctx)

	result, err := session.Run(ctx, query, map[string]interface{}{
		"uuid":     uuid,
		"sourceId": sourceID,
		"targetId": targetID,
		"label":    label,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update connection label: %w", err)
	}

	if !result.Next(ctx) {
		if err := result.Err(); err != nil {
			return nil, fmt.Errorf("failed to fetch updated connection: %w", err)
		}
		return nil, nil
	}
	conn := connectionFromRecord(result.Record())
	return &conn, nil
}

// DeleteConnectionByUUID removes every edge of either kind carrying the
// uuid, anywhere in the graph, and returns how many were deleted. The
// undirected match sees each edge from both ends, hence the DISTINCT
// count. Callers treat any count other than one as a fault.
func (r *Repository) DeleteConnectionByUUID(ctx context.Context, uuid string) (int64, error) {
	session := r.writeSession(ctx)
	defer session.Close(ctx)

	query := `
		MATCH (:Cast)-[r:` + relTypeDirectional + `|` + relTypeBidirectional + ` {uuid: $uuid}]-(:Cast)
		WITH DISTINCT r
		DELETE r
		RETURN count(r) AS deleted`

	result, err := session.Run(ctx, query, map[string]interface{}{"uuid": uuid})
	if err != nil {
		return 0, fmt.Errorf("failed to delete connection: %w", err)
	}

	record, err := result.Single(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch delete count: %w", err)
	}

	deleted := getInt64FromRecord(record, "deleted")
	r.logger.Info("connection delete executed",
		zap.String("uuid", uuid),
		zap.Int64("deleted", deleted),
	)
	return deleted, nil
}

// ListConnectionsByProject returns every distinct edge between live
// castings appearing in the project's plots, for the canvas view.
func (r *Repository) ListConnectionsByProject(ctx context.Context, projectID int64) ([]Connection, error) {
	session := r.readSession(ctx)
	defer session.Close(ctx)

	query := `
		MATCH (p:Project {id: $projectId})-[:INCLUDED]->(sp:StoryPlot)-[:APPEARED]-(a:Cast)-[r:` +
		relTypeDirectional + `|` + relTypeBidirectional + `]-(b:Cast)
		WHERE p.deletedAt IS NULL AND sp.deletedAt IS NULL
			AND a.deletedAt IS NULL AND b.deletedAt IS NULL
		RETURN DISTINCT` + connectionReturnClause

	result, err := session.Run(ctx, query, map[string]interface{}{"projectId": projectID})
	if err != nil {
		return nil, fmt.Errorf("failed to list connections by project: %w", err)
	}

	conns := []Connection{}
	for result.Next(ctx) {
		conns = append(conns, connectionFromRecord(result.Record()))
	}
	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate connections: %w", err)
	}
	return conns, nil
}
