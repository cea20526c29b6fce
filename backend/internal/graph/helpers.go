package graph

import (
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Record accessors. Neo4j integers come back as int64; anything missing or
// of the wrong type falls through to the zero value.

func getStringFromRecord(record *neo4j.Record, key string) string {
	val, ok := record.Get(key)
	if !ok || val == nil {
		return ""
	}
	if str, ok := val.(string); ok {
		return str
	}
	return ""
}

func getIntFromRecord(record *neo4j.Record, key string) int {
	return int(getInt64FromRecord(record, key))
}

func getInt64FromRecord(record *neo4j.Record, key string) int64 {
	val, ok := record.Get(key)
	if !ok || val == nil {
		return 0
	}
	if i, ok := val.(int64); ok {
		return i
	}
	if i, ok := val.(int); ok {
		return int64(i)
	}
	return 0
}

func nodeFromRecord(record *neo4j.Record) *CastingNode {
	return &CastingNode{
		ID:       getInt64FromRecord(record, "id"),
		Name:     getStringFromRecord(record, "name"),
		Age:      getInt64FromRecord(record, "age"),
		Gender:   getStringFromRecord(record, "gender"),
		Role:     getStringFromRecord(record, "role"),
		ImageURL: getStringFromRecord(record, "imageUrl"),
		CoordX:   getIntFromRecord(record, "coordX"),
		CoordY:   getIntFromRecord(record, "coordY"),
	}
}

func connectionFromRecord(record *neo4j.Record) Connection {
	return Connection{
		UUID:         getStringFromRecord(record, "uuid"),
		Label:        getStringFromRecord(record, "label"),
		SourceID:     getInt64FromRecord(record, "sourceId"),
		TargetID:     getInt64FromRecord(record, "targetId"),
		SourceHandle: getStringFromRecord(record, "sourceHandle"),
		TargetHandle: getStringFromRecord(record, "targetHandle"),
		Kind:         kindFromRelType(getStringFromRecord(record, "relType")),
	}
}
