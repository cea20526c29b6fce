package graph

// ConnectionKind selects how a connection between two castings is stored
// and queried. Directional edges are matched source→target; bidirectional
// edges are stored once and matched without direction. The kind picks the
// relationship type in every Cypher template, so direction-sensitive and
// direction-agnostic queries never branch at runtime.
type ConnectionKind string

const (
	// Directional is an asymmetric source→target connection
	Directional ConnectionKind = "DIRECTIONAL"
	// Bidirectional is a symmetric connection queried from either endpoint
	Bidirectional ConnectionKind = "BIDIRECTIONAL"
)

const (
	relTypeDirectional   = "CONNECTION"
	relTypeBidirectional = "BI_CONNECTION"
)

// Valid reports whether k is a known connection kind
func (k ConnectionKind) Valid() bool {
	return k == Directional || k == Bidirectional
}

// relType maps the kind to its Neo4j relationship type
func (k ConnectionKind) relType() string {
	if k == Bidirectional {
		return relTypeBidirectional
	}
	return relTypeDirectional
}

// kindFromRelType is the inverse of relType, used when reading edges back
func kindFromRelType(relType string) ConnectionKind {
	if relType == relTypeBidirectional {
		return Bidirectional
	}
	return Directional
}

// CastingNode is the graph twin of a relational casting record. Its id is
// the cross-store consistency key and always equals the record's id.
type CastingNode struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Age      int64  `json:"age"`
	Gender   string `json:"gender"`
	Role     string `json:"role"`
	ImageURL string `json:"imageUrl,omitempty"`
	CoordX   int    `json:"coordX"`
	CoordY   int    `json:"coordY"`
}

// Connection is a labeled edge between two casting nodes. The uuid is its
// stable identity, independent of the endpoints.
type Connection struct {
	UUID         string         `json:"uuid"`
	Label        string         `json:"label"`
	SourceID     int64          `json:"sourceId"`
	TargetID     int64          `json:"targetId"`
	SourceHandle string         `json:"sourceHandle,omitempty"`
	TargetHandle string         `json:"targetHandle,omitempty"`
	Kind         ConnectionKind `json:"connectionType"`
}
