package casting

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"owing/backend/internal/adapter"
	"owing/backend/internal/graph"
	"owing/backend/internal/store"
	"owing/backend/pkg/errors"
)

// fakeStore is an in-memory relational store
type fakeStore struct {
	nextID  int64
	records map[int64]*store.CastingRecord
	deleted map[int64]bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{records: map[int64]*store.CastingRecord{}, deleted: map[int64]bool{}}
}

func (f *fakeStore) CreateCasting(_ context.Context, rec *store.CastingRecord) (*store.CastingRecord, error) {
	f.nextID++
	created := *rec
	created.ID = f.nextID
	f.records[created.ID] = &created
	return &created, nil
}

func (f *fakeStore) GetCasting(_ context.Context, id int64) (*store.CastingRecord, error) {
	if f.deleted[id] {
		return nil, nil
	}
	rec, ok := f.records[id]
	if !ok {
		return nil, nil
	}
	return rec, nil
}

func (f *fakeStore) UpdateCastingInfo(_ context.Context, id int64, name string, age int64, gender, role, detail, imageURL string) (bool, error) {
	rec, ok := f.records[id]
	if !ok || f.deleted[id] {
		return false, nil
	}
	rec.Name, rec.Age, rec.Gender, rec.Role, rec.Detail, rec.ImageURL = name, age, gender, role, detail, imageURL
	return true, nil
}

func (f *fakeStore) UpdateCastingCoord(_ context.Context, id int64, coordX, coordY int) (bool, error) {
	rec, ok := f.records[id]
	if !ok || f.deleted[id] {
		return false, nil
	}
	rec.CoordX, rec.CoordY = coordX, coordY
	return true, nil
}

func (f *fakeStore) UpdateCastingImage(_ context.Context, id int64, imageURL string) (bool, error) {
	rec, ok := f.records[id]
	if !ok || f.deleted[id] {
		return false, nil
	}
	rec.ImageURL = imageURL
	return true, nil
}

func (f *fakeStore) SoftDeleteCasting(_ context.Context, id int64) (bool, error) {
	if _, ok := f.records[id]; !ok || f.deleted[id] {
		return false, nil
	}
	f.deleted[id] = true
	return true, nil
}

// fakeGraph is an in-memory graph with switches for the failure paths
type fakeGraph struct {
	nodes   map[int64]*graph.CastingNode
	deleted map[int64]bool
	conns   []graph.Connection

	failCreateNode bool
	dropReadBack   bool // OutgoingConnections pretends the edge never landed
	deleteCount    *int64
	appearances    [][2]int64
}

func newFakeGraph() *fakeGraph {
	return &fakeGraph{nodes: map[int64]*graph.CastingNode{}, deleted: map[int64]bool{}}
}

func (f *fakeGraph) CreateCastingNode(_ context.Context, node *graph.CastingNode) (*graph.CastingNode, error) {
	if f.failCreateNode {
		return nil, fmt.Errorf("neo4j unavailable")
	}
	copied := *node
	f.nodes[node.ID] = &copied
	return &copied, nil
}

func (f *fakeGraph) FindCastingNode(_ context.Context, id int64) (*graph.CastingNode, error) {
	if f.deleted[id] {
		return nil, nil
	}
	node, ok := f.nodes[id]
	if !ok {
		return nil, nil
	}
	return node, nil
}

func (f *fakeGraph) UpdateCastingNodeInfo(_ context.Context, id int64, name string, age int64, gender, role, imageURL string) (*graph.CastingNode, error) {
	node, ok := f.nodes[id]
	if !ok || f.deleted[id] {
		return nil, nil
	}
	node.Name, node.Age, node.Gender, node.Role, node.ImageURL = name, age, gender, role, imageURL
	return node, nil
}

func (f *fakeGraph) UpdateCastingNodeCoord(_ context.Context, id int64, coordX, coordY int) (*graph.CastingNode, error) {
	node, ok := f.nodes[id]
	if !ok || f.deleted[id] {
		return nil, nil
	}
	node.CoordX, node.CoordY = coordX, coordY
	return node, nil
}

func (f *fakeGraph) UpdateCastingNodeImage(_ context.Context, id int64, imageURL string) (*graph.CastingNode, error) {
	node, ok := f.nodes[id]
	if !ok || f.deleted[id] {
		return nil, nil
	}
	node.ImageURL = imageURL
	return node, nil
}

func (f *fakeGraph) SoftDeleteCastingNode(_ context.Context, id int64) (bool, error) {
	if _, ok := f.nodes[id]; !ok || f.deleted[id] {
		return false, nil
	}
	f.deleted[id] = true
	return true, nil
}

func (f *fakeGraph) LinkCastingToPlot(_ context.Context, castingID, plotID int64) error {
	f.appearances = append(f.appearances, [2]int64{castingID, plotID})
	return nil
}

func (f *fakeGraph) ListCastingNodesByProject(_ context.Context, _ int64) ([]graph.CastingNode, error) {
	nodes := []graph.CastingNode{}
	for id, node := range f.nodes {
		if !f.deleted[id] {
			nodes = append(nodes, *node)
		}
	}
	return nodes, nil
}

func (f *fakeGraph) ListConnectionsByProject(_ context.Context, _ int64) ([]graph.Connection, error) {
	return f.conns, nil
}

func (f *fakeGraph) CreateConnection(_ context.Context, conn graph.Connection) (bool, error) {
	if f.deleted[conn.SourceID] || f.deleted[conn.TargetID] {
		return false, nil
	}
	f.conns = append(f.conns, conn)
	return true, nil
}

func (f *fakeGraph) OutgoingConnections(_ context.Context, nodeID int64, kind graph.ConnectionKind) ([]graph.Connection, error) {
	if f.dropReadBack {
		return nil, nil
	}
	out := []graph.Connection{}
	for _, conn := range f.conns {
		if conn.Kind != kind {
			continue
		}
		if conn.SourceID == nodeID || (kind == graph.Bidirectional && conn.TargetID == nodeID) {
			out = append(out, conn)
		}
	}
	return out, nil
}

func (f *fakeGraph) UpdateDirectionalConnectionLabel(_ context.Context, uuid string, sourceID, targetID int64, label string) (*graph.Connection, error) {
	for i := range f.conns {
		c := &f.conns[i]
		if c.UUID == uuid && c.Kind == graph.Directional && c.SourceID == sourceID && c.TargetID == targetID {
			c.Label = label
			return c, nil
		}
	}
	return nil, nil
}

func (f *fakeGraph) UpdateBidirectionalConnectionLabel(_ context.Context, uuid string, sourceID, targetID int64, label string) (*graph.Connection, error) {
	for i := range f.conns {
		c := &f.conns[i]
		if c.UUID != uuid || c.Kind != graph.Bidirectional {
			continue
		}
		if (c.SourceID == sourceID && c.TargetID == targetID) || (c.SourceID == targetID && c.TargetID == sourceID) {
			c.Label = label
			return c, nil
		}
	}
	return nil, nil
}

func (f *fakeGraph) DeleteConnectionByUUID(_ context.Context, uuid string) (int64, error) {
	if f.deleteCount != nil {
		return *f.deleteCount, nil
	}
	var kept []graph.Connection
	var deleted int64
	for _, conn := range f.conns {
		if conn.UUID == uuid {
			deleted++
			continue
		}
		kept = append(kept, conn)
	}
	f.conns = kept
	return deleted, nil
}

// fakeGenerator records what it is asked to do
type fakeGenerator struct {
	lastPrompt     string
	lastManuscript string
	lastKnown      []adapter.CastingSummary
	imageURL       string
	summaries      []adapter.CastingSummary
}

func (f *fakeGenerator) GenerateImage(_ context.Context, prompt string) (string, error) {
	f.lastPrompt = prompt
	return f.imageURL, nil
}

func (f *fakeGenerator) ExtractCast(_ context.Context, manuscript string, known []adapter.CastingSummary) ([]adapter.CastingSummary, error) {
	f.lastManuscript = manuscript
	f.lastKnown = known
	return f.summaries, nil
}

func newTestService() (*Service, *fakeStore, *fakeGraph, *fakeGenerator) {
	st := newFakeStore()
	gr := newFakeGraph()
	gen := &fakeGenerator{imageURL: "https://images.example/portrait.png"}
	return NewService(st, gr, gen), st, gr, gen
}

func createTestCasting(t *testing.T, svc *Service, name string) *graph.CastingNode {
	t.Helper()
	node, err := svc.CreateCasting(context.Background(), &store.CastingRecord{
		Name: name, Age: 30, Gender: "female", Role: "lead",
	})
	require.NoError(t, err)
	return node
}

func TestCreateCasting_DualWrite(t *testing.T) {
	svc, st, gr, _ := newTestService()

	node := createTestCasting(t, svc, "Mina")

	rec := st.records[node.ID]
	require.NotNil(t, rec)
	assert.Equal(t, rec.ID, node.ID)
	require.NotNil(t, gr.nodes[node.ID])
	assert.Equal(t, "Mina", gr.nodes[node.ID].Name)
}

func TestCreateCasting_GraphFailureIsPartialWrite(t *testing.T) {
	svc, st, gr, _ := newTestService()
	gr.failCreateNode = true

	_, err := svc.CreateCasting(context.Background(), &store.CastingRecord{Name: "Mina"})

	require.Error(t, err)
	assert.Equal(t, "SYNC001", errors.CodeOf(err))
	// the relational write stays committed
	assert.Len(t, st.records, 1)
}

func TestUpdateCastingInfo_MissingRecord(t *testing.T) {
	svc, _, _, _ := newTestService()

	_, err := svc.UpdateCastingInfo(context.Background(), 99, "x", 1, "female", "lead", "", "")

	require.Error(t, err)
	assert.Equal(t, "CASTING001", errors.CodeOf(err))
}

func TestUpdateCastingInfo_MissingTwinIsNeverAutoCreated(t *testing.T) {
	svc, _, gr, _ := newTestService()
	node := createTestCasting(t, svc, "Mina")
	delete(gr.nodes, node.ID)

	_, err := svc.UpdateCastingInfo(context.Background(), node.ID, "Mina", 31, "female", "lead", "", "")

	require.Error(t, err)
	assert.Equal(t, "CASTING002", errors.CodeOf(err))
	assert.NotContains(t, gr.nodes, node.ID)
}

func TestDeleteCasting_SoftDeletesBothStores(t *testing.T) {
	svc, st, gr, _ := newTestService()
	node := createTestCasting(t, svc, "Mina")

	require.NoError(t, svc.DeleteCasting(context.Background(), node.ID))

	assert.True(t, st.deleted[node.ID])
	assert.True(t, gr.deleted[node.ID])

	err := svc.DeleteCasting(context.Background(), node.ID)
	require.Error(t, err)
	assert.Equal(t, "CASTING001", errors.CodeOf(err))
}

func TestCreateConnection_GeneratesUUIDWhenEmpty(t *testing.T) {
	svc, _, _, _ := newTestService()
	a := createTestCasting(t, svc, "Mina")
	b := createTestCasting(t, svc, "Junho")

	conn, err := svc.CreateConnection(context.Background(), ConnectionRequest{
		SourceID: a.ID, TargetID: b.ID, Label: "rival", Kind: graph.Directional,
	})

	require.NoError(t, err)
	assert.NotEmpty(t, conn.UUID)
	assert.Equal(t, a.ID, conn.SourceID)
	assert.Equal(t, b.ID, conn.TargetID)
}

func TestCreateConnection_UnknownEndpoint(t *testing.T) {
	svc, _, _, _ := newTestService()
	a := createTestCasting(t, svc, "Mina")

	_, err := svc.CreateConnection(context.Background(), ConnectionRequest{
		SourceID: a.ID, TargetID: 99, Label: "rival", Kind: graph.Directional,
	})

	require.Error(t, err)
	assert.Equal(t, "CASTING001", errors.CodeOf(err))
}

func TestCreateConnection_InvalidKind(t *testing.T) {
	svc, _, _, _ := newTestService()

	_, err := svc.CreateConnection(context.Background(), ConnectionRequest{
		SourceID: 1, TargetID: 2, Kind: "SIDEWAYS",
	})

	require.Error(t, err)
	assert.Equal(t, "CONN004", errors.CodeOf(err))
}

func TestCreateConnection_ReadBackMiss(t *testing.T) {
	svc, _, gr, _ := newTestService()
	a := createTestCasting(t, svc, "Mina")
	b := createTestCasting(t, svc, "Junho")
	gr.dropReadBack = true

	_, err := svc.CreateConnection(context.Background(), ConnectionRequest{
		SourceID: a.ID, TargetID: b.ID, Label: "rival", Kind: graph.Directional,
	})

	require.Error(t, err)
	assert.Equal(t, "CONN001", errors.CodeOf(err))
}

func TestCreateConnection_BidirectionalMatchesReversedEndpoints(t *testing.T) {
	svc, _, gr, _ := newTestService()
	a := createTestCasting(t, svc, "Mina")
	b := createTestCasting(t, svc, "Junho")

	conn, err := svc.CreateConnection(context.Background(), ConnectionRequest{
		SourceID: a.ID, TargetID: b.ID, Label: "siblings", Kind: graph.Bidirectional,
	})
	require.NoError(t, err)

	// the read back from the other endpoint sees the same single edge
	fromTarget, err := gr.OutgoingConnections(context.Background(), b.ID, graph.Bidirectional)
	require.NoError(t, err)
	require.Len(t, fromTarget, 1)
	assert.Equal(t, conn.UUID, fromTarget[0].UUID)
}

func TestRenameConnection_NoMatch(t *testing.T) {
	svc, _, _, _ := newTestService()
	a := createTestCasting(t, svc, "Mina")
	b := createTestCasting(t, svc, "Junho")

	_, err := svc.RenameConnection(context.Background(), "missing-uuid", a.ID, b.ID, graph.Directional, "allies")

	require.Error(t, err)
	assert.Equal(t, "CONN002", errors.CodeOf(err))
}

func TestRenameConnection_KindDispatch(t *testing.T) {
	svc, _, _, _ := newTestService()
	a := createTestCasting(t, svc, "Mina")
	b := createTestCasting(t, svc, "Junho")

	conn, err := svc.CreateConnection(context.Background(), ConnectionRequest{
		SourceID: a.ID, TargetID: b.ID, Label: "siblings", Kind: graph.Bidirectional,
	})
	require.NoError(t, err)

	// bidirectional rename works with the endpoints swapped
	renamed, err := svc.RenameConnection(context.Background(), conn.UUID, b.ID, a.ID, graph.Bidirectional, "twins")
	require.NoError(t, err)
	assert.Equal(t, "twins", renamed.Label)

	// a directional rename of the same uuid matches nothing
	_, err = svc.RenameConnection(context.Background(), conn.UUID, a.ID, b.ID, graph.Directional, "twins")
	require.Error(t, err)
	assert.Equal(t, "CONN002", errors.CodeOf(err))
}

func TestDeleteConnection_Counts(t *testing.T) {
	svc, _, gr, _ := newTestService()
	a := createTestCasting(t, svc, "Mina")
	b := createTestCasting(t, svc, "Junho")

	conn, err := svc.CreateConnection(context.Background(), ConnectionRequest{
		SourceID: a.ID, TargetID: b.ID, Label: "rival", Kind: graph.Directional,
	})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteConnection(context.Background(), conn.UUID))

	err = svc.DeleteConnection(context.Background(), conn.UUID)
	require.Error(t, err)
	assert.Equal(t, "CONN001", errors.CodeOf(err))

	two := int64(2)
	gr.deleteCount = &two
	err = svc.DeleteConnection(context.Background(), "duplicated-uuid")
	require.Error(t, err)
	assert.Equal(t, "CONN003", errors.CodeOf(err))
}

func TestGetProjectGraph(t *testing.T) {
	svc, _, _, _ := newTestService()
	a := createTestCasting(t, svc, "Mina")
	b := createTestCasting(t, svc, "Junho")
	_, err := svc.CreateConnection(context.Background(), ConnectionRequest{
		SourceID: a.ID, TargetID: b.ID, Label: "rival", Kind: graph.Directional,
	})
	require.NoError(t, err)

	pg, err := svc.GetProjectGraph(context.Background(), 1)

	require.NoError(t, err)
	assert.Len(t, pg.Castings, 2)
	assert.Len(t, pg.Connections, 1)
}

func TestGenerateCharacterImage_PersistsURLInBothStores(t *testing.T) {
	svc, st, gr, gen := newTestService()
	node := createTestCasting(t, svc, "Mina")

	url, err := svc.GenerateCharacterImage(context.Background(), node.ID)

	require.NoError(t, err)
	assert.Equal(t, gen.imageURL, url)
	assert.True(t, strings.Contains(gen.lastPrompt, "Mina"))
	assert.Equal(t, url, st.records[node.ID].ImageURL)
	assert.Equal(t, url, gr.nodes[node.ID].ImageURL)
}

func TestGenerateCharacterImage_UnknownCasting(t *testing.T) {
	svc, _, _, _ := newTestService()

	_, err := svc.GenerateCharacterImage(context.Background(), 99)

	require.Error(t, err)
	assert.Equal(t, "CASTING001", errors.CodeOf(err))
}

func TestExtractCast_PassesKnownCastings(t *testing.T) {
	svc, _, _, gen := newTestService()
	node := createTestCasting(t, svc, "Mina")
	gen.summaries = []adapter.CastingSummary{
		{ID: node.ID, Name: "Mina", Gender: "female"},
		{ID: 0, Name: "Junho", Gender: "male"},
	}

	summaries, err := svc.ExtractCast(context.Background(), 1, "Mina met Junho at the pier.")

	require.NoError(t, err)
	require.Len(t, summaries, 2)
	require.Len(t, gen.lastKnown, 1)
	assert.Equal(t, node.ID, gen.lastKnown[0].ID)
	assert.Equal(t, "Mina met Junho at the pier.", gen.lastManuscript)
}

func TestAppearInPlot(t *testing.T) {
	svc, _, gr, _ := newTestService()
	node := createTestCasting(t, svc, "Mina")

	require.NoError(t, svc.AppearInPlot(context.Background(), node.ID, 7))
	assert.Equal(t, [2]int64{node.ID, 7}, gr.appearances[0])

	err := svc.AppearInPlot(context.Background(), 99, 7)
	require.Error(t, err)
	assert.Equal(t, "CASTING001", errors.CodeOf(err))
}
