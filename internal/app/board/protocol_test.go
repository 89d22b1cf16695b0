package board

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"syncboard/internal/app/user"
)

// fakeStore is an in-memory Store honoring the same contract as the
// database-backed implementation: idempotent stroke creation, set-add
// membership, and author-scoped soft-delete flips.
type fakeStore struct {
	mu      sync.Mutex
	rooms   map[string]RoomInfo
	members map[string][]user.User
	strokes map[string][]Stroke
	clock   time.Time
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		rooms:   make(map[string]RoomInfo),
		members: make(map[string][]user.User),
		strokes: make(map[string][]Stroke),
		clock:   time.Unix(1700000000, 0),
	}
}

func (f *fakeStore) addRoom(id, name, createdBy string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rooms[id] = RoomInfo{ID: id, Name: name, CreatedBy: createdBy}
}

func (f *fakeStore) GetRoomInfo(_ context.Context, roomID string) (RoomInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	info, ok := f.rooms[roomID]
	if !ok {
		return RoomInfo{}, ErrRoomNotFound
	}
	return info, nil
}

func (f *fakeStore) AddMember(_ context.Context, roomID, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.members[roomID] {
		if m.ID == userID {
			return nil
		}
	}
	f.members[roomID] = append(f.members[roomID], user.User{ID: userID, Username: "user-" + userID})
	return nil
}

func (f *fakeStore) RemoveMember(_ context.Context, roomID, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	members := f.members[roomID]
	for i, m := range members {
		if m.ID == userID {
			f.members[roomID] = append(members[:i], members[i+1:]...)
			return nil
		}
	}
	return nil
}

func (f *fakeStore) ListMembers(_ context.Context, roomID string) ([]user.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]user.User(nil), f.members[roomID]...), nil
}

func (f *fakeStore) CreateStroke(_ context.Context, stroke Stroke) (Stroke, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.strokes[stroke.RoomID] {
		if s.StrokeID == stroke.StrokeID {
			return s, nil
		}
	}
	f.clock = f.clock.Add(time.Millisecond)
	stroke.CreatedAt = f.clock
	f.strokes[stroke.RoomID] = append(f.strokes[stroke.RoomID], stroke)
	return stroke, nil
}

func (f *fakeStore) ListStrokes(_ context.Context, roomID string) ([]Stroke, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var live []Stroke
	for _, s := range f.strokes[roomID] {
		if !s.IsDeleted {
			live = append(live, s)
		}
	}
	return live, nil
}

func (f *fakeStore) SetStrokeDeleted(_ context.Context, roomID, strokeID, authorID string, deleted bool) (Stroke, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, s := range f.strokes[roomID] {
		if s.StrokeID == strokeID {
			if s.UserID != authorID {
				return Stroke{}, ErrStrokeNotFound
			}
			f.strokes[roomID][i].IsDeleted = deleted
			return f.strokes[roomID][i], nil
		}
	}
	return Stroke{}, ErrStrokeNotFound
}

func (f *fakeStore) ClearStrokes(_ context.Context, roomID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.strokes[roomID] {
		f.strokes[roomID][i].IsDeleted = true
	}
	return nil
}

func (f *fakeStore) liveStrokeIDs(roomID string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ids []string
	for _, s := range f.strokes[roomID] {
		if !s.IsDeleted {
			ids = append(ids, s.StrokeID)
		}
	}
	return ids
}

// --- test helpers ---

func newTestManager(t *testing.T) (*Manager, *fakeStore) {
	t.Helper()
	store := newFakeStore()
	m := NewManager(store)
	t.Cleanup(m.Shutdown)
	return m, store
}

// Protocol handlers never touch the raw connection, so a nil conn is safe as
// long as the pumps are not started.
func newTestClient(m *Manager, id string) *Client {
	return NewClient(m, nil, user.User{ID: id, Username: "user-" + id})
}

func send(t *testing.T, c *Client, msgType MessageType, payload any) {
	t.Helper()
	data, err := MarshalEvent(msgType, payload)
	if err != nil {
		t.Fatalf("failed to marshal %s: %v", msgType, err)
	}
	c.dispatch(data)
}

func nextEvent(t *testing.T, c *Client) Envelope {
	t.Helper()
	select {
	case data := <-c.send:
		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			t.Fatalf("received unparsable frame: %v", err)
		}
		return env
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}
	return Envelope{}
}

func expectEvent(t *testing.T, c *Client, want MessageType) Envelope {
	t.Helper()
	env := nextEvent(t, c)
	if env.Type != want {
		t.Fatalf("expected %s event, got %s (payload %s)", want, env.Type, env.Payload)
	}
	return env
}

func expectNoEvent(t *testing.T, c *Client) {
	t.Helper()
	select {
	case data := <-c.send:
		t.Fatalf("expected no event, got %s", data)
	case <-time.After(100 * time.Millisecond):
	}
}

func decodePayload(t *testing.T, env Envelope, dst any) {
	t.Helper()
	if err := json.Unmarshal(env.Payload, dst); err != nil {
		t.Fatalf("failed to decode %s payload: %v", env.Type, err)
	}
}

func expectError(t *testing.T, c *Client, wantCode int) {
	t.Helper()
	env := expectEvent(t, c, TypeError)
	var ev ErrorEvent
	decodePayload(t, env, &ev)
	if ev.Code != wantCode {
		t.Fatalf("expected error code %d, got %d (%s)", wantCode, ev.Code, ev.Message)
	}
}

// join performs a full join handshake and consumes the three reply events.
func join(t *testing.T, c *Client, roomID string) {
	t.Helper()
	send(t, c, TypeJoinRoom, JoinRoomPayload{RoomID: roomID})
	expectEvent(t, c, TypeRoomInfo)
	expectEvent(t, c, TypeRoomHistory)
	expectEvent(t, c, TypeRoomMembers)
}

func endStroke(t *testing.T, c *Client, roomID, strokeID string) {
	t.Helper()
	send(t, c, TypeStrokeEnd, StrokeEndPayload{
		RoomID:    roomID,
		StrokeID:  strokeID,
		Points:    []Point{{X: 1, Y: 2}, {X: 3, Y: 4}},
		Color:     "#112233",
		BrushSize: 4,
	})
}

// --- tests ---

func TestJoinRoomDeliversInfoHistoryAndMembers(t *testing.T) {
	m, store := newTestManager(t)
	store.addRoom("r1", "sketches", "owner")

	// Pre-existing history with one soft-deleted stroke in the middle.
	store.strokes["r1"] = []Stroke{
		{StrokeID: "s1", RoomID: "r1", UserID: "a"},
		{StrokeID: "s2", RoomID: "r1", UserID: "a", IsDeleted: true},
		{StrokeID: "s3", RoomID: "r1", UserID: "b"},
	}

	c := newTestClient(m, "u1")
	send(t, c, TypeJoinRoom, JoinRoomPayload{RoomID: "r1"})

	info := expectEvent(t, c, TypeRoomInfo)
	var infoEv RoomInfoEvent
	decodePayload(t, info, &infoEv)
	if infoEv.Room.ID != "r1" || infoEv.Room.Name != "sketches" {
		t.Errorf("unexpected room info: %+v", infoEv.Room)
	}
	if len(infoEv.Room.Members) != 1 || infoEv.Room.Members[0].ID != "u1" {
		t.Errorf("expected joiner in member list, got %+v", infoEv.Room.Members)
	}

	history := expectEvent(t, c, TypeRoomHistory)
	var strokes []Stroke
	decodePayload(t, history, &strokes)
	if len(strokes) != 2 || strokes[0].StrokeID != "s1" || strokes[1].StrokeID != "s3" {
		t.Errorf("expected live strokes [s1 s3] in order, got %+v", strokes)
	}

	membersEnv := expectEvent(t, c, TypeRoomMembers)
	var members []user.User
	decodePayload(t, membersEnv, &members)
	if len(members) != 1 || members[0].ID != "u1" {
		t.Errorf("unexpected members broadcast: %+v", members)
	}
}

func TestJoinUnknownRoomFails(t *testing.T) {
	m, _ := newTestManager(t)

	c := newTestClient(m, "u1")
	send(t, c, TypeJoinRoom, JoinRoomPayload{RoomID: "nope"})
	expectError(t, c, 2101)
}

func TestJoinRoomTwiceIsIdempotent(t *testing.T) {
	m, store := newTestManager(t)
	store.addRoom("r1", "sketches", "owner")

	c := newTestClient(m, "u1")
	join(t, c, "r1")
	join(t, c, "r1")

	members, _ := store.ListMembers(context.Background(), "r1")
	if len(members) != 1 {
		t.Errorf("expected 1 member after double join, got %d", len(members))
	}
}

// gateStore holds one armed ListStrokes call after its snapshot is taken,
// opening a window where strokes commit between the history query and its
// delivery to the joiner.
type gateStore struct {
	Store
	mu      sync.Mutex
	armed   bool
	entered chan struct{}
	release chan struct{}
}

func (g *gateStore) arm() {
	g.mu.Lock()
	g.armed = true
	g.mu.Unlock()
}

func (g *gateStore) ListStrokes(ctx context.Context, roomID string) ([]Stroke, error) {
	strokes, err := g.Store.ListStrokes(ctx, roomID)

	g.mu.Lock()
	armed := g.armed
	g.armed = false
	g.mu.Unlock()

	if armed {
		g.entered <- struct{}{}
		<-g.release
	}
	return strokes, err
}

func TestJoinerReceivesStrokeCommittedDuringHistorySnapshot(t *testing.T) {
	base := newFakeStore()
	base.addRoom("r1", "sketches", "owner")
	gated := &gateStore{Store: base, entered: make(chan struct{}, 1), release: make(chan struct{})}
	m := NewManager(gated)
	t.Cleanup(m.Shutdown)

	painter := newTestClient(m, "painter")
	join(t, painter, "r1")

	joiner := newTestClient(m, "joiner")
	joinData, err := MarshalEvent(TypeJoinRoom, JoinRoomPayload{RoomID: "r1"})
	if err != nil {
		t.Fatalf("marshal join: %v", err)
	}

	gated.arm()
	done := make(chan struct{})
	go func() {
		defer close(done)
		joiner.dispatch(joinData)
	}()
	<-gated.entered

	// A stroke commits and broadcasts while the joiner's history query is
	// still in flight.
	endStroke(t, painter, "r1", "s1")
	expectEvent(t, painter, TypeStrokeComplete)

	close(gated.release)
	<-done

	// The stroke must reach the joiner through the history or through the
	// relay; missing both would leave the joiner's picture diverged for good.
	seen := false
	for i := 0; i < 4 && !seen; i++ {
		env := nextEvent(t, joiner)
		switch env.Type {
		case TypeRoomHistory:
			var strokes []Stroke
			decodePayload(t, env, &strokes)
			for _, s := range strokes {
				if s.StrokeID == "s1" {
					seen = true
				}
			}
		case TypeStrokeComplete:
			var s Stroke
			decodePayload(t, env, &s)
			if s.StrokeID == "s1" {
				seen = true
			}
		}
	}
	if !seen {
		t.Fatal("joiner saw neither a history entry nor a relay for the concurrent stroke")
	}
}

func TestStrokeRelayExcludesSender(t *testing.T) {
	m, store := newTestManager(t)
	store.addRoom("r1", "sketches", "owner")

	sender := newTestClient(m, "alice")
	receiver := newTestClient(m, "bob")
	join(t, sender, "r1")
	join(t, receiver, "r1")
	expectEvent(t, sender, TypeRoomMembers) // bob's join

	send(t, sender, TypeStrokeStart, StrokeStartPayload{RoomID: "r1", StrokeID: "s1", Point: Point{X: 5, Y: 6}})
	send(t, sender, TypeStrokePoint, StrokePointPayload{RoomID: "r1", StrokeID: "s1", Point: Point{X: 7, Y: 8}, Color: "#fff", BrushSize: 2})

	start := expectEvent(t, receiver, TypeStrokeStart)
	var startEv StrokeStartEvent
	decodePayload(t, start, &startEv)
	if startEv.UserID != "alice" || startEv.StrokeID != "s1" || startEv.Point.X != 5 {
		t.Errorf("unexpected relay: %+v", startEv)
	}

	point := expectEvent(t, receiver, TypeStrokePoint)
	var pointEv StrokePointEvent
	decodePayload(t, point, &pointEv)
	if pointEv.UserID != "alice" || pointEv.Point.Y != 8 {
		t.Errorf("unexpected relay: %+v", pointEv)
	}

	expectNoEvent(t, sender)
}

func TestStrokeEventsRequireJoin(t *testing.T) {
	m, store := newTestManager(t)
	store.addRoom("r1", "sketches", "owner")

	c := newTestClient(m, "u1")
	send(t, c, TypeStrokeStart, StrokeStartPayload{RoomID: "r1", StrokeID: "s1"})
	expectError(t, c, 2203)

	endStroke(t, c, "r1", "s1")
	expectError(t, c, 2203)

	if ids := store.liveStrokeIDs("r1"); len(ids) != 0 {
		t.Errorf("stroke persisted without membership: %v", ids)
	}
}

func TestStrokeEndPersistsOnceAndBroadcastsToAll(t *testing.T) {
	m, store := newTestManager(t)
	store.addRoom("r1", "sketches", "owner")

	sender := newTestClient(m, "alice")
	receiver := newTestClient(m, "bob")
	join(t, sender, "r1")
	join(t, receiver, "r1")
	expectEvent(t, sender, TypeRoomMembers)

	endStroke(t, sender, "r1", "s1")

	for _, c := range []*Client{sender, receiver} {
		env := expectEvent(t, c, TypeStrokeComplete)
		var stroke Stroke
		decodePayload(t, env, &stroke)
		if stroke.StrokeID != "s1" || stroke.UserID != "alice" || len(stroke.Points) != 2 {
			t.Errorf("unexpected canonical stroke: %+v", stroke)
		}
	}

	// A retransmitted strokeEnd re-broadcasts the stored stroke without
	// inserting a duplicate.
	endStroke(t, sender, "r1", "s1")
	expectEvent(t, sender, TypeStrokeComplete)
	expectEvent(t, receiver, TypeStrokeComplete)

	if ids := store.liveStrokeIDs("r1"); len(ids) != 1 {
		t.Errorf("expected exactly one stored stroke, got %v", ids)
	}
}

func TestStrokeEndRejectsEmptyStroke(t *testing.T) {
	m, store := newTestManager(t)
	store.addRoom("r1", "sketches", "owner")

	c := newTestClient(m, "u1")
	join(t, c, "r1")

	send(t, c, TypeStrokeEnd, StrokeEndPayload{RoomID: "r1", StrokeID: "s1", Points: nil})
	expectError(t, c, 2202)

	send(t, c, TypeStrokeEnd, StrokeEndPayload{RoomID: "r1", StrokeID: "", Points: []Point{{X: 1}}})
	expectError(t, c, 2202)
}

func TestUndoRedoRoundTrip(t *testing.T) {
	m, store := newTestManager(t)
	store.addRoom("r1", "sketches", "owner")

	alice := newTestClient(m, "alice")
	bob := newTestClient(m, "bob")
	join(t, alice, "r1")
	join(t, bob, "r1")
	expectEvent(t, alice, TypeRoomMembers)

	endStroke(t, alice, "r1", "s1")
	original := expectEvent(t, alice, TypeStrokeComplete)
	expectEvent(t, bob, TypeStrokeComplete)

	send(t, alice, TypeUndo, UndoPayload{RoomID: "r1", StrokeID: "s1"})
	for _, c := range []*Client{alice, bob} {
		env := expectEvent(t, c, TypeUndo)
		var ev UndoEvent
		decodePayload(t, env, &ev)
		if ev.StrokeID != "s1" {
			t.Errorf("unexpected undo target: %+v", ev)
		}
	}
	if ids := store.liveStrokeIDs("r1"); len(ids) != 0 {
		t.Errorf("stroke still live after undo: %v", ids)
	}

	send(t, alice, TypeRedo, RedoPayload{RoomID: "r1", StrokeID: "s1"})
	restored := expectEvent(t, alice, TypeStrokeComplete)
	expectEvent(t, bob, TypeStrokeComplete)

	var before, after Stroke
	decodePayload(t, original, &before)
	decodePayload(t, restored, &after)
	if after.StrokeID != before.StrokeID || after.Color != before.Color ||
		len(after.Points) != len(before.Points) || !after.CreatedAt.Equal(before.CreatedAt) {
		t.Errorf("redo did not restore the original stroke: %+v vs %+v", before, after)
	}

	if ids := store.liveStrokeIDs("r1"); len(ids) != 1 {
		t.Errorf("expected stroke live again after redo, got %v", ids)
	}
}

func TestUndoOtherAuthorsStrokeFails(t *testing.T) {
	m, store := newTestManager(t)
	store.addRoom("r1", "sketches", "owner")

	alice := newTestClient(m, "alice")
	bob := newTestClient(m, "bob")
	join(t, alice, "r1")
	join(t, bob, "r1")
	expectEvent(t, alice, TypeRoomMembers)

	endStroke(t, alice, "r1", "s1")
	expectEvent(t, alice, TypeStrokeComplete)
	expectEvent(t, bob, TypeStrokeComplete)

	send(t, bob, TypeUndo, UndoPayload{RoomID: "r1", StrokeID: "s1"})
	expectError(t, bob, 2201)
	expectNoEvent(t, alice)

	if ids := store.liveStrokeIDs("r1"); len(ids) != 1 {
		t.Errorf("cross-author undo mutated the board: %v", ids)
	}
}

func TestUndoUnknownStrokeFails(t *testing.T) {
	m, store := newTestManager(t)
	store.addRoom("r1", "sketches", "owner")

	c := newTestClient(m, "u1")
	join(t, c, "r1")

	send(t, c, TypeUndo, UndoPayload{RoomID: "r1", StrokeID: "ghost"})
	expectError(t, c, 2201)
}

func TestClearSoftDeletesEverything(t *testing.T) {
	m, store := newTestManager(t)
	store.addRoom("r1", "sketches", "owner")

	alice := newTestClient(m, "alice")
	bob := newTestClient(m, "bob")
	join(t, alice, "r1")
	join(t, bob, "r1")
	expectEvent(t, alice, TypeRoomMembers)

	endStroke(t, alice, "r1", "s1")
	expectEvent(t, alice, TypeStrokeComplete)
	expectEvent(t, bob, TypeStrokeComplete)
	endStroke(t, bob, "r1", "s2")
	expectEvent(t, alice, TypeStrokeComplete)
	expectEvent(t, bob, TypeStrokeComplete)

	send(t, bob, TypeClear, ClearPayload{RoomID: "r1"})
	expectEvent(t, alice, TypeClear)
	expectEvent(t, bob, TypeClear)

	if ids := store.liveStrokeIDs("r1"); len(ids) != 0 {
		t.Errorf("strokes survived clear: %v", ids)
	}

	// Cleared strokes keep their rows, so the author can still redo one.
	send(t, alice, TypeRedo, RedoPayload{RoomID: "r1", StrokeID: "s1"})
	expectEvent(t, alice, TypeStrokeComplete)
	expectEvent(t, bob, TypeStrokeComplete)
	if ids := store.liveStrokeIDs("r1"); len(ids) != 1 {
		t.Errorf("expected s1 restored after clear, got %v", ids)
	}
}

func TestLateJoinerSeesConvergedHistory(t *testing.T) {
	m, store := newTestManager(t)
	store.addRoom("r1", "sketches", "owner")

	alice := newTestClient(m, "alice")
	join(t, alice, "r1")
	endStroke(t, alice, "r1", "s1")
	expectEvent(t, alice, TypeStrokeComplete)
	endStroke(t, alice, "r1", "s2")
	expectEvent(t, alice, TypeStrokeComplete)
	send(t, alice, TypeUndo, UndoPayload{RoomID: "r1", StrokeID: "s1"})
	expectEvent(t, alice, TypeUndo)

	late := newTestClient(m, "late")
	send(t, late, TypeJoinRoom, JoinRoomPayload{RoomID: "r1"})
	expectEvent(t, late, TypeRoomInfo)

	history := expectEvent(t, late, TypeRoomHistory)
	var strokes []Stroke
	decodePayload(t, history, &strokes)
	if len(strokes) != 1 || strokes[0].StrokeID != "s2" {
		t.Errorf("late joiner history mismatch: %+v", strokes)
	}
}

func TestLeaveRoomBroadcastsRemainingMembers(t *testing.T) {
	m, store := newTestManager(t)
	store.addRoom("r1", "sketches", "owner")

	alice := newTestClient(m, "alice")
	bob := newTestClient(m, "bob")
	join(t, alice, "r1")
	join(t, bob, "r1")
	expectEvent(t, alice, TypeRoomMembers)

	send(t, bob, TypeLeaveRoom, LeaveRoomPayload{RoomID: "r1"})

	env := expectEvent(t, alice, TypeRoomMembers)
	var members []user.User
	decodePayload(t, env, &members)
	if len(members) != 1 || members[0].ID != "alice" {
		t.Errorf("unexpected members after leave: %+v", members)
	}

	// Bob is unsubscribed and no longer allowed to draw.
	send(t, bob, TypeStrokeStart, StrokeStartPayload{RoomID: "r1", StrokeID: "s1"})
	expectError(t, bob, 2203)
}

func TestMalformedPayloadReportsInvalidParams(t *testing.T) {
	m, _ := newTestManager(t)

	c := newTestClient(m, "u1")
	c.dispatch([]byte(`{"type":"joinRoom","payload":"not-an-object"}`))
	expectError(t, c, 1001)
}

func TestUnknownMessageTypeIsIgnored(t *testing.T) {
	m, _ := newTestManager(t)

	c := newTestClient(m, "u1")
	c.dispatch([]byte(`{"type":"teleport","payload":{}}`))
	c.dispatch([]byte(`not json at all`))
	expectNoEvent(t, c)
}
