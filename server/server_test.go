package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wfunc/bingoserver/game"
	"github.com/wfunc/bingoserver/monitor"
	"github.com/wfunc/bingoserver/network"
	"github.com/wfunc/bingoserver/room"
	"github.com/wfunc/bingoserver/session"
)

// identitySource deals 1..25 row-major to both cards and gives slot 0 the first turn.
type identitySource struct{}

func (identitySource) Shuffle(int, func(i, j int)) {}
func (identitySource) IntN(int) int                { return 0 }

type testClient struct {
	t  *testing.T
	ws *websocket.Conn
}

func newTestServer(t *testing.T, opts Options) (*GameServer, *httptest.Server) {
	t.Helper()
	rooms := room.NewRoomManager(room.NewCodeGenerator(6))
	coord := game.NewCoordinator(rooms, session.NewManager(), game.Options{
		Room: room.Options{Source: identitySource{}},
	})
	if opts.MessageRate == 0 {
		opts.MessageRate = 1000
		opts.MessageBurst = 1000
	}
	s := NewGameServer(coord, monitor.NewMonitor("test"), opts)
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return s, srv
}

func dial(t *testing.T, srv *httptest.Server) *testClient {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { ws.Close() })
	return &testClient{t: t, ws: ws}
}

func (c *testClient) send(msgID uint16, v any) {
	c.t.Helper()
	var data []byte
	if v != nil {
		var err error
		data, err = json.Marshal(v)
		require.NoError(c.t, err)
	}
	c.sendRaw(msgID, data)
}

func (c *testClient) sendRaw(msgID uint16, data []byte) {
	c.t.Helper()
	frame, err := network.EncodePacket(msgID, data)
	require.NoError(c.t, err)
	require.NoError(c.t, c.ws.WriteMessage(websocket.BinaryMessage, frame))
}

// expect reads frames until one with msgID arrives and decodes it into v.
func (c *testClient) expect(msgID uint16, v any) {
	c.t.Helper()
	c.ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		_, raw, err := c.ws.ReadMessage()
		require.NoError(c.t, err, "waiting for message %d", msgID)
		packet, err := network.DecodePacket(raw)
		require.NoError(c.t, err)
		if packet.MsgID != msgID {
			continue
		}
		if v != nil {
			require.NoError(c.t, json.Unmarshal(packet.Data, v))
		}
		return
	}
}

// framesBefore reads until msgID arrives and returns the ids read before it.
func (c *testClient) framesBefore(msgID uint16) []uint16 {
	c.t.Helper()
	c.ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	var seen []uint16
	for {
		_, raw, err := c.ws.ReadMessage()
		require.NoError(c.t, err, "waiting for message %d", msgID)
		packet, err := network.DecodePacket(raw)
		require.NoError(c.t, err)
		if packet.MsgID == msgID {
			return seen
		}
		seen = append(seen, packet.MsgID)
	}
}

func (c *testClient) expectError(code string) {
	c.t.Helper()
	var msg network.ErrorMessage
	c.expect(network.MsgTypeError, &msg)
	assert.Equal(c.t, code, msg.Code)
}

func (c *testClient) join(code, name string) network.JoinedMessage {
	c.t.Helper()
	c.send(network.MsgTypeJoinRoom, network.JoinRoomRequest{RoomCode: code, PlayerName: name})
	var joined network.JoinedMessage
	c.expect(network.MsgTypeJoinRoom, &joined)
	return joined
}

func createRoom(c *testClient) string {
	c.t.Helper()
	c.send(network.MsgTypeCreateRoom, network.CreateRoomRequest{PlayerName: "alice"})
	var resp network.CreateRoomResponse
	c.expect(network.MsgTypeCreateRoom, &resp)
	require.NotEmpty(c.t, resp.RoomCode)
	return resp.RoomCode
}

func TestGameServer_PlaysToDraw(t *testing.T) {
	_, srv := newTestServer(t, Options{})
	alice := dial(t, srv)
	bob := dial(t, srv)

	code := createRoom(alice)
	a := alice.join(code, "alice")
	assert.Equal(t, 0, a.Slot)
	alice.expect(network.MsgTypeWaiting, nil)

	b := bob.join(code, "bob")
	assert.Equal(t, 1, b.Slot)

	var startA, startB network.GameStartMessage
	alice.expect(network.MsgTypeGameStart, &startA)
	bob.expect(network.MsgTypeGameStart, &startB)
	assert.True(t, startA.YourTurn)
	assert.False(t, startB.YourTurn)
	assert.Equal(t, "bob", startA.Opponent)

	// Identical cards: the first row completes for both on the fifth call.
	players := []struct {
		c  *testClient
		id string
	}{{alice, a.PlayerID}, {bob, b.PlayerID}}
	for n := 1; n <= 5; n++ {
		p := players[(n-1)%2]
		p.c.send(network.MsgTypeCallNumber, network.CallNumberRequest{RoomCode: code, PlayerID: p.id, Number: n})
		var called network.CalledMessage
		alice.expect(network.MsgTypeCalled, &called)
		assert.Equal(t, n, called.Last)
		bob.expect(network.MsgTypeCalled, nil)
	}

	var draw network.DrawMessage
	alice.expect(network.MsgTypeDraw, &draw)
	assert.True(t, draw.Ended)
	assert.Equal(t, [2]int{1, 1}, draw.Lines)
	bob.expect(network.MsgTypeDraw, nil)

	alice.send(network.MsgTypeCallNumber, network.CallNumberRequest{RoomCode: code, PlayerID: a.PlayerID, Number: 6})
	alice.expectError(game.CodeRoomNotFound)
}

func TestGameServer_ErrorsGoToCaller(t *testing.T) {
	_, srv := newTestServer(t, Options{})
	alice := dial(t, srv)
	bob := dial(t, srv)

	code := createRoom(alice)
	a := alice.join(code, "alice")
	b := bob.join(code, "bob")
	alice.expect(network.MsgTypeGameStart, nil)
	bob.expect(network.MsgTypeGameStart, nil)

	bob.send(network.MsgTypeCallNumber, network.CallNumberRequest{RoomCode: code, PlayerID: b.PlayerID, Number: 3})
	bob.expectError(game.CodeOutOfTurn)

	// bob cannot act for alice's player.
	bob.send(network.MsgTypeCallNumber, network.CallNumberRequest{RoomCode: code, PlayerID: a.PlayerID, Number: 3})
	bob.expectError(game.CodePlayerNotFound)

	alice.send(network.MsgTypeCallNumber, network.CallNumberRequest{RoomCode: code, PlayerID: a.PlayerID, Number: 26})
	alice.expectError(game.CodeInvalidNumber)

	alice.send(network.MsgTypeCallNumber, network.CallNumberRequest{PlayerID: a.PlayerID, Number: 3})
	alice.expectError(game.CodeRoomRequired)

	alice.sendRaw(network.MsgTypeJoinRoom, []byte("{not json"))
	alice.expectError(game.CodeBadRequest)

	alice.send(999, nil)
	alice.expectError(game.CodeBadRequest)

	require.NoError(t, alice.ws.WriteMessage(websocket.BinaryMessage, []byte{0x00, 0x01}))
	alice.expectError(game.CodeBadRequest)

	// The rejected calls left the turn with alice.
	alice.send(network.MsgTypeCallNumber, network.CallNumberRequest{RoomCode: code, PlayerID: a.PlayerID, Number: 3})
	var called network.CalledMessage
	bob.expect(network.MsgTypeCalled, &called)
	assert.Equal(t, []int{3}, called.Called)
}

func TestGameServer_JoinErrors(t *testing.T) {
	_, srv := newTestServer(t, Options{})
	c := dial(t, srv)

	c.send(network.MsgTypeJoinRoom, network.JoinRoomRequest{RoomCode: "nope00", PlayerName: "x"})
	c.expectError(game.CodeRoomNotFound)

	code := createRoom(c)
	c.join(code, "a")
	c.join(code, "b")
	c.send(network.MsgTypeJoinRoom, network.JoinRoomRequest{RoomCode: code, PlayerName: "c"})
	c.expectError(game.CodeRoomFull)
}

func TestGameServer_DisconnectEndsGame(t *testing.T) {
	s, srv := newTestServer(t, Options{})
	alice := dial(t, srv)
	bob := dial(t, srv)

	code := createRoom(alice)
	alice.join(code, "alice")
	bob.join(code, "bob")
	bob.expect(network.MsgTypeGameStart, nil)

	alice.ws.Close()

	var left network.OpponentLeftMessage
	bob.expect(network.MsgTypeOpponentLeft, &left)
	assert.Equal(t, "left", left.Reason)
	assert.True(t, left.Ended)

	// The room is removed right after the notice goes out.
	assert.Eventually(t, func() bool {
		return s.coordinator.RoomCount() == 0
	}, 2*time.Second, 10*time.Millisecond)

	bob.send(network.MsgTypeRoomCount, nil)
	var count network.RoomCountMessage
	bob.expect(network.MsgTypeRoomCount, &count)
	assert.Equal(t, 0, count.Count)
}

func TestGameServer_ResumeOnNewConnection(t *testing.T) {
	_, srv := newTestServer(t, Options{})
	alice := dial(t, srv)
	bob := dial(t, srv)

	code := createRoom(alice)
	a := alice.join(code, "alice")
	bob.join(code, "bob")
	alice.expect(network.MsgTypeGameStart, nil)

	again := dial(t, srv)
	again.send(network.MsgTypeResume, network.ResumeRequest{PlayerID: a.PlayerID})
	var ack network.JoinedMessage
	again.expect(network.MsgTypeResume, &ack)
	assert.Equal(t, code, ack.RoomCode)
	var start network.GameStartMessage
	again.expect(network.MsgTypeGameStart, &start)
	assert.True(t, start.YourTurn)

	again.send(network.MsgTypeCallNumber, network.CallNumberRequest{RoomCode: code, PlayerID: a.PlayerID, Number: 9})
	var called network.CalledMessage
	bob.expect(network.MsgTypeCalled, &called)
	assert.Equal(t, 9, called.Last)
}

func TestGameServer_ResumeLeavesOtherRoomsAlone(t *testing.T) {
	_, srv := newTestServer(t, Options{})
	shared := dial(t, srv)
	bob := dial(t, srv)
	carol := dial(t, srv)

	first := createRoom(shared)
	p := shared.join(first, "p")
	bob.join(first, "bob")
	second := createRoom(shared)
	q := shared.join(second, "q")
	carol.join(second, "carol")
	carol.expect(network.MsgTypeGameStart, nil)

	again := dial(t, srv)
	again.send(network.MsgTypeResume, network.ResumeRequest{PlayerID: p.PlayerID})
	again.expect(network.MsgTypeGameStart, nil)

	// The shared connection still plays q in the second room.
	shared.send(network.MsgTypeCallNumber, network.CallNumberRequest{RoomCode: second, PlayerID: q.PlayerID, Number: 7})
	assert.NotContains(t, carol.framesBefore(network.MsgTypeCalled), uint16(network.MsgTypeOpponentLeft))

	// It no longer acts for p.
	shared.send(network.MsgTypeCallNumber, network.CallNumberRequest{RoomCode: first, PlayerID: p.PlayerID, Number: 7})
	shared.expectError(game.CodePlayerNotFound)

	again.send(network.MsgTypeCallNumber, network.CallNumberRequest{RoomCode: first, PlayerID: p.PlayerID, Number: 7})
	var called network.CalledMessage
	bob.expect(network.MsgTypeCalled, &called)
	assert.Equal(t, []int{7}, called.Called)
}

func TestGameServer_RateLimited(t *testing.T) {
	_, srv := newTestServer(t, Options{MessageRate: 0.001, MessageBurst: 1})
	c := dial(t, srv)

	c.send(network.MsgTypeHeartbeat, nil)
	c.expect(network.MsgTypeHeartbeat, nil)

	c.send(network.MsgTypeHeartbeat, nil)
	c.expectError(game.CodeRateLimited)
}

func TestGameServer_HTTPEndpoints(t *testing.T) {
	_, srv := newTestServer(t, Options{})
	c := dial(t, srv)
	createRoom(c)

	resp, err := http.Get(srv.URL + "/rooms/count")
	require.NoError(t, err)
	defer resp.Body.Close()
	var count network.RoomCountMessage
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&count))
	assert.Equal(t, 1, count.Count)

	metrics, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer metrics.Body.Close()
	assert.Equal(t, http.StatusOK, metrics.StatusCode)
}

func TestGameServer_ShutdownNotifiesPlayers(t *testing.T) {
	s, srv := newTestServer(t, Options{})
	c := dial(t, srv)
	code := createRoom(c)
	c.join(code, "alice")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Shutdown(ctx))

	var msg network.ShutdownMessage
	c.expect(network.MsgTypeServerShutdown, &msg)
	assert.NotEmpty(t, msg.Message)
}
