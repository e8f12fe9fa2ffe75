package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pitwars/pitwars/internal/config"
	"github.com/pitwars/pitwars/internal/protocol"
	"github.com/pitwars/pitwars/internal/room"
)

func newTestServer(t *testing.T) (*Server, *httptest.Server, *room.Registry) {
	t.Helper()
	registry := room.NewRegistry(nil)
	t.Cleanup(registry.Close)
	s := New(&config.Server{Port: 3000, LogLevel: "info"}, registry, nil)
	ts := httptest.NewServer(s.Routes())
	t.Cleanup(ts.Close)
	return s, ts, registry
}

func TestHealthEndpoints(t *testing.T) {
	_, ts, _ := newTestServer(t)

	for _, path := range []string{"/", "/zhealth"} {
		resp, err := http.Get(ts.URL + path)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
		resp.Body.Close()
	}
}

func TestCatalogEndpoints(t *testing.T) {
	_, ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/powers")
	require.NoError(t, err)
	defer resp.Body.Close()
	var powersOut []map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&powersOut))
	assert.Len(t, powersOut, 5)

	resp, err = http.Get(ts.URL + "/bots")
	require.NoError(t, err)
	defer resp.Body.Close()
	var botsOut []map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&botsOut))
	assert.Len(t, botsOut, 7)
}

func wsURL(ts *httptest.Server, query string) string {
	return "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws?" + query
}

func readMsgOfType(t *testing.T, conn *websocket.Conn, want protocol.MsgType) map[string]any {
	t.Helper()
	for i := 0; i < 20; i++ {
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)
		var out map[string]any
		require.NoError(t, json.Unmarshal(data, &out))
		if protocol.MsgType(out["type"].(float64)) == want {
			return out
		}
	}
	t.Fatalf("message of type %d never arrived", want)
	return nil
}

func TestJoinCreatesRoomAndSendsID(t *testing.T) {
	_, ts, registry := newTestServer(t)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(ts, "room=r1&username=alice"), nil)
	require.NoError(t, err)
	defer conn.Close()

	idMsg := readMsgOfType(t, conn, protocol.MsgID)
	assert.NotEmpty(t, idMsg["id"])
	readMsgOfType(t, conn, protocol.MsgRoomState)

	assert.Equal(t, 1, registry.Len())
}

func TestSpectatorRoomNotFound(t *testing.T) {
	_, ts, _ := newTestServer(t)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(ts, "room=nope&spectator=true"), nil)
	require.NoError(t, err)
	defer conn.Close()

	errMsg := readMsgOfType(t, conn, protocol.MsgError)
	assert.Equal(t, "room not found", errMsg["message"])

	// the server closes the socket after the error
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err = conn.ReadMessage()
	assert.Error(t, err)
}

func TestReconnectToken(t *testing.T) {
	_, ts, _ := newTestServer(t)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(ts, "room=r1&username=alice"), nil)
	require.NoError(t, err)
	idMsg := readMsgOfType(t, conn, protocol.MsgID)
	firstID := idMsg["id"].(string)
	conn.Close()

	conn2, _, err := websocket.DefaultDialer.Dial(wsURL(ts, "room=r1&username=alice&prevSessionData=r1-"+firstID), nil)
	require.NoError(t, err)
	defer conn2.Close()

	idMsg2 := readMsgOfType(t, conn2, protocol.MsgID)
	assert.Equal(t, firstID, idMsg2["id"], "reconnect restores the participant id")
}

func TestParsePrevSession(t *testing.T) {
	assert.Equal(t, "abc-123", parsePrevSession("r1-abc-123", "r1"))
	assert.Equal(t, "", parsePrevSession("other-abc", "r1"))
	assert.Equal(t, "", parsePrevSession("", "r1"))
}
