package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/foxholetools/artyplanner/internal/planner"
	"github.com/foxholetools/artyplanner/pkg/core"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialSession(t *testing.T, srv *httptest.Server, id string, header http.Header) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	u := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/sessions/" + id + "/ws"
	return websocket.DefaultDialer.Dial(u, header)
}

func readView(t *testing.T, conn *websocket.Conn) planner.View {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var v planner.View
	require.NoError(t, conn.ReadJSON(&v))
	return v
}

func TestStream(t *testing.T) {
	a := newTestAPI(t)
	srv := httptest.NewServer(a.router)
	defer srv.Close()

	s, err := a.sessions.Create(context.Background(), testMap, "Live")
	require.NoError(t, err)

	conn, _, err := dialSession(t, srv, s.ID, nil)
	require.NoError(t, err)
	defer conn.Close()

	initial := readView(t, conn)
	assert.Equal(t, s.ID, initial.ID)
	assert.Equal(t, "Live", initial.Name)
	assert.Empty(t, initial.Plan.Targets)

	_, err = s.Place(context.Background(), core.KindTarget, core.Px(200, 300), "")
	require.NoError(t, err)

	update := readView(t, conn)
	assert.Equal(t, "place", update.Op)
	assert.Greater(t, update.Seq, initial.Seq)
	require.Len(t, update.Plan.Targets, 1)
	assert.Equal(t, 200.0, update.Plan.Targets[0].Position.X)
}

func TestStream_SessionClosed(t *testing.T) {
	a := newTestAPI(t)
	srv := httptest.NewServer(a.router)
	defer srv.Close()

	s, err := a.sessions.Create(context.Background(), testMap, "")
	require.NoError(t, err)

	conn, _, err := dialSession(t, srv, s.ID, nil)
	require.NoError(t, err)
	defer conn.Close()
	readView(t, conn)

	require.NoError(t, a.sessions.Remove(s.ID))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)
}

func TestStream_Rejections(t *testing.T) {
	a := newTestAPI(t)
	srv := httptest.NewServer(a.router)
	defer srv.Close()

	_, resp, err := dialSession(t, srv, "missing", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	s, err := a.sessions.Create(context.Background(), testMap, "")
	require.NoError(t, err)

	_, resp, err = dialSession(t, srv, s.ID, http.Header{"Origin": {"https://evil.example"}})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	conn, _, err := dialSession(t, srv, s.ID, http.Header{"Origin": {"https://planner.example"}})
	require.NoError(t, err)
	conn.Close()
}
