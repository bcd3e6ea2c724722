package handlers_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Pandnak/dancers-matcher/handlers"
	"github.com/Pandnak/dancers-matcher/live"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startFeedServer(t *testing.T, allowedOrigins []string) string {
	t.Helper()

	hub := live.NewHub()
	go hub.Run()

	handler := handlers.NewWebSocketHandler(hub, allowedOrigins)
	server := httptest.NewServer(http.HandlerFunc(handler.ServeWs))
	t.Cleanup(server.Close)
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func TestPairFeedOriginCheck(t *testing.T) {
	t.Run("allowed origin connects", func(t *testing.T) {
		url := startFeedServer(t, []string{"https://dancers.example"})

		header := http.Header{"Origin": {"https://dancers.example"}}
		conn, resp, err := websocket.DefaultDialer.Dial(url, header)
		require.NoError(t, err)
		defer conn.Close()
		defer resp.Body.Close()

		assert.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)
	})

	t.Run("foreign origin is rejected", func(t *testing.T) {
		url := startFeedServer(t, []string{"https://dancers.example"})

		header := http.Header{"Origin": {"https://evil.example"}}
		conn, resp, err := websocket.DefaultDialer.Dial(url, header)
		require.Error(t, err)
		require.Nil(t, conn)
		require.NotNil(t, resp)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("empty allow-list admits any origin", func(t *testing.T) {
		url := startFeedServer(t, nil)

		header := http.Header{"Origin": {"https://anywhere.example"}}
		conn, resp, err := websocket.DefaultDialer.Dial(url, header)
		require.NoError(t, err)
		defer conn.Close()
		defer resp.Body.Close()

		assert.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)
	})
}
