package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/figbridge/internal/ir"
	"github.com/roach88/figbridge/internal/relay"
	"github.com/roach88/figbridge/internal/testutil"
)

type textArgs struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

func (textArgs) Kind() ir.Kind { return ir.KindSetText }

func newTestServer(t *testing.T, opts ...relay.Option) (*relay.Relay, *httptest.Server) {
	t.Helper()
	r := relay.New(opts...)
	srv := httptest.NewServer(NewHandler(r, 0, nil))
	t.Cleanup(srv.Close)
	return r, srv
}

func do(t *testing.T, method, url, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func assertCORS(t *testing.T, resp *http.Response) {
	t.Helper()
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "GET,POST,OPTIONS", resp.Header.Get("Access-Control-Allow-Methods"))
	assert.Equal(t, "Content-Type", resp.Header.Get("Access-Control-Allow-Headers"))
}

func TestNext_EmptyQueue(t *testing.T) {
	_, srv := newTestServer(t)

	for i := 0; i < 2; i++ {
		resp := do(t, http.MethodGet, srv.URL+"/next", "")
		assert.Equal(t, http.StatusNoContent, resp.StatusCode)
		assertCORS(t, resp)
	}
}

func TestNext_DeliversCommand(t *testing.T) {
	r, srv := newTestServer(t, relay.WithIDGenerator(relay.NewFixedGenerator("c-1")))

	done := make(chan ir.Result, 1)
	go func() {
		res, _ := r.Dispatch(context.Background(), ir.KindSetText, textArgs{ID: "1:2", Text: "<Hi>"}, 5*time.Second)
		done <- res
	}()
	require.Eventually(t, func() bool { return r.Pending() == 1 }, time.Second, time.Millisecond)

	resp := do(t, http.MethodGet, srv.URL+"/next?t=1", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assertCORS(t, resp)

	var raw map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&raw))
	assert.Equal(t, map[string]any{
		"id":      "c-1",
		"command": "set-text",
		"args":    map[string]any{"id": "1:2", "text": "<Hi>"},
	}, raw)

	post := do(t, http.MethodPost, srv.URL+"/result", `{"id":"c-1","ok":true,"result":{"id":"1:2"}}`)
	assert.Equal(t, http.StatusOK, post.StatusCode)
	var ack map[string]bool
	require.NoError(t, json.NewDecoder(post.Body).Decode(&ack))
	assert.Equal(t, map[string]bool{"ok": true}, ack)

	select {
	case res := <-done:
		assert.True(t, res.OK)
		assert.Equal(t, "1:2", res.Result["id"])
	case <-time.After(2 * time.Second):
		t.Fatal("dispatch never completed")
	}
}

func TestResult_Malformed(t *testing.T) {
	r, srv := newTestServer(t)

	tests := []struct {
		name string
		body string
	}{
		{"not json", "{nope"},
		{"missing id", `{"ok":true}`},
		{"empty id", `{"id":"","ok":true}`},
		{"empty body", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := do(t, http.MethodPost, srv.URL+"/result", tt.body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assertCORS(t, resp)
		})
	}
	assert.Equal(t, 0, r.Orphans())
}

func TestResult_TooLarge(t *testing.T) {
	_, srv := newTestServer(t)

	big := `{"id":"x","ok":true,"error":"` + strings.Repeat("a", MaxBodyBytes) + `"}`
	resp, err := http.Post(srv.URL+"/result", "application/json", bytes.NewBufferString(big))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestResult_UnknownIDAccepted(t *testing.T) {
	r, srv := newTestServer(t)

	resp := do(t, http.MethodPost, srv.URL+"/result", `{"id":"stale","ok":false,"error":"late"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, r.Orphans())
}

func TestHealth(t *testing.T) {
	clock := testutil.NewManualClock(time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC))
	r, srv := newTestServer(t, relay.WithClock(clock.Now))

	readHealth := func() Health {
		resp := do(t, http.MethodGet, srv.URL+"/health", "")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assertCORS(t, resp)
		var h Health
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&h))
		return h
	}

	assert.Equal(t, Health{Connected: false}, readHealth())

	do(t, http.MethodGet, srv.URL+"/next", "")
	assert.True(t, readHealth().Connected)

	clock.Advance(3 * time.Second)
	assert.False(t, readHealth().Connected)

	// Health checks are not polls.
	assert.False(t, readHealth().Connected)
	assert.Equal(t, 0, r.Pending())
}

func TestOptionsAndUnknownRoutes(t *testing.T) {
	_, srv := newTestServer(t)

	tests := []struct {
		method string
		path   string
		want   int
	}{
		{http.MethodOptions, "/result", http.StatusNoContent},
		{http.MethodOptions, "/anything", http.StatusNoContent},
		{http.MethodGet, "/", http.StatusNotFound},
		{http.MethodGet, "/result", http.StatusNotFound},
		{http.MethodPost, "/next", http.StatusNotFound},
		{http.MethodPut, "/result", http.StatusNotFound},
		{http.MethodDelete, "/health", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			resp := do(t, tt.method, srv.URL+tt.path, "")
			assert.Equal(t, tt.want, resp.StatusCode)
			assertCORS(t, resp)
		})
	}
}

func TestHandler_WithSimulatedPeerOverHTTP(t *testing.T) {
	r, srv := newTestServer(t)

	peer := testutil.NewPeer(testutil.HTTPEndpoint{BaseURL: srv.URL}, testutil.NodeIDs())
	stop := peer.Start(context.Background())
	defer stop()

	for i, want := range []string{"1:1", "1:2"} {
		res, err := r.Dispatch(context.Background(), ir.KindSetText, textArgs{ID: "0:1", Text: "t"}, 5*time.Second)
		require.NoError(t, err, "dispatch %d", i)
		assert.Equal(t, want, res.Result["nodeId"])
	}
	assert.Empty(t, peer.Errors())
}
