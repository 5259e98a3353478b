package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Config{
		URL:     srv.URL,
		APIKey:  "test-key",
		Model:   "test-model",
		Timeout: 5 * time.Second,
	}, nil)
}

func TestCompleteSendsExpectedRequest(t *testing.T) {
	var gotPayload map[string]any
	var gotHeaders http.Header
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotHeaders = r.Header.Clone()
		_ = json.NewDecoder(r.Body).Decode(&gotPayload)
		_ = json.NewEncoder(w).Encode(map[string]any{"text": "ok"})
	})

	opts := DefaultOptions()
	out, err := client.Complete(context.Background(), "describe the district", opts)
	require.NoError(t, err)
	assert.Equal(t, "ok", out)

	assert.Equal(t, "test-key", gotHeaders.Get("API-Key"))
	assert.Equal(t, "Bearer test-key", gotHeaders.Get("Authorization"))
	assert.Equal(t, "application/json", gotHeaders.Get("Content-Type"))

	assert.Equal(t, "test-model", gotPayload["model"])
	assert.Equal(t, "describe the district", gotPayload["prompt"])
	assert.Equal(t, false, gotPayload["stream"])
	assert.Equal(t, float64(25), gotPayload["seed"])
	assert.Nil(t, gotPayload["stop"])
}

func TestCompleteEnvelopeVariants(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{"chat choices", `{"choices":[{"message":{"content":"from message"}}]}`, "from message"},
		{"legacy choices", `{"choices":[{"text":"from choice text"}]}`, "from choice text"},
		{"top-level text", `{"text":"from text"}`, "from text"},
		{"top-level response", `{"response":"from response"}`, "from response"},
		{"top-level content", `{"content":"from content"}`, "from content"},
		{"bare string", `"just a string"`, "just a string"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(tc.body))
			})
			out, err := client.Complete(context.Background(), "p", DefaultOptions())
			require.NoError(t, err)
			assert.Equal(t, tc.want, out)
		})
	}
}

func TestCompleteUnknownEnvelopeReturnsBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"weird":{"nested":"shape"}}`))
	})
	out, err := client.Complete(context.Background(), "p", DefaultOptions())
	require.NoError(t, err)
	assert.JSONEq(t, `{"weird":{"nested":"shape"}}`, out)
}

func TestCompleteNon2xxFails(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	})
	_, err := client.Complete(context.Background(), "p", DefaultOptions())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestCompleteMalformedBodyFails(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("<html>gateway error</html>"))
	})
	_, err := client.Complete(context.Background(), "p", DefaultOptions())
	assert.Error(t, err)
}

func TestCompleteContextCancellation(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		// Drain the body: client disconnects are only surfaced on the request
		// context once the unread body no longer blocks the connection reads.
		_, _ = io.Copy(io.Discard, r.Body)
		<-r.Context().Done()
	})
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := client.Complete(ctx, "p", DefaultOptions())
	assert.Error(t, err)
}

func TestDecodeCompletionTextPriorityOrder(t *testing.T) {
	// message.content beats choice text and the top-level keys.
	raw := []byte(`{"choices":[{"message":{"content":"winner"},"text":"loser"}],"text":"also loser"}`)
	out, err := DecodeCompletionText(raw)
	require.NoError(t, err)
	assert.Equal(t, "winner", out)

	raw = []byte(`{"choices":[{"text":"choice"}],"text":"top"}`)
	out, err = DecodeCompletionText(raw)
	require.NoError(t, err)
	assert.Equal(t, "choice", out)
}

func TestDecodeCompletionTextEmptyStringsSkipped(t *testing.T) {
	raw := []byte(`{"choices":[{"message":{"content":""}}],"response":"fallback"}`)
	out, err := DecodeCompletionText(raw)
	require.NoError(t, err)
	assert.Equal(t, "fallback", out)
}
