package apify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/LeoVertizBP/content-scan-engine/internal/scan"
)

// handle registers a method-restricted route; Go 1.21's ServeMux does not
// support "METHOD /path" patterns.
func handle(mux *http.ServeMux, method, pattern string, h http.HandlerFunc) {
	mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != method {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h(w, r)
	})
}

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := New(Config{
		BaseURL:  srv.URL,
		APIToken: "test-token",
		ActorIDs: map[scan.Platform]string{
			scan.PlatformYouTube: "yt-actor",
			scan.PlatformTikTok:  "tt-actor",
		},
	}, nil)
	require.NoError(t, err)
	return client, srv
}

func TestNewRequiresToken(t *testing.T) {
	t.Parallel()

	_, err := New(Config{}, nil)
	require.ErrorIs(t, err, ErrMissingToken)
}

func TestStartTask(t *testing.T) {
	t.Parallel()

	var gotInput map[string]any
	mux := http.NewServeMux()
	handle(mux, "POST", "/acts/yt-actor/runs", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "test-token", r.URL.Query().Get("token"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotInput))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"data":{"id":"run-123"}}`))
	})

	client, _ := newTestClient(t, mux)

	handle, err := client.StartTask(context.Background(), scan.PlatformYouTube, scan.TaskParams{
		ChannelURL: "https://youtube.com/@acme",
		MaxResults: 50,
	})
	require.NoError(t, err)
	require.Equal(t, "run-123", handle)
	require.Equal(t, float64(50), gotInput["maxResults"])
}

func TestStartTaskUnknownPlatform(t *testing.T) {
	t.Parallel()

	client, _ := newTestClient(t, http.NewServeMux())

	_, err := client.StartTask(context.Background(), scan.PlatformInstagram, scan.TaskParams{ChannelURL: "https://instagram.com/acme"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "no actor configured")
}

func TestStartTaskErrorStatus(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	handle(mux, "POST", "/acts/yt-actor/runs", func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "quota exceeded", http.StatusPaymentRequired)
	})

	client, _ := newTestClient(t, mux)

	_, err := client.StartTask(context.Background(), scan.PlatformYouTube, scan.TaskParams{ChannelURL: "https://youtube.com/@acme"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "402")
}

func TestTaskStatusMapping(t *testing.T) {
	t.Parallel()

	cases := []struct {
		apify string
		want  scan.TaskState
	}{
		{"READY", scan.TaskStatePending},
		{"RUNNING", scan.TaskStatePending},
		{"SUCCEEDED", scan.TaskStateSucceeded},
		{"FAILED", scan.TaskStateFailed},
		{"TIMED-OUT", scan.TaskStateTimedOut},
		{"ABORTED", scan.TaskStateAborted},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.apify, func(t *testing.T) {
			t.Parallel()

			mux := http.NewServeMux()
			handle(mux, "GET", "/actor-runs/run-123", func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(`{"data":{"status":"` + tc.apify + `"}}`))
			})

			client, _ := newTestClient(t, mux)

			state, err := client.TaskStatus(context.Background(), "run-123")
			require.NoError(t, err)
			require.Equal(t, tc.want, state)
		})
	}
}

func TestTaskResults(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	handle(mux, "GET", "/actor-runs/run-123", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"status":"SUCCEEDED","defaultDatasetId":"ds-9"}}`))
	})
	handle(mux, "GET", "/datasets/ds-9/items", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "test-token", r.URL.Query().Get("token"))
		_, _ = w.Write([]byte(`[{"url":"a"},{"url":"b"}]`))
	})

	client, _ := newTestClient(t, mux)

	items, err := client.TaskResults(context.Background(), "run-123")
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.JSONEq(t, `{"url":"a"}`, string(items[0]))
}

func TestTaskResultsNoDataset(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	handle(mux, "GET", "/actor-runs/run-123", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"status":"SUCCEEDED"}}`))
	})

	client, _ := newTestClient(t, mux)

	_, err := client.TaskResults(context.Background(), "run-123")
	require.Error(t, err)
	require.Contains(t, err.Error(), "no dataset")
}

func TestFetchResource(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("1\n00:00:00,000 --> 00:00:01,000\nhello\n"))
	}))
	t.Cleanup(srv.Close)

	client, _ := newTestClient(t, http.NewServeMux())

	data, err := client.FetchResource(context.Background(), srv.URL+"/subs.srt")
	require.NoError(t, err)
	require.Contains(t, string(data), "hello")
}

func TestFetchResourceErrorStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	}))
	t.Cleanup(srv.Close)

	client, _ := newTestClient(t, http.NewServeMux())

	_, err := client.FetchResource(context.Background(), srv.URL+"/subs.srt")
	require.Error(t, err)
	require.Contains(t, err.Error(), "410")
}
