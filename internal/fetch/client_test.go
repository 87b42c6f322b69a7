package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestGetReturnsBodyAndContentType(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "test-agent", r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte("<html></html>"))
	}))
	t.Cleanup(srv.Close)

	client := NewClient(Config{Timeout: 5 * time.Second, UserAgent: "test-agent"})
	resp, err := client.Get(context.Background(), srv.URL)
	require.NoError(t, err)
	require.True(t, resp.OK())
	require.True(t, resp.IsHTML())
	require.Equal(t, "<html></html>", string(resp.Body))
}

func TestGetNonOKIsNotAnError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	}))
	t.Cleanup(srv.Close)

	client := NewClient(Config{Timeout: 5 * time.Second})
	resp, err := client.Get(context.Background(), srv.URL)
	require.NoError(t, err)
	require.False(t, resp.OK())
	require.Equal(t, http.StatusGone, resp.StatusCode)
}

func TestGetFollowsRedirectsAndReportsFinalURL(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/start" {
			http.Redirect(w, r, "/final", http.StatusMovedPermanently)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("landed"))
	}))
	t.Cleanup(srv.Close)

	client := NewClient(Config{Timeout: 5 * time.Second})
	resp, err := client.Get(context.Background(), srv.URL+"/start")
	require.NoError(t, err)
	require.Equal(t, srv.URL+"/final", resp.URL)
	require.Equal(t, "landed", string(resp.Body))
}

func TestGetCapsBodySize(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(make([]byte, 4096))
	}))
	t.Cleanup(srv.Close)

	client := NewClient(Config{Timeout: 5 * time.Second, MaxBodyBytes: 1024})
	resp, err := client.Get(context.Background(), srv.URL)
	require.NoError(t, err)
	require.Len(t, resp.Body, 1024)
}

func TestIsHTMLVariants(t *testing.T) {
	t.Parallel()

	require.True(t, Response{ContentType: "text/html"}.IsHTML())
	require.True(t, Response{ContentType: "TEXT/HTML; charset=utf-8"}.IsHTML())
	require.True(t, Response{ContentType: "application/xhtml+xml"}.IsHTML())
	require.False(t, Response{ContentType: "application/json"}.IsHTML())
	require.False(t, Response{}.IsHTML())
}
