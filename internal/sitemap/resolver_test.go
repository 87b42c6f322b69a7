package sitemap

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/LeoVertizBP/content-scan-engine/internal/fetch"
)

func newResolver(t *testing.T) *Resolver {
	t.Helper()
	return New(fetch.NewClient(fetch.Config{Timeout: 5 * time.Second}), nil)
}

func xmlServer(t *testing.T, docs map[string]string, fetchCounts map[string]int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fetchCounts != nil {
			fetchCounts[r.URL.Path]++
		}
		doc, ok := docs[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/xml")
		_, _ = w.Write([]byte(doc))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func urlsetDoc(locs ...string) string {
	doc := `<?xml version="1.0" encoding="UTF-8"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">`
	for _, loc := range locs {
		doc += fmt.Sprintf("<url><loc>%s</loc></url>", loc)
	}
	return doc + "</urlset>"
}

func indexDoc(locs ...string) string {
	doc := `<?xml version="1.0" encoding="UTF-8"?>
<sitemapindex xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">`
	for _, loc := range locs {
		doc += fmt.Sprintf("<sitemap><loc>%s</loc></sitemap>", loc)
	}
	return doc + "</sitemapindex>"
}

func TestParseSitemapFlat(t *testing.T) {
	t.Parallel()

	srv := xmlServer(t, map[string]string{
		"/sitemap.xml": urlsetDoc("https://example.com/a", "https://example.com/b", "https://example.com/a"),
	}, nil)

	urls := newResolver(t).ParseSitemap(context.Background(), srv.URL+"/sitemap.xml", 0)
	require.Equal(t, []string{"https://example.com/a", "https://example.com/b"}, urls)
}

func TestParseSitemapIndexRecursion(t *testing.T) {
	t.Parallel()

	var srv *httptest.Server
	docs := map[string]string{}
	srv = xmlServer(t, docs, nil)
	docs["/index.xml"] = indexDoc(srv.URL+"/child1.xml", srv.URL+"/child2.xml")
	docs["/child1.xml"] = urlsetDoc("https://example.com/p1", "https://example.com/p2")
	docs["/child2.xml"] = urlsetDoc("https://example.com/p3")

	urls := newResolver(t).ParseSitemap(context.Background(), srv.URL+"/index.xml", 0)
	require.Equal(t, []string{
		"https://example.com/p1",
		"https://example.com/p2",
		"https://example.com/p3",
	}, urls)
}

func TestParseSitemapCycleFetchedOnce(t *testing.T) {
	t.Parallel()

	counts := map[string]int{}
	var srv *httptest.Server
	docs := map[string]string{}
	srv = xmlServer(t, docs, counts)
	// The index points back at itself.
	docs["/loop.xml"] = indexDoc(srv.URL + "/loop.xml")

	urls := newResolver(t).ParseSitemap(context.Background(), srv.URL+"/loop.xml", 0)
	require.Empty(t, urls)
	require.Equal(t, 1, counts["/loop.xml"])
}

func TestParseSitemapMutualCycle(t *testing.T) {
	t.Parallel()

	counts := map[string]int{}
	var srv *httptest.Server
	docs := map[string]string{}
	srv = xmlServer(t, docs, counts)
	docs["/a.xml"] = indexDoc(srv.URL+"/b.xml", srv.URL+"/pages.xml")
	docs["/b.xml"] = indexDoc(srv.URL + "/a.xml")
	docs["/pages.xml"] = urlsetDoc("https://example.com/p1")

	urls := newResolver(t).ParseSitemap(context.Background(), srv.URL+"/a.xml", 0)
	require.Equal(t, []string{"https://example.com/p1"}, urls)
	require.Equal(t, 1, counts["/a.xml"])
	require.Equal(t, 1, counts["/b.xml"])
}

func TestParseSitemapCapStopsFurtherFetches(t *testing.T) {
	t.Parallel()

	counts := map[string]int{}
	var srv *httptest.Server
	docs := map[string]string{}
	srv = xmlServer(t, docs, counts)
	docs["/index.xml"] = indexDoc(srv.URL+"/big.xml", srv.URL+"/never.xml")
	docs["/big.xml"] = urlsetDoc("https://example.com/1", "https://example.com/2", "https://example.com/3")
	docs["/never.xml"] = urlsetDoc("https://example.com/4")

	urls := newResolver(t).ParseSitemap(context.Background(), srv.URL+"/index.xml", 2)
	require.Len(t, urls, 2)
	require.Zero(t, counts["/never.xml"])
}

func TestParseSitemapAbsorbsFetchFailures(t *testing.T) {
	t.Parallel()

	var srv *httptest.Server
	docs := map[string]string{}
	srv = xmlServer(t, docs, nil)
	docs["/index.xml"] = indexDoc(srv.URL+"/missing.xml", srv.URL+"/pages.xml")
	docs["/pages.xml"] = urlsetDoc("https://example.com/kept")

	urls := newResolver(t).ParseSitemap(context.Background(), srv.URL+"/index.xml", 0)
	require.Equal(t, []string{"https://example.com/kept"}, urls)
}

func TestParseSitemapRejectsUnknownDocument(t *testing.T) {
	t.Parallel()

	srv := xmlServer(t, map[string]string{
		"/feed.xml": `<?xml version="1.0"?><rss version="2.0"><channel></channel></rss>`,
	}, nil)

	urls := newResolver(t).ParseSitemap(context.Background(), srv.URL+"/feed.xml", 0)
	require.Empty(t, urls)
}

func TestParseSitemapUnreachableRoot(t *testing.T) {
	t.Parallel()

	urls := newResolver(t).ParseSitemap(context.Background(), "http://127.0.0.1:1/sitemap.xml", 0)
	require.Empty(t, urls)
}
