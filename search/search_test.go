package search

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tripweaver/tripweaver/core"
)

func newTestSource(baseURL string) *NaverSource {
	return NewNaverSource(core.SearchConfig{
		BaseURL:      baseURL,
		ClientID:     "id",
		ClientSecret: "secret",
		Timeout:      5 * time.Second,
	})
}

func TestSearchFormatsResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/search/webkr.json", r.URL.Path)
		assert.Equal(t, "제주 맛집", r.URL.Query().Get("query"))
		assert.Equal(t, "10", r.URL.Query().Get("display"))
		assert.Equal(t, "sim", r.URL.Query().Get("sort"))
		assert.Equal(t, "id", r.Header.Get("X-Naver-Client-Id"))
		assert.Equal(t, "secret", r.Header.Get("X-Naver-Client-Secret"))

		_, _ = w.Write([]byte(`{"items":[
			{"title":"<b>Noodle</b> House","link":"https://blog.example/1","description":"best &amp; cheapest"},
			{"title":"Grill Place","link":"https://blog.example/2","description":"charcoal <i>grill</i>"}
		]}`))
	}))
	defer server.Close()

	source := newTestSource(server.URL)
	out, err := source.Search(context.Background(), "제주 맛집")
	require.NoError(t, err)

	assert.Contains(t, out, "1. Noodle House")
	assert.Contains(t, out, "Summary: best & cheapest")
	assert.Contains(t, out, "Link: https://blog.example/1")
	assert.Contains(t, out, "2. Grill Place")
	assert.NotContains(t, out, "<b>")
}

func TestSearchEmptyResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"items":[]}`))
	}))
	defer server.Close()

	source := newTestSource(server.URL)
	out, err := source.Search(context.Background(), "nowhere")
	require.NoError(t, err)
	assert.Contains(t, out, "No search results")
}

func TestSearchNonOKStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	source := newTestSource(server.URL)
	_, err := source.Search(context.Background(), "query")
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrRequestFailed))
}

func TestFetchDetailExtractsReadableText(t *testing.T) {
	paragraph := strings.Repeat("The entrance fee for adults is 5,000 won and the site opens at nine. ", 20)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(`<!DOCTYPE html><html><head><title>Visitor Guide</title></head><body>
			<article><h1>Visitor Guide</h1><p>` + paragraph + `</p></article>
		</body></html>`))
	}))
	defer server.Close()

	source := newTestSource(server.URL)
	text, err := source.FetchDetail(context.Background(), server.URL+"/guide")
	require.NoError(t, err)
	assert.Contains(t, text, "entrance fee for adults is 5,000 won")
	assert.LessOrEqual(t, len(text), maxDetailLength)
}

func TestFetchDetailNonOKStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	source := newTestSource(server.URL)
	_, err := source.FetchDetail(context.Background(), server.URL+"/gone")
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrRequestFailed))
}

func TestStripHTMLTags(t *testing.T) {
	cases := map[string]string{
		"<b>bold</b> text":        "bold text",
		"a &lt;tag&gt; &amp; b":   "a <tag> & b",
		"  padded  ":              "padded",
		`say &quot;hello&quot;`:   `say "hello"`,
		"plain":                   "plain",
		"<a href='x'>link</a> ok": "link ok",
	}
	for in, want := range cases {
		assert.Equal(t, want, stripHTMLTags(in))
	}
}
