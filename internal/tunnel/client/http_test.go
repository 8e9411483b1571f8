package client

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func proxyRequest(t *testing.T, header http.Header) *http.Request {
	t.Helper()
	u, err := url.Parse("http://origin.test:8080/path?q=1")
	require.NoError(t, err)
	return &http.Request{
		Method:     http.MethodGet,
		URL:        u,
		RequestURI: u.String(),
		Host:       "origin.test:8080",
		Header:     header,
	}
}

// TestRewriteRequest_ConnectionTokens Connection 中列出的字段被删除
func TestRewriteRequest_ConnectionTokens(t *testing.T) {
	req := proxyRequest(t, http.Header{
		"Connection":      {"keep-alive, X-Session-Token", "x-debug"},
		"X-Session-Token": {"secret"},
		"X-Debug":         {"1"},
		"Keep-Alive":      {"timeout=5"},
		"Accept":          {"*/*"},
		"User-Agent":      {"curl/8.0"},
	})

	rewriteRequest(req)

	assert.Empty(t, req.Header.Get("Connection"))
	assert.Empty(t, req.Header.Get("X-Session-Token"))
	assert.Empty(t, req.Header.Get("X-Debug"))
	assert.Empty(t, req.Header.Get("Keep-Alive"))
	assert.Equal(t, "*/*", req.Header.Get("Accept"))
	assert.Equal(t, "curl/8.0", req.Header.Get("User-Agent"))
	assert.Empty(t, req.RequestURI)
	assert.Equal(t, "origin.test:8080", req.Host)
	assert.True(t, req.Close)

	t.Log("✅ Connection 列出的逐跳头已删除")
}

// TestRewriteRequest_TETrailers TE 仅保留 trailers
func TestRewriteRequest_TETrailers(t *testing.T) {
	cases := []struct {
		name string
		te   []string
		want string
	}{
		{name: "trailers", te: []string{"trailers"}, want: "trailers"},
		{name: "mixed", te: []string{"gzip, Trailers;q=1"}, want: "trailers"},
		{name: "none", te: []string{"gzip"}, want: ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := proxyRequest(t, http.Header{"Te": tc.te})
			rewriteRequest(req)
			assert.Equal(t, tc.want, req.Header.Get("Te"))
		})
	}
}

// TestRewriteRequest_NoUserAgent 未带 User-Agent 时不补默认值
func TestRewriteRequest_NoUserAgent(t *testing.T) {
	req := proxyRequest(t, http.Header{})
	rewriteRequest(req)

	ua, ok := req.Header["User-Agent"]
	require.True(t, ok)
	assert.Equal(t, []string{""}, ua)
}
