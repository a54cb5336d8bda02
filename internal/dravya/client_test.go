package dravya

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClientDefaultsAndValidation(t *testing.T) {
	c, err := NewClient("")
	require.NoError(t, err)
	assert.Equal(t, DefaultBaseURL, c.BaseURL())

	c, err = NewClient("http://backend:9000/")
	require.NoError(t, err)
	assert.Equal(t, "http://backend:9000", c.BaseURL())

	for _, bad := range []string{"ftp://backend", "backend:8000", "http://", "://x"} {
		_, err := NewClient(bad)
		assert.Error(t, err, bad)
	}
}

func TestIdentifySendsJSONAndDecodesResult(t *testing.T) {
	var got IdentifyRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/identify", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"dravya":"Ganga Jal","description":"river water","image_base64":"iVBORw0KGgo="}`))
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL)
	require.NoError(t, err)

	req := IdentifyRequest{PH: 7.2, TDS: 220, Turbidity: 3.5, Gas: 15, ColorIndex: 12, Temp: 24.6}
	res, err := c.Identify(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, req, got)
	assert.Equal(t, "Ganga Jal", res.Dravya)
	assert.True(t, res.HasImage())
	assert.Equal(t, "iVBORw0KGgo=", res.Image())
}

func TestIdentifyNullImage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"dravya":"Tulsi","description":"holy basil","image_base64":null}`))
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL)
	require.NoError(t, err)

	res, err := c.Identify(context.Background(), IdentifyRequest{})
	require.NoError(t, err)
	assert.False(t, res.HasImage())
	assert.Empty(t, res.Image())
}

func TestSearchUsesQueryParameter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "Neem & Haldi", r.URL.Query().Get("name"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.Write([]byte(`{"dravya":"Neem","description":"bitter"}`))
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL)
	require.NoError(t, err)

	res, err := c.Search(context.Background(), "Neem & Haldi")
	require.NoError(t, err)
	assert.Equal(t, "Neem", res.Dravya)
	assert.Nil(t, res.ImageBase64)
}

func TestResearchPostsBothFields(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/research", r.URL.Path)
		var body ResearchRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, ResearchRequest{Dravya: "Neem", Query: "uses?"}, body)
		w.Write([]byte(`{"answer":"many"}`))
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL)
	require.NoError(t, err)

	ans, err := c.Research(context.Background(), "Neem", "uses?")
	require.NoError(t, err)
	assert.Equal(t, "many", ans.Answer)
}

func TestHealth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health", r.URL.Path)
		w.Write([]byte(`{"status":"ok","model_loaded":true,"classes":["Neem","Tulsi"]}`))
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL)
	require.NoError(t, err)

	h, err := c.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ok", h.Status)
	assert.True(t, h.ModelLoaded)
	assert.Equal(t, []string{"Neem", "Tulsi"}, h.Classes)
}

func TestServerErrorCarriesStatusAndDetail(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		detail string
	}{
		{"string detail", 500, `{"detail":"model unavailable"}`, "model unavailable"},
		{"no detail", 503, `{}`, ""},
		{"plain text body", 502, `Bad Gateway`, ""},
		{"null detail", 500, `{"detail":null}`, ""},
		{"validation list", 422, `{"detail": [ {"loc":["body","pH"], "msg":"field required"} ]}`,
			`[{"loc":["body","pH"],"msg":"field required"}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c, err := NewClient(srv.URL)
			require.NoError(t, err)

			_, err = c.Identify(context.Background(), IdentifyRequest{})
			var derr *Error
			require.True(t, errors.As(err, &derr))
			assert.Equal(t, KindServer, derr.Kind)
			assert.Equal(t, tt.status, derr.Status)
			assert.Equal(t, tt.detail, derr.Detail)
		})
	}
}

func TestUnreachableBackendIsNetworkError(t *testing.T) {
	// Grab a free port and close it so nothing is listening there.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	ln.Close()

	c, err := NewClient("http://" + addr)
	require.NoError(t, err)

	_, err = c.Identify(context.Background(), IdentifyRequest{})
	var derr *Error
	require.True(t, errors.As(err, &derr))
	assert.Equal(t, KindNetwork, derr.Kind)
	assert.Zero(t, derr.Status)
}

func TestUndecodableSuccessBodyIsClientError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>not json</html>`))
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL)
	require.NoError(t, err)

	_, err = c.Search(context.Background(), "x")
	var derr *Error
	require.True(t, errors.As(err, &derr))
	assert.Equal(t, KindClient, derr.Kind)
	assert.Contains(t, derr.Error(), "decode response")
}

func TestUnencodableBodyIsClientError(t *testing.T) {
	c, err := NewClient("")
	require.NoError(t, err)

	err = c.do(context.Background(), "identify", http.MethodPost, "/identify", nil, make(chan int), &IdentifyResult{})
	var derr *Error
	require.True(t, errors.As(err, &derr))
	assert.Equal(t, KindClient, derr.Kind)
	assert.Contains(t, derr.Error(), "encode request")
}
