package http

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Cycle int `json:"cycle"`
}

func TestSendAndParseSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		assert.Equal(t, "5", r.URL.Query().Get("limit"))
		_, _ = w.Write([]byte(`{"cycle":7}`))
	}))
	defer srv.Close()

	var out payload
	err := NewClient().SendAndParse(context.Background(), &RequestOptions{
		Method:      MethodGet,
		URL:         srv.URL,
		QueryParams: map[string][]string{"limit": {"5"}},
	}, &out)
	require.NoError(t, err)
	assert.Equal(t, 7, out.Cycle)
}

func TestSendAndParseStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "backend exploded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	err := NewClient().SendAndParse(context.Background(), &RequestOptions{Method: MethodGet, URL: srv.URL}, &payload{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrStatus))
	assert.False(t, errors.Is(err, ErrTransport))

	fe, ok := AsFetchError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusServiceUnavailable, fe.Status)
	assert.Equal(t, "Service Unavailable", fe.StatusText)
	assert.Equal(t, "backend exploded", fe.Body)
}

func TestSendAndParseDecodeError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"cycle":`))
	}))
	defer srv.Close()

	err := NewClient().SendAndParse(context.Background(), &RequestOptions{Method: MethodGet, URL: srv.URL}, &payload{})
	assert.True(t, errors.Is(err, ErrDecode), "got %v", err)
}

func TestSendAndParseTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	err := NewClient().SendAndParse(context.Background(), &RequestOptions{Method: MethodGet, URL: url}, &payload{})
	assert.True(t, errors.Is(err, ErrTransport), "got %v", err)
}

func TestSendAndParsePostsJSONBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		assert.JSONEq(t, `{"actual_price":1.5}`, string(body))
		_, _ = w.Write([]byte(`{"cycle":1}`))
	}))
	defer srv.Close()

	var out payload
	err := NewClient().SendAndParse(context.Background(), &RequestOptions{
		Method: MethodPost,
		URL:    srv.URL,
		Body:   map[string]float64{"actual_price": 1.5},
	}, &out)
	require.NoError(t, err)
	assert.Equal(t, 1, out.Cycle)
}

func TestUpstreamErrorCarriesKind(t *testing.T) {
	appErr := UpstreamError(&FetchError{Kind: KindStatus, Status: 500, StatusText: "Internal Server Error"})
	assert.Equal(t, http.StatusBadGateway, appErr.Status)
	assert.Equal(t, "status", appErr.Params["kind"])
}
