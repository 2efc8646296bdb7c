package profile

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLookupReturnsRemoteProfile(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "ana@acero.mx", r.URL.Query().Get("email"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"name":"Ana Torres","role":"Ventas"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second, nil)
	display := client.Lookup(context.Background(), "ana@acero.mx")
	assert.Equal(t, "Ana Torres", display.Name)
	assert.Equal(t, "Ventas", display.Role)
}

func TestLookupFallsBackOnServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second, nil)
	display := client.Lookup(context.Background(), "ana@acero.mx")
	assert.Equal(t, FallbackName, display.Name)
	assert.Equal(t, FallbackRole, display.Role)
}

func TestLookupFallsBackWhenEndpointUnset(t *testing.T) {
	client := NewClient("", time.Second, nil)
	display := client.Lookup(context.Background(), "ana@acero.mx")
	assert.Equal(t, FallbackName, display.Name)
	assert.Equal(t, FallbackRole, display.Role)
}

func TestLookupFallsBackOnGarbageBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second, nil)
	display := client.Lookup(context.Background(), "ana@acero.mx")
	assert.Equal(t, FallbackName, display.Name)
}
