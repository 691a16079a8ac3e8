package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeAddr(t *testing.T) {
	tests := map[string]string{
		"":               "127.0.0.1:3000",
		"garbage":        "127.0.0.1:3000",
		":3000":          "127.0.0.1:3000",
		"0.0.0.0:8081":   "127.0.0.1:8081",
		"[::]:8081":      "127.0.0.1:8081",
		"10.0.0.5:3000":  "10.0.0.5:3000",
		"localhost:3001": "localhost:3001",
	}
	for in, want := range tests {
		assert.Equal(t, want, normalizeAddr(in), in)
	}
}

func TestProbe(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr bool
	}{
		{"healthy", http.StatusOK, `{"status":"ok"}`, false},
		{"bad status code", http.StatusServiceUnavailable, `{"status":"ok"}`, true},
		{"unhealthy body", http.StatusOK, `{"status":"degraded"}`, true},
		{"not json", http.StatusOK, `ok`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/api/v1/health", r.URL.Path)
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			err := probe(context.Background(), srv.Client(), srv.URL)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
