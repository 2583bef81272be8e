package websocket

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewCheckOrigin(t *testing.T) {
	tests := []struct {
		name    string
		allowed []string
		origin  string
		host    string
		want    bool
	}{
		{"empty list allows all", nil, "https://anything.example", "grid.local", true},
		{"wildcard", []string{"*"}, "https://anything.example", "grid.local", true},
		{"no origin header", []string{"https://a.example"}, "", "grid.local", true},
		{"listed origin", []string{"https://a.example"}, "https://a.example", "grid.local", true},
		{"listed origin case insensitive", []string{"https://A.example"}, "https://a.EXAMPLE", "grid.local", true},
		{"listed origin with path", []string{"https://a.example/app"}, "https://a.example", "grid.local", true},
		{"same host", []string{"https://a.example"}, "http://grid.local:8000", "grid.local:8000", true},
		{"unlisted", []string{"https://a.example"}, "https://b.example", "grid.local", false},
		{"wrong scheme", []string{"https://a.example"}, "http://a.example", "grid.local", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			check := NewCheckOrigin(tt.allowed)
			r := httptest.NewRequest("GET", "/ws", nil)
			r.Host = tt.host
			if tt.origin != "" {
				r.Header.Set("Origin", tt.origin)
			}
			assert.Equal(t, tt.want, check(r))
		})
	}
}

func TestExtractOrigin(t *testing.T) {
	assert.Equal(t, "https://a.example:8443", extractOrigin("https://a.example:8443/path?q=1"))
	assert.Equal(t, "", extractOrigin("not a url"))
	assert.Equal(t, "", extractOrigin(""))
}
