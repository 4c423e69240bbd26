package hostutil

import (
	"strings"
	"testing"
)

func TestValidateHost(t *testing.T) {
	tests := []struct {
		host string
		ok   bool
	}{
		{"127.0.0.1", true},
		{"0.0.0.0", true},
		{"256.1.1.1", false},
		{"1.2.3", true}, // three labels, treated as a hostname shape
		{"::1", true},
		{"[::1]", true},
		{"fe80::%eth0", false},
		{"localhost", true},
		{"redis.internal", true},
		{"my-host-01", true},
		{"-leading.dash", false},
		{"trailing-.dash", false},
		{"under_score", false},
		{strings.Repeat("a", 254), false},
		{strings.Repeat("a", 64) + ".example", false},
	}
	for _, tt := range tests {
		err := ValidateHost(tt.host)
		if (err == nil) != tt.ok {
			t.Errorf("ValidateHost(%q) = %v, want ok=%v", tt.host, err, tt.ok)
		}
	}
}

func TestValidateHostPort(t *testing.T) {
	tests := []struct {
		addr string
		ok   bool
	}{
		{"localhost:6379", true},
		{"127.0.0.1:8080", true},
		{"[::1]:6379", true},
		{"localhost", false},     // no port
		{"localhost:", false},    // empty port
		{"localhost:0", false},   // port 0 is not dialable
		{"localhost:070", false}, // leading zero
		{"localhost:65536", false},
		{"256.1.1.1:6379", false},
	}
	for _, tt := range tests {
		err := ValidateHostPort(tt.addr)
		if (err == nil) != tt.ok {
			t.Errorf("ValidateHostPort(%q) = %v, want ok=%v", tt.addr, err, tt.ok)
		}
	}
}
