// Package hostutil validates host and listen-address strings before they
// reach a dialer or net.Listen, so a typo fails config validation instead
// of surfacing as a connect error mid-run.
package hostutil

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"unicode"
)

// ValidateHost accepts an IPv4 literal, an IPv6 literal (bracketed or
// bare), or an RFC 1123 hostname.
func ValidateHost(raw string) error {
	switch {
	case looksLikeIPv4(raw):
		ip := net.ParseIP(raw)
		if ip == nil || ip.To4() == nil {
			return fmt.Errorf("bad IP: '%s'", raw)
		}
	case strings.Contains(raw, ":"):
		ip := net.ParseIP(strings.Trim(raw, "[]"))
		if ip == nil || ip.To4() != nil {
			return fmt.Errorf("bad IPv6: '%s'", raw)
		}
	default:
		if !validHostname(raw) {
			return fmt.Errorf("bad hostname: '%s'", raw)
		}
	}
	return nil
}

// ValidateHostPort accepts "host:port". IPv6 literals must be bracketed.
func ValidateHostPort(addr string) error {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("bad address '%s': %w", addr, err)
	}
	if err := ValidateHost(host); err != nil {
		return err
	}
	return ValidatePort(port)
}

// ValidatePort accepts a decimal port in [1, 65535]. Leading zeros are
// rejected.
func ValidatePort(raw string) error {
	if len(raw) > 1 && raw[0] == '0' {
		return fmt.Errorf("bad port: '%s'", raw)
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 || n > 65535 {
		return fmt.Errorf("bad port: '%s'", raw)
	}
	return nil
}

// looksLikeIPv4 checks if raw looks like dotted quad
func looksLikeIPv4(raw string) bool {
	parts := strings.Split(raw, ".")
	if len(parts) != 4 {
		return false
	}
	for _, p := range parts {
		if p == "" {
			return false
		}
		for _, r := range p {
			if !unicode.IsDigit(r) {
				return false
			}
		}
	}
	return true
}

// validHostname checks DNS label rules (RFC 1123)
func validHostname(raw string) bool {
	if len(raw) > 253 {
		return false
	}
	for _, label := range strings.Split(raw, ".") {
		if len(label) < 1 || len(label) > 63 {
			return false
		}
		for i, r := range label {
			if !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-') {
				return false
			}
			// no leading/trailing hyphen
			if (i == 0 || i == len(label)-1) && r == '-' {
				return false
			}
		}
	}
	return true
}
