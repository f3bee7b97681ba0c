package netutil

import (
	"context"
	"errors"
	"net"
	"net/url"
	"testing"
)

func TestShouldRetry(t *testing.T) {
	dial := &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}
	read := &net.OpError{Op: "read", Net: "tcp", Err: errors.New("connection reset")}

	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain", errors.New("boom"), false},
		{"canceled", context.Canceled, false},
		{"dial", dial, true},
		{"read", read, false},
		{"wrapped dial", &url.Error{Op: "Post", URL: "https://example.com", Err: dial}, true},
		{"dns temporary", &net.DNSError{Err: "no such host", IsTemporary: true}, true},
		{"dns permanent", &net.DNSError{Err: "no such host", IsNotFound: true}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ShouldRetry(tc.err); got != tc.want {
				t.Fatalf("ShouldRetry(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}
