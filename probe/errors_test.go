package probe

import (
	"context"
	"crypto/x509"
	"errors"
	"net"
	"syscall"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClassifyDeadlineExceeded(t *testing.T) {
	require.Equal(t, "Request timeout", classify(context.DeadlineExceeded))
}

func TestClassifyDNSTimeout(t *testing.T) {
	err := &net.DNSError{Err: "timeout", Name: "example.invalid", IsTimeout: true}
	require.Equal(t, "Request timeout", classify(err))
}

func TestClassifyDNSNotFound(t *testing.T) {
	err := &net.DNSError{Err: "no such host", Name: "example.invalid", IsNotFound: true}
	require.Equal(t, "Host not found", classify(err))
}

func TestClassifyDNSGenericFailure(t *testing.T) {
	err := &net.DNSError{Err: "server misbehaving", Name: "example.invalid"}
	require.Equal(t, "DNS resolution failed", classify(err))
}

func TestClassifyTLSCertificateError(t *testing.T) {
	err := x509.UnknownAuthorityError{}
	require.Equal(t, "TLS/SSL error", classify(err))
}

func TestClassifyTLSHandshakeMessage(t *testing.T) {
	err := errors.New("tls: handshake failure")
	require.Equal(t, "TLS/SSL error", classify(err))
}

func TestClassifyConnectionRefused(t *testing.T) {
	err := &net.OpError{Op: "dial", Err: syscall.ECONNREFUSED}
	require.Equal(t, "Connection refused", classify(err))
}

func TestClassifyFallsBackToRawMessage(t *testing.T) {
	err := errors.New("something unexpected happened")
	require.Equal(t, "Connection failed: something unexpected happened", classify(err))
}

func TestClassifyNilIsEmpty(t *testing.T) {
	require.Empty(t, classify(nil))
}
