package astria

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"syscall"
)

// ErrorKind classifies a failed request that never produced an HTTP status.
type ErrorKind string

const (
	// ErrorUnreachable 连接被拒绝、域名无法解析或网络不可达
	ErrorUnreachable ErrorKind = "unreachable"
	// ErrorNoResponse 请求已发出但没有收到响应
	ErrorNoResponse ErrorKind = "no_response"
	ErrorOther      ErrorKind = "other"
)

// TransportError wraps a network failure talking to Astria.
type TransportError struct {
	Kind ErrorKind
	Err  error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("astria %s: %v", e.Kind, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// classifyTransportError maps an http.Client error to an ErrorKind.
func classifyTransportError(err error) ErrorKind {
	if err == nil {
		return ErrorOther
	}

	var dnsErr *net.DNSError
	switch {
	case errors.Is(err, syscall.ECONNREFUSED),
		errors.Is(err, syscall.EHOSTUNREACH),
		errors.Is(err, syscall.ENETUNREACH),
		errors.As(err, &dnsErr):
		return ErrorUnreachable
	}

	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, io.EOF),
		errors.Is(err, io.ErrUnexpectedEOF),
		errors.Is(err, syscall.ECONNRESET),
		errors.As(err, &netErr) && netErr.Timeout():
		return ErrorNoResponse
	}
	return ErrorOther
}

// KindOf returns the classification of err, or "" when err is not a TransportError.
func KindOf(err error) ErrorKind {
	var te *TransportError
	if errors.As(err, &te) {
		return te.Kind
	}
	return ""
}
