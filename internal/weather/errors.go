package weather

import (
	"context"
	"errors"
	"net"
	"net/http"

	"materialhub/internal/rest"
)

// Kind is the closed set of weather failure categories.
type Kind int

const (
	KindUnknown Kind = iota
	KindNetwork
	KindLocation
	KindServer
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindLocation:
		return "location"
	case KindServer:
		return "server"
	default:
		return "unknown"
	}
}

// Error is every failure returned by Repository.
type Error struct {
	Kind Kind
	Err  error
}

// ErrLocation matches any location error with errors.Is.
var ErrLocation = &Error{Kind: KindLocation}

func (e *Error) Error() string {
	switch e.Kind {
	case KindNetwork:
		return "network error: " + errText(e.Err)
	case KindLocation:
		if e.Err == nil {
			return "invalid location"
		}
		return "invalid location: " + e.Err.Error()
	case KindServer:
		return "weather server error: " + errText(e.Err)
	default:
		return "unknown weather error: " + errText(e.Err)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is a weather error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// noLocationCode is WeatherAPI's error code for "No matching location found".
const noLocationCode = "1006"

func classify(err error) *Error {
	var statusErr *rest.StatusError
	if errors.As(err, &statusErr) {
		switch {
		case statusErr.StatusCode >= http.StatusInternalServerError:
			return &Error{Kind: KindServer, Err: err}
		case statusErr.Code == noLocationCode:
			return &Error{Kind: KindLocation, Err: err}
		default:
			return &Error{Kind: KindUnknown, Err: err}
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: KindNetwork, Err: err}
	}
	return &Error{Kind: KindUnknown, Err: err}
}

func errText(err error) string {
	if err == nil {
		return "no detail"
	}
	return err.Error()
}
