package utils

import (
	"io"
	"net"
	"net/http"
)

// ErrorHandler lets middlewares map an internal failure to a response.
type ErrorHandler interface {
	ServeHTTP(w http.ResponseWriter, req *http.Request, err error)
}

// DefaultHandler is the error handler middlewares fall back to.
var DefaultHandler ErrorHandler = &StdHandler{}

// StdHandler maps timeouts to 504, network errors and EOF to 502 and
// everything else to 500.
type StdHandler struct{}

func (e *StdHandler) ServeHTTP(w http.ResponseWriter, req *http.Request, err error) {
	statusCode := http.StatusInternalServerError
	if e, ok := err.(net.Error); ok {
		if e.Timeout() {
			statusCode = http.StatusGatewayTimeout
		} else {
			statusCode = http.StatusBadGateway
		}
	} else if err == io.EOF {
		statusCode = http.StatusBadGateway
	}
	w.WriteHeader(statusCode)
	w.Write([]byte(http.StatusText(statusCode)))
}

// ErrorHandlerFunc is an adapter to allow the use of ordinary functions as
// error handlers. If f is a function with the appropriate signature,
// ErrorHandlerFunc(f) is an ErrorHandler that calls f.
type ErrorHandlerFunc func(http.ResponseWriter, *http.Request, error)

// ServeHTTP calls f(w, req, err).
func (f ErrorHandlerFunc) ServeHTTP(w http.ResponseWriter, req *http.Request, err error) {
	f(w, req, err)
}
