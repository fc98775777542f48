package utils

import (
	"bytes"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// A connection torn down mid-request surfaces as a bad gateway
func TestDefaultHandlerErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.(http.Hijacker)
		conn, _, _ := h.Hijack()
		conn.Close()
	}))
	defer srv.Close()

	request, err := http.NewRequest(http.MethodGet, srv.URL, strings.NewReader(""))
	require.NoError(t, err)

	_, err = http.DefaultTransport.RoundTrip(request)

	w := NewBufferWriter(NopWriteCloser(&bytes.Buffer{}))

	DefaultHandler.ServeHTTP(w, nil, err)

	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestDefaultHandlerTimeout(t *testing.T) {
	w := NewBufferWriter(NopWriteCloser(&bytes.Buffer{}))

	DefaultHandler.ServeHTTP(w, nil, &net.DNSError{IsTimeout: true})

	assert.Equal(t, http.StatusGatewayTimeout, w.Code)
}

func TestDefaultHandlerUnclassified(t *testing.T) {
	w := NewBufferWriter(NopWriteCloser(&bytes.Buffer{}))

	DefaultHandler.ServeHTTP(w, nil, fmt.Errorf("something else"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestErrorHandlerFunc(t *testing.T) {
	w := NewBufferWriter(NopWriteCloser(&bytes.Buffer{}))

	h := ErrorHandlerFunc(func(w http.ResponseWriter, req *http.Request, err error) {
		w.WriteHeader(http.StatusTeapot)
	})
	h.ServeHTTP(w, nil, fmt.Errorf("oops"))

	assert.Equal(t, http.StatusTeapot, w.Code)
}
