package utils

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"reflect"

	"github.com/vulcand/httptime/log"
)

// ProxyWriter passes everything through to the wrapped ResponseWriter while
// remembering the status code and content length that went by.
type ProxyWriter struct {
	W          http.ResponseWriter
	StatusCode int
	Length     int64
}

func (p *ProxyWriter) String() string {
	return fmt.Sprintf("ProxyWriter(code=%d, length=%d)", p.StatusCode, p.Length)
}

func (p *ProxyWriter) Header() http.Header {
	return p.W.Header()
}

func (p *ProxyWriter) Write(buf []byte) (int, error) {
	p.Length += int64(len(buf))
	return p.W.Write(buf)
}

func (p *ProxyWriter) WriteHeader(code int) {
	p.StatusCode = code
	p.W.WriteHeader(code)
}

func (p *ProxyWriter) Flush() {
	if f, ok := p.W.(http.Flusher); ok {
		f.Flush()
	}
}

func (p *ProxyWriter) CloseNotify() <-chan bool {
	if cn, ok := p.W.(http.CloseNotifier); ok {
		return cn.CloseNotify()
	}
	log.Warningf("Upstream ResponseWriter of type %v does not implement http.CloseNotifier. Returning dummy channel.", reflect.TypeOf(p.W))
	return make(chan bool)
}

func (p *ProxyWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if hi, ok := p.W.(http.Hijacker); ok {
		return hi.Hijack()
	}
	return nil, nil, fmt.Errorf("the response writer of type %v does not support hijacking", reflect.TypeOf(p.W))
}

// BufferWriter collects a response into the given writer instead of sending
// it anywhere, remembering the would-be status code and headers.
type BufferWriter struct {
	H    http.Header
	Code int
	W    io.WriteCloser
}

func NewBufferWriter(w io.WriteCloser) *BufferWriter {
	return &BufferWriter{
		W: w,
		H: make(http.Header),
	}
}

func (b *BufferWriter) Close() error {
	return b.W.Close()
}

func (b *BufferWriter) Header() http.Header {
	return b.H
}

func (b *BufferWriter) Write(buf []byte) (int, error) {
	return b.W.Write(buf)
}

// WriteHeader records the status code, nothing hits the wire.
func (b *BufferWriter) WriteHeader(code int) {
	b.Code = code
}

func (b *BufferWriter) CloseNotify() <-chan bool {
	if cn, ok := b.W.(http.CloseNotifier); ok {
		return cn.CloseNotify()
	}
	log.Warningf("Upstream ResponseWriter of type %v does not implement http.CloseNotifier. Returning dummy channel.", reflect.TypeOf(b.W))
	return make(chan bool)
}

func (b *BufferWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if hi, ok := b.W.(http.Hijacker); ok {
		return hi.Hijack()
	}
	return nil, nil, fmt.Errorf("the writer of type %v does not support hijacking", reflect.TypeOf(b.W))
}

type nopWriteCloser struct {
	io.Writer
}

func (*nopWriteCloser) Close() error { return nil }

// NopWriteCloser returns a WriteCloser with a no-op Close method wrapping the
// provided Writer.
func NopWriteCloser(w io.Writer) io.WriteCloser {
	return &nopWriteCloser{Writer: w}
}

// CopyURL provides an update-safe copy by avoiding shallow copying the User field.
func CopyURL(i *url.URL) *url.URL {
	out := *i
	if i.User != nil {
		u := *i.User
		out.User = &u
	}
	return &out
}

// CopyHeaders copies http headers from source to destination. It does not
// override existing values, it appends.
func CopyHeaders(dst http.Header, src http.Header) {
	for k, vv := range src {
		dst[k] = append(dst[k], vv...)
	}
}

// HasHeaders determines whether any of the header names is present in the headers.
func HasHeaders(names []string, headers http.Header) bool {
	for _, h := range names {
		if headers.Get(h) != "" {
			return true
		}
	}
	return false
}

// RemoveHeaders removes the headers with the given names, all values included.
func RemoveHeaders(headers http.Header, names ...string) {
	for _, h := range names {
		headers.Del(h)
	}
}
