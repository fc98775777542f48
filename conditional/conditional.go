/*
Package conditional provides http.Handler middleware that answers conditional
requests on behalf of the wrapped handler.

When a request carries an If-Modified-Since or If-Unmodified-Since header, the
middleware buffers the response the handler produces, compares its
Last-Modified header with the precondition and either replays the response,
replies 304 Not Modified or replies 412 Precondition Failed. Responses without
preconditions pass through untouched.

	// sample HTTP handler serving a rarely changing document
	handler := http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
	  w.Header().Set("Last-Modified", "Sun, 06 Nov 1994 08:49:37 GMT")
	  w.Write([]byte("hello"))
	})

	cond, err := conditional.New(handler)

	// Buffer up to 2MB of response in memory and reject larger responses
	cond, err := conditional.New(handler,
	  conditional.MemResponseBodyBytes(2 * 1024 * 1024),
	  conditional.MaxResponseBodyBytes(2 * 1024 * 1024))

Preconditions are evaluated only for responses with status 200, the
If-Modified-Since check additionally only for GET and HEAD requests. A
malformed precondition or Last-Modified value is ignored. The middleware
stamps a Date header on buffered responses when the handler did not set one.
*/
package conditional

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"net/http"
	"reflect"

	"github.com/mailgun/multibuf"
	"github.com/mailgun/timetools"
	log "github.com/sirupsen/logrus"
	"github.com/vulcand/httptime/headers"
	"github.com/vulcand/httptime/httpdate"
	"github.com/vulcand/httptime/utils"
)

const (
	// DefaultMemBodyBytes Store up to 1MB in RAM.
	DefaultMemBodyBytes = 1048576
	// DefaultMaxBodyBytes No limit by default.
	DefaultMaxBodyBytes = -1
)

var errHandler utils.ErrorHandler = &SizeErrHandler{}

// Conditional is responsible for buffering responses to requests that carry
// preconditions and answering 304 or 412 when the precondition says so.
type Conditional struct {
	maxResponseBodyBytes int64
	memResponseBodyBytes int64

	next       http.Handler
	errHandler utils.ErrorHandler
	clock      timetools.TimeProvider

	log *log.Logger
}

// New returns a new conditional request middleware. New() function supports
// optional functional arguments.
func New(next http.Handler, setters ...optSetter) (*Conditional, error) {
	c := &Conditional{
		next: next,

		maxResponseBodyBytes: DefaultMaxBodyBytes,
		memResponseBodyBytes: DefaultMemBodyBytes,
	}

	for _, s := range setters {
		if err := s(c); err != nil {
			return nil, err
		}
	}

	if c.log == nil {
		c.log = log.StandardLogger()
	}
	if c.clock == nil {
		c.clock = &timetools.RealTime{}
	}
	if c.errHandler == nil {
		c.errHandler = errHandler
	}

	return c, nil
}

// Wrap sets the next handler to be called by conditional handler.
func (c *Conditional) Wrap(next http.Handler) error {
	c.next = next
	return nil
}

func (c *Conditional) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	if c.log.Level >= log.DebugLevel {
		logEntry := c.log.WithField("Request", utils.DumpHttpRequest(req))
		logEntry.Debug("vulcand/httptime/conditional: begin ServeHttp on request")
		defer logEntry.Debug("vulcand/httptime/conditional: completed ServeHttp on request")
	}

	if !utils.HasHeaders(preconditionHeaders, req.Header) {
		c.next.ServeHTTP(w, req)
		return
	}

	// The response gets buffered so the precondition can be checked against
	// the Last-Modified header before a single body byte reaches the client.
	writer, err := multibuf.NewWriterOnce(multibuf.MaxBytes(c.maxResponseBodyBytes), multibuf.MemBytes(c.memResponseBodyBytes))
	if err != nil {
		c.log.Errorf("vulcand/httptime/conditional: failed to create response writer, err: %v", err)
		c.errHandler.ServeHTTP(w, req, err)
		return
	}

	cw := &condWriter{
		header:         make(http.Header),
		code:           http.StatusOK,
		buffer:         writer,
		responseWriter: w,
		log:            c.log,
	}
	defer cw.Close()

	c.next.ServeHTTP(cw, req)
	if cw.hijacked {
		c.log.Debugf("vulcand/httptime/conditional: connection was hijacked downstream, not taking any action")
		return
	}

	if cw.writeError != nil {
		c.log.Errorf("vulcand/httptime/conditional: failed to buffer response, err: %v", cw.writeError)
		c.errHandler.ServeHTTP(w, req, cw.writeError)
		return
	}

	if cw.header.Get(headers.Date) == "" {
		headers.Set(cw.header, headers.Date, httpdate.New(httpdate.Clock(c.clock)))
	}

	switch c.check(req, cw) {
	case http.StatusNotModified:
		utils.CopyHeaders(w.Header(), cw.Header())
		utils.RemoveHeaders(w.Header(), "Content-Length", "Content-Type", "Transfer-Encoding")
		w.WriteHeader(http.StatusNotModified)
		return
	case http.StatusPreconditionFailed:
		utils.CopyHeaders(w.Header(), cw.Header())
		utils.RemoveHeaders(w.Header(), "Content-Length", "Content-Type", "Transfer-Encoding")
		w.WriteHeader(http.StatusPreconditionFailed)
		return
	}

	var reader multibuf.MultiReader
	if cw.expectBody(req) {
		rdr, err := writer.Reader()
		if err != nil {
			c.log.Errorf("vulcand/httptime/conditional: failed to read response, err: %v", err)
			c.errHandler.ServeHTTP(w, req, err)
			return
		}
		defer rdr.Close()
		reader = rdr
	}

	utils.CopyHeaders(w.Header(), cw.Header())
	w.WriteHeader(cw.code)
	if reader != nil {
		_, _ = io.Copy(w, reader)
	}
}

// check evaluates the preconditions against the buffered response and returns
// the status code to answer with, or 0 when the response should be replayed.
func (c *Conditional) check(req *http.Request, cw *condWriter) int {
	if cw.code != http.StatusOK {
		return 0
	}

	lastModified, ok := headers.Get(cw.header, headers.LastModified).Epoch()
	if !ok {
		return 0
	}

	if unmodifiedSince, ok := headers.Get(req.Header, headers.IfUnmodifiedSince).Epoch(); ok {
		if lastModified > unmodifiedSince {
			return http.StatusPreconditionFailed
		}
	}

	if req.Method != http.MethodGet && req.Method != http.MethodHead {
		return 0
	}

	if modifiedSince, ok := headers.Get(req.Header, headers.IfModifiedSince).Epoch(); ok {
		if lastModified <= modifiedSince {
			return http.StatusNotModified
		}
	}

	return 0
}

var preconditionHeaders = []string{
	headers.IfModifiedSince,
	headers.IfUnmodifiedSince,
}

type condWriter struct {
	header         http.Header
	code           int
	buffer         multibuf.WriterOnce
	responseWriter http.ResponseWriter
	hijacked       bool
	writeError     error
	log            *log.Logger
}

// RFC2616 #4.4.
func (cw *condWriter) expectBody(r *http.Request) bool {
	if r.Method == http.MethodHead {
		return false
	}
	if (cw.code >= 100 && cw.code < 200) || cw.code == 204 || cw.code == 304 {
		return false
	}
	if cw.header.Get("Content-Length") == "0" {
		return false
	}
	return true
}

func (cw *condWriter) Close() error {
	return cw.buffer.Close()
}

func (cw *condWriter) Header() http.Header {
	return cw.header
}

func (cw *condWriter) Write(buf []byte) (int, error) {
	length, err := cw.buffer.Write(buf)
	if err != nil {
		// Remember the error and report success, the serving loop picks the
		// error up after the handler returns.
		cw.log.Errorf("vulcand/httptime/conditional: write: %v", err)
		length = len(buf)
		cw.writeError = err
	}
	return length, nil
}

// WriteHeader sets the response code to replay later.
func (cw *condWriter) WriteHeader(code int) {
	cw.code = code
}

// CloseNotify CloseNotifier interface - this allows downstream connections to be terminated when the client terminates.
func (cw *condWriter) CloseNotify() <-chan bool {
	if cn, ok := cw.responseWriter.(http.CloseNotifier); ok {
		return cn.CloseNotify()
	}
	cw.log.Warningf("Upstream ResponseWriter of type %v does not implement http.CloseNotifier. Returning dummy channel.", reflect.TypeOf(cw.responseWriter))
	return make(<-chan bool)
}

// Hijack This allows connections to be hijacked for websockets for instance.
func (cw *condWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if hi, ok := cw.responseWriter.(http.Hijacker); ok {
		conn, rw, err := hi.Hijack()
		if err == nil {
			cw.hijacked = true
		}
		return conn, rw, err
	}
	cw.log.Warningf("Upstream ResponseWriter of type %v does not implement http.Hijacker.", reflect.TypeOf(cw.responseWriter))
	return nil, nil, fmt.Errorf("the response writer wrapped in this proxy does not implement http.Hijacker, its type is: %v", reflect.TypeOf(cw.responseWriter))
}

// SizeErrHandler replies 413 when the buffered response exceeded the allowed size.
type SizeErrHandler struct{}

func (e *SizeErrHandler) ServeHTTP(w http.ResponseWriter, req *http.Request, err error) {
	if _, ok := err.(*multibuf.MaxSizeReachedError); ok {
		w.WriteHeader(http.StatusRequestEntityTooLarge)
		_, _ = w.Write([]byte(http.StatusText(http.StatusRequestEntityTooLarge)))
		return
	}
	utils.DefaultHandler.ServeHTTP(w, req, err)
}
