// Package headers reads and writes the date-valued header fields of HTTP
// messages through httpdate values, so malformed timestamps degrade to
// "absent" instead of breaking the caller.
package headers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/mailgun/timetools"
	"github.com/vulcand/httptime/httpdate"
	"github.com/vulcand/httptime/log"
)

// Date-valued header names.
const (
	Date              = "Date"
	LastModified      = "Last-Modified"
	Expires           = "Expires"
	IfModifiedSince   = "If-Modified-Since"
	IfUnmodifiedSince = "If-Unmodified-Since"
	IfRange           = "If-Range"
	RetryAfter        = "Retry-After"
)

// DateHeaders lists every header this package treats as a timestamp.
// Retry-After is absent: it may carry delta seconds instead, see
// ParseRetryAfter.
var DateHeaders = []string{
	Date,
	LastModified,
	Expires,
	IfModifiedSince,
	IfUnmodifiedSince,
	IfRange,
}

// Get parses the named header into a Date. A missing header or a value in no
// recognized format leaves the Date empty.
func Get(h http.Header, name string) *httpdate.Date {
	d := httpdate.New()
	v := h.Get(name)
	if v == "" {
		return d
	}
	if !d.Parse(v).IsSet() {
		log.Debugf("vulcand/httptime/headers: ignoring %s header in unknown format: %q", name, v)
	}
	return d
}

// Set writes the Date into the named header in HTTP form. An empty Date
// writes the current time, which makes Set(h, Date, httpdate.New()) a
// one-line origin timestamp.
func Set(h http.Header, name string, d *httpdate.Date) {
	h.Set(name, d.ToHTTP())
}

// ParseRetryAfter resolves a Retry-After header to an absolute UTC time.
// The field carries either delta seconds, resolved against the provider's
// current time, or an HTTP date. The second return is false when the header
// is absent or unreadable.
func ParseRetryAfter(h http.Header, tp timetools.TimeProvider) (time.Time, bool) {
	v := h.Get(RetryAfter)
	if v == "" {
		return time.Time{}, false
	}
	if delta, err := strconv.ParseInt(v, 10, 64); err == nil {
		if delta < 0 {
			return time.Time{}, false
		}
		return tp.UtcNow().UTC().Add(time.Duration(delta) * time.Second), true
	}
	d := httpdate.New().Parse(v)
	ts, ok := d.Time()
	if !ok {
		log.Debugf("vulcand/httptime/headers: ignoring Retry-After header in unknown format: %q", v)
		return time.Time{}, false
	}
	return ts, true
}
