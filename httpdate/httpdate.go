/*
Package httpdate parses and formats the timestamps used in HTTP messages.

A Date wraps an optional count of seconds since the UNIX epoch, always UTC:

	d := httpdate.NewFromString("Sun, 06 Nov 1994 08:49:37 GMT")
	if epoch, ok := d.Epoch(); ok {
		fmt.Println(epoch) // 784111777
	}

	// Every supported format lands on the same epoch
	httpdate.New().Parse("784111777")
	httpdate.New().Parse("1994-11-06T08:49:37Z")
	httpdate.New().Parse("Sunday, 06-Nov-94 08:49:37 GMT")
	httpdate.New().Parse("Sun Nov  6 08:49:37 1994")

	// Rendering an empty Date produces the current time, handy for stamping
	// Date headers
	w.Header().Set("Date", httpdate.New().ToHTTP())

Parsing failures are silent: the value keeps its previous state and the caller
checks IsSet. Dates before 1970 are not representable; parsing rejects them.
*/
package httpdate

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/mailgun/timetools"
)

var days = [...]string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

var months = [...]string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}

// monthNum resolves the case-sensitive month abbreviations to 0-11.
var monthNum = make(map[string]int, len(months))

func init() {
	for i, name := range months {
		monthNum[name] = i
	}
}

var (
	epochRE   = regexp.MustCompile(`^\d+$`)
	rfc1123RE = regexp.MustCompile(`^\w+, (\d{1,2}) (\w+) (\d{4}) (\d{2}):(\d{2}):(\d{2}) GMT$`)
	rfc3339RE = regexp.MustCompile(`(?i)^(\d{4})-(\d{2})-(\d{2})T(\d{2}):(\d{2}):(\d{2})(?:\.\d+)?(?:Z|([+-])(\d{2}):(\d{2}))?$`)
	rfc850RE  = regexp.MustCompile(`^\w+, (\d{1,2})-(\w+)-(\d{2}) (\d{2}):(\d{2}):(\d{2}) GMT$`)
	asctimeRE = regexp.MustCompile(`^\w+ (\w+)\s+(\d{1,2}) (\d{2}):(\d{2}):(\d{2}) (\d{4})$`)
)

// Date holds an optional timestamp as seconds since the UNIX epoch in UTC.
// The zero value is empty and ready to use.
type Date struct {
	epoch int64
	set   bool

	clock timetools.TimeProvider
}

// Option is a functional argument to the Date constructors.
type Option func(*Date)

// Clock sets the time provider consulted when rendering a Date that holds no
// epoch. Defaults to the system wall clock.
func Clock(tp timetools.TimeProvider) Option {
	return func(d *Date) {
		d.clock = tp
	}
}

// New returns an empty Date.
func New(setters ...Option) *Date {
	d := &Date{}
	for _, s := range setters {
		s(d)
	}
	if d.clock == nil {
		d.clock = &timetools.RealTime{}
	}
	return d
}

// NewFromUnix returns a Date holding the given epoch seconds.
func NewFromUnix(epoch int64, setters ...Option) *Date {
	d := New(setters...)
	d.SetEpoch(epoch)
	return d
}

// NewFromString returns a Date parsed from input. If input matches no
// supported format the Date stays empty.
func NewFromString(input string, setters ...Option) *Date {
	return New(setters...).Parse(input)
}

// Parse reads a timestamp in one of the supported formats and stores it as
// epoch seconds. Recognizers are tried in order against the whole input:
//
//	784111777                         epoch seconds
//	Sun, 06 Nov 1994 08:49:37 GMT     RFC 822/1123
//	1994-11-06T08:49:37Z              RFC 3339
//	Sunday, 06-Nov-94 08:49:37 GMT    RFC 850/1036
//	Sun Nov  6 08:49:37 1994          ANSI C asctime()
//
// The weekday token is matched but never checked against the calendar. An
// RFC 3339 value may carry fractional seconds, which are dropped, and either
// Z or a numeric offset; the offset is removed again so the stored epoch is
// true UTC, and a missing offset means UTC. Two digit years pivot at 69:
// 0-68 land in 2000-2068, 69-99 in 1969-1999.
//
// Parse never fails loudly. Input that matches no format, names an unknown
// month, spells an impossible calendar date or resolves to a negative epoch
// leaves the Date exactly as it was. Parse returns the same instance so
// construction and parsing chain.
func (d *Date) Parse(input string) *Date {
	if epochRE.MatchString(input) {
		epoch, err := strconv.ParseInt(input, 10, 64)
		if err != nil {
			return d
		}
		d.epoch, d.set = epoch, true
		return d
	}

	var year, month, day, hour, min, sec int
	var offset int64
	var ok bool

	if m := rfc1123RE.FindStringSubmatch(input); m != nil {
		if month, ok = monthNum[m[2]]; !ok {
			return d
		}
		day, _ = strconv.Atoi(m[1])
		year, _ = strconv.Atoi(m[3])
		hour, _ = strconv.Atoi(m[4])
		min, _ = strconv.Atoi(m[5])
		sec, _ = strconv.Atoi(m[6])
	} else if m := rfc3339RE.FindStringSubmatch(input); m != nil {
		year, _ = strconv.Atoi(m[1])
		month, _ = strconv.Atoi(m[2])
		month--
		day, _ = strconv.Atoi(m[3])
		hour, _ = strconv.Atoi(m[4])
		min, _ = strconv.Atoi(m[5])
		sec, _ = strconv.Atoi(m[6])
		if m[7] != "" {
			oh, _ := strconv.Atoi(m[8])
			om, _ := strconv.Atoi(m[9])
			offset = int64(oh*3600 + om*60)
			if m[7] == "+" {
				offset = -offset
			}
		}
	} else if m := rfc850RE.FindStringSubmatch(input); m != nil {
		if month, ok = monthNum[m[2]]; !ok {
			return d
		}
		day, _ = strconv.Atoi(m[1])
		year, _ = strconv.Atoi(m[3])
		if year <= 68 {
			year += 2000
		} else {
			year += 1900
		}
		hour, _ = strconv.Atoi(m[4])
		min, _ = strconv.Atoi(m[5])
		sec, _ = strconv.Atoi(m[6])
	} else if m := asctimeRE.FindStringSubmatch(input); m != nil {
		if month, ok = monthNum[m[1]]; !ok {
			return d
		}
		day, _ = strconv.Atoi(m[2])
		hour, _ = strconv.Atoi(m[3])
		min, _ = strconv.Atoi(m[4])
		sec, _ = strconv.Atoi(m[5])
		year, _ = strconv.Atoi(m[6])
	} else {
		return d
	}

	epoch, ok := timegm(year, month, day, hour, min, sec)
	if !ok {
		return d
	}
	if epoch += offset; epoch < 0 {
		return d
	}
	d.epoch, d.set = epoch, true
	return d
}

// timegm converts UTC civil time to epoch seconds, month 0-11. time.Date
// normalizes out of range components (Nov 31 becomes Dec 1), so any field
// that moved marks the input as an impossible calendar date.
func timegm(year, month, day, hour, min, sec int) (int64, bool) {
	t := time.Date(year, time.Month(month+1), day, hour, min, sec, 0, time.UTC)
	if t.Year() != year || t.Month() != time.Month(month+1) || t.Day() != day ||
		t.Hour() != hour || t.Minute() != min || t.Second() != sec {
		return 0, false
	}
	return t.Unix(), true
}

// Epoch returns the stored epoch seconds. The second return is false when
// the Date is empty, in which case the first is zero.
func (d *Date) Epoch() (int64, bool) {
	if !d.set {
		return 0, false
	}
	return d.epoch, true
}

// SetEpoch stores epoch seconds directly. Unlike Parse it accepts any value,
// negative epochs included.
func (d *Date) SetEpoch(epoch int64) {
	d.epoch, d.set = epoch, true
}

// Unset clears the stored epoch. Rendering an empty Date falls back to the
// current time.
func (d *Date) Unset() {
	d.epoch, d.set = 0, false
}

// IsSet reports whether an epoch is stored. A Date is usable either way;
// rendering never fails.
func (d *Date) IsSet() bool {
	return d.set
}

// Time returns the stored epoch as a UTC time.Time. The second return is
// false when the Date is empty.
func (d *Date) Time() (time.Time, bool) {
	if !d.set {
		return time.Time{}, false
	}
	return time.Unix(d.epoch, 0).UTC(), true
}

// ToDateTime renders the RFC 3339 form, "1994-11-06T08:49:37Z". The year is
// zero padded to four digits, the offset is always the literal Z. An empty
// Date renders the current time, read anew on every call.
func (d *Date) ToDateTime() string {
	t := d.utc()
	return fmt.Sprintf("%04d-%02d-%02dT%02d:%02d:%02dZ",
		t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second())
}

// ToHTTP renders the RFC 7231 form, "Sun, 06 Nov 1994 08:49:37 GMT". An
// empty Date renders the current time, read anew on every call.
func (d *Date) ToHTTP() string {
	t := d.utc()
	return fmt.Sprintf("%s, %02d %s %04d %02d:%02d:%02d GMT",
		days[t.Weekday()], t.Day(), months[t.Month()-1], t.Year(),
		t.Hour(), t.Minute(), t.Second())
}

// String renders the HTTP form, making Date a fmt.Stringer.
func (d *Date) String() string {
	return d.ToHTTP()
}

func (d *Date) utc() time.Time {
	if d.set {
		return time.Unix(d.epoch, 0).UTC()
	}
	if d.clock == nil {
		return time.Now().UTC()
	}
	return d.clock.UtcNow().UTC()
}

// MarshalJSON encodes the Date as a quoted HTTP date string.
func (d *Date) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(d.ToHTTP())), nil
}

// UnmarshalJSON accepts either a quoted date string in any supported format
// or a bare integer of epoch seconds.
func (d *Date) UnmarshalJSON(b []byte) error {
	if q, err := strconv.Unquote(string(b)); err == nil {
		parsed := New().Parse(q)
		if !parsed.IsSet() {
			return fmt.Errorf("unsupported date value: %q", q)
		}
		d.epoch, d.set = parsed.epoch, true
		return nil
	}
	epoch, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		return fmt.Errorf("unsupported date value: %s", string(b))
	}
	d.SetEpoch(epoch)
	return nil
}

// Format identifies which recognizer claims an input string.
type Format int

const (
	FormatUnknown Format = iota
	FormatEpoch
	FormatRFC1123
	FormatRFC3339
	FormatRFC850
	FormatANSIC
)

func (f Format) String() string {
	switch f {
	case FormatEpoch:
		return "epoch"
	case FormatRFC1123:
		return "rfc1123"
	case FormatRFC3339:
		return "rfc3339"
	case FormatRFC850:
		return "rfc850"
	case FormatANSIC:
		return "asctime"
	}
	return "unknown"
}

// Detect reports which recognizer would claim the input, in the same order
// Parse tries them. It does no calendar conversion, so a detected format
// does not guarantee the value parses.
func Detect(input string) Format {
	switch {
	case epochRE.MatchString(input):
		return FormatEpoch
	case rfc1123RE.MatchString(input):
		return FormatRFC1123
	case rfc3339RE.MatchString(input):
		return FormatRFC3339
	case rfc850RE.MatchString(input):
		return FormatRFC850
	case asctimeRE.MatchString(input):
		return FormatANSIC
	}
	return FormatUnknown
}
