package memmetrics

import (
	"time"

	"github.com/mailgun/timetools"
	"github.com/vulcand/httptime/httpdate"
)

// ParseMetrics provides aggregated performance metrics for date parsing,
// such as parse latency, per format counters, failed parse attempts and total
// attempts. All counters are collected as rolling window counters with defined
// precision, histograms are rolling window histograms with defined precision
// as well.
type ParseMetrics struct {
	total     *RollingCounter
	failures  *RollingCounter
	formats   map[httpdate.Format]*RollingCounter
	histogram *RollingHDRHistogram

	newCounter NewCounterFn
	newHist    NewRollingHistogramFn
	clock      timetools.TimeProvider
}

type pmOptSetter func(m *ParseMetrics) error

type NewCounterFn func() (*RollingCounter, error)
type NewRollingHistogramFn func() (*RollingHDRHistogram, error)

// ParseCounter sets a builder for the rolling counters.
func ParseCounter(new NewCounterFn) pmOptSetter {
	return func(m *ParseMetrics) error {
		m.newCounter = new
		return nil
	}
}

// ParseHistogram sets a builder for the latency histogram.
func ParseHistogram(new NewRollingHistogramFn) pmOptSetter {
	return func(m *ParseMetrics) error {
		m.newHist = new
		return nil
	}
}

// ParseClock sets a clock for the metrics collector.
func ParseClock(clock timetools.TimeProvider) pmOptSetter {
	return func(m *ParseMetrics) error {
		m.clock = clock
		return nil
	}
}

// NewParseMetrics returns new instance of metrics collector.
func NewParseMetrics(settings ...pmOptSetter) (*ParseMetrics, error) {
	m := &ParseMetrics{
		formats: make(map[httpdate.Format]*RollingCounter),
	}
	for _, s := range settings {
		if err := s(m); err != nil {
			return nil, err
		}
	}

	if m.clock == nil {
		m.clock = &timetools.RealTime{}
	}

	if m.newCounter == nil {
		m.newCounter = func() (*RollingCounter, error) {
			return NewCounter(counterBuckets, counterResolution, CounterClock(m.clock))
		}
	}

	if m.newHist == nil {
		m.newHist = func() (*RollingHDRHistogram, error) {
			return NewRollingHDRHistogram(histMin, histMax, histSignificantFigures, histPeriod, histBuckets, RollingClock(m.clock))
		}
	}

	h, err := m.newHist()
	if err != nil {
		return nil, err
	}

	failures, err := m.newCounter()
	if err != nil {
		return nil, err
	}

	total, err := m.newCounter()
	if err != nil {
		return nil, err
	}

	m.histogram = h
	m.failures = failures
	m.total = total
	return m, nil
}

// Record updates the collector with the outcome of a single parse attempt.
// A failed attempt carries format httpdate.FormatUnknown and ok set to false.
func (m *ParseMetrics) Record(format httpdate.Format, ok bool, duration time.Duration) {
	m.total.Inc(1)
	if !ok {
		m.failures.Inc(1)
	}
	m.recordFormat(format)
	m.recordLatency(duration)
}

// FailureRatio calculates the amount of failed parse attempts that occurred in
// the given time window compared to the total attempts count.
func (m *ParseMetrics) FailureRatio() float64 {
	if m.total.Count() == 0 {
		return 0
	}
	return float64(m.failures.Count()) / float64(m.total.Count())
}

// TotalCount returns total count of parse attempts collected.
func (m *ParseMetrics) TotalCount() int64 {
	return m.total.Count()
}

// FailureCount returns total count of failed parse attempts observed.
func (m *ParseMetrics) FailureCount() int64 {
	return m.failures.Count()
}

// FormatCounts returns map with counts of the date formats encountered.
func (m *ParseMetrics) FormatCounts() map[httpdate.Format]int64 {
	fc := make(map[httpdate.Format]int64)
	for k, v := range m.formats {
		if v.Count() != 0 {
			fc[k] = v.Count()
		}
	}
	return fc
}

// LatencyHistogram computes and returns resulting histogram with the parse latencies observed.
func (m *ParseMetrics) LatencyHistogram() (*HDRHistogram, error) {
	return m.histogram.Merged()
}

func (m *ParseMetrics) Reset() {
	m.histogram.Reset()
	m.total.Reset()
	m.failures.Reset()
	m.formats = make(map[httpdate.Format]*RollingCounter)
}

func (m *ParseMetrics) recordLatency(d time.Duration) error {
	return m.histogram.RecordLatencies(d, 1)
}

func (m *ParseMetrics) recordFormat(format httpdate.Format) error {
	if c, ok := m.formats[format]; ok {
		c.Inc(1)
		return nil
	}
	c, err := m.newCounter()
	if err != nil {
		return err
	}
	c.Inc(1)
	m.formats[format] = c
	return nil
}

const (
	counterBuckets         = 10
	counterResolution      = time.Second
	histMin                = 1
	histMax                = 3600000000       // 1 hour in microseconds
	histSignificantFigures = 2                // significant figures (1% precision)
	histBuckets            = 6                // number of sub-histograms in a rolling histogram
	histPeriod             = 10 * time.Second // roll time
)
