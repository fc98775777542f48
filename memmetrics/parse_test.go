package memmetrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vulcand/httptime/httpdate"
	"github.com/vulcand/httptime/testutils"
)

func TestParseMetricsDefaults(t *testing.T) {
	clock := testutils.GetClock()

	pm, err := NewParseMetrics(ParseClock(clock))
	require.NoError(t, err)
	require.NotNil(t, pm)

	pm.Record(httpdate.FormatRFC1123, true, time.Millisecond)
	pm.Record(httpdate.FormatUnknown, false, 2*time.Millisecond)
	pm.Record(httpdate.FormatRFC1123, true, time.Millisecond)
	pm.Record(httpdate.FormatRFC3339, true, time.Millisecond)

	assert.EqualValues(t, 4, pm.TotalCount())
	assert.EqualValues(t, 1, pm.FailureCount())
	assert.Equal(t, map[httpdate.Format]int64{
		httpdate.FormatRFC1123: 2,
		httpdate.FormatRFC3339: 1,
		httpdate.FormatUnknown: 1,
	}, pm.FormatCounts())
	assert.Equal(t, float64(1)/float64(4), pm.FailureRatio())

	h, err := pm.LatencyHistogram()
	require.NoError(t, err)
	assert.Equal(t, 2, int(h.LatencyAtQuantile(100)/time.Millisecond))

	pm.Reset()
	assert.EqualValues(t, 0, pm.TotalCount())
	assert.EqualValues(t, 0, pm.FailureCount())
	assert.Equal(t, map[httpdate.Format]int64{}, pm.FormatCounts())
	assert.Equal(t, float64(0), pm.FailureRatio())

	h, err = pm.LatencyHistogram()
	require.NoError(t, err)
	assert.Equal(t, time.Duration(0), h.LatencyAtQuantile(100))
}

func TestParseMetricsCustomBuilders(t *testing.T) {
	clock := testutils.GetClock()

	pm, err := NewParseMetrics(
		ParseClock(clock),
		ParseCounter(func() (*RollingCounter, error) {
			return NewCounter(2, time.Second, CounterClock(clock))
		}),
		ParseHistogram(func() (*RollingHDRHistogram, error) {
			return NewRollingHDRHistogram(histMin, histMax, histSignificantFigures, time.Second, 2, RollingClock(clock))
		}))
	require.NoError(t, err)

	pm.Record(httpdate.FormatEpoch, true, time.Millisecond)
	assert.EqualValues(t, 1, pm.TotalCount())

	// Let the rolling window expire
	clock.CurrentTime = clock.CurrentTime.Add(10 * time.Second)
	assert.EqualValues(t, 0, pm.TotalCount())
}
