package conditional

import (
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vulcand/httptime/headers"
	"github.com/vulcand/httptime/testutils"
	"github.com/vulcand/httptime/utils"
)

func TestMain(m *testing.M) {
	log.SetOutput(ioutil.Discard)
	m.Run()
}

const lastModified = "Sun, 06 Nov 1994 08:49:37 GMT"

// document pretends to serve content last touched at the fixed date above.
func document(w http.ResponseWriter, req *http.Request) {
	w.Header().Set(headers.LastModified, lastModified)
	w.Write([]byte("hello"))
}

func TestPassthrough(t *testing.T) {
	cond, err := New(http.HandlerFunc(document))
	require.NoError(t, err)

	proxy := httptest.NewServer(cond)
	defer proxy.Close()

	re, body, err := testutils.Get(proxy.URL)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, re.StatusCode)
	assert.Equal(t, "hello", string(body))
}

func TestNotModified(t *testing.T) {
	cond, err := New(http.HandlerFunc(document))
	require.NoError(t, err)

	proxy := httptest.NewServer(cond)
	defer proxy.Close()

	re, body, err := testutils.Get(proxy.URL, testutils.Header(headers.IfModifiedSince, lastModified))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotModified, re.StatusCode)
	assert.Equal(t, "", string(body))
	assert.Equal(t, lastModified, re.Header.Get(headers.LastModified))
}

func TestNotModifiedNewerThreshold(t *testing.T) {
	cond, err := New(http.HandlerFunc(document))
	require.NoError(t, err)

	proxy := httptest.NewServer(cond)
	defer proxy.Close()

	re, body, err := testutils.Get(proxy.URL, testutils.Header(headers.IfModifiedSince, "Sun, 06 Nov 1994 09:49:37 GMT"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotModified, re.StatusCode)
	assert.Equal(t, "", string(body))
}

func TestModifiedSince(t *testing.T) {
	cond, err := New(http.HandlerFunc(document))
	require.NoError(t, err)

	proxy := httptest.NewServer(cond)
	defer proxy.Close()

	re, body, err := testutils.Get(proxy.URL, testutils.Header(headers.IfModifiedSince, "Sun, 06 Nov 1994 08:47:37 GMT"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, re.StatusCode)
	assert.Equal(t, "hello", string(body))
}

func TestPreconditionFailed(t *testing.T) {
	cond, err := New(http.HandlerFunc(document))
	require.NoError(t, err)

	proxy := httptest.NewServer(cond)
	defer proxy.Close()

	re, body, err := testutils.Get(proxy.URL, testutils.Header(headers.IfUnmodifiedSince, "Sun, 06 Nov 1994 08:47:37 GMT"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusPreconditionFailed, re.StatusCode)
	assert.Equal(t, "", string(body))
}

func TestUnmodifiedSinceHolds(t *testing.T) {
	cond, err := New(http.HandlerFunc(document))
	require.NoError(t, err)

	proxy := httptest.NewServer(cond)
	defer proxy.Close()

	re, body, err := testutils.Get(proxy.URL, testutils.Header(headers.IfUnmodifiedSince, lastModified))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, re.StatusCode)
	assert.Equal(t, "hello", string(body))
}

func TestMalformedPreconditionIgnored(t *testing.T) {
	cond, err := New(http.HandlerFunc(document))
	require.NoError(t, err)

	proxy := httptest.NewServer(cond)
	defer proxy.Close()

	re, body, err := testutils.Get(proxy.URL, testutils.Header(headers.IfModifiedSince, "yesterday lunchtime"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, re.StatusCode)
	assert.Equal(t, "hello", string(body))
}

func TestNonOKReplayed(t *testing.T) {
	cond, err := New(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set(headers.LastModified, lastModified)
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte("gone"))
	}))
	require.NoError(t, err)

	proxy := httptest.NewServer(cond)
	defer proxy.Close()

	re, body, err := testutils.Get(proxy.URL, testutils.Header(headers.IfModifiedSince, lastModified))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, re.StatusCode)
	assert.Equal(t, "gone", string(body))
}

func TestPostIgnoresIfModifiedSince(t *testing.T) {
	cond, err := New(http.HandlerFunc(document))
	require.NoError(t, err)

	proxy := httptest.NewServer(cond)
	defer proxy.Close()

	re, body, err := testutils.MakeRequest(proxy.URL,
		testutils.Method(http.MethodPost),
		testutils.Header(headers.IfModifiedSince, lastModified))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, re.StatusCode)
	assert.Equal(t, "hello", string(body))
}

func TestPostHonorsIfUnmodifiedSince(t *testing.T) {
	cond, err := New(http.HandlerFunc(document))
	require.NoError(t, err)

	proxy := httptest.NewServer(cond)
	defer proxy.Close()

	re, body, err := testutils.MakeRequest(proxy.URL,
		testutils.Method(http.MethodPost),
		testutils.Header(headers.IfUnmodifiedSince, "Sun, 06 Nov 1994 08:47:37 GMT"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusPreconditionFailed, re.StatusCode)
	assert.Equal(t, "", string(body))
}

// The middleware never touches the request body, the wrapped handler gets it whole
func TestPostBodyForwarded(t *testing.T) {
	cond, err := New(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		defer req.Body.Close()
		payload, _ := ioutil.ReadAll(req.Body)
		w.Header().Set(headers.LastModified, lastModified)
		w.Write(payload)
	}))
	require.NoError(t, err)

	proxy := httptest.NewServer(cond)
	defer proxy.Close()

	re, body, err := testutils.MakeRequest(proxy.URL,
		testutils.Method(http.MethodPost),
		testutils.Body("fresh content"),
		testutils.Header(headers.IfUnmodifiedSince, lastModified))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, re.StatusCode)
	assert.Equal(t, "fresh content", string(body))
}

func TestHeadHasNoBody(t *testing.T) {
	cond, err := New(http.HandlerFunc(document))
	require.NoError(t, err)

	proxy := httptest.NewServer(cond)
	defer proxy.Close()

	re, body, err := testutils.Head(proxy.URL, testutils.Header(headers.IfModifiedSince, "Sun, 06 Nov 1994 08:47:37 GMT"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, re.StatusCode)
	assert.Equal(t, "", string(body))
}

func TestDateStamped(t *testing.T) {
	cond, err := New(http.HandlerFunc(document), Clock(testutils.GetClock()))
	require.NoError(t, err)

	proxy := httptest.NewServer(cond)
	defer proxy.Close()

	re, _, err := testutils.Get(proxy.URL, testutils.Header(headers.IfModifiedSince, "Sun, 06 Nov 1994 08:47:37 GMT"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, re.StatusCode)
	assert.Equal(t, "Sun, 06 Nov 1994 08:49:37 GMT", re.Header.Get(headers.Date))
}

func TestDatePreserved(t *testing.T) {
	cond, err := New(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set(headers.Date, "Sun, 06 Nov 1994 07:49:37 GMT")
		w.Write([]byte("hello"))
	}), Clock(testutils.GetClock()))
	require.NoError(t, err)

	proxy := httptest.NewServer(cond)
	defer proxy.Close()

	re, _, err := testutils.Get(proxy.URL, testutils.Header(headers.IfModifiedSince, lastModified))
	require.NoError(t, err)
	assert.Equal(t, "Sun, 06 Nov 1994 07:49:37 GMT", re.Header.Get(headers.Date))
}

func TestResponseLimitReached(t *testing.T) {
	cond, err := New(http.HandlerFunc(document), MaxResponseBodyBytes(4))
	require.NoError(t, err)

	proxy := httptest.NewServer(cond)
	defer proxy.Close()

	re, _, err := testutils.Get(proxy.URL, testutils.Header(headers.IfModifiedSince, "Sun, 06 Nov 1994 08:47:37 GMT"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, re.StatusCode)
}

func TestFileStreamingResponse(t *testing.T) {
	cond, err := New(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set(headers.LastModified, lastModified)
		w.Write([]byte("hello, this response is too large to fit in memory"))
	}), MemResponseBodyBytes(4))
	require.NoError(t, err)

	proxy := httptest.NewServer(cond)
	defer proxy.Close()

	re, body, err := testutils.Get(proxy.URL, testutils.Header(headers.IfModifiedSince, "Sun, 06 Nov 1994 08:47:37 GMT"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, re.StatusCode)
	assert.Equal(t, "hello, this response is too large to fit in memory", string(body))
}

func TestCustomErrorHandler(t *testing.T) {
	errHandler := utils.ErrorHandlerFunc(func(w http.ResponseWriter, req *http.Request, err error) {
		w.WriteHeader(http.StatusTeapot)
		w.Write([]byte(http.StatusText(http.StatusTeapot)))
	})
	cond, err := New(http.HandlerFunc(document), MaxResponseBodyBytes(4), ErrorHandler(errHandler))
	require.NoError(t, err)

	proxy := httptest.NewServer(cond)
	defer proxy.Close()

	re, _, err := testutils.Get(proxy.URL, testutils.Header(headers.IfModifiedSince, lastModified))
	require.NoError(t, err)
	assert.Equal(t, http.StatusTeapot, re.StatusCode)
}

func TestInvalidOptions(t *testing.T) {
	_, err := New(http.HandlerFunc(document), MaxResponseBodyBytes(-2))
	require.Error(t, err)

	_, err = New(http.HandlerFunc(document), MemResponseBodyBytes(-2))
	require.Error(t, err)
}
