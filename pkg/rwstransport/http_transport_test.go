package rwstransport

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/gbdevw/gorwsclient/pkg/demorwsserver"
	"github.com/gbdevw/gorwsclient/pkg/rwsdigest"
	"github.com/gbdevw/gorwsclient/pkg/rwsresult"
)

/*************************************************************************************************/
/* HELPERS                                                                                       */
/*************************************************************************************************/

// Build transport options which target the provided test server.
func optionsFor(t *testing.T, rawURL string, password string) HTTPTransportOptions {
	u, err := url.Parse(rawURL)
	require.NoError(t, err)
	host, port, err := net.SplitHostPort(u.Host)
	require.NoError(t, err)
	portNum, err := strconv.Atoi(port)
	require.NoError(t, err)
	return HTTPTransportOptions{
		Host: host,
		Port: portNum,
		Credentials: rwsdigest.Credentials{
			Username: demorwsserver.DefaultUsername,
			Password: password,
		},
	}
}

/*************************************************************************************************/
/* TEST SUITE                                                                                    */
/*************************************************************************************************/

type HTTPTransportTestSuite struct {
	suite.Suite
	// Robot web service simulator
	srv *demorwsserver.DemoRobotWebServiceServer
	// Test HTTP server which serves the simulator
	httpSrv *httptest.Server
	// Transport under test
	transport *HTTPTransport
}

// Run HTTPTransportTestSuite test suite
func TestHTTPTransportTestSuite(t *testing.T) {
	suite.Run(t, new(HTTPTransportTestSuite))
}

// HTTPTransportTestSuite - Before each test
func (suite *HTTPTransportTestSuite) SetupTest() {
	srv, err := demorwsserver.NewDemoRobotWebServiceServer(demorwsserver.NewDefaultOptions(), nil, nil, nil, nil)
	require.NoError(suite.T(), err)
	suite.srv = srv
	suite.httpSrv = httptest.NewServer(srv)
	suite.transport = NewHTTPTransport(optionsFor(suite.T(), suite.httpSrv.URL, demorwsserver.DefaultPassword), nil, nil)
}

// HTTPTransportTestSuite - After each test
func (suite *HTTPTransportTestSuite) TearDownTest() {
	suite.transport.Close()
	suite.httpSrv.Close()
}

/*************************************************************************************************/
/* TESTS                                                                                         */
/*************************************************************************************************/

// Test a GET is challenged once, answered and the session cookie is then reused
func (suite *HTTPTransportTestSuite) TestGetWithDigest() {
	suite.srv.SetResource("/rw/system", "robot")
	result := suite.transport.Get(context.Background(), "/rw/system")
	require.Equal(suite.T(), rwsresult.Ok, result.Status)
	require.Empty(suite.T(), result.ExceptionMessage)
	require.Equal(suite.T(), http.MethodGet, result.Request.Method)
	require.Equal(suite.T(), "/rw/system", result.Request.URI)
	require.Equal(suite.T(), http.StatusOK, result.Response.StatusCode)
	require.Equal(suite.T(), "OK", result.Response.Reason)
	require.Equal(suite.T(), "robot", result.Response.BodyText)
	_, ok := suite.transport.Cookies().Get(demorwsserver.SessionCookie)
	require.True(suite.T(), ok)
	_, ok = suite.transport.Cookies().Get(demorwsserver.SessionCounterCookie)
	require.True(suite.T(), ok)
	require.EqualValues(suite.T(), 1, suite.srv.ChallengeCount())
	// Session cookie is used: no new challenge
	result = suite.transport.Get(context.Background(), "rw/system")
	require.Equal(suite.T(), rwsresult.Ok, result.Status)
	require.Equal(suite.T(), http.StatusOK, result.Response.StatusCode)
	require.EqualValues(suite.T(), 1, suite.srv.ChallengeCount())
}

// Test the Digest uri matches the escaped request line when the path needs escaping
func (suite *HTTPTransportTestSuite) TestGetEscapedPath() {
	suite.srv.SetResource("/fileservice/$home/my file.txt", "content")
	result := suite.transport.Get(context.Background(), "/fileservice/$home/my file.txt")
	require.Equal(suite.T(), rwsresult.Ok, result.Status)
	require.Equal(suite.T(), http.StatusOK, result.Response.StatusCode)
	require.Equal(suite.T(), "content", result.Response.BodyText)
	require.Equal(suite.T(), "/fileservice/$home/my file.txt", result.Request.URI)
	require.EqualValues(suite.T(), 1, suite.srv.ChallengeCount())
	// Same with a body
	suite.srv.ResetSessions()
	result = suite.transport.Put(context.Background(), "/fileservice/$home/my file.txt", "updated")
	require.Equal(suite.T(), rwsresult.Ok, result.Status)
	require.Equal(suite.T(), http.StatusNoContent, result.Response.StatusCode)
	content, ok := suite.srv.Resource("/fileservice/$home/my file.txt")
	require.True(suite.T(), ok)
	require.Equal(suite.T(), "updated", content)
}

// Test all verbs succeed after a challenge
func (suite *HTTPTransportTestSuite) TestVerbs() {
	for _, method := range []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete} {
		suite.srv.ResetSessions()
		suite.srv.SetResource("/rw/resource", "initial")
		result := suite.transport.Request(context.Background(), method, "/rw/resource", "value=1")
		require.Equal(suite.T(), rwsresult.Ok, result.Status, method)
		require.Less(suite.T(), result.Response.StatusCode, 300, method)
	}
	result := suite.transport.Post(context.Background(), "/rw/created", "value=2")
	require.Equal(suite.T(), http.StatusCreated, result.Response.StatusCode)
	require.Equal(suite.T(), "value=2", result.Request.Content)
	result = suite.transport.Put(context.Background(), "/rw/created", "value=3")
	require.Equal(suite.T(), http.StatusNoContent, result.Response.StatusCode)
	result = suite.transport.Get(context.Background(), "/rw/created")
	require.Equal(suite.T(), "value=3", result.Response.BodyText)
	result = suite.transport.Delete(context.Background(), "/rw/created")
	require.Equal(suite.T(), http.StatusNoContent, result.Response.StatusCode)
	result = suite.transport.Get(context.Background(), "/rw/created")
	require.Equal(suite.T(), rwsresult.Ok, result.Status)
	require.Equal(suite.T(), http.StatusNotFound, result.Response.StatusCode)
}

// Test wrong credentials: one retry only and the final 401 is an Ok result
func (suite *HTTPTransportTestSuite) TestWrongCredentials() {
	transport := NewHTTPTransport(optionsFor(suite.T(), suite.httpSrv.URL, "wrong"), nil, nil)
	defer transport.Close()
	result := transport.Get(context.Background(), "/rw/system")
	require.Equal(suite.T(), rwsresult.Ok, result.Status)
	require.Equal(suite.T(), http.StatusUnauthorized, result.Response.StatusCode)
	require.Contains(suite.T(), result.Response.HeaderText, "Www-Authenticate: Digest")
	require.EqualValues(suite.T(), 2, suite.srv.ChallengeCount())
}

// Test timeout policy switching and timeout failures
func (suite *HTTPTransportTestSuite) TestTimeout() {
	require.Equal(suite.T(), DefaultTimeout, suite.transport.Timeout())
	suite.srv.SetResource("/rw/slow", "done")
	result := suite.transport.Get(context.Background(), "/rw/slow?delay=1000")
	require.Equal(suite.T(), rwsresult.TimeoutFailure, result.Status)
	require.NotEmpty(suite.T(), result.ExceptionMessage)
	require.Equal(suite.T(), "/rw/slow?delay=1000", result.Request.URI)
	// Policy persists until switched again
	suite.transport.UseExtendedTimeout()
	require.Equal(suite.T(), ExtendedTimeout, suite.transport.Timeout())
	result = suite.transport.Get(context.Background(), "/rw/slow?delay=500")
	require.Equal(suite.T(), rwsresult.Ok, result.Status)
	require.Equal(suite.T(), "done", result.Response.BodyText)
	require.Equal(suite.T(), ExtendedTimeout, suite.transport.Timeout())
	suite.transport.UseDefaultTimeout()
	require.Equal(suite.T(), DefaultTimeout, suite.transport.Timeout())
}

// Test a canceled context is a transport failure
func (suite *HTTPTransportTestSuite) TestCanceled() {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	result := suite.transport.Get(ctx, "/rw/system")
	require.Equal(suite.T(), rwsresult.TransportFailure, result.Status)
	require.Equal(suite.T(), "/rw/system", result.Request.URI)
	require.Zero(suite.T(), result.Response.StatusCode)
}

// Test an unreachable server is a transport failure
func (suite *HTTPTransportTestSuite) TestTransportFailure() {
	closed := httptest.NewServer(http.NotFoundHandler())
	opts := optionsFor(suite.T(), closed.URL, demorwsserver.DefaultPassword)
	closed.Close()
	transport := NewHTTPTransport(opts, nil, nil)
	result := transport.Get(context.Background(), "/rw/system")
	require.Equal(suite.T(), rwsresult.TransportFailure, result.Status)
	require.NotEmpty(suite.T(), result.ExceptionMessage)
	require.Equal(suite.T(), http.MethodGet, result.Request.Method)
}

// Test a 401 without Digest challenge ends the exchange
func (suite *HTTPTransportTestSuite) TestChallengeWithoutDigest() {
	var hits int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&hits, 1)
		w.Header().Set("WWW-Authenticate", `Basic realm="robot"`)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()
	transport := NewHTTPTransport(optionsFor(suite.T(), srv.URL, "pwd"), nil, nil)
	result := transport.Get(context.Background(), "/rw/system")
	require.Equal(suite.T(), rwsresult.Ok, result.Status)
	require.Equal(suite.T(), http.StatusUnauthorized, result.Response.StatusCode)
	require.EqualValues(suite.T(), 1, atomic.LoadInt64(&hits))
}

// Test cookies set by the challenge response are sent with the retry
func (suite *HTTPTransportTestSuite) TestCookiesFromChallenge() {
	var retryCookie, contentType atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "" {
			http.SetCookie(w, &http.Cookie{Name: "challenge", Value: "1", Path: "/"})
			w.Header().Set("WWW-Authenticate", `Digest realm="robot", nonce="n1", qop="auth"`)
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		retryCookie.Store(r.Header.Get("Cookie"))
		contentType.Store(r.Header.Get("Content-Type"))
		http.SetCookie(w, &http.Cookie{Name: "final", Value: "2", Path: "/"})
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()
	transport := NewHTTPTransport(optionsFor(suite.T(), srv.URL, "pwd"), nil, nil)
	result := transport.Post(context.Background(), "/rw/system", "a=b")
	require.Equal(suite.T(), rwsresult.Ok, result.Status)
	require.Equal(suite.T(), http.StatusOK, result.Response.StatusCode)
	require.Equal(suite.T(), "challenge=1", retryCookie.Load())
	require.Equal(suite.T(), formContentType, contentType.Load())
	require.Equal(suite.T(), "challenge=1; final=2", transport.Cookies().HeaderValue())
}

// Test an unanswerable Digest challenge is a protocol failure
func (suite *HTTPTransportTestSuite) TestUnsupportedAlgorithm() {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("WWW-Authenticate", `Digest realm="robot", nonce="n1", algorithm=SHA3-256`)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()
	transport := NewHTTPTransport(optionsFor(suite.T(), srv.URL, "pwd"), nil, nil)
	result := transport.Get(context.Background(), "/rw/system")
	require.Equal(suite.T(), rwsresult.ProtocolFailure, result.Status)
	require.Contains(suite.T(), result.ExceptionMessage, "digest")
	require.Equal(suite.T(), http.StatusUnauthorized, result.Response.StatusCode)
}

// Test redirects are not followed
func (suite *HTTPTransportTestSuite) TestRedirectNotFollowed() {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/elsewhere", http.StatusFound)
	}))
	defer srv.Close()
	transport := NewHTTPTransport(optionsFor(suite.T(), srv.URL, "pwd"), nil, nil)
	result := transport.Get(context.Background(), "/rw/system")
	require.Equal(suite.T(), rwsresult.Ok, result.Status)
	require.Equal(suite.T(), http.StatusFound, result.Response.StatusCode)
}

// Test custom timeouts
func (suite *HTTPTransportTestSuite) TestCustomTimeouts() {
	opts := optionsFor(suite.T(), suite.httpSrv.URL, demorwsserver.DefaultPassword)
	opts.DefaultTimeout = time.Second
	opts.ExtendedTimeout = time.Minute
	transport := NewHTTPTransport(opts, nil, nil)
	require.Equal(suite.T(), time.Second, transport.Timeout())
	transport.UseExtendedTimeout()
	require.Equal(suite.T(), time.Minute, transport.Timeout())
}
