package main

import (
	"bytes"
	"net"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/gbdevw/gorwsclient/pkg/demorwsserver"
	"github.com/gbdevw/gorwsclient/pkg/rwsresult"
)

/*************************************************************************************************/
/* TEST SUITE                                                                                    */
/*************************************************************************************************/

type ProbeCommandsTestSuite struct {
	suite.Suite
	// Robot web service simulator
	srv *demorwsserver.DemoRobotWebServiceServer
	// Test HTTP server which serves the simulator
	httpSrv *httptest.Server
	// Host and port of the test server
	host string
	port string
}

// Run ProbeCommandsTestSuite test suite
func TestProbeCommandsTestSuite(t *testing.T) {
	suite.Run(t, new(ProbeCommandsTestSuite))
}

// ProbeCommandsTestSuite - Before each test
func (suite *ProbeCommandsTestSuite) SetupTest() {
	srv, err := demorwsserver.NewDemoRobotWebServiceServer(demorwsserver.NewDefaultOptions(), nil, nil, nil, nil)
	require.NoError(suite.T(), err)
	suite.srv = srv
	suite.httpSrv = httptest.NewServer(srv)
	u, err := url.Parse(suite.httpSrv.URL)
	require.NoError(suite.T(), err)
	suite.host, suite.port, err = net.SplitHostPort(u.Host)
	require.NoError(suite.T(), err)
}

// ProbeCommandsTestSuite - After each test
func (suite *ProbeCommandsTestSuite) TearDownTest() {
	suite.httpSrv.Close()
}

// Run the probe with the provided arguments and return its output.
func (suite *ProbeCommandsTestSuite) run(args ...string) (string, error) {
	out := new(bytes.Buffer)
	cmd := newRootCommand()
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs(append(args, "--host", suite.host, "--port", suite.port))
	err := cmd.Execute()
	return out.String(), err
}

/*************************************************************************************************/
/* TESTS                                                                                         */
/*************************************************************************************************/

// Test HTTP commands
func (suite *ProbeCommandsTestSuite) TestRequests() {
	out, err := suite.run("post", "/rw/var", "value=1")
	require.NoError(suite.T(), err)
	require.Contains(suite.T(), out, "201")
	out, err = suite.run("get", "/rw/var", "--verbose")
	require.NoError(suite.T(), err)
	require.Contains(suite.T(), out, "value=1")
	out, err = suite.run("put", "/rw/var", "value=2")
	require.NoError(suite.T(), err)
	require.Contains(suite.T(), out, "204")
	_, err = suite.run("delete", "/rw/var")
	require.NoError(suite.T(), err)
	content, ok := suite.srv.Resource("/rw/var")
	require.False(suite.T(), ok, content)
}

// Test wrong credentials and arguments
func (suite *ProbeCommandsTestSuite) TestErrors() {
	output, err := suite.run("get", "/rw/system", "--password", "wrong")
	require.NoError(suite.T(), err)
	require.Contains(suite.T(), output, "401")
	_, err = suite.run("get")
	require.Error(suite.T(), err)
	_, err = suite.run("get", "/rw/system", "--library", "unknown")
	require.Error(suite.T(), err)
	// Nothing listens on port 1
	out := new(bytes.Buffer)
	cmd := newRootCommand()
	cmd.SetOut(out)
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"get", "/rw/system", "--host", "127.0.0.1", "--port", "1"})
	err = cmd.Execute()
	require.ErrorAs(suite.T(), err, new(failedResultError))
	require.Contains(suite.T(), out.String(), rwsresult.TransportFailure.String())
}

// Test configuration file
func (suite *ProbeCommandsTestSuite) TestConfigurationFile() {
	path := filepath.Join(suite.T().TempDir(), "probe.yaml")
	require.NoError(suite.T(), os.WriteFile(path, []byte("password: wrong\n"), 0o600))
	out, err := suite.run("get", "/rw/system", "--config", path)
	require.NoError(suite.T(), err)
	require.Contains(suite.T(), out, "401")
	require.EqualValues(suite.T(), 2, suite.srv.ChallengeCount())
}

// Test subscription command
func (suite *ProbeCommandsTestSuite) TestSubscribe() {
	go func() {
		for i := 0; i < 500 && suite.srv.SubscriberCount() == 0; i++ {
			time.Sleep(10 * time.Millisecond)
		}
		suite.srv.Publish(websocket.TextMessage, []byte("<span>first</span>"))
		suite.srv.Publish(websocket.TextMessage, []byte("<span>second</span>"))
	}()
	out, err := suite.run("subscribe", demorwsserver.SubscriptionPath, demorwsserver.DefaultSubprotocol,
		"--count", "2", "--extract", "<span>|</span>", "--extended")
	require.NoError(suite.T(), err)
	require.Contains(suite.T(), out, "101")
	require.Contains(suite.T(), out, "first\nsecond\n")
}

// Test failed result error
func TestFailedResultError(t *testing.T) {
	err := failedResultError{status: rwsresult.TimeoutFailure}
	require.Contains(t, err.Error(), rwsresult.TimeoutFailure.String())
}
