package rwscookies

import (
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

/*************************************************************************************************/
/* TEST SUITE                                                                                    */
/*************************************************************************************************/

// Test suite used for Store unit tests
type StoreUnitTestSuite struct {
	suite.Suite
}

// Run StoreUnitTestSuite test suite
func TestStoreUnitTestSuite(t *testing.T) {
	suite.Run(t, new(StoreUnitTestSuite))
}

/*************************************************************************************************/
/* UNIT TESTS                                                                                    */
/*************************************************************************************************/

// Test an empty store renders an empty header value
func (suite *StoreUnitTestSuite) TestEmptyStore() {
	store := NewStore()
	require.Equal(suite.T(), "", store.HeaderValue())
	require.Equal(suite.T(), 0, store.Len())
}

// Test several pairs in one header are all stored and the last value wins
func (suite *StoreUnitTestSuite) TestRoundTrip() {
	store := NewStore()
	store.Absorb("a=1; b=2")
	require.Contains(suite.T(), store.HeaderValue(), "a=1")
	require.Contains(suite.T(), store.HeaderValue(), "b=2")
	store.Absorb("a=3")
	require.Equal(suite.T(), "a=3; b=2", store.HeaderValue())
	require.NotContains(suite.T(), store.HeaderValue(), "a=1")
}

// Test cookie attributes are ignored
func (suite *StoreUnitTestSuite) TestAttributesIgnored() {
	store := NewStore()
	store.Absorb("-http-session-=1::http.session::9f3c; path=/; Expires=Wed, 21 Oct 2015 07:28:00 GMT; HttpOnly; Max-Age=3600; SameSite=Lax")
	require.Equal(suite.T(), "-http-session-=1::http.session::9f3c", store.HeaderValue())
	value, found := store.Get("-http-session-")
	require.True(suite.T(), found)
	require.Equal(suite.T(), "1::http.session::9f3c", value)
}

// Test malformed segments are skipped
func (suite *StoreUnitTestSuite) TestMalformedSegments() {
	store := NewStore()
	store.Absorb("garbage; =novalue; ok=1;;  ; bad name=2; quoted=\"v\"")
	require.Equal(suite.T(), "ok=1; quoted=v", store.HeaderValue())
	store.Absorb("")
	require.Equal(suite.T(), 2, store.Len())
}

// Test names are case sensitive
func (suite *StoreUnitTestSuite) TestCaseSensitiveNames() {
	store := NewStore()
	store.Absorb("ABBCX=1")
	store.Absorb("abbcx=2")
	require.Equal(suite.T(), "ABBCX=1; abbcx=2", store.HeaderValue())
}

// Test every Set-Cookie header is absorbed
func (suite *StoreUnitTestSuite) TestAbsorbHeader() {
	store := NewStore()
	header := http.Header{}
	header.Add("Set-Cookie", "-http-session-=abc; path=/; httponly")
	header.Add("Set-Cookie", "ABBCX=17; path=/")
	header.Add("Content-Type", "text/plain")
	store.AbsorbHeader(header)
	require.Equal(suite.T(), "-http-session-=abc; ABBCX=17", store.HeaderValue())
	store.Clear()
	require.Equal(suite.T(), "", store.HeaderValue())
}

// Test concurrent use does not race
func (suite *StoreUnitTestSuite) TestConcurrentUse() {
	store := NewStore()
	wg := sync.WaitGroup{}
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			store.Absorb("a=1")
			_ = store.HeaderValue()
		}()
	}
	wg.Wait()
	require.Equal(suite.T(), "a=1", store.HeaderValue())
}
