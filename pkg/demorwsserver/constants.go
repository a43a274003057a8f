// This package contains the implementation of a robot web service simulator with the following
// features:
//   - Digest authentication (RFC 2617/RFC 7616) with session cookies
//   - in-memory resources which can be read, created, updated and deleted
//   - optional response delay to simulate slow operations
//   - WebSocket subscriptions with server side publication, ping and close
package demorwsserver

// Constants used by the simulator
const (
	// Default realm used in Digest challenges
	DefaultRealm = "validusers@robapi.abb"
	// Default user name
	DefaultUsername = "Default User"
	// Default password
	DefaultPassword = "robotics"
	// Default Digest algorithm
	DefaultAlgorithm = "MD5"
	// Default Digest qop
	DefaultQOP = "auth"
	// Default WebSocket subprotocol
	DefaultSubprotocol = "robapi2_subscription"
	// Path used to open WebSocket subscriptions
	SubscriptionPath = "/poll"
	// Name of the session cookie
	SessionCookie = "-http-session-"
	// Name of the cookie which counts authenticated sessions
	SessionCounterCookie = "ABBCX"
	// Query parameter used to delay a response (milliseconds)
	DelayParameter = "delay"
)

// Constants used for tracing and metrics purpose
const (
	instrumentationId       = "gorwsclient.demorwsserver"
	spanRequest             = instrumentationId + ".request"
	spanUpgrade             = instrumentationId + ".upgrade"
	spanPublish             = instrumentationId + ".publish"
	spanCloseSessions       = instrumentationId + ".close_sessions"
	attrMethod              = "http.request.method"
	attrPath                = "url.path"
	attrStatusCode          = "http.response.status_code"
	attrAuthenticated       = "authenticated"
	attrSubscriberCount     = "subscribers"
	metricSessionsGauge     = "demorwsserver.sessions_active"
	metricSubscribersGauge  = "demorwsserver.subscribers_active"
	metricChallengesCounter = "demorwsserver.challenges_total"
	metricResourcesGauge    = "demorwsserver.resources"
)
