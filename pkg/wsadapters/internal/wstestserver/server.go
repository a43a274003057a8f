// Package wstestserver provides a scripted websocket server used to test the adapters.
package wstestserver

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// Subprotocol accepted by the server
	Subprotocol = "robapi2_subscription"
	// Size of the large binary message sent by the script
	LargeMessageSize = 4096
)

// Scripted websocket server. Each path runs a different script:
//
//   - /script: TEXT "hello", BINARY of LargeMessageSize bytes, TEXT "after", CLOSE 1000 "bye"
//   - /ping: PING "p1", TEXT "data"
//   - /silent: nothing is sent
//   - /denied: handshake is refused with a 401 and a Digest challenge
type Server struct {
	*httptest.Server
}

// Start a new scripted server.
func New() *Server {
	upgrader := websocket.Upgrader{Subprotocols: []string{Subprotocol}}
	mux := http.NewServeMux()
	mux.HandleFunc("/denied", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("WWW-Authenticate", `Digest realm="test", nonce="abc", qop="auth"`)
		w.Header().Add("Set-Cookie", "-http-session-=denied; path=/")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte("denied"))
	})
	script := func(send func(conn *websocket.Conn) error) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			conn, err := upgrader.Upgrade(w, r, nil)
			if err != nil {
				return
			}
			defer conn.Close()
			if err := send(conn); err != nil {
				return
			}
			// Keep connection open until the client leaves
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}
	}
	mux.HandleFunc("/script", script(func(conn *websocket.Conn) error {
		if err := conn.WriteMessage(websocket.TextMessage, []byte("hello")); err != nil {
			return err
		}
		large := bytes.Repeat([]byte{0x2A}, LargeMessageSize)
		if err := conn.WriteMessage(websocket.BinaryMessage, large); err != nil {
			return err
		}
		if err := conn.WriteMessage(websocket.TextMessage, []byte("after")); err != nil {
			return err
		}
		return conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"),
			time.Now().Add(time.Second))
	}))
	mux.HandleFunc("/ping", script(func(conn *websocket.Conn) error {
		if err := conn.WriteControl(websocket.PingMessage, []byte("p1"), time.Now().Add(time.Second)); err != nil {
			return err
		}
		return conn.WriteMessage(websocket.TextMessage, []byte("data"))
	}))
	mux.HandleFunc("/silent", script(func(conn *websocket.Conn) error {
		return nil
	}))
	return &Server{Server: httptest.NewServer(mux)}
}

// Return the websocket URL of the provided path.
func (srv *Server) WebsocketURL(path string) string {
	return strings.Replace(srv.URL, "http://", "ws://", 1) + path
}
