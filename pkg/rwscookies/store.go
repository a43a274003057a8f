// Package rwscookies provides the single-valued cookie jar used to keep the session with the
// robot controller across requests.
package rwscookies

import (
	"net/http"
	"sort"
	"strings"
	"sync"
)

// Set-Cookie attribute names. Segments using these names are not cookies and are ignored.
var attributes = map[string]struct{}{
	"path":        {},
	"domain":      {},
	"expires":     {},
	"max-age":     {},
	"secure":      {},
	"httponly":    {},
	"samesite":    {},
	"priority":    {},
	"partitioned": {},
}

// Cookie jar which maps a cookie name to a single value. Names are case sensitive and the last
// received value wins. The store is safe for concurrent use.
type Store struct {
	cookies map[string]string
	mu      sync.RWMutex
}

// Factory which creates a new, empty Store.
func NewStore() *Store {
	return &Store{
		cookies: map[string]string{},
		mu:      sync.RWMutex{},
	}
}

// # Description
//
// Parse a Set-Cookie header value and store every name=value pair it contains. Cookie attributes
// like Path or Expires are ignored, as well as segments which cannot be parsed.
//
// # Inputs
//
//   - header: A single Set-Cookie header value. Example: "-http-session-=1::http.session::ab; path=/"
func (store *Store) Absorb(header string) {
	pairs := parse(header)
	if len(pairs) == 0 {
		return
	}
	store.mu.Lock()
	defer store.mu.Unlock()
	for _, pair := range pairs {
		store.cookies[pair[0]] = pair[1]
	}
}

// Absorb every Set-Cookie value of the provided headers.
func (store *Store) AbsorbHeader(header http.Header) {
	for _, value := range header.Values("Set-Cookie") {
		store.Absorb(value)
	}
}

// # Description
//
// Render all stored cookies as a Cookie header value. Pairs are sorted by name and joined by "; ".
//
// # Returns
//
// The Cookie header value or an empty string if the store is empty.
func (store *Store) HeaderValue() string {
	store.mu.RLock()
	defer store.mu.RUnlock()
	names := make([]string, 0, len(store.cookies))
	for name := range store.cookies {
		names = append(names, name)
	}
	sort.Strings(names)
	pairs := make([]string, 0, len(names))
	for _, name := range names {
		pairs = append(pairs, name+"="+store.cookies[name])
	}
	return strings.Join(pairs, "; ")
}

// Get the value of a cookie and whether the cookie is known.
func (store *Store) Get(name string) (string, bool) {
	store.mu.RLock()
	defer store.mu.RUnlock()
	value, found := store.cookies[name]
	return value, found
}

// Return the number of stored cookies.
func (store *Store) Len() int {
	store.mu.RLock()
	defer store.mu.RUnlock()
	return len(store.cookies)
}

// Drop all stored cookies.
func (store *Store) Clear() {
	store.mu.Lock()
	defer store.mu.Unlock()
	store.cookies = map[string]string{}
}

// Split a Set-Cookie value into name/value pairs, skipping attributes and malformed segments.
func parse(header string) [][2]string {
	pairs := [][2]string{}
	for _, segment := range strings.Split(header, ";") {
		name, value, found := strings.Cut(segment, "=")
		if !found {
			continue
		}
		name = strings.TrimSpace(name)
		if name == "" || strings.ContainsAny(name, " \t,\"") {
			continue
		}
		if _, isAttribute := attributes[strings.ToLower(name)]; isAttribute {
			continue
		}
		value = strings.Trim(strings.TrimSpace(value), "\"")
		pairs = append(pairs, [2]string{name, value})
	}
	return pairs
}
