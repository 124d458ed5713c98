package endpoint

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Endpoint is a parsed provider endpoint URI.
// Example: unix:/var/lib/incus/unix.socket
type Endpoint struct {
	// Raw is the original input string.
	Raw string
	// Scheme is the connection scheme (e.g., "unix").
	Scheme string
	// Value is the scheme-specific value.
	Value string

	// SocketPath is set when Scheme == "unix"; empty means the platform
	// default socket.
	SocketPath string
}

// SupportedSchemes lists the schemes the parser accepts.
var SupportedSchemes = map[string]struct{}{
	"unix": {},
}

// Parse parses an endpoint URI like "unix:/path/to.socket". A bare "unix:"
// selects the platform's default socket. The session configuration is
// explicit by design; nothing in the tool reaches for an ambient
// connection.
func Parse(raw string) (Endpoint, error) {
	e := Endpoint{Raw: raw}
	s := strings.TrimSpace(raw)
	if s == "" {
		return e, fmt.Errorf("endpoint must not be empty; expected format 'unix:/path/to.socket' or 'unix:'")
	}
	i := strings.Index(s, ":")
	if i <= 0 {
		return e, fmt.Errorf("invalid endpoint %q; expected format '<scheme>:<value>' (e.g., 'unix:/path/to.socket')", raw)
	}
	scheme := strings.ToLower(strings.TrimSpace(s[:i]))
	val := strings.TrimSpace(s[i+1:])
	if _, ok := SupportedSchemes[scheme]; !ok {
		return e, fmt.Errorf("unsupported endpoint scheme %q", scheme)
	}
	e.Scheme = scheme
	e.Value = val

	if scheme == "unix" && val != "" {
		clean := filepath.Clean(val)
		if !filepath.IsAbs(clean) {
			return e, fmt.Errorf("unix socket path must be absolute: %q", val)
		}
		e.SocketPath = clean
		e.Value = clean
	}
	return e, nil
}

// IsSupported returns true if the scheme is recognized.
func IsSupported(scheme string) bool {
	_, ok := SupportedSchemes[strings.ToLower(scheme)]
	return ok
}

// String returns a canonical string form of the endpoint.
func (e Endpoint) String() string {
	if e.Scheme != "" {
		return fmt.Sprintf("%s:%s", e.Scheme, e.Value)
	}
	return e.Raw
}
