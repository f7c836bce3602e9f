package agent

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/gobwas/glob"
)

// EndpointMatcher recognises responses of a problem's data endpoint. The glob
// is matched against host and path only, so the request method and query shape
// do not matter. A page query parameter, when present, must name the page being
// waited for; responses for other pages are stale traffic.
type EndpointMatcher struct {
	pattern string
	glob    glob.Glob
}

func NewEndpointMatcher(pattern string) (*EndpointMatcher, error) {
	pattern = strings.TrimSpace(pattern)
	if pattern == "" {
		return nil, fmt.Errorf("%w: empty endpoint pattern", ErrInvalidConfig)
	}
	g, err := glob.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("%w: endpoint pattern %q: %v", ErrInvalidConfig, pattern, err)
	}
	return &EndpointMatcher{pattern: pattern, glob: g}, nil
}

func (m *EndpointMatcher) Pattern() string {
	return m.pattern
}

// Match reports whether rawURL is a data response for page. page <= 0 skips the page check.
func (m *EndpointMatcher) Match(rawURL string, page int) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	path := u.Path
	if !strings.HasSuffix(path, "/") {
		path += "/"
	}
	if !m.glob.Match(u.Host + path) {
		return false
	}
	if page <= 0 {
		return true
	}
	raw := u.Query().Get("page")
	if raw == "" {
		return true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return true
	}
	return n == page
}
