// Package origin provides a checker for the Origin header of incoming
// HTTP requests based on a list of glob patterns.
package origin

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/gobwas/glob"
)

// Checker validates request Origin header. When no patterns configured
// only same-origin requests pass the check.
type Checker struct {
	patterns []glob.Glob
}

// NewChecker creates new Checker from a list of allowed origin patterns.
// Pattern "*" allows any origin.
func NewChecker(allowedOrigins []string) (*Checker, error) {
	var globs []glob.Glob
	for _, pattern := range allowedOrigins {
		g, err := glob.Compile(strings.ToLower(pattern))
		if err != nil {
			return nil, fmt.Errorf("malformed origin pattern: %w", err)
		}
		globs = append(globs, g)
	}
	return &Checker{patterns: globs}, nil
}

// Check returns nil if request Origin is authorized. Requests without
// Origin header always pass since they are not issued by browsers.
func (c *Checker) Check(r *http.Request) error {
	origin := r.Header.Get("Origin")
	if origin == "" || origin == "null" {
		return nil
	}

	if len(c.patterns) == 0 {
		u, err := url.Parse(strings.ToLower(origin))
		if err != nil {
			return fmt.Errorf("error parsing request Origin %s: %w", origin, err)
		}
		if strings.EqualFold(u.Host, r.Host) {
			return nil
		}
		return fmt.Errorf("request Origin %s is not authorized for Host %s", origin, r.Host)
	}

	for _, pattern := range c.patterns {
		if pattern.Match(strings.ToLower(origin)) {
			return nil
		}
	}

	return fmt.Errorf("request Origin %s is not authorized", origin)
}
