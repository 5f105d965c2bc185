package authz

import (
	"regexp"
	"strings"
	"sync"
)

// Matcher resolves a concrete path to a registered route template when no
// exact entry exists. Templates use :name for single-segment parameters,
// e.g. /domains/:id/concepts. Templates without parameters only ever match
// exactly and are skipped here.
type Matcher struct {
	mu       sync.Mutex
	compiled map[string]*regexp.Regexp
}

// NewMatcher creates a matcher with an empty pattern memo.
func NewMatcher() *Matcher {
	return &Matcher{compiled: make(map[string]*regexp.Regexp)}
}

// Match returns the first template in declaration order whose pattern covers
// the whole path. The boolean is false when nothing matches, which callers
// treat as "no route found" rather than "found but denied".
func (m *Matcher) Match(path string, templates []string) (string, bool) {
	for _, tmpl := range templates {
		if !strings.Contains(tmpl, ":") {
			continue
		}
		re := m.pattern(tmpl)
		if re == nil {
			continue
		}
		if re.MatchString(path) {
			return tmpl, true
		}
	}
	return "", false
}

// pattern compiles a template into an anchored whole-path regexp, memoizing
// the result. Parameter segments become single-segment wildcards; literal
// segments are quoted.
func (m *Matcher) pattern(tmpl string) *regexp.Regexp {
	m.mu.Lock()
	defer m.mu.Unlock()

	if re, ok := m.compiled[tmpl]; ok {
		return re
	}

	segments := strings.Split(tmpl, "/")
	parts := make([]string, len(segments))
	for i, seg := range segments {
		if strings.HasPrefix(seg, ":") {
			parts[i] = "[^/]+"
		} else {
			parts[i] = regexp.QuoteMeta(seg)
		}
	}

	re, err := regexp.Compile("^" + strings.Join(parts, "/") + "$")
	if err != nil {
		// A template that fails to compile can never match; remember that.
		m.compiled[tmpl] = nil
		return nil
	}
	m.compiled[tmpl] = re
	return re
}
