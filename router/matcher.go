package router

import "strings"

// Matcher picks the route serving path. Candidates are ordered by
// registration, oldest first.
type Matcher func(routes []Route, path string) (Route, bool)

// LongestPrefix selects the route with the longest prefix of path. Equal
// lengths go to the earliest registration.
func LongestPrefix(routes []Route, path string) (Route, bool) {
	var best Route
	found := false
	for _, rt := range routes {
		if !strings.HasPrefix(path, rt.Prefix) {
			continue
		}
		if !found || len(rt.Prefix) > len(best.Prefix) {
			best, found = rt, true
		}
	}
	return best, found
}

// FirstPrefix selects the earliest registered route whose prefix matches.
func FirstPrefix(routes []Route, path string) (Route, bool) {
	for _, rt := range routes {
		if strings.HasPrefix(path, rt.Prefix) {
			return rt, true
		}
	}
	return Route{}, false
}
