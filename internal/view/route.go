package view

import (
	"net/url"
	"strconv"
	"strings"
)

// Route names one dashboard page.
type Route string

const (
	RouteHome            Route = "home"
	RouteIndustry        Route = "industry"
	RouteConcept         Route = "concept"
	RouteHistory         Route = "history"
	RouteHistoryIndustry Route = "history-industry"
	RouteHistoryConcept  Route = "history-concept"
	RouteTrend           Route = "trend"
	RouteSettings        Route = "settings"
)

// Routes lists every known page.
var Routes = []Route{
	RouteHome, RouteIndustry, RouteConcept, RouteHistory,
	RouteHistoryIndustry, RouteHistoryConcept, RouteTrend, RouteSettings,
}

// ParseRoute normalises a route name; unknown names map to home.
func ParseRoute(s string) Route {
	r := Route(strings.TrimSpace(s))
	for _, known := range Routes {
		if r == known {
			return r
		}
	}
	return RouteHome
}

// ParseLocation splits a hash location such as "#/trend?board=BK0475" into
// its route and query parameters.
func ParseLocation(hash string) (Route, map[string]string) {
	h := strings.TrimPrefix(strings.TrimPrefix(hash, "#"), "/")
	if h == "" {
		h = string(RouteHome)
	}
	path, rawQuery, _ := strings.Cut(h, "?")
	query := make(map[string]string)
	for _, pair := range strings.Split(rawQuery, "&") {
		if pair == "" {
			continue
		}
		k, v, _ := strings.Cut(pair, "=")
		key, err := url.QueryUnescape(k)
		if err != nil || key == "" {
			continue
		}
		val, err := url.QueryUnescape(v)
		if err != nil {
			val = v
		}
		query[key] = val
	}
	return ParseRoute(path), query
}

func atoiOr(s string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return def
	}
	return n
}
