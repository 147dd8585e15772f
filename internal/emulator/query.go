package emulator

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"peritagem/internal/localstore"
)

// errUnsupportedFilter marks a filter that was dropped; the rest of the
// query still applies.
var errUnsupportedFilter = errors.New("unsupported filter")

// parseQuery maps the PostgREST filters the app uses onto a store query.
// Unsupported parameters (select, limit, other columns) are ignored.
func parseQuery(rawQuery string) (localstore.Query, error) {
	var q localstore.Query
	values, err := url.ParseQuery(rawQuery)
	if err != nil {
		return q, err
	}

	var filterErr error
	if status := values.Get("status"); status != "" {
		switch {
		case strings.HasPrefix(status, "eq."):
			v := strings.TrimPrefix(status, "eq.")
			q.StatusEq = &v
		case strings.HasPrefix(status, "in.("):
			// an empty list still filters: in.() holds the single member ""
			list := strings.TrimSuffix(strings.TrimPrefix(status, "in.("), ")")
			q.StatusIn = []string{}
			for _, v := range strings.Split(list, ",") {
				q.StatusIn = append(q.StatusIn, strings.Trim(strings.TrimSpace(v), `"`))
			}
		default:
			filterErr = fmt.Errorf("%w: status %q", errUnsupportedFilter, status)
		}
	}

	if id, ok := idEq(values); ok {
		q.IDEq = id
	}

	switch values.Get("order") {
	case "created_at.desc":
		q.Order = localstore.OrderCreatedDesc
	case "created_at.asc", "created_at":
		q.Order = localstore.OrderCreatedAsc
	}
	return q, filterErr
}

func idEq(values url.Values) (string, bool) {
	id := values.Get("id")
	if !strings.HasPrefix(id, "eq.") {
		return "", false
	}
	id = strings.TrimPrefix(id, "eq.")
	return id, id != ""
}
