package api

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/JakeFAU/ktweb-minutes/internal/store"
)

const (
	defaultLimit = 20
	maxLimit     = 1000
)

// argumentError is reported to clients as a 400.
type argumentError struct {
	value    string
	name     string
	expected string
}

func (e *argumentError) Error() string {
	return fmt.Sprintf("Invalid value '%s' for argument '%s', expected %s.", e.value, e.name, e.expected)
}

func positiveIntArg(q url.Values, name string, def int, allowZero bool) (int, error) {
	raw := q.Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 || (v == 0 && !allowZero) {
		return 0, &argumentError{value: raw, name: name, expected: "a positive integer"}
	}
	return v, nil
}

func idArg(q url.Values, name string) (int64, error) {
	raw := q.Get(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v <= 0 {
		return 0, &argumentError{value: raw, name: name, expected: "an integer value"}
	}
	return v, nil
}

// orderArg accepts each sortable field with an optional "-" prefix. The
// first field is the default.
func orderArg(q url.Values, sortable []string) (string, bool, error) {
	raw := q.Get("order_by")
	if raw == "" {
		return sortable[0], false, nil
	}
	field := strings.TrimPrefix(raw, "-")
	for _, f := range sortable {
		if f == field {
			return field, strings.HasPrefix(raw, "-"), nil
		}
	}
	choices := make([]string, 0, 2*len(sortable))
	for _, f := range sortable {
		choices = append(choices, "'"+f+"'", "'-"+f+"'")
	}
	return "", false, &argumentError{value: raw, name: "order_by", expected: strings.Join(choices, " or ")}
}

// pageQuery parses the paging arguments shared by every list route.
func pageQuery(r *http.Request, sortable []string) (store.Query, error) {
	q := r.URL.Query()
	limit, err := positiveIntArg(q, "limit", defaultLimit, false)
	if err != nil {
		return store.Query{}, err
	}
	offset, err := positiveIntArg(q, "offset", 0, true)
	if err != nil {
		return store.Query{}, err
	}
	order, desc, err := orderArg(q, sortable)
	if err != nil {
		return store.Query{}, err
	}
	return store.Query{
		Limit:   min(limit, maxLimit),
		Offset:  offset,
		OrderBy: order,
		Desc:    desc,
	}, nil
}

// Meta is the paging block of a list response.
type Meta struct {
	Limit      int     `json:"limit"`
	Offset     int     `json:"offset"`
	TotalCount int     `json:"total_count"`
	Next       *string `json:"next"`
	Previous   *string `json:"previous"`
}

// ListResponse is the envelope every list route returns.
type ListResponse[T any] struct {
	Meta    Meta `json:"meta"`
	Objects []T  `json:"objects"`
}

func pageMeta(r *http.Request, q store.Query, total int) Meta {
	meta := Meta{Limit: q.Limit, Offset: q.Offset, TotalCount: total}
	if q.Offset < total-q.Limit {
		meta.Next = pageLink(r, q.Offset+q.Limit)
	}
	if q.Offset > 0 {
		meta.Previous = pageLink(r, max(q.Offset-q.Limit, 0))
	}
	return meta
}

func pageLink(r *http.Request, offset int) *string {
	args := r.URL.Query()
	args.Set("offset", strconv.Itoa(offset))
	link := r.URL.Path + "?" + args.Encode()
	return &link
}
