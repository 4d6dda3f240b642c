// Package api serves stored meeting records over a read-only JSON API.
//
// List routes share one envelope:
//
//	{"meta": {"limit", "offset", "total_count", "next", "previous"}, "objects": [...]}
//
// and accept limit, offset and order_by ("field" or "-field") arguments.
// Detail routes return the bare object.
package api
