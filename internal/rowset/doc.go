// Package rowset provides a pooled Roaring-backed set of row indices used
// to materialize mask and predicate selections in ascending row order.
package rowset
