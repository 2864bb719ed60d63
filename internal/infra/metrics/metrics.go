// File: internal/infra/metrics/metrics.go
package metrics

import "strings"

func norm(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

// OwnerKind collapses an owner to a bounded label value.
func OwnerKind(house bool) string {
	if house {
		return "house"
	}
	return "distributor"
}
