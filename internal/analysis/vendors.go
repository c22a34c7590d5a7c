package analysis

import (
	"cmp"
	"slices"
)

// DefaultTopVendors is the vendor breakdown length used when none is requested.
const DefaultTopVendors = 25

// VendorCount is the number of modules a vendor has in process.
type VendorCount struct {
	Vendor string `json:"vendor"`
	Count  int    `json:"count"`
}

// TopVendors ranks vendors in snap by module count, descending, ties by vendor name.
// n <= 0 returns every vendor.
func TopVendors(snap Snapshot, n int) []VendorCount {
	counts := make(map[string]int)
	for key := range snap.Statuses {
		counts[key.Vendor]++
	}
	out := make([]VendorCount, 0, len(counts))
	for v, c := range counts {
		out = append(out, VendorCount{Vendor: v, Count: c})
	}
	slices.SortFunc(out, func(a, b VendorCount) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Vendor, b.Vendor)
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}
