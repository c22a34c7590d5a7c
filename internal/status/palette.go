package status

// Known statuses as published by NIST, plus the synthetic NotDisplayed bucket.
const (
	ReviewPending = "Review Pending"
	InReview      = "In Review"
	Coordination  = "Coordination"
	Finalization  = "Finalization"
	OnHold        = "On Hold"
	NotDisplayed  = "Not Displayed"
)

// DefaultTerminal is the status after which a module has completed processing.
const DefaultTerminal = Finalization

// DefaultColor is the fallback bucket colour for statuses outside the palette.
const DefaultColor = "#bab0ac"

// Known lists the palette statuses in display order.
var Known = []string{ReviewPending, InReview, Coordination, Finalization, OnHold, NotDisplayed}

var colors = map[string]string{
	ReviewPending: "#4e79a7",
	InReview:      "#f28e2b",
	Coordination:  "#59a14f",
	Finalization:  "#9467bd",
	OnHold:        "#e05c5c",
	NotDisplayed:  "#bab0ac",
}

// Color returns the palette colour for a normalized status, or DefaultColor.
func Color(normalized string) string {
	if c, ok := colors[normalized]; ok {
		return c
	}
	return DefaultColor
}

// IsKnown reports whether the status has its own palette entry.
func IsKnown(normalized string) bool {
	_, ok := colors[normalized]
	return ok
}

// Order returns the statuses to display for the given observed set: palette statuses
// first in palette order, then any unknown ones in the order given.
func Order(observed []string) []string {
	seen := make(map[string]struct{}, len(observed))
	for _, s := range observed {
		seen[s] = struct{}{}
	}
	out := make([]string, 0, len(observed))
	for _, s := range Known {
		if _, ok := seen[s]; ok {
			out = append(out, s)
			delete(seen, s)
		}
	}
	for _, s := range observed {
		if _, ok := seen[s]; ok {
			out = append(out, s)
			delete(seen, s)
		}
	}
	return out
}
