package models

import (
	"cmp"
	"strings"
)

// keySeparator joins the key fields in EntityKey.String. Module names never contain it.
const keySeparator = "||"

// EntityKey identifies a module-in-process record across every snapshot.
// Equality is exact on all three fields.
type EntityKey struct {
	Name     string `json:"name"`
	Vendor   string `json:"vendor"`
	Standard string `json:"standard"`
}

// Compare orders keys lexicographically by name, then vendor, then standard.
func (k EntityKey) Compare(other EntityKey) int {
	if c := cmp.Compare(k.Name, other.Name); c != 0 {
		return c
	}
	if c := cmp.Compare(k.Vendor, other.Vendor); c != 0 {
		return c
	}
	return cmp.Compare(k.Standard, other.Standard)
}

// String renders the key as name||vendor||standard.
func (k EntityKey) String() string {
	return k.Name + keySeparator + k.Vendor + keySeparator + k.Standard
}

// ParseEntityKey is the inverse of EntityKey.String.
func ParseEntityKey(s string) (EntityKey, bool) {
	parts := strings.Split(s, keySeparator)
	if len(parts) != 3 {
		return EntityKey{}, false
	}
	return EntityKey{Name: parts[0], Vendor: parts[1], Standard: parts[2]}, true
}
