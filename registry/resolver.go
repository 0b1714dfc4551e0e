package registry

import "strings"

// altSuffix marks a display name that explicitly targets the bidder's alt
// pool, e.g. "Lancegar's alt".
const altSuffix = "'s alt"

// Directory is the lookup surface the resolver needs. The storage layer
// provides an implementation; tests can use a map-backed one.
type Directory interface {
	// Member returns the member registered under the exact name.
	Member(name string) (*Member, bool)
	// AltOwner returns the member owning the alt registered under name.
	AltOwner(name string) (*Member, bool)
}

// Resolution is the outcome of resolving a display name. Alt reports whether
// the name indicated alt intent, meaning charges should debit the owner's alt
// pool.
type Resolution struct {
	Member *Member
	Alt    bool
}

// Resolve maps a submitted display name to a member. Three forms are
// understood: a plain member name, a name with the "'s alt" suffix (resolved
// to the base name with alt intent), and an alt-link name (resolved to the
// owning member with alt intent). Returns false when no form matches.
func Resolve(dir Directory, display string) (Resolution, bool) {
	name := strings.TrimSpace(display)
	alt := false
	if base, ok := strings.CutSuffix(name, altSuffix); ok {
		name = strings.TrimSpace(base)
		alt = true
	}
	if m, ok := dir.Member(name); ok {
		return Resolution{Member: m, Alt: alt}, true
	}
	if m, ok := dir.Member(Canonical(name)); ok {
		return Resolution{Member: m, Alt: alt}, true
	}
	if m, ok := dir.AltOwner(name); ok {
		return Resolution{Member: m, Alt: true}, true
	}
	if m, ok := dir.AltOwner(Canonical(name)); ok {
		return Resolution{Member: m, Alt: true}, true
	}
	return Resolution{}, false
}
