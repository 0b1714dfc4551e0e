package registry

import "strings"

// Status is the guild-roster standing of a member. The short codes match the
// roster conventions used by the officer tooling that feeds this system.
type Status string

const (
	StatusMain             Status = "Main"
	StatusAlt              Status = "ALT"
	StatusRecruit          Status = "Recruit"
	StatusInactive         Status = "INA"
	StatusFriendsAndFamily Status = "FNF"
)

// Member is a single point-earning identity. The name is the identity key;
// everything else in the system references members by name.
type Member struct {
	Name           string `json:"name"`
	Class          string `json:"class,omitempty"`
	Status         Status `json:"status"`
	Inactive       bool   `json:"inactive,omitempty"`
	LeaveOfAbsence bool   `json:"leave_of_absence,omitempty"`
}

// AltLink maps an alt display name to its owning member. Resolving through a
// link yields the owner, never a separate account.
type AltLink struct {
	Name string `json:"name"`
	Main string `json:"main"`
}

// Canonical normalizes a character name the way roster ingestion stores it:
// first rune upper-cased, remainder lower-cased.
func Canonical(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	lower := strings.ToLower(name)
	return strings.ToUpper(lower[:1]) + lower[1:]
}
