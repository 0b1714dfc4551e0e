package registry

import "strings"

// RosterEntry is one row of a guild roster dump as handed to us by the
// ingestion collaborator: the character name plus the free-text rank and
// officer-note columns the standing is derived from.
type RosterEntry struct {
	Name  string
	Class string
	Rank  string
	Note  string
}

// Standing is the classification of a roster entry: the status to store, the
// inactive flag, and the owning main when the note marks the entry as an alt
// ("alt <owner>").
type Standing struct {
	Status   Status
	Inactive bool
	AltOf    string
}

// Classify derives a member's standing from the roster rank and note text.
// An "alt" note wins over everything; otherwise the rank prefix decides.
func Classify(entry RosterEntry) Standing {
	note := strings.ToLower(strings.TrimSpace(entry.Note))
	rank := strings.ToLower(strings.TrimSpace(entry.Rank))

	if strings.HasPrefix(note, "alt") {
		fields := strings.Fields(entry.Note)
		altOf := ""
		if len(fields) > 1 {
			altOf = Canonical(fields[1])
		}
		return Standing{Status: StatusAlt, AltOf: altOf}
	}
	switch {
	case strings.HasPrefix(rank, "friends,"):
		return Standing{Status: StatusFriendsAndFamily}
	case strings.HasPrefix(rank, "inactive"):
		return Standing{Status: StatusInactive, Inactive: true}
	case strings.HasPrefix(rank, "recruit"):
		return Standing{Status: StatusRecruit}
	default:
		return Standing{Status: StatusMain}
	}
}
