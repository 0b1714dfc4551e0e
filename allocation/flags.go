package allocation

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/guildtools/dkpledger/auction"
	"github.com/guildtools/dkpledger/ledger"
	"github.com/guildtools/dkpledger/registry"
)

// FlagsResult is the outcome of a flag roll: the announcement message and any
// unknown-player warnings.
type FlagsResult struct {
	Message  string   `json:"message"`
	Warnings []string `json:"warnings,omitempty"`
}

type flagEntry struct {
	display    string
	attendance float64
}

// ResolveFlags awards itemCount flag slots purely by 30-day attendance.
// Duplicate player names are collapsed, unknown names become warnings, and a
// shuffle before sorting settles exact attendance ties fairly. The message
// carries a trailing marker when there were warnings.
func ResolveFlags(dir registry.Directory, log *ledger.Log, players []string, itemName string, itemCount int, now time.Time, randSource auction.RandSource) FlagsResult {
	var result FlagsResult

	seen := make(map[string]bool)
	entries := make([]flagEntry, 0, len(players))
	for _, name := range players {
		if seen[name] {
			continue
		}
		seen[name] = true

		res, ok := registry.Resolve(dir, name)
		if !ok {
			result.Warnings = append(result.Warnings, fmt.Sprintf("%s not found in system.", name))
			continue
		}
		entries = append(entries, flagEntry{
			display:    name,
			attendance: log.AttendancePct(res.Member.Name, attendanceWindowDays, now),
		})
	}

	shuffleEntries(entries, randSource)
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].attendance > entries[j].attendance
	})

	n := itemCount
	if n > len(entries) {
		n = len(entries)
	}
	names := make([]string, 0, n)
	for _, e := range entries[:n] {
		names = append(names, e.display)
	}

	result.Message = fmt.Sprintf("%s: %s", itemName, strings.Join(names, ", "))
	if len(result.Warnings) > 0 {
		result.Message += " *"
	}
	return result
}
