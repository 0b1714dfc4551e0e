// Package allocation ranks members for non-monetary awards: breaking naming
// ties between paired candidates and resolving attendance-based flag rolls.
package allocation

import (
	"fmt"
	"sort"

	"time"

	"github.com/guildtools/dkpledger/auction"
	"github.com/guildtools/dkpledger/ledger"
	"github.com/guildtools/dkpledger/registry"
)

// attendanceWindowDays matches the window the auction engine snapshots.
const attendanceWindowDays = 30

// UnknownCharacterError reports a tiebreak name that resolves to nobody.
type UnknownCharacterError struct {
	Name string
}

func (e *UnknownCharacterError) Error() string {
	return fmt.Sprintf("unknown character: %s", e.Name)
}

// Ranking is one tiebreak finisher: the display name as submitted and a
// human-readable explanation of its sort key.
type Ranking struct {
	Display     string `json:"name"`
	Explanation string `json:"explanation"`
}

type tiebreakEntry struct {
	display    string
	balance    int
	attendance float64
}

// Tiebreak orders the given display names by claim priority: pool balance
// first, 30-day attendance second, descending. Names carrying alt intent (an
// "'s alt" suffix or an alt-link name) are keyed on the owner's alt pool. A
// shuffle before sorting makes unbreakable ties fair. Unknown names yield an
// error naming the character.
func Tiebreak(dir registry.Directory, log *ledger.Log, names []string, now time.Time, randSource auction.RandSource) ([]Ranking, error) {
	entries := make([]tiebreakEntry, 0, len(names))
	for _, name := range names {
		res, ok := registry.Resolve(dir, name)
		if !ok {
			return nil, &UnknownCharacterError{Name: name}
		}
		balance := log.Balance(res.Member.Name)
		if res.Alt {
			balance = log.AltBalance(res.Member.Name)
		}
		entries = append(entries, tiebreakEntry{
			display:    name,
			balance:    balance,
			attendance: log.AttendancePct(res.Member.Name, attendanceWindowDays, now),
		})
	}

	shuffleEntries(entries, randSource)
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].balance != entries[j].balance {
			return entries[i].balance > entries[j].balance
		}
		return entries[i].attendance > entries[j].attendance
	})

	result := make([]Ranking, 0, len(entries))
	for _, e := range entries {
		result = append(result, Ranking{
			Display: e.display,
			Explanation: fmt.Sprintf("%s has %d DKP and %s 30-day attendance",
				e.display, e.balance, ledger.FormatAttendance(e.attendance)),
		})
	}
	return result, nil
}

func shuffleEntries[E any](entries []E, randSource auction.RandSource) {
	if len(entries) < 2 {
		return
	}
	if randSource == nil {
		randSource = auction.DefaultRandSource()
	}
	for k := len(entries) - 1; k > 0; k-- {
		randIdx := randSource.Intn(k + 1)
		entries[k], entries[randIdx] = entries[randIdx], entries[k]
	}
}
