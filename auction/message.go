package auction

import (
	"fmt"
	"strings"
)

// rotEntry fills award slots for item units nobody won.
const rotEntry = "Rot"

// warningMarker is appended to a result message when bid intake produced
// warnings, so the channel announcement shows something went sideways.
const warningMarker = " *"

// DisplayName renders a winner the way announcements expect: alt-pool winners
// are shown as their main's alt.
func (w Winner) DisplayName() string {
	if w.Tag == TagAlt {
		return w.Member + "'s alt"
	}
	return w.Member
}

// ResultMessage builds the award announcement for an auction. Unsold units
// render as Rot, tie losers are listed after the winners, and a trailing
// marker flags that intake warnings accompany the result.
func ResultMessage(item string, itemCount int, out Outcome, hasWarnings bool) string {
	entries := make([]string, 0, itemCount)
	for _, w := range out.Winners {
		entries = append(entries, fmt.Sprintf("%s for %d", w.DisplayName(), w.Price))
	}
	for len(entries) < itemCount {
		entries = append(entries, rotEntry)
	}

	msg := fmt.Sprintf("%s awarded to - %s", item, strings.Join(entries, ", "))
	if len(out.TieLosers) > 0 {
		msg += fmt.Sprintf(" - %s Lost the tie", strings.Join(out.TieLosers, ", "))
	}
	if hasWarnings {
		msg += warningMarker
	}
	return msg
}

// ResolverFor maps an auction type name to its resolver. Returns false for
// unknown types.
func ResolverFor(auctionType string) (Resolver, bool) {
	switch strings.ToLower(auctionType) {
	case "english":
		return EnglishResolver{}, true
	case "vickrey":
		return VickreyResolver{}, true
	default:
		return nil, false
	}
}
