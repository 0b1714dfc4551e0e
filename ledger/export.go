package ledger

import (
	"crypto/sha256"
	"fmt"
	"sort"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// Snapshot is a point-in-time audit export of the full event log. The
// checksum binds every event so an exported snapshot can be verified offline.
type Snapshot struct {
	CreatedAt  time.Time         `cbor:"created_at"`
	Attendance []AttendanceEvent `cbor:"attendance"`
	Awards     []SpecialAward    `cbor:"awards"`
	Purchases  []Purchase        `cbor:"purchases"`
	Checksum   string            `cbor:"checksum"`
}

// ComputeEventChecksum computes the per-event audit checksum.
//
// Formula: SHA256(id + "|" + kind + "|" + member + "|" + value + "|" + unix)
func ComputeEventChecksum(id, kind, member string, value int, t time.Time) string {
	data := fmt.Sprintf("%s|%s|%s|%d|%d", id, kind, member, value, t.Unix())
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", hash)
}

// computeLogChecksum hashes the sorted per-event checksums so the result does
// not depend on storage ordering.
func computeLogChecksum(l *Log) string {
	sums := make([]string, 0, len(l.Attendance)+len(l.Awards)+len(l.Purchases))
	for i := range l.Attendance {
		e := &l.Attendance[i]
		sums = append(sums, ComputeEventChecksum(e.ID, "attendance", "", e.Value, e.Time))
	}
	for i := range l.Awards {
		a := &l.Awards[i]
		sums = append(sums, ComputeEventChecksum(a.ID, "award", a.Member, a.Value, a.Time))
	}
	for i := range l.Purchases {
		p := &l.Purchases[i]
		sums = append(sums, ComputeEventChecksum(p.ID, "purchase", p.Member, p.Value, p.Time))
	}
	sort.Strings(sums)

	data := ""
	for _, sum := range sums {
		data += sum + "|"
	}
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", hash)
}

// ExportSnapshot serializes the event log as a CBOR audit snapshot.
func ExportSnapshot(l *Log, now time.Time) ([]byte, error) {
	snap := Snapshot{
		CreatedAt:  now,
		Attendance: l.Attendance,
		Awards:     l.Awards,
		Purchases:  l.Purchases,
		Checksum:   computeLogChecksum(l),
	}
	data, err := cbor.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return data, nil
}

// VerifySnapshot decodes an exported snapshot and recomputes its checksum,
// failing if the contents were altered.
func VerifySnapshot(data []byte) (*Snapshot, error) {
	var snap Snapshot
	if err := cbor.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	log := &Log{
		Attendance: snap.Attendance,
		Awards:     snap.Awards,
		Purchases:  snap.Purchases,
	}
	if got := computeLogChecksum(log); got != snap.Checksum {
		return nil, fmt.Errorf("snapshot checksum mismatch: computed %s, recorded %s", got, snap.Checksum)
	}
	return &snap, nil
}
