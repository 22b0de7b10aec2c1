package entities

import "time"

// EmergencyMeta is attached to a vote created through the fast-track path.
// It is mutated at most twice: once when an overturn is requested, once when
// that overturn vote closes successfully.
type EmergencyMeta struct {
	VoteID           string
	Panel            []string
	UrgencyReason    string
	NotifiedAt       time.Time
	OverturnDeadline time.Time
	OverturnVoteID   string
	Overturned       bool
}

// OverturnWindowOpen reports whether an overturn may still be requested at
// the given instant. The deadline itself is exclusive: a request exactly at
// the deadline is rejected.
func (m EmergencyMeta) OverturnWindowOpen(now time.Time) bool {
	return now.Before(m.OverturnDeadline)
}

func (m EmergencyMeta) OnPanel(memberID string) bool {
	for _, id := range m.Panel {
		if id == memberID {
			return true
		}
	}
	return false
}

// Clone copies the panel slice so stored metadata never aliases caller state.
func (m EmergencyMeta) Clone() EmergencyMeta {
	out := m
	out.Panel = append([]string(nil), m.Panel...)
	return out
}
