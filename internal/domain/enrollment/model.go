package enrollment

import (
	"fmt"
	"time"
)

// Group is the randomized study arm a participant is assigned to.
type Group string

const (
	GroupIntervention Group = "Intervention"
	GroupControl      Group = "Control"
)

// Groups lists the arms in coin-flip order: index 0 is Intervention.
var Groups = [2]Group{GroupIntervention, GroupControl}

func (g Group) Valid() bool {
	return g == GroupIntervention || g == GroupControl
}

// ParseGroup maps a stored column value back to a Group. An empty value
// means the slot has not been assigned yet.
func ParseGroup(s string) (Group, error) {
	switch Group(s) {
	case "":
		return "", nil
	case GroupIntervention, GroupControl:
		return Group(s), nil
	}
	return "", fmt.Errorf("unknown study group %q", s)
}

// Slot maps to the participants table. Slots are provisioned out-of-band;
// the allocator only ever flips IDUsed and sets Group, together, once.
type Slot struct {
	ParticipantNumber   string     `db:"participant_number" json:"participant_number"`
	ParticipantPassword string     `db:"participant_password" json:"-"`
	IDUsed              bool       `db:"id_used" json:"id_used"`
	Group               Group      `db:"study_group" json:"group,omitempty"`
	ClaimedAt           *time.Time `db:"claimed_at" json:"claimed_at,omitempty"`
}

// Credentials is the result of a successful claim.
type Credentials struct {
	ParticipantNumber string `json:"participant_number"`
	Password          string `json:"password"`
	Group             Group  `json:"group"`
}

// PoolStats summarizes the slot pool for study administrators.
type PoolStats struct {
	Total        int `json:"total"`
	Used         int `json:"used"`
	Unused       int `json:"unused"`
	Intervention int `json:"intervention"`
	Control      int `json:"control"`
}
