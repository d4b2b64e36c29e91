package domain

import "time"

// MatrixPosition is a slot in a sponsor's fixed-width placement tree. A
// member holds at most one active position per sponsor; slots are assigned in
// filling order and never reused, only deactivated.
type MatrixPosition struct {
	PositionID string    `json:"position_id"`
	MemberID   string    `json:"member_id"`
	SponsorID  string    `json:"sponsor_id"`
	Level      int       `json:"level"`
	Slot       int       `json:"slot"`
	Active     bool      `json:"active"`
	PlacedAt   time.Time `json:"placed_at"`
}

// SlotsAtLevel is the capacity of one tree level: width^level.
func SlotsAtLevel(width, level int) int {
	if width <= 0 || level <= 0 {
		return 0
	}
	n := 1
	for i := 0; i < level; i++ {
		n *= width
	}
	return n
}
