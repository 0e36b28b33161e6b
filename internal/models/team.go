package models

import (
	"github.com/google/uuid"
)

// TeamColors is the fixed palette teams pick their color from.
var TeamColors = []string{
	"#FF5733", // red
	"#3357FF", // blue
	"#33FF57", // green
	"#FF33F5", // magenta
	"#FFD700", // gold
	"#FF8C00", // dark orange
	"#8A2BE2", // blue violet
	"#00CED1", // dark turquoise
	"#FF1493", // deep pink
	"#32CD32", // lime green
	"#FF4500", // orange red
	"#9370DB", // medium purple
}

// IsTeamColor reports whether c belongs to the fixed palette.
func IsTeamColor(c string) bool {
	for _, known := range TeamColors {
		if known == c {
			return true
		}
	}
	return false
}

// Team represents one bidding team inside an auction.
// Invariant: RemainingCredits = TotalCredits - sum of final prices of its
// assigned players, and RemainingCredits >= 0.
type Team struct {
	ID               uuid.UUID   `json:"id"`
	Name             string      `json:"name"`
	Color            string      `json:"color"`
	IconURL          *string     `json:"icon_url,omitempty"`
	SponsorName      *string     `json:"sponsor_name,omitempty"`
	TotalCredits     int         `json:"total_credits"`
	RemainingCredits int         `json:"remaining_credits"`
	PlayerIDs        []uuid.UUID `json:"players"`
	Order            int         `json:"order"`
}

// NewTeam constructs a team with a full budget and an empty roster.
func NewTeam(id uuid.UUID, name, color string, totalCredits, order int) *Team {
	return &Team{
		ID:               id,
		Name:             name,
		Color:            color,
		TotalCredits:     totalCredits,
		RemainingCredits: totalCredits,
		PlayerIDs:        []uuid.UUID{},
		Order:            order,
	}
}

// RosterFull reports whether the team already holds playersPerTeam players.
func (t *Team) RosterFull(playersPerTeam int) bool {
	return len(t.PlayerIDs) >= playersPerTeam
}
