package membership

import "time"

// UserLeague links a signed-in user to a mini-league they follow. LeagueName
// is a cached display name; placeholder values are healed on the next
// successful upstream fetch.
type UserLeague struct {
	UserID     string
	LeagueID   int64
	LeagueName string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

const PlaceholderLeagueName = "Unknown league"
