package usecase

import "time"

// View payloads cached per (league, gameweek, view). Field names are the wire
// contract with the dashboard frontend and with rows already persisted, so
// they must stay stable.

type LeagueView struct {
	LeagueID   int64       `json:"leagueId"`
	LeagueName string      `json:"leagueName"`
	Gameweek   int         `json:"gameweek"`
	Rows       []LeagueRow `json:"rows"`
}

type LeagueRow struct {
	EntryID      int64  `json:"entryId"`
	PlayerName   string `json:"playerName"`
	TeamName     string `json:"teamName"`
	Rank         int    `json:"rank"`
	PreviousRank int    `json:"previousRank"`
	Movement     int    `json:"movement"`
	GwPoints     int    `json:"gwPoints"`
	TotalPoints  int    `json:"totalPoints"`
	// Transfer activity for the row's gameweek; zero when the entry's
	// history fetch degrades.
	Transfers     int `json:"transfers"`
	TransfersCost int `json:"transfersCost"`
}

type TransfersView struct {
	LeagueID int64         `json:"leagueId"`
	Gameweek int           `json:"gameweek"`
	Rows     []TransferRow `json:"rows"`
}

type TransferRow struct {
	EntryID       int64     `json:"entryId"`
	PlayerName    string    `json:"playerName"`
	PlayerIn      string    `json:"playerIn"`
	PlayerOut     string    `json:"playerOut"`
	TransferredAt time.Time `json:"transferredAt"`
}

type ChipsView struct {
	LeagueID int64     `json:"leagueId"`
	Gameweek int       `json:"gameweek"`
	Rows     []ChipRow `json:"rows"`
}

type ChipRow struct {
	EntryID    int64  `json:"entryId"`
	PlayerName string `json:"playerName"`
	Chip       string `json:"chip"`
	// CaptainName is the captain behind a triple-captain chip. Empty for
	// other chips; an empty value alongside chip "3xc" marks the row as
	// incomplete.
	CaptainName string `json:"captainName,omitempty"`
}

type ActivityImpactView struct {
	LeagueID int64         `json:"leagueId"`
	Gameweek int           `json:"gameweek"`
	Rows     []ActivityRow `json:"rows"`
}

type ActivityRow struct {
	EntryID        int64  `json:"entryId"`
	PlayerName     string `json:"playerName"`
	TransferImpact int    `json:"transferImpact"`
	ChipImpact     int    `json:"chipImpact"`
	TotalImpact    int    `json:"totalImpact"`
	Rank           int    `json:"rank"`
	PreviousRank   int    `json:"previousRank"`
	Movement       int    `json:"movement"`
}
