package fpl

import "time"

// Wire shapes for the consumed subset of the upstream API.

type standingsEnvelope struct {
	League struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	} `json:"league"`
	Standings struct {
		HasNext bool           `json:"has_next"`
		Results []standingsRow `json:"results"`
	} `json:"standings"`
}

type standingsRow struct {
	Entry      int64  `json:"entry"`
	PlayerName string `json:"player_name"`
	EntryName  string `json:"entry_name"`
	Rank       int    `json:"rank"`
	LastRank   int    `json:"last_rank"`
	Total      int    `json:"total"`
	EventTotal int    `json:"event_total"`
}

type bootstrapEnvelope struct {
	Events []struct {
		ID          int  `json:"id"`
		IsCurrent   bool `json:"is_current"`
		Finished    bool `json:"finished"`
		DataChecked bool `json:"data_checked"`
	} `json:"events"`
	Elements []struct {
		ID      int64  `json:"id"`
		WebName string `json:"web_name"`
	} `json:"elements"`
}

type picksEnvelope struct {
	ActiveChip   string `json:"active_chip"`
	EntryHistory struct {
		Points             int `json:"points"`
		TotalPoints        int `json:"total_points"`
		EventTransfers     int `json:"event_transfers"`
		EventTransfersCost int `json:"event_transfers_cost"`
		PointsOnBench      int `json:"points_on_bench"`
	} `json:"entry_history"`
	Picks []struct {
		Element    int64 `json:"element"`
		Position   int   `json:"position"`
		Multiplier int   `json:"multiplier"`
		IsCaptain  bool  `json:"is_captain"`
	} `json:"picks"`
}

type liveEnvelope struct {
	Elements []struct {
		ID    int64 `json:"id"`
		Stats struct {
			TotalPoints int `json:"total_points"`
		} `json:"stats"`
	} `json:"elements"`
}

type transferRow struct {
	ElementIn  int64     `json:"element_in"`
	ElementOut int64     `json:"element_out"`
	Event      int       `json:"event"`
	Time       time.Time `json:"time"`
}

type historyEnvelope struct {
	Chips []struct {
		Name  string `json:"name"`
		Event int    `json:"event"`
	} `json:"chips"`
}
