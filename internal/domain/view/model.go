package view

import (
	"encoding/json"
	"strings"
	"time"
)

// Kind identifies one of the four dashboard view payload shapes cached per
// (league, gameweek).
type Kind string

const (
	KindLeague         Kind = "league"
	KindTransfers      Kind = "transfers"
	KindChips          Kind = "chips"
	KindActivityImpact Kind = "activity_impact"
)

func AllKinds() []Kind {
	return []Kind{KindLeague, KindTransfers, KindChips, KindActivityImpact}
}

func ParseKind(raw string) (Kind, bool) {
	switch Kind(strings.TrimSpace(raw)) {
	case KindLeague:
		return KindLeague, true
	case KindTransfers:
		return KindTransfers, true
	case KindChips:
		return KindChips, true
	case KindActivityImpact:
		return KindActivityImpact, true
	default:
		return "", false
	}
}

// CachedPayload is one durable cache row. Payload is the opaque view model
// blob; IsFinal marks the underlying gameweek as locked and the row as
// immutable.
type CachedPayload struct {
	LeagueID  int64
	Gameweek  int
	Kind      Kind
	Payload   json.RawMessage
	FetchedAt time.Time
	IsFinal   bool
}
