package usecase

import (
	"context"
	"fmt"
	"sync"
)

// stubProvider is the in-memory SportsProvider used across service tests.
type stubProvider struct {
	mu sync.Mutex

	standings    *LeagueStandings
	standingsErr error
	bootstrap    *Bootstrap
	bootstrapErr error
	events       map[string]*EntryEvent
	eventsErr    error
	live         map[int]map[int64]int
	liveErr      error
	transfers    map[int64][]TransferRecord
	transfersErr error
	chips        map[int64][]ChipRecord
	chipsErr     error

	calls map[string]int
}

func newStubProvider() *stubProvider {
	return &stubProvider{
		events:    make(map[string]*EntryEvent),
		live:      make(map[int]map[int64]int),
		transfers: make(map[int64][]TransferRecord),
		chips:     make(map[int64][]ChipRecord),
		calls:     make(map[string]int),
	}
}

func eventKey(entryID int64, gameweek int) string {
	return fmt.Sprintf("%d/%d", entryID, gameweek)
}

func (p *stubProvider) count(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls[name]++
}

func (p *stubProvider) callCount(name string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[name]
}

func (p *stubProvider) LeagueStandings(_ context.Context, _ int64) (*LeagueStandings, error) {
	p.count("standings")
	return p.standings, p.standingsErr
}

func (p *stubProvider) Bootstrap(_ context.Context) (*Bootstrap, error) {
	p.count("bootstrap")
	return p.bootstrap, p.bootstrapErr
}

func (p *stubProvider) EntryEvent(_ context.Context, entryID int64, gameweek int) (*EntryEvent, error) {
	p.count("event")
	if p.eventsErr != nil {
		return nil, p.eventsErr
	}
	return p.events[eventKey(entryID, gameweek)], nil
}

func (p *stubProvider) LivePoints(_ context.Context, gameweek int) (map[int64]int, error) {
	p.count("live")
	if p.liveErr != nil {
		return nil, p.liveErr
	}
	return p.live[gameweek], nil
}

func (p *stubProvider) EntryTransfers(_ context.Context, entryID int64) ([]TransferRecord, error) {
	p.count("transfers")
	if p.transfersErr != nil {
		return nil, p.transfersErr
	}
	return p.transfers[entryID], nil
}

func (p *stubProvider) EntryChips(_ context.Context, entryID int64) ([]ChipRecord, error) {
	p.count("chips")
	if p.chipsErr != nil {
		return nil, p.chipsErr
	}
	return p.chips[entryID], nil
}
