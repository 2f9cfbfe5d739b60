package roster

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/petermalak/khoras-attendance-thanwy/pkg/sheets"
)

var (
	ErrCodeNotFound = errors.New("code not found")
	// ErrNoData means the roster sheet has no rows at all, not even headers.
	ErrNoData = errors.New("no data found")
)

type Update struct {
	Code  string
	Delta int
}

type Result struct {
	Code          string `json:"code"`
	PreviousScore int    `json:"previousScore"`
	NewScore      int    `json:"newScore"`
	PointsAdded   int    `json:"pointsAdded"`
}

type EntryError struct {
	Code  string `json:"code"`
	Error string `json:"error"`
	Err   error  `json:"-"`
}

type BatchResult struct {
	Results []Result
	Errors  []EntryError
}

// Scorer reads roster entries through the cache and adds points to them.
type Scorer struct {
	client sheets.GridClient
	cache  *Cache

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewScorer(client sheets.GridClient, cache *Cache) *Scorer {
	return &Scorer{
		client: client,
		cache:  cache,
		locks:  make(map[string]*sync.Mutex),
	}
}

// Entries returns every roster entry in sheet order. A sheet holding only
// the header row has no entries; an entirely empty one is ErrNoData.
func (s *Scorer) Entries(ctx context.Context) ([]Entry, error) {
	grid, err := s.cache.Roster(ctx)
	if err != nil {
		return nil, err
	}
	if len(grid) == 0 {
		return nil, errors.Wrapf(ErrNoData, "table %s", s.cache.Table())
	}
	return ToEntries(grid), nil
}

// AddPoints adds delta to the score of the member with the given code and
// writes the new total back. Calls for the same code are serialized within
// this process; other writers to the sheet are not coordinated with.
func (s *Scorer) AddPoints(ctx context.Context, code string, delta int) (Result, error) {
	if _, _, err := s.find(ctx, code); err != nil {
		return Result{}, err
	}
	// Only known codes get a lock, and the row is read again under it.
	unlock := s.lock(code)
	defer unlock()

	rowNumber, entry, err := s.find(ctx, code)
	if err != nil {
		return Result{}, err
	}

	newScore := entry.Score + delta
	cell, err := sheets.CellName(int(ColumnScore), rowNumber)
	if err != nil {
		return Result{}, err
	}
	if err := s.client.UpdateCell(ctx, s.cache.Table(), cell, newScore); err != nil {
		return Result{}, errors.Wrapf(err, "update score for %q", code)
	}
	s.cache.PatchScore(rowNumber, newScore)

	log.WithFields(log.Fields{
		"code":  code,
		"from":  entry.Score,
		"to":    newScore,
		"delta": delta,
	}).Info("Score updated")

	return Result{
		Code:          code,
		PreviousScore: entry.Score,
		NewScore:      newScore,
		PointsAdded:   delta,
	}, nil
}

// ApplyBatch applies updates one after another. A failing entry is recorded
// and the rest are still applied.
func (s *Scorer) ApplyBatch(ctx context.Context, updates []Update) BatchResult {
	res := BatchResult{
		Results: []Result{},
		Errors:  []EntryError{},
	}
	for _, u := range updates {
		r, err := s.AddPoints(ctx, u.Code, u.Delta)
		if err != nil {
			log.Warnf("Error processing update for code %s: %v", u.Code, err)
			res.Errors = append(res.Errors, EntryError{Code: u.Code, Error: err.Error(), Err: err})
			continue
		}
		res.Results = append(res.Results, r)
	}
	return res
}

func (s *Scorer) find(ctx context.Context, code string) (int, Entry, error) {
	grid, err := s.cache.Roster(ctx)
	if err != nil {
		return 0, Entry{}, err
	}
	rowNumber, entry, ok := findByCode(grid, code)
	if !ok {
		return 0, Entry{}, errors.Wrapf(ErrCodeNotFound, "code %q", code)
	}
	return rowNumber, entry, nil
}

func (s *Scorer) lock(code string) func() {
	s.mu.Lock()
	l, ok := s.locks[code]
	if !ok {
		l = &sync.Mutex{}
		s.locks[code] = l
	}
	s.mu.Unlock()
	l.Lock()
	return l.Unlock
}
