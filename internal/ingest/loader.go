package ingest

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/wonny/acr/internal/contracts"
	"github.com/wonny/acr/internal/store"
	"github.com/wonny/acr/pkg/config"
	"github.com/wonny/acr/pkg/logger"
)

// FileLoader reads the three agency exports from disk
type FileLoader struct {
	Paths   map[contracts.Agency]string
	Options ReadOptions
}

// NewFileLoader creates a loader over the configured feed paths.
// Agencies with an empty path are skipped (their series stay empty, i.e. NR).
func NewFileLoader(cfg config.FeedConfig, log *logger.Logger) *FileLoader {
	return &FileLoader{
		Paths: map[contracts.Agency]string{
			contracts.Moodys: cfg.MoodysPath,
			contracts.SP:     cfg.SPPath,
			contracts.Fitch:  cfg.FitchPath,
		},
		Options: ReadOptions{SkipUnknownCodes: cfg.SkipUnknownCodes, Logger: log},
	}
}

// Load parses every configured feed, one goroutine per agency.
// Records are returned agency by agency in feed order.
func (l *FileLoader) Load(ctx context.Context) ([]contracts.RatingRecord, error) {
	var (
		mu      sync.Mutex
		results = make(map[contracts.Agency][]contracts.RatingRecord, len(l.Paths))
	)

	g, gctx := errgroup.WithContext(ctx)
	for _, agency := range contracts.Agencies {
		path := l.Paths[agency]
		if path == "" {
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			recs, _, err := ReadFeedFile(path, agency, l.Options)
			if err != nil {
				return err
			}
			mu.Lock()
			results[agency] = recs
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []contracts.RatingRecord
	for _, agency := range contracts.Agencies {
		out = append(out, results[agency]...)
	}
	return out, nil
}

// LoadStore runs a loader and fills a new Rating Series Store
func LoadStore(ctx context.Context, loader contracts.RatingLoader, log *logger.Logger) (*store.Store, error) {
	if log == nil {
		log = logger.Nop()
	}

	recs, err := loader.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load ratings: %w", err)
	}

	s := store.New()
	s.Add(recs...)

	st := s.Stats()
	log.WithFields(map[string]interface{}{
		"bonds":  st.Bonds,
		"moodys": st.Records[contracts.Moodys],
		"sp":     st.Records[contracts.SP],
		"fitch":  st.Records[contracts.Fitch],
	}).Info("Rating series store loaded")

	return s, nil
}
