// Package pipeline implements the data collection run: fetch, merge,
// persist, analyze.
package pipeline

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/seligo/sentiment-pulse/internal/config"
	"github.com/seligo/sentiment-pulse/internal/dataset"
	"github.com/seligo/sentiment-pulse/internal/fetch"
	"github.com/seligo/sentiment-pulse/internal/jobs"
	"github.com/seligo/sentiment-pulse/internal/sentiment"
)

// Store persists the merged and analyzed tables.
type Store interface {
	SaveRaw(rows []dataset.Record) error
	SaveAnalyzed(rows []dataset.AnalyzedRecord) error
}

// Settings supplies the operational knobs read at run start.
type Settings interface {
	Get() config.RuntimeSettings
}

// Job wires the collection steps together. Run matches the runner's work
// signature.
type Job struct {
	news     fetch.Fetcher
	forum    fetch.Fetcher
	analyzer sentiment.Analyzer
	store    Store
	settings Settings
}

func NewJob(news, forum fetch.Fetcher, analyzer sentiment.Analyzer, store Store, settings Settings) *Job {
	return &Job{
		news:     news,
		forum:    forum,
		analyzer: analyzer,
		store:    store,
		settings: settings,
	}
}

// Run executes one pipeline pass. Both sources are fetched concurrently;
// the milestones are reported before the join so the sequence stays
// monotonic. An empty fetch result is not an error: the empty tables are
// persisted and the run completes.
func (j *Job) Run(ctx context.Context, rep *jobs.Reporter) error {
	settings := j.settings.Get()

	rep.Progress(20, "Fetching news articles")
	rep.Progress(40, "Fetching forum posts")

	var news, forum []dataset.Record
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := j.news.Fetch(gctx, settings.NewsQueries, settings.MaxRecords)
		if err != nil {
			return err
		}
		news = rows
		return nil
	})
	g.Go(func() error {
		rows, err := j.forum.Fetch(gctx, settings.Subreddits, settings.MaxRecords)
		if err != nil {
			return err
		}
		forum = rows
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}

	rep.Progress(60, "Combining sources")
	merged := dataset.Merge(news, forum)
	if err := j.store.SaveRaw(merged); err != nil {
		return err
	}
	rep.SetRecords(len(merged))
	rep.Log(fmt.Sprintf("Collected %d records (%d news, %d forum)", len(merged), len(news), len(forum)))

	rep.Progress(80, "Analyzing sentiment")
	analyzed, err := j.analyzer.Analyze(ctx, merged, settings.BatchSize)
	if err != nil {
		return err
	}
	if err := j.store.SaveAnalyzed(analyzed); err != nil {
		return err
	}

	rep.Progress(100, "Pipeline complete")
	return nil
}
