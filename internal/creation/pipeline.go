// Package creation creates a batch of defects one at a time, stopping at
// the first failure.
package creation

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/jask/oslcbugs/internal/oslc"
	"github.com/jask/oslcbugs/internal/ui"
)

// ErrRunning is returned when Run is called while a run is in flight.
var ErrRunning = errors.New("creation: batch already running")

// Batch is an ordered list of drafts; order is creation order.
type Batch []oslc.Draft

// Creator creates a single resource.
type Creator interface {
	CreateResource(ctx context.Context, d oslc.Draft) error
}

// Notifier is the part of ui.Sink the pipeline writes to.
type Notifier interface {
	ShowMessage(text string, links ...ui.Link)
	RefreshListing()
}

// Failure is the draft that stopped a run.
type Failure struct {
	Index int
	Draft oslc.Draft
	Err   error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("create %q (#%d): %v", f.Draft.Title, f.Index+1, f.Err)
}

func (f *Failure) Unwrap() error { return f.Err }

// Report summarises a run.
type Report struct {
	Created int
	Failure *Failure
}

// Pipeline runs batches against a Creator.
type Pipeline struct {
	creator Creator
	sink    Notifier
	log     zerolog.Logger
	running atomic.Bool
}

// NewPipeline returns a pipeline writing its outcome to sink.
func NewPipeline(creator Creator, sink Notifier, log zerolog.Logger) *Pipeline {
	return &Pipeline{creator: creator, sink: sink, log: log}
}

// Running reports whether a run is in flight.
func (p *Pipeline) Running() bool { return p.running.Load() }

// Run creates each draft in order, waiting for each outcome before issuing
// the next request. The first failure ends the run; nothing is retried.
// Either way the outcome is written to the notification area and the
// listing is refreshed once.
func (p *Pipeline) Run(ctx context.Context, batch Batch) (Report, error) {
	if !p.running.CompareAndSwap(false, true) {
		return Report{}, ErrRunning
	}
	defer p.running.Store(false)

	var rep Report
	for i, d := range batch {
		err := ctx.Err()
		if err == nil {
			err = p.creator.CreateResource(ctx, d)
		}
		if err != nil {
			rep.Failure = &Failure{Index: i, Draft: d, Err: err}
			p.log.Warn().Err(err).Int("index", i).Str("title", d.Title).Msg("create failed, stopping batch")
			p.sink.ShowMessage(fmt.Sprintf("Error creating bug: %s. Stopping.", d.Title))
			p.sink.RefreshListing()
			return rep, rep.Failure
		}
		rep.Created++
		p.log.Debug().Int("index", i).Str("title", d.Title).Msg("created")
	}

	p.log.Info().Int("created", rep.Created).Msg("batch complete")
	p.sink.ShowMessage(fmt.Sprintf("%d sample bugs created!", rep.Created))
	p.sink.RefreshListing()
	return rep, nil
}
