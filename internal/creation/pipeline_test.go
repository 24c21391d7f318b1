package creation

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/jask/oslcbugs/internal/oslc"
	"github.com/jask/oslcbugs/internal/ui"
)

type fakeCreator struct {
	mu       sync.Mutex
	calls    []string
	failOn   string
	inFlight atomic.Int32
	maxSeen  atomic.Int32
	block    chan struct{}
	entered  chan struct{}
}

func (f *fakeCreator) CreateResource(ctx context.Context, d oslc.Draft) error {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		seen := f.maxSeen.Load()
		if n <= seen || f.maxSeen.CompareAndSwap(seen, n) {
			break
		}
	}
	f.mu.Lock()
	f.calls = append(f.calls, d.Title)
	f.mu.Unlock()
	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.block != nil {
		<-f.block
	}
	if d.Title == f.failOn {
		return errors.New("server returned 500")
	}
	return nil
}

func TestRunSampleBatchSucceeds(t *testing.T) {
	creator := &fakeCreator{}
	sink := &ui.Recorder{}
	p := NewPipeline(creator, sink, zerolog.Nop())

	rep, err := p.Run(context.Background(), SampleBatch())
	require.NoError(t, err)
	require.Equal(t, 4, rep.Created)
	require.Nil(t, rep.Failure)

	require.Equal(t, []string{
		"Product Z is too blue.",
		"Product Z isn't blue enough.",
		"Product Z crashes on startup",
		"Typo on login page",
	}, creator.calls)
	require.EqualValues(t, 1, creator.maxSeen.Load())

	require.Len(t, sink.Notices, 1)
	require.Equal(t, "4 sample bugs created!", sink.Notices[0].Text)
	require.Empty(t, sink.Notices[0].Links)
	require.Equal(t, 1, sink.Refreshes)
	require.False(t, p.Running())
}

func TestRunStopsAtFirstFailure(t *testing.T) {
	batch := SampleBatch()
	for k := 1; k <= len(batch); k++ {
		failing := batch[k-1].Title
		t.Run(failing, func(t *testing.T) {
			creator := &fakeCreator{failOn: failing}
			sink := &ui.Recorder{}
			p := NewPipeline(creator, sink, zerolog.Nop())

			rep, err := p.Run(context.Background(), batch)
			require.Error(t, err)

			var f *Failure
			require.True(t, errors.As(err, &f))
			require.Equal(t, k-1, f.Index)
			require.Equal(t, failing, f.Draft.Title)
			require.Same(t, f, rep.Failure)
			require.Equal(t, k-1, rep.Created)

			require.Len(t, creator.calls, k)
			require.Equal(t, failing, creator.calls[k-1])

			last, ok := sink.Last()
			require.True(t, ok)
			require.Equal(t, "Error creating bug: "+failing+". Stopping.", last.Text)
			require.Equal(t, 1, sink.Refreshes)
		})
	}
}

func TestRunEmptyBatch(t *testing.T) {
	creator := &fakeCreator{}
	sink := &ui.Recorder{}
	p := NewPipeline(creator, sink, zerolog.Nop())

	rep, err := p.Run(context.Background(), nil)
	require.NoError(t, err)
	require.Zero(t, rep.Created)
	require.Empty(t, creator.calls)
	require.Equal(t, "0 sample bugs created!", sink.Notices[0].Text)
	require.Equal(t, 1, sink.Refreshes)
}

func TestRunCancelledContextFailsCurrentDraft(t *testing.T) {
	creator := &fakeCreator{}
	sink := &ui.Recorder{}
	p := NewPipeline(creator, sink, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rep, err := p.Run(ctx, SampleBatch())
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 0, rep.Failure.Index)
	require.Empty(t, creator.calls)
	require.Equal(t, "Error creating bug: Product Z is too blue.. Stopping.", sink.Notices[0].Text)
}

func TestRunRejectsConcurrentRun(t *testing.T) {
	creator := &fakeCreator{block: make(chan struct{}), entered: make(chan struct{}, 4)}
	sink := &ui.Recorder{}
	p := NewPipeline(creator, sink, zerolog.Nop())

	done := make(chan error, 1)
	go func() {
		_, err := p.Run(context.Background(), SampleBatch()[:1])
		done <- err
	}()
	<-creator.entered
	require.True(t, p.Running())

	_, err := p.Run(context.Background(), SampleBatch())
	require.ErrorIs(t, err, ErrRunning)

	close(creator.block)
	require.NoError(t, <-done)
	require.Len(t, creator.calls, 1)
	require.EqualValues(t, 1, creator.maxSeen.Load())
}
