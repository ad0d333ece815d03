package loader

import (
	"bufio"
	"context"
	"errors"
	"io"
	"time"

	"github.com/ecopia-map/plyviewer/internal/data"
	"github.com/ecopia-map/plyviewer/internal/decoder"
	"github.com/ecopia-map/plyviewer/internal/metrics"
	"github.com/ecopia-map/plyviewer/internal/source"
	"github.com/golang/glog"
)

const DefaultProgressStep = 0.01

type Options struct {
	// Minimum ratio increase between two progress reports
	ProgressStep float64
	// Optional, loads are not instrumented when nil
	Metrics *metrics.Metrics
}

// Loader fetches and decodes point cloud resources asynchronously.
// Independent loads share no state, a Loader can serve any number of them
// concurrently.
type Loader struct {
	fetcher source.Fetcher
	opts    Options
}

func NewLoader(fetcher source.Fetcher, opts Options) *Loader {
	if opts.ProgressStep <= 0 {
		opts.ProgressStep = DefaultProgressStep
	}
	return &Loader{
		fetcher: fetcher,
		opts:    opts,
	}
}

// Callbacks of a load. All of them are optional. OnProgress may be called
// any number of times before exactly one of OnSuccess or OnFailure.
type Callbacks struct {
	OnProgress func(ratio float64)
	OnSuccess  func(pc *data.PointCloud)
	OnFailure  func(err *LoadError)
}

// Request tracks a load started with Load
type Request struct {
	source string
	done   chan struct{}
	err    *LoadError
}

func (r *Request) Source() string {
	return r.source
}

// Closed once the terminal callback has returned
func (r *Request) Done() <-chan struct{} {
	return r.done
}

// The failure of the load, nil on success or while still running
func (r *Request) Err() error {
	select {
	case <-r.done:
	default:
		return nil
	}
	if r.err == nil {
		return nil
	}
	return r.err
}

// Blocks until the load is over and returns its failure, if any
func (r *Request) Wait() error {
	<-r.done
	return r.Err()
}

// Starts loading the resource identified by id and returns immediately.
// The callbacks run on the load goroutine.
func (l *Loader) Load(ctx context.Context, id string, cb Callbacks) *Request {
	req := &Request{
		source: id,
		done:   make(chan struct{}),
	}

	go func() {
		defer close(req.done)

		pc, err := l.load(ctx, id, cb.OnProgress)
		if err != nil {
			req.err = err
			if cb.OnFailure != nil {
				cb.OnFailure(err)
			}
			return
		}
		if cb.OnSuccess != nil {
			cb.OnSuccess(pc)
		}
	}()

	return req
}

type EventType int

const (
	EventProgress EventType = iota
	EventSuccess
	EventFailure
)

// Event is one step of a load: a progress report or the terminal outcome
type Event struct {
	Type     EventType
	Progress float64
	Geometry *data.PointCloud
	Err      *LoadError
}

// Starts loading the resource identified by id and returns the channel of
// its events: progress reports followed by exactly one success or failure
// event, after which the channel is closed. Progress events are dropped
// when the receiver lags behind, the terminal event never is, so the
// channel must be drained.
func (l *Loader) Events(ctx context.Context, id string) <-chan Event {
	events := make(chan Event, 16)

	go func() {
		defer close(events)

		pc, err := l.load(ctx, id, func(ratio float64) {
			select {
			case events <- Event{Type: EventProgress, Progress: ratio}:
			default:
			}
		})
		if err != nil {
			events <- Event{Type: EventFailure, Err: err}
			return
		}
		events <- Event{Type: EventSuccess, Geometry: pc}
	}()

	return events
}

// Loads the resource and waits for the result
func (l *Loader) LoadSync(ctx context.Context, id string, onProgress func(float64)) (*data.PointCloud, error) {
	pc, err := l.load(ctx, id, onProgress)
	if err != nil {
		return nil, err
	}
	return pc, nil
}

func (l *Loader) load(ctx context.Context, id string, onProgress func(float64)) (*data.PointCloud, *LoadError) {
	start := time.Now()
	if l.opts.Metrics != nil {
		l.opts.Metrics.LoadStarted()
	}
	glog.Infof("loading point cloud %s", id)

	pc, bytesRead, err := l.fetchAndDecode(ctx, id, onProgress)
	if err != nil {
		glog.Errorf("error loading point cloud: %v", err)
		if l.opts.Metrics != nil {
			l.opts.Metrics.LoadFinished(err.Kind.outcome(), start, bytesRead, 0)
		}
		return nil, err
	}

	glog.Infof("point cloud %s loaded: %d points, colors: %t, took %s", id, pc.Len(), pc.HasColors(), time.Since(start))
	if l.opts.Metrics != nil {
		l.opts.Metrics.LoadFinished(metrics.OutcomeSuccess, start, bytesRead, pc.Len())
	}
	return pc, nil
}

func (l *Loader) fetchAndDecode(ctx context.Context, id string, onProgress func(float64)) (*data.PointCloud, int64, *LoadError) {
	fail := func(kind Kind, err error) *LoadError {
		return &LoadError{Kind: kind, Source: id, Err: err}
	}

	res, err := l.fetcher.Open(ctx, id)
	if err != nil {
		return nil, 0, fail(KindResourceUnavailable, err)
	}
	defer func() { _ = res.Body.Close() }()

	progress := newProgressReader(ctx, res.Body, res.Size, l.opts.ProgressStep, func(ratio float64) {
		if glog.V(1) {
			glog.Infof("%s: %s%% loaded", id, FormatPercent(ratio))
		}
		if onProgress != nil {
			onProgress(ratio)
		}
	})

	// classifies a failure as a fetch failure when the transport broke
	classify := func(err error) *LoadError {
		if progress.err != nil {
			return fail(KindResourceUnavailable, progress.err)
		}
		return fail(KindDecodeError, err)
	}

	br := bufio.NewReader(progress)
	if _, err := br.Peek(1); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, progress.read, fail(KindDecodeError, decoder.ErrEmptyResource)
		}
		return nil, progress.read, classify(err)
	}

	stream, closer, name, err := decompress(ctx, res.Name, br)
	if err != nil {
		return nil, progress.read, classify(err)
	}
	if closer != nil {
		defer func() { _ = closer.Close() }()
	}

	pc, err := decoder.Decode(stream, name)
	if err != nil {
		return nil, progress.read, classify(err)
	}
	if pc.Len() == 0 {
		return nil, progress.read, fail(KindEmptyGeometry, nil)
	}
	return pc, progress.read, nil
}
