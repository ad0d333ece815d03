package loader

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/ecopia-map/plyviewer/internal/data"
	"github.com/ecopia-map/plyviewer/internal/decoder"
	"github.com/ecopia-map/plyviewer/internal/metrics"
	"github.com/ecopia-map/plyviewer/internal/source"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

// serves in memory resources, reading them back in small chunks
type memFetcher struct {
	files       map[string][]byte
	unknownSize bool
	chunk       int
	breakAfter  int // when > 0 the body fails after that many bytes
}

func (f *memFetcher) Open(ctx context.Context, id string) (*source.Resource, error) {
	content, ok := f.files[id]
	if !ok {
		return nil, fmt.Errorf("%s: no such resource", id)
	}
	size := int64(len(content))
	if f.unknownSize {
		size = -1
	}
	chunk := f.chunk
	if chunk <= 0 {
		chunk = 7
	}
	var body io.Reader = &chunkReader{data: content, chunk: chunk}
	if f.breakAfter > 0 {
		body = io.MultiReader(io.LimitReader(body, int64(f.breakAfter)), errReader{errors.New("connection reset by peer")})
	}
	return &source.Resource{Body: io.NopCloser(body), Size: size, Name: source.BaseName(id)}, nil
}

type chunkReader struct {
	data  []byte
	chunk int
}

func (r *chunkReader) Read(b []byte) (int, error) {
	if len(r.data) == 0 {
		return 0, io.EOF
	}
	n := min(len(b), r.chunk, len(r.data))
	copy(b, r.data[:n])
	r.data = r.data[n:]
	return n, nil
}

type errReader struct{ err error }

func (r errReader) Read([]byte) (int, error) { return 0, r.err }

func asciiPLY(points []r3.Vec) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "ply\nformat ascii 1.0\nelement vertex %d\n", len(points))
	buf.WriteString("property float x\nproperty float y\nproperty float z\nend_header\n")
	for _, p := range points {
		fmt.Fprintf(&buf, "%g %g %g\n", p.X, p.Y, p.Z)
	}
	return buf.Bytes()
}

func gridPoints(n int) []r3.Vec {
	points := make([]r3.Vec, n)
	for i := range points {
		points[i] = r3.Vec{X: float64(i % 10), Y: float64(i / 10), Z: float64(i % 7)}
	}
	return points
}

type recorder struct {
	mu        sync.Mutex
	progress  []float64
	successes []*data.PointCloud
	failures  []*LoadError
}

func (r *recorder) callbacks() Callbacks {
	return Callbacks{
		OnProgress: func(ratio float64) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.progress = append(r.progress, ratio)
		},
		OnSuccess: func(pc *data.PointCloud) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.successes = append(r.successes, pc)
		},
		OnFailure: func(err *LoadError) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.failures = append(r.failures, err)
		},
	}
}

func load(t *testing.T, l *Loader, id string) *recorder {
	t.Helper()
	rec := &recorder{}
	req := l.Load(context.Background(), id, rec.callbacks())
	<-req.Done()
	return rec
}

func TestLoadSuccess(t *testing.T) {
	points := gridPoints(300)
	l := NewLoader(&memFetcher{files: map[string][]byte{"cloud.ply": asciiPLY(points)}}, Options{})

	rec := load(t, l, "cloud.ply")

	require.Empty(t, rec.failures)
	require.Len(t, rec.successes, 1)
	assert.Equal(t, points, rec.successes[0].Positions)
	assert.False(t, rec.successes[0].HasColors())
}

func TestLoadProgressIsMonotonicAndBounded(t *testing.T) {
	l := NewLoader(&memFetcher{files: map[string][]byte{"cloud.ply": asciiPLY(gridPoints(500))}}, Options{ProgressStep: 0.05})

	rec := load(t, l, "cloud.ply")

	require.Len(t, rec.successes, 1)
	require.NotEmpty(t, rec.progress)
	assert.Greater(t, len(rec.progress), 5)
	prev := 0.0
	for _, ratio := range rec.progress {
		assert.GreaterOrEqual(t, ratio, prev)
		assert.GreaterOrEqual(t, ratio, 0.0)
		assert.LessOrEqual(t, ratio, 1.0)
		prev = ratio
	}
	assert.Equal(t, 1.0, rec.progress[len(rec.progress)-1])
}

func TestLoadWithoutSizeReportsNoProgress(t *testing.T) {
	l := NewLoader(&memFetcher{
		files:       map[string][]byte{"cloud.ply": asciiPLY(gridPoints(100))},
		unknownSize: true,
	}, Options{})

	rec := load(t, l, "cloud.ply")

	require.Len(t, rec.successes, 1)
	assert.Empty(t, rec.progress)
}

func TestLoadFailures(t *testing.T) {
	valid := asciiPLY(gridPoints(20))
	var gzipped bytes.Buffer
	zw := gzip.NewWriter(&gzipped)
	_, err := zw.Write([]byte("not a point cloud at all"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	files := map[string][]byte{
		"empty.ply":     asciiPLY(nil),
		"zero.ply":      {},
		"truncated.ply": valid[:len(valid)-10],
		"garbage.bin":   {0x00, 0x01, 0x02, 0x03},
		"junk.ply.gz":   gzipped.Bytes(),
	}

	for id, want := range map[string]error{
		"empty.ply":     ErrEmptyGeometry,
		"zero.ply":      ErrDecode,
		"truncated.ply": ErrDecode,
		"garbage.bin":   ErrDecode,
		"junk.ply.gz":   ErrDecode,
		"missing.ply":   ErrResourceUnavailable,
	} {
		t.Run(id, func(t *testing.T) {
			rec := load(t, NewLoader(&memFetcher{files: files}, Options{}), id)

			assert.Empty(t, rec.successes)
			require.Len(t, rec.failures, 1)
			assert.ErrorIs(t, rec.failures[0], want)
			assert.Equal(t, id, rec.failures[0].Source)
		})
	}
}

func TestLoadZeroByteIsDecodeError(t *testing.T) {
	l := NewLoader(&memFetcher{files: map[string][]byte{"zero.ply": {}}}, Options{})
	_, err := l.LoadSync(context.Background(), "zero.ply", nil)

	var loadErr *LoadError
	require.True(t, errors.As(err, &loadErr))
	assert.Equal(t, KindDecodeError, loadErr.Kind)
	assert.ErrorIs(t, err, decoder.ErrEmptyResource)
}

func TestLoadBrokenTransportIsResourceUnavailable(t *testing.T) {
	l := NewLoader(&memFetcher{
		files:      map[string][]byte{"cloud.ply": asciiPLY(gridPoints(100))},
		breakAfter: 200,
	}, Options{})

	rec := load(t, l, "cloud.ply")

	assert.Empty(t, rec.successes)
	require.Len(t, rec.failures, 1)
	assert.Equal(t, KindResourceUnavailable, rec.failures[0].Kind)
	assert.ErrorContains(t, rec.failures[0], "connection reset")
}

func TestLoadCancelled(t *testing.T) {
	l := NewLoader(&memFetcher{files: map[string][]byte{"cloud.ply": asciiPLY(gridPoints(10))}}, Options{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := l.LoadSync(ctx, "cloud.ply", nil)
	assert.ErrorIs(t, err, ErrResourceUnavailable)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLoadGzipped(t *testing.T) {
	points := gridPoints(50)
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write(asciiPLY(points))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	l := NewLoader(&memFetcher{files: map[string][]byte{"scan.ply.gz": buf.Bytes()}}, Options{})
	pc, err := l.LoadSync(context.Background(), "scan.ply.gz", nil)
	require.NoError(t, err)
	assert.Equal(t, points, pc.Positions)
}

func TestEvents(t *testing.T) {
	l := NewLoader(&memFetcher{files: map[string][]byte{
		"cloud.ply": asciiPLY(gridPoints(200)),
		"empty.ply": asciiPLY(nil),
	}}, Options{ProgressStep: 0.1})

	var types []EventType
	var last Event
	for ev := range l.Events(context.Background(), "cloud.ply") {
		types = append(types, ev.Type)
		last = ev
	}
	require.NotEmpty(t, types)
	assert.Equal(t, EventSuccess, last.Type)
	assert.Equal(t, 200, last.Geometry.Len())
	for _, typ := range types[:len(types)-1] {
		assert.Equal(t, EventProgress, typ)
	}

	var failures []Event
	for ev := range l.Events(context.Background(), "empty.ply") {
		assert.NotEqual(t, EventSuccess, ev.Type)
		if ev.Type == EventFailure {
			failures = append(failures, ev)
		}
	}
	require.Len(t, failures, 1)
	assert.ErrorIs(t, failures[0].Err, ErrEmptyGeometry)
}

func TestRequestErr(t *testing.T) {
	l := NewLoader(&memFetcher{files: map[string][]byte{"cloud.ply": asciiPLY(gridPoints(5))}}, Options{})

	ok := l.Load(context.Background(), "cloud.ply", Callbacks{})
	assert.NoError(t, ok.Wait())
	assert.Equal(t, "cloud.ply", ok.Source())

	failed := l.Load(context.Background(), "nope.ply", Callbacks{})
	assert.ErrorIs(t, failed.Wait(), ErrResourceUnavailable)
}

func TestConcurrentLoadsAreIndependent(t *testing.T) {
	l := NewLoader(&memFetcher{files: map[string][]byte{"cloud.ply": asciiPLY(gridPoints(100))}}, Options{})

	rec := &recorder{}
	a := l.Load(context.Background(), "cloud.ply", rec.callbacks())
	b := l.Load(context.Background(), "cloud.ply", rec.callbacks())
	require.NoError(t, a.Wait())
	require.NoError(t, b.Wait())

	require.Len(t, rec.successes, 2)
	assert.NotSame(t, rec.successes[0], rec.successes[1])
	assert.Equal(t, rec.successes[0].Positions, rec.successes[1].Positions)
}

func TestLoadMetrics(t *testing.T) {
	m := metrics.New()
	l := NewLoader(&memFetcher{files: map[string][]byte{
		"cloud.ply": asciiPLY(gridPoints(10)),
		"empty.ply": asciiPLY(nil),
	}}, Options{Metrics: m})

	_, err := l.LoadSync(context.Background(), "cloud.ply", nil)
	require.NoError(t, err)
	_, err = l.LoadSync(context.Background(), "empty.ply", nil)
	require.Error(t, err)

	expected := `
# HELP pointcloud_loads_total Total number of point cloud loads by outcome
# TYPE pointcloud_loads_total counter
pointcloud_loads_total{outcome="empty_geometry"} 1
pointcloud_loads_total{outcome="success"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), "pointcloud_loads_total"))
}

func TestFormatPercent(t *testing.T) {
	assert.Equal(t, "45.7", FormatPercent(0.4567))
	assert.Equal(t, "100.0", FormatPercent(1))
	assert.Equal(t, "0.0", FormatPercent(0))
}

func TestLoadErrorMessage(t *testing.T) {
	err := &LoadError{Kind: KindEmptyGeometry, Source: "a.ply"}
	assert.Equal(t, "loading a.ply: empty geometry", err.Error())
	assert.Equal(t, "EmptyGeometry", err.Kind.String())
	assert.False(t, errors.Is(err, ErrDecode))
}
