package decoder

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"math"
	"path/filepath"
	"strings"

	"github.com/ecopia-map/plyviewer/internal/data"
	"gonum.org/v1/gonum/spatial/r3"
)

type Format string

const (
	FormatUnknown Format = ""
	FormatPLY     Format = "ply"
	FormatPCD     Format = "pcd"
)

var (
	ErrEmptyResource     = errors.New("resource is empty")
	ErrUnknownFormat     = errors.New("unrecognized point cloud encoding")
	ErrUnsupportedFormat = errors.New("unsupported point cloud encoding")
)

// number of leading bytes inspected when sniffing the encoding
const sniffLength = 64

// upper bound for slice preallocation, the header counts are not trusted
const maxPrealloc = 1 << 20

// Decodes the point cloud read from r. The encoding is detected from the
// leading bytes of the stream, name is only used as a fallback hint.
func Decode(r io.Reader, name string) (*data.PointCloud, error) {
	br := bufio.NewReader(r)
	format, err := Sniff(br, name)
	if err != nil {
		return nil, err
	}

	var pc *data.PointCloud
	switch format {
	case FormatPLY:
		pc, err = DecodePLY(br)
	case FormatPCD:
		pc, err = DecodePCD(br)
	default:
		return nil, ErrUnknownFormat
	}
	if err != nil {
		return nil, err
	}
	if err := pc.Validate(); err != nil {
		return nil, err
	}
	return pc, nil
}

// Detects the encoding of the stream without consuming it
func Sniff(br *bufio.Reader, name string) (Format, error) {
	head, err := br.Peek(sniffLength)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return FormatUnknown, err
	}
	if len(head) == 0 {
		return FormatUnknown, ErrEmptyResource
	}

	if bytes.HasPrefix(head, []byte("ply\n")) || bytes.HasPrefix(head, []byte("ply\r\n")) {
		return FormatPLY, nil
	}
	trimmed := bytes.TrimLeft(head, " \t\r\n")
	for _, keyword := range []string{"# .PCD", "VERSION", "FIELDS"} {
		if bytes.HasPrefix(trimmed, []byte(keyword)) {
			return FormatPCD, nil
		}
	}

	// binary data without a recognizable header can't be decoded whatever the extension says
	if !isText(head) {
		return FormatUnknown, ErrUnknownFormat
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".ply":
		return FormatPLY, nil
	case ".pcd":
		return FormatPCD, nil
	}
	return FormatUnknown, ErrUnknownFormat
}

func isText(b []byte) bool {
	for _, c := range b {
		if c == 0 || (c < 0x20 && c != '\n' && c != '\r' && c != '\t') {
			return false
		}
	}
	return true
}

func isFinite(v r3.Vec) bool {
	return !math.IsNaN(v.X) && !math.IsNaN(v.Y) && !math.IsNaN(v.Z) &&
		!math.IsInf(v.X, 0) && !math.IsInf(v.Y, 0) && !math.IsInf(v.Z, 0)
}

func clamp01(v float64) float32 {
	if v < 0 || math.IsNaN(v) {
		return 0
	}
	if v > 1 {
		return 1
	}
	return float32(v)
}

func preallocSize(n int) int {
	if n > maxPrealloc {
		return maxPrealloc
	}
	if n < 0 {
		return 0
	}
	return n
}

// Reads a header line without the trailing line terminator
func readLine(br *bufio.Reader) (string, error) {
	line, err := br.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && line != "" {
			return strings.TrimRight(line, "\r\n"), nil
		}
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
