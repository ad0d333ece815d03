package decoder

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ecopia-map/plyviewer/internal/data"
	"github.com/seqsense/pcgol/pc"
	"gonum.org/v1/gonum/spatial/r3"
)

// limits applied to the header before any allocation depends on it
const (
	maxPCDPoints     = 1 << 27
	maxPCDRecordSize = 1 << 16
	maxPCDDataSize   = 1 << 30
)

type pcdField struct {
	name   string
	size   int
	kind   byte // 'F', 'I' or 'U'
	count  int
	offset int // byte offset inside a record
}

type pcdHeader struct {
	fields     []pcdField
	width      int
	height     int
	points     int
	viewpoint  []string
	dataFormat string
	recordSize int
}

// Decodes a PCD stream with ascii, binary or binary_compressed data. The
// x, y, z fields are required; a packed rgb or rgba field is used for colors
// when present.
func DecodePCD(r io.Reader) (*data.PointCloud, error) {
	br, ok := r.(*bufio.Reader)
	if !ok {
		br = bufio.NewReader(r)
	}

	header, err := readPCDHeader(br)
	if err != nil {
		return nil, err
	}

	rgb := header.field("rgb")
	if rgb == nil {
		rgb = header.field("rgba")
	}
	if rgb != nil && (rgb.size != 4 || rgb.count != 1) {
		return nil, fmt.Errorf("pcd: unsupported %s field of size %d and count %d", rgb.name, rgb.size, rgb.count)
	}

	cloud, err := unmarshalPCD(io.MultiReader(header.canonical(), br))
	if err != nil {
		return nil, err
	}
	if cloud.Points != header.points || len(cloud.Data) < header.points*header.recordSize {
		return nil, fmt.Errorf("pcd: %w: %d points decoded, %d declared", io.ErrUnexpectedEOF, cloud.Points, header.points)
	}

	it, err := cloud.Vec3Iterator()
	if err != nil {
		return nil, fmt.Errorf("pcd: %w", err)
	}

	out := data.NewPointCloud(preallocSize(header.points), rgb != nil)
	for i := 0; it.IsValid() && i < header.points; i++ {
		v := it.Vec3()
		p := r3.Vec{X: float64(v[0]), Y: float64(v[1]), Z: float64(v[2])}

		var color data.Color
		if rgb != nil {
			at := i*header.recordSize + rgb.offset
			color = unpackColor(binary.LittleEndian.Uint32(cloud.Data[at : at+4]))
		}
		if isFinite(p) {
			out.Add(p, color)
		}
		it.Incr()
	}
	return out, nil
}

// pcgol reads crafted input with slice arithmetic of its own, a panic there
// is a decode error of this stream
func unmarshalPCD(r io.Reader) (cloud *pc.PointCloud, err error) {
	defer func() {
		if v := recover(); v != nil {
			cloud, err = nil, fmt.Errorf("pcd: malformed data: %v", v)
		}
	}()

	cloud, err = pc.Unmarshal(r)
	if err != nil {
		return nil, fmt.Errorf("pcd: %w", err)
	}
	return cloud, nil
}

func (h *pcdHeader) field(name string) *pcdField {
	for i := range h.fields {
		if h.fields[i].name == name {
			return &h.fields[i]
		}
	}
	return nil
}

// Writes the header back with every optional line filled in
func (h *pcdHeader) canonical() io.Reader {
	var names, sizes, kinds, counts []string
	for _, f := range h.fields {
		names = append(names, f.name)
		sizes = append(sizes, strconv.Itoa(f.size))
		kinds = append(kinds, string(f.kind))
		counts = append(counts, strconv.Itoa(f.count))
	}
	viewpoint := h.viewpoint
	if len(viewpoint) != 7 {
		viewpoint = []string{"0", "0", "0", "1", "0", "0", "0"}
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "VERSION 0.7\n")
	fmt.Fprintf(&buf, "FIELDS %s\n", strings.Join(names, " "))
	fmt.Fprintf(&buf, "SIZE %s\n", strings.Join(sizes, " "))
	fmt.Fprintf(&buf, "TYPE %s\n", strings.Join(kinds, " "))
	fmt.Fprintf(&buf, "COUNT %s\n", strings.Join(counts, " "))
	fmt.Fprintf(&buf, "WIDTH %d\nHEIGHT %d\n", h.width, h.height)
	fmt.Fprintf(&buf, "VIEWPOINT %s\n", strings.Join(viewpoint, " "))
	fmt.Fprintf(&buf, "POINTS %d\n", h.points)
	fmt.Fprintf(&buf, "DATA %s\n", h.dataFormat)
	return &buf
}

func readPCDHeader(br *bufio.Reader) (*pcdHeader, error) {
	header := &pcdHeader{points: -1}
	var names []string
	var sizes, counts []int
	var kinds []byte
	width, height := -1, 1

	for header.dataFormat == "" {
		line, err := readLine(br)
		if err != nil {
			return nil, fmt.Errorf("pcd: header not terminated: %w", err)
		}
		fields := strings.Fields(line)
		if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
			continue
		}
		args := fields[1:]

		switch strings.ToUpper(fields[0]) {
		case "VERSION":
		case "VIEWPOINT":
			header.viewpoint = args
		case "FIELDS":
			names = args
		case "SIZE":
			if sizes, err = atoiAll(args); err != nil {
				return nil, fmt.Errorf("pcd: SIZE: %w", err)
			}
		case "COUNT":
			if counts, err = atoiAll(args); err != nil {
				return nil, fmt.Errorf("pcd: COUNT: %w", err)
			}
		case "TYPE":
			for _, a := range args {
				if len(a) != 1 || !strings.Contains("FIU", strings.ToUpper(a)) {
					return nil, fmt.Errorf("pcd: invalid TYPE %q", a)
				}
				kinds = append(kinds, strings.ToUpper(a)[0])
			}
		case "WIDTH", "HEIGHT", "POINTS":
			if len(args) != 1 {
				return nil, fmt.Errorf("pcd: malformed %s line", fields[0])
			}
			n, err := strconv.Atoi(args[0])
			if err != nil || n < 0 || n > maxPCDPoints {
				return nil, fmt.Errorf("pcd: invalid %s %q", fields[0], args[0])
			}
			switch strings.ToUpper(fields[0]) {
			case "WIDTH":
				width = n
			case "HEIGHT":
				height = n
			default:
				header.points = n
			}
		case "DATA":
			if len(args) != 1 {
				return nil, errors.New("pcd: malformed DATA line")
			}
			header.dataFormat = strings.ToLower(args[0])
		default:
			return nil, fmt.Errorf("pcd: unexpected header line %q", line)
		}
	}

	switch header.dataFormat {
	case "ascii", "binary", "binary_compressed":
	default:
		return nil, fmt.Errorf("pcd: %w: %q data", ErrUnsupportedFormat, header.dataFormat)
	}

	if len(names) == 0 {
		return nil, errors.New("pcd: missing FIELDS")
	}
	if len(sizes) != len(names) || len(kinds) != len(names) {
		return nil, errors.New("pcd: FIELDS, SIZE and TYPE lengths differ")
	}
	if counts == nil {
		counts = make([]int, len(names))
		for i := range counts {
			counts[i] = 1
		}
	}
	if len(counts) != len(names) {
		return nil, errors.New("pcd: FIELDS and COUNT lengths differ")
	}

	offset := 0
	for i, name := range names {
		f := pcdField{name: name, size: sizes[i], kind: kinds[i], count: counts[i], offset: offset}
		if !validPCDSize(f) {
			return nil, fmt.Errorf("pcd: invalid size %d for type %c", f.size, f.kind)
		}
		if f.count < 0 || f.count > maxPCDRecordSize {
			return nil, fmt.Errorf("pcd: invalid count %d for field %s", f.count, f.name)
		}
		header.fields = append(header.fields, f)
		offset += f.size * f.count
		if offset > maxPCDRecordSize {
			return nil, fmt.Errorf("pcd: records larger than %d bytes", maxPCDRecordSize)
		}
	}
	header.recordSize = offset

	for _, name := range []string{"x", "y", "z"} {
		f := header.field(name)
		if f == nil {
			return nil, errors.New("pcd: missing x, y or z field")
		}
		if f.count != 1 {
			return nil, fmt.Errorf("pcd: field %s has count %d", name, f.count)
		}
	}

	if width >= 0 && height > 0 && width > maxPCDPoints/height {
		return nil, fmt.Errorf("pcd: more than %d points", maxPCDPoints)
	}
	if header.points < 0 {
		if width < 0 {
			return nil, errors.New("pcd: missing POINTS and WIDTH")
		}
		header.points = width * height
	}
	if width*height != header.points {
		// unorganized cloud
		width, height = header.points, 1
	}
	header.width, header.height = width, height

	if header.points*header.recordSize > maxPCDDataSize {
		return nil, fmt.Errorf("pcd: more than %d bytes of data", maxPCDDataSize)
	}
	return header, nil
}

func validPCDSize(f pcdField) bool {
	switch f.kind {
	case 'F':
		return f.size == 4 || f.size == 8
	default:
		return f.size == 1 || f.size == 2 || f.size == 4 || f.size == 8
	}
}

func atoiAll(values []string) ([]int, error) {
	out := make([]int, len(values))
	for i, v := range values {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, err
		}
		out[i] = n
	}
	return out, nil
}

func unpackColor(bits uint32) data.Color {
	return data.NewColor8(uint8(bits>>16), uint8(bits>>8), uint8(bits))
}

