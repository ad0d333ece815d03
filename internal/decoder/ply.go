package decoder

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/ecopia-map/plyviewer/internal/data"
	"gonum.org/v1/gonum/spatial/r3"
)

type plyEncoding int

const (
	plyASCII plyEncoding = iota
	plyBinaryLittleEndian
	plyBinaryBigEndian
)

// scalar type of a ply property
type plyType struct {
	name     string
	size     int
	float    bool
	signed   bool
	maxValue float64 // used to normalize integer colors
}

var plyTypes = map[string]plyType{
	"char":    {name: "char", size: 1, signed: true, maxValue: math.MaxInt8},
	"int8":    {name: "char", size: 1, signed: true, maxValue: math.MaxInt8},
	"uchar":   {name: "uchar", size: 1, maxValue: math.MaxUint8},
	"uint8":   {name: "uchar", size: 1, maxValue: math.MaxUint8},
	"short":   {name: "short", size: 2, signed: true, maxValue: math.MaxInt16},
	"int16":   {name: "short", size: 2, signed: true, maxValue: math.MaxInt16},
	"ushort":  {name: "ushort", size: 2, maxValue: math.MaxUint16},
	"uint16":  {name: "ushort", size: 2, maxValue: math.MaxUint16},
	"int":     {name: "int", size: 4, signed: true, maxValue: math.MaxInt32},
	"int32":   {name: "int", size: 4, signed: true, maxValue: math.MaxInt32},
	"uint":    {name: "uint", size: 4, maxValue: math.MaxUint32},
	"uint32":  {name: "uint", size: 4, maxValue: math.MaxUint32},
	"float":   {name: "float", size: 4, float: true, signed: true, maxValue: 1},
	"float32": {name: "float", size: 4, float: true, signed: true, maxValue: 1},
	"double":  {name: "double", size: 8, float: true, signed: true, maxValue: 1},
	"float64": {name: "double", size: 8, float: true, signed: true, maxValue: 1},
}

type plyProperty struct {
	name      string
	typ       plyType
	list      bool
	countType plyType
}

type plyElement struct {
	name       string
	count      int
	properties []plyProperty
}

type plyHeader struct {
	encoding plyEncoding
	elements []*plyElement
}

// indexes of the properties the viewer cares about inside the vertex element
type vertexLayout struct {
	x, y, z    int
	r, g, b    int
	hasColors  bool
	colorTypes [3]plyType
}

// Decodes a PLY stream (ascii, binary_little_endian or binary_big_endian).
// Only the vertex element is retained: x, y, z and, when all three are
// present, the red, green and blue properties.
func DecodePLY(r io.Reader) (*data.PointCloud, error) {
	br, ok := r.(*bufio.Reader)
	if !ok {
		br = bufio.NewReader(r)
	}

	header, err := readPLYHeader(br)
	if err != nil {
		return nil, err
	}

	for _, element := range header.elements {
		if element.name != "vertex" {
			if err := skipPLYElement(br, header.encoding, element); err != nil {
				return nil, err
			}
			continue
		}

		layout, err := newVertexLayout(element)
		if err != nil {
			return nil, err
		}
		if header.encoding == plyASCII {
			return readASCIIVertices(br, element, layout)
		}
		return readBinaryVertices(br, header.byteOrder(), element, layout)
	}

	return nil, errors.New("ply: no vertex element")
}

func (h *plyHeader) byteOrder() binary.ByteOrder {
	if h.encoding == plyBinaryBigEndian {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

func readPLYHeader(br *bufio.Reader) (*plyHeader, error) {
	magic, err := readLine(br)
	if err != nil || strings.TrimSpace(magic) != "ply" {
		return nil, errors.New("ply: missing magic number")
	}

	header := &plyHeader{}
	formatSeen := false
	var current *plyElement

	for {
		line, err := readLine(br)
		if err != nil {
			return nil, fmt.Errorf("ply: header not terminated: %w", err)
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "end_header":
			if !formatSeen {
				return nil, errors.New("ply: missing format line")
			}
			return header, nil
		case "comment", "obj_info":
		case "format":
			if len(fields) < 2 {
				return nil, fmt.Errorf("ply: malformed format line %q", line)
			}
			switch fields[1] {
			case "ascii":
				header.encoding = plyASCII
			case "binary_little_endian":
				header.encoding = plyBinaryLittleEndian
			case "binary_big_endian":
				header.encoding = plyBinaryBigEndian
			default:
				return nil, fmt.Errorf("ply: unknown format %q", fields[1])
			}
			formatSeen = true
		case "element":
			if len(fields) != 3 {
				return nil, fmt.Errorf("ply: malformed element line %q", line)
			}
			count, err := strconv.Atoi(fields[2])
			if err != nil || count < 0 {
				return nil, fmt.Errorf("ply: invalid element count %q", fields[2])
			}
			current = &plyElement{name: fields[1], count: count}
			header.elements = append(header.elements, current)
		case "property":
			if current == nil {
				return nil, errors.New("ply: property declared before any element")
			}
			prop, err := parsePLYProperty(fields)
			if err != nil {
				return nil, err
			}
			current.properties = append(current.properties, prop)
		default:
			return nil, fmt.Errorf("ply: unexpected header line %q", line)
		}
	}
}

func parsePLYProperty(fields []string) (plyProperty, error) {
	if len(fields) == 5 && fields[1] == "list" {
		countType, ok := plyTypes[fields[2]]
		if !ok || countType.float {
			return plyProperty{}, fmt.Errorf("ply: invalid list count type %q", fields[2])
		}
		itemType, ok := plyTypes[fields[3]]
		if !ok {
			return plyProperty{}, fmt.Errorf("ply: unknown property type %q", fields[3])
		}
		return plyProperty{name: fields[4], typ: itemType, list: true, countType: countType}, nil
	}
	if len(fields) != 3 {
		return plyProperty{}, fmt.Errorf("ply: malformed property line %q", strings.Join(fields, " "))
	}
	typ, ok := plyTypes[fields[1]]
	if !ok {
		return plyProperty{}, fmt.Errorf("ply: unknown property type %q", fields[1])
	}
	return plyProperty{name: fields[2], typ: typ}, nil
}

func newVertexLayout(element *plyElement) (vertexLayout, error) {
	index := make(map[string]int, len(element.properties))
	for i, p := range element.properties {
		if !p.list {
			index[p.name] = i
		}
	}

	layout := vertexLayout{}
	var ok [3]bool
	layout.x, ok[0] = index["x"]
	layout.y, ok[1] = index["y"]
	layout.z, ok[2] = index["z"]
	if !ok[0] || !ok[1] || !ok[2] {
		return layout, errors.New("ply: vertex element lacks x, y or z")
	}

	for _, names := range [][3]string{
		{"red", "green", "blue"},
		{"r", "g", "b"},
		{"diffuse_red", "diffuse_green", "diffuse_blue"},
	} {
		r, okR := index[names[0]]
		g, okG := index[names[1]]
		b, okB := index[names[2]]
		if okR && okG && okB {
			layout.r, layout.g, layout.b = r, g, b
			layout.hasColors = true
			layout.colorTypes = [3]plyType{
				element.properties[r].typ,
				element.properties[g].typ,
				element.properties[b].typ,
			}
			break
		}
	}
	return layout, nil
}

// Builds a point from the decoded scalar values of one vertex
func (l vertexLayout) point(values []float64) (r3.Vec, data.Color) {
	p := r3.Vec{X: values[l.x], Y: values[l.y], Z: values[l.z]}
	if !l.hasColors {
		return p, data.Color{}
	}
	return p, data.Color{
		R: normalizeColor(values[l.r], l.colorTypes[0]),
		G: normalizeColor(values[l.g], l.colorTypes[1]),
		B: normalizeColor(values[l.b], l.colorTypes[2]),
	}
}

func normalizeColor(v float64, typ plyType) float32 {
	if typ.float {
		return clamp01(v)
	}
	return clamp01(v / typ.maxValue)
}

func readASCIIVertices(br *bufio.Reader, element *plyElement, layout vertexLayout) (*data.PointCloud, error) {
	pc := data.NewPointCloud(preallocSize(element.count), layout.hasColors)
	values := make([]float64, len(element.properties))

	for i := 0; i < element.count; i++ {
		fields, err := nextASCIIRecord(br)
		if err != nil {
			return nil, fmt.Errorf("ply: vertex %d of %d: %w", i, element.count, err)
		}
		pos := 0
		for j, prop := range element.properties {
			if pos >= len(fields) {
				return nil, fmt.Errorf("ply: vertex %d has too few values", i)
			}
			if prop.list {
				n, err := strconv.Atoi(fields[pos])
				if err != nil || n < 0 || float64(n) > prop.countType.maxValue {
					return nil, fmt.Errorf("ply: vertex %d: invalid list length %q", i, fields[pos])
				}
				if n > len(fields)-pos-1 {
					return nil, fmt.Errorf("ply: vertex %d: list %s has %d of %d values", i, prop.name, len(fields)-pos-1, n)
				}
				pos += 1 + n
				continue
			}
			v, err := strconv.ParseFloat(fields[pos], 64)
			if err != nil {
				return nil, fmt.Errorf("ply: vertex %d: %w", i, err)
			}
			values[j] = v
			pos++
		}
		if pos > len(fields) {
			return nil, fmt.Errorf("ply: vertex %d has too few values", i)
		}

		p, c := layout.point(values)
		if isFinite(p) {
			pc.Add(p, c)
		}
	}
	return pc, nil
}

// Returns the whitespace separated tokens of the next non blank line
func nextASCIIRecord(br *bufio.Reader) ([]string, error) {
	for {
		line, err := readLine(br)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, io.ErrUnexpectedEOF
			}
			return nil, err
		}
		if fields := strings.Fields(line); len(fields) > 0 {
			return fields, nil
		}
	}
}

func readBinaryVertices(br *bufio.Reader, order binary.ByteOrder, element *plyElement, layout vertexLayout) (*data.PointCloud, error) {
	pc := data.NewPointCloud(preallocSize(element.count), layout.hasColors)
	values := make([]float64, len(element.properties))
	var buf [8]byte

	for i := 0; i < element.count; i++ {
		for j, prop := range element.properties {
			if prop.list {
				if err := skipBinaryList(br, order, prop, buf[:]); err != nil {
					return nil, fmt.Errorf("ply: vertex %d of %d: %w", i, element.count, truncated(err))
				}
				continue
			}
			v, err := readBinaryScalar(br, order, prop.typ, buf[:])
			if err != nil {
				return nil, fmt.Errorf("ply: vertex %d of %d: %w", i, element.count, truncated(err))
			}
			values[j] = v
		}

		p, c := layout.point(values)
		if isFinite(p) {
			pc.Add(p, c)
		}
	}
	return pc, nil
}

func truncated(err error) error {
	if errors.Is(err, io.EOF) {
		return io.ErrUnexpectedEOF
	}
	return err
}

func readBinaryScalar(r io.Reader, order binary.ByteOrder, typ plyType, buf []byte) (float64, error) {
	b := buf[:typ.size]
	if _, err := io.ReadFull(r, b); err != nil {
		return 0, err
	}
	switch typ.name {
	case "char":
		return float64(int8(b[0])), nil
	case "uchar":
		return float64(b[0]), nil
	case "short":
		return float64(int16(order.Uint16(b))), nil
	case "ushort":
		return float64(order.Uint16(b)), nil
	case "int":
		return float64(int32(order.Uint32(b))), nil
	case "uint":
		return float64(order.Uint32(b)), nil
	case "float":
		return float64(math.Float32frombits(order.Uint32(b))), nil
	case "double":
		return math.Float64frombits(order.Uint64(b)), nil
	}
	return 0, fmt.Errorf("ply: unknown property type %q", typ.name)
}

func skipBinaryList(br *bufio.Reader, order binary.ByteOrder, prop plyProperty, buf []byte) error {
	n, err := readBinaryScalar(br, order, prop.countType, buf)
	if err != nil {
		return err
	}
	if n < 0 {
		return fmt.Errorf("negative list length %v", n)
	}
	skip := int(n) * prop.typ.size
	discarded, err := br.Discard(skip)
	if err != nil {
		return err
	}
	if discarded != skip {
		return io.ErrUnexpectedEOF
	}
	return nil
}

func skipPLYElement(br *bufio.Reader, encoding plyEncoding, element *plyElement) error {
	if encoding == plyASCII {
		for i := 0; i < element.count; i++ {
			if _, err := nextASCIIRecord(br); err != nil {
				return fmt.Errorf("ply: element %q: %w", element.name, err)
			}
		}
		return nil
	}

	if len(element.properties) == 0 {
		return nil
	}
	order := (&plyHeader{encoding: encoding}).byteOrder()
	var buf [8]byte
	for i := 0; i < element.count; i++ {
		for _, prop := range element.properties {
			var err error
			if prop.list {
				err = skipBinaryList(br, order, prop, buf[:])
			} else {
				_, err = br.Discard(prop.typ.size)
			}
			if err != nil {
				return fmt.Errorf("ply: element %q: %w", element.name, truncated(err))
			}
		}
	}
	return nil
}
