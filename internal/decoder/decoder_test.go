package decoder

import (
	"bufio"
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSniff(t *testing.T) {
	for name, tc := range map[string]struct {
		content string
		hint    string
		want    Format
		err     error
	}{
		"ply magic":          {content: "ply\nformat ascii 1.0\n", want: FormatPLY},
		"ply crlf":           {content: "ply\r\nformat ascii 1.0\r\n", hint: "cloud.pcd", want: FormatPLY},
		"pcd comment":        {content: "# .PCD v0.7\nVERSION 0.7\n", want: FormatPCD},
		"pcd fields":         {content: "FIELDS x y z\n", want: FormatPCD},
		"text with ply hint": {content: "pl", hint: "a.PLY", want: FormatPLY},
		"text with pcd hint": {content: "junk", hint: "a.pcd", want: FormatPCD},
		"text no hint":       {content: "hello world", hint: "a.txt", err: ErrUnknownFormat},
		"binary":             {content: "\x00\x01\x02ply", hint: "a.ply", err: ErrUnknownFormat},
		"empty":              {content: "", hint: "a.ply", err: ErrEmptyResource},
	} {
		t.Run(name, func(t *testing.T) {
			got, err := Sniff(bufio.NewReader(strings.NewReader(tc.content)), tc.hint)
			if tc.err != nil {
				assert.ErrorIs(t, err, tc.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestSniffDoesNotConsume(t *testing.T) {
	br := bufio.NewReader(strings.NewReader(asciiColoredPLY))
	_, err := Sniff(br, "")
	require.NoError(t, err)
	pc, err := DecodePLY(br)
	require.NoError(t, err)
	assert.Equal(t, 3, pc.Len())
}

func TestDecodeDispatches(t *testing.T) {
	pc, err := Decode(strings.NewReader(asciiColoredPLY), "whatever.bin")
	require.NoError(t, err)
	assert.Equal(t, 3, pc.Len())

	raw := binaryPCD(t, [][3]float32{{1, 2, 3}}, []uint32{0})
	pc, err = Decode(bytes.NewReader(raw), "")
	require.NoError(t, err)
	assert.Equal(t, 1, pc.Len())
}

func TestDecodeEmpty(t *testing.T) {
	_, err := Decode(strings.NewReader(""), "cloud.ply")
	assert.ErrorIs(t, err, ErrEmptyResource)
}

const plyWithList = "ply\nformat ascii 1.0\nelement vertex 1\n" +
	"property float x\nproperty float y\nproperty float z\nproperty list uchar int idx\nend_header\n"

func TestDecodeCraftedHeaders(t *testing.T) {
	zeroCountPCD := "FIELDS x y z\nSIZE 4 4 4\nTYPE F F F\nCOUNT 1 1 0\nWIDTH 1\nPOINTS 1\nDATA binary\n"

	for name, content := range map[string]string{
		"ply list overflow":     plyWithList + "0 0 0 9223372036854775807 1\n",
		"ply list beyond type":  plyWithList + "0 0 0 300 1\n",
		"ply list too long":     plyWithList + "0 0 0 5 1 2\n",
		"pcd zero count binary": zeroCountPCD + "\x00\x00\x80\x3f\x00\x00\x00\x40",
		"pcd zero count ascii":  strings.Replace(zeroCountPCD, "binary", "ascii", 1) + "1 2\n",
		"pcd huge record":       "FIELDS x y z n\nSIZE 4 4 4 8\nTYPE F F F F\nCOUNT 1 1 1 4611686018427387904\nPOINTS 1\nDATA binary\n",
		"pcd huge area":         "FIELDS x y z\nSIZE 4 4 4\nTYPE F F F\nWIDTH 4294967296\nHEIGHT 4294967296\nDATA binary\n",
	} {
		t.Run(name, func(t *testing.T) {
			var err error
			require.NotPanics(t, func() {
				_, err = Decode(strings.NewReader(content), "")
			})
			assert.Error(t, err)
		})
	}
}

func TestDecodePLYListInsideRecord(t *testing.T) {
	pc, err := Decode(strings.NewReader(plyWithList+"1 2 3 2 7 8\n"), "")
	require.NoError(t, err)
	assert.Equal(t, 1, pc.Len())
}

func FuzzDecode(f *testing.F) {
	f.Add([]byte(asciiColoredPLY))
	f.Add([]byte(plyWithList + "1 2 3 2 7 8\n"))
	f.Add([]byte("FIELDS x y z\nSIZE 4 4 4\nTYPE F F F\nPOINTS 1\nDATA ascii\n1 2 3\n"))
	f.Add([]byte("FIELDS x y z\nSIZE 4 4 4\nTYPE F F F\nCOUNT 1 1 0\nPOINTS 1\nDATA binary\n\x00\x00\x00\x00"))

	f.Fuzz(func(t *testing.T, content []byte) {
		pc, err := Decode(bytes.NewReader(content), "cloud.ply")
		if err == nil {
			assert.NoError(t, pc.Validate())
		}
	})
}
