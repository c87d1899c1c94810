package match

import (
	"bytes"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magikind/gofile/internal/magic"
)

func compileDoc(t *testing.T, doc string) *magic.Forest {
	t.Helper()
	forest, diags := magic.NewCompiler().Compile(strings.NewReader(doc), "t")
	if len(diags) != 0 {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
	return forest
}

// TestScenarios covers the six end-to-end scenarios tabulated in
// spec.md §8.
func TestScenarios(t *testing.T) {
	tests := map[string]struct {
		doc  string
		data []byte
		want string
		none bool
	}{
		"1 pdf": {
			doc:  `0 string %PDF application/pdf`,
			data: []byte{0x25, 0x50, 0x44, 0x46, 0x2D, 0x31, 0x2E, 0x34},
			want: "application/pdf",
		},
		"2 png": {
			doc:  `0 belong 0x89504E47 image/png`,
			data: []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A},
			want: "image/png",
		},
		// spec.md §8 row 3: bytes in the wrong order for a leshort
		// 0xAA55 test must not match — [0xAA,0x55] decodes (little
		// endian) to 0x55AA, not 0xAA55.
		"3 mbr wrong order": {
			doc:  `0 leshort 0xAA55 application/x-mbr`,
			data: []byte{0xAA, 0x55},
			none: true,
		},
		// spec.md §8 row 3b: the same rule matches once the bytes are
		// in the order a real little-endian 0xAA55 is stored in —
		// [0x55,0xAA].
		"3b mbr correct order": {
			doc:  `0 leshort 0xAA55 application/x-mbr`,
			data: []byte{0x55, 0xAA},
			want: "application/x-mbr",
		},
		"4 zip with openxml child": {
			doc: "0 string PK\\x03\\x04 application/zip\n" +
				">4 byte 0x14 application/vnd.openxmlformats",
			data: []byte{0x50, 0x4B, 0x03, 0x04, 0x14, 0x00, 0x00, 0x00},
			want: "application/vnd.openxmlformats",
		},
		"5 zip without child match": {
			doc: "0 string PK\\x03\\x04 application/zip\n" +
				">4 byte 0x14 application/vnd.openxmlformats",
			data: []byte{0x50, 0x4B, 0x03, 0x04, 0x00, 0x00, 0x00, 0x00},
			want: "application/zip",
		},
		"6 mp4 masked belong": {
			doc:  `4 belong&0xFFFFFF00 0x66747970 video/mp4`,
			data: []byte{0x00, 0x00, 0x00, 0x20, 0x66, 0x74, 0x79, 0x70, 0x6D, 0x70, 0x34, 0x32},
			want: "video/mp4",
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			forest := compileDoc(t, tt.doc)
			e := NewEngine(forest, Config{})
			res, err := e.Match(NewBufferSource(tt.data))
			require.NoError(t, err)
			if tt.none {
				assert.False(t, res.Matched)
				return
			}
			assert.True(t, res.Matched)
			assert.Equal(t, tt.want, res.MIME)
		})
	}
}

func TestNoMatchReturnsDefaultMIME(t *testing.T) {
	forest := compileDoc(t, `0 string %PDF application/pdf`)
	e := NewEngine(forest, Config{DefaultUnknownMIME: "application/x-custom-default"})
	res, err := e.Match(NewBufferSource([]byte("not a pdf")))
	require.NoError(t, err)
	assert.False(t, res.Matched)
	assert.Equal(t, "application/x-custom-default", res.MIME)
}

func TestStreamAndRandomAccessEquivalence(t *testing.T) {
	doc := "0 string PK\\x03\\x04 application/zip\n" +
		">4 byte 0x14 application/vnd.openxmlformats\n" +
		">4 byte 0x00 application/zip-empty\n"
	forest := compileDoc(t, doc)

	inputs := [][]byte{
		{0x50, 0x4B, 0x03, 0x04, 0x14, 0x00},
		{0x50, 0x4B, 0x03, 0x04, 0x00, 0x00},
		{0x50, 0x4B, 0x03, 0x04},
		[]byte("nothing interesting here"),
		{},
	}

	for _, data := range inputs {
		e := NewEngine(forest, Config{})
		viaRandom, err := e.Match(NewBufferSource(data))
		require.NoError(t, err)

		viaStream, err := e.Match(NewStreamSource(bytes.NewReader(data)))
		require.NoError(t, err)

		assert.Equal(t, viaRandom.MIME, viaStream.MIME, "mismatch for %v", data)
		assert.Equal(t, viaRandom.Matched, viaStream.Matched)
	}
}

func TestReadBoundsSafety(t *testing.T) {
	forest := compileDoc(t, `0 belong 0x89504E47 image/png`)
	e := NewEngine(forest, Config{})

	res, err := e.Match(NewBufferSource([]byte{0x89, 0x50}))
	require.NoError(t, err)
	assert.False(t, res.Matched)
}

func TestEndiannessCorrectness(t *testing.T) {
	forest := compileDoc(t, `0 belong 0x01020304 big`)
	e := NewEngine(forest, Config{})

	be, err := e.Match(NewBufferSource([]byte{0x01, 0x02, 0x03, 0x04}))
	require.NoError(t, err)
	assert.True(t, be.Matched)

	le, err := e.Match(NewBufferSource([]byte{0x04, 0x03, 0x02, 0x01}))
	require.NoError(t, err)
	assert.False(t, le.Matched)
}

func TestCollectAllMode(t *testing.T) {
	doc := "0 string PK\\x03\\x04 application/zip\n" +
		">4 byte 0x14 application/vnd.openxmlformats\n"
	forest := compileDoc(t, doc)
	e := NewEngine(forest, Config{Mode: ModeCollectAll})

	res, err := e.Match(NewBufferSource([]byte{0x50, 0x4B, 0x03, 0x04, 0x14, 0x00}))
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"application/vnd.openxmlformats"}, res.All)
}

func TestConcurrentMatchesAreIndependent(t *testing.T) {
	forest := compileDoc(t, `0 string %PDF application/pdf`)
	e := NewEngine(forest, Config{})

	var wg sync.WaitGroup
	errs := make([]error, 64)
	mimes := make([]string, 64)
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := e.Match(NewBufferSource([]byte("%PDF-1.4")))
			errs[i] = err
			mimes[i] = res.MIME
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		require.NoError(t, err)
		assert.Equal(t, "application/pdf", mimes[i])
	}
}

func TestStringNotEqualsAndComparisons(t *testing.T) {
	forest := compileDoc(t, "0 string !ABC not-abc\n")
	e := NewEngine(forest, Config{})

	res, err := e.Match(NewBufferSource([]byte("XYZ1")))
	require.NoError(t, err)
	assert.True(t, res.Matched)

	res, err = e.Match(NewBufferSource([]byte("ABC1")))
	require.NoError(t, err)
	assert.False(t, res.Matched)
}

func TestBoundedContainsString(t *testing.T) {
	forest := compileDoc(t, "0 string>16 needle found-needle\n")
	e := NewEngine(forest, Config{})

	res, err := e.Match(NewBufferSource([]byte("0123needle6789abcdXYZ")))
	require.NoError(t, err)
	assert.True(t, res.Matched)
	assert.Equal(t, "found-needle", res.MIME)

	res, err = e.Match(NewBufferSource([]byte("0123456789abcdefXYZneedle")))
	require.NoError(t, err)
	assert.False(t, res.Matched)
}

// unboundedSource implements Source but neither Marker nor
// RandomAccessSource, to exercise Match's usage-error rejection.
type unboundedSource struct{}

func (unboundedSource) ReadAt(offset, n int) ([]byte, error) { return nil, nil }

func TestMatchRejectsUnrecognizedSource(t *testing.T) {
	forest := compileDoc(t, `0 string %PDF application/pdf`)
	e := NewEngine(forest, Config{})

	_, err := e.Match(unboundedSource{})
	require.Error(t, err)
	var usageErr *UsageError
	assert.ErrorAs(t, err, &usageErr)
}
