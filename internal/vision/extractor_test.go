package vision

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/color"
	"image/png"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func stripes(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if (x/7)%2 == 0 {
				img.Set(x, y, color.RGBA{R: 200, G: 30, B: uint8(x % 256), A: 255})
			} else {
				img.Set(x, y, color.RGBA{R: 10, G: uint8(y % 256), B: 90, A: 255})
			}
		}
	}
	return img
}

func newTestExtractor(t *testing.T) Extractor {
	t.Helper()
	e, err := NewExtractor(DefaultConfig())
	require.NoError(t, err)
	return e
}

func TestExtract_Deterministic(t *testing.T) {
	e := newTestExtractor(t)
	data := encodePNG(t, stripes(300, 180))
	a, err := e.Extract(data)
	require.NoError(t, err)
	b, err := e.Extract(data)
	require.NoError(t, err)
	require.Equal(t, a, b)
}

func TestExtract_LayoutInvariants(t *testing.T) {
	cfg := DefaultConfig()
	e := newTestExtractor(t)
	require.Equal(t, 134, e.Dim())

	vec, err := e.Extract(encodePNG(t, stripes(300, 180)))
	require.NoError(t, err)
	require.Len(t, vec, e.Dim())

	sumBlock := func(start, n int) float64 {
		var s float64
		for _, v := range vec[start : start+n] {
			s += float64(v)
		}
		return s
	}
	h := cfg.HistogramBins
	for ch := 0; ch < 3; ch++ {
		require.InDelta(t, 1.0, sumBlock(ch*h, h), 1e-4)
	}
	coarseStart := 3*h + 6
	for ch := 0; ch < 3; ch++ {
		require.InDelta(t, 1.0, sumBlock(coarseStart+ch*cfg.CoarseBins, cfg.CoarseBins), 1e-4)
	}
	w, hh := vec[len(vec)-2], vec[len(vec)-1]
	require.InDelta(t, 1.0, w, 1e-6)
	require.InDelta(t, 0.6, hh, 1e-6)
	require.GreaterOrEqual(t, hh, float32(0))
	require.LessOrEqual(t, hh, float32(1))
}

func TestExtract_UniformImage(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 40, 40))
	for y := 0; y < 40; y++ {
		for x := 0; x < 40; x++ {
			img.Set(x, y, color.RGBA{R: 255, G: 0, B: 0, A: 255})
		}
	}
	e := newTestExtractor(t)
	vec, err := e.Extract(encodePNG(t, img))
	require.NoError(t, err)
	require.InDelta(t, 1.0, vec[31], 1e-6) // last red bin
	require.InDelta(t, 1.0, vec[32], 1e-6) // first green bin
	require.InDelta(t, 255.0, vec[96], 1e-3)
	require.InDelta(t, 0.0, vec[99], 1e-3)
	grad := vec[96+6+24 : 96+6+24+4]
	for _, g := range grad {
		require.InDelta(t, 0.0, g, 1e-6)
	}
}

func TestExtract_DecodeError(t *testing.T) {
	e := newTestExtractor(t)
	vec, err := e.Extract([]byte("definitely not an image"))
	require.ErrorIs(t, err, ErrImageDecode)
	require.Nil(t, vec)
}

// withDimensions rewrites the IHDR chunk of a PNG so it declares w x h.
func withDimensions(t *testing.T, data []byte, w, h uint32) []byte {
	t.Helper()
	out := append([]byte(nil), data...)
	require.Equal(t, "IHDR", string(out[12:16]))
	binary.BigEndian.PutUint32(out[16:20], w)
	binary.BigEndian.PutUint32(out[20:24], h)
	binary.BigEndian.PutUint32(out[29:33], crc32.ChecksumIEEE(out[12:29]))
	return out
}

func TestExtract_RejectsOversizeImage(t *testing.T) {
	e := newTestExtractor(t)
	huge := withDimensions(t, encodePNG(t, stripes(4, 4)), 60000, 60000)
	_, _, err := image.DecodeConfig(bytes.NewReader(huge))
	require.NoError(t, err)
	vec, err := e.Extract(huge)
	require.ErrorIs(t, err, ErrImageDecode)
	require.Contains(t, err.Error(), "exceeds")
	require.Nil(t, vec)

	small, err := NewExtractor(Config{Size: 16, HistogramBins: 8, CoarseBins: 4, MaxPixels: 400})
	require.NoError(t, err)
	_, err = small.Extract(encodePNG(t, stripes(20, 20)))
	require.NoError(t, err)
	_, err = small.Extract(encodePNG(t, stripes(21, 20)))
	require.ErrorIs(t, err, ErrImageDecode)
}

func TestExtract_DropsAlpha(t *testing.T) {
	solid := image.NewNRGBA(image.Rect(0, 0, 30, 30))
	clear := image.NewNRGBA(image.Rect(0, 0, 30, 30))
	for y := 0; y < 30; y++ {
		for x := 0; x < 30; x++ {
			solid.SetNRGBA(x, y, color.NRGBA{R: 40, G: 160, B: 220, A: 255})
			clear.SetNRGBA(x, y, color.NRGBA{R: 40, G: 160, B: 220, A: 0})
		}
	}
	e := newTestExtractor(t)
	a, err := e.Extract(encodePNG(t, solid))
	require.NoError(t, err)
	b, err := e.Extract(encodePNG(t, clear))
	require.NoError(t, err)
	require.Equal(t, a, b)
	require.InDelta(t, 160.0, b[97], 1e-3)
}

func TestFingerprint_DiffersByConfig(t *testing.T) {
	a, err := NewExtractor(DefaultConfig())
	require.NoError(t, err)
	b, err := NewExtractor(Config{Size: 224, HistogramBins: 16, CoarseBins: 8})
	require.NoError(t, err)
	require.NotEqual(t, a.Fingerprint(), b.Fingerprint())
	c, err := NewExtractor(Config{Size: 224, HistogramBins: 32, CoarseBins: 8, MaxPixels: 1000})
	require.NoError(t, err)
	require.Equal(t, a.Fingerprint(), c.Fingerprint())
	require.Equal(t, 3*16+6+24+8, b.Dim())
}

func TestNewExtractor_RejectsBadConfig(t *testing.T) {
	_, err := NewExtractor(Config{Size: 0, HistogramBins: 32, CoarseBins: 8})
	require.Error(t, err)
	_, err = NewExtractor(Config{Size: 224, HistogramBins: 0, CoarseBins: 8})
	require.Error(t, err)
}

type countingExtractor struct {
	Extractor
	calls int
}

func (c *countingExtractor) Extract(data []byte) (Vector, error) {
	c.calls++
	return c.Extractor.Extract(data)
}

func TestWrapLRU_CachesByContent(t *testing.T) {
	inner := &countingExtractor{Extractor: newTestExtractor(t)}
	cached := WrapLRU(inner, 8, time.Minute)
	data := encodePNG(t, stripes(64, 64))

	a, err := cached.Extract(data)
	require.NoError(t, err)
	a[0] = 42
	b, err := cached.Extract(data)
	require.NoError(t, err)
	require.Equal(t, 1, inner.calls)
	require.NotEqual(t, float32(42), b[0])
	require.Equal(t, inner.Fingerprint(), cached.Fingerprint())

	_, err = cached.Extract([]byte("bad"))
	require.Error(t, err)
	_, err = cached.Extract([]byte("bad"))
	require.Error(t, err)
	require.Equal(t, 3, inner.calls)
}
