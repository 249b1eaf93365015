// Package vision reduces a garment photo to a fixed-length descriptor.
//
// Descriptor layout for a config with H histogram bins and C coarse bins:
//
//	[0, 3H)          per-channel histograms R, G, B (each sums to 1)
//	[3H, 3H+3)       per-channel mean R, G, B
//	[3H+3, 3H+6)     per-channel std R, G, B
//	[3H+6, 3H+6+3C)  coarse per-channel histograms R, G, B (each sums to 1)
//	+4               mean|dx|, mean|dy|, std(dx), std(dy) of the grayscale image
//	+2               grayscale mean, grayscale std
//	+2               width/max(w,h), height/max(w,h) of the source image
//
// Descriptors from extractors with different configs are not comparable;
// Fingerprint identifies the layout.
package vision

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"math"

	"golang.org/x/image/draw"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

var ErrImageDecode = errors.New("image decode failed")

type Vector []float32

// DefaultMaxPixels bounds the decoded area of an input image.
const DefaultMaxPixels = 89_478_485

type Config struct {
	Size          int
	HistogramBins int
	CoarseBins    int
	// MaxPixels rejects larger images before decoding. Zero means DefaultMaxPixels.
	MaxPixels     int64
}

func DefaultConfig() Config {
	return Config{Size: 224, HistogramBins: 32, CoarseBins: 8, MaxPixels: DefaultMaxPixels}
}

type Extractor interface {
	Extract(data []byte) (Vector, error)
	Dim() int
	Fingerprint() string
}

type extractor struct {
	cfg Config
}

func NewExtractor(cfg Config) (Extractor, error) {
	if cfg.Size <= 1 {
		return nil, fmt.Errorf("invalid canonical size %d", cfg.Size)
	}
	if cfg.HistogramBins <= 0 || cfg.HistogramBins > 256 {
		return nil, fmt.Errorf("invalid histogram bins %d", cfg.HistogramBins)
	}
	if cfg.CoarseBins <= 0 || cfg.CoarseBins > 256 {
		return nil, fmt.Errorf("invalid coarse bins %d", cfg.CoarseBins)
	}
	if cfg.MaxPixels <= 0 {
		cfg.MaxPixels = DefaultMaxPixels
	}
	return &extractor{cfg: cfg}, nil
}

func (e *extractor) Dim() int {
	return 3*e.cfg.HistogramBins + 6 + 3*e.cfg.CoarseBins + 4 + 2 + 2
}

func (e *extractor) Fingerprint() string {
	return fmt.Sprintf("rgb%d-h%d-c%d-v1", e.cfg.Size, e.cfg.HistogramBins, e.cfg.CoarseBins)
}

func (e *extractor) Extract(data []byte) (Vector, error) {
	hdr, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrImageDecode, err)
	}
	if hdr.Width <= 0 || hdr.Height <= 0 {
		return nil, fmt.Errorf("%w: empty image", ErrImageDecode)
	}
	if int64(hdr.Width)*int64(hdr.Height) > e.cfg.MaxPixels {
		return nil, fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrImageDecode, hdr.Width, hdr.Height, e.cfg.MaxPixels)
	}
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrImageDecode, err)
	}
	return e.ExtractImage(src)
}

// ExtractImage computes the descriptor of an already decoded image.
func (e *extractor) ExtractImage(src image.Image) (Vector, error) {
	b := src.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, fmt.Errorf("%w: empty image", ErrImageDecode)
	}
	canvas := e.canonical(src)
	out := make(Vector, 0, e.Dim())

	size := e.cfg.Size
	pixels := size * size
	hist := make([][]float64, 3)
	coarse := make([][]float64, 3)
	for ch := 0; ch < 3; ch++ {
		hist[ch] = make([]float64, e.cfg.HistogramBins)
		coarse[ch] = make([]float64, e.cfg.CoarseBins)
	}
	var sum, sumSq [3]float64
	gray := make([]int, pixels)
	for y := 0; y < size; y++ {
		row := canvas.Pix[y*canvas.Stride : y*canvas.Stride+size*4]
		for x := 0; x < size; x++ {
			px := row[x*4 : x*4+3]
			for ch := 0; ch < 3; ch++ {
				v := int(px[ch])
				hist[ch][v*e.cfg.HistogramBins/256]++
				coarse[ch][v*e.cfg.CoarseBins/256]++
				sum[ch] += float64(v)
				sumSq[ch] += float64(v) * float64(v)
			}
			gray[y*size+x] = luma(px[0], px[1], px[2])
		}
	}

	n := float64(pixels)
	for ch := 0; ch < 3; ch++ {
		out = appendNormalized(out, hist[ch], n)
	}
	for ch := 0; ch < 3; ch++ {
		out = append(out, float32(sum[ch]/n))
	}
	for ch := 0; ch < 3; ch++ {
		out = append(out, float32(populationStd(sum[ch], sumSq[ch], n)))
	}
	for ch := 0; ch < 3; ch++ {
		out = appendNormalized(out, coarse[ch], n)
	}

	dx, dy := gradientStats(gray, size)
	out = append(out, float32(dx.meanAbs), float32(dy.meanAbs), float32(dx.std), float32(dy.std))

	var gSum, gSumSq float64
	for _, v := range gray {
		gSum += float64(v)
		gSumSq += float64(v) * float64(v)
	}
	out = append(out, float32(gSum/n), float32(populationStd(gSum, gSumSq, n)))

	w, h := float64(b.Dx()), float64(b.Dy())
	longest := math.Max(w, h)
	out = append(out, float32(w/longest), float32(h/longest))
	return out, nil
}

// canonical scales src to Size x Size with alpha dropped. The stored color
// channels are kept as is, so a transparent pixel keeps its color.
func (e *extractor) canonical(src image.Image) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, e.cfg.Size, e.cfg.Size))
	var in image.Image = src
	if o, ok := src.(interface{ Opaque() bool }); !ok || !o.Opaque() {
		in = opaque{src}
	}
	draw.BiLinear.Scale(dst, dst.Bounds(), in, src.Bounds(), draw.Src, nil)
	return dst
}

// opaque views an image through its unpremultiplied color with full alpha.
type opaque struct {
	image.Image
}

func (o opaque) ColorModel() color.Model {
	return color.RGBAModel
}

func (o opaque) At(x, y int) color.Color {
	c := color.NRGBAModel.Convert(o.Image.At(x, y)).(color.NRGBA)
	return color.RGBA{R: c.R, G: c.G, B: c.B, A: 0xff}
}

func luma(r, g, b uint8) int {
	return (int(r)*19595 + int(g)*38470 + int(b)*7471 + 0x8000) >> 16
}

func appendNormalized(out Vector, counts []float64, total float64) Vector {
	for _, c := range counts {
		out = append(out, float32(c/total))
	}
	return out
}

func populationStd(sum, sumSq, n float64) float64 {
	mean := sum / n
	variance := sumSq/n - mean*mean
	if variance < 0 {
		variance = 0
	}
	return math.Sqrt(variance)
}

type diffStats struct {
	meanAbs float64
	std     float64
}

func gradientStats(gray []int, size int) (diffStats, diffStats) {
	var hAbs, hSum, hSq, vAbs, vSum, vSq float64
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			v := gray[y*size+x]
			if x+1 < size {
				d := float64(gray[y*size+x+1] - v)
				hAbs += math.Abs(d)
				hSum += d
				hSq += d * d
			}
			if y+1 < size {
				d := float64(gray[(y+1)*size+x] - v)
				vAbs += math.Abs(d)
				vSum += d
				vSq += d * d
			}
		}
	}
	n := float64(size * (size - 1))
	return diffStats{meanAbs: hAbs / n, std: populationStd(hSum, hSq, n)},
		diffStats{meanAbs: vAbs / n, std: populationStd(vSum, vSq, n)}
}
