package capture

import (
	"bytes"
	"encoding/base64"
	"errors"
	"image"
	"image/jpeg"
	"math"

	"golang.org/x/image/draw"

	"github.com/BaSui01/voiceweb/internal/pool"
)

const (
	MIMETypeJPEG  = "image/jpeg"
	dataURLPrefix = "data:" + MIMETypeJPEG + ";base64,"
)

// scratchBuffers holds JPEG scratch space across captures. Buffers that grew
// beyond 8 MiB are left to the GC.
var scratchBuffers = pool.NewBufferPool(8 << 20)

// EncodedImage is one JPEG frame produced under a Budget.
type EncodedImage struct {
	Data           []byte     `json:"-"`
	MIMEType       string     `json:"mime_type"`
	Width          int        `json:"width"`
	Height         int        `json:"height"`
	OriginalWidth  int        `json:"original_width"`
	OriginalHeight int        `json:"original_height"`
	Quality        float64    `json:"quality"`
	Size           int        `json:"size"`
	SizeMetric     SizeMetric `json:"size_metric"`
	Iterations     int        `json:"iterations"`
}

// DataURL renders the image as a self-describing data URL.
func (e *EncodedImage) DataURL() string {
	return dataURLPrefix + base64.StdEncoding.EncodeToString(e.Data)
}

// WithinBudget reports whether the image met the byte ceiling.
func (e *EncodedImage) WithinBudget(b Budget) bool {
	return e.Size <= b.TargetBytes
}

// TargetDimensions fits width x height inside maxWidth x maxHeight,
// preserving aspect ratio. It never upscales.
func TargetDimensions(width, height, maxWidth, maxHeight int) (int, int) {
	if width <= maxWidth && height <= maxHeight {
		return width, height
	}
	ratio := math.Min(float64(maxWidth)/float64(width), float64(maxHeight)/float64(height))
	w := clampDim(int(math.Round(float64(width)*ratio)), maxWidth)
	h := clampDim(int(math.Round(float64(height)*ratio)), maxHeight)
	return w, h
}

func clampDim(v, limit int) int {
	if v > limit {
		v = limit
	}
	if v < 1 {
		v = 1
	}
	return v
}

// Encode resamples img into the budget's bounding box once, then walks JPEG
// quality down from InitialQuality by QualityStep until the encoded size is
// within TargetBytes or QualityFloor is reached. Reaching the floor without
// meeting the ceiling is not an error.
func Encode(img image.Image, budget Budget) (*EncodedImage, error) {
	if img == nil {
		return nil, newError("encode", ErrEncodeFailed, errors.New("nil image"))
	}
	if err := budget.Validate(); err != nil {
		return nil, newError("encode", ErrEncodeFailed, err)
	}
	bounds := img.Bounds()
	if bounds.Empty() {
		return nil, newError("encode", ErrEncodeFailed, errors.New("empty image"))
	}

	origW, origH := bounds.Dx(), bounds.Dy()
	w, h := TargetDimensions(origW, origH, budget.MaxWidth, budget.MaxHeight)
	canvas := render(img, w, h)

	metric := budget.SizeMetric
	if metric == "" {
		metric = SizeMetricBinary
	}

	quality := percent(budget.InitialQuality)
	floor := percent(budget.QualityFloor)
	step := percent(budget.QualityStep)

	buf := scratchBuffers.Get()
	defer scratchBuffers.Put(buf)

	iterations := 0
	size, err := encodeJPEG(buf, canvas, quality, metric)
	if err != nil {
		return nil, newError("encode", ErrEncodeFailed, err)
	}
	iterations++

	for size > budget.TargetBytes && quality > floor {
		quality -= step
		if quality < floor {
			quality = floor
		}
		if size, err = encodeJPEG(buf, canvas, quality, metric); err != nil {
			return nil, newError("encode", ErrEncodeFailed, err)
		}
		iterations++
	}

	data := make([]byte, buf.Len())
	copy(data, buf.Bytes())
	return &EncodedImage{
		Data:           data,
		MIMEType:       MIMETypeJPEG,
		Width:          w,
		Height:         h,
		OriginalWidth:  origW,
		OriginalHeight: origH,
		Quality:        float64(quality) / 100,
		Size:           size,
		SizeMetric:     metric,
		Iterations:     iterations,
	}, nil
}

// render draws img into a w x h RGBA canvas.
func render(img image.Image, w, h int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	src := img.Bounds()
	if src.Dx() == w && src.Dy() == h {
		draw.Draw(dst, dst.Bounds(), img, src.Min, draw.Src)
		return dst
	}
	draw.BiLinear.Scale(dst, dst.Bounds(), img, src, draw.Src, nil)
	return dst
}

func encodeJPEG(buf *bytes.Buffer, img image.Image, quality int, metric SizeMetric) (int, error) {
	buf.Reset()
	if err := jpeg.Encode(buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return 0, err
	}
	return measure(buf.Len(), metric), nil
}

func measure(n int, metric SizeMetric) int {
	if metric == SizeMetricDataURL {
		return len(dataURLPrefix) + base64.StdEncoding.EncodedLen(n)
	}
	return n
}
