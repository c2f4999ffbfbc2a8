package reframe

import (
	"fmt"
	"math"

	"github.com/forPelevin/hlfinish/internal/types"
)

// TargetWindow returns the largest window of the given aspect ratio that fits
// the source, centered on both axes. Height is kept whole when possible.
func TargetWindow(src types.VideoGeometry, ratio float64) types.CropWindow {
	cropH := src.Height
	cropW := int(float64(cropH) * ratio)
	if cropW > src.Width {
		cropW = src.Width
		cropH = int(float64(cropW) / ratio)
	}
	return types.CropWindow{
		X:      (src.Width - cropW) / 2,
		Y:      max(0, (src.Height-cropH)/2),
		Width:  cropW,
		Height: cropH,
	}
}

func fullFrame(src types.VideoGeometry) types.CropWindow {
	return types.CropWindow{Width: src.Width, Height: src.Height}
}

// SampleInterval is the number of frames between two detections.
func SampleInterval(fps, seconds float64) int {
	n := int(math.Round(fps * seconds))
	if n < 1 {
		return 1
	}
	return n
}

// analysisSize scales the source down to at most maxWidth pixels wide with
// even dimensions, keeping the aspect ratio.
func analysisSize(src types.VideoGeometry, maxWidth int) (int, int) {
	w := src.Width
	if maxWidth > 0 && maxWidth < w {
		w = maxWidth
	}
	w -= w % 2
	h := int(math.Round(float64(src.Height) * float64(w) / float64(src.Width)))
	h -= h % 2
	return max(w, 2), max(h, 2)
}

// CropScaleFilter extracts a static rectangle and resizes it to the target.
func CropScaleFilter(w types.CropWindow, targetW, targetH int) string {
	return fmt.Sprintf("crop=%d:%d:%d:%d,scale=%d:%d", w.Width, w.Height, w.X, w.Y, targetW, targetH)
}

// ScalePadFilter fits the whole frame inside the target and pads the rest
// with black, centered.
func ScalePadFilter(targetW, targetH int) string {
	return fmt.Sprintf(
		"scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2:black",
		targetW, targetH, targetW, targetH,
	)
}
