package ocr

import "math"

// Region is a page sub-rectangle expressed as fractions of the page width and
// height, measured from the top-left corner.
type Region struct {
	Left, Top, Right, Bottom float64
}

// PrimaryCopyRegion is the top-left quadrant. Many W-2 layouts print four copies
// in a 2x2 grid; reading one quadrant keeps the text free of duplicates.
var PrimaryCopyRegion = Region{Left: 0, Top: 0, Right: 0.5, Bottom: 0.5}

// FullPage reads the whole page.
var FullPage = Region{Left: 0, Top: 0, Right: 1, Bottom: 1}

func (r Region) IsZero() bool { return r == Region{} }

// Box is a crop rectangle in device units (points at 72 DPI, pixels otherwise).
type Box struct {
	X, Y, W, H int
}

// Box converts r into a crop rectangle for a page rendered at dpi.
func (r Region) Box(page PageSize, dpi int) Box {
	w := page.Width * float64(dpi) / 72
	h := page.Height * float64(dpi) / 72
	x0 := int(math.Floor(r.Left * w))
	y0 := int(math.Floor(r.Top * h))
	x1 := int(math.Ceil(r.Right * w))
	y1 := int(math.Ceil(r.Bottom * h))
	return Box{X: x0, Y: y0, W: max(x1-x0, 1), H: max(y1-y0, 1)}
}
