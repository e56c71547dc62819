package detection

import (
	"image"
)

// ExternalBoundingBoxes returns the bounding box of every outermost
// foreground component of bin.
//
// Foreground is any non-zero sample. Components are 8-connected; background
// regions are 4-connected. The image is treated as if surrounded by a
// one-pixel background frame, so components touching the edge are outermost.
// A component nested inside a hole of another component is not reported.
//
// Boxes are returned in raster discovery order (top-to-bottom, then
// left-to-right by each component's first pixel), in coordinates relative
// to bin.Bounds().Min.
func ExternalBoundingBoxes(bin *image.Gray) []image.Rectangle {
	b := bin.Bounds()
	width, height := b.Dx(), b.Dy()
	if width == 0 || height == 0 {
		return nil
	}

	fg := make([]bool, width*height)
	for y := 0; y < height; y++ {
		row := bin.Pix[bin.PixOffset(b.Min.X, b.Min.Y+y):]
		for x := 0; x < width; x++ {
			fg[y*width+x] = row[x] != 0
		}
	}

	outer := markOuterBackground(fg, width, height)

	visited := make([]bool, width*height)
	boxes := make([]image.Rectangle, 0)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			idx := y*width + x
			if !fg[idx] || visited[idx] {
				continue
			}
			box, external := fillComponent(fg, outer, visited, x, y, width, height)
			if external {
				boxes = append(boxes, box)
			}
		}
	}
	return boxes
}

// markOuterBackground flags every background pixel 4-connected to the
// virtual frame around the image.
func markOuterBackground(fg []bool, width, height int) []bool {
	outer := make([]bool, width*height)
	stack := make([]image.Point, 0, 2*(width+height))

	seed := func(x, y int) {
		idx := y*width + x
		if !fg[idx] && !outer[idx] {
			outer[idx] = true
			stack = append(stack, image.Point{X: x, Y: y})
		}
	}
	for x := 0; x < width; x++ {
		seed(x, 0)
		seed(x, height-1)
	}
	for y := 0; y < height; y++ {
		seed(0, y)
		seed(width-1, y)
	}

	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, d := range neighbours4 {
			nx, ny := p.X+d.X, p.Y+d.Y
			if nx < 0 || ny < 0 || nx >= width || ny >= height {
				continue
			}
			seed(nx, ny)
		}
	}
	return outer
}

// fillComponent flood-fills the 8-connected foreground component containing
// (startX, startY), returning its bounding box and whether it borders the
// outer background or the image edge.
func fillComponent(fg, outer, visited []bool, startX, startY, width, height int) (image.Rectangle, bool) {
	minX, minY, maxX, maxY := startX, startY, startX, startY
	external := false

	visited[startY*width+startX] = true
	stack := []image.Point{{X: startX, Y: startY}}

	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		minX, maxX = min(minX, p.X), max(maxX, p.X)
		minY, maxY = min(minY, p.Y), max(maxY, p.Y)

		if !external {
			if p.X == 0 || p.Y == 0 || p.X == width-1 || p.Y == height-1 {
				external = true
			} else {
				for _, d := range neighbours4 {
					if outer[(p.Y+d.Y)*width+p.X+d.X] {
						external = true
						break
					}
				}
			}
		}

		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				nx, ny := p.X+dx, p.Y+dy
				if nx < 0 || ny < 0 || nx >= width || ny >= height {
					continue
				}
				n := ny*width + nx
				if fg[n] && !visited[n] {
					visited[n] = true
					stack = append(stack, image.Point{X: nx, Y: ny})
				}
			}
		}
	}

	return image.Rect(minX, minY, maxX+1, maxY+1), external
}

var neighbours4 = [4]image.Point{{X: 1}, {X: -1}, {Y: 1}, {Y: -1}}
