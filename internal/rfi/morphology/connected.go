// Package morphology removes and describes connected groups of flags.
package morphology

import "github.com/banshee-data/rfi.flagger/internal/rfi/tfgrid"

type point struct{ x, y int }

var (
	neighbours4 = []point{{-1, 0}, {1, 0}, {0, -1}, {0, 1}}
	neighbours8 = []point{{-1, 0}, {1, 0}, {0, -1}, {0, 1}, {-1, -1}, {1, 1}, {1, -1}, {-1, 1}}
)

func neighbours(eightConnected bool) []point {
	if eightConnected {
		return neighbours8
	}
	return neighbours4
}

// FilterConnectedSamples unflags every maximal connected group of flags
// with fewer than minConnected members. Groups are 4-connected unless
// eightConnected is set. A minConnected of 1 or less leaves the mask as is.
func FilterConnectedSamples(mask *tfgrid.Mask, minConnected int, eightConnected bool) {
	if minConnected <= 1 {
		return
	}
	f := filter{
		mask:  mask,
		min:   minConnected,
		steps: neighbours(eightConnected),
	}
	for y := 0; y < mask.Height(); y++ {
		for x := 0; x < mask.Width(); x++ {
			if mask.Value(x, y) {
				f.visit(x, y)
			}
		}
	}
}

type filter struct {
	mask    *tfgrid.Mask
	min     int
	steps   []point
	queue   []point
	changed []point
}

// visit floods the group containing (x, y), unflagging as it goes. The
// search stops as soon as the group is known to be large enough, in which
// case every unflagged sample is restored.
func (f *filter) visit(x, y int) {
	w, h := f.mask.Width(), f.mask.Height()
	f.queue = append(f.queue[:0], point{x, y})
	f.changed = f.changed[:0]
	for head := 0; head < len(f.queue) && len(f.changed) < f.min; head++ {
		c := f.queue[head]
		if !f.mask.Value(c.x, c.y) {
			continue
		}
		f.mask.SetValue(c.x, c.y, false)
		f.changed = append(f.changed, c)
		for _, d := range f.steps {
			nx, ny := c.x+d.x, c.y+d.y
			if nx >= 0 && nx < w && ny >= 0 && ny < h && f.mask.Value(nx, ny) {
				f.queue = append(f.queue, point{nx, ny})
			}
		}
	}
	if len(f.changed) >= f.min {
		for _, c := range f.changed {
			f.mask.SetValue(c.x, c.y, true)
		}
	}
}

// Region summarises one connected group of flags.
type Region struct {
	Size int `json:"size"`
	MinX int `json:"min_x"`
	MinY int `json:"min_y"`
	MaxX int `json:"max_x"`
	MaxY int `json:"max_y"`
}

// Width is the horizontal extent of the bounding box.
func (r Region) Width() int { return r.MaxX - r.MinX + 1 }

// Height is the vertical extent of the bounding box.
func (r Region) Height() int { return r.MaxY - r.MinY + 1 }

// Regions labels every connected group of flags in scan order. The mask is
// not modified.
func Regions(mask *tfgrid.Mask, eightConnected bool) []Region {
	w, h := mask.Width(), mask.Height()
	steps := neighbours(eightConnected)
	visited := make([]bool, w*h)
	var regions []Region
	var queue []point
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if !mask.Value(x, y) || visited[y*w+x] {
				continue
			}
			r := Region{MinX: x, MinY: y, MaxX: x, MaxY: y}
			visited[y*w+x] = true
			queue = append(queue[:0], point{x, y})
			for head := 0; head < len(queue); head++ {
				c := queue[head]
				r.Size++
				r.MinX, r.MaxX = min(r.MinX, c.x), max(r.MaxX, c.x)
				r.MinY, r.MaxY = min(r.MinY, c.y), max(r.MaxY, c.y)
				for _, d := range steps {
					nx, ny := c.x+d.x, c.y+d.y
					if nx < 0 || nx >= w || ny < 0 || ny >= h {
						continue
					}
					if idx := ny*w + nx; mask.Value(nx, ny) && !visited[idx] {
						visited[idx] = true
						queue = append(queue, point{nx, ny})
					}
				}
			}
			regions = append(regions, r)
		}
	}
	return regions
}
