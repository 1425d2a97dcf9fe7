package main

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"

	"github.com/gekko3d/voxworld/engine/blocks"
	"github.com/gekko3d/voxworld/engine/chunks"
	"github.com/go-gl/mathgl/mgl64"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	cellPixels   = 12
	headerPixels = 34
)

var (
	background = color.RGBA{16, 16, 24, 255}
	unloaded   = color.RGBA{40, 40, 52, 255}
	viewerMark = color.RGBA{230, 40, 40, 255}
)

type column struct {
	top    int // highest loaded chunk j
	bottom int
}

// renderChunkMap draws one cell per loaded chunk column, coloured by the
// top face of the highest voxel in the column centre. The viewer's column
// is outlined.
func renderChunkMap(w *chunks.World, viewer mgl64.Vec3) *image.RGBA {
	cols := make(map[[2]int]*column)
	minI, minK, maxI, maxK := math.MaxInt, math.MaxInt, math.MinInt, math.MinInt
	w.ForEachChunk(func(c *chunks.Chunk) bool {
		key := [2]int{c.ID.I, c.ID.K}
		col, ok := cols[key]
		if !ok {
			col = &column{top: c.ID.J, bottom: c.ID.J}
			cols[key] = col
		}
		col.top = max(col.top, c.ID.J)
		col.bottom = min(col.bottom, c.ID.J)
		minI, maxI = min(minI, c.ID.I), max(maxI, c.ID.I)
		minK, maxK = min(minK, c.ID.K), max(maxK, c.ID.K)
		return true
	})
	if len(cols) == 0 {
		minI, minK, maxI, maxK = 0, 0, 0, 0
	}

	// one pixel per column, scaled up afterwards
	small := image.NewRGBA(image.Rect(0, 0, maxI-minI+1, maxK-minK+1))
	draw.Draw(small, small.Bounds(), image.NewUniform(unloaded), image.Point{}, draw.Src)
	size := w.ChunkSize()
	for key, col := range cols {
		x, z := key[0]*size+size/2, key[1]*size+size/2
		small.Set(key[0]-minI, key[1]-minK, surfaceColor(w, x, z, col, size))
	}

	width := max(small.Bounds().Dx()*cellPixels, 320)
	img := image.NewRGBA(image.Rect(0, 0, width, headerPixels+small.Bounds().Dy()*cellPixels))
	draw.Draw(img, img.Bounds(), image.NewUniform(background), image.Point{}, draw.Src)
	mapRect := image.Rect(0, headerPixels, small.Bounds().Dx()*cellPixels, img.Bounds().Dy())
	draw.NearestNeighbor.Scale(img, mapRect, small, small.Bounds(), draw.Src, nil)

	vi, _, vk := w.ChunkIndex(int(math.Floor(viewer.X())), int(math.Floor(viewer.Y())), int(math.Floor(viewer.Z())))
	if vi >= minI && vi <= maxI && vk >= minK && vk <= maxK {
		x0, y0 := (vi-minI)*cellPixels, headerPixels+(vk-minK)*cellPixels
		outline(img, image.Rect(x0, y0, x0+cellPixels, y0+cellPixels), viewerMark)
	}

	label(img, 4, 14, fmt.Sprintf("world %q  chunks %d  size %d", w.WorldName(), w.ChunkCount(), size))
	label(img, 4, 28, fmt.Sprintf("i %d..%d  k %d..%d  viewer %.0f,%.0f,%.0f", minI, maxI, minK, maxK, viewer.X(), viewer.Y(), viewer.Z()))
	return img
}

func surfaceColor(w *chunks.World, x, z int, col *column, size int) color.RGBA {
	reg := w.Registry()
	for y := (col.top+1)*size - 1; y >= col.bottom*size; y-- {
		id := w.GetBlockID(x, y, z)
		if id == blocks.Air {
			continue
		}
		c := reg.Material(reg.FaceMaterial(id, 2)).Color
		return color.RGBA{uint8(c[0] * 255), uint8(c[1] * 255), uint8(c[2] * 255), 255}
	}
	return unloaded
}

func outline(img *image.RGBA, r image.Rectangle, c color.Color) {
	for x := r.Min.X; x < r.Max.X; x++ {
		img.Set(x, r.Min.Y, c)
		img.Set(x, r.Max.Y-1, c)
	}
	for y := r.Min.Y; y < r.Max.Y; y++ {
		img.Set(r.Min.X, y, c)
		img.Set(r.Max.X-1, y, c)
	}
}

func label(img *image.RGBA, x, y int, text string) {
	d := font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(color.White),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(text)
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return f.Close()
}
