package mesh

// FaceData holds the merged quads of one terrain material group as
// parallel arrays. Instances are pooled by the Mesher and reset per call.
type FaceData struct {
	Count    int
	MatIDs   []int
	Dirs     []int8
	Is       []int
	Js       []int
	Ks       []int
	Wids     []int
	Hts      []int
	PackedAO []uint8
}

// Quad is one entry of a FaceData.
type Quad struct {
	MatID    int
	Dir      int
	Origin   [3]int
	W, H     int
	PackedAO uint8
}

func (f *FaceData) reset() {
	f.Count = 0
	f.MatIDs = f.MatIDs[:0]
	f.Dirs = f.Dirs[:0]
	f.Is = f.Is[:0]
	f.Js = f.Js[:0]
	f.Ks = f.Ks[:0]
	f.Wids = f.Wids[:0]
	f.Hts = f.Hts[:0]
	f.PackedAO = f.PackedAO[:0]
}

func (f *FaceData) add(mat, dir, i, j, k, w, h int, ao uint8) {
	f.MatIDs = append(f.MatIDs, mat)
	f.Dirs = append(f.Dirs, int8(dir))
	f.Is = append(f.Is, i)
	f.Js = append(f.Js, j)
	f.Ks = append(f.Ks, k)
	f.Wids = append(f.Wids, w)
	f.Hts = append(f.Hts, h)
	f.PackedAO = append(f.PackedAO, ao)
	f.Count++
}

func (f *FaceData) Quad(n int) Quad {
	return Quad{
		MatID:    f.MatIDs[n],
		Dir:      int(f.Dirs[n]),
		Origin:   [3]int{f.Is[n], f.Js[n], f.Ks[n]},
		W:        f.Wids[n],
		H:        f.Hts[n],
		PackedAO: f.PackedAO[n],
	}
}

// FaceDataSet maps terrain material IDs to their quads.
type FaceDataSet map[int]*FaceData

// Quads counts quads across all groups.
func (s FaceDataSet) Quads() int {
	n := 0
	for _, f := range s {
		n += f.Count
	}
	return n
}

// AO corner values.
const (
	AOReverse = 0
	AOFlat    = 1
	AOPartial = 2
	AOCorner  = 3
)

// PackAO packs four 2-bit corner values. Corner a{u}{v} sits at the low (0)
// or high (1) end of the face's u and v axes.
func PackAO(a00, a01, a10, a11 int) uint8 {
	return uint8(a00 | a01<<2 | a10<<4 | a11<<6)
}

func UnpackAO(p uint8) (a00, a01, a10, a11 int) {
	return int(p & 3), int(p >> 2 & 3), int(p >> 4 & 3), int(p >> 6 & 3)
}

// FlatAO is the packed value of an unoccluded face.
var FlatAO = PackAO(AOFlat, AOFlat, AOFlat, AOFlat)
