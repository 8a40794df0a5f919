package refine

import (
	"sort"

	"github.com/medview/medview/elem"
	"github.com/medview/medview/mat"
)

// faceKey identifies a face by its sorted corner node indices. Faces have at
// most four corners; unused slots stay at -1 and sort first for every key,
// so keys of different corner counts never collide.
type faceKey [4]int32

func keyOf(corners []int32) faceKey {
	k := faceKey{-1, -1, -1, -1}
	copy(k[4-len(corners):], corners)
	sort.Slice(k[:], func(i, j int) bool { return k[i] < k[j] })
	return k
}

// ExternalFaces reports, for each element of a solid topology, which of its
// faces are on the boundary. A face is external when no other element row
// shares the same corner node set.
func ExternalFaces(ind *mat.IndexMatrix, et elem.Type) ([][]bool, error) {
	faces := et.Faces()
	counts := make(map[faceKey]int, ind.Rows()*len(faces))
	corners := make([]int32, 0, 4)

	for ei := 0; ei < ind.Rows(); ei++ {
		row, err := ind.Row(ei)
		if err != nil {
			return nil, err
		}
		for _, f := range faces {
			corners = corners[:0]
			for _, c := range f.Corners {
				corners = append(corners, row[c])
			}
			counts[keyOf(corners)]++
		}
	}

	out := make([][]bool, ind.Rows())
	for ei := 0; ei < ind.Rows(); ei++ {
		row, _ := ind.Row(ei)
		ext := make([]bool, len(faces))
		for fi, f := range faces {
			corners = corners[:0]
			for _, c := range f.Corners {
				corners = append(corners, row[c])
			}
			ext[fi] = counts[keyOf(corners)] == 1
		}
		out[ei] = ext
	}
	return out, nil
}
