package common

import "github.com/go-gl/mathgl/mgl32"

type Vec3 = mgl32.Vec3

type IT interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~float32 | ~float64
}
type IIndex interface {
	~int | ~int8 | ~int16 | ~int32 | ~uint | ~uint8 | ~uint16 | ~uint32
}

func GetVert3[T IT, T1 IIndex](verts []T, index T1) []T {
	i := int(index) * 3
	return verts[i : i+3]
}

func GetVert4[T IT, T1 IIndex](verts []T, index T1) []T {
	i := int(index) * 4
	return verts[i : i+4]
}

// GetVec3 reads the index-th packed (x, y, z) triple as a vector.
func GetVec3[T1 IIndex](verts []float32, index T1) Vec3 {
	v := GetVert3(verts, index)
	return Vec3{v[0], v[1], v[2]}
}
