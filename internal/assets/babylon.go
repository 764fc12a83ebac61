package assets

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/Faultbox/charscene/internal/engine/scene"
	"github.com/Faultbox/charscene/pkg/math"
)

// ErrMalformed is returned for scene files that parse as JSON but describe
// inconsistent geometry or references.
var ErrMalformed = errors.New("malformed scene file")

// BabylonFile is the subset of the .babylon JSON format the importer reads.
type BabylonFile struct {
	Materials []BabylonMaterial `json:"materials"`
	Skeletons []BabylonSkeleton `json:"skeletons"`
	Meshes    []BabylonMesh     `json:"meshes"`
}

// BabylonMaterial is a standard material entry.
type BabylonMaterial struct {
	Name            string          `json:"name"`
	ID              string          `json:"id"`
	Diffuse         []float32       `json:"diffuse"`
	Ambient         []float32       `json:"ambient"`
	Specular        []float32       `json:"specular"`
	Alpha           *float32        `json:"alpha"`
	BackFaceCulling *bool           `json:"backFaceCulling"`
	DiffuseTexture  *BabylonTexture `json:"diffuseTexture"`
}

// BabylonTexture references an image next to the scene file.
type BabylonTexture struct {
	Name string `json:"name"`
}

// BabylonSkeleton is a bone hierarchy with named animation ranges.
type BabylonSkeleton struct {
	Name   string         `json:"name"`
	ID     int            `json:"id"`
	Bones  []BabylonBone  `json:"bones"`
	Ranges []BabylonRange `json:"ranges"`

	// Not part of the exporter output; when absent the frame rate of the
	// first bone animation is used.
	FramePerSecond float32 `json:"framePerSecond"`
}

// BabylonBone is one joint.
type BabylonBone struct {
	Name            string            `json:"name"`
	Index           int               `json:"index"`
	ParentBoneIndex int               `json:"parentBoneIndex"`
	Matrix          []float32         `json:"matrix"`
	Animation       *BabylonAnimation `json:"animation"`
}

// BabylonAnimation carries only the timing of a bone animation.
type BabylonAnimation struct {
	FramePerSecond float32 `json:"framePerSecond"`
}

// BabylonRange is a named frame interval.
type BabylonRange struct {
	Name string  `json:"name"`
	From float32 `json:"from"`
	To   float32 `json:"to"`
}

// BabylonMesh is a mesh entry with inline geometry.
type BabylonMesh struct {
	Name       string    `json:"name"`
	ID         string    `json:"id"`
	Position   []float32 `json:"position"`
	Rotation   []float32 `json:"rotation"`
	Scaling    []float32 `json:"scaling"`
	IsVisible  *bool     `json:"isVisible"`
	MaterialID string    `json:"materialId"`
	SkeletonID *int      `json:"skeletonId"`
	Positions  []float32 `json:"positions"`
	Normals    []float32 `json:"normals"`
	UVs        []float32 `json:"uvs"`
	Indices    []uint32  `json:"indices"`
}

// DecodeBabylon parses and validates a scene file.
func DecodeBabylon(data []byte) (*BabylonFile, error) {
	var f BabylonFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing scene file: %w", err)
	}
	if err := f.validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

func (f *BabylonFile) validate() error {
	materials := make(map[string]bool, len(f.Materials))
	for _, m := range f.Materials {
		materials[m.ID] = true
	}
	skeletons := make(map[int]bool, len(f.Skeletons))
	for _, s := range f.Skeletons {
		skeletons[s.ID] = true
		for _, r := range s.Ranges {
			if r.To < r.From {
				return fmt.Errorf("%w: skeleton %q range %q ends before it starts", ErrMalformed, s.Name, r.Name)
			}
		}
	}

	for _, m := range f.Meshes {
		if len(m.Positions)%3 != 0 {
			return fmt.Errorf("%w: mesh %q has %d position floats", ErrMalformed, m.Name, len(m.Positions))
		}
		if len(m.Normals) != 0 && len(m.Normals) != len(m.Positions) {
			return fmt.Errorf("%w: mesh %q normals do not match positions", ErrMalformed, m.Name)
		}
		if len(m.UVs) != 0 && len(m.UVs) != len(m.Positions)/3*2 {
			return fmt.Errorf("%w: mesh %q uvs do not match positions", ErrMalformed, m.Name)
		}
		verts := uint32(len(m.Positions) / 3)
		for _, idx := range m.Indices {
			if idx >= verts {
				return fmt.Errorf("%w: mesh %q index %d out of range", ErrMalformed, m.Name, idx)
			}
		}
		if m.MaterialID != "" && !materials[m.MaterialID] {
			return fmt.Errorf("%w: mesh %q references unknown material %q", ErrMalformed, m.Name, m.MaterialID)
		}
		if m.SkeletonID != nil && *m.SkeletonID >= 0 && !skeletons[*m.SkeletonID] {
			return fmt.Errorf("%w: mesh %q references unknown skeleton %d", ErrMalformed, m.Name, *m.SkeletonID)
		}
	}
	return nil
}

// ImportResult holds the objects an import added to the scene.
type ImportResult struct {
	Meshes    []*scene.Mesh
	Skeletons []*scene.Skeleton
	Materials []*scene.StandardMaterial

	scene *scene.Scene
}

// Dispose removes everything the import added from its scene.
func (r *ImportResult) Dispose() {
	if r == nil || r.scene == nil {
		return
	}
	for _, m := range r.Meshes {
		m.Dispose()
	}
	for _, sk := range r.Skeletons {
		r.scene.RemoveSkeleton(sk)
	}
	for _, m := range r.Materials {
		r.scene.RemoveMaterial(m)
	}
	r.scene = nil
}

// Instantiate creates the file's materials, skeletons and meshes in sc.
// basePath prefixes texture URLs. Must run on the engine thread.
func (f *BabylonFile) Instantiate(sc *scene.Scene, basePath string) *ImportResult {
	res := &ImportResult{scene: sc}

	materials := make(map[string]*scene.StandardMaterial, len(f.Materials))
	for _, bm := range f.Materials {
		m := scene.NewStandardMaterial(bm.Name, sc)
		if bm.ID != "" {
			m.ID = bm.ID
		}
		m.DiffuseColor = color3(bm.Diffuse, m.DiffuseColor)
		m.AmbientColor = color3(bm.Ambient, m.AmbientColor)
		m.SpecularColor = color3(bm.Specular, m.SpecularColor)
		if bm.Alpha != nil {
			m.Alpha = *bm.Alpha
		}
		if bm.BackFaceCulling != nil {
			m.BackFaceCulling = *bm.BackFaceCulling
		}
		if bm.DiffuseTexture != nil && bm.DiffuseTexture.Name != "" {
			m.DiffuseTexture = &scene.Texture{
				Name: bm.DiffuseTexture.Name,
				URL:  basePath + bm.DiffuseTexture.Name,
			}
		}
		materials[m.ID] = m
		res.Materials = append(res.Materials, m)
	}

	skeletons := make(map[int]*scene.Skeleton, len(f.Skeletons))
	for _, bs := range f.Skeletons {
		sk := scene.NewSkeleton(bs.Name, bs.ID, sc)
		if fps := bs.frameRate(); fps > 0 {
			sk.FrameRate = fps
		}
		for _, bb := range bs.Bones {
			sk.Bones = append(sk.Bones, &scene.Bone{
				Name:   bb.Name,
				Index:  bb.Index,
				Parent: bb.ParentBoneIndex,
				Matrix: mat4(bb.Matrix),
			})
		}
		for _, r := range bs.Ranges {
			sk.CreateAnimationRange(r.Name, r.From, r.To)
		}
		skeletons[bs.ID] = sk
		res.Skeletons = append(res.Skeletons, sk)
	}

	for i, bm := range f.Meshes {
		name := bm.Name
		if name == "" {
			name = "mesh" + strconv.Itoa(i)
		}
		m := scene.NewMesh(name, sc)
		if bm.ID != "" {
			m.ID = bm.ID
		}
		m.Position = math.Vec3FromSlice(bm.Position, m.Position)
		m.Rotation = math.Vec3FromSlice(bm.Rotation, m.Rotation)
		m.Scaling = math.Vec3FromSlice(bm.Scaling, m.Scaling)
		if bm.IsVisible != nil {
			m.IsVisible = *bm.IsVisible
		}
		m.Material = materials[bm.MaterialID]
		if bm.SkeletonID != nil {
			m.Skeleton = skeletons[*bm.SkeletonID]
		}
		if len(bm.Positions) > 0 {
			m.Geometry = &scene.Geometry{
				Positions: bm.Positions,
				Normals:   bm.Normals,
				UVs:       bm.UVs,
				Indices:   bm.Indices,
			}
		}
		res.Meshes = append(res.Meshes, m)
	}

	return res
}

func (s *BabylonSkeleton) frameRate() float32 {
	if s.FramePerSecond > 0 {
		return s.FramePerSecond
	}
	for _, b := range s.Bones {
		if b.Animation != nil && b.Animation.FramePerSecond > 0 {
			return b.Animation.FramePerSecond
		}
	}
	return 0
}

func color3(v []float32, fallback math.Color3) math.Color3 {
	if len(v) < 3 {
		return fallback
	}
	return math.Color3{R: v[0], G: v[1], B: v[2]}
}

func mat4(v []float32) math.Mat4 {
	if len(v) != 16 {
		return math.Identity()
	}
	var m math.Mat4
	copy(m[:], v)
	return m
}
