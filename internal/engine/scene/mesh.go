package scene

import (
	gomath "math"

	"github.com/Faultbox/charscene/pkg/math"
)

// Geometry holds indexed triangle data in the scene's coordinate space.
type Geometry struct {
	Positions []float32 // xyz triplets
	Normals   []float32 // xyz triplets, may be empty
	UVs       []float32 // uv pairs, may be empty
	Indices   []uint32
}

// HasUVs reports whether every vertex has texture coordinates.
func (g *Geometry) HasUVs() bool {
	return g != nil && len(g.UVs) > 0 && len(g.UVs)/2 == len(g.Positions)/3
}

// VertexCount returns the number of vertices.
func (g *Geometry) VertexCount() int {
	if g == nil {
		return 0
	}
	return len(g.Positions) / 3
}

// Mesh is a renderable, optionally collidable, scene entity.
type Mesh struct {
	Name string
	ID   string

	Position math.Vec3
	Rotation math.Vec3 // Euler angles, radians
	Scaling  math.Vec3

	IsVisible       bool
	CheckCollisions bool

	// Collision proxy: half-extents and offset from Position.
	Ellipsoid       math.Vec3
	EllipsoidOffset math.Vec3

	Material *StandardMaterial
	Skeleton *Skeleton
	Geometry *Geometry

	ground *groundShape
	scene  *Scene
}

type groundShape struct {
	width, height float32
}

// NewMesh creates an empty mesh and adds it to s.
func NewMesh(name string, s *Scene) *Mesh {
	m := &Mesh{
		Name:      name,
		ID:        name,
		Scaling:   math.V3(1, 1, 1),
		IsVisible: true,
		Ellipsoid: math.V3(0.5, 1, 0.5),
		scene:     s,
	}
	s.addMesh(m)
	return m
}

// Scene returns the owning scene.
func (m *Mesh) Scene() *Scene {
	return m.scene
}

// WorldMatrix returns the mesh transform.
func (m *Mesh) WorldMatrix() math.Mat4 {
	return math.Compose(m.Position, m.Rotation, m.Scaling)
}

// IsGround reports whether the mesh was built by CreateGround.
func (m *Mesh) IsGround() bool {
	return m.ground != nil
}

// GroundSize returns width and height of a ground mesh; zero otherwise.
func (m *Mesh) GroundSize() (width, height float32) {
	if m.ground == nil {
		return 0, 0
	}
	return m.ground.width, m.ground.height
}

// Dispose removes the mesh from its scene.
func (m *Mesh) Dispose() {
	if m.scene != nil {
		m.scene.RemoveMesh(m)
		m.scene = nil
	}
}

// GroundOptions configures CreateGround.
type GroundOptions struct {
	Width  float32
	Height float32
}

// CreateGround builds a flat plane on XZ centered at the origin.
func CreateGround(name string, opts GroundOptions, s *Scene) *Mesh {
	if opts.Width <= 0 {
		opts.Width = 1
	}
	if opts.Height <= 0 {
		opts.Height = 1
	}

	m := NewMesh(name, s)
	m.ground = &groundShape{width: opts.Width, height: opts.Height}

	hw, hh := opts.Width/2, opts.Height/2
	m.Geometry = &Geometry{
		Positions: []float32{
			-hw, 0, hh,
			hw, 0, hh,
			hw, 0, -hh,
			-hw, 0, -hh,
		},
		Normals: []float32{
			0, 1, 0,
			0, 1, 0,
			0, 1, 0,
			0, 1, 0,
		},
		UVs:     []float32{0, 1, 1, 1, 1, 0, 0, 0},
		Indices: []uint32{0, 1, 2, 0, 2, 3},
	}
	return m
}

// GroundHit is the result of a ground query.
type GroundHit struct {
	Mesh   *Mesh
	Height float32
	Normal math.Vec3
}

// SlopeDegrees returns the incline of the hit surface.
func (h GroundHit) SlopeDegrees() float32 {
	n := h.Normal.Normalize()
	return math.Rad2Deg(float32(gomath.Acos(float64(math.Clamp(n.Y, -1, 1)))))
}

// GroundBelow returns the highest collidable ground surface under (x, z)
// whose height is at most maxHeight. exclude is skipped.
func (s *Scene) GroundBelow(x, z, maxHeight float32, exclude *Mesh) (GroundHit, bool) {
	var best GroundHit
	found := false

	for _, m := range s.meshes {
		if m == exclude || !m.CheckCollisions || m.ground == nil {
			continue
		}
		h, normal, ok := m.groundSample(x, z)
		if !ok || h > maxHeight {
			continue
		}
		if !found || h > best.Height {
			best = GroundHit{Mesh: m, Height: h, Normal: normal}
			found = true
		}
	}
	return best, found
}

// groundSample intersects a vertical line with the (possibly rotated) plane.
func (m *Mesh) groundSample(x, z float32) (float32, math.Vec3, bool) {
	world := m.WorldMatrix()
	origin := world.TransformVec3(math.Vec3{})
	normal := world.TransformVec3(math.V3(0, 1, 0)).Sub(origin).Normalize()
	if normal.Y <= 1e-4 {
		return 0, normal, false
	}

	// Plane: normal . (p - origin) = 0, solved for p.Y.
	y := origin.Y - (normal.X*(x-origin.X)+normal.Z*(z-origin.Z))/normal.Y

	// Bounds check in the plane's local frame.
	local := math.RotateY(-m.Rotation.Y).TransformVec3(math.V3(x-origin.X, 0, z-origin.Z))
	hw := m.ground.width * m.Scaling.X / 2
	hh := m.ground.height * m.Scaling.Z / 2
	if local.X < -hw || local.X > hw || local.Z < -hh || local.Z > hh {
		return 0, normal, false
	}
	return y, normal, true
}
