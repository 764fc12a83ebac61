package scene

import "github.com/Faultbox/charscene/pkg/math"

// Texture references an image used by a material.
type Texture struct {
	Name string
	URL  string
}

// StandardMaterial is a Blinn-Phong style material.
type StandardMaterial struct {
	Name string
	ID   string

	DiffuseColor  math.Color3
	AmbientColor  math.Color3
	SpecularColor math.Color3

	DiffuseTexture *Texture

	// Alpha is overall opacity; 0 hides the mesh but keeps it collidable.
	Alpha           float32
	BackFaceCulling bool
}

// NewStandardMaterial creates a material with default values and adds it to s.
func NewStandardMaterial(name string, s *Scene) *StandardMaterial {
	m := &StandardMaterial{
		Name:            name,
		ID:              name,
		DiffuseColor:    math.White,
		SpecularColor:   math.White,
		Alpha:           1,
		BackFaceCulling: true,
	}
	s.materials = append(s.materials, m)
	return m
}

// HasDiffuseTexture reports whether a diffuse texture is assigned.
func (m *StandardMaterial) HasDiffuseTexture() bool {
	return m != nil && m.DiffuseTexture != nil
}
