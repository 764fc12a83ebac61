package scene

import "github.com/Faultbox/charscene/pkg/math"

// Light is a hemispheric light: sky color from Direction, ground color opposite.
type Light struct {
	Name        string
	Direction   math.Vec3
	Intensity   float32
	Diffuse     math.Color3
	GroundColor math.Color3
}

// Environment describes the backdrop created by CreateDefaultEnvironment.
// It owns no meshes; the renderer paints it behind the scene.
type Environment struct {
	SkyboxSize  float32
	SkyColor    math.Color3
	GroundSize  float32
	GroundColor math.Color3
}

// CreateDefaultLight adds a hemispheric light pointing up, unless the scene
// already has a light.
func (s *Scene) CreateDefaultLight() *Light {
	if len(s.lights) > 0 {
		return s.lights[0]
	}
	l := &Light{
		Name:        "default light",
		Direction:   math.V3(0, 1, 0),
		Intensity:   1,
		Diffuse:     math.White,
		GroundColor: math.Color3{},
	}
	s.lights = append(s.lights, l)
	return l
}

// CreateDefaultEnvironment sets up the default backdrop. Calling it again
// returns the existing environment.
func (s *Scene) CreateDefaultEnvironment() *Environment {
	if s.env != nil {
		return s.env
	}
	s.env = &Environment{
		SkyboxSize:  20,
		SkyColor:    math.Color3{R: 0.2, G: 0.2, B: 0.3},
		GroundSize:  15,
		GroundColor: math.Color3{R: 0.2, G: 0.2, B: 0.3},
	}
	return s.env
}
