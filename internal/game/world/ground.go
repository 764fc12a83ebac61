// Package world builds the static parts of the scene the character walks on.
package world

import "github.com/Faultbox/charscene/internal/engine/scene"

// Ground dimensions and names.
const (
	GroundName     = "ground"
	GroundMaterial = "groundMat"
	GroundSize     = 128
)

// BuildGround adds an invisible, collidable 128x128 plane at the origin.
// The material alpha is 0 so only the environment ground shows, while the
// character still collides with this plane.
func BuildGround(sc *scene.Scene) *scene.Mesh {
	ground := scene.CreateGround(GroundName, scene.GroundOptions{
		Width:  GroundSize,
		Height: GroundSize,
	}, sc)
	ground.CheckCollisions = true

	mat := scene.NewStandardMaterial(GroundMaterial, sc)
	mat.Alpha = 0
	ground.Material = mat

	return ground
}
