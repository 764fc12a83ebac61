// Package character wires the imported player asset into the scene: the
// mesh and skeleton set-up, the orbit camera that follows it and the
// binding to a locomotion controller.
package character

import (
	"errors"

	"github.com/Faultbox/charscene/internal/assets"
	"github.com/Faultbox/charscene/internal/engine/scene"
	"github.com/Faultbox/charscene/pkg/math"
)

var (
	// ErrNoPlayerMesh is returned when an import holds no mesh.
	ErrNoPlayerMesh = errors.New("import contains no player mesh")
	// ErrNoSkeleton is returned when an import holds no skeleton.
	ErrNoSkeleton = errors.New("import contains no skeleton")
)

// Player rig values.
const BlendingSpeed = 0.1

var (
	SpawnPosition   = math.V3(0, 12, 0)
	Ellipsoid       = math.V3(0.5, 1, 0.5)
	EllipsoidOffset = math.V3(0, 1, 0)
)

// PlayerFromImport picks the player mesh and skeleton: the first of each.
func PlayerFromImport(res *assets.ImportResult) (*scene.Mesh, *scene.Skeleton, error) {
	if res == nil || len(res.Meshes) == 0 {
		return nil, nil, ErrNoPlayerMesh
	}
	if len(res.Skeletons) == 0 {
		return nil, nil, ErrNoSkeleton
	}
	return res.Meshes[0], res.Skeletons[0], nil
}

// ConfigurePlayer prepares the imported mesh for the controller.
func ConfigurePlayer(mesh *scene.Mesh, skeleton *scene.Skeleton) {
	mesh.Skeleton = skeleton
	skeleton.EnableBlending(BlendingSpeed)

	if mat := mesh.Material; mat.HasDiffuseTexture() {
		mat.BackFaceCulling = true
		mat.AmbientColor = math.White
	}

	mesh.Position = SpawnPosition
	mesh.CheckCollisions = true
	mesh.Ellipsoid = Ellipsoid
	mesh.EllipsoidOffset = EllipsoidOffset
}
