package character

import (
	gomath "math"

	"github.com/Faultbox/charscene/internal/engine/camera"
	"github.com/Faultbox/charscene/internal/engine/input"
	"github.com/Faultbox/charscene/internal/engine/scene"
	"github.com/Faultbox/charscene/pkg/math"
)

// CameraAlphaOffset is calibrated for the Vincent asset: subtracted from the
// negated mesh yaw it places the camera behind the model.
const CameraAlphaOffset = 4.69

// Orbit camera set-up.
const (
	CameraName             = "ArcRotateCamera"
	CameraBeta             = gomath.Pi / 2.5
	CameraRadius           = 5
	CameraLowerRadiusLimit = 2
	CameraUpperRadiusLimit = 20
	CameraWheelPrecision   = 15
)

// CameraTargetOffset lifts the orbit center from the feet to the chest.
var CameraTargetOffset = math.V3(0, 1.5, 0)

// AttachCamera creates the orbit camera behind player, makes it the scene's
// active camera and attaches it to src. Keyboard orbiting is disabled since
// the keys drive the character.
func AttachCamera(player *scene.Mesh, sc *scene.Scene, src input.Source) *camera.ArcRotateCamera {
	alpha := -player.Rotation.Y - CameraAlphaOffset
	target := player.Position.Add(CameraTargetOffset)

	cam := camera.NewArcRotateCamera(CameraName, alpha, CameraBeta, CameraRadius, target, sc)
	cam.WheelPrecision = CameraWheelPrecision
	cam.CheckCollisions = false

	cam.KeysLeft = nil
	cam.KeysRight = nil
	cam.KeysUp = nil
	cam.KeysDown = nil

	cam.LowerRadiusLimit = CameraLowerRadiusLimit
	cam.UpperRadiusLimit = CameraUpperRadiusLimit

	sc.SetActiveCamera(cam)
	cam.AttachControl(src, false)
	return cam
}
