package camera

import (
	"sync"

	"github.com/chewxy/math32"

	"github.com/Carmen-Shannon/oxy-lighting/common"
	"github.com/Carmen-Shannon/oxy-lighting/engine/renderer"
)

// OrbitCamera places a camera on a sphere around a target and writes its matrices into
// render views. Angles are in radians; an azimuth of 0 looks from +Z.
type OrbitCamera interface {
	// Position returns the camera position derived from the target and the spherical coordinates.
	//
	// Returns:
	//   - common.Vec3: the world position
	Position() common.Vec3

	// Target returns the point the camera looks at.
	Target() common.Vec3

	// SetTarget moves the orbit center.
	//
	// Parameters:
	//   - target: the new center
	SetTarget(target common.Vec3)

	// Orbit rotates the camera around the target. Elevation is clamped to the configured bounds.
	//
	// Parameters:
	//   - dAzimuth: the horizontal rotation
	//   - dElevation: the vertical rotation
	Orbit(dAzimuth, dElevation float32)

	// Zoom moves the camera toward (positive) or away from the target, clamped to the radius bounds.
	//
	// Parameters:
	//   - delta: the distance change
	Zoom(delta float32)

	Radius() float32
	Azimuth() float32
	Elevation() float32

	// Apply writes the view and projection matrices into view, using its viewport for the aspect ratio.
	//
	// Parameters:
	//   - view: the render view to update
	Apply(view *renderer.RenderView)
}

type orbitCameraImpl struct {
	mu *sync.Mutex

	position common.Vec3
	target   common.Vec3

	radius    float32
	azimuth   float32
	elevation float32

	minRadius    float32
	maxRadius    float32
	minElevation float32
	maxElevation float32

	fovY float32 // radians
	near float32
	far  float32
}

var _ OrbitCamera = &orbitCameraImpl{}

// NewOrbitCamera creates an orbit camera looking at the origin from 50 units away.
//
// Parameters:
//   - options: functional options to configure the camera
//
// Returns:
//   - OrbitCamera: the newly created camera
func NewOrbitCamera(options ...OrbitCameraOption) OrbitCamera {
	c := &orbitCameraImpl{
		mu:           &sync.Mutex{},
		radius:       50,
		elevation:    math32.Pi / 6,
		minRadius:    1,
		maxRadius:    2000,
		minElevation: -math32.Pi/2 + 0.05,
		maxElevation: math32.Pi/2 - 0.05,
		fovY:         60 * math32.Pi / 180,
		near:         0.1,
		far:          1000,
	}
	for _, opt := range options {
		opt(c)
	}
	c.radius = clamp(c.radius, c.minRadius, c.maxRadius)
	c.elevation = clamp(c.elevation, c.minElevation, c.maxElevation)
	c.updatePosition()
	return c
}

func clamp(v, lo, hi float32) float32 {
	return max(lo, min(v, hi))
}

// updatePosition recomputes the position from the spherical coordinates. Caller must hold the mutex.
func (c *orbitCameraImpl) updatePosition() {
	sinElev, cosElev := math32.Sincos(c.elevation)
	sinAzim, cosAzim := math32.Sincos(c.azimuth)
	c.position = c.target.Add(common.Vec3{
		c.radius * cosElev * sinAzim,
		c.radius * sinElev,
		c.radius * cosElev * cosAzim,
	})
}

func (c *orbitCameraImpl) Position() common.Vec3 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.position
}

func (c *orbitCameraImpl) Target() common.Vec3 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.target
}

func (c *orbitCameraImpl) SetTarget(target common.Vec3) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.target = target
	c.updatePosition()
}

func (c *orbitCameraImpl) Orbit(dAzimuth, dElevation float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.azimuth = math32.Mod(c.azimuth+dAzimuth, 2*math32.Pi)
	c.elevation = clamp(c.elevation+dElevation, c.minElevation, c.maxElevation)
	c.updatePosition()
}

func (c *orbitCameraImpl) Zoom(delta float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.radius = clamp(c.radius-delta, c.minRadius, c.maxRadius)
	c.updatePosition()
}

func (c *orbitCameraImpl) Radius() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.radius
}

func (c *orbitCameraImpl) Azimuth() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.azimuth
}

func (c *orbitCameraImpl) Elevation() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.elevation
}

func (c *orbitCameraImpl) Apply(view *renderer.RenderView) {
	c.mu.Lock()
	defer c.mu.Unlock()
	aspect := float32(1)
	if view.Height > 0 {
		aspect = float32(view.Width) / float32(view.Height)
	}
	view.SetCamera(
		common.LookAt(c.position, c.target, common.Vec3{0, 1, 0}),
		common.Perspective(c.fovY, aspect, c.near, c.far),
		c.position,
	)
}
