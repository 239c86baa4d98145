package main

import (
	"fmt"

	"github.com/chewxy/math32"
	"github.com/google/uuid"

	"github.com/Carmen-Shannon/oxy-lighting/common"
	"github.com/Carmen-Shannon/oxy-lighting/config"
	"github.com/Carmen-Shannon/oxy-lighting/engine/camera"
	"github.com/Carmen-Shannon/oxy-lighting/engine/light"
	"github.com/Carmen-Shannon/oxy-lighting/engine/lighting"
	"github.com/Carmen-Shannon/oxy-lighting/engine/renderer"
	"github.com/Carmen-Shannon/oxy-lighting/engine/scene"
)

const (
	benchSpacing     = 3.0
	benchLightRange  = 6.0
	benchOrbitRadius = 12.0
	benchOrbitSpeed  = 0.02 // radians per frame
	benchCameraSpeed = 0.005
)

// benchScene is the synthetic scene and the lights it animates.
type benchScene struct {
	scene   scene.Scene
	cameras []camera.OrbitCamera
	orbit   []light.Light
	phases  []float32
}

// newBenchScene lays the meshes out on a square grid around the origin, orbits the point and
// spot lights above it and looks at it from orbit cameras spread around the grid.
func newBenchScene(cfg config.BenchConfig) *benchScene {
	b := &benchScene{scene: scene.NewScene("lightbench", scene.WithActive(true))}

	side := int(math32.Ceil(math32.Sqrt(float32(max(cfg.Meshes, 1)))))
	half := float32(side-1) * benchSpacing / 2
	for i := range cfg.Meshes {
		x := float32(i%side)*benchSpacing - half
		z := float32(i/side)*benchSpacing - half
		bounds := common.BoundingBox{Min: common.Vec3{x - 1, -1, z - 1}, Max: common.Vec3{x + 1, 1, z + 1}}
		mesh := renderer.NewRenderMesh(fmt.Sprintf("mesh-%d", i), lighting.ForwardShadingEffect, bounds)
		// every fourth mesh ignores shadows
		mesh.IsShadowReceiver = i%4 != 3
		b.scene.AddMesh(mesh)
	}

	for i := range max(cfg.Views, 1) {
		cam := camera.NewOrbitCamera(
			camera.WithRadius(half+25),
			camera.WithAzimuth(2*math32.Pi*float32(i)/float32(max(cfg.Views, 1))),
			camera.WithElevation(0.6),
			camera.WithPerspective(60, 0.1, 500),
		)
		b.cameras = append(b.cameras, cam)
		b.scene.AddView(renderer.NewRenderView(fmt.Sprintf("view-%d", i), renderer.WithViewport(cfg.Width, cfg.Height)))
	}

	b.scene.AddLight(light.NewLight(light.LightTypeAmbient, light.WithID(benchLightID(0)), light.WithColor(0.05, 0.05, 0.08)))
	if cfg.Sun {
		opts := []light.LightBuilderOption{light.WithID(benchLightID(1)), light.WithDirection(-0.3, -1, -0.2), light.WithIntensity(2)}
		if cfg.ShadowedLights > 0 {
			shadow := light.DefaultShadow()
			shadow.CascadeCount = 4
			opts = append(opts, light.WithShadow(shadow))
		}
		b.scene.AddLight(light.NewLight(light.LightTypeDirectional, opts...))
	}

	shadowed := cfg.ShadowedLights
	if cfg.Sun {
		shadowed--
	}
	total := cfg.PointLights + cfg.SpotLights
	for i := range total {
		t := light.LightTypePoint
		opts := []light.LightBuilderOption{
			light.WithID(benchLightID(2 + i)),
			light.WithRange(benchLightRange),
			light.WithColor(float32(i%3)/2, float32((i+1)%3)/2, float32((i+2)%3)/2),
		}
		if i >= cfg.PointLights {
			t = light.LightTypeSpot
			opts = append(opts, light.WithDirection(0, -1, 0), light.WithSpotCone(20, 35))
		}
		if i < shadowed {
			opts = append(opts, light.WithShadow(light.DefaultShadow()))
		}
		l := light.NewLight(t, opts...)
		b.scene.AddLight(l)
		b.orbit = append(b.orbit, l)
		b.phases = append(b.phases, 2*math32.Pi*float32(i)/float32(total))
	}
	b.animate(0)
	return b
}

// animate moves the orbiting lights to their position at the given frame and turns the cameras.
func (b *benchScene) animate(frame int) {
	views := b.scene.Views()
	for i, cam := range b.cameras {
		if frame > 0 {
			cam.Orbit(benchCameraSpeed, 0)
		}
		cam.Apply(views[i])
	}
	for i, l := range b.orbit {
		angle := b.phases[i] + float32(frame)*benchOrbitSpeed
		l.SetPosition(common.Vec3{math32.Cos(angle) * benchOrbitRadius, 4, math32.Sin(angle) * benchOrbitRadius})
	}
}

// benchLightID returns a deterministic id so runs produce the same permutations.
func benchLightID(n int) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceOID, fmt.Appendf(nil, "lightbench-%d", n))
}
