package light

import (
	"github.com/chewxy/math32"

	"github.com/Carmen-Shannon/oxy-lighting/common"
)

// TileSize is the width and height in pixels of each screen-space tile used
// for tiled light culling. The screen is divided into a grid of tiles, each
// TileSize × TileSize pixels, and lights are assigned to the tiles they cover
// so the fragment shader only evaluates lights relevant to each tile.
const TileSize = 16

// MaxLightsPerTile is the maximum number of light indices stored per tile in
// the tile light index buffer. If more lights overlap a tile, excess
// lights are dropped.
const MaxLightsPerTile = 256

// TileCounts computes the number of tiles in each dimension for a given screen
// resolution and the configured TileSize.
//
// Parameters:
//   - screenWidth: screen width in pixels
//   - screenHeight: screen height in pixels
//
// Returns:
//   - tileCountX: number of tile columns
//   - tileCountY: number of tile rows
func TileCounts(screenWidth, screenHeight int) (tileCountX, tileCountY uint32) {
	tileCountX = (uint32(screenWidth) + TileSize - 1) / TileSize
	tileCountY = (uint32(screenHeight) + TileSize - 1) / TileSize
	return
}

// TileRect is an inclusive range of tiles.
type TileRect struct {
	MinX, MinY, MaxX, MaxY uint32
}

// TileRectForBox projects a world-space box into screen tiles. Boxes with a corner behind
// the camera conservatively cover the whole screen.
//
// Parameters:
//   - viewProj: the view-projection matrix of the view
//   - screenWidth: screen width in pixels
//   - screenHeight: screen height in pixels
//   - box: the world-space box
//
// Returns:
//   - TileRect: the covered tiles
//   - bool: false if the box is entirely off screen
func TileRectForBox(viewProj common.Mat4, screenWidth, screenHeight int, box common.BoundingBox) (TileRect, bool) {
	tx, ty := TileCounts(screenWidth, screenHeight)
	if tx == 0 || ty == 0 {
		return TileRect{}, false
	}
	full := TileRect{MaxX: tx - 1, MaxY: ty - 1}

	minX, minY := float32(1), float32(1)
	maxX, maxY := float32(-1), float32(-1)
	for _, c := range box.Corners() {
		p, w := common.TransformPoint(viewProj, c)
		if w <= 0 {
			return full, true
		}
		minX, maxX = math32.Min(minX, p[0]), math32.Max(maxX, p[0])
		minY, maxY = math32.Min(minY, p[1]), math32.Max(maxY, p[1])
	}
	if maxX < -1 || minX > 1 || maxY < -1 || minY > 1 {
		return TileRect{}, false
	}

	toTile := func(ndc float32, pixels int, count uint32, flip bool) uint32 {
		v := (common.Clamp(ndc, -1, 1)*0.5 + 0.5)
		if flip {
			v = 1 - v
		}
		t := uint32(v * float32(pixels) / TileSize)
		if t >= count {
			t = count - 1
		}
		return t
	}
	// NDC y points up, tile rows go down
	return TileRect{
		MinX: toTile(minX, screenWidth, tx, false),
		MaxX: toTile(maxX, screenWidth, tx, false),
		MinY: toTile(maxY, screenHeight, ty, true),
		MaxY: toTile(minY, screenHeight, ty, true),
	}, true
}
