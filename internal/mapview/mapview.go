// Package mapview models the embedded map widget the page mirrors: one map
// bound to a container, a tile layer, a view (center + zoom) and a marker.
package mapview

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync/atomic"
)

// LookupZoom is the zoom level used when recentering on a lookup result
const LookupZoom = 13

// ErrAlreadyInitialized is returned when a container already holds a map
var ErrAlreadyInitialized = errors.New("map container is already initialized")

// LatLng is a WGS84 coordinate
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// View is a map viewpoint
type View struct {
	Center LatLng `json:"center"`
	Zoom   int    `json:"zoom"`
}

// DefaultView is where the map starts before any lookup
var DefaultView = View{Center: LatLng{Lat: 51.505, Lng: -0.09}, Zoom: 13}

// TileLayer describes the imagery source
type TileLayer struct {
	URLTemplate string `json:"url"` // with {z}, {x}, {y} placeholders
	MaxZoom     int    `json:"max_zoom"`
	Attribution string `json:"attribution"`
}

// OpenStreetMap is the default public tile server
var OpenStreetMap = TileLayer{
	URLTemplate: "https://tile.openstreetmap.org/{z}/{x}/{y}.png",
	MaxZoom:     19,
	Attribution: `&copy; <a href="http://www.openstreetmap.org/copyright">OpenStreetMap</a>`,
}

// Container is the element a map attaches to. A non-zero attachment id
// means a map already lives there.
type Container struct {
	ID         string
	attachment int64
}

// NewContainer creates an empty container with the given element id
func NewContainer(id string) *Container {
	return &Container{ID: id}
}

// Attached reports whether a map has been bound to the container
func (c *Container) Attached() bool {
	return c.attachment != 0
}

// AttachmentID returns the id of the bound map, 0 if none
func (c *Container) AttachmentID() int64 {
	return c.attachment
}

var lastMapID atomic.Int64

// Map is the live map handle. It is mutated in place, never recreated.
type Map struct {
	id        int64
	container *Container
	view      View
	marker    *LatLng
	tiles     TileLayer
}

// New binds a map to the container with an initial view and tile layer.
// Fails with ErrAlreadyInitialized if the container already has one.
func New(container *Container, view View, tiles TileLayer) (*Map, error) {
	if container.Attached() {
		return nil, fmt.Errorf("%w: #%s", ErrAlreadyInitialized, container.ID)
	}

	m := &Map{
		id:        lastMapID.Add(1),
		container: container,
		tiles:     tiles,
	}
	m.SetView(view.Center, view.Zoom)
	container.attachment = m.id

	return m, nil
}

// ID is unique per created map within the process
func (m *Map) ID() int64 { return m.id }

// Container returns the element the map is bound to
func (m *Map) Container() *Container { return m.container }

// View returns the current viewpoint
func (m *Map) View() View { return m.view }

// Tiles returns the tile layer
func (m *Map) Tiles() TileLayer { return m.tiles }

// Marker returns the marker position, nil when no marker is placed
func (m *Map) Marker() *LatLng {
	if m.marker == nil {
		return nil
	}
	p := *m.marker
	return &p
}

// SetView recenters the map. Zoom is clamped to the tile layer's range.
func (m *Map) SetView(center LatLng, zoom int) {
	m.view = View{Center: center, Zoom: clampZoom(zoom, m.tiles.MaxZoom)}
}

// PlaceMarker moves the single marker to p
func (m *Map) PlaceMarker(p LatLng) {
	m.marker = &p
}

func clampZoom(zoom, maxZoom int) int {
	if zoom < 0 {
		return 0
	}
	if maxZoom > 0 && zoom > maxZoom {
		return maxZoom
	}
	return zoom
}

// Tile addresses one slippy-map tile
type Tile struct {
	Z, X, Y int
}

// TileFor returns the tile containing p at the given zoom (Web Mercator)
func TileFor(p LatLng, zoom int) Tile {
	n := math.Exp2(float64(zoom))

	lat := math.Max(math.Min(p.Lat, 85.05112878), -85.05112878)
	latRad := lat * math.Pi / 180

	x := int(math.Floor((p.Lng + 180) / 360 * n))
	y := int(math.Floor((1 - math.Log(math.Tan(latRad)+1/math.Cos(latRad))/math.Pi) / 2 * n))

	last := int(n) - 1
	return Tile{Z: zoom, X: clampIndex(x, last), Y: clampIndex(y, last)}
}

func clampIndex(v, last int) int {
	if v < 0 {
		return 0
	}
	if v > last {
		return last
	}
	return v
}

// URL expands the layer template for a tile
func (l TileLayer) URL(t Tile) string {
	return strings.NewReplacer(
		"{z}", strconv.Itoa(t.Z),
		"{x}", strconv.Itoa(t.X),
		"{y}", strconv.Itoa(t.Y),
	).Replace(l.URLTemplate)
}
