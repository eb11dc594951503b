package controller

import (
	"context"
	"errors"
	"sync"

	"github.com/evyataryagoni/iptracker/internal/geoapi"
	"github.com/evyataryagoni/iptracker/internal/logger"
	"github.com/evyataryagoni/iptracker/internal/mapview"
	"github.com/evyataryagoni/iptracker/internal/metrics"
	"github.com/evyataryagoni/iptracker/internal/models"
)

// MapContainerID is the element id the map widget is bound to
const MapContainerID = "map"

// ErrSuperseded is returned when a lookup resolved after a newer one had already been applied
var ErrSuperseded = errors.New("lookup superseded by a newer submission")

// Options configures a controller. Zero values fall back to the defaults.
type Options struct {
	DefaultView mapview.View
	Tiles       mapview.TileLayer
	Metrics     *metrics.Metrics // optional
	Logger      *logger.Logger   // optional
}

// ViewController owns the state behind one page: the pending input text,
// the last lookup result and the map handle.
//
// The mutex is never held across the upstream call, so the page stays
// usable while a lookup is in flight.
type ViewController struct {
	client  geoapi.Client
	metrics *metrics.Metrics
	logger  *logger.Logger

	defaultView mapview.View
	tiles       mapview.TileLayer

	mu        sync.Mutex
	input     string
	result    models.LookupResult
	container *mapview.Container
	mapHandle *mapview.Map
	lastErr   error

	// submitted is the sequence number of the newest submission,
	// applied the sequence of the newest one whose outcome reached the state.
	submitted uint64
	applied   uint64
	pending   int
}

// New creates a controller showing placeholders and no map yet
func New(client geoapi.Client, opts Options) *ViewController {
	if opts.Logger == nil {
		opts.Logger = logger.NewDefault()
	}
	if opts.DefaultView == (mapview.View{}) {
		opts.DefaultView = mapview.DefaultView
	}
	if opts.Tiles.URLTemplate == "" {
		opts.Tiles = mapview.OpenStreetMap
	}

	return &ViewController{
		client:      client,
		metrics:     opts.Metrics,
		logger:      opts.Logger.WithComponent("ViewController"),
		defaultView: opts.DefaultView,
		tiles:       opts.Tiles,
		result:      models.NewPlaceholderResult(),
		container:   mapview.NewContainer(MapContainerID),
	}
}

// UpdateInputText sets the pending address. No validation, no other effect.
func (c *ViewController) UpdateInputText(text string) {
	c.mu.Lock()
	c.input = text
	c.mu.Unlock()
}

// SubmitLookup resolves the pending address through the lookup service.
//
// On success the result is replaced, the input is overwritten with the
// canonical address and the map (if any) is recentered on it.
// On failure nothing displayed changes; the error is logged, kept as
// LastError and returned.
func (c *ViewController) SubmitLookup(ctx context.Context) error {
	c.mu.Lock()
	address := c.input
	c.submitted++
	seq := c.submitted
	c.pending++
	c.mu.Unlock()

	c.logger.Debug().Str("address", address).Uint64("seq", seq).Msg("Submitting lookup")
	result, err := c.client.Lookup(ctx, address)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending--

	if seq < c.applied {
		c.logger.Debug().Uint64("seq", seq).Uint64("applied", c.applied).Msg("Discarding stale lookup response")
		if c.metrics != nil {
			c.metrics.LookupsSuperseded.Inc()
		}
		return ErrSuperseded
	}
	c.applied = seq

	if err != nil {
		kind := geoapi.ErrorKind(err)
		c.logger.Error().Err(err).Str("address", address).Str("error_type", kind).Msg("Error fetching IP data")
		if c.metrics != nil {
			c.metrics.LookupsTotal.WithLabelValues("error").Inc()
			c.metrics.LookupErrors.WithLabelValues(kind).Inc()
		}
		c.lastErr = err
		return err
	}

	c.result = *result
	c.input = result.IP
	c.lastErr = nil

	if c.mapHandle != nil {
		point := mapview.LatLng{Lat: result.Location.Latitude, Lng: result.Location.Longitude}
		c.mapHandle.SetView(point, mapview.LookupZoom)
		c.mapHandle.PlaceMarker(point)
	}

	c.logger.Info().
		Str("address", address).
		Str("ip", result.IP).
		Str("city", result.Location.City).
		Str("country", result.Location.Country).
		Msg("IP lookup successful")
	if c.metrics != nil {
		c.metrics.LookupsTotal.WithLabelValues("success").Inc()
	}

	return nil
}

// InitializeMapOnce creates the map handle on first use and reports whether
// it did. Later calls find the container attached and do nothing.
func (c *ViewController) InitializeMapOnce() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.container.Attached() {
		return false
	}

	m, err := mapview.New(c.container, c.defaultView, c.tiles)
	if err != nil {
		// only reachable if the container was attached behind our back
		c.logger.Warn().Err(err).Msg("Map initialization skipped")
		return false
	}
	c.mapHandle = m

	if c.metrics != nil {
		c.metrics.MapInitializations.Inc()
	}
	return true
}

// MapState is the serializable part of the map handle
type MapState struct {
	ID        int64             `json:"id"`
	Container string            `json:"container"`
	View      mapview.View      `json:"view"`
	Marker    *mapview.LatLng   `json:"marker,omitempty"`
	Tiles     mapview.TileLayer `json:"tiles"`
}

// State is a consistent copy of everything the page renders
type State struct {
	Input     string              `json:"input"`
	Result    models.LookupResult `json:"result"`
	Display   models.Display      `json:"display"`
	Map       *MapState           `json:"map,omitempty"`
	Pending   int                 `json:"pending"`
	LastError string              `json:"last_error,omitempty"`
}

// Snapshot copies the current state
func (c *ViewController) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := State{
		Input:   c.input,
		Result:  c.result,
		Display: c.result.Display(),
		Pending: c.pending,
	}
	if c.lastErr != nil {
		s.LastError = UserMessage(c.lastErr)
	}
	if c.mapHandle != nil {
		s.Map = &MapState{
			ID:        c.mapHandle.ID(),
			Container: c.container.ID,
			View:      c.mapHandle.View(),
			Marker:    c.mapHandle.Marker(),
			Tiles:     c.mapHandle.Tiles(),
		}
	}
	return s
}

// DefaultView is where a fresh map starts
func (c *ViewController) DefaultView() mapview.View {
	return c.defaultView
}

// Tiles is the tile layer new maps use
func (c *ViewController) Tiles() mapview.TileLayer {
	return c.tiles
}

// UserMessage turns a lookup error into text fit for the page.
// It never exposes upstream hosts or raw response bodies.
func UserMessage(err error) string {
	var statusErr *geoapi.StatusError
	switch {
	case errors.As(err, &statusErr) && statusErr.Message != "":
		return statusErr.Message
	case errors.As(err, &statusErr):
		return "The lookup service rejected the request."
	case errors.Is(err, context.DeadlineExceeded):
		return "The lookup service took too long to answer."
	case errors.Is(err, geoapi.ErrMalformedResponse):
		return "The lookup service sent an unexpected answer."
	default:
		return "The lookup service could not be reached."
	}
}
