// Package render turns controller state into the HTML page and serves the
// page's static assets.
package render

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io"
	"io/fs"

	"github.com/Masterminds/sprig/v3"
	"github.com/evyataryagoni/iptracker/internal/controller"
	"github.com/evyataryagoni/iptracker/internal/logger"
	"github.com/evyataryagoni/iptracker/internal/mapview"
)

// ErrRenderFailed wraps every template execution error
var ErrRenderFailed = errors.New("rendering failed")

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// Page is the data handed to the page template.
// Title falls back to the app name when empty.
type Page struct {
	Title       string
	State       controller.State
	Layout      Layout
	DefaultView mapview.View
	Tiles       mapview.TileLayer
}

// View returns the map view the page should open on
func (p Page) View() mapview.View {
	if p.State.Map != nil {
		return p.State.Map.View
	}
	return p.DefaultView
}

// ContainerID is the element id the map widget binds to
func (p Page) ContainerID() string {
	if p.State.Map != nil {
		return p.State.Map.Container
	}
	return controller.MapContainerID
}

// Renderer executes the embedded page template
type Renderer struct {
	page   *template.Template
	logger *logger.Logger
}

// NewRenderer parses the embedded templates
func NewRenderer(log *logger.Logger) (*Renderer, error) {
	if log == nil {
		log = logger.NewNop()
	}

	page, err := template.New("page.html").
		Funcs(sprig.FuncMap()).
		Funcs(template.FuncMap{
			"tileURL": fallbackTileURL,
		}).
		ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	return &Renderer{
		page:   page,
		logger: log.WithComponent("Renderer"),
	}, nil
}

// Render writes the page. Nothing is written if the template fails.
func (r *Renderer) Render(w io.Writer, p Page) error {
	if p.Layout.Breakpoint == "" {
		p.Layout = LayoutFor(Wide)
	}

	var buf bytes.Buffer
	if err := r.page.Execute(&buf, p); err != nil {
		r.logger.Error().Err(err).Msg("Failed to render page")
		return fmt.Errorf("%w: %w", ErrRenderFailed, err)
	}

	_, err := buf.WriteTo(w)
	return err
}

// Static returns the embedded assets rooted at the static directory
func Static() fs.FS {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		// the directory is embedded at build time
		panic(err)
	}
	return sub
}

// fallbackTileURL is the single tile shown when scripts are disabled
func fallbackTileURL(v mapview.View, tiles mapview.TileLayer) string {
	return tiles.URL(mapview.TileFor(v.Center, v.Zoom))
}
