package tile

import (
	"strconv"
	"strings"
)

const MAPBOX_ENDPOINT_TEMPLATE = "https://api.mapbox.com/v4/{tileset}/{z}/{x}/{y}.mvt?access_token={token}"

// Endpoint. url template of a tile server with {z}, {x}, {y} and {token} placeholders.
type Endpoint struct {
	template string
}

func NewEndpoint(template string) Endpoint {
	return Endpoint{template: template}
}

// NewMapboxEndpoint. mapbox vector tile api endpoint for the tileset.
func NewMapboxEndpoint(tileset string) Endpoint {
	return Endpoint{template: strings.Replace(MAPBOX_ENDPOINT_TEMPLATE, "{tileset}", tileset, 1)}
}

func (e Endpoint) GetTemplate() string {
	return e.template
}

func (e Endpoint) Resolve(t CanonicalTileID, token string) string {
	r := strings.NewReplacer(
		"{z}", strconv.Itoa(int(t.Z)),
		"{x}", strconv.FormatUint(uint64(t.X), 10),
		"{y}", strconv.FormatUint(uint64(t.Y), 10),
		"{token}", token,
	)
	return r.Replace(e.template)
}
