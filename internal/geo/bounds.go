package geo

import (
	"encoding/json"
	"fmt"
	"os"
)

// Region tests whether a coordinate lies inside the service area.
type Region interface {
	Contains(lat, lng float64) bool
}

// Box is an axis-aligned bounding region in degrees.
type Box struct {
	MinLat, MaxLat float64
	MinLng, MaxLng float64
}

// Contains reports whether the point lies inside the box, edges included.
func (b Box) Contains(lat, lng float64) bool {
	return lat >= b.MinLat && lat <= b.MaxLat && lng >= b.MinLng && lng <= b.MaxLng
}

// Valid reports whether the box spans a non-empty area in plausible ranges.
func (b Box) Valid() bool {
	return b.MinLat < b.MaxLat && b.MinLng < b.MaxLng &&
		b.MinLat >= -90 && b.MaxLat <= 90 && b.MinLng >= -180 && b.MaxLng <= 180
}

// Polygon is a set of outer rings, each a closed sequence of [lng, lat]
// vertices. A point inside any ring is inside the region.
type Polygon struct {
	rings [][][2]float64
	bbox  Box
}

// Contains uses ray casting against each ring, with a bounding-box
// rejection first. Holes are not modeled; city boundary exports do not
// carry exclaves that matter at station precision.
func (p *Polygon) Contains(lat, lng float64) bool {
	if !p.bbox.Contains(lat, lng) {
		return false
	}
	for _, ring := range p.rings {
		if ringContains(ring, lat, lng) {
			return true
		}
	}
	return false
}

func ringContains(ring [][2]float64, lat, lng float64) bool {
	inside := false
	n := len(ring)
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		xi, yi := ring[i][0], ring[i][1]
		xj, yj := ring[j][0], ring[j][1]
		if (yi > lat) != (yj > lat) &&
			lng < (xj-xi)*(lat-yi)/(yj-yi)+xi {
			inside = !inside
		}
	}
	return inside
}

// geoJSON covers the FeatureCollection shape of city boundary exports.
type geoJSON struct {
	Type     string `json:"type"`
	Features []struct {
		Geometry geoGeometry `json:"geometry"`
	} `json:"features"`
	Geometry *geoGeometry `json:"geometry"`
}

type geoGeometry struct {
	Type        string          `json:"type"`
	Coordinates json.RawMessage `json:"coordinates"`
}

// LoadGeoJSON reads a Polygon or MultiPolygon boundary from a GeoJSON file
// (plain geometry, Feature, or FeatureCollection).
func LoadGeoJSON(path string) (*Polygon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read boundary file: %w", err)
	}
	return ParseGeoJSON(data)
}

// ParseGeoJSON parses GeoJSON bytes into a Polygon region.
func ParseGeoJSON(data []byte) (*Polygon, error) {
	var doc geoJSON
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse boundary geojson: %w", err)
	}

	var geoms []geoGeometry
	switch {
	case len(doc.Features) > 0:
		for _, f := range doc.Features {
			geoms = append(geoms, f.Geometry)
		}
	case doc.Geometry != nil:
		geoms = append(geoms, *doc.Geometry)
	case doc.Type == "Polygon" || doc.Type == "MultiPolygon":
		var g geoGeometry
		if err := json.Unmarshal(data, &g); err != nil {
			return nil, fmt.Errorf("parse boundary geometry: %w", err)
		}
		geoms = append(geoms, g)
	default:
		return nil, fmt.Errorf("boundary geojson contains no polygon geometry")
	}

	p := &Polygon{}
	for _, g := range geoms {
		switch g.Type {
		case "Polygon":
			var rings [][][2]float64
			if err := json.Unmarshal(g.Coordinates, &rings); err != nil {
				return nil, fmt.Errorf("parse polygon coordinates: %w", err)
			}
			if len(rings) > 0 {
				p.rings = append(p.rings, rings[0]) // outer ring only
			}
		case "MultiPolygon":
			var polys [][][][2]float64
			if err := json.Unmarshal(g.Coordinates, &polys); err != nil {
				return nil, fmt.Errorf("parse multipolygon coordinates: %w", err)
			}
			for _, rings := range polys {
				if len(rings) > 0 {
					p.rings = append(p.rings, rings[0])
				}
			}
		default:
			return nil, fmt.Errorf("unsupported geometry type %q", g.Type)
		}
	}
	if len(p.rings) == 0 {
		return nil, fmt.Errorf("boundary geojson contains no rings")
	}

	p.bbox = Box{MinLat: 90, MaxLat: -90, MinLng: 180, MaxLng: -180}
	for _, ring := range p.rings {
		for _, v := range ring {
			lng, lat := v[0], v[1]
			if lat < p.bbox.MinLat {
				p.bbox.MinLat = lat
			}
			if lat > p.bbox.MaxLat {
				p.bbox.MaxLat = lat
			}
			if lng < p.bbox.MinLng {
				p.bbox.MinLng = lng
			}
			if lng > p.bbox.MaxLng {
				p.bbox.MaxLng = lng
			}
		}
	}
	return p, nil
}
