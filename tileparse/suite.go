package tileparse

import (
	"fmt"
	"log/slog"

	"github.com/mapward/tilebench/bench"
	"github.com/mapward/tilebench/fixture"
)

// UnitSpec names one benchmark unit and constructs it on demand. The
// constructor returns a fresh unit each call so repeated runs never
// share setup state.
type UnitSpec struct {
	Name  string
	Coord fixture.Coordinate
	New   func() bench.Unit
}

// Suite is the ordered sequence of tile-parse benchmark units, one
// per fixture coordinate. An external runner instantiates each unit,
// drives it through a harness and aggregates the results.
type Suite struct {
	specs []UnitSpec
}

// NewSuite builds a Suite over coords. A nil coords uses the built-in
// fixture list.
func NewSuite(
	client *fixture.Client,
	coords []fixture.Coordinate,
	logger *slog.Logger,
) *Suite {
	if coords == nil {
		coords = fixture.DefaultCoordinates()
	}

	specs := make([]UnitSpec, 0, len(coords))

	for _, coord := range coords {
		specs = append(specs, UnitSpec{
			Name:  fmt.Sprintf("TileParse/%d-%d-%d", coord.Zoom, coord.Column, coord.Row),
			Coord: coord,
			New: func() bench.Unit {
				return NewUnit(coord, client, logger)
			},
		})
	}

	return &Suite{specs: specs}
}

// Units returns the suite's unit specs in fixture order.
func (s *Suite) Units() []UnitSpec { return s.specs }
