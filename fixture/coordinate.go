// Package fixture supplies the externally-provided benchmark inputs:
// the tile coordinates to measure and the HTTP fetches for style
// documents and raw tile buffers.
package fixture

import (
	"fmt"
	"strconv"
	"strings"
)

// Coordinate identifies one map tile fixture. Column is the x tile
// index, Row the y index, in the usual z/x/y scheme.
type Coordinate struct {
	Zoom   int `json:"zoom"`
	Row    int `json:"row"`
	Column int `json:"column"`
}

// String renders the coordinate as "z/x/y".
func (c Coordinate) String() string {
	return fmt.Sprintf("%d/%d/%d", c.Zoom, c.Column, c.Row)
}

// ParseCoordinate parses a "z/x/y" string.
func ParseCoordinate(s string) (Coordinate, error) {
	parts := strings.Split(s, "/")
	if len(parts) != 3 {
		return Coordinate{}, fmt.Errorf("coordinate %q: want z/x/y", s)
	}

	nums := make([]int, 3)

	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return Coordinate{}, fmt.Errorf("coordinate %q: %w", s, err)
		}
		if n < 0 {
			return Coordinate{}, fmt.Errorf("coordinate %q: negative index", s)
		}
		nums[i] = n
	}

	return Coordinate{Zoom: nums[0], Column: nums[1], Row: nums[2]}, nil
}

// DefaultCoordinates returns the built-in fixture list: the same urban
// area viewed at a descending ladder of zoom levels, so one suite run
// covers dense and sparse tiles alike.
func DefaultCoordinates() []Coordinate {
	return []Coordinate{
		{Zoom: 15, Column: 9373, Row: 12535},
		{Zoom: 14, Column: 4686, Row: 6267},
		{Zoom: 13, Column: 2343, Row: 3133},
		{Zoom: 12, Column: 1171, Row: 1566},
		{Zoom: 8, Column: 73, Row: 97},
		{Zoom: 4, Column: 4, Row: 6},
		{Zoom: 0, Column: 0, Row: 0},
	}
}
