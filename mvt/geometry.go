package mvt

import "fmt"

// Geometry commands in the packed command stream.
const (
	cmdMoveTo    = 1
	cmdLineTo    = 2
	cmdClosePath = 7
)

// decodeGeometry expands a packed command stream into lines of
// absolute tile coordinates. Deltas are zigzag-encoded and cumulative
// across commands.
func decodeGeometry(typ GeomType, cmds []uint32) ([][]Point, error) {
	var (
		lines   [][]Point
		current []Point
		x, y    int32
	)

	for i := 0; i < len(cmds); {
		cmd := cmds[i]
		i++

		op := cmd & 0x7
		count := int(cmd >> 3)

		switch op {
		case cmdMoveTo, cmdLineTo:
			if i+count*2 > len(cmds) {
				return nil, fmt.Errorf(
					"geometry: command %d wants %d params, %d left",
					op, count*2, len(cmds)-i,
				)
			}

			if op == cmdMoveTo && count > 0 {
				// Points pack all vertices into one MoveTo; keep them
				// in a single line in that case.
				if typ != GeomPoint && current != nil {
					lines = append(lines, current)
					current = nil
				}
			}

			for j := 0; j < count; j++ {
				x += int32(unzigzag(uint64(cmds[i])))
				y += int32(unzigzag(uint64(cmds[i+1])))
				i += 2

				current = append(current, Point{X: x, Y: y})
			}

		case cmdClosePath:
			if count != 1 {
				return nil, fmt.Errorf("geometry: ClosePath count %d", count)
			}

			if len(current) > 0 {
				// Close the ring explicitly.
				current = append(current, current[0])
				lines = append(lines, current)
				current = nil
			}

		default:
			return nil, fmt.Errorf("geometry: unknown command %d", op)
		}
	}

	if len(current) > 0 {
		lines = append(lines, current)
	}

	return lines, nil
}
