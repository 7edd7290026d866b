package domain

import "fmt"

// Pos is a pixel offset on the canvas.
type Pos struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Transform renders the position as an SVG translate expression.
func (p Pos) Transform() string {
	return fmt.Sprintf("translate(%d,%d)", p.X, p.Y)
}

// Offset returns p shifted by (dx, dy).
func (p Pos) Offset(dx, dy int) Pos {
	return Pos{X: p.X + dx, Y: p.Y + dy}
}

// CellLeft returns the x offset of a swimlane column.
func CellLeft(col int) int {
	return col * SwimlaneColWidth
}

// CellTop returns the y offset of a swimlane row.
func CellTop(row int) int {
	return row * SwimlaneHeight
}

// CellPos is the top-left corner of a cell. Cursors occupy the whole cell.
func CellPos(row, col int) Pos {
	return Pos{X: CellLeft(col), Y: CellTop(row)}
}

func CellTransform(row, col int) string {
	return CellPos(row, col).Transform()
}

func NodeLeft(col int) int {
	return CellLeft(col) + NodeMarginX
}

func NodeTop(row int) int {
	return CellTop(row) + NodeMarginY
}

// NodePos is the top-left corner of the node box inside its cell.
func NodePos(row, col int) Pos {
	return Pos{X: NodeLeft(col), Y: NodeTop(row)}
}

func NodeTransform(row, col int) string {
	return NodePos(row, col).Transform()
}
