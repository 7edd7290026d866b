package domain

// Canvas dimensions in pixels.
const (
	SwimlaneColWidth = 240
	SwimlaneHeight   = 200

	// A node is inset from its cell by a tenth of the cell on every side.
	NodeMarginX = SwimlaneColWidth / 10
	NodeMarginY = SwimlaneHeight / 10
	NodeWidth   = SwimlaneColWidth - (NodeMarginX * 2)
	NodeHeight  = SwimlaneHeight - (NodeMarginY * 2)

	NodeTextMargin = 5
	NodeTextX      = 10
	NodeTextY      = 20

	// HeaderHeight is the height of the fixed page header which can cover the canvas.
	HeaderHeight = 112
)
