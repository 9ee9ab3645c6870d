package geometry

import "context"

// TextSource provides the lines of text on a page in reading order
type TextSource interface {
	TextLines() ([]TextLine, error)
}

// DrawingSource provides the stroked line segments on a page
type DrawingSource interface {
	Drawings() ([]Segment, error)
}

// WidgetSource provides the native form widgets on a page
type WidgetSource interface {
	Widgets() ([]Widget, error)
}

// Page is everything the detection core needs from one page
type Page interface {
	TextSource
	DrawingSource
	WidgetSource
	Number() int
	Size() Size
}

// Document gives access to the pages of one source document
type Document interface {
	PageCount() int
	Page(ctx context.Context, number int) (Page, error)
	Close() error
}
