package compiler

import "github.com/roach88/figbridge/internal/ir"

// StatusArgs is the empty argument record of the preflight status command.
type StatusArgs struct{}

// CreatePageArgs is produced by "create page <name>".
type CreatePageArgs struct {
	Name string `json:"name"`
}

// SetCurrentPageArgs is produced by "page set <idOrName>".
type SetCurrentPageArgs struct {
	IDOrName string `json:"idOrName"`
}

// CreateFrameArgs is produced by "create frame [flags]".
// Optional numeric fields are pointers so that "absent" and "zero" stay
// distinguishable on the wire.
type CreateFrameArgs struct {
	Name         string   `json:"name"`
	X            int      `json:"x"`
	Y            int      `json:"y"`
	Width        int      `json:"width"`
	Height       int      `json:"height"`
	Fill         string   `json:"fill,omitempty"`
	Stroke       string   `json:"stroke,omitempty"`
	StrokeWeight *float64 `json:"strokeWeight,omitempty"`
	Radius       *float64 `json:"radius,omitempty"`
	Opacity      *float64 `json:"opacity,omitempty"`
	LayoutMode   string   `json:"layoutMode"`
	ItemSpacing  *int     `json:"itemSpacing,omitempty"`
	Padding      string   `json:"padding,omitempty"`
	ParentID     string   `json:"parentId,omitempty"`
}

// CreateTextArgs is produced by "create text [flags]".
type CreateTextArgs struct {
	Name       string   `json:"name"`
	X          int      `json:"x"`
	Y          int      `json:"y"`
	Text       string   `json:"text"`
	FontSize   *float64 `json:"fontSize,omitempty"`
	FontFamily string   `json:"fontFamily,omitempty"`
	FontStyle  string   `json:"fontStyle,omitempty"`
	Fill       string   `json:"fill,omitempty"`
	Opacity    *float64 `json:"opacity,omitempty"`
	ParentID   string   `json:"parentId,omitempty"`
}

// SetTextArgs is produced by "set text <id> <text>".
type SetTextArgs struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// SetFillArgs is produced by "set fill <id> <color>".
type SetFillArgs struct {
	ID    string `json:"id"`
	Color string `json:"color"`
}

// SetOpacityArgs is produced by "set opacity <id> <value>".
type SetOpacityArgs struct {
	ID    string  `json:"id"`
	Value float64 `json:"value"`
}

// SetLayoutArgs is produced by "set layout <id> [--mode][--gap][--padding]".
type SetLayoutArgs struct {
	ID      string `json:"id"`
	Mode    string `json:"mode,omitempty"`
	Gap     *int   `json:"gap,omitempty"`
	Padding string `json:"padding,omitempty"`
}

func (StatusArgs) Kind() ir.Kind         { return ir.KindStatus }
func (CreatePageArgs) Kind() ir.Kind     { return ir.KindCreatePage }
func (SetCurrentPageArgs) Kind() ir.Kind { return ir.KindSetCurrentPage }
func (CreateFrameArgs) Kind() ir.Kind    { return ir.KindCreateFrame }
func (CreateTextArgs) Kind() ir.Kind     { return ir.KindCreateText }
func (SetTextArgs) Kind() ir.Kind        { return ir.KindSetText }
func (SetFillArgs) Kind() ir.Kind        { return ir.KindSetFill }
func (SetOpacityArgs) Kind() ir.Kind     { return ir.KindSetOpacity }
func (SetLayoutArgs) Kind() ir.Kind      { return ir.KindSetLayout }
