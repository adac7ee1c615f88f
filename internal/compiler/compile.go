package compiler

import (
	"strings"

	"github.com/roach88/figbridge/internal/ir"
)

// LayoutModes are the accepted values of --layout and --mode.
var LayoutModes = []string{"NONE", "HORIZONTAL", "VERTICAL", "GRID"}

const (
	defaultFrameName  = "Frame"
	defaultTextName   = "Text"
	defaultWidth      = 100
	defaultHeight     = 100
	defaultLayoutMode = "NONE"
)

// rule maps one verb pair to a Kind and its argument parser.
// parse receives the full token list (for error reporting) and the tokens
// after the verb pair.
type rule struct {
	verb  string
	noun  string
	kind  ir.Kind
	usage string
	parse func(tokens, rest []string) (ir.Args, error)
}

// rules is the closed set of recognized verb pairs, in documentation order.
var rules = []rule{
	{"create", "page", ir.KindCreatePage, "create page <name>", parseCreatePage},
	{"page", "set", ir.KindSetCurrentPage, "page set <idOrName>", parseSetCurrentPage},
	{"create", "frame", ir.KindCreateFrame, "create frame [--name --x --y --width --height --fill --stroke --stroke-weight --radius --opacity --layout --gap --padding --parent]", parseCreateFrame},
	{"create", "text", ir.KindCreateText, "create text [--name --x --y --text --font-size --font-family --font-style --fill --opacity --parent]", parseCreateText},
	{"set", "text", ir.KindSetText, "set text <id> <text>", parseSetText},
	{"set", "fill", ir.KindSetFill, "set fill <id> <color>", parseSetFill},
	{"set", "opacity", ir.KindSetOpacity, "set opacity <id> <value>", parseSetOpacity},
	{"set", "layout", ir.KindSetLayout, "set layout <id> [--mode --gap --padding]", parseSetLayout},
}

// Compile maps one operation's tokens to a command kind and typed arguments.
// It is pure: the same tokens always produce the same result.
func Compile(tokens []string) (ir.Kind, ir.Args, error) {
	if len(tokens) < 2 {
		return "", nil, invalidArgument(tokens, "run", "need at least a verb pair, got %d token(s)", len(tokens))
	}
	for _, r := range rules {
		if tokens[0] != r.verb || tokens[1] != r.noun {
			continue
		}
		args, err := r.parse(tokens, tokens[2:])
		if err != nil {
			return "", nil, err
		}
		return r.kind, args, nil
	}
	return "", nil, unsupported(tokens[:2])
}

// Supported returns the verb pairs Compile recognizes.
func Supported() []string {
	out := make([]string, len(rules))
	for i, r := range rules {
		out[i] = r.verb + " " + r.noun
	}
	return out
}

// Usage returns one usage line per recognized verb pair.
func Usage() []string {
	out := make([]string, len(rules))
	for i, r := range rules {
		out[i] = r.usage
	}
	return out
}

func positional(tokens, rest []string, n int, names ...string) ([]string, error) {
	if len(rest) < n {
		return nil, invalidArgument(tokens, names[len(rest)], "%s %s requires <%s>",
			tokens[0], tokens[1], strings.Join(names, "> <"))
	}
	return rest[:n], nil
}

func parseCreatePage(tokens, rest []string) (ir.Args, error) {
	p, err := positional(tokens, rest, 1, "name")
	if err != nil {
		return nil, err
	}
	return CreatePageArgs{Name: p[0]}, nil
}

func parseSetCurrentPage(tokens, rest []string) (ir.Args, error) {
	p, err := positional(tokens, rest, 1, "idOrName")
	if err != nil {
		return nil, err
	}
	return SetCurrentPageArgs{IDOrName: p[0]}, nil
}

func parseCreateFrame(tokens, rest []string) (ir.Args, error) {
	f := newFlagSet(tokens, rest)
	args := CreateFrameArgs{
		Name:     f.str("name", defaultFrameName),
		Fill:     f.str("fill", ""),
		Stroke:   f.str("stroke", ""),
		ParentID: f.str("parent", ""),
	}
	if f.has("padding") {
		args.Padding = strings.TrimSpace(f.str("padding", ""))
	}

	var err error
	if args.X, err = f.integer("x", 0); err != nil {
		return nil, err
	}
	if args.Y, err = f.integer("y", 0); err != nil {
		return nil, err
	}
	if args.Width, err = f.integer("width", defaultWidth); err != nil {
		return nil, err
	}
	if args.Height, err = f.integer("height", defaultHeight); err != nil {
		return nil, err
	}
	if args.StrokeWeight, err = f.optFloat("stroke-weight"); err != nil {
		return nil, err
	}
	if args.Radius, err = f.optFloat("radius"); err != nil {
		return nil, err
	}
	if args.Opacity, err = f.optFloat("opacity"); err != nil {
		return nil, err
	}
	if args.LayoutMode, err = f.enum("layout", defaultLayoutMode, LayoutModes); err != nil {
		return nil, err
	}
	if args.ItemSpacing, err = f.optInteger("gap"); err != nil {
		return nil, err
	}
	return args, nil
}

func parseCreateText(tokens, rest []string) (ir.Args, error) {
	f := newFlagSet(tokens, rest)
	args := CreateTextArgs{
		Name:       f.str("name", defaultTextName),
		Text:       f.str("text", ""),
		FontFamily: f.str("font-family", ""),
		FontStyle:  f.str("font-style", ""),
		Fill:       f.str("fill", ""),
		ParentID:   f.str("parent", ""),
	}

	var err error
	if args.X, err = f.integer("x", 0); err != nil {
		return nil, err
	}
	if args.Y, err = f.integer("y", 0); err != nil {
		return nil, err
	}
	if args.FontSize, err = f.optFloat("font-size"); err != nil {
		return nil, err
	}
	if args.Opacity, err = f.optFloat("opacity"); err != nil {
		return nil, err
	}
	return args, nil
}

func parseSetText(tokens, rest []string) (ir.Args, error) {
	p, err := positional(tokens, rest, 2, "id", "text")
	if err != nil {
		return nil, err
	}
	return SetTextArgs{ID: p[0], Text: p[1]}, nil
}

func parseSetFill(tokens, rest []string) (ir.Args, error) {
	p, err := positional(tokens, rest, 2, "id", "color")
	if err != nil {
		return nil, err
	}
	return SetFillArgs{ID: p[0], Color: p[1]}, nil
}

func parseSetOpacity(tokens, rest []string) (ir.Args, error) {
	p, err := positional(tokens, rest, 2, "id", "value")
	if err != nil {
		return nil, err
	}
	v, err := parseNumber(p[1])
	if err != nil {
		return nil, invalidArgument(tokens, "value", "%q is not a number", p[1])
	}
	return SetOpacityArgs{ID: p[0], Value: v}, nil
}

func parseSetLayout(tokens, rest []string) (ir.Args, error) {
	p, err := positional(tokens, rest, 1, "id")
	if err != nil {
		return nil, err
	}
	f := newFlagSet(tokens, rest[1:])
	args := SetLayoutArgs{ID: p[0]}
	if f.has("padding") {
		args.Padding = strings.TrimSpace(f.str("padding", ""))
	}
	if args.Mode, err = f.enum("mode", "", LayoutModes); err != nil {
		return nil, err
	}
	if args.Gap, err = f.optInteger("gap"); err != nil {
		return nil, err
	}
	return args, nil
}
