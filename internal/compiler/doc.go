// Package compiler turns one plan operation's run tokens into a typed
// command for the design-tool plugin.
//
// Compilation is a pure lookup on the first two tokens (the verb pair) in a
// static rule table. Each rule owns one ir.Kind and one Args struct, so the
// set of commands the executor can emit is visible in one place:
//
//	create page <name>            -> create-page
//	page set <idOrName>           -> set-current-page
//	create frame [flags]          -> create-frame
//	create text [flags]           -> create-text
//	set text <id> <text>          -> set-text
//	set fill <id> <color>         -> set-fill
//	set opacity <id> <value>      -> set-opacity
//	set layout <id> [flags]       -> set-layout
//
// Flags follow ParseFlags exactly. Unknown verb pairs fail with
// UNSUPPORTED_OPERATION; missing positionals and unparseable numbers or
// enums fail with INVALID_ARGUMENT.
package compiler
