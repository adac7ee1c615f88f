package planner

import (
	"regexp"
	"strings"
)

// Heading keywords that mark a section as something other than a screen.
var excludeHints = []string{
	"acceptance", "non-functional", "nfr", "appendix", "changelog", "base", "update",
	"验收", "附录", "变更", "非功能",
}

// Heading keywords that suggest a section describes a screen.
var screenHints = []string{
	"screen", "page", "flow", "module", "home", "login", "setting", "profile", "detail", "dashboard",
	"页面", "页", "流程", "模块", "登录", "首页", "详情", "设置",
}

var (
	headingLine  = regexp.MustCompile(`^(#{2,4})\s+(.+)$`)
	backticks    = regexp.MustCompile("`+")
	markdownLink = regexp.MustCompile(`\[(.*?)\]\(.*?\)`)
	emphasis     = regexp.MustCompile(`[*_>#]+`)
	spaces       = regexp.MustCompile(`\s+`)
)

// CleanHeading strips inline markdown from a heading title.
func CleanHeading(text string) string {
	text = backticks.ReplaceAllString(text, "")
	text = markdownLink.ReplaceAllString(text, "$1")
	text = emphasis.ReplaceAllString(text, " ")
	return strings.TrimSpace(spaces.ReplaceAllString(text, " "))
}

func containsAny(title string, hints []string) bool {
	lower := strings.ToLower(title)
	for _, h := range hints {
		if strings.Contains(lower, h) {
			return true
		}
	}
	return false
}

// ExtractHeadings returns candidate screen names from the level 2-4 headings
// of a markdown document.
//
// Headings that look like screens are preferred; when none do, every
// non-excluded heading is used. Duplicates are dropped case-insensitively,
// keeping the first spelling.
func ExtractHeadings(markdown string) []string {
	var screens, fallback []string
	for _, line := range strings.Split(markdown, "\n") {
		m := headingLine.FindStringSubmatch(strings.TrimRight(line, "\r"))
		if m == nil {
			continue
		}
		title := CleanHeading(m[2])
		if title == "" || containsAny(title, excludeHints) {
			continue
		}
		fallback = append(fallback, title)
		if containsAny(title, screenHints) {
			screens = append(screens, title)
		}
	}
	if len(screens) == 0 {
		screens = fallback
	}

	seen := make(map[string]bool)
	var unique []string
	for _, s := range screens {
		key := strings.ToLower(s)
		if seen[key] {
			continue
		}
		seen[key] = true
		unique = append(unique, s)
	}
	return unique
}

// ParseChanged splits a comma-separated list of changed headings.
func ParseChanged(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if c := CleanHeading(item); c != "" {
			out = append(out, c)
		}
	}
	return out
}

// FilterIncremental keeps the screens whose name contains, or is contained
// in, one of the changed headings (case-insensitive). With no changed
// headings every screen is kept.
func FilterIncremental(screens, changed []string) []string {
	if len(changed) == 0 {
		return screens
	}
	var out []string
	for _, s := range screens {
		lower := strings.ToLower(s)
		for _, c := range changed {
			c = strings.ToLower(c)
			if strings.Contains(lower, c) || strings.Contains(c, lower) {
				out = append(out, s)
				break
			}
		}
	}
	return out
}
