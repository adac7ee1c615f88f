package executor

import "regexp"

// CaptureFields lists the result fields searched for a node id, in priority
// order. The first field holding an id-shaped string wins even when a later
// field would be a better semantic match.
var CaptureFields = []string{"id", "nodeId", "pageId", "componentId"}

var nodeIDPattern = regexp.MustCompile(`\b\d+:\d+\b`)

// ExtractID returns the first node id found in payload.
func ExtractID(payload map[string]any) (string, bool) {
	for _, key := range CaptureFields {
		s, ok := payload[key].(string)
		if !ok {
			continue
		}
		if m := nodeIDPattern.FindString(s); m != "" {
			return m, true
		}
	}
	return "", false
}
