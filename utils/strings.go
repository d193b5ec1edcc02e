package utils

// PreviewLimit is the longest message excerpt shown in notification bodies
// and conversation previews.
const PreviewLimit = 50

// Truncate shortens s to at most limit runes, appending an ellipsis when
// anything was cut. Runes, not bytes, so multi-byte text never splits.
func Truncate(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "…"
}
