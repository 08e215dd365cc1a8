package event

import "strings"

// Placeholders substituted for machine-specific roots in stderr output.
const (
	SourceRootPlaceholder = "$(SOURCE_ROOT)"
	BuildRootPlaceholder  = "$(BUILD_ROOT)"
)

// Extractor turns a failed record's stderr fragments into a single error
// text with the source and build roots replaced by placeholders.
type Extractor struct {
	SourceRoot string
}

// Extract returns the normalized error text and the record's error links.
// The record itself is not modified.
func (x Extractor) Extract(r *Result) (string, []string) {
	if r == nil {
		return "", nil
	}
	stderrs := make([]string, len(r.Stderrs))
	copy(stderrs, r.Stderrs)
	if x.SourceRoot != "" {
		for i := range stderrs {
			stderrs[i] = strings.ReplaceAll(stderrs[i], x.SourceRoot, SourceRootPlaceholder)
		}
	}
	if r.BuildRoot != "" {
		for i := range stderrs {
			stderrs[i] = strings.ReplaceAll(stderrs[i], r.BuildRoot, BuildRootPlaceholder)
		}
	}
	var links []string
	if len(r.ErrorLinks) > 0 {
		links = append(links, r.ErrorLinks...)
	}
	return strings.Join(stderrs, "\n"), links
}
