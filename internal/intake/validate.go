package intake

import (
	"strings"

	"github.com/hivecast/ingestd/internal/entries"
)

func (l Limits) check(owner string, size int64, duration float64) error {
	if err := entries.ValidateHandle(owner); err != nil {
		return &ValidationError{Field: "owner", Reason: err.Error()}
	}
	if size < l.MinBytes || size > l.MaxBytes {
		return invalid("size_bytes", "must be between %d and %d", l.MinBytes, l.MaxBytes)
	}
	if duration < l.MinDurationSec || duration > l.MaxDurationSec {
		return invalid("duration_seconds", "must be between %g and %g", l.MinDurationSec, l.MaxDurationSec)
	}
	return nil
}

func checkFilename(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return invalid("original_filename", "is required")
	}
	if len(name) > maxFilenameLength || strings.ContainsAny(name, "/\\\x00") {
		return invalid("original_filename", "must be a plain file name of at most %d bytes", maxFilenameLength)
	}
	return nil
}

func checkDescriptive(title string, tags []string) error {
	if len(title) > maxTitleLength {
		return invalid("title", "must be at most %d bytes", maxTitleLength)
	}
	if len(tags) > maxTags {
		return invalid("tags", "at most %d tags", maxTags)
	}
	return nil
}

func cleanTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}
