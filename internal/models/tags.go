package models

import "strings"

// ParseTags splits a comma-separated tags string into the canonical list.
// Elements are trimmed and empty ones dropped.
func ParseTags(s string) []string {
	parts := strings.Split(s, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

// TagsFromForm normalizes the tags of a form submission. A lone "tags" value
// is a comma-separated string and goes through ParseTags. Repeated "tags"
// values or any "tags[]" values are a list and are kept exactly as sent.
func TagsFromForm(tags, tagList []string) []string {
	if len(tags) == 1 && len(tagList) == 0 {
		return ParseTags(tags[0])
	}
	out := make([]string, 0, len(tags)+len(tagList))
	out = append(out, tags...)
	return append(out, tagList...)
}
