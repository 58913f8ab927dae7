package entities

import "strings"

// Clean trims s and returns nil if nothing is left.
func Clean(s string) *string {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// CleanPtr is Clean for optional values.
func CleanPtr(s *string) *string {
	if s == nil {
		return nil
	}
	return Clean(*s)
}

// Truncate cuts s to at most limit characters. Multi-byte characters are
// never split.
func Truncate(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	if len(s) <= limit {
		return s
	}
	count := 0
	for i := range s {
		if count == limit {
			return s[:i]
		}
		count++
	}
	return s
}

// TruncatePtr is Truncate for optional values.
func TruncatePtr(s *string, limit int) *string {
	if s == nil {
		return nil
	}
	t := Truncate(*s, limit)
	return &t
}

// ComposeAltNames joins the present parts with a single space, in order.
// Blank parts are skipped. Returns nil if no part survives.
func ComposeAltNames(parts ...*string) *string {
	var b strings.Builder
	for _, part := range parts {
		cleaned := CleanPtr(part)
		if cleaned == nil {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(*cleaned)
	}
	if b.Len() == 0 {
		return nil
	}
	composed := b.String()
	return &composed
}
