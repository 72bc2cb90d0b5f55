package core

import (
	"context"
	"fmt"
	"strings"
)

// GenerateAvailableUsername tries base, then base1, base2, ... until a free
// name is found.
func (s *Service) GenerateAvailableUsername(ctx context.Context, base string) string {
	base = cleanUsername(base)
	if base == "" {
		base = "user"
	}
	if s.usernameFree(ctx, base) {
		return base
	}
	for i := 1; i <= s.maxNames; i++ {
		candidate := fmt.Sprintf("%s%d", base, i)
		if s.usernameFree(ctx, candidate) {
			return candidate
		}
	}
	return base + "_user"
}

func (s *Service) usernameFree(ctx context.Context, name string) bool {
	u, _ := s.users.GetByUsername(ctx, name)
	return u == nil
}

// cleanUsername lowercases and keeps [a-z0-9._+-], capped at 150 characters.
func cleanUsername(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' || r == '.' || r == '+' || r == '-' {
			b.WriteRune(r)
		}
	}
	out := b.String()
	if len(out) > 150 {
		out = out[:150]
	}
	return out
}
