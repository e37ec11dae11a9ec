package storage

import (
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// CleanKey trims key and rejects anything that cannot name an object:
// empty keys, absolute paths, backslashes, control characters and empty,
// "." or ".." segments.
func CleanKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return "", ErrInvalidKey
	}
	if strings.ContainsFunc(key, func(r rune) bool { return r < 0x20 || r == 0x7f }) {
		return "", ErrInvalidKey
	}
	for seg := range strings.SplitSeq(key, "/") {
		if seg == "" || seg == "." || seg == ".." {
			return "", ErrInvalidKey
		}
	}
	return key, nil
}

// BaseName returns the last segment of key.
func BaseName(key string) string {
	key = strings.TrimRight(strings.TrimSpace(key), "/")
	return key[strings.LastIndex(key, "/")+1:]
}

// OwnedBy reports whether key lives under the tenant segment that WithTenant
// would generate for tenant.
func OwnedBy(key, tenant string) bool {
	seg := segment(tenant)
	return seg != "" && strings.HasPrefix(key, seg+"/")
}

var unsafeSegment = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// segment makes s safe to use as one key segment.
func segment(s string) string {
	s = strings.Trim(strings.TrimSpace(s), "/\\")
	s = strings.ReplaceAll(s, "..", "")
	return strings.Trim(unsafeSegment.ReplaceAllString(s, "_"), ".")
}

// generateKey builds {tenant}/{prefix}/{uuid}_{filename}. Without a usable
// filename the last segment is {uuid}{ext} with ext taken from contentType.
func generateKey(tenant, prefix, filename, contentType string) string {
	parts := make([]string, 0, 3)
	for _, p := range []string{tenant, prefix} {
		if s := segment(p); s != "" {
			parts = append(parts, s)
		}
	}

	name := uuid.NewString()
	if f := segment(filename); f != "" {
		name += "_" + f
	} else {
		name += extensionFor(contentType)
	}
	return strings.Join(append(parts, name), "/")
}
