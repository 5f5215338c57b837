package urls

import "strings"

// Resolve makes a possibly relative or protocol-relative URL absolute
// against origin. Empty input stays empty.
func Resolve(candidate, origin string) string {
	switch {
	case candidate == "":
		return ""
	case strings.HasPrefix(candidate, "//"):
		return "https:" + candidate
	case !strings.HasPrefix(candidate, "http"):
		return origin + candidate
	default:
		return candidate
	}
}

// ResolveSrcset resolves the URL of every candidate in a srcset value.
// Width and density descriptors are kept as written.
func ResolveSrcset(srcset, origin string) string {
	parts := strings.Split(srcset, ",")
	for i, part := range parts {
		part = strings.TrimSpace(part)
		u, descriptor, found := strings.Cut(part, " ")
		if found {
			parts[i] = Resolve(u, origin) + " " + descriptor
			continue
		}
		parts[i] = Resolve(u, origin)
	}
	return strings.Join(parts, ", ")
}
