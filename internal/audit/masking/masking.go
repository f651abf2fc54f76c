package masking

import "strings"

const maskToken = "****"

// MaskSecret redacts a provider identifier, keeping its prefix and last four
// characters so support can still correlate it.
func MaskSecret(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return ""
	}

	prefix, remainder := splitPrefix(trimmed)
	if len(remainder) <= 4 {
		return prefix + maskToken
	}
	return prefix + maskToken + remainder[len(remainder)-4:]
}

// MaskKeys returns a copy of metadata with the string values under keys masked.
func MaskKeys(metadata map[string]any, keys ...string) map[string]any {
	if len(metadata) == 0 {
		return metadata
	}

	sensitive := make(map[string]struct{}, len(keys))
	for _, key := range keys {
		sensitive[key] = struct{}{}
	}

	out := make(map[string]any, len(metadata))
	for key, value := range metadata {
		if _, ok := sensitive[key]; ok {
			if s, isString := value.(string); isString {
				out[key] = MaskSecret(s)
				continue
			}
		}
		out[key] = value
	}
	return out
}

// splitPrefix separates Stripe style prefixes such as "cs_test_".
func splitPrefix(value string) (string, string) {
	lastUnderscore := strings.LastIndex(value, "_")
	if lastUnderscore == -1 || lastUnderscore == len(value)-1 {
		return "", value
	}
	return value[:lastUnderscore+1], value[lastUnderscore+1:]
}
