package utils

import (
	"net/url"
	"os"
	"strings"
)

// BuildObjectAccessURL maps an object key to the URL users download it from.
//
// Env, in order of preference:
// - STORAGE_ACCESS_BASE_URL, optionally containing {objectKey}
// - GCS_URL + GCS_BUCKET
func BuildObjectAccessURL(objectKey string) string {
	base := strings.TrimSpace(os.Getenv("STORAGE_ACCESS_BASE_URL"))
	if base != "" {
		if strings.Contains(base, "{objectKey}") {
			escaped := objectKey
			if strings.Contains(base, "?") {
				escaped = url.QueryEscape(objectKey)
			}
			return strings.ReplaceAll(base, "{objectKey}", escaped)
		}
		if strings.Contains(base, "?") {
			return base + url.QueryEscape(objectKey)
		}
		return strings.TrimRight(base, "/") + "/" + objectKey
	}

	gcsURL := strings.TrimSpace(os.Getenv("GCS_URL"))
	gcsBucket := strings.TrimSpace(os.Getenv("GCS_BUCKET"))
	if gcsURL != "" && gcsBucket != "" {
		return "https://" + gcsURL + "/" + gcsBucket + "/" + objectKey
	}

	return objectKey
}

// ExportObjectKey places an export under exports/<username>/<report>/.
func ExportObjectKey(username, report, filename string) string {
	return "exports/" + sanitizeSegment(username) + "/" + sanitizeSegment(report) + "/" + GenerateUniqueFilename() + "_" + filename
}

func sanitizeSegment(input string) string {
	input = strings.TrimSpace(strings.ToLower(input))
	if input == "" {
		return "unknown"
	}
	var b strings.Builder
	for _, r := range input {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}
