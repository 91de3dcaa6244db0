package pipeline

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// Pre-signed URLs look like
//
//	https://bucket.s3.amazonaws.com/{owner}/{record}/{upload}/{file}?X-Amz-...
//
// The layout belongs to the storage service and is treated as convention.

var uuidLike = regexp.MustCompile(`(?i)[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}`)

// ExtractUploadID returns the upload identifier embedded in presignedURL,
// or "" when neither strategy finds one. The segment after recordID is
// tried first, then the third UUID in the URL.
func ExtractUploadID(presignedURL, recordID string) string {
	if id := uploadIDAfterRecord(presignedURL, recordID); id != "" {
		return id
	}
	return uploadIDFromUUIDScan(presignedURL)
}

// uploadIDAfterRecord returns the path segment that follows the segment
// equal to recordID.
func uploadIDAfterRecord(rawURL, recordID string) string {
	if recordID == "" {
		return ""
	}

	path := rawURL
	if u, err := url.Parse(rawURL); err == nil && u.Path != "" {
		path = u.EscapedPath()
	} else if before, _, ok := strings.Cut(rawURL, "?"); ok {
		path = before
	}

	segments := strings.Split(path, "/")
	for i, seg := range segments {
		if seg == recordID && i+1 < len(segments) {
			next, _, _ := strings.Cut(segments[i+1], "?")
			if next != "" {
				return next
			}
			return ""
		}
	}
	return ""
}

// uploadIDFromUUIDScan takes the third UUID in rawURL (owner, record,
// upload). Fewer than three matches yields "".
func uploadIDFromUUIDScan(rawURL string) string {
	var found []string
	for _, m := range uuidLike.FindAllString(rawURL, -1) {
		if _, err := uuid.Parse(m); err != nil {
			continue
		}
		found = append(found, m)
		if len(found) == 3 {
			return found[2]
		}
	}
	return ""
}
