package pipeline

import (
	"fmt"
	"strings"
)

// VerifyImages checks a re-read image list: exactly want distinct entries,
// none empty or marked as an error.
func VerifyImages(images []string, want int) error {
	if len(images) != want {
		return fmt.Errorf("%w: %d of %d images present", ErrVerifyMismatch, len(images), want)
	}

	valid := 0
	for _, img := range images {
		if validImageURL(img) {
			valid++
		}
	}
	if valid != want {
		return fmt.Errorf("%w: %d of %d images valid", ErrVerifyMismatch, valid, want)
	}
	if u, ok := firstDuplicate(images); ok {
		return fmt.Errorf("%w: %s present twice", ErrVerifyMismatch, u)
	}
	return nil
}

func validImageURL(u string) bool {
	return strings.TrimSpace(u) != "" &&
		!strings.Contains(u, "error") &&
		!strings.Contains(u, "undefined")
}
