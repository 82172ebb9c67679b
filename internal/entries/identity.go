package entries

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// PermlinkLength is the fixed size of generated permlinks.
const PermlinkLength = 8

const (
	minHandleLength = 3
	maxHandleLength = 16
)

var handleSegment = regexp.MustCompile(`^[a-z][a-z0-9-]*[a-z0-9]$`)

// NewPermlink returns a random 8-character lowercase token.
func NewPermlink() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:PermlinkLength]
}

// ValidateHandle checks an owner handle: 3 to 16 characters, dot-separated
// segments of at least 3 characters that start with a letter, contain only
// lowercase letters, digits and hyphens, and do not end with a hyphen.
func ValidateHandle(handle string) error {
	if handle == "" {
		return errors.New("handle is required")
	}
	if len(handle) < minHandleLength || len(handle) > maxHandleLength {
		return fmt.Errorf("handle must be %d to %d characters", minHandleLength, maxHandleLength)
	}
	for _, segment := range strings.Split(handle, ".") {
		if len(segment) < minHandleLength {
			return fmt.Errorf("handle segment %q is shorter than %d characters", segment, minHandleLength)
		}
		if !handleSegment.MatchString(segment) || strings.Contains(segment, "--") {
			return fmt.Errorf("handle segment %q has invalid characters", segment)
		}
	}
	return nil
}
