package runtime

import "fmt"

// API version of the runtime surface.
const (
	APIVersionMajor = 1
	APIVersionMinor = 0
	APIVersionPatch = 0
)

// APIVersion returns the runtime API version as "major.minor.patch".
func APIVersion() string {
	return fmt.Sprintf("%d.%d.%d", APIVersionMajor, APIVersionMinor, APIVersionPatch)
}
