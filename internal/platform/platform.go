// Package platform reports the operating system family the pipeline is compiled for.
package platform

import "runtime"

// Family is an operating system family.
type Family string

const (
	Linux   Family = "linux"
	Darwin  Family = "darwin"
	Windows Family = "windows"
	Other   Family = "other"
)

// Current returns the family of the running operating system.
func Current() Family {
	return FromGOOS(runtime.GOOS)
}

// FromGOOS maps a GOOS value to its family.
func FromGOOS(goos string) Family {
	switch goos {
	case "linux", "android":
		return Linux
	case "darwin", "ios":
		return Darwin
	case "windows":
		return Windows
	default:
		return Other
	}
}
