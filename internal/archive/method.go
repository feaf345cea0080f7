package archive

import (
	"fmt"
	"strings"
)

// Method names a compression codec. The value is part of the on-disk layout
// because each codec maps to a distinct archive file name.
type Method string

const (
	MethodNone Method = "none"
	MethodGzip Method = "gzip"
	MethodZstd Method = "zstd"

	// MethodAuto is only a preference value; ResolveMethod turns it into the
	// best registered codec.
	MethodAuto Method = "auto"
)

func (m Method) String() string {
	return string(m)
}

// ParseMethod normalizes user input such as "ZSTD" or " gzip ".
func ParseMethod(raw string) (Method, error) {
	normalized := Method(strings.ToLower(strings.TrimSpace(raw)))
	switch normalized {
	case "":
		return MethodAuto, nil
	case MethodAuto, MethodNone, MethodGzip, MethodZstd:
		return normalized, nil
	default:
		return "", fmt.Errorf("unsupported compression method: %s", raw)
	}
}

// ResolveMethod turns a preference into a concrete, registered method. "auto"
// picks the highest-priority codec reported by Probe.
func ResolveMethod(preferred Method) (Method, error) {
	if preferred == "" || preferred == MethodAuto {
		return Probe()
	}
	if _, ok := Lookup(preferred); !ok {
		return "", fmt.Errorf("compression method %s is not available", preferred)
	}
	return preferred, nil
}

// Probe reports the preferred codec available in this build.
func Probe() (Method, error) {
	codecs := List()
	if len(codecs) == 0 {
		return "", fmt.Errorf("no compression codec registered")
	}
	best := codecs[0]
	for _, codec := range codecs[1:] {
		if codec.Priority > best.Priority {
			best = codec
		}
	}
	return best.Method, nil
}
