package protocol

import (
	"fmt"
	"strconv"
	"strings"
)

// Address roots. The background level lives under /src, not /source; the
// renderer patch listens on exactly these paths.
const (
	AddrStatus    = "/status"
	AddrDistances = "/distances"

	sourceRoot     = "/source"
	backgroundRoot = "/src"
)

// Per-source address leaves.
const (
	leafPosition = "xy"
	leafDoppler  = "doppler"
	leafAperture = "aperture"
	leafGain     = "gain"
	leafTrigger  = "status"
)

// PositionAddress returns /source/{k}/xy.
func PositionAddress(k int) string {
	return sourceAddress(sourceRoot, k, leafPosition)
}

// DopplerAddress returns /source/{k}/doppler.
func DopplerAddress(k int) string {
	return sourceAddress(sourceRoot, k, leafDoppler)
}

// ApertureAddress returns /source/{k}/aperture.
func ApertureAddress(k int) string {
	return sourceAddress(sourceRoot, k, leafAperture)
}

// BackgroundAddress returns /src/{k}/gain.
func BackgroundAddress(k int) string {
	return sourceAddress(backgroundRoot, k, leafGain)
}

// TriggerAddress returns /source/{k}/status. The address is reserved for
// object-trigger status; nothing emits it yet.
func TriggerAddress(k int) string {
	return sourceAddress(sourceRoot, k, leafTrigger)
}

func sourceAddress(root string, k int, leaf string) string {
	return root + "/" + strconv.Itoa(k) + "/" + leaf
}

// ParseAddress identifies the kind of an address and, for per-source
// addresses, the 1-based source index. Aggregate addresses report k = 0.
func ParseAddress(addr string) (Kind, int, error) {
	switch addr {
	case AddrStatus:
		return KindStatus, 0, nil
	case AddrDistances:
		return KindDistances, 0, nil
	}

	parts := strings.Split(strings.TrimPrefix(addr, "/"), "/")
	if len(parts) != 3 {
		return KindUnknown, 0, fmt.Errorf("protocol: unknown address %q", addr)
	}
	k, err := strconv.Atoi(parts[1])
	if err != nil || k < 1 {
		return KindUnknown, 0, fmt.Errorf("protocol: bad source index in %q", addr)
	}

	root, leaf := "/"+parts[0], parts[2]
	switch {
	case root == sourceRoot && leaf == leafPosition:
		return KindPosition, k, nil
	case root == sourceRoot && leaf == leafDoppler:
		return KindDoppler, k, nil
	case root == sourceRoot && leaf == leafAperture:
		return KindAperture, k, nil
	case root == sourceRoot && leaf == leafTrigger:
		return KindTrigger, k, nil
	case root == backgroundRoot && leaf == leafGain:
		return KindBackground, k, nil
	}
	return KindUnknown, 0, fmt.Errorf("protocol: unknown address %q", addr)
}
