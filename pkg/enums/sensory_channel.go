package enums

import (
	"fmt"
	"strings"
)

// SensoryChannel is one of the six fixed capability channels subject to
// authority-based locking.
type SensoryChannel string

const (
	SensoryChannelVision    SensoryChannel = "VISION"
	SensoryChannelHearing   SensoryChannel = "HEARING"
	SensoryChannelTouch     SensoryChannel = "TOUCH"
	SensoryChannelSmell     SensoryChannel = "SMELL"
	SensoryChannelTaste     SensoryChannel = "TASTE"
	SensoryChannelIntuition SensoryChannel = "INTUITION"
)

// AllSensoryChannels lists the six channels in their canonical order. The
// evaluator and the channel status endpoint iterate this slice so responses
// always cover exactly six entries regardless of configuration state.
var AllSensoryChannels = []SensoryChannel{
	SensoryChannelVision,
	SensoryChannelHearing,
	SensoryChannelTouch,
	SensoryChannelSmell,
	SensoryChannelTaste,
	SensoryChannelIntuition,
}

// String implements fmt.Stringer.
func (c SensoryChannel) String() string {
	return string(c)
}

// IsValid reports whether the value matches one of the six fixed channels.
func (c SensoryChannel) IsValid() bool {
	for _, candidate := range AllSensoryChannels {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseSensoryChannel converts raw input into a SensoryChannel.
func ParseSensoryChannel(value string) (SensoryChannel, error) {
	normalized := strings.ToUpper(strings.TrimSpace(value))
	for _, candidate := range AllSensoryChannels {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid sensory channel %q", value)
}
