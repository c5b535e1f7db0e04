package audio

import (
	"context"
	"time"

	"hark/log"
)

// AvailabilityMsg reports whether any capture device is present.
type AvailabilityMsg struct {
	Available bool
}

// Available reports whether in lists at least one microphone. Monitor
// sources do not count, and enumeration errors count as unavailable.
func Available(in Inputs) bool {
	devices, err := in.Devices()
	return err == nil && len(microphones(devices)) > 0
}

// WatchAvailability polls in every interval and calls fn whenever the
// presence of input devices changes. The first poll always reports. It
// returns when ctx is done.
func WatchAvailability(ctx context.Context, in Inputs, interval time.Duration, fn func(available bool)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	first := true
	var last bool
	for {
		now := Available(in)
		if first || now != last {
			if !first {
				log.Infof("input_availability: %v", now)
			}
			first = false
			last = now
			fn(now)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
