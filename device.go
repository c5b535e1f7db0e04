package main

import (
	"errors"
	"fmt"
	"os"

	"hark/audio"
	"hark/log"
	"hark/transcriber"
)

// resolveDevice picks the capture device: a name match, the interactive
// picker, or nil for the system default.
func resolveDevice(in audio.Inputs, name string, setup bool) (*audio.DeviceInfo, error) {
	switch {
	case name != "":
		return audio.FindDevice(in, name)
	case setup:
		dev, err := audio.SelectDevice(in)
		if errors.Is(err, audio.ErrCanceled) {
			return nil, err
		}
		if err != nil {
			log.Warnf("device selection failed: %v", err)
			fmt.Fprintf(os.Stderr, "Warning: device selection failed: %v\n", err)
			fmt.Fprintln(os.Stderr, "Falling back to default device")
			return nil, nil
		}
		return dev, nil
	}
	return nil, nil
}

func deviceLineText(dev *audio.DeviceInfo) string {
	name := "system default"
	suffix := ""
	if dev != nil {
		name = dev.Name
		if audio.IsBluetooth(dev.Name) {
			suffix = " (BT!)"
		}
	}
	return "mic: " + name + suffix
}

func modeLineText(tr transcriber.Transcriber, mode audio.Mode, tts string) string {
	provider := tr.Name()
	if lang := tr.GetLanguage(); lang != "" {
		provider += " (" + lang + ")"
	}
	return fmt.Sprintf("[%s | %s | tts: %s]", provider, mode, tts)
}
