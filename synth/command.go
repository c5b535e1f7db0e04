package synth

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/mattn/go-shellwords"

	"hark/audio"
)

// Command runs an external program that reads text on stdin and writes a
// 16-bit WAV file to stdout, e.g. "espeak-ng --stdin --stdout".
type Command struct {
	args []string
}

func NewCommand(command string) (*Command, error) {
	args, err := shellwords.NewParser().Parse(command)
	if err != nil {
		return nil, fmt.Errorf("parse tts command: %w", err)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("tts command empty")
	}
	return &Command{args: args}, nil
}

func (c *Command) Name() string { return c.args[0] }

func (c *Command) Synthesize(ctx context.Context, text string) (Audio, error) {
	cmd := exec.CommandContext(ctx, c.args[0], c.args[1:]...)
	cmd.Stdin = strings.NewReader(text)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return Audio{}, fmt.Errorf("%s: %w: %s", c.args[0], err, msg)
		}
		return Audio{}, fmt.Errorf("%s: %w", c.args[0], err)
	}
	pcm, rate, err := audio.DecodeWAV(out)
	if err != nil {
		return Audio{}, fmt.Errorf("%s output: %w", c.args[0], err)
	}
	return Audio{PCM: pcm, SampleRate: rate}, nil
}
