// Package router dispatches fully reassembled messages to their
// kind-specific handlers: printing text, writing the system clipboard, or
// saving a file under its transmitted name.
package router

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/atotto/clipboard"
	"github.com/rs/zerolog"

	"github.com/fisadev/grillo/internal/logging"
	"github.com/fisadev/grillo/internal/message"
)

var ErrUnhandledKind = errors.New("router: unhandled message kind")

// Clipboard abstracts the system clipboard so tests stay off the real one.
type Clipboard interface {
	Write(text string) error
}

type systemClipboard struct{}

func (systemClipboard) Write(text string) error {
	return clipboard.WriteAll(text)
}

// Router routes decoded messages. Only complete, correct messages ever
// reach it; partial reassemblies are dropped upstream.
type Router struct {
	out       io.Writer
	outputDir string
	clip      Clipboard
	log       zerolog.Logger
}

func New(out io.Writer, outputDir string) *Router {
	return &Router{
		out:       out,
		outputDir: outputDir,
		clip:      systemClipboard{},
		log:       logging.Component("router"),
	}
}

// SetClipboard swaps the clipboard binding, mainly for tests.
func (r *Router) SetClipboard(c Clipboard) {
	r.clip = c
}

func (r *Router) Handle(msg message.Message) error {
	r.log.Debug().Stringer("kind", msg.Kind).Int("bytes", len(msg.Payload)).Msg("dispatching message")
	switch msg.Kind {
	case message.KindText:
		fmt.Fprintln(r.out, "Received text:")
		fmt.Fprintln(r.out, string(msg.Payload))
		return nil
	case message.KindClipboard:
		if err := r.clip.Write(string(msg.Payload)); err != nil {
			return fmt.Errorf("router: clipboard write: %w", err)
		}
		fmt.Fprintln(r.out, "Received clipboard contents, copied to your own clipboard :)")
		return nil
	case message.KindFile:
		name, content, err := message.DecodeFile(msg.Payload)
		if err != nil {
			return err
		}
		path, err := r.writeFile(name, content)
		if err != nil {
			return err
		}
		fmt.Fprintln(r.out, "Received a file, saved to", path)
		return nil
	}
	return fmt.Errorf("%w: %s", ErrUnhandledKind, msg.Kind)
}

// writeFile saves content under the transmitted name, prefixing a counter
// until a free name is found rather than overwriting.
func (r *Router) writeFile(name string, content []byte) (string, error) {
	name = filepath.Base(name) // never let a name escape the output dir
	path := filepath.Join(r.outputDir, name)
	for counter := 1; ; counter++ {
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			break
		}
		path = filepath.Join(r.outputDir, fmt.Sprintf("%d_%s", counter, name))
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return "", fmt.Errorf("router: save file: %w", err)
	}
	return path, nil
}
