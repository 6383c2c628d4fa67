package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ncruces/zenity"

	"github.com/banshee-data/crossing.report/internal/session"
)

// Name prompt modes for --prompt.
const (
	promptStdin  = "stdin"
	promptDialog = "dialog"
	promptNone   = "none"
)

// namePrompter asks the user what to call a finished record. An empty
// answer means "don't save".
type namePrompter func(req *session.CommitRequest) (string, error)

func newPrompter(mode string, in io.Reader, out io.Writer) (namePrompter, error) {
	switch mode {
	case promptStdin:
		return stdinPrompter(in, out), nil
	case promptDialog:
		return dialogPrompt, nil
	case promptNone:
		return func(*session.CommitRequest) (string, error) { return "", nil }, nil
	default:
		return nil, fmt.Errorf("unknown prompt mode %q (want %s, %s or %s)", mode, promptStdin, promptDialog, promptNone)
	}
}

func stdinPrompter(in io.Reader, out io.Writer) namePrompter {
	r := bufio.NewReader(in)
	return func(req *session.CommitRequest) (string, error) {
		fmt.Fprint(out, "Name for this record (empty to discard): ")
		line, err := r.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", err
		}
		return strings.TrimSpace(line), nil
	}
}

func dialogPrompt(req *session.CommitRequest) (string, error) {
	text := fmt.Sprintf("%d crossings counted. Name this record to save it.", req.Total)
	if req.Mode == session.CommitRecording {
		text = fmt.Sprintf("%d crossings counted and the video was recorded. Name this record to save both.", req.Total)
	}
	name, err := zenity.Entry(text, zenity.Title("Save crossings"))
	if errors.Is(err, zenity.ErrCanceled) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("name dialog: %w", err)
	}
	return strings.TrimSpace(name), nil
}
