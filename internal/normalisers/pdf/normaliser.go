// Package pdf provides a Normaliser implementation for PDF documents.
// Text is extracted with the pdftotext tool from poppler.
package pdf

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/custodia-labs/qagent/internal/core/domain"
	"github.com/custodia-labs/qagent/internal/core/ports/driven"
	"github.com/custodia-labs/qagent/internal/logger"
	"github.com/custodia-labs/qagent/internal/normalisers/plaintext"
)

// ErrPDFToolNotFound is returned when pdftotext is not installed.
var ErrPDFToolNotFound = errors.New("pdftotext not found in PATH")

const toolName = "pdftotext"

// CommandRunner executes an external command and returns its stdout.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles PDF documents.
type Normaliser struct {
	runner   CommandRunner
	lookPath func(string) (string, error)
}

// New creates a PDF normaliser that runs pdftotext.
func New() *Normaliser {
	return NewWithRunner(execRunner{})
}

// NewWithRunner creates a PDF normaliser with a custom command runner.
func NewWithRunner(runner CommandRunner) *Normaliser {
	return &Normaliser{runner: runner, lookPath: exec.LookPath}
}

// CheckAvailable reports whether pdftotext can be found.
func CheckAvailable() error {
	if _, err := exec.LookPath(toolName); err != nil {
		return ErrPDFToolNotFound
	}
	return nil
}

// InstallInstructions returns how to install pdftotext on common platforms.
func InstallInstructions() string {
	return `pdftotext is required to read PDF documents. Install poppler:
  macOS:          brew install poppler
  Debian/Ubuntu:  apt install poppler-utils
  Fedora:         dnf install poppler-utils`
}

// SupportedExtensions returns the extensions this normaliser handles.
func (n *Normaliser) SupportedExtensions() []string {
	return []string{".pdf"}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 50 // Format normaliser, higher than plaintext
}

// Normalise extracts the text of a PDF.
// A missing pdftotext is an error. A file pdftotext cannot read becomes a
// document that records the failure, so the rest of an upload still succeeds.
func (n *Normaliser) Normalise(ctx context.Context, filename string, content []byte) (*driven.NormaliseResult, error) {
	if filename == "" {
		return nil, domain.ErrInvalidInput
	}
	if _, err := n.lookPath(toolName); err != nil {
		return nil, ErrPDFToolNotFound
	}

	text, err := n.extract(ctx, content)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		logger.Warn("PDF processing error for %s: %v", filename, err)
		text = fmt.Sprintf("PDF content (processing error: %v)", err)
	}

	return &driven.NormaliseResult{
		Document: domain.SourceDocument{
			Filename: filename,
			Content:  text,
		},
	}, nil
}

func (n *Normaliser) extract(ctx context.Context, content []byte) (string, error) {
	tmp, err := os.CreateTemp("", "qagent-*.pdf")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("write temp file: %w", err)
	}

	out, err := n.runner.Run(ctx, toolName, "-layout", "-enc", "UTF-8", tmp.Name(), "-")
	if err != nil {
		return "", fmt.Errorf("pdftotext failed: %w", err)
	}

	text := plaintext.Decode(out)
	text = strings.ReplaceAll(text, "\f", "\n")
	return strings.TrimSpace(text), nil
}
