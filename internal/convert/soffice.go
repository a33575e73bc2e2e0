package convert

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"golang.org/x/sync/semaphore"

	"policy-backend/internal/shared/metrics"
	"policy-backend/internal/shared/telemetry"
	"policy-backend/internal/shared/util"
)

const (
	defaultBinary    = "soffice"
	defaultWaitDelay = 2 * time.Second
	maxOutputLog     = 2048
)

const remediation = "install LibreOffice on this host (for example `apt-get install libreoffice-writer`) " +
	"or set CONVERTER_BINARY to the soffice executable"

// Soffice converts documents with a headless LibreOffice process, one process per request.
type Soffice struct {
	Binary    string
	Workspace Workspace
	// Validate checks converter output; ValidatePDF when nil.
	Validate func([]byte) error
	// Limit bounds concurrent processes; nil means unbounded.
	Limit *semaphore.Weighted
	// WaitDelay bounds how long a killed process may hold its pipes open.
	WaitDelay time.Duration

	lookPath func(string) (string, error)
}

// NewSoffice returns a converter writing temporary files under ws.
// maxConcurrent <= 0 leaves concurrency unbounded.
func NewSoffice(binary string, ws Workspace, maxConcurrent int) *Soffice {
	if binary == "" {
		binary = defaultBinary
	}
	s := &Soffice{Binary: binary, Workspace: ws, WaitDelay: defaultWaitDelay}
	if maxConcurrent > 0 {
		s.Limit = semaphore.NewWeighted(int64(maxConcurrent))
	}
	return s
}

// Available reports whether the converter executable can be located.
func (s *Soffice) Available() error {
	_, err := s.resolveBinary()
	return err
}

// Convert writes the editable document, runs the converter and returns the fixed-layout bytes.
// All temporary files for req.ID are removed before returning.
func (s *Soffice) Convert(ctx context.Context, req Request) ([]byte, error) {
	id, err := util.SanitizeSegment(req.ID)
	if err != nil {
		return nil, fmt.Errorf("convert: request id: %w", err)
	}
	binary, err := s.resolveBinary()
	if err != nil {
		return nil, err
	}

	if s.Limit != nil {
		if err := s.Limit.Acquire(ctx, 1); err != nil {
			return nil, contextFailure(ctx, err)
		}
		defer s.Limit.Release(1)
	}

	ws := s.Workspace
	if err := os.MkdirAll(ws.Dir, 0o700); err != nil {
		return nil, fmt.Errorf("convert: workspace: %w", err)
	}
	defer func() {
		if err := ws.Remove(id); err != nil {
			telemetry.Warn("convert.cleanup_failed", map[string]any{"request_id": id, "err": err})
		}
	}()

	editable := ws.EditablePath(id)
	if err := os.WriteFile(editable, req.Editable, 0o600); err != nil {
		return nil, fmt.Errorf("convert: write editable: %w", err)
	}

	cmd := exec.CommandContext(ctx, binary,
		"--headless",
		"--norestore",
		"--nologo",
		"-env:UserInstallation="+fileURL(ws.ProfilePath(id)),
		"--convert-to", "pdf",
		"--outdir", ws.Dir,
		editable,
	)
	cmd.WaitDelay = s.WaitDelay
	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	started := time.Now()
	runErr := cmd.Run()
	elapsed := time.Since(started)
	metrics.ObserveConversionDurationMs(float64(elapsed.Milliseconds()))

	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, contextFailure(ctx, ctxErr)
	}
	if runErr != nil {
		convErr := &ConversionError{Reason: ReasonExitStatus, ExitCode: -1, Err: runErr}
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			convErr.ExitCode = exitErr.ExitCode()
			convErr.Err = nil
		}
		telemetry.Warn("convert.process_failed", map[string]any{
			"request_id":  id,
			"exit_code":   convErr.ExitCode,
			"duration_ms": elapsed.Milliseconds(),
			"output":      tail(output.Bytes(), maxOutputLog),
		})
		return nil, convErr
	}

	data, err := os.ReadFile(ws.FixedLayoutPath(id))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			telemetry.Warn("convert.missing_output", map[string]any{
				"request_id": id,
				"output":     tail(output.Bytes(), maxOutputLog),
			})
			return nil, &ConversionError{Reason: ReasonMissingOutput}
		}
		return nil, fmt.Errorf("convert: read output: %w", err)
	}

	validate := s.Validate
	if validate == nil {
		validate = ValidatePDF
	}
	if err := validate(data); err != nil {
		return nil, &ConversionError{Reason: ReasonMalformedOutput, Err: err}
	}

	telemetry.Debug("convert.complete", map[string]any{
		"request_id":  id,
		"bytes":       len(data),
		"duration_ms": elapsed.Milliseconds(),
	})
	return data, nil
}

func (s *Soffice) resolveBinary() (string, error) {
	look := s.lookPath
	if look == nil {
		look = exec.LookPath
	}
	binary := s.Binary
	if binary == "" {
		binary = defaultBinary
	}
	path, err := look(binary)
	if err != nil {
		return "", &UnavailableError{Binary: binary, Remediation: remediation}
	}
	return path, nil
}

func contextFailure(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return &ConversionError{Reason: ReasonTimeout, Err: context.DeadlineExceeded}
	}
	return &ConversionError{Reason: ReasonCanceled, Err: err}
}

func fileURL(path string) string {
	return "file://" + filepath.ToSlash(path)
}

func tail(b []byte, n int) string {
	if len(b) > n {
		b = b[len(b)-n:]
	}
	return string(b)
}
