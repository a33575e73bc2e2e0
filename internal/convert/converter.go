package convert

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"policy-backend/internal/shared/util"
)

// Request is one conversion job. ID is unique per render and names every temporary file.
type Request struct {
	ID       string
	Editable []byte
}

// Converter turns an editable document into a fixed-layout one.
type Converter interface {
	Convert(ctx context.Context, req Request) ([]byte, error)
}

// Workspace owns the directory holding per-request temporary files.
type Workspace struct {
	Dir string
}

// NewWorkspace creates dir if needed and returns a workspace rooted at its absolute path.
func NewWorkspace(dir string) (Workspace, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return Workspace{}, fmt.Errorf("resolve workspace: %w", err)
	}
	if err := os.MkdirAll(abs, 0o700); err != nil {
		return Workspace{}, fmt.Errorf("create workspace: %w", err)
	}
	return Workspace{Dir: abs}, nil
}

// EditablePath is where the merged document for id is written.
func (w Workspace) EditablePath(id string) string {
	return filepath.Join(w.Dir, "preview_"+id+".docx")
}

// FixedLayoutPath is where the converter writes its output for id.
func (w Workspace) FixedLayoutPath(id string) string {
	return filepath.Join(w.Dir, "preview_"+id+".pdf")
}

// ProfilePath is the converter user profile used only by id.
func (w Workspace) ProfilePath(id string) string {
	return filepath.Join(w.Dir, "profile_"+id)
}

// Remove deletes every temporary file belonging to id. Missing files are not an error.
func (w Workspace) Remove(id string) error {
	if _, err := util.SanitizeSegment(id); err != nil {
		return err
	}
	var errs []error
	for _, path := range []string{w.EditablePath(id), w.FixedLayoutPath(id)} {
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	if err := os.RemoveAll(w.ProfilePath(id)); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Leftovers lists files still present for id.
func (w Workspace) Leftovers(id string) []string {
	var out []string
	for _, path := range []string{w.EditablePath(id), w.FixedLayoutPath(id), w.ProfilePath(id)} {
		if _, err := os.Stat(path); err == nil {
			out = append(out, filepath.Base(path))
		}
	}
	return out
}
