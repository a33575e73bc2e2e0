// Package converttest provides fixtures and fakes for conversion tests.
package converttest

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"policy-backend/internal/convert"
)

// PDF returns a minimal well-formed PDF with the given number of blank pages.
func PDF(pages int) []byte {
	if pages < 1 {
		pages = 1
	}
	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
	}
	kids := make([]string, pages)
	for i := range kids {
		kids[i] = fmt.Sprintf("%d 0 R", i+3)
	}
	objects = append(objects, fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), pages))
	for i := 0; i < pages; i++ {
		objects = append(objects, "<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] >>")
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}

// Converter is a fake that mimics the real converter's file handling.
// It writes both temporary files into the workspace like the real process would,
// and leaves them behind unless Cleanup is set.
type Converter struct {
	Workspace convert.Workspace
	Output    []byte
	Err       error
	Cleanup   bool
	// Hook runs after the temporary files exist and before Convert returns.
	Hook func(req convert.Request)

	mu    sync.Mutex
	calls []convert.Request
}

func (c *Converter) Convert(ctx context.Context, req convert.Request) ([]byte, error) {
	c.mu.Lock()
	c.calls = append(c.calls, req)
	c.mu.Unlock()

	if c.Workspace.Dir != "" {
		if err := os.MkdirAll(c.Workspace.Dir, 0o700); err != nil {
			return nil, err
		}
		if err := os.WriteFile(c.Workspace.EditablePath(req.ID), req.Editable, 0o600); err != nil {
			return nil, err
		}
		if err := os.WriteFile(c.Workspace.FixedLayoutPath(req.ID), c.Output, 0o600); err != nil {
			return nil, err
		}
		if c.Cleanup {
			defer c.Workspace.Remove(req.ID)
		}
	}
	if c.Hook != nil {
		c.Hook(req)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if c.Err != nil {
		return nil, c.Err
	}
	return append([]byte(nil), c.Output...), nil
}

// Calls returns the requests received so far.
func (c *Converter) Calls() []convert.Request {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]convert.Request(nil), c.calls...)
}
