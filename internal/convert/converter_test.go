package convert_test

import (
	"os"
	"path/filepath"
	"testing"

	"policy-backend/internal/convert"
)

func TestWorkspaceNamesAreRequestScoped(t *testing.T) {
	ws := convert.Workspace{Dir: "/tmp/previews"}
	if got := ws.EditablePath("abc"); got != filepath.Join("/tmp/previews", "preview_abc.docx") {
		t.Fatalf("unexpected editable path %s", got)
	}
	if got := ws.FixedLayoutPath("abc"); got != filepath.Join("/tmp/previews", "preview_abc.pdf") {
		t.Fatalf("unexpected fixed layout path %s", got)
	}
}

func TestWorkspaceRemoveOnlyTouchesOwnFiles(t *testing.T) {
	ws, err := convert.NewWorkspace(t.TempDir())
	if err != nil {
		t.Fatalf("NewWorkspace: %v", err)
	}
	for _, id := range []string{"a", "b"} {
		if err := os.WriteFile(ws.EditablePath(id), []byte("x"), 0o600); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(ws.FixedLayoutPath(id), []byte("x"), 0o600); err != nil {
			t.Fatal(err)
		}
		if err := os.MkdirAll(filepath.Join(ws.ProfilePath(id), "user"), 0o700); err != nil {
			t.Fatal(err)
		}
	}

	if err := ws.Remove("a"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if left := ws.Leftovers("a"); len(left) != 0 {
		t.Fatalf("expected a removed, found %v", left)
	}
	if left := ws.Leftovers("b"); len(left) != 3 {
		t.Fatalf("expected b untouched, found %v", left)
	}
	if err := ws.Remove("a"); err != nil {
		t.Fatalf("second Remove should be a no-op, got %v", err)
	}
}
