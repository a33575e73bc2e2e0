package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadEnvFilesKeepsProcessEnvironment(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	content := "# local overrides\nCONVERTER_BINARY=/opt/libreoffice/soffice\nexport TEMPLATE_PREFIX=\"templates/dev\"\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("CONVERTER_BINARY", "soffice-from-env")
	t.Setenv("TEMPLATE_PREFIX", "")
	os.Unsetenv("TEMPLATE_PREFIX")

	loadEnvFiles(filepath.Join(dir, "missing.env"), path)

	if got := os.Getenv("CONVERTER_BINARY"); got != "soffice-from-env" {
		t.Fatalf("expected process value to win, got %q", got)
	}
	if got := os.Getenv("TEMPLATE_PREFIX"); got != "templates/dev" {
		t.Fatalf("expected file value, got %q", got)
	}
}
