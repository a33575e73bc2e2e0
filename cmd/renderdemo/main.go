package main

// Merge a local template with answers and optionally convert it:
//   go run ./cmd/renderdemo -template ./password.docx -set company_name=Acme -set review_cycle=quarterly
//   go run ./cmd/renderdemo -template ./password.docx -answers answers.json -convert
//   go run ./cmd/renderdemo -template ./password.docx -publish password

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"policy-backend/internal/convert"
	"policy-backend/internal/merge"
	"policy-backend/internal/shared/config"
	localstore "policy-backend/internal/shared/storage/object/local"
	"policy-backend/internal/templates"
)

type setFlags map[string]string

func (s setFlags) String() string { return fmt.Sprint(map[string]string(s)) }

func (s setFlags) Set(v string) error {
	key, value, ok := strings.Cut(v, "=")
	if !ok || strings.TrimSpace(key) == "" {
		return fmt.Errorf("expected key=value, got %q", v)
	}
	s[strings.TrimSpace(key)] = value
	return nil
}

func main() {
	templatePath := flag.String("template", "", "path to a .docx template")
	answersPath := flag.String("answers", "", "JSON object of key to value (optional)")
	outPath := flag.String("out", "./out/preview.docx", "output path for the merged DOCX")
	doConvert := flag.Bool("convert", false, "also convert the merged document to PDF")
	publish := flag.String("publish", "", "store the template under this policy id in LOCAL_STORE_DIR")
	sets := setFlags{}
	flag.Var(sets, "set", "answer as key=value (repeatable)")
	flag.Parse()

	if strings.TrimSpace(*templatePath) == "" {
		exitErr("-template is required")
	}
	template, err := os.ReadFile(*templatePath)
	if err != nil {
		exitErr(fmt.Sprintf("read template: %v", err))
	}
	cfg := config.Load()
	ctx := context.Background()

	if *publish != "" {
		store := templates.NewStore(localstore.New(cfg.LocalStoreDir), cfg.TemplatePrefix)
		if _, err := merge.Placeholders(template); err != nil {
			exitErr(fmt.Sprintf("refusing to publish: %v", err))
		}
		if err := store.SaveTemplate(ctx, *publish, template); err != nil {
			exitErr(fmt.Sprintf("publish: %v", err))
		}
		fmt.Printf("OK: published template for policy %s\n", *publish)
		return
	}

	answers, err := loadAnswers(*answersPath, sets)
	if err != nil {
		exitErr(err.Error())
	}

	result, err := merge.Merge(template, answers)
	if err != nil {
		exitErr(fmt.Sprintf("merge failed: %v", err))
	}
	if len(result.Unresolved) > 0 {
		fmt.Fprintf(os.Stderr, "warning: no answer for %s (rendered empty)\n", strings.Join(result.Unresolved, ", "))
	}

	if err := writeOutput(*outPath, result.Document); err != nil {
		exitErr(fmt.Sprintf("write failed: %v", err))
	}
	if err := validateRenderedDocx(*outPath); err != nil {
		exitErr(fmt.Sprintf("render validation failed: %v", err))
	}
	fmt.Printf("OK: wrote %s (%d substitutions)\n", *outPath, result.Substituted)

	if !*doConvert {
		return
	}
	ws, err := convert.NewWorkspace(cfg.PreviewWorkDir)
	if err != nil {
		exitErr(err.Error())
	}
	convCtx, cancel := context.WithTimeout(ctx, cfg.ConvertTimeout)
	defer cancel()
	pdfBytes, err := convert.NewSoffice(cfg.ConverterBinary, ws, 1).Convert(convCtx, convert.Request{
		ID:       uuid.NewString(),
		Editable: result.Document,
	})
	if err != nil {
		exitErr(fmt.Sprintf("convert failed: %v", err))
	}
	pages, _ := convert.PageCount(pdfBytes)
	pdfPath := strings.TrimSuffix(*outPath, filepath.Ext(*outPath)) + ".pdf"
	if err := writeOutput(pdfPath, pdfBytes); err != nil {
		exitErr(fmt.Sprintf("write failed: %v", err))
	}
	fmt.Printf("OK: wrote %s (%d pages)\n", pdfPath, pages)
}

func loadAnswers(path string, sets setFlags) (map[string]string, error) {
	answers := map[string]string{}
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read answers: %w", err)
		}
		if err := json.Unmarshal(raw, &answers); err != nil {
			return nil, fmt.Errorf("parse answers: %w", err)
		}
	}
	for k, v := range sets {
		answers[k] = v
	}
	return answers, nil
}

func writeOutput(outPath string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return err
	}
	return os.WriteFile(outPath, data, 0o644)
}

func validateRenderedDocx(path string) error {
	docxBytes, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	reader, err := zip.NewReader(bytes.NewReader(docxBytes), int64(len(docxBytes)))
	if err != nil {
		return err
	}

	for _, file := range reader.File {
		if normalizeZipName(file.Name) != "word/document.xml" {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return err
		}
		defer rc.Close()

		content, err := io.ReadAll(rc)
		if err != nil {
			return err
		}
		text := string(content)
		if pos := strings.Index(text, "{{"); pos != -1 {
			return fmt.Errorf("unresolved placeholder near: %s", snippetAround(text, pos, 200))
		}
		return nil
	}

	return fmt.Errorf("document.xml not found in docx")
}

func normalizeZipName(name string) string {
	return strings.ReplaceAll(name, "\\", "/")
}

func snippetAround(text string, pos, maxLen int) string {
	if pos < 0 {
		return ""
	}
	start := pos - maxLen/2
	if start < 0 {
		start = 0
	}
	end := start + maxLen
	if end > len(text) {
		end = len(text)
	}
	return text[start:end]
}

func exitErr(msg string) {
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(1)
}
