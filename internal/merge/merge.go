package merge

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strings"
)

// ErrTemplate marks a template that cannot be merged. It is fatal for the request.
var ErrTemplate = errors.New("template error")

const (
	documentPart = "word/document.xml"
	maxPartBytes = 64 << 20
)

var contentPartPattern = regexp.MustCompile(`^word/(document|header[0-9]*|footer[0-9]*|footnotes|endnotes)\.xml$`)

// Result is a merged document plus a report of what was substituted.
type Result struct {
	Document []byte
	// Substituted counts markers replaced across all parts.
	Substituted int
	// Unresolved lists keys the template referenced that the answer map lacked; they rendered empty.
	Unresolved []string
}

// Merge fills every {{ key }} marker in the template's text parts with answers[key].
// The template bytes are not modified.
func Merge(template []byte, answers map[string]string) (Result, error) {
	reader, err := openPackage(template)
	if err != nil {
		return Result{}, err
	}

	unresolved := make(map[string]struct{})
	lookup := func(key string) string {
		v, ok := answers[key]
		if !ok {
			unresolved[key] = struct{}{}
		}
		return v
	}

	var output bytes.Buffer
	writer := zip.NewWriter(&output)
	substituted := 0

	for _, file := range reader.File {
		content, err := readZipFile(file)
		if err != nil {
			return Result{}, fmt.Errorf("%w: read %s: %v", ErrTemplate, file.Name, err)
		}
		if name := normalizeZipName(file.Name); contentPartPattern.MatchString(name) {
			updated, n, err := mergePart(content, lookup)
			if err != nil {
				return Result{}, fmt.Errorf("%w: %s: %v", ErrTemplate, name, err)
			}
			content = updated
			substituted += n
		}
		if err := writeZipFile(writer, file, content); err != nil {
			return Result{}, fmt.Errorf("write %s: %w", file.Name, err)
		}
	}
	if err := writer.Close(); err != nil {
		return Result{}, fmt.Errorf("close package: %w", err)
	}

	return Result{
		Document:    output.Bytes(),
		Substituted: substituted,
		Unresolved:  sortedKeys(unresolved),
	}, nil
}

// Placeholders lists the distinct keys a template references, sorted.
func Placeholders(template []byte) ([]string, error) {
	reader, err := openPackage(template)
	if err != nil {
		return nil, err
	}
	keys := make(map[string]struct{})
	for _, file := range reader.File {
		name := normalizeZipName(file.Name)
		if !contentPartPattern.MatchString(name) {
			continue
		}
		content, err := readZipFile(file)
		if err != nil {
			return nil, fmt.Errorf("%w: read %s: %v", ErrTemplate, name, err)
		}
		part, err := parsePart(string(content))
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrTemplate, name, err)
		}
		for _, p := range collectParagraphs(part.root) {
			var joined strings.Builder
			for _, r := range paragraphRuns(p) {
				joined.WriteString(r.text)
			}
			markers, err := scanMarkers(joined.String())
			if err != nil {
				return nil, fmt.Errorf("%w: %s: %v", ErrTemplate, name, err)
			}
			for _, m := range markers {
				keys[m.key] = struct{}{}
			}
		}
	}
	return sortedKeys(keys), nil
}

func openPackage(template []byte) (*zip.Reader, error) {
	reader, err := zip.NewReader(bytes.NewReader(template), int64(len(template)))
	if err != nil {
		return nil, fmt.Errorf("%w: not a document package: %v", ErrTemplate, err)
	}
	for _, file := range reader.File {
		if normalizeZipName(file.Name) == documentPart {
			return reader, nil
		}
	}
	return nil, fmt.Errorf("%w: %s missing", ErrTemplate, documentPart)
}

func mergePart(content []byte, lookup func(string) string) ([]byte, int, error) {
	part, err := parsePart(string(content))
	if err != nil {
		return nil, 0, err
	}

	total := 0
	for _, p := range collectParagraphs(part.root) {
		n, err := substituteParagraph(p, lookup)
		if err != nil {
			return nil, 0, err
		}
		total += n
	}
	if total == 0 {
		return content, 0, nil
	}

	encoded, err := part.encode()
	if err != nil {
		return nil, 0, err
	}
	if err := checkWellFormed(encoded); err != nil {
		return nil, 0, err
	}
	return []byte(encoded), total, nil
}

func readZipFile(file *zip.File) ([]byte, error) {
	rc, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	content, err := io.ReadAll(io.LimitReader(rc, maxPartBytes+1))
	if err != nil {
		return nil, err
	}
	if len(content) > maxPartBytes {
		return nil, fmt.Errorf("part exceeds %d bytes", maxPartBytes)
	}
	return content, nil
}

func writeZipFile(writer *zip.Writer, source *zip.File, content []byte) error {
	header := source.FileHeader
	header.Name = normalizeZipName(source.Name)

	dst, err := writer.CreateHeader(&header)
	if err != nil {
		return err
	}
	_, err = dst.Write(content)
	return err
}

func normalizeZipName(name string) string {
	return strings.ReplaceAll(name, "\\", "/")
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
