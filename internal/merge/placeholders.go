package merge

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	markerPattern = regexp.MustCompile(`(?s)\{\{(.*?)\}\}`)
	keyPattern    = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_.-]*$`)
)

// marker is one {{ key }} occurrence in a paragraph's joined text.
type marker struct {
	start, end int
	key        string
}

// scanMarkers finds markers in text and rejects anything that is not a plain key.
// Block tags and unclosed openers are rejected too; nothing is ever evaluated.
func scanMarkers(text string) ([]marker, error) {
	if !strings.Contains(text, "{{") && !strings.Contains(text, "{%") {
		return nil, nil
	}
	matches := markerPattern.FindAllStringSubmatchIndex(text, -1)
	out := make([]marker, 0, len(matches))
	var rest strings.Builder
	prev := 0
	for _, m := range matches {
		raw := text[m[0]:m[1]]
		key := strings.TrimSpace(text[m[2]:m[3]])
		if !keyPattern.MatchString(key) {
			return nil, fmt.Errorf("unsupported placeholder expression %s", quoteMarker(raw))
		}
		out = append(out, marker{start: m[0], end: m[1], key: key})
		rest.WriteString(text[prev:m[0]])
		prev = m[1]
	}
	rest.WriteString(text[prev:])

	leftover := rest.String()
	if idx := strings.Index(leftover, "{%"); idx != -1 {
		return nil, fmt.Errorf("unsupported block tag %s", quoteMarker(snippet(leftover, idx)))
	}
	if idx := strings.Index(leftover, "{{"); idx != -1 {
		return nil, fmt.Errorf("unclosed placeholder %s", quoteMarker(snippet(leftover, idx)))
	}
	return out, nil
}

func snippet(text string, idx int) string {
	end := idx + 40
	if end > len(text) {
		end = len(text)
	}
	return text[idx:end]
}

func quoteMarker(raw string) string {
	if len(raw) > 60 {
		raw = raw[:60] + "..."
	}
	return fmt.Sprintf("%q", raw)
}

// textRun is one w:t element and its span in the paragraph's joined text.
type textRun struct {
	node       *xmlNode
	text       string
	start, end int
}

// paragraphRuns collects the w:t elements owned by p, skipping nested paragraphs
// (text boxes) which are processed on their own.
func paragraphRuns(p *xmlNode) []textRun {
	var runs []textRun
	offset := 0
	var visit func(n *xmlNode)
	visit = func(n *xmlNode) {
		for _, child := range n.Children {
			switch {
			case child.IsText:
			case isElement(child, "p"):
			case isElement(child, "t"):
				text := nodeText(child)
				runs = append(runs, textRun{node: child, text: text, start: offset, end: offset + len(text)})
				offset += len(text)
			default:
				visit(child)
			}
		}
	}
	visit(p)
	return runs
}

// substituteParagraph replaces every marker in p. A marker split across runs is
// written into the run where it starts; the other runs keep their formatting and
// lose only the marker characters.
func substituteParagraph(p *xmlNode, lookup func(key string) string) (int, error) {
	runs := paragraphRuns(p)
	if len(runs) == 0 {
		return 0, nil
	}
	var joined strings.Builder
	for _, r := range runs {
		joined.WriteString(r.text)
	}
	markers, err := scanMarkers(joined.String())
	if err != nil || len(markers) == 0 {
		return 0, err
	}

	texts := make([]string, len(runs))
	for i, r := range runs {
		texts[i] = r.text
	}
	touched := make([]bool, len(runs))
	receives := make([]bool, len(runs))

	// Back to front so earlier offsets stay valid.
	for mi := len(markers) - 1; mi >= 0; mi-- {
		m := markers[mi]
		value := lookup(m.key)
		for i, r := range runs {
			if r.end <= m.start || r.start >= m.end {
				continue
			}
			lo := max(m.start, r.start) - r.start
			hi := min(m.end, r.end) - r.start
			if m.start >= r.start && m.start < r.end {
				texts[i] = texts[i][:lo] + value + texts[i][hi:]
				receives[i] = true
			} else {
				texts[i] = texts[i][:lo] + texts[i][hi:]
			}
			touched[i] = true
		}
	}

	for i, r := range runs {
		if !touched[i] {
			continue
		}
		setNodeText(r.node, texts[i])
		if receives[i] {
			preserveSpace(r.node)
		}
	}
	return len(markers), nil
}

// collectParagraphs returns every w:p in document order, nested ones included.
func collectParagraphs(root *xmlNode) []*xmlNode {
	var out []*xmlNode
	walkXML(root, func(n *xmlNode) bool {
		if isElement(n, "p") {
			out = append(out, n)
		}
		return true
	})
	return out
}
