package render

import "time"

// FormatPDF is the only fixed-layout format produced.
const FormatPDF = "pdf"

// PreviewArtifact is the read-only result of one successful render.
type PreviewArtifact struct {
	RequestID   string
	PolicyID    string
	Format      string
	ContentType string
	Bytes       []byte
	Pages       int
	// Unresolved lists template keys that had no answer and rendered empty.
	Unresolved []string
	CreatedAt  time.Time
}

// FileName is the suggested download name.
func (a PreviewArtifact) FileName() string {
	return "preview_" + a.PolicyID + "." + a.Format
}
