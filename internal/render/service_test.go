package render

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"golang.org/x/sync/errgroup"

	"policy-backend/internal/answers"
	"policy-backend/internal/blanks"
	"policy-backend/internal/convert"
	"policy-backend/internal/convert/converttest"
	"policy-backend/internal/shared/storage/object/local"
	"policy-backend/internal/templates"
)

func strPtr(s string) *string { return &s }

type fixture struct {
	svc       *Service
	answers   *answers.Service
	templates *templates.Store
	conv      *converttest.Converter
	ws        convert.Workspace
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	catalog, err := blanks.NewCatalog(
		[]blanks.Policy{{ID: "password", Title: "Password"}, {ID: "access-control", Title: "Access Control"}},
		[]blanks.Blank{
			{ID: "company_name", Question: "Company name?", Scope: blanks.ScopeCommon, DefaultValue: strPtr("")},
			{ID: "review_cycle", Question: "Review cycle?", Scope: blanks.ScopePolicy, PolicyID: "password"},
			{ID: "access_review_cycle", Question: "Access reviews?", Scope: blanks.ScopePolicy, PolicyID: "access-control", DefaultValue: strPtr("annually")},
		},
	)
	if err != nil {
		t.Fatalf("NewCatalog: %v", err)
	}
	answerSvc := answers.NewService(answers.NewMemoryRepo(), blanks.NewMemoryRegistry(catalog))
	store := templates.NewStore(local.New(t.TempDir()), "templates")

	ws, err := convert.NewWorkspace(filepath.Join(t.TempDir(), "previews"))
	if err != nil {
		t.Fatalf("NewWorkspace: %v", err)
	}
	conv := &converttest.Converter{Workspace: ws, Output: converttest.PDF(1)}

	return &fixture{
		svc:       NewService(answerSvc, store, conv, ws, 5*time.Second),
		answers:   answerSvc,
		templates: store,
		conv:      conv,
		ws:        ws,
	}
}

func (f *fixture) saveTemplate(t *testing.T, policyID, body string) {
	t.Helper()
	if err := f.templates.SaveTemplate(context.Background(), policyID, docx(t, body)); err != nil {
		t.Fatalf("SaveTemplate: %v", err)
	}
}

func (f *fixture) answer(t *testing.T, blankID, value string, isDefault bool) {
	t.Helper()
	_, err := f.answers.Upsert(context.Background(), answers.UpsertInput{
		BlankID: blankID, OrganizationID: "org1", Value: value, IsDefault: isDefault,
	})
	if err != nil {
		t.Fatalf("Upsert %s: %v", blankID, err)
	}
}

func docx(t *testing.T, paragraphText string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	f, err := w.Create("word/document.xml")
	if err != nil {
		t.Fatal(err)
	}
	fmt.Fprintf(f, `<?xml version="1.0" encoding="UTF-8"?>`+
		`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">`+
		`<w:body><w:p><w:r><w:t>%s</w:t></w:r></w:p></w:body></w:document>`, paragraphText)
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func documentText(t *testing.T, data []byte) string {
	t.Helper()
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("open merged document: %v", err)
	}
	for _, f := range r.File {
		if f.Name == "word/document.xml" {
			rc, err := f.Open()
			if err != nil {
				t.Fatal(err)
			}
			defer rc.Close()
			raw, err := io.ReadAll(rc)
			if err != nil {
				t.Fatal(err)
			}
			return string(raw)
		}
	}
	t.Fatal("word/document.xml missing from merged document")
	return ""
}

func assertWorkspaceEmpty(t *testing.T, ws convert.Workspace) {
	t.Helper()
	entries, err := os.ReadDir(ws.Dir)
	if err != nil {
		t.Fatalf("read workspace: %v", err)
	}
	if len(entries) != 0 {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Fatalf("expected empty workspace, found %v", names)
	}
}

func TestRenderMergesOrganizationAnswers(t *testing.T) {
	f := newFixture(t)
	f.saveTemplate(t, "password", "Company: {{company_name}} reviews {{ review_cycle }}")
	f.saveTemplate(t, "access-control", "{{company_name}} reviews access {{access_review_cycle}}")
	f.answer(t, "company_name", "Acme", true)
	f.answer(t, "review_cycle", "quarterly", false)

	artifact, err := f.svc.Render(context.Background(), "password", "org1")
	if err != nil {
		t.Fatalf("Render password: %v", err)
	}
	if artifact.Format != FormatPDF || artifact.ContentType != "application/pdf" || artifact.Pages != 1 {
		t.Fatalf("unexpected artifact metadata: %+v", artifact)
	}
	if !bytes.HasPrefix(artifact.Bytes, []byte("%PDF-")) {
		t.Fatalf("artifact is not a pdf")
	}
	calls := f.conv.Calls()
	if len(calls) != 1 || calls[0].ID != artifact.RequestID {
		t.Fatalf("expected one conversion for %s, got %+v", artifact.RequestID, calls)
	}
	if got := documentText(t, calls[0].Editable); !strings.Contains(got, "Company: Acme reviews quarterly") {
		t.Fatalf("password template not merged:\n%s", got)
	}

	if _, err := f.svc.Render(context.Background(), "access-control", "org1"); err != nil {
		t.Fatalf("Render access-control: %v", err)
	}
	calls = f.conv.Calls()
	if got := documentText(t, calls[1].Editable); !strings.Contains(got, "Acme reviews access annually") {
		t.Fatalf("promoted default not visible to second policy:\n%s", got)
	}
	assertWorkspaceEmpty(t, f.ws)
}

func TestRenderRemovesTemporaryFilesOnEveryOutcome(t *testing.T) {
	tests := []struct {
		name   string
		setup  func(t *testing.T, f *fixture)
		kind   Kind
		reason string
	}{
		{name: "success"},
		{
			name:  "template error",
			setup: func(t *testing.T, f *fixture) { f.saveTemplate(t, "password", "{{ company_name | upper }}") },
			kind:  KindTemplateError,
		},
		{
			name:  "template not found",
			setup: func(t *testing.T, f *fixture) { f.svc.Templates = templates.NewStore(local.New(t.TempDir()), "") },
			kind:  KindTemplateNotFound,
		},
		{
			name:   "conversion failed",
			setup:  func(t *testing.T, f *fixture) { f.conv.Err = &convert.ConversionError{Reason: convert.ReasonExitStatus, ExitCode: 1} },
			kind:   KindConversionFailed,
			reason: convert.ReasonExitStatus,
		},
		{
			name: "converter unavailable",
			setup: func(t *testing.T, f *fixture) {
				f.conv.Err = &convert.UnavailableError{Binary: "soffice", Remediation: "install it"}
			},
			kind: KindConverterUnavailable,
		},
		{
			name: "timeout",
			setup: func(t *testing.T, f *fixture) {
				f.svc.ConvertTimeout = 20 * time.Millisecond
				f.conv.Hook = func(convert.Request) { time.Sleep(100 * time.Millisecond) }
			},
			kind:   KindConversionFailed,
			reason: convert.ReasonTimeout,
		},
		{
			name:   "malformed output",
			setup:  func(t *testing.T, f *fixture) { f.conv.Output = []byte("not a pdf") },
			kind:   KindConversionFailed,
			reason: convert.ReasonMalformedOutput,
		},
	}
	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.saveTemplate(t, "password", "{{company_name}}")
			requestID := fmt.Sprintf("req-%d", i)
			f.svc.NewID = func() string { return requestID }
			if tt.setup != nil {
				tt.setup(t, f)
			}

			artifact, err := f.svc.Render(context.Background(), "password", "org1")
			if tt.kind == "" {
				if err != nil {
					t.Fatalf("Render: %v", err)
				}
				if artifact.RequestID != requestID {
					t.Fatalf("expected request id %s, got %s", requestID, artifact.RequestID)
				}
			} else {
				var rerr *Error
				if !errors.As(err, &rerr) {
					t.Fatalf("expected *Error, got %v", err)
				}
				if rerr.Kind != tt.kind || rerr.Reason != tt.reason {
					t.Fatalf("expected %s/%s, got %s/%s (%v)", tt.kind, tt.reason, rerr.Kind, rerr.Reason, err)
				}
				if rerr.RequestID != requestID {
					t.Fatalf("expected request id %s on error, got %s", requestID, rerr.RequestID)
				}
				if len(artifact.Bytes) != 0 {
					t.Fatalf("failed render returned a partial artifact")
				}
			}
			if left := f.ws.Leftovers(requestID); len(left) != 0 {
				t.Fatalf("temporary files survived: %v", left)
			}
			assertWorkspaceEmpty(t, f.ws)
		})
	}
}

func TestConcurrentRendersAreIsolated(t *testing.T) {
	f := newFixture(t)
	f.saveTemplate(t, "password", "{{company_name}}")
	f.answer(t, "company_name", "Acme", true)

	const renders = 6
	var (
		mu       sync.Mutex
		arrived  int
		allHere  = make(chan struct{})
		failures []string
	)
	f.conv.Hook = func(req convert.Request) {
		mu.Lock()
		arrived++
		if arrived == renders {
			close(allHere)
		}
		mu.Unlock()

		select {
		case <-allHere:
		case <-time.After(5 * time.Second):
		}
		if _, err := os.Stat(f.ws.EditablePath(req.ID)); err != nil {
			mu.Lock()
			failures = append(failures, fmt.Sprintf("%s: editable file missing while in flight: %v", req.ID, err))
			mu.Unlock()
		}
	}

	ids := make([]string, renders)
	var g errgroup.Group
	for i := 0; i < renders; i++ {
		g.Go(func() error {
			artifact, err := f.svc.Render(context.Background(), "password", "org1")
			if err != nil {
				return err
			}
			ids[i] = artifact.RequestID
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("concurrent render: %v", err)
	}
	if len(failures) > 0 {
		t.Fatalf("renders interfered: %v", failures)
	}

	seen := make(map[string]bool, renders)
	for _, id := range ids {
		if id == "" || seen[id] {
			t.Fatalf("request ids are not unique: %v", ids)
		}
		seen[id] = true
	}
	assertWorkspaceEmpty(t, f.ws)
}

func TestRenderRequiresPolicyAndOrganization(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Render(context.Background(), "password", "  ")
	var rerr *Error
	if !errors.As(err, &rerr) || rerr.Kind != KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(f.conv.Calls()) != 0 {
		t.Fatalf("converter must not run for invalid input")
	}
}

type failingResolver struct{}

func (failingResolver) ResolveAll(context.Context, string, string) (map[string]string, error) {
	return nil, errors.New("database unavailable")
}

func TestRenderResolverFailureIsInternal(t *testing.T) {
	f := newFixture(t)
	f.saveTemplate(t, "password", "{{company_name}}")
	f.svc.Resolver = failingResolver{}

	_, err := f.svc.Render(context.Background(), "password", "org1")
	var rerr *Error
	if !errors.As(err, &rerr) || rerr.Kind != KindInternal {
		t.Fatalf("expected internal error, got %v", err)
	}
	if strings.Contains(rerr.Message, "database") {
		t.Fatalf("message leaks internal detail: %q", rerr.Message)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  *Error
		want int
	}{
		{&Error{Kind: KindTemplateNotFound}, http.StatusNotFound},
		{&Error{Kind: KindTemplateError}, http.StatusUnprocessableEntity},
		{&Error{Kind: KindConverterUnavailable}, http.StatusServiceUnavailable},
		{&Error{Kind: KindConversionFailed, Reason: convert.ReasonExitStatus}, http.StatusBadGateway},
		{&Error{Kind: KindConversionFailed, Reason: convert.ReasonTimeout}, http.StatusGatewayTimeout},
		{&Error{Kind: KindValidation}, http.StatusBadRequest},
		{&Error{Kind: KindInternal}, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := StatusFor(tt.err); got != tt.want {
			t.Fatalf("%s/%s: expected %d, got %d", tt.err.Kind, tt.err.Reason, tt.want, got)
		}
	}
}

// lateConverter ignores ctx and succeeds after delay.
type lateConverter struct {
	delay time.Duration
}

func (c lateConverter) Convert(context.Context, convert.Request) ([]byte, error) {
	time.Sleep(c.delay)
	return converttest.PDF(1), nil
}

func TestRenderRejectsOutputAfterDeadline(t *testing.T) {
	f := newFixture(t)
	f.saveTemplate(t, "password", "{{company_name}}")
	f.svc.ConvertTimeout = 20 * time.Millisecond
	f.svc.Converter = lateConverter{delay: 100 * time.Millisecond}

	artifact, err := f.svc.Render(context.Background(), "password", "org1")
	var rerr *Error
	if !errors.As(err, &rerr) {
		t.Fatalf("expected *Error, got %v", err)
	}
	if rerr.Kind != KindConversionFailed || rerr.Reason != convert.ReasonTimeout {
		t.Fatalf("expected %s/%s, got %s/%s", KindConversionFailed, convert.ReasonTimeout, rerr.Kind, rerr.Reason)
	}
	if len(artifact.Bytes) != 0 {
		t.Fatalf("late output must not be returned")
	}
	assertWorkspaceEmpty(t, f.ws)
}
