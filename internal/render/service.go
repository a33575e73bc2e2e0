package render

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"policy-backend/internal/convert"
	"policy-backend/internal/merge"
	"policy-backend/internal/shared/metrics"
	"policy-backend/internal/shared/telemetry"
	"policy-backend/internal/templates"
)

const defaultConvertTimeout = 60 * time.Second

// Resolver returns a value for every blank in scope for a policy.
type Resolver interface {
	ResolveAll(ctx context.Context, policyID, organizationID string) (map[string]string, error)
}

// TemplateLoader returns the binary template for a policy.
type TemplateLoader interface {
	LoadTemplate(ctx context.Context, policyID string) ([]byte, error)
}

// Service runs resolve, load, merge and convert for one request at a time per call.
// Calls share no mutable state beyond the collaborators.
type Service struct {
	Resolver       Resolver
	Templates      TemplateLoader
	Converter      convert.Converter
	Workspace      convert.Workspace
	ConvertTimeout time.Duration
	NewID          func() string
	Now            func() time.Time
	CountPages     func([]byte) (int, error)
}

// NewService constructs a Service with production defaults.
func NewService(resolver Resolver, loader TemplateLoader, converter convert.Converter, ws convert.Workspace, timeout time.Duration) *Service {
	return &Service{
		Resolver:       resolver,
		Templates:      loader,
		Converter:      converter,
		Workspace:      ws,
		ConvertTimeout: timeout,
	}
}

// Render produces a fixed-layout preview of policyID filled with organizationID's answers.
// Every temporary file for the request is gone when Render returns, whatever the outcome.
func (s *Service) Render(ctx context.Context, policyID, organizationID string) (PreviewArtifact, error) {
	policyID = strings.TrimSpace(policyID)
	organizationID = strings.TrimSpace(organizationID)
	if policyID == "" || organizationID == "" {
		return PreviewArtifact{}, newError(KindValidation, "", nil, "policyId and organizationId are required")
	}

	requestID := s.newID()
	started := time.Now()
	metrics.IncRenderStarted()
	telemetry.Info("render.start", map[string]any{
		"request_id":      requestID,
		"policy_id":       policyID,
		"organization_id": organizationID,
	})
	defer s.cleanup(requestID)

	artifact, err := s.run(ctx, requestID, policyID, organizationID)
	durationMs := time.Since(started).Milliseconds()
	if err != nil {
		rerr := s.classify(err)
		rerr.RequestID = requestID
		metrics.IncRenderFailed(string(rerr.Kind))
		fields := map[string]any{
			"request_id":      requestID,
			"policy_id":       policyID,
			"organization_id": organizationID,
			"kind":            string(rerr.Kind),
			"reason":          rerr.Reason,
			"duration_ms":     durationMs,
			"err":             rerr.Err,
		}
		switch rerr.Kind {
		case KindTemplateNotFound, KindTemplateError, KindConverterUnavailable, KindInternal:
			telemetry.Error("render.failed", fields)
		default:
			telemetry.Warn("render.failed", fields)
		}
		return PreviewArtifact{}, rerr
	}

	metrics.IncRenderCompleted()
	telemetry.Info("render.complete", map[string]any{
		"request_id":      requestID,
		"policy_id":       policyID,
		"organization_id": organizationID,
		"bytes":           len(artifact.Bytes),
		"pages":           artifact.Pages,
		"duration_ms":     durationMs,
	})
	return artifact, nil
}

func (s *Service) run(ctx context.Context, requestID, policyID, organizationID string) (PreviewArtifact, error) {
	answers, err := s.Resolver.ResolveAll(ctx, policyID, organizationID)
	if err != nil {
		return PreviewArtifact{}, newError(KindInternal, "", err, "could not resolve answers")
	}

	template, err := s.Templates.LoadTemplate(ctx, policyID)
	if err != nil {
		return PreviewArtifact{}, err
	}

	merged, err := merge.Merge(template, answers)
	if err != nil {
		return PreviewArtifact{}, err
	}
	if len(merged.Unresolved) > 0 {
		telemetry.Warn("render.unresolved_keys", map[string]any{
			"request_id": requestID,
			"policy_id":  policyID,
			"keys":       strings.Join(merged.Unresolved, ","),
		})
	}

	convertCtx, cancel := context.WithTimeout(ctx, s.convertTimeout())
	defer cancel()
	output, err := s.Converter.Convert(convertCtx, convert.Request{ID: requestID, Editable: merged.Document})
	if err != nil {
		if errors.Is(convertCtx.Err(), context.DeadlineExceeded) && !errors.Is(err, convert.ErrConverterUnavailable) {
			return PreviewArtifact{}, &convert.ConversionError{Reason: convert.ReasonTimeout, Err: err}
		}
		return PreviewArtifact{}, err
	}
	// A converter that ignores ctx may still succeed after the deadline.
	if err := convertCtx.Err(); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return PreviewArtifact{}, &convert.ConversionError{Reason: convert.ReasonTimeout, Err: err}
		}
		return PreviewArtifact{}, err
	}

	pages, err := s.countPages(output)
	if err == nil && pages < 1 {
		err = errors.New("output has no pages")
	}
	if err != nil {
		return PreviewArtifact{}, &convert.ConversionError{Reason: convert.ReasonMalformedOutput, Err: err}
	}

	return PreviewArtifact{
		RequestID:   requestID,
		PolicyID:    policyID,
		Format:      FormatPDF,
		ContentType: "application/pdf",
		Bytes:       output,
		Pages:       pages,
		Unresolved:  merged.Unresolved,
		CreatedAt:   s.now(),
	}, nil
}

// classify folds any pipeline error into the unified render error.
func (s *Service) classify(err error) *Error {
	var rerr *Error
	if errors.As(err, &rerr) {
		return rerr
	}
	var unavailable *convert.UnavailableError
	switch {
	case errors.Is(err, templates.ErrTemplateNotFound):
		return newError(KindTemplateNotFound, "", err, "no template is available for this policy")
	case errors.Is(err, templates.ErrInvalidPolicyID):
		return newError(KindValidation, "", err, "policyId is not valid")
	case errors.Is(err, merge.ErrTemplate):
		return newError(KindTemplateError, "", err, "the policy template is corrupt or uses unsupported placeholder syntax")
	case errors.As(err, &unavailable):
		return newError(KindConverterUnavailable, "", err, "preview conversion is not available on this server: %s", unavailable.Remediation)
	case errors.Is(err, convert.ErrConverterUnavailable):
		return newError(KindConverterUnavailable, "", err, "preview conversion is not available on this server")
	case errors.Is(err, convert.ErrConversionFailed):
		reason := convert.ReasonOf(err)
		if reason == convert.ReasonTimeout {
			return newError(KindConversionFailed, reason, err, "preview conversion timed out")
		}
		return newError(KindConversionFailed, reason, err, "preview conversion failed")
	case errors.Is(err, context.Canceled):
		return newError(KindInternal, convert.ReasonCanceled, err, "render was canceled")
	default:
		return newError(KindInternal, "", err, "render failed")
	}
}

func (s *Service) cleanup(requestID string) {
	if s.Workspace.Dir == "" {
		return
	}
	if err := s.Workspace.Remove(requestID); err != nil {
		telemetry.Warn("render.cleanup_failed", map[string]any{"request_id": requestID, "err": err})
	}
}

func (s *Service) newID() string {
	if s.NewID != nil {
		return s.NewID()
	}
	return uuid.NewString()
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

func (s *Service) convertTimeout() time.Duration {
	if s.ConvertTimeout > 0 {
		return s.ConvertTimeout
	}
	return defaultConvertTimeout
}

func (s *Service) countPages(data []byte) (int, error) {
	if s.CountPages != nil {
		return s.CountPages(data)
	}
	return convert.PageCount(data)
}
