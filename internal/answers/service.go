package answers

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"

	"policy-backend/internal/blanks"
	"policy-backend/internal/shared/metrics"
	"policy-backend/internal/shared/telemetry"
)

const maxValueRunes = 4000

// Service applies answer rules on top of a Repo and the blank registry.
type Service struct {
	Repo     Repo
	Registry blanks.Registry
	Now      func() time.Time

	sanitizer *bluemonday.Policy
}

// NewService constructs a Service.
func NewService(repo Repo, registry blanks.Registry) *Service {
	return &Service{
		Repo:      repo,
		Registry:  registry,
		Now:       func() time.Time { return time.Now().UTC() },
		sanitizer: bluemonday.StrictPolicy(),
	}
}

// Get returns the stored answer or ErrNotFound.
func (s *Service) Get(ctx context.Context, blankID, organizationID string) (Answer, error) {
	blankID = strings.TrimSpace(blankID)
	organizationID = strings.TrimSpace(organizationID)
	if blankID == "" || organizationID == "" {
		return Answer{}, fmt.Errorf("%w: blankId and organizationId are required", ErrInvalidInput)
	}
	return s.Repo.Get(ctx, blankID, organizationID)
}

// Upsert writes an answer. Repeating an identical write is a no-op.
func (s *Service) Upsert(ctx context.Context, in UpsertInput) (Answer, error) {
	in.BlankID = strings.TrimSpace(in.BlankID)
	in.OrganizationID = strings.TrimSpace(in.OrganizationID)
	if in.BlankID == "" {
		return Answer{}, fmt.Errorf("%w: blankId is required", ErrInvalidInput)
	}
	if in.OrganizationID == "" {
		return Answer{}, fmt.Errorf("%w: organizationId is required", ErrInvalidInput)
	}
	if utf8.RuneCountInString(in.Value) > maxValueRunes {
		return Answer{}, fmt.Errorf("%w: value exceeds %d characters", ErrInvalidInput, maxValueRunes)
	}
	if _, err := s.Registry.Get(ctx, in.BlankID); err != nil {
		if errors.Is(err, blanks.ErrNotFound) {
			return Answer{}, fmt.Errorf("%w: %s", ErrUnknownBlank, in.BlankID)
		}
		return Answer{}, err
	}

	answer := Answer{
		BlankID:        in.BlankID,
		OrganizationID: in.OrganizationID,
		Value:          s.plainText(in.Value),
		IsDefault:      in.IsDefault,
		UpdatedAt:      s.now(),
	}
	stored, changed, err := s.Repo.Upsert(ctx, answer)
	if err != nil {
		return Answer{}, err
	}

	if changed {
		metrics.IncAnswersUpserted()
		if stored.IsDefault {
			metrics.IncDefaultsPromoted()
		}
		telemetry.Info("answer.upserted", map[string]any{
			"blank_id":        stored.BlankID,
			"organization_id": stored.OrganizationID,
			"is_default":      stored.IsDefault,
		})
	}
	return stored, nil
}

// ResolveAll returns a value for every blank in scope for the policy.
// Precedence: stored non-blank answer, promoted organization default, registry default, "".
func (s *Service) ResolveAll(ctx context.Context, policyID, organizationID string) (map[string]string, error) {
	inScope, err := s.Registry.InScope(ctx, policyID)
	if err != nil {
		return nil, fmt.Errorf("list blanks: %w", err)
	}

	stored, err := s.Repo.ListByOrganization(ctx, organizationID)
	if err != nil {
		return nil, fmt.Errorf("list answers: %w", err)
	}
	byBlank := make(map[string]string, len(stored))
	for _, a := range stored {
		byBlank[a.BlankID] = a.Value
	}

	promoted, err := s.Repo.Defaults(ctx, organizationID)
	if err != nil {
		return nil, fmt.Errorf("list defaults: %w", err)
	}

	resolved := make(map[string]string, len(inScope))
	for _, b := range inScope {
		if v, ok := byBlank[b.ID]; ok && strings.TrimSpace(v) != "" {
			resolved[b.ID] = v
			continue
		}
		if v, ok := promoted[b.ID]; ok {
			resolved[b.ID] = v
			continue
		}
		if v, ok := b.Default(); ok {
			resolved[b.ID] = v
			continue
		}
		resolved[b.ID] = ""
	}
	return resolved, nil
}

// Stored reports which blanks have a non-blank stored answer for the organization.
func (s *Service) Stored(ctx context.Context, organizationID string) (map[string]bool, error) {
	stored, err := s.Repo.ListByOrganization(ctx, organizationID)
	if err != nil {
		return nil, fmt.Errorf("list answers: %w", err)
	}
	out := make(map[string]bool, len(stored))
	for _, a := range stored {
		if strings.TrimSpace(a.Value) != "" {
			out[a.BlankID] = true
		}
	}
	return out, nil
}

// plainText strips markup; values without angle brackets are kept verbatim.
func (s *Service) plainText(v string) string {
	if !strings.ContainsAny(v, "<>") {
		return v
	}
	p := s.sanitizer
	if p == nil {
		p = bluemonday.StrictPolicy()
	}
	return html.UnescapeString(p.Sanitize(v))
}

func (s *Service) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now()
}
