package templates

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"policy-backend/internal/shared/storage/object"
	"policy-backend/internal/shared/util"
)

// ContentType is the media type templates are stored with.
const ContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

const maxTemplateBytes = 100 << 20

var (
	// ErrTemplateNotFound means no template is stored for the policy.
	ErrTemplateNotFound = errors.New("template not found")
	// ErrInvalidPolicyID means the policy id cannot name a template.
	ErrInvalidPolicyID = errors.New("invalid policy id")
)

// Store loads binary templates keyed by policy id from an object store.
type Store struct {
	Objects object.ObjectStore
	Prefix  string
}

// NewStore returns a template store reading <prefix>/<policyId>.docx keys.
func NewStore(objects object.ObjectStore, prefix string) *Store {
	return &Store{Objects: objects, Prefix: strings.Trim(prefix, "/")}
}

// Key returns the object key for a policy's template.
func (s *Store) Key(policyID string) (string, error) {
	id, err := util.SanitizeSegment(policyID)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidPolicyID, policyID)
	}
	name := id + ".docx"
	if s.Prefix == "" {
		return name, nil
	}
	return path.Join(s.Prefix, name), nil
}

// LoadTemplate returns the template bytes for policyID.
func (s *Store) LoadTemplate(ctx context.Context, policyID string) ([]byte, error) {
	key, err := s.Key(policyID)
	if err != nil {
		return nil, err
	}
	body, err := s.Objects.Open(ctx, key)
	if err != nil {
		if errors.Is(err, object.ErrNotFound) {
			return nil, fmt.Errorf("%w: policy %s", ErrTemplateNotFound, policyID)
		}
		return nil, fmt.Errorf("load template policy=%s: %w", policyID, err)
	}
	defer body.Close()

	data, err := io.ReadAll(io.LimitReader(body, maxTemplateBytes+1))
	if err != nil {
		return nil, fmt.Errorf("load template policy=%s: read: %w", policyID, err)
	}
	if len(data) > maxTemplateBytes {
		return nil, fmt.Errorf("load template policy=%s: exceeds %d bytes", policyID, maxTemplateBytes)
	}
	return data, nil
}

// SaveTemplate stores a template for policyID, replacing any previous one.
func (s *Store) SaveTemplate(ctx context.Context, policyID string, data []byte) error {
	key, err := s.Key(policyID)
	if err != nil {
		return err
	}
	if _, err := s.Objects.Put(ctx, key, ContentType, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("save template policy=%s: %w", policyID, err)
	}
	return nil
}
