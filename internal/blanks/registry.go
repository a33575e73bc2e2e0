package blanks

import "context"

// Registry exposes the admin-authored blank and policy definitions.
// Unknown policies yield empty results, never errors.
type Registry interface {
	ListBlanks(ctx context.Context, filter Filter) ([]Blank, error)
	// InScope returns the question sequence for a policy: common blanks first, then the policy's own.
	InScope(ctx context.Context, policyID string) ([]Blank, error)
	Get(ctx context.Context, id string) (Blank, error)
	GetDefault(ctx context.Context, id string) (string, bool, error)
	ListPolicies(ctx context.Context) ([]Policy, error)
}
