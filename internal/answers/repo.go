package answers

import "context"

// Repo persists answers and organization-scoped promoted defaults.
type Repo interface {
	Get(ctx context.Context, blankID, organizationID string) (Answer, error)
	ListByOrganization(ctx context.Context, organizationID string) ([]Answer, error)
	// Upsert writes the answer and, when IsDefault is set, the promoted default as one unit.
	// changed is false when the stored answer already had the same value and flag.
	Upsert(ctx context.Context, answer Answer) (stored Answer, changed bool, err error)
	Defaults(ctx context.Context, organizationID string) (map[string]string, error)
}
