package answers

import "time"

type upsertRequest struct {
	BlankID   string `json:"blankId"`
	Value     string `json:"value"`
	IsDefault bool   `json:"isDefault"`
}

type answerResponse struct {
	BlankID        string    `json:"blankId"`
	OrganizationID string    `json:"organizationId"`
	Value          string    `json:"value"`
	IsDefault      bool      `json:"isDefault"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

type resolvedResponse struct {
	PolicyID string            `json:"policyId"`
	Answers  map[string]string `json:"answers"`
}

func toResponse(a Answer) answerResponse {
	return answerResponse{
		BlankID:        a.BlankID,
		OrganizationID: a.OrganizationID,
		Value:          a.Value,
		IsDefault:      a.IsDefault,
		UpdatedAt:      a.UpdatedAt,
	}
}
