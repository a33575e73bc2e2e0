package render

type renderRequest struct {
	PolicyID string `json:"policyId"`
}
