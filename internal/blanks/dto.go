package blanks

type blankResponse struct {
	ID           string  `json:"id"`
	Question     string  `json:"question"`
	Scope        Scope   `json:"scope"`
	PolicyID     string  `json:"policyId,omitempty"`
	DefaultValue *string `json:"defaultValue"`
	Help         string  `json:"help,omitempty"`
}

type policyResponse struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

type listBlanksResponse struct {
	Items []blankResponse `json:"items"`
}

type listPoliciesResponse struct {
	Items []policyResponse `json:"items"`
}

func toBlankResponse(b Blank) blankResponse {
	return blankResponse{
		ID:           b.ID,
		Question:     b.Question,
		Scope:        b.Scope,
		PolicyID:     b.PolicyID,
		DefaultValue: b.DefaultValue,
		Help:         b.Help,
	}
}
