package workflow

// Status is the coarse workflow state.
type Status string

const (
	// StatusEmpty means the policy has no blanks in scope; no transitions are exposed.
	StatusEmpty      Status = "empty"
	StatusAtQuestion Status = "at_question"
	StatusComplete   Status = "complete"
)

// Draft is the in-session working copy of one answer.
type Draft struct {
	Value string `json:"value"`
	// PromoteDefault asks the store to promote Value to the organization default on commit.
	PromoteDefault bool `json:"promoteDefault"`
	// Dirty drafts differ from what was last committed.
	Dirty bool `json:"dirty"`
}

// State is the full session, passed in and returned by every call.
// BlankIDs is the question sequence captured at Start.
type State struct {
	PolicyID       string           `json:"policyId"`
	OrganizationID string           `json:"organizationId"`
	Status         Status           `json:"status"`
	Index          int              `json:"index"`
	BlankIDs       []string         `json:"blankIds"`
	Drafts         map[string]Draft `json:"drafts"`
}

// Total is the number of questions in the session.
func (s State) Total() int {
	return len(s.BlankIDs)
}

// Current returns the blank id and draft at Index.
func (s State) Current() (string, Draft, bool) {
	if s.Status != StatusAtQuestion || s.Index < 0 || s.Index >= len(s.BlankIDs) {
		return "", Draft{}, false
	}
	id := s.BlankIDs[s.Index]
	return id, s.Drafts[id], true
}

// CanPrev reports whether Prev would move.
func (s State) CanPrev() bool {
	return s.Status == StatusAtQuestion && s.Index > 0
}

// CanNext reports whether Next would move.
func (s State) CanNext() bool {
	_, d, ok := s.Current()
	return ok && s.Index < len(s.BlankIDs)-1 && filled(d.Value)
}

// CanSave reports whether Save would complete the session.
func (s State) CanSave() bool {
	_, d, ok := s.Current()
	return ok && s.Index == len(s.BlankIDs)-1 && filled(d.Value)
}

func (s State) clone() State {
	out := s
	out.BlankIDs = append([]string(nil), s.BlankIDs...)
	out.Drafts = make(map[string]Draft, len(s.Drafts))
	for k, v := range s.Drafts {
		out.Drafts[k] = v
	}
	return out
}

// Reason explains why a transition did or did not move.
type Reason string

const (
	ReasonMoved       Reason = ""
	ReasonEmptyAnswer Reason = "empty_answer"
	ReasonAtFirst     Reason = "at_first"
	ReasonAtLast      Reason = "at_last"
	ReasonNotLast     Reason = "not_last"
	ReasonNoQuestions Reason = "no_questions"
	ReasonComplete    Reason = "complete"
)

// Outcome reports the result of a transition. A refused transition is not an error.
type Outcome struct {
	Moved  bool   `json:"moved"`
	Reason Reason `json:"reason,omitempty"`
}

func moved() Outcome { return Outcome{Moved: true} }

func refused(r Reason) Outcome { return Outcome{Reason: r} }
