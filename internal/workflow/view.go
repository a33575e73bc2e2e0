package workflow

import (
	"context"
	"errors"
	"fmt"

	"policy-backend/internal/blanks"
)

// Question is the presentation of the current blank.
type Question struct {
	BlankID      string  `json:"blankId"`
	Question     string  `json:"question"`
	Help         string  `json:"help,omitempty"`
	Scope        string  `json:"scope"`
	DefaultValue *string `json:"defaultValue"`
}

// View is what a front-end needs to render one step.
type View struct {
	State    State     `json:"state"`
	Question *Question `json:"question"`
	Index    int       `json:"index"`
	Total    int       `json:"total"`
	CanPrev  bool      `json:"canPrev"`
	CanNext  bool      `json:"canNext"`
	CanSave  bool      `json:"canSave"`
	Outcome  *Outcome  `json:"outcome,omitempty"`
}

// View describes the state for presentation.
func (w *Workflow) View(ctx context.Context, state State) (View, error) {
	v := View{
		State:   state,
		Index:   state.Index,
		Total:   state.Total(),
		CanPrev: state.CanPrev(),
		CanNext: state.CanNext(),
		CanSave: state.CanSave(),
	}
	id, _, ok := state.Current()
	if !ok {
		return v, nil
	}
	b, err := w.Registry.Get(ctx, id)
	if err != nil {
		if errors.Is(err, blanks.ErrNotFound) {
			return View{}, fmt.Errorf("%w: unknown blank %q", ErrInvalidState, id)
		}
		return View{}, err
	}
	v.Question = &Question{
		BlankID:      b.ID,
		Question:     b.Question,
		Help:         b.Help,
		Scope:        string(b.Scope),
		DefaultValue: b.DefaultValue,
	}
	return v, nil
}
