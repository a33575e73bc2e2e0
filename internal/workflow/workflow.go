package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"policy-backend/internal/answers"
	"policy-backend/internal/blanks"
)

// ErrInvalidState is returned for a State that could not have come from Start.
var ErrInvalidState = errors.New("invalid workflow state")

// Resolver supplies the current value of every blank in scope and which of
// them already have a stored answer.
type Resolver interface {
	ResolveAll(ctx context.Context, policyID, organizationID string) (map[string]string, error)
	Stored(ctx context.Context, organizationID string) (map[string]bool, error)
}

// Writer commits answers.
type Writer interface {
	Upsert(ctx context.Context, in answers.UpsertInput) (answers.Answer, error)
}

// Workflow drives question-by-question answer collection. It holds no session
// state; every call takes a State and returns the next one.
type Workflow struct {
	Registry blanks.Registry
	Resolver Resolver
	Writer   Writer
}

// New constructs a Workflow.
func New(registry blanks.Registry, resolver Resolver, writer Writer) *Workflow {
	return &Workflow{Registry: registry, Resolver: resolver, Writer: writer}
}

// Start opens a session at the first question, pre-filled from stored answers and defaults.
func (w *Workflow) Start(ctx context.Context, policyID, organizationID string) (State, error) {
	policyID = strings.TrimSpace(policyID)
	organizationID = strings.TrimSpace(organizationID)
	if policyID == "" || organizationID == "" {
		return State{}, fmt.Errorf("%w: policyId and organizationId are required", ErrInvalidState)
	}

	seq, err := w.Registry.InScope(ctx, policyID)
	if err != nil {
		return State{}, fmt.Errorf("load blanks: %w", err)
	}
	state := State{
		PolicyID:       policyID,
		OrganizationID: organizationID,
		Status:         StatusEmpty,
		BlankIDs:       make([]string, 0, len(seq)),
		Drafts:         make(map[string]Draft, len(seq)),
	}
	if len(seq) == 0 {
		return state, nil
	}

	resolved, err := w.Resolver.ResolveAll(ctx, policyID, organizationID)
	if err != nil {
		return State{}, fmt.Errorf("resolve answers: %w", err)
	}
	stored, err := w.Resolver.Stored(ctx, organizationID)
	if err != nil {
		return State{}, fmt.Errorf("load stored answers: %w", err)
	}
	// A pre-fill from a default is not yet an answer; advancing past it commits it.
	for _, b := range seq {
		state.BlankIDs = append(state.BlankIDs, b.ID)
		state.Drafts[b.ID] = Draft{Value: resolved[b.ID], Dirty: !stored[b.ID]}
	}
	state.Status = StatusAtQuestion
	return state, nil
}

// Edit replaces the working copy of the current answer. Nothing is committed.
func (w *Workflow) Edit(state State, value string, promoteDefault bool) (State, Outcome, error) {
	if err := validate(state); err != nil {
		return state, Outcome{}, err
	}
	if r, ok := inactive(state); ok {
		return state, refused(r), nil
	}
	next := state.clone()
	id, draft, _ := next.Current()
	if draft.Value != value || draft.PromoteDefault != promoteDefault {
		next.Drafts[id] = Draft{Value: value, PromoteDefault: promoteDefault, Dirty: true}
	}
	return next, moved(), nil
}

// Prev moves back one question. Answers are never touched.
func (w *Workflow) Prev(state State) (State, Outcome, error) {
	if err := validate(state); err != nil {
		return state, Outcome{}, err
	}
	if r, ok := inactive(state); ok {
		return state, refused(r), nil
	}
	if state.Index == 0 {
		return state, refused(ReasonAtFirst), nil
	}
	next := state.clone()
	next.Index--
	return next, moved(), nil
}

// Next commits pending edits and advances, provided the current answer is filled.
func (w *Workflow) Next(ctx context.Context, state State) (State, Outcome, error) {
	if err := validate(state); err != nil {
		return state, Outcome{}, err
	}
	if r, ok := inactive(state); ok {
		return state, refused(r), nil
	}
	if state.Index >= state.Total()-1 {
		return state, refused(ReasonAtLast), nil
	}
	if _, d, _ := state.Current(); !filled(d.Value) {
		return state, refused(ReasonEmptyAnswer), nil
	}

	next := state.clone()
	if err := w.commit(ctx, &next); err != nil {
		return state, Outcome{}, err
	}
	next.Index++
	return next, moved(), nil
}

// Save commits pending edits from the last question and completes the session.
func (w *Workflow) Save(ctx context.Context, state State) (State, Outcome, error) {
	if err := validate(state); err != nil {
		return state, Outcome{}, err
	}
	if r, ok := inactive(state); ok {
		return state, refused(r), nil
	}
	if state.Index != state.Total()-1 {
		return state, refused(ReasonNotLast), nil
	}
	if _, d, _ := state.Current(); !filled(d.Value) {
		return state, refused(ReasonEmptyAnswer), nil
	}

	next := state.clone()
	if err := w.commit(ctx, &next); err != nil {
		return state, Outcome{}, err
	}
	next.Status = StatusComplete
	return next, moved(), nil
}

// commit writes every dirty, non-empty draft up to the current question in
// sequence order. Questions not yet reached are left alone. On error the
// caller keeps its original state, so a retry rewrites the same drafts.
func (w *Workflow) commit(ctx context.Context, state *State) error {
	for i, id := range state.BlankIDs {
		if i > state.Index {
			break
		}
		d := state.Drafts[id]
		if !d.Dirty || !filled(d.Value) {
			continue
		}
		if _, err := w.Writer.Upsert(ctx, answers.UpsertInput{
			BlankID:        id,
			OrganizationID: state.OrganizationID,
			Value:          d.Value,
			IsDefault:      d.PromoteDefault,
		}); err != nil {
			return fmt.Errorf("commit %s: %w", id, err)
		}
		d.Dirty = false
		state.Drafts[id] = d
	}
	return nil
}

func inactive(state State) (Reason, bool) {
	switch state.Status {
	case StatusEmpty:
		return ReasonNoQuestions, true
	case StatusComplete:
		return ReasonComplete, true
	}
	return "", false
}

func validate(state State) error {
	switch state.Status {
	case StatusEmpty, StatusComplete:
		return nil
	case StatusAtQuestion:
		if state.Index < 0 || state.Index >= len(state.BlankIDs) {
			return fmt.Errorf("%w: index %d out of range", ErrInvalidState, state.Index)
		}
		if strings.TrimSpace(state.OrganizationID) == "" {
			return fmt.Errorf("%w: organizationId is required", ErrInvalidState)
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown status %q", ErrInvalidState, state.Status)
	}
}

func filled(v string) bool {
	return strings.TrimSpace(v) != ""
}
