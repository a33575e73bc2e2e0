package workflow

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"policy-backend/internal/answers"
	"policy-backend/internal/blanks"
)

func strPtr(s string) *string { return &s }

type fixture struct {
	wf   *Workflow
	svc  *answers.Service
	repo *answers.MemoryRepo
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	catalog, err := blanks.NewCatalog(
		[]blanks.Policy{{ID: "password"}, {ID: "solo"}, {ID: "blank-free"}},
		[]blanks.Blank{
			{ID: "company_name", Question: "Company?", Scope: blanks.ScopeCommon, DefaultValue: strPtr("")},
			{ID: "review_cycle", Question: "Cycle?", Scope: blanks.ScopePolicy, PolicyID: "password"},
			{ID: "min_length", Question: "Length?", Scope: blanks.ScopePolicy, PolicyID: "password", DefaultValue: strPtr("12")},
		},
	)
	require.NoError(t, err)
	registry := blanks.NewMemoryRegistry(catalog)
	repo := answers.NewMemoryRepo()
	svc := answers.NewService(repo, registry)
	return fixture{wf: New(registry, svc, svc), svc: svc, repo: repo}
}

func TestStartPrefillsFromResolvedAnswers(t *testing.T) {
	f := newFixture(t)

	state, err := f.wf.Start(context.Background(), "password", "org1")
	require.NoError(t, err)

	assert.Equal(t, StatusAtQuestion, state.Status)
	assert.Equal(t, 0, state.Index)
	assert.Equal(t, []string{"company_name", "review_cycle", "min_length"}, state.BlankIDs)
	assert.Equal(t, "12", state.Drafts["min_length"].Value)
	assert.True(t, state.Drafts["min_length"].Dirty, "a default pre-fill is not yet a stored answer")
}

func TestStartUnknownPolicyIsEmpty(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	state, err := f.wf.Start(ctx, "ghost", "org1")
	require.NoError(t, err)
	assert.Equal(t, StatusEmpty, state.Status)
	assert.Empty(t, state.BlankIDs)

	_, outcome, err := f.wf.Next(ctx, state)
	require.NoError(t, err)
	assert.Equal(t, ReasonNoQuestions, outcome.Reason)

	stored, err := f.repo.ListByOrganization(ctx, "org1")
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestAdvancingPastDefaultStoresIt(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	state, err := f.wf.Start(ctx, "password", "org1")
	require.NoError(t, err)
	state, _, _ = f.wf.Edit(state, "Acme", false)
	state, _, _ = f.wf.Next(ctx, state)

	_, err = f.repo.Get(ctx, "min_length", "org1")
	assert.ErrorIs(t, err, answers.ErrNotFound, "questions not yet reached are not committed")

	state, _, _ = f.wf.Edit(state, "monthly", false)
	state, outcome, err := f.wf.Next(ctx, state)
	require.NoError(t, err)
	require.True(t, outcome.Moved)
	assert.Equal(t, "12", state.Drafts["min_length"].Value)

	state, outcome, err = f.wf.Save(ctx, state)
	require.NoError(t, err)
	require.True(t, outcome.Moved)

	stored, err := f.repo.Get(ctx, "min_length", "org1")
	require.NoError(t, err)
	assert.Equal(t, "12", stored.Value)
	assert.False(t, state.Drafts["min_length"].Dirty)

	again, err := f.wf.Start(ctx, "password", "org1")
	require.NoError(t, err)
	assert.False(t, again.Drafts["min_length"].Dirty)
	assert.False(t, again.Drafts["review_cycle"].Dirty)
}

func TestNextGatesOnEmptyAnswer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	state, err := f.wf.Start(ctx, "password", "org1")
	require.NoError(t, err)

	after, outcome, err := f.wf.Next(ctx, state)
	require.NoError(t, err)
	assert.False(t, outcome.Moved)
	assert.Equal(t, ReasonEmptyAnswer, outcome.Reason)
	assert.Equal(t, 0, after.Index)

	state, _, err = f.wf.Edit(state, "   ", false)
	require.NoError(t, err)
	_, outcome, err = f.wf.Next(ctx, state)
	require.NoError(t, err)
	assert.Equal(t, ReasonEmptyAnswer, outcome.Reason, "whitespace-only answers do not pass the gate")

	state, _, err = f.wf.Edit(state, "Acme", false)
	require.NoError(t, err)
	state, outcome, err = f.wf.Next(ctx, state)
	require.NoError(t, err)
	assert.True(t, outcome.Moved)
	assert.Equal(t, 1, state.Index)
}

func TestPrevKeepsAnswers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	state, err := f.wf.Start(ctx, "password", "org1")
	require.NoError(t, err)
	state, _, err = f.wf.Edit(state, "Acme", false)
	require.NoError(t, err)
	state, _, err = f.wf.Next(ctx, state)
	require.NoError(t, err)

	state, _, err = f.wf.Edit(state, "quarterly", false)
	require.NoError(t, err)
	state, _, err = f.wf.Next(ctx, state)
	require.NoError(t, err)
	require.Equal(t, 2, state.Index)

	state, outcome, err := f.wf.Prev(state)
	require.NoError(t, err)
	assert.True(t, outcome.Moved)
	assert.Equal(t, 1, state.Index)
	assert.Equal(t, "quarterly", state.Drafts["review_cycle"].Value)

	stored, err := f.repo.Get(ctx, "review_cycle", "org1")
	require.NoError(t, err)
	assert.Equal(t, "quarterly", stored.Value)

	state, _, err = f.wf.Prev(state)
	require.NoError(t, err)
	_, outcome, err = f.wf.Prev(state)
	require.NoError(t, err)
	assert.Equal(t, ReasonAtFirst, outcome.Reason)
}

func TestEditIsNotDurableUntilAdvance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	state, err := f.wf.Start(ctx, "password", "org1")
	require.NoError(t, err)
	state, _, err = f.wf.Edit(state, "Acme", true)
	require.NoError(t, err)

	_, err = f.repo.Get(ctx, "company_name", "org1")
	assert.ErrorIs(t, err, answers.ErrNotFound)

	state, _, err = f.wf.Next(ctx, state)
	require.NoError(t, err)
	stored, err := f.repo.Get(ctx, "company_name", "org1")
	require.NoError(t, err)
	assert.Equal(t, "Acme", stored.Value)
	assert.True(t, stored.IsDefault)
	assert.False(t, state.Drafts["company_name"].Dirty)
}

func TestSaveOnlyFromLastQuestion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	state, err := f.wf.Start(ctx, "password", "org1")
	require.NoError(t, err)
	state, _, _ = f.wf.Edit(state, "Acme", false)

	_, outcome, err := f.wf.Save(ctx, state)
	require.NoError(t, err)
	assert.Equal(t, ReasonNotLast, outcome.Reason)

	state, _, _ = f.wf.Next(ctx, state)
	state, _, _ = f.wf.Edit(state, "monthly", false)
	state, _, _ = f.wf.Next(ctx, state)

	_, outcome, err = f.wf.Next(ctx, state)
	require.NoError(t, err)
	assert.Equal(t, ReasonAtLast, outcome.Reason)

	state, _, _ = f.wf.Edit(state, "16", false)
	state, outcome, err = f.wf.Save(ctx, state)
	require.NoError(t, err)
	assert.True(t, outcome.Moved)
	assert.Equal(t, StatusComplete, state.Status)

	resolved, err := f.svc.ResolveAll(ctx, "password", "org1")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"company_name": "Acme", "review_cycle": "monthly", "min_length": "16"}, resolved)

	_, outcome, err = f.wf.Prev(state)
	require.NoError(t, err)
	assert.Equal(t, ReasonComplete, outcome.Reason)
}

func TestSingleQuestionOnlySaveReachable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	state, err := f.wf.Start(ctx, "solo", "org1")
	require.NoError(t, err)
	require.Equal(t, 1, state.Total())

	state, _, _ = f.wf.Edit(state, "Acme", false)
	assert.False(t, state.CanPrev())
	assert.False(t, state.CanNext())
	assert.True(t, state.CanSave())

	_, outcome, _ := f.wf.Prev(state)
	assert.Equal(t, ReasonAtFirst, outcome.Reason)
	_, outcome, _ = f.wf.Next(ctx, state)
	assert.Equal(t, ReasonAtLast, outcome.Reason)

	state, outcome, err = f.wf.Save(ctx, state)
	require.NoError(t, err)
	assert.True(t, outcome.Moved)
	assert.Equal(t, StatusComplete, state.Status)
}

func TestEmptySequenceExposesNoTransitions(t *testing.T) {
	catalog, err := blanks.NewCatalog([]blanks.Policy{{ID: "p"}}, nil)
	require.NoError(t, err)
	registry := blanks.NewMemoryRegistry(catalog)
	svc := answers.NewService(answers.NewMemoryRepo(), registry)
	wf := New(registry, svc, svc)
	ctx := context.Background()

	state, err := wf.Start(ctx, "p", "org1")
	require.NoError(t, err)
	assert.Equal(t, StatusEmpty, state.Status)

	for _, step := range []func(State) (State, Outcome, error){
		wf.Prev,
		func(s State) (State, Outcome, error) { return wf.Next(ctx, s) },
		func(s State) (State, Outcome, error) { return wf.Save(ctx, s) },
		func(s State) (State, Outcome, error) { return wf.Edit(s, "x", false) },
	} {
		_, outcome, err := step(state)
		require.NoError(t, err)
		assert.Equal(t, ReasonNoQuestions, outcome.Reason)
	}

	view, err := wf.View(ctx, state)
	require.NoError(t, err)
	assert.Nil(t, view.Question)
	assert.False(t, view.CanSave)
}

func TestSessionsAreIndependent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tabA, err := f.wf.Start(ctx, "password", "org1")
	require.NoError(t, err)
	tabB, err := f.wf.Start(ctx, "password", "org1")
	require.NoError(t, err)

	tabA, _, _ = f.wf.Edit(tabA, "Acme", false)
	tabA, _, _ = f.wf.Next(ctx, tabA)

	assert.Equal(t, 1, tabA.Index)
	assert.Equal(t, 0, tabB.Index)
	assert.Equal(t, "", tabB.Drafts["company_name"].Value)
}

type failingWriter struct{}

func (failingWriter) Upsert(context.Context, answers.UpsertInput) (answers.Answer, error) {
	return answers.Answer{}, errors.New("store down")
}

func TestCommitFailureKeepsState(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	wf := New(f.wf.Registry, f.svc, failingWriter{})

	state, err := wf.Start(ctx, "password", "org1")
	require.NoError(t, err)
	state, _, _ = wf.Edit(state, "Acme", false)

	after, _, err := wf.Next(ctx, state)
	require.Error(t, err)
	assert.Equal(t, 0, after.Index)
	assert.True(t, after.Drafts["company_name"].Dirty)
}

func TestInvalidStateRejected(t *testing.T) {
	f := newFixture(t)

	_, _, err := f.wf.Prev(State{Status: StatusAtQuestion, Index: 5, BlankIDs: []string{"a"}, OrganizationID: "org1"})
	assert.ErrorIs(t, err, ErrInvalidState)

	_, _, err = f.wf.Prev(State{Status: "bogus"})
	assert.ErrorIs(t, err, ErrInvalidState)
}
