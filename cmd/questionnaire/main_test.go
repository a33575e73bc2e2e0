package main

import (
	"context"
	"errors"
	"testing"

	"policy-backend/internal/answers"
	"policy-backend/internal/blanks"
	"policy-backend/internal/workflow"
)

type scriptedDriver struct {
	inputs   []string
	confirms []bool
	infos    []string
}

func (d *scriptedDriver) Input(_ context.Context, _ InputConfig) (string, error) {
	if len(d.inputs) == 0 {
		return "", errors.New("script exhausted")
	}
	v := d.inputs[0]
	d.inputs = d.inputs[1:]
	return v, nil
}

func (d *scriptedDriver) Confirm(_ context.Context, _ ConfirmConfig) (bool, error) {
	if len(d.confirms) == 0 {
		return false, errors.New("confirm script exhausted")
	}
	v := d.confirms[0]
	d.confirms = d.confirms[1:]
	return v, nil
}

func (d *scriptedDriver) Info(_ context.Context, msg string) error {
	d.infos = append(d.infos, msg)
	return nil
}

func newTestWorkflow(t *testing.T) (*workflow.Workflow, *answers.Service) {
	t.Helper()
	empty := ""
	catalog, err := blanks.NewCatalog(
		[]blanks.Policy{{ID: "password"}},
		[]blanks.Blank{
			{ID: "company_name", Question: "Company?", Scope: blanks.ScopeCommon, DefaultValue: &empty},
			{ID: "review_cycle", Question: "Cycle?", Scope: blanks.ScopePolicy, PolicyID: "password"},
		},
	)
	if err != nil {
		t.Fatalf("NewCatalog: %v", err)
	}
	registry := blanks.NewMemoryRegistry(catalog)
	svc := answers.NewService(answers.NewMemoryRepo(), registry)
	return workflow.New(registry, svc, svc), svc
}

func TestRunQuestionnaire(t *testing.T) {
	wf, svc := newTestWorkflow(t)
	driver := &scriptedDriver{
		inputs:   []string{"", "Acme", backCommand, "Acme Corp", "quarterly"},
		confirms: []bool{true, true},
	}

	state, err := runQuestionnaire(context.Background(), wf, driver, "password", "org1")
	if err != nil {
		t.Fatalf("runQuestionnaire: %v", err)
	}
	if state.Status != workflow.StatusComplete {
		t.Fatalf("expected complete, got %s", state.Status)
	}
	if len(driver.infos) != 1 || driver.infos[0] != "an answer is required" {
		t.Fatalf("expected one gating notice, got %v", driver.infos)
	}

	resolved, err := svc.ResolveAll(context.Background(), "password", "org1")
	if err != nil {
		t.Fatalf("ResolveAll: %v", err)
	}
	if resolved["company_name"] != "Acme Corp" || resolved["review_cycle"] != "quarterly" {
		t.Fatalf("unexpected answers: %v", resolved)
	}
	stored, err := svc.Get(context.Background(), "company_name", "org1")
	if err != nil || !stored.IsDefault {
		t.Fatalf("expected promoted company_name, got %+v (%v)", stored, err)
	}
}

func TestRunQuestionnaireStopsOnAbort(t *testing.T) {
	wf, _ := newTestWorkflow(t)
	driver := &abortingDriver{}

	_, err := runQuestionnaire(context.Background(), wf, driver, "password", "org1")
	if !errors.Is(err, ErrAborted) {
		t.Fatalf("expected ErrAborted, got %v", err)
	}
}

type abortingDriver struct{ scriptedDriver }

func (abortingDriver) Input(context.Context, InputConfig) (string, error) {
	return "", ErrAborted
}
