package main

// Answer a policy's questionnaire from a terminal:
//   go run ./cmd/questionnaire -policy password -org acme

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"

	"policy-backend/internal/blanks"
	"policy-backend/internal/bootstrap"
	"policy-backend/internal/shared/config"
	"policy-backend/internal/workflow"
)

// backCommand moves to the previous question instead of answering.
const backCommand = ":back"

func main() {
	policyID := flag.String("policy", "", "policy id to answer")
	orgID := flag.String("org", "", "organization id the answers belong to")
	flag.Parse()

	if strings.TrimSpace(*policyID) == "" || strings.TrimSpace(*orgID) == "" {
		exitErr("-policy and -org are required")
	}

	cfg := config.Load()
	cfg.LogLevel = "error"
	app, err := bootstrap.Build(cfg)
	if err != nil {
		exitErr(fmt.Sprintf("bootstrap: %v", err))
	}

	ctx := context.Background()
	driver := newSurveyDriver()
	state, err := runQuestionnaire(ctx, app.Workflow, driver, *policyID, *orgID)
	if errors.Is(err, ErrAborted) {
		fmt.Println("aborted; answers committed so far are kept")
		os.Exit(130)
	}
	if err != nil {
		exitErr(err.Error())
	}
	if state.Status == workflow.StatusEmpty {
		fmt.Printf("policy %s has no questions\n", *policyID)
		return
	}

	resolved, err := app.AnswerSvc.ResolveAll(ctx, *policyID, *orgID)
	if err != nil {
		exitErr(fmt.Sprintf("resolve answers: %v", err))
	}
	keys := make([]string, 0, len(resolved))
	for k := range resolved {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Printf("%s = %q\n", k, resolved[k])
	}
	if app.DB == nil {
		fmt.Println("note: DATABASE_URL is not set; answers were kept in memory only")
	}
}

// runQuestionnaire drives the workflow one question at a time until Save completes it.
func runQuestionnaire(ctx context.Context, wf *workflow.Workflow, driver PromptDriver, policyID, orgID string) (workflow.State, error) {
	state, err := wf.Start(ctx, policyID, orgID)
	if err != nil {
		return workflow.State{}, err
	}

	for state.Status == workflow.StatusAtQuestion {
		view, err := wf.View(ctx, state)
		if err != nil {
			return state, err
		}
		q := view.Question
		_, draft, _ := state.Current()

		help := q.Help
		if view.CanPrev {
			help = strings.TrimSpace(help + " Type " + backCommand + " to return to the previous question.")
		}
		value, err := driver.Input(ctx, InputConfig{
			Message: fmt.Sprintf("[%d/%d] %s", view.Index+1, view.Total, q.Question),
			Default: draft.Value,
			Help:    help,
		})
		if err != nil {
			return state, err
		}

		if strings.TrimSpace(value) == backCommand {
			next, outcome, err := wf.Prev(state)
			if err != nil {
				return state, err
			}
			if !outcome.Moved {
				if err := driver.Info(ctx, "already at the first question"); err != nil {
					return state, err
				}
			}
			state = next
			continue
		}

		promote := draft.PromoteDefault
		if q.Scope == string(blanks.ScopeCommon) && strings.TrimSpace(value) != "" {
			promote, err = driver.Confirm(ctx, ConfirmConfig{
				Message: "Use this answer for every policy?",
				Default: draft.PromoteDefault,
			})
			if err != nil {
				return state, err
			}
		}
		state, _, err = wf.Edit(state, value, promote)
		if err != nil {
			return state, err
		}

		var outcome workflow.Outcome
		if state.Index == state.Total()-1 {
			state, outcome, err = wf.Save(ctx, state)
		} else {
			state, outcome, err = wf.Next(ctx, state)
		}
		if err != nil {
			return state, err
		}
		if outcome.Reason == workflow.ReasonEmptyAnswer {
			if err := driver.Info(ctx, "an answer is required"); err != nil {
				return state, err
			}
		}
	}
	return state, nil
}

func exitErr(msg string) {
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(1)
}
