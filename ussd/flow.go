package ussd

import (
	"context"
	"fmt"

	"bitbucket.org/vservices/utils/v4/errors"
)

//Step collects and validates one field of a transaction flow
//Validate returns the normalized value to store, or an error whose text is
//shown inline above the same prompt (the step does not advance)
type Step struct {
	Name     string
	Field    string
	Prompt   func(s *Session) string
	Validate func(s *Session, input string) (string, error)
}

//Outcome is the result of a flow's single gateway submission
type Outcome struct {
	Text string
	OK   bool
	End  bool //end the dialog instead of offering Back/Home
}

//Flow is the reusable collect -> confirm -> submit pipeline behind every
//money-movement feature
//each step becomes one state machine node keyed "<flow>_<step>"; the
//confirm node prompts for a PIN over a summary of the collected values and
//calls Submit exactly once
type Flow struct {
	Name    string
	Steps   []Step
	Confirm func(s *Session) string
	Submit  func(ctx context.Context, req *Request, s *Session, pin string) Outcome
	//Verify optionally checks the entered PIN against the host before the
	//dialog's first submission; once it passes, the customer is logged in
	//for the rest of the session and later flows submit directly
	//the returned error's text is shown inline above the confirm prompt
	Verify func(ctx context.Context, req *Request, s *Session, pin string) error
}

//Entry() is the menu key a catalog option routes to, to start the flow
func (f *Flow) Entry() string { return f.StepMenu(0) }

func (f *Flow) StepMenu(i int) string {
	return fmt.Sprintf("%s_%s", f.Name, f.Steps[i].Name)
}

func (f *Flow) ConfirmMenu() string {
	return fmt.Sprintf("%s_confirm", f.Name)
}

//Edges() returns the navigation records for the flow's menus: each step's
//parent is the previous step, the first step's parent is the menu that owns
//the flow, and all of them belong to the flow's feature
func (f *Flow) Edges(parent string) []Edge {
	edges := []Edge{}
	prev := parent
	for i := range f.Steps {
		edges = append(edges, Edge{Menu: f.StepMenu(i), Parent: prev, Owner: f.Name})
		prev = f.StepMenu(i)
	}
	edges = append(edges, Edge{Menu: f.ConfirmMenu(), Parent: prev, Owner: f.Name})
	return edges
}

//Register() installs one handler per step plus the confirm handler
func (f *Flow) Register(m *Machine) {
	if len(f.Steps) == 0 {
		panic(errors.Errorf("flow(%s) has no steps", f.Name))
	}
	if f.Confirm == nil || f.Submit == nil {
		panic(errors.Errorf("flow(%s) missing confirm or submit", f.Name))
	}
	for i := range f.Steps {
		m.Handle(f.StepMenu(i), f.stepHandler(i))
	}
	m.Handle(f.ConfirmMenu(), f.confirmHandler())
}

//enter() makes sure the session's scratch state belongs to this flow,
//replacing whatever another flow may have left behind
func (f *Flow) enter(s *Session) *FlowState {
	if s.Flow == nil || s.Flow.Flow != f.Name {
		return s.EnterFlow(f.Name)
	}
	return s.Flow
}

//pruneFrom() drops the values of this step and everything after it, so
//stepping Back and re-entering collects them cleanly
func (f *Flow) pruneFrom(fs *FlowState, i int) {
	if fs.Values == nil {
		return
	}
	for n := i; n < len(f.Steps); n++ {
		delete(fs.Values, f.Steps[n].Field)
	}
}

func (f *Flow) stepHandler(i int) Handler {
	step := f.Steps[i]
	return func(ctx context.Context, req *Request, s *Session) (Directive, error) {
		fs := f.enter(s)
		if fs.Submitted {
			//stepping back off the outcome screen starts a fresh
			//transaction: the values were already dropped on success, so
			//collection restarts at the first step
			fs = s.EnterFlow(f.Name)
			if i != 0 {
				return Goto(f.StepMenu(0)), nil
			}
		}
		fs.Step = i
		if req.Input == "" {
			f.pruneFrom(fs, i)
			return Prompt(RenderText(step.Prompt(s), "")), nil
		}
		value, err := step.Validate(s, req.Input)
		if err != nil {
			//recoverable in place: same prompt, scratch unchanged
			return Prompt(RenderText(step.Prompt(s), err.Error())), nil
		}
		fs.SetValue(step.Field, value)
		if i+1 < len(f.Steps) {
			return Goto(f.StepMenu(i + 1)), nil
		}
		return Goto(f.ConfirmMenu()), nil
	}
}

func (f *Flow) confirmHandler() Handler {
	return func(ctx context.Context, req *Request, s *Session) (Directive, error) {
		fs := f.enter(s)
		fs.Step = len(f.Steps)
		if fs.Submitted {
			//terminal outcome already shown: re-show it, never re-submit
			return Prompt(RenderText(fs.Outcome, "")), nil
		}
		if req.Input == "" {
			return Prompt(RenderText(f.Confirm(s), "")), nil
		}
		if err := ValidatePIN(req.Input); err != nil {
			return Prompt(RenderText(f.Confirm(s), err.Error())), nil
		}
		if f.Verify != nil && s.Customer != nil && !s.Customer.LoggedIn {
			if err := f.Verify(ctx, req, s, req.Input); err != nil {
				return Prompt(RenderText(f.Confirm(s), err.Error())), nil
			}
			s.Customer.LoggedIn = true
		}
		out := f.Submit(ctx, req, s, req.Input)
		if out.End {
			return End(out.Text), nil
		}
		if out.OK {
			//success: scratch cleared, only the outcome marker remains
			s.Flow = &FlowState{Flow: f.Name, Step: len(f.Steps), Submitted: true, Outcome: out.Text}
			return Prompt(RenderText(out.Text, "")), nil
		}
		//failure: keep the collected values so the user may retry with a
		//fresh PIN; the backend never gets the same request twice in one
		//keystroke
		return Prompt(RenderText(f.Confirm(s), out.Text)), nil
	}
}
