package ussd

import (
	"time"
)

//Customer is the authenticated identity for a dialog
//it is created by a lookup on the msisdn and may be cached outside the session,
//but LoggedIn is session-scoped and never cached
type Customer struct {
	ID        string   `json:"id"`
	Firstname string   `json:"firstname"`
	Lastname  string   `json:"lastname"`
	Accounts  []string `json:"accounts"` //order defines the 1-based menu numbering
	LoggedIn  bool     `json:"logged_in"`
}

//FlowState is the scratch state of the one flow currently in progress
//it is a single object replaced wholesale when a flow is entered and
//dropped wholesale when the flow exits, so values from one flow can
//never leak into the next
type FlowState struct {
	Flow      string            `json:"flow"`
	Step      int               `json:"step"`
	Values    map[string]string `json:"values,omitempty"`
	Submitted bool              `json:"submitted"`
	Outcome   string            `json:"outcome,omitempty"`
}

func (f *FlowState) Value(name string) string {
	if f == nil || f.Values == nil {
		return ""
	}
	return f.Values[name]
}

func (f *FlowState) SetValue(name string, value string) {
	if f.Values == nil {
		f.Values = map[string]string{}
	}
	f.Values[name] = value
}

//Session is the unit of continuity across stateless requests
//it is always loaded and saved as a whole (no partial merge at the store)
type Session struct {
	ID          string     `json:"id"`
	Msisdn      string     `json:"msisdn"`
	CurrentMenu string     `json:"current_menu"`
	Customer    *Customer  `json:"customer,omitempty"`
	Flow        *FlowState `json:"flow,omitempty"`
	StartTime   time.Time  `json:"start_time"`
	LastTime    time.Time  `json:"last_time"`
}

//Navigate() moves the session to another menu
//Back is not a navigation history pop: it always resolves through the
//static tree, so no back-trail is kept here
func (s *Session) Navigate(menu string) {
	s.CurrentMenu = menu
}

//EnterFlow() replaces any scratch state with a fresh one for the named flow
func (s *Session) EnterFlow(name string) *FlowState {
	s.Flow = &FlowState{
		Flow:   name,
		Values: map[string]string{},
	}
	return s.Flow
}

func (s *Session) ClearFlow() {
	s.Flow = nil
}
