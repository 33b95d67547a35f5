package ussd

import (
	"context"
	"time"

	"bitbucket.org/vservices/utils/v4/errors"
)

//universal navigation digits, applied uniformly across all menus by the
//dispatcher so individual handlers never deal with them
const (
	DigitBack = "0"
	DigitHome = "00"
	DigitExit = "000"
)

//user-facing messages for the dispatcher's own outcomes
//internal detail (stack traces, endpoints, raw errors) is never rendered
const (
	MsgSystemError        = "System error. Please try again later."
	MsgSessionExpired     = "Your session has expired. Please dial again to start over."
	MsgServiceUnavailable = "Service temporarily unavailable. Please try again later."
	MsgGoodbye            = "Thank you for banking with us. Goodbye."
	MsgInvalidChoice      = "Invalid choice."
)

//maxHops bounds menu-to-menu transitions within one keystroke, so a
//misconfigured menu cycle cannot spin the dispatch loop forever
const maxHops = 10

//Request is one inbound keystroke from the telco gateway
//Input is empty on dialog start ("just entered, show the prompt")
type Request struct {
	SessionID string
	Msisdn    string
	Channel   string //shortcode / channel code dialed
	Input     string
}

//Reply is the single line of text shown to the subscriber and whether the
//dialog continues (con) or ends (end)
type Reply struct {
	Text      string
	Continues bool
}

//Handler is the contract every menu screen satisfies
//it may mutate the session and must return exactly one directive
type Handler func(ctx context.Context, req *Request, s *Session) (Directive, error)

type directiveKind int

const (
	directivePrompt directiveKind = iota
	directiveEnd
	directiveGoto
)

//Directive is a handler's instruction to the dispatcher: show a prompt and
//wait, end the dialog, or transition to another menu (rendered with empty
//input on the next loop iteration - no handler calls another handler)
type Directive struct {
	kind directiveKind
	text string
	menu string
}

func Prompt(text string) Directive { return Directive{kind: directivePrompt, text: text} }
func End(text string) Directive    { return Directive{kind: directiveEnd, text: text} }
func Goto(menu string) Directive   { return Directive{kind: directiveGoto, menu: menu} }

//CustomerLookup resolves the authenticated customer for a new dialog
type CustomerLookup interface {
	Lookup(ctx context.Context, msisdn string) (*Customer, error)
}

//Machine routes one keystroke to the handler registered for the session's
//current menu and applies the returned directive
//it is constructed once at startup with an explicit handler registry:
//no handler reaches into a global to find another feature
type Machine struct {
	sessions *Manager
	tree     *Tree
	lookup   CustomerLookup
	handlers map[string]Handler
}

func NewMachine(sessions *Manager, tree *Tree, lookup CustomerLookup) *Machine {
	if sessions == nil || tree == nil || lookup == nil {
		panic("NewMachine() with nil dependency")
	}
	return &Machine{
		sessions: sessions,
		tree:     tree,
		lookup:   lookup,
		handlers: map[string]Handler{},
	}
}

//Handle() registers the handler for a menu key, panicking on duplicates
//(the registry is built once at startup)
func (m *Machine) Handle(menu string, h Handler) *Machine {
	if _, ok := m.handlers[menu]; ok {
		panic(errors.Errorf("duplicate handler for menu(%s)", menu))
	}
	if h == nil {
		panic(errors.Errorf("nil handler for menu(%s)", menu))
	}
	m.handlers[menu] = h
	return m
}

//Registered() reports whether a menu key has a handler
func (m *Machine) Registered(menu string) bool {
	_, ok := m.handlers[menu]
	return ok
}

//Dispatch() handles one keystroke end to end: load or create the session,
//resolve universal navigation, run handlers until one prompts or ends, then
//persist or delete the session
//it never lets an error or panic escape to the transport layer: every exit
//path produces a valid USSD reply
func (m *Machine) Dispatch(ctx context.Context, req *Request) (reply Reply) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("session(%s) handler panic: %+v", req.SessionID, r)
			m.sessions.End(ctx, req.SessionID)
			reply = Reply{Text: MsgSystemError, Continues: false}
		}
	}()

	s := m.sessions.Load(ctx, req.SessionID)
	if s == nil {
		if req.Input != "" {
			//mid-flow input against a vanished session: expired at the store
			log.Debugf("session(%s) not found with input(%s): expired", req.SessionID, req.Input)
			return Reply{Text: MsgSessionExpired, Continues: false}
		}
		//dialog start
		customer, err := m.lookup.Lookup(ctx, req.Msisdn)
		if err != nil {
			log.Errorf("customer lookup(%s) failed: %+v", req.Msisdn, err)
			return Reply{Text: MsgServiceUnavailable, Continues: false}
		}
		s = m.sessions.Begin(req.SessionID, req.Msisdn, m.tree.Root())
		s.Customer = customer
		log.Debugf("session(%s) started for msisdn(%s) at menu(%s)", s.ID, s.Msisdn, s.CurrentMenu)
	}

	input := m.navigate(ctx, s, req.Input)
	if input == inputExit {
		elapsed := time.Since(s.StartTime)
		log.Infof("session(%s) exited by user after %s", s.ID, elapsed)
		m.sessions.End(ctx, s.ID)
		return Reply{Text: MsgGoodbye, Continues: false}
	}

	for hops := 0; hops < maxHops; hops++ {
		h, ok := m.handlers[s.CurrentMenu]
		if !ok {
			//registry/session mismatch: fail closed with a generic message
			log.Errorf("session(%s) current menu(%s) has no handler", s.ID, s.CurrentMenu)
			m.sessions.End(ctx, s.ID)
			return Reply{Text: MsgSystemError, Continues: false}
		}
		hopReq := *req
		hopReq.Input = input
		d, err := h(ctx, &hopReq, s)
		if err != nil {
			log.Errorf("session(%s) menu(%s) handler failed: %+v", s.ID, s.CurrentMenu, err)
			m.sessions.End(ctx, s.ID)
			return Reply{Text: MsgSystemError, Continues: false}
		}
		switch d.kind {
		case directivePrompt:
			m.sessions.Save(ctx, s)
			return Reply{Text: d.text, Continues: true}
		case directiveEnd:
			elapsed := time.Since(s.StartTime)
			log.Infof("session(%s) ended after %s", s.ID, elapsed)
			m.sessions.End(ctx, s.ID)
			return Reply{Text: d.text, Continues: false}
		case directiveGoto:
			s.Navigate(d.menu)
			input = "" //next handler renders its own prompt
		}
	}

	log.Errorf("session(%s) exceeded %d transitions at menu(%s)", s.ID, maxHops, s.CurrentMenu)
	m.sessions.End(ctx, s.ID)
	return Reply{Text: MsgSystemError, Continues: false}
}

//internal sentinel returned by navigate() when the user asked to exit
const inputExit = "\x00exit"

//navigate() resolves the universal navigation digits against the static
//tree before any handler runs
//Back moves to the parent menu; when that crosses out of the owning
//feature, the flow's scratch state is dropped so it cannot leak (flow
//steps prune their own downstream fields when re-entered within a flow)
func (m *Machine) navigate(ctx context.Context, s *Session, input string) string {
	switch input {
	case DigitExit:
		return inputExit
	case DigitHome:
		s.ClearFlow()
		s.Navigate(m.tree.Root())
		return ""
	case DigitBack:
		parent := m.tree.ParentOf(s.CurrentMenu)
		if s.Flow != nil && m.tree.OwnerOf(parent) != s.Flow.Flow {
			s.ClearFlow()
		}
		s.Navigate(parent)
		return ""
	}
	return input
}
