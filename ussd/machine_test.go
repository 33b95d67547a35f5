package ussd_test

import (
	"context"
	"testing"
	"time"

	"bitbucket.org/vservices/ms-vservices-bankussd/sessions"
	"bitbucket.org/vservices/ms-vservices-bankussd/ussd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLookup struct {
	customer *ussd.Customer
	err      error
}

func (f fakeLookup) Lookup(ctx context.Context, msisdn string) (*ussd.Customer, error) {
	return f.customer, f.err
}

func testCustomer() *ussd.Customer {
	return &ussd.Customer{
		ID:        "C0001",
		Firstname: "Jane",
		Lastname:  "Wanjiku",
		Accounts:  []string{"1001", "1002"},
	}
}

//newTestMachine wires a machine over an in-memory store with a main menu
//routing "1" to a simple prompt menu "a" whose parent is main
func newTestMachine(t *testing.T) (*ussd.Machine, *sessions.Memory) {
	store := sessions.NewMemory(time.Minute)
	tree := ussd.NewTree("main").Add(
		ussd.Edge{Menu: "a", Parent: "main", Owner: "feature"},
	)
	m := ussd.NewMachine(ussd.NewManager(store), tree, fakeLookup{customer: testCustomer()})
	main := ussd.NewMenu("main", "Welcome").With("1", "Feature", "a")
	m.Handle("main", ussd.MenuHandler(main))
	m.Handle("a", func(ctx context.Context, req *ussd.Request, s *ussd.Session) (ussd.Directive, error) {
		return ussd.Prompt(ussd.RenderText("A prompt", "")), nil
	})
	return m, store
}

func dispatch(m *ussd.Machine, id string, input string) ussd.Reply {
	return m.Dispatch(context.Background(), &ussd.Request{
		SessionID: id,
		Msisdn:    "254712345678",
		Channel:   "*334#",
		Input:     input,
	})
}

func TestDialogStart(t *testing.T) {
	m, _ := newTestMachine(t)
	reply := dispatch(m, "s1", "")
	assert.True(t, reply.Continues)
	assert.Contains(t, reply.Text, "Welcome")
	assert.Contains(t, reply.Text, "1. Feature")
	assert.Contains(t, reply.Text, "0:Back 00:Home 000:Exit")
}

func TestExpiredSession(t *testing.T) {
	m, store := newTestMachine(t)
	reply := dispatch(m, "s1", "")
	require.True(t, reply.Continues)

	//session vanishes between keystrokes
	require.NoError(t, store.Del(context.Background(), "s1"))
	reply = dispatch(m, "s1", "1")
	assert.False(t, reply.Continues)
	assert.Equal(t, ussd.MsgSessionExpired, reply.Text)
}

func TestLookupFailure(t *testing.T) {
	store := sessions.NewMemory(time.Minute)
	tree := ussd.NewTree("main")
	m := ussd.NewMachine(ussd.NewManager(store), tree, fakeLookup{err: context.DeadlineExceeded})
	reply := dispatch(m, "s1", "")
	assert.False(t, reply.Continues)
	assert.Equal(t, ussd.MsgServiceUnavailable, reply.Text)
}

func TestInvalidChoice(t *testing.T) {
	m, _ := newTestMachine(t)
	dispatch(m, "s1", "")
	reply := dispatch(m, "s1", "7")
	assert.True(t, reply.Continues, "invalid choice is recoverable in place")
	assert.Contains(t, reply.Text, ussd.MsgInvalidChoice)
	assert.Contains(t, reply.Text, "Welcome")
}

func TestBackAndHome(t *testing.T) {
	m, _ := newTestMachine(t)
	dispatch(m, "s1", "")
	reply := dispatch(m, "s1", "1")
	require.Contains(t, reply.Text, "A prompt")

	reply = dispatch(m, "s1", "0")
	assert.True(t, reply.Continues)
	assert.Contains(t, reply.Text, "Welcome", "Back returns to the parent menu")

	dispatch(m, "s1", "1")
	reply = dispatch(m, "s1", "00")
	assert.True(t, reply.Continues)
	assert.Contains(t, reply.Text, "Welcome", "Home returns to the root menu")
}

func TestExitEndsSession(t *testing.T) {
	m, _ := newTestMachine(t)
	dispatch(m, "s1", "")
	reply := dispatch(m, "s1", "000")
	assert.False(t, reply.Continues)
	assert.Equal(t, ussd.MsgGoodbye, reply.Text)

	//session is gone: the next keystroke is an expired dialog
	reply = dispatch(m, "s1", "1")
	assert.Equal(t, ussd.MsgSessionExpired, reply.Text)
}

func TestUnregisteredMenuFailsClosed(t *testing.T) {
	m, store := newTestMachine(t)
	dispatch(m, "s1", "")

	//corrupt the stored session to point at a menu with no handler
	s, err := store.Get(context.Background(), "s1")
	require.NoError(t, err)
	s.CurrentMenu = "ghost"
	require.NoError(t, store.Put(context.Background(), "s1", s))

	reply := dispatch(m, "s1", "1")
	assert.False(t, reply.Continues)
	assert.Equal(t, ussd.MsgSystemError, reply.Text)
}

func TestHandlerErrorEndsDialog(t *testing.T) {
	store := sessions.NewMemory(time.Minute)
	tree := ussd.NewTree("main")
	m := ussd.NewMachine(ussd.NewManager(store), tree, fakeLookup{customer: testCustomer()})
	m.Handle("main", func(ctx context.Context, req *ussd.Request, s *ussd.Session) (ussd.Directive, error) {
		return ussd.Directive{}, context.DeadlineExceeded
	})
	reply := dispatch(m, "s1", "")
	assert.False(t, reply.Continues)
	assert.Equal(t, ussd.MsgSystemError, reply.Text)
}

func TestHandlerPanicRecovered(t *testing.T) {
	store := sessions.NewMemory(time.Minute)
	tree := ussd.NewTree("main")
	m := ussd.NewMachine(ussd.NewManager(store), tree, fakeLookup{customer: testCustomer()})
	m.Handle("main", func(ctx context.Context, req *ussd.Request, s *ussd.Session) (ussd.Directive, error) {
		panic("boom")
	})
	reply := dispatch(m, "s1", "")
	assert.False(t, reply.Continues)
	assert.Equal(t, ussd.MsgSystemError, reply.Text)

	s, err := store.Get(context.Background(), "s1")
	require.NoError(t, err)
	assert.Nil(t, s, "panicking dialog's session is removed")
}

func TestTransitionBound(t *testing.T) {
	store := sessions.NewMemory(time.Minute)
	tree := ussd.NewTree("main")
	m := ussd.NewMachine(ussd.NewManager(store), tree, fakeLookup{customer: testCustomer()})
	m.Handle("main", func(ctx context.Context, req *ussd.Request, s *ussd.Session) (ussd.Directive, error) {
		return ussd.Goto("main"), nil //misconfigured cycle
	})
	reply := dispatch(m, "s1", "")
	assert.False(t, reply.Continues)
	assert.Equal(t, ussd.MsgSystemError, reply.Text)
}

func TestDuplicateHandlerPanics(t *testing.T) {
	m, _ := newTestMachine(t)
	assert.Panics(t, func() {
		m.Handle("main", func(ctx context.Context, req *ussd.Request, s *ussd.Session) (ussd.Directive, error) {
			return ussd.Prompt("x"), nil
		})
	})
	assert.Panics(t, func() { m.Handle("new", nil) })
}
