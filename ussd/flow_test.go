package ussd_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"bitbucket.org/vservices/ms-vservices-bankussd/sessions"
	"bitbucket.org/vservices/ms-vservices-bankussd/ussd"
	"bitbucket.org/vservices/utils/v4/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

//flowFixture wires a machine with a two-step "pay" flow and a one-step
//"topup" flow so scratch isolation between flows can be observed through
//the rendered prompts
type flowFixture struct {
	machine   *ussd.Machine
	store     *sessions.Memory
	submits   int
	verifies  int
	verifyErr error
	outcome   ussd.Outcome
}

func newFlowFixture(t *testing.T) *flowFixture {
	fx := &flowFixture{
		store:   sessions.NewMemory(time.Minute),
		outcome: ussd.Outcome{OK: true, Text: "Paid."},
	}

	pay := &ussd.Flow{
		Name: "pay",
		Steps: []ussd.Step{
			{
				Name:  "amount",
				Field: "amount",
				Prompt: func(s *ussd.Session) string {
					return fmt.Sprintf("Enter amount [%s]", s.Flow.Value("amount"))
				},
				Validate: func(s *ussd.Session, input string) (string, error) {
					return ussd.ValidateAmount(input)
				},
			},
			{
				Name:  "ref",
				Field: "ref",
				Prompt: func(s *ussd.Session) string {
					return "Enter reference"
				},
				Validate: func(s *ussd.Session, input string) (string, error) {
					return ussd.ValidateReference(input, 6, 16)
				},
			},
		},
		Confirm: func(s *ussd.Session) string {
			return fmt.Sprintf("Pay Ksh %s ref %s?\nEnter PIN", s.Flow.Value("amount"), s.Flow.Value("ref"))
		},
	}
	pay.Submit = func(ctx context.Context, req *ussd.Request, s *ussd.Session, pin string) ussd.Outcome {
		fx.submits++
		return fx.outcome
	}
	verify := func(ctx context.Context, req *ussd.Request, s *ussd.Session, pin string) error {
		fx.verifies++
		return fx.verifyErr
	}
	pay.Verify = verify

	topup := &ussd.Flow{
		Name: "topup",
		Steps: []ussd.Step{
			{
				Name:  "amount",
				Field: "amount",
				Prompt: func(s *ussd.Session) string {
					return fmt.Sprintf("Topup amount [%s]", s.Flow.Value("amount"))
				},
				Validate: func(s *ussd.Session, input string) (string, error) {
					return ussd.ValidateAmount(input)
				},
			},
		},
		Confirm: func(s *ussd.Session) string { return "Enter PIN" },
		Submit: func(ctx context.Context, req *ussd.Request, s *ussd.Session, pin string) ussd.Outcome {
			return ussd.Outcome{OK: true, Text: "Topped up."}
		},
	}
	topup.Verify = verify

	tree := ussd.NewTree("main")
	tree.Add(pay.Edges("main")...)
	tree.Add(topup.Edges("main")...)
	fx.machine = ussd.NewMachine(ussd.NewManager(fx.store), tree, fakeLookup{customer: testCustomer()})
	main := ussd.NewMenu("main", "Welcome").
		With("1", "Pay", pay.Entry()).
		With("2", "Topup", topup.Entry())
	fx.machine.Handle("main", ussd.MenuHandler(main))
	pay.Register(fx.machine)
	topup.Register(fx.machine)
	return fx
}

func (fx *flowFixture) step(input string) ussd.Reply {
	return dispatch(fx.machine, "s1", input)
}

func TestFlowCollectConfirmSubmit(t *testing.T) {
	fx := newFlowFixture(t)
	fx.step("")
	reply := fx.step("1")
	require.Contains(t, reply.Text, "Enter amount")

	reply = fx.step("50")
	require.Contains(t, reply.Text, "Enter reference")

	reply = fx.step("123456")
	require.Contains(t, reply.Text, "Pay Ksh 50 ref 123456?")

	reply = fx.step("1234")
	assert.True(t, reply.Continues, "success outcome still offers navigation")
	assert.Contains(t, reply.Text, "Paid.")
	assert.Equal(t, 1, fx.submits)
}

func TestFlowRepeatAfterSuccessDoesNotResubmit(t *testing.T) {
	fx := newFlowFixture(t)
	fx.step("")
	fx.step("1")
	fx.step("50")
	fx.step("123456")
	fx.step("1234")
	require.Equal(t, 1, fx.submits)

	//a replayed PIN entry re-shows the outcome without another submission
	reply := fx.step("1234")
	assert.Contains(t, reply.Text, "Paid.")
	assert.Equal(t, 1, fx.submits)
}

func TestFlowInvalidInputRetriesInPlace(t *testing.T) {
	fx := newFlowFixture(t)
	fx.step("")
	fx.step("1")

	reply := fx.step("abc")
	assert.True(t, reply.Continues)
	assert.Contains(t, reply.Text, "Invalid amount")
	assert.Contains(t, reply.Text, "Enter amount")

	//valid input after the error advances normally
	reply = fx.step("50")
	assert.Contains(t, reply.Text, "Enter reference")
}

func TestFlowBadPinFormatRetriesInPlace(t *testing.T) {
	fx := newFlowFixture(t)
	fx.step("")
	fx.step("1")
	fx.step("50")
	fx.step("123456")

	reply := fx.step("12")
	assert.True(t, reply.Continues)
	assert.Contains(t, reply.Text, "Invalid PIN")
	assert.Contains(t, reply.Text, "Pay Ksh 50 ref 123456?")
	assert.Equal(t, 0, fx.submits)
}

func TestFlowFailureKeepsValuesForRetry(t *testing.T) {
	fx := newFlowFixture(t)
	fx.outcome = ussd.Outcome{Text: "Insufficient funds"}
	fx.step("")
	fx.step("1")
	fx.step("50")
	fx.step("123456")

	reply := fx.step("1234")
	assert.True(t, reply.Continues)
	assert.Contains(t, reply.Text, "Insufficient funds")
	assert.Contains(t, reply.Text, "Pay Ksh 50 ref 123456?", "collected values survive a failed submission")
	require.Equal(t, 1, fx.submits)

	//retry with a fresh PIN submits again
	fx.outcome = ussd.Outcome{OK: true, Text: "Paid."}
	reply = fx.step("4321")
	assert.Contains(t, reply.Text, "Paid.")
	assert.Equal(t, 2, fx.submits)
}

func TestFlowEndOutcomeEndsDialog(t *testing.T) {
	fx := newFlowFixture(t)
	fx.outcome = ussd.Outcome{Text: "Please visit a branch.", End: true}
	fx.step("")
	fx.step("1")
	fx.step("50")
	fx.step("123456")

	reply := fx.step("1234")
	assert.False(t, reply.Continues)
	assert.Equal(t, "Please visit a branch.", reply.Text)

	reply = fx.step("1")
	assert.Equal(t, ussd.MsgSessionExpired, reply.Text, "session removed with the dialog")
}

func TestFlowBackWithinFlowPrunes(t *testing.T) {
	fx := newFlowFixture(t)
	fx.step("")
	fx.step("1")
	fx.step("50") //now at the reference step

	reply := fx.step("0")
	assert.Contains(t, reply.Text, "Enter amount []", "re-entered step's value is dropped")
}

func TestFlowBackOutOfFlowClearsScratch(t *testing.T) {
	fx := newFlowFixture(t)
	fx.step("")
	fx.step("1")
	fx.step("50")

	fx.step("0") //back to the amount step
	reply := fx.step("0")
	assert.Contains(t, reply.Text, "Welcome", "back from the first step leaves the flow")

	s, err := fx.store.Get(context.Background(), "s1")
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Nil(t, s.Flow)
}

func TestFlowScratchIsolation(t *testing.T) {
	fx := newFlowFixture(t)
	fx.step("")
	fx.step("1")
	fx.step("50")
	fx.step("123456")
	fx.step("1234")

	//home, then enter the other flow: nothing from pay is visible
	fx.step("00")
	reply := fx.step("2")
	assert.Contains(t, reply.Text, "Topup amount []")
}

func TestFlowBackAfterSuccessStartsFresh(t *testing.T) {
	fx := newFlowFixture(t)
	fx.step("")
	fx.step("1")
	fx.step("50")
	fx.step("123456")
	fx.step("1234")
	require.Equal(t, 1, fx.submits)

	//back off the outcome screen: collection restarts at the first step
	reply := fx.step("0")
	assert.Contains(t, reply.Text, "Enter amount []")

	reply = fx.step("75")
	assert.Contains(t, reply.Text, "Enter reference")
	reply = fx.step("999999")
	assert.Contains(t, reply.Text, "Pay Ksh 75 ref 999999?", "fresh values reach a fresh confirm, not the old outcome")

	reply = fx.step("1234")
	assert.Contains(t, reply.Text, "Paid.")
	assert.Equal(t, 2, fx.submits, "the new transaction is submitted")
}

func TestFlowVerifyFailureRetriesInPlace(t *testing.T) {
	fx := newFlowFixture(t)
	fx.verifyErr = errors.Errorf("Incorrect PIN")
	fx.step("")
	fx.step("1")
	fx.step("50")
	fx.step("123456")

	reply := fx.step("1234")
	assert.True(t, reply.Continues)
	assert.Contains(t, reply.Text, "Incorrect PIN")
	assert.Contains(t, reply.Text, "Pay Ksh 50 ref 123456?")
	assert.Equal(t, 1, fx.verifies)
	assert.Equal(t, 0, fx.submits, "a failed verify never reaches submit")

	s, err := fx.store.Get(context.Background(), "s1")
	require.NoError(t, err)
	assert.False(t, s.Customer.LoggedIn)

	fx.verifyErr = nil
	reply = fx.step("4321")
	assert.Contains(t, reply.Text, "Paid.")
	assert.Equal(t, 1, fx.submits)
}

func TestFlowVerifyOncePerSession(t *testing.T) {
	fx := newFlowFixture(t)
	fx.step("")
	fx.step("1")
	fx.step("50")
	fx.step("123456")
	fx.step("1234")
	require.Equal(t, 1, fx.verifies)

	s, err := fx.store.Get(context.Background(), "s1")
	require.NoError(t, err)
	assert.True(t, s.Customer.LoggedIn, "first verified PIN logs the customer in")

	//the second flow of the dialog submits without another verify
	fx.step("00")
	fx.step("2")
	fx.step("100")
	reply := fx.step("1234")
	assert.Contains(t, reply.Text, "Topped up.")
	assert.Equal(t, 1, fx.verifies)
}

func TestFlowRegisterValidation(t *testing.T) {
	m, _ := newTestMachine(t)
	assert.Panics(t, func() {
		f := &ussd.Flow{Name: "empty"}
		f.Register(m)
	})
	assert.Panics(t, func() {
		f := &ussd.Flow{
			Name: "half",
			Steps: []ussd.Step{{
				Name:     "x",
				Field:    "x",
				Prompt:   func(s *ussd.Session) string { return "x" },
				Validate: func(s *ussd.Session, input string) (string, error) { return input, nil },
			}},
		}
		f.Register(m)
	})
}
