package menus

import (
	"context"
	"fmt"
	"time"

	"bitbucket.org/vservices/ms-vservices-bankussd/auditdb"
	"bitbucket.org/vservices/ms-vservices-bankussd/bank"
	"bitbucket.org/vservices/ms-vservices-bankussd/ussd"
	"bitbucket.org/vservices/utils/v4/errors"
)

const menuMain = "main"

//Service defines the banking menu tree and all its transaction flows
//everything is built once at startup and registered on one machine
type Service struct {
	gw      bank.Gateway
	cust    *bank.Customers
	audit   auditdb.Recorder
	catalog ussd.Catalog
	tree    *ussd.Tree
	flows   []*ussd.Flow
}

func New(gw bank.Gateway, cust *bank.Customers, audit auditdb.Recorder) *Service {
	if gw == nil || cust == nil {
		panic("menus.New() with nil dependency")
	}
	if audit == nil {
		audit = auditdb.Nop()
	}
	s := &Service{gw: gw, cust: cust, audit: audit}

	s.flows = []*ussd.Flow{
		s.balanceFlow(),
		s.statementFlow(),
		s.withdrawFlow(),
		s.depositFlow(),
		s.transferFlow(),
		s.billpayFlow(),
		s.airtimeFlow(),
		s.changePinFlow(),
	}

	main := ussd.NewMenu(menuMain, "Welcome to Sokoni Bank")
	for i, f := range s.flows {
		main.With(fmt.Sprintf("%d", i+1), flowLabels[f.Name], f.Entry())
	}
	s.catalog = ussd.Catalog{}.Add(main)

	//the first PIN that verifies logs the customer in for the rest of the
	//dialog; later flows submit without another verify round-trip
	for _, f := range s.flows {
		if f.Verify == nil {
			f.Verify = s.verifyConfirmPIN
		}
	}

	s.tree = ussd.NewTree(menuMain)
	for _, f := range s.flows {
		s.tree.Add(f.Edges(menuMain)...)
	}
	return s
}

func (s *Service) verifyConfirmPIN(ctx context.Context, req *ussd.Request, sess *ussd.Session, pin string) error {
	res := s.cust.VerifyPIN(ctx, req.SessionID, req.Channel, sess.Msisdn, sess.Customer.ID, pin)
	if !res.OK() {
		return errors.Errorf("%s", failText(res))
	}
	return nil
}

var flowLabels = map[string]string{
	"balance":   "Balance",
	"statement": "Mini statement",
	"withdraw":  "Withdraw cash",
	"deposit":   "Deposit",
	"transfer":  "Funds transfer",
	"billpay":   "Pay bill",
	"airtime":   "Buy airtime",
	"changepin": "Change PIN",
}

func (s *Service) Tree() *ussd.Tree      { return s.tree }
func (s *Service) Catalog() ussd.Catalog { return s.catalog }
func (s *Service) Flows() []*ussd.Flow   { return s.flows }

//Register() installs the main menu and every flow on the machine
func (s *Service) Register(m *ussd.Machine) {
	for _, n := range s.catalog {
		m.Handle(n.Key, ussd.MenuHandler(n))
	}
	for _, f := range s.flows {
		f.Register(m)
	}
}

//accountStep() is the shared "select source account" step: the option
//numbering follows the order of the customer's account list
func accountStep() ussd.Step {
	return ussd.Step{
		Name:     "account",
		Field:    "account",
		Prompt:   accountPrompt("Select account"),
		Validate: validateAccount,
	}
}

func accountPrompt(title string) func(*ussd.Session) string {
	return func(s *ussd.Session) string {
		text := title
		if s.Customer != nil {
			for i, a := range s.Customer.Accounts {
				text += fmt.Sprintf("\n%d. %s", i+1, a)
			}
		}
		return text
	}
}

func validateAccount(s *ussd.Session, input string) (string, error) {
	if s.Customer == nil || len(s.Customer.Accounts) == 0 {
		return "", errors.Errorf("No accounts available")
	}
	return ussd.ValidateSelection(input, s.Customer.Accounts)
}

func amountStep(label string) ussd.Step {
	return ussd.Step{
		Name:  "amount",
		Field: "amount",
		Prompt: func(s *ussd.Session) string {
			return label
		},
		Validate: func(s *ussd.Session, input string) (string, error) {
			return ussd.ValidateAmount(input)
		},
	}
}

//submit() makes the single gateway call of a flow's terminal step and
//records the audit trail entry
func (s *Service) submit(ctx context.Context, req *ussd.Request, sess *ussd.Session, menu string, service string, fields []bank.Field) bank.Result {
	t0 := time.Now()
	res := s.gw.Call(ctx, bank.Request{
		Service:   service,
		SessionID: req.SessionID,
		Channel:   req.Channel,
		Fields:    fields,
	})
	s.audit.Record(ctx, auditdb.Entry{
		SessionID: req.SessionID,
		Msisdn:    sess.Msisdn,
		Menu:      menu,
		Service:   service,
		Status:    res.Status,
		Elapsed:   time.Since(t0),
	})
	return res
}

//failText() builds the uniform user-facing failure message
func failText(res bank.Result) string {
	if res.Data != "" {
		return res.Data
	}
	return ussd.MsgServiceUnavailable
}
