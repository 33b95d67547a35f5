package menus

import (
	"context"
	"fmt"

	"bitbucket.org/vservices/ms-vservices-bankussd/bank"
	"bitbucket.org/vservices/ms-vservices-bankussd/ussd"
)

func (s *Service) withdrawFlow() *ussd.Flow {
	f := &ussd.Flow{
		Name: "withdraw",
		Steps: []ussd.Step{
			accountStep(),
			amountStep("Enter amount to withdraw"),
			{
				Name:  "agent",
				Field: "agent",
				Prompt: func(sess *ussd.Session) string {
					return "Enter agent phone number"
				},
				Validate: func(sess *ussd.Session, input string) (string, error) {
					return ussd.NormalizeMsisdn(input)
				},
			},
		},
		Confirm: func(sess *ussd.Session) string {
			return fmt.Sprintf("Withdraw Ksh %s\nFrom: %s\nAgent: %s\nEnter PIN",
				sess.Flow.Value("amount"), sess.Flow.Value("account"), sess.Flow.Value("agent"))
		},
	}
	f.Submit = func(ctx context.Context, req *ussd.Request, sess *ussd.Session, pin string) ussd.Outcome {
		res := s.submit(ctx, req, sess, f.ConfirmMenu(), "WITHDRAW", []bank.Field{
			{Key: "ACCOUNT", Value: sess.Flow.Value("account")},
			{Key: "AMOUNT", Value: sess.Flow.Value("amount")},
			{Key: "AGENT", Value: sess.Flow.Value("agent")},
			{Key: "PIN", Value: pin},
		})
		if !res.OK() {
			return ussd.Outcome{Text: failText(res)}
		}
		return ussd.Outcome{
			OK: true,
			Text: fmt.Sprintf("Withdrawal of Ksh %s from %s accepted. You will receive a confirmation SMS.",
				sess.Flow.Value("amount"), sess.Flow.Value("account")),
		}
	}
	return f
}

func (s *Service) depositFlow() *ussd.Flow {
	f := &ussd.Flow{
		Name: "deposit",
		Steps: []ussd.Step{
			accountStep(),
			amountStep("Enter amount to deposit"),
		},
		Confirm: func(sess *ussd.Session) string {
			return fmt.Sprintf("Deposit Ksh %s\nTo: %s\nEnter PIN",
				sess.Flow.Value("amount"), sess.Flow.Value("account"))
		},
	}
	f.Submit = func(ctx context.Context, req *ussd.Request, sess *ussd.Session, pin string) ussd.Outcome {
		res := s.submit(ctx, req, sess, f.ConfirmMenu(), "DEPOSIT", []bank.Field{
			{Key: "ACCOUNT", Value: sess.Flow.Value("account")},
			{Key: "AMOUNT", Value: sess.Flow.Value("amount")},
			{Key: "PIN", Value: pin},
		})
		if !res.OK() {
			return ussd.Outcome{Text: failText(res)}
		}
		return ussd.Outcome{
			OK: true,
			Text: fmt.Sprintf("Deposit of Ksh %s to %s accepted.",
				sess.Flow.Value("amount"), sess.Flow.Value("account")),
		}
	}
	return f
}

func (s *Service) transferFlow() *ussd.Flow {
	f := &ussd.Flow{
		Name: "transfer",
		Steps: []ussd.Step{
			accountStep(),
			{
				Name:  "recipient",
				Field: "recipient",
				Prompt: func(sess *ussd.Session) string {
					return "Enter recipient account number"
				},
				Validate: func(sess *ussd.Session, input string) (string, error) {
					return ussd.ValidateReference(input, 6, 16)
				},
			},
			amountStep("Enter amount to transfer"),
		},
		Confirm: func(sess *ussd.Session) string {
			return fmt.Sprintf("Transfer Ksh %s\nFrom: %s\nTo: %s\nEnter PIN",
				sess.Flow.Value("amount"), sess.Flow.Value("account"), sess.Flow.Value("recipient"))
		},
	}
	f.Submit = func(ctx context.Context, req *ussd.Request, sess *ussd.Session, pin string) ussd.Outcome {
		res := s.submit(ctx, req, sess, f.ConfirmMenu(), "FUNDSXFER", []bank.Field{
			{Key: "ACCOUNT", Value: sess.Flow.Value("account")},
			{Key: "CREDITACCOUNT", Value: sess.Flow.Value("recipient")},
			{Key: "AMOUNT", Value: sess.Flow.Value("amount")},
			{Key: "PIN", Value: pin},
		})
		if !res.OK() {
			return ussd.Outcome{Text: failText(res)}
		}
		return ussd.Outcome{
			OK: true,
			Text: fmt.Sprintf("Transfer of Ksh %s to %s accepted.",
				sess.Flow.Value("amount"), sess.Flow.Value("recipient")),
		}
	}
	return f
}
