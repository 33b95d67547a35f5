package menus

import (
	"context"
	"fmt"

	"bitbucket.org/vservices/ms-vservices-bankussd/bank"
	"bitbucket.org/vservices/ms-vservices-bankussd/ussd"
)

func (s *Service) airtimeFlow() *ussd.Flow {
	f := &ussd.Flow{
		Name: "airtime",
		Steps: []ussd.Step{
			accountStep(),
			{
				Name:  "phone",
				Field: "phone",
				Prompt: func(sess *ussd.Session) string {
					return "Buy airtime for\n1. My number\nOr enter another phone number"
				},
				Validate: func(sess *ussd.Session, input string) (string, error) {
					if input == "1" {
						return sess.Msisdn, nil
					}
					return ussd.NormalizeMsisdn(input)
				},
			},
			amountStep("Enter airtime amount"),
		},
		Confirm: func(sess *ussd.Session) string {
			return fmt.Sprintf("Airtime Ksh %s\nFor: %s\nFrom: %s\nEnter PIN",
				sess.Flow.Value("amount"), sess.Flow.Value("phone"), sess.Flow.Value("account"))
		},
	}
	f.Submit = func(ctx context.Context, req *ussd.Request, sess *ussd.Session, pin string) ussd.Outcome {
		res := s.submit(ctx, req, sess, f.ConfirmMenu(), "AIRTIME", []bank.Field{
			{Key: "ACCOUNT", Value: sess.Flow.Value("account")},
			{Key: "MSISDN", Value: sess.Flow.Value("phone")},
			{Key: "AMOUNT", Value: sess.Flow.Value("amount")},
			{Key: "PIN", Value: pin},
		})
		if !res.OK() {
			return ussd.Outcome{Text: failText(res)}
		}
		return ussd.Outcome{
			OK: true,
			Text: fmt.Sprintf("Airtime of Ksh %s for %s accepted.",
				sess.Flow.Value("amount"), sess.Flow.Value("phone")),
		}
	}
	return f
}
