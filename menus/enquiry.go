package menus

import (
	"context"
	"fmt"
	"strings"

	"bitbucket.org/vservices/ms-vservices-bankussd/bank"
	"bitbucket.org/vservices/ms-vservices-bankussd/ussd"
)

func (s *Service) balanceFlow() *ussd.Flow {
	f := &ussd.Flow{
		Name:  "balance",
		Steps: []ussd.Step{accountStep()},
		Confirm: func(sess *ussd.Session) string {
			return fmt.Sprintf("Balance enquiry\nAccount: %s\nEnter PIN", sess.Flow.Value("account"))
		},
	}
	f.Submit = func(ctx context.Context, req *ussd.Request, sess *ussd.Session, pin string) ussd.Outcome {
		account := sess.Flow.Value("account")
		res := s.submit(ctx, req, sess, f.ConfirmMenu(), "BALENQ", []bank.Field{
			{Key: "ACCOUNT", Value: account},
			{Key: "PIN", Value: pin},
		})
		if !res.OK() {
			return ussd.Outcome{Text: failText(res)}
		}
		return ussd.Outcome{
			OK:   true,
			Text: fmt.Sprintf("Account: %s\nKsh %s", account, balanceOf(res.Data)),
		}
	}
	return f
}

//balanceOf() extracts the figure from the host's "Balance:500.00" data
//string, falling back to the data as-is
func balanceOf(data string) string {
	if i := strings.Index(data, ":"); i >= 0 {
		return data[i+1:]
	}
	return data
}

func (s *Service) statementFlow() *ussd.Flow {
	f := &ussd.Flow{
		Name:  "statement",
		Steps: []ussd.Step{accountStep()},
		Confirm: func(sess *ussd.Session) string {
			return fmt.Sprintf("Mini statement\nAccount: %s\nEnter PIN", sess.Flow.Value("account"))
		},
	}
	f.Submit = func(ctx context.Context, req *ussd.Request, sess *ussd.Session, pin string) ussd.Outcome {
		res := s.submit(ctx, req, sess, f.ConfirmMenu(), "MINISTMT", []bank.Field{
			{Key: "ACCOUNT", Value: sess.Flow.Value("account")},
			{Key: "PIN", Value: pin},
		})
		if !res.OK() {
			return ussd.Outcome{Text: failText(res)}
		}
		text := res.Data
		if text == "" {
			text = "No recent transactions"
		}
		return ussd.Outcome{OK: true, Text: text}
	}
	return f
}
