package menus

import (
	"context"

	"bitbucket.org/vservices/ms-vservices-bankussd/bank"
	"bitbucket.org/vservices/ms-vservices-bankussd/ussd"
)

//changepin collects the current and new PIN, then uses the confirm step's
//PIN entry as the re-type check: a mismatch ends the dialog outright so a
//half-confirmed PIN can never linger in a live session
func (s *Service) changePinFlow() *ussd.Flow {
	pinStep := func(name string, field string, label string) ussd.Step {
		return ussd.Step{
			Name:  name,
			Field: field,
			Prompt: func(sess *ussd.Session) string {
				return label
			},
			Validate: func(sess *ussd.Session, input string) (string, error) {
				if err := ussd.ValidatePIN(input); err != nil {
					return "", err
				}
				return input, nil
			},
		}
	}
	f := &ussd.Flow{
		Name: "changepin",
		Steps: []ussd.Step{
			pinStep("current", "current", "Enter current PIN"),
			pinStep("new", "newpin", "Enter new PIN"),
		},
		Confirm: func(sess *ussd.Session) string {
			return "Re-enter new PIN to confirm"
		},
	}
	//the confirm input here is the new PIN re-entry, so the credential to
	//verify is the collected current PIN, not the confirm input
	f.Verify = func(ctx context.Context, req *ussd.Request, sess *ussd.Session, pin string) error {
		return s.verifyConfirmPIN(ctx, req, sess, sess.Flow.Value("current"))
	}
	f.Submit = func(ctx context.Context, req *ussd.Request, sess *ussd.Session, pin string) ussd.Outcome {
		if pin != sess.Flow.Value("newpin") {
			return ussd.Outcome{
				Text: "PINs do not match. Please start again.",
				End:  true,
			}
		}
		res := s.submit(ctx, req, sess, f.ConfirmMenu(), "PINCHANGE", []bank.Field{
			{Key: "OLDPIN", Value: sess.Flow.Value("current")},
			{Key: "NEWPIN", Value: pin},
		})
		if !res.OK() {
			return ussd.Outcome{Text: failText(res)}
		}
		return ussd.Outcome{OK: true, Text: "Your PIN has been changed."}
	}
	return f
}
