package menus

import (
	"context"
	"fmt"

	"bitbucket.org/vservices/ms-vservices-bankussd/bank"
	"bitbucket.org/vservices/ms-vservices-bankussd/ussd"
	"bitbucket.org/vservices/utils/v4/errors"
)

//billProvider is static configuration: the billers reachable from this
//service and the package each of them bills under
type billProvider struct {
	Code     string
	Label    string
	Packages []string
}

var billProviders = []billProvider{
	{Code: "KPLC", Label: "KPLC Power", Packages: []string{"Prepaid", "Postpaid"}},
	{Code: "NCW", Label: "Nairobi Water", Packages: []string{"Standard"}},
	{Code: "DSTV", Label: "DSTV", Packages: []string{"Compact", "Premium"}},
}

func providerByCode(code string) (billProvider, bool) {
	for _, p := range billProviders {
		if p.Code == code {
			return p, true
		}
	}
	return billProvider{}, false
}

//billpay runs provider -> package -> account -> amount, so Back from the
//account entry walks up through the package screen to the provider
//selection at the feature root
func (s *Service) billpayFlow() *ussd.Flow {
	f := &ussd.Flow{
		Name: "billpay",
		Steps: []ussd.Step{
			{
				Name:  "provider",
				Field: "provider",
				Prompt: func(sess *ussd.Session) string {
					text := "Pay bill\nSelect provider"
					for i, p := range billProviders {
						text += fmt.Sprintf("\n%d. %s", i+1, p.Label)
					}
					return text
				},
				Validate: func(sess *ussd.Session, input string) (string, error) {
					codes := make([]string, 0, len(billProviders))
					for _, p := range billProviders {
						codes = append(codes, p.Code)
					}
					return ussd.ValidateSelection(input, codes)
				},
			},
			{
				Name:  "package",
				Field: "package",
				Prompt: func(sess *ussd.Session) string {
					p, ok := providerByCode(sess.Flow.Value("provider"))
					if !ok {
						return "Select package"
					}
					text := p.Label + "\nSelect package"
					for i, pkg := range p.Packages {
						text += fmt.Sprintf("\n%d. %s", i+1, pkg)
					}
					return text
				},
				Validate: func(sess *ussd.Session, input string) (string, error) {
					p, ok := providerByCode(sess.Flow.Value("provider"))
					if !ok {
						return "", errors.Errorf("Invalid selection")
					}
					return ussd.ValidateSelection(input, p.Packages)
				},
			},
			{
				Name:  "reference",
				Field: "reference",
				Prompt: func(sess *ussd.Session) string {
					return "Enter account number"
				},
				Validate: func(sess *ussd.Session, input string) (string, error) {
					return ussd.ValidateReference(input, 4, 20)
				},
			},
			amountStep("Enter amount"),
		},
		Confirm: func(sess *ussd.Session) string {
			return fmt.Sprintf("Pay %s (%s)\nAccount: %s\nKsh %s\nEnter PIN",
				sess.Flow.Value("provider"), sess.Flow.Value("package"),
				sess.Flow.Value("reference"), sess.Flow.Value("amount"))
		},
	}
	f.Submit = func(ctx context.Context, req *ussd.Request, sess *ussd.Session, pin string) ussd.Outcome {
		res := s.submit(ctx, req, sess, f.ConfirmMenu(), "BILLPAY", []bank.Field{
			{Key: "PROVIDER", Value: sess.Flow.Value("provider")},
			{Key: "PACKAGE", Value: sess.Flow.Value("package")},
			{Key: "REFERENCE", Value: sess.Flow.Value("reference")},
			{Key: "AMOUNT", Value: sess.Flow.Value("amount")},
			{Key: "PIN", Value: pin},
		})
		if !res.OK() {
			return ussd.Outcome{Text: failText(res)}
		}
		return ussd.Outcome{
			OK: true,
			Text: fmt.Sprintf("Payment of Ksh %s to %s accepted.",
				sess.Flow.Value("amount"), sess.Flow.Value("provider")),
		}
	}
	return f
}
