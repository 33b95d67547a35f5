package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"bitbucket.org/vservices/ms-vservices-bankussd/bank"
	"bitbucket.org/vservices/ms-vservices-bankussd/menus"
	"bitbucket.org/vservices/ms-vservices-bankussd/sessions"
	"bitbucket.org/vservices/ms-vservices-bankussd/ussd"
)

//console runs the banking menu against a stubbed banking host so flows can
//be exercised end to end from a terminal
func main() {
	msisdnPtr := flag.String("msisdn", "254712345678", "Subscriber MSISDN in international format")
	flag.Parse()

	gw := stubGateway{msisdn: *msisdnPtr}
	customers := bank.NewCustomers(gw, nil, 0)
	svc := menus.New(gw, customers, nil)
	machine := ussd.NewMachine(
		ussd.NewManager(sessions.NewMemory(10*time.Minute)),
		svc.Tree(),
		customers)
	svc.Register(machine)

	reader := bufio.NewReader(os.Stdin)
	ctx := context.Background()
	sessionNr := 0
	for {
		sessionNr++
		fmt.Fprintf(os.Stdout, "\n")
		fmt.Fprintf(os.Stdout, "===== U S S D - S I M U L A T O R =====\n")
		fmt.Fprintf(os.Stdout, "    ( session: %d )    \n", sessionNr)
		fmt.Fprintf(os.Stdout, "---------------------------------------\n")

		id := fmt.Sprintf("console:%s:%d", *msisdnPtr, sessionNr)
		input := ""
		for {
			reply := machine.Dispatch(ctx, &ussd.Request{
				SessionID: id,
				Msisdn:    *msisdnPtr,
				Channel:   "*334#",
				Input:     input,
			})
			fmt.Fprintf(os.Stdout, "\n%s\n", reply.Text)
			fmt.Fprintf(os.Stdout, "-----------------------------(len:%3d)--\n", len(reply.Text))
			if !reply.Continues {
				fmt.Fprintf(os.Stdout, "==========[ E N D ]====================\n")
				break
			}
			fmt.Fprintf(os.Stdout, "     ? ")
			line, err := reader.ReadString('\n')
			if err != nil {
				fmt.Fprintf(os.Stdout, "Terminated.\n")
				return
			}
			input = strings.TrimSpace(line)
			if input == "exit" {
				return
			}
		}
	}
}

//stubGateway answers like the banking host for demonstration purposes
type stubGateway struct {
	msisdn string
}

func (g stubGateway) Call(ctx context.Context, req bank.Request) bank.Result {
	fields := map[string]string{}
	switch req.Service {
	case "CUSTDETAILS":
		fields["CUSTID"] = "C0001"
		fields["FIRSTNAME"] = "Jane"
		fields["LASTNAME"] = "Wanjiku"
		fields["ACCOUNTS"] = "1001,1002"
		return bank.Result{Status: "000", Fields: fields}
	case "BALENQ":
		return bank.Result{Status: "000", Data: "Balance:500.00", Fields: fields}
	case "MINISTMT":
		return bank.Result{Status: "000", Data: "1. -200.00 BILLPAY\n2. +1500.00 DEPOSIT", Fields: fields}
	default:
		return bank.Result{Status: "000", Data: "Accepted", Fields: fields}
	}
}
