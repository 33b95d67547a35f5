package bank

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"bitbucket.org/vservices/ms-vservices-bankussd/ussd"
	"bitbucket.org/vservices/utils/v4/errors"
	"github.com/go-redis/redis/v8"
)

//service codes on the banking host
const (
	svcCustomerDetails = "CUSTDETAILS"
	svcVerifyPIN       = "PINVERIFY"
)

//Customers resolves and verifies customer identity against the banking host
//lookup snapshots are cached by msisdn because identity outlives any one
//session; entries are immutable and replaced wholesale, and neither the
//LoggedIn flag nor the PIN is ever cached
type Customers struct {
	gw       Gateway
	rdb      *redis.Client //nil disables caching
	cacheTTL time.Duration
}

func NewCustomers(gw Gateway, rdb *redis.Client, cacheTTL time.Duration) *Customers {
	if gw == nil {
		panic("NewCustomers(nil gateway)")
	}
	return &Customers{gw: gw, rdb: rdb, cacheTTL: cacheTTL}
}

func cacheKey(msisdn string) string { return "customer:" + msisdn }

//Lookup() implements ussd.CustomerLookup
func (c *Customers) Lookup(ctx context.Context, msisdn string) (*ussd.Customer, error) {
	if cached := c.fromCache(ctx, msisdn); cached != nil {
		return cached, nil
	}
	res := c.gw.Call(ctx, Request{
		Service: svcCustomerDetails,
		Fields:  []Field{{Key: "MSISDN", Value: msisdn}},
	})
	if !res.OK() {
		return nil, errors.Errorf("customer lookup(%s) failed with status(%s)", msisdn, res.Status)
	}
	customer := &ussd.Customer{
		ID:        res.Fields["CUSTID"],
		Firstname: res.Fields["FIRSTNAME"],
		Lastname:  res.Fields["LASTNAME"],
	}
	if customer.ID == "" {
		return nil, errors.Errorf("customer lookup(%s) returned no customer id", msisdn)
	}
	if accounts := res.Fields["ACCOUNTS"]; accounts != "" {
		customer.Accounts = strings.Split(accounts, ",")
	}
	c.toCache(ctx, msisdn, customer)
	return customer, nil
}

//VerifyPIN() is the explicit credential-verify capability of the banking
//host - callers never re-run a login flow to check a PIN
func (c *Customers) VerifyPIN(ctx context.Context, sessionID string, channel string, msisdn string, customerID string, pin string) Result {
	return c.gw.Call(ctx, Request{
		Service:   svcVerifyPIN,
		SessionID: sessionID,
		Channel:   channel,
		Fields: []Field{
			{Key: "MSISDN", Value: msisdn},
			{Key: "CUSTID", Value: customerID},
			{Key: "PIN", Value: pin},
		},
	})
}

func (c *Customers) fromCache(ctx context.Context, msisdn string) *ussd.Customer {
	if c.rdb == nil {
		return nil
	}
	value, err := c.rdb.Get(ctx, cacheKey(msisdn)).Result()
	if err != nil {
		if err != redis.Nil {
			log.Errorf("customer cache get(%s) failed: %+v", msisdn, err)
		}
		return nil
	}
	var customer ussd.Customer
	if err := json.Unmarshal([]byte(value), &customer); err != nil {
		log.Errorf("customer cache entry(%s) corrupt, discarded: %+v", msisdn, err)
		return nil
	}
	customer.LoggedIn = false //never trust a cached login state
	return &customer
}

func (c *Customers) toCache(ctx context.Context, msisdn string, customer *ussd.Customer) {
	if c.rdb == nil {
		return
	}
	snapshot := *customer
	snapshot.LoggedIn = false
	value, err := json.Marshal(snapshot)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, cacheKey(msisdn), value, c.cacheTTL).Err(); err != nil {
		log.Errorf("customer cache set(%s) failed: %+v", msisdn, err)
	}
}
