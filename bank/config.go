package bank

import (
	"time"

	"bitbucket.org/vservices/utils/v4/errors"
	datatype "bitbucket.org/vservices/utils/v4/type"
)

type Config struct {
	Url      string            `json:"url" doc:"Banking host endpoint"`
	Timeout  datatype.Duration `json:"timeout" doc:"Bounded timeout per call (default 10s)"`
	DeviceID string            `json:"device_id"`
	BankID   string            `json:"bank_id"`
	Country  string            `json:"country"`
	Source   string            `json:"source"`
}

func (c *Config) Validate() error {
	if c.Url == "" {
		return errors.Errorf("missing url")
	}
	if c.Timeout <= 0 {
		c.Timeout = datatype.Duration(10 * time.Second)
	}
	if c.DeviceID == "" {
		c.DeviceID = "USSD"
	}
	if c.BankID == "" {
		return errors.Errorf("missing bank_id")
	}
	if c.Country == "" {
		c.Country = "KE"
	}
	if c.Source == "" {
		c.Source = "USSD"
	}
	return nil
}
