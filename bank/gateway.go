package bank

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"bitbucket.org/vservices/utils/v4/errors"
	"bitbucket.org/vservices/utils/v4/logger"
	"github.com/google/uuid"
)

var log = logger.NewLogger()

//Request is one call to the banking host
//identity fields (device, bank, country, source, unique id) are added by
//the gateway itself; the caller only supplies what varies per operation
type Request struct {
	Service   string
	SessionID string
	Channel   string
	Fields    []Field
}

//Gateway is the opaque RPC to the legacy banking host
//Call never returns a transport error to the caller: timeouts, connection
//failures and unparseable responses all come back as a uniform failure
//Result, and a call is never retried automatically within one keystroke
type Gateway interface {
	Call(ctx context.Context, req Request) Result
}

type httpGateway struct {
	config Config
	client *http.Client
}

func New(c Config) (Gateway, error) {
	if err := c.Validate(); err != nil {
		return nil, errors.Wrapf(err, "invalid bank config")
	}
	return &httpGateway{
		config: c,
		client: &http.Client{Timeout: c.Timeout.Duration()},
	}, nil
}

func (g *httpGateway) Call(ctx context.Context, req Request) Result {
	fields := []Field{
		{Key: "DEVICE", Value: g.config.DeviceID},
		{Key: "SESSIONID", Value: req.SessionID},
		{Key: "BANKID", Value: g.config.BankID},
		{Key: "CHANNEL", Value: req.Channel},
		{Key: "COUNTRY", Value: g.config.Country},
		{Key: "SOURCE", Value: g.config.Source},
		{Key: "UNIQUEID", Value: uuid.New().String()},
	}
	fields = append(fields, req.Fields...)
	body := encodeRequest(req.Service, fields)

	t0 := time.Now()
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.config.Url, strings.NewReader(body))
	if err != nil {
		log.Errorf("bank(%s) bad request: %+v", req.Service, err)
		return failedResult()
	}
	httpReq.Header.Set("Content-Type", "text/plain")
	httpRes, err := g.client.Do(httpReq)
	if err != nil {
		log.Errorf("bank(%s) call failed after %s: %+v", req.Service, time.Since(t0), err)
		return failedResult()
	}
	defer httpRes.Body.Close()
	resBody, err := io.ReadAll(httpRes.Body)
	if err != nil {
		log.Errorf("bank(%s) read failed: %+v", req.Service, err)
		return failedResult()
	}
	res := parseResponse(string(resBody))
	log.Debugf("bank(%s) -> status(%s) in %s", req.Service, res.Status, time.Since(t0))
	return res
}
