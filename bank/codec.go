package bank

import (
	"strings"
)

//the legacy banking host speaks a flat colon-delimited key/value protocol:
//requests are "SERVICE:KEY:value:KEY:value:..." and responses come back as
//"KEY:value:KEY:value:..." inside an optional quoted/whitespace envelope

//Field is one ordered key/value pair of a gateway request
//order matters to the legacy host, so fields are a list, not a map
type Field struct {
	Key   string
	Value string
}

//response keys every caller inspects
const (
	keyStatus = "STATUS"
	keyData   = "DATA"
)

//StatusParseFailed is reported when a response cannot be decoded at all
const StatusParseFailed = "999"

//a response shorter than this cannot hold even one KEY:value pair
const minResponseLen = 4

//Result is the decoded outcome of one gateway call
//Status "000" (or "OK") is the only success sentinel; every other value,
//including transport and parse failures, is a uniform failure
type Result struct {
	Status string
	Data   string
	Fields map[string]string
}

func (r Result) OK() bool {
	return r.Status == "000" || r.Status == "OK"
}

func failedResult() Result {
	return Result{
		Status: StatusParseFailed,
		Fields: map[string]string{keyStatus: StatusParseFailed},
	}
}

//encodeRequest() renders the service code and ordered fields on the wire
func encodeRequest(service string, fields []Field) string {
	b := strings.Builder{}
	b.WriteString(service)
	for _, f := range fields {
		b.WriteString(":")
		b.WriteString(f.Key)
		b.WriteString(":")
		b.WriteString(f.Value)
	}
	return b.String()
}

//parseResponse() strips the transport envelope and splits the delimited
//pairs into a flat map
//anything too short or without a recognizable delimiter is a parse failure
//DATA is free text that may itself contain the delimiter (the host answers
//balance enquiries with "DATA:Balance:500.00"), so it is always the last
//field on the wire and everything after its key is taken verbatim
func parseResponse(body string) Result {
	s := strings.TrimSpace(body)
	s = strings.Trim(s, "\"")
	if len(s) < minResponseLen || !strings.Contains(s, ":") {
		return failedResult()
	}
	data := ""
	hasData := false
	if strings.HasPrefix(s, keyData+":") {
		data = s[len(keyData)+1:]
		hasData = true
		s = ""
	} else if i := strings.Index(s, ":"+keyData+":"); i >= 0 {
		data = s[i+len(keyData)+2:]
		hasData = true
		s = s[:i]
	}
	parts := strings.Split(s, ":")
	fields := map[string]string{}
	for i := 0; i+1 < len(parts); i += 2 {
		fields[strings.TrimSpace(parts[i])] = parts[i+1]
	}
	if hasData {
		fields[keyData] = data
	}
	status, ok := fields[keyStatus]
	if !ok || status == "" {
		return failedResult()
	}
	return Result{
		Status: status,
		Data:   data,
		Fields: fields,
	}
}
