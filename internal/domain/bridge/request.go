package bridge

import (
	"strings"

	"github.com/tidwall/gjson"

	"github.com/Strob0t/agentbridge/internal/domain"
)

// Request is a parsed webhook delivery: {action, data?}.
type Request struct {
	Name   string
	Action Action
	Data   gjson.Result
}

// ParseRequest parses a webhook body. An unrecognised action name is not an
// error here; it yields ActionUnknown and is rejected at dispatch.
func ParseRequest(raw []byte) (Request, error) {
	if !gjson.ValidBytes(raw) {
		return Request{}, domain.Invalid("request body must be a JSON object")
	}
	root := gjson.ParseBytes(raw)
	if !root.IsObject() {
		return Request{}, domain.Invalid("request body must be a JSON object")
	}
	name := strings.TrimSpace(root.Get("action").String())
	if name == "" {
		return Request{}, domain.Invalid("action is required")
	}
	return Request{Name: name, Action: ParseAction(name), Data: root.Get("data")}, nil
}
