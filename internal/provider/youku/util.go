package youku

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
)

func readBody(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

var jsonpPattern = regexp.MustCompile(`(?s)utility\d+\((.*)\)`)

// unwrapJSONP extracts the inner JSON payload of a `utilityNNN(...)`
// JSONP response body (spec §4.1.4).
func unwrapJSONP(body []byte) ([]byte, error) {
	m := jsonpPattern.FindSubmatch(body)
	if m == nil {
		return nil, fmt.Errorf("youku: response is not JSONP-wrapped")
	}
	return m[1], nil
}

type danmakuAPIEnvelope struct {
	Data struct {
		Result string `json:"result"`
	} `json:"data"`
}

// unwrapDoubleEncodedResult parses a JSONP body whose `data.result`
// field is itself a JSON string requiring a second decode pass (spec
// §4.1.4).
func unwrapDoubleEncodedResult(body []byte, out interface{}) error {
	inner, err := unwrapJSONP(body)
	if err != nil {
		return err
	}

	var envelope danmakuAPIEnvelope
	if err := json.Unmarshal(inner, &envelope); err != nil {
		return err
	}
	if envelope.Data.Result == "" {
		return fmt.Errorf("youku: empty data.result")
	}
	return json.Unmarshal([]byte(envelope.Data.Result), out)
}
