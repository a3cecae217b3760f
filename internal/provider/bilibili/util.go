package bilibili

import (
	"encoding/json"
	"io"
	"net/http"
)

func decodeJSON(resp *http.Response, v interface{}) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	return json.Unmarshal(body, v)
}
