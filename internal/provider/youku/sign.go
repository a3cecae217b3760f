package youku

import (
	"crypto/md5"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
)

var (
	errNoCNA   = errors.New("youku: cna cookie not set by mmstat response")
	errNoToken = errors.New("youku: _m_h5_tk cookie not set by warm-up response")
)

type danmakuMsg struct {
	Pid    string `json:"pid"`
	Ctype  int    `json:"ctype"`
	Sver   string `json:"sver"`
	Cver   string `json:"cver"`
	Ctime  int64  `json:"ctime"`
	Guid   string `json:"guid"`
	Vid    string `json:"vid"`
	Mat    int    `json:"mat"`
	Mcount int    `json:"mcount"`
	Type   int    `json:"type"`
	Sign   string `json:"sign,omitempty"`
}

// buildSignedMsg serializes the danmaku request msg with sorted keys,
// base64-encodes it, and computes msg.sign (spec §4.1.4 step 1).
func buildSignedMsg(cna, vid string, mat int, ctime int64) (msgEnc string, err error) {
	msg := danmakuMsg{
		Pid:    "",
		Ctype:  10004,
		Sver:   "3.1.0",
		Cver:   "v1.0",
		Ctime:  ctime,
		Guid:   cna,
		Vid:    vid,
		Mat:    mat,
		Mcount: 1,
		Type:   1,
	}

	ordered, err := marshalSortedKeys(msg)
	if err != nil {
		return "", err
	}
	msgEnc = base64.StdEncoding.EncodeToString(ordered)

	sign := md5Hex(msgEnc + danmakuSignKey)
	msg.Sign = sign

	ordered, err = marshalSortedKeys(msg)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(ordered), nil
}

// marshalSortedKeys JSON-serializes a struct with its fields emitted in
// sorted-key order, matching the JS `JSON.stringify` with pre-sorted
// object keys that the source signs against.
func marshalSortedKeys(v interface{}) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var generic map[string]json.RawMessage
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(generic))
	for k := range generic {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf []byte
	buf = append(buf, '{')
	for i, k := range keys {
		if i > 0 {
			buf = append(buf, ',')
		}
		kb, _ := json.Marshal(k)
		buf = append(buf, kb...)
		buf = append(buf, ':')
		buf = append(buf, generic[k]...)
	}
	buf = append(buf, '}')
	return buf, nil
}

// outerSignature computes the token-cookie-bound request signature
// (spec §4.1.4 step 2).
func outerSignature(tkCookie string, t int64, appKey, dataPayload string) string {
	prefix := tkPrefix(tkCookie)
	return md5Hex(fmt.Sprintf("%s&%d&%s&%s", prefix, t, appKey, dataPayload))
}

func md5Hex(s string) string {
	sum := md5.Sum([]byte(s))
	return fmt.Sprintf("%x", sum)
}
