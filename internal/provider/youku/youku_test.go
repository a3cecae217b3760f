package youku

import "testing"

func TestTkPrefix(t *testing.T) {
	if got := tkPrefix("abc123_456_789"); got != "abc123" {
		t.Fatalf("expected prefix 'abc123', got %q", got)
	}
	if got := tkPrefix("noUnderscore"); got != "noUnderscore" {
		t.Fatalf("expected whole string when no underscore, got %q", got)
	}
}

func TestSplitSession(t *testing.T) {
	cna, tk := splitSession("cnavalue|tkvalue")
	if cna != "cnavalue" || tk != "tkvalue" {
		t.Fatalf("unexpected split: %q, %q", cna, tk)
	}

	cna, tk = splitSession("malformed")
	if cna != "" || tk != "" {
		t.Fatalf("expected empty split for malformed session, got %q, %q", cna, tk)
	}
}

func TestBuildSignedMsgDeterministic(t *testing.T) {
	enc1, err := buildSignedMsg("cna1", "vid1", 1, 1700000000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	enc2, err := buildSignedMsg("cna1", "vid1", 1, 1700000000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if enc1 != enc2 {
		t.Fatal("expected identical inputs to produce identical signed payloads")
	}
}

func TestUnwrapJSONP(t *testing.T) {
	body := []byte(`utility12345({"data":{"result":"{\"result\":[]}"}})`)
	inner, err := unwrapJSONP(body)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(inner) == 0 {
		t.Fatal("expected non-empty inner payload")
	}
}

func TestUnwrapDoubleEncodedResult(t *testing.T) {
	body := []byte(`utility999(` + `{"data":{"result":"{\"result\":[{\"content\":\"hi\",\"playat\":1000}]}"}}` + `)`)

	var result danmakuSegmentResult
	if err := unwrapDoubleEncodedResult(body, &result); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Result) != 1 || result.Result[0].Content != "hi" {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestSplitVidDuration(t *testing.T) {
	vid, duration, err := splitVidDuration("XNTk5,605")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if vid != "XNTk5" || duration != 605 {
		t.Fatalf("unexpected split: %q, %d", vid, duration)
	}
}
