package connector

import (
	"errors"
	"strings"
	"testing"
)

type sampleResponse struct {
	Status string `json:"status"`
	ID     string `json:"id"`
}

func TestBridgeDecode(t *testing.T) {
	bridge := NewJSONBridge[sampleResponse]("test")

	decoded, err := bridge.Decode([]byte(`{"status":"ok","id":"abc"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if decoded.Status != "ok" || decoded.ID != "abc" {
		t.Errorf("unexpected decode result %+v", decoded)
	}
}

func TestBridgeDecodeEmptyBody(t *testing.T) {
	bridge := NewJSONBridge[sampleResponse]("test")

	for _, body := range [][]byte{nil, {}, []byte("   \n\t ")} {
		decoded, err := bridge.Decode(body)
		if err != nil {
			t.Fatalf("empty body must decode to the zero value, got %v", err)
		}
		if decoded != (sampleResponse{}) {
			t.Errorf("expected zero value, got %+v", decoded)
		}
	}
}

func TestBridgeDecodeMalformedPreservesRaw(t *testing.T) {
	bridge := NewJSONBridge[sampleResponse]("test")

	raw := []byte(`<html>502 Bad Gateway</html>`)
	_, err := bridge.Decode(raw)
	if err == nil {
		t.Fatal("expected malformed body to fail")
	}
	if !IsKind(err, ErrResponseDeserializationFailed) {
		t.Fatalf("expected deserialization error, got %v", err)
	}
	var cerr *Error
	if !errors.As(err, &cerr) {
		t.Fatalf("expected a framework error, got %v", err)
	}
	if string(cerr.RawResponse) != string(raw) {
		t.Error("expected the raw bytes to be preserved on the error")
	}
}

func TestBridgePreprocessor(t *testing.T) {
	bridge := NewJSONBridge[sampleResponse]("test").WithPreprocessor(StripBOM)

	decoded, err := bridge.Decode([]byte("\xEF\xBB\xBF" + `{"status":"ok","id":"bom"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if decoded.ID != "bom" {
		t.Errorf("unexpected decode result %+v", decoded)
	}
}

func TestLineValuesToJSON(t *testing.T) {
	out, err := LineValuesToJSON([]byte("StatCode=00\nTranID=829002\n\nRefNo=ref-77\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{`"StatCode":"00"`, `"TranID":"829002"`, `"RefNo":"ref-77"`} {
		if !strings.Contains(string(out), want) {
			t.Errorf("expected %s in %s", want, out)
		}
	}

	if _, err := LineValuesToJSON([]byte("not a key value line")); err == nil {
		t.Error("expected a line without '=' to fail")
	}
}

func TestLineValuesPreservesValueEquals(t *testing.T) {
	out, err := LineValuesToJSON([]byte("sig=a=b=c"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(string(out), `"sig":"a=b=c"`) {
		t.Errorf("expected '=' inside values to survive, got %s", out)
	}
}

func TestFormContent(t *testing.T) {
	values := map[string][]string{"a": {"1"}, "b c": {"x y"}}
	content := FormContent(values)
	if content.ContentType != "application/x-www-form-urlencoded" {
		t.Errorf("unexpected content type %s", content.ContentType)
	}
	body := string(content.Body)
	if !strings.Contains(body, "a=1") || !strings.Contains(body, "b+c=x+y") {
		t.Errorf("unexpected form encoding %s", body)
	}
}

func TestMultipartContent(t *testing.T) {
	content, err := MultipartContent("test",
		map[string]string{"field": "value"},
		map[string]MultipartFile{"doc": {Filename: "evidence.pdf", Content: []byte("%PDF-1.4")}},
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(content.ContentType, "multipart/form-data; boundary=") {
		t.Errorf("unexpected content type %s", content.ContentType)
	}
	body := string(content.Body)
	if !strings.Contains(body, "evidence.pdf") || !strings.Contains(body, "%PDF-1.4") {
		t.Error("expected the file part in the body")
	}
}
