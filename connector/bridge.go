package connector

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"mime/multipart"
	"net/url"
)

// BodyFormat selects the outbound body encoding of a (connector, flow) pair.
// It is static per operation, never runtime-inferred.
type BodyFormat string

const (
	FormatJSON           BodyFormat = "json"
	FormatFormURLEncoded BodyFormat = "form_urlencoded"
	FormatFormData       BodyFormat = "form_data"
	FormatXML            BodyFormat = "xml"
	FormatRawBytes       BodyFormat = "raw_bytes"
)

// Content is an encoded outbound request body with its content type.
type Content struct {
	Format      BodyFormat
	ContentType string
	Body        []byte
}

// JSONContent encodes v as a JSON body.
func JSONContent(connectorName string, v any) (*Content, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, WrapError(ErrRequestEncodingFailed, connectorName, "failed to encode JSON request body", err)
	}
	return &Content{Format: FormatJSON, ContentType: "application/json", Body: body}, nil
}

// FormContent encodes values as a form-urlencoded body.
func FormContent(values url.Values) *Content {
	return &Content{
		Format:      FormatFormURLEncoded,
		ContentType: "application/x-www-form-urlencoded",
		Body:        []byte(values.Encode()),
	}
}

// XMLContent encodes v as an XML body.
func XMLContent(connectorName string, v any) (*Content, error) {
	body, err := xml.Marshal(v)
	if err != nil {
		return nil, WrapError(ErrRequestEncodingFailed, connectorName, "failed to encode XML request body", err)
	}
	return &Content{Format: FormatXML, ContentType: "application/xml", Body: body}, nil
}

// RawContent wraps pre-encoded bytes.
func RawContent(contentType string, body []byte) *Content {
	return &Content{Format: FormatRawBytes, ContentType: contentType, Body: body}
}

// MultipartContent encodes fields as a multipart/form-data body. Files maps a
// field name to (filename, content).
func MultipartContent(connectorName string, fields map[string]string, files map[string]MultipartFile) (*Content, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for name, value := range fields {
		if err := w.WriteField(name, value); err != nil {
			return nil, WrapError(ErrRequestEncodingFailed, connectorName, "failed to encode multipart field", err)
		}
	}
	for name, file := range files {
		part, err := w.CreateFormFile(name, file.Filename)
		if err != nil {
			return nil, WrapError(ErrRequestEncodingFailed, connectorName, "failed to create multipart file part", err)
		}
		if _, err := part.Write(file.Content); err != nil {
			return nil, WrapError(ErrRequestEncodingFailed, connectorName, "failed to write multipart file part", err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, WrapError(ErrRequestEncodingFailed, connectorName, "failed to finalize multipart body", err)
	}
	return &Content{Format: FormatFormData, ContentType: w.FormDataContentType(), Body: buf.Bytes()}, nil
}

// MultipartFile is one file part of a multipart body.
type MultipartFile struct {
	Filename string
	Content  []byte
}

// Preprocessor transforms raw response bytes before structured
// deserialization (BOM stripping, line-based re-encoding, base64 decoding).
type Preprocessor func(raw []byte) ([]byte, error)

// Bridge decodes one connector response body type. Connectors construct one
// bridge per response shape at startup; bridges carry no per-call state.
type Bridge[Resp any] struct {
	Connector  string
	Format     BodyFormat
	Preprocess Preprocessor
}

// NewJSONBridge builds a bridge for a JSON response body.
func NewJSONBridge[Resp any](connectorName string) Bridge[Resp] {
	return Bridge[Resp]{Connector: connectorName, Format: FormatJSON}
}

// WithPreprocessor returns a copy of the bridge that runs the given transform
// on the raw bytes before decoding.
func (b Bridge[Resp]) WithPreprocessor(p Preprocessor) Bridge[Resp] {
	b.Preprocess = p
	return b
}

// Decode deserializes raw response bytes into the bridge's response type. An
// empty body decodes to the zero value: several providers return a truly
// empty 200. Malformed payloads fail with the raw bytes preserved.
func (b Bridge[Resp]) Decode(raw []byte) (Resp, error) {
	var out Resp
	data := raw
	if b.Preprocess != nil {
		transformed, err := b.Preprocess(raw)
		if err != nil {
			return out, DeserializationError(b.Connector, raw, err)
		}
		data = transformed
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return out, nil
	}
	switch b.Format {
	case FormatXML:
		if err := xml.Unmarshal(data, &out); err != nil {
			return out, DeserializationError(b.Connector, raw, err)
		}
	default:
		if err := json.Unmarshal(data, &out); err != nil {
			return out, DeserializationError(b.Connector, raw, err)
		}
	}
	return out, nil
}

// StripBOM removes a UTF-8 byte order mark. Some providers prefix their JSON
// bodies with one.
func StripBOM(raw []byte) ([]byte, error) {
	return bytes.TrimPrefix(raw, []byte{0xEF, 0xBB, 0xBF}), nil
}

// LineValuesToJSON re-encodes a line-oriented "key=value" body into a JSON
// object so it can flow through the structured decoder.
func LineValuesToJSON(raw []byte) ([]byte, error) {
	fields := map[string]string{}
	for _, line := range bytes.Split(raw, []byte("\n")) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		key, value, found := bytes.Cut(line, []byte("="))
		if !found {
			return nil, fmt.Errorf("malformed key=value line %q", line)
		}
		fields[string(bytes.TrimSpace(key))] = string(bytes.TrimSpace(value))
	}
	return json.Marshal(fields)
}
