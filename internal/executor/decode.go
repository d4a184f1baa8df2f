package executor

import (
	"bytes"
	"encoding/base64"
	"io"
	"mime"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/klauspost/compress/gzip"
)

// textualTypes are content types decoded as literal text. Everything else is
// reported as base64.
var textualTypes = map[string]bool{
	"application/json":                  true,
	"application/xml":                   true,
	"application/xhtml+xml":             true,
	"application/x-www-form-urlencoded": true,
	"application/javascript":            true,
	"application/ecmascript":            true,
	"application/x-javascript":          true,
}

// isTextual classifies a content type as literal-text-safe.
func isTextual(contentType string) bool {
	ct, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		ct = strings.ToLower(strings.TrimSpace(contentType))
	}
	ct = strings.ToLower(ct)
	if strings.HasPrefix(ct, "text/") {
		return true
	}
	if strings.HasSuffix(ct, "+json") || strings.HasSuffix(ct, "+xml") {
		return true
	}
	return textualTypes[ct]
}

// DecodeBody turns raw response bytes into the wire representation: literal
// text for text-like content types, base64 otherwise. Bodies still carrying
// an explicit gzip Content-Encoding (the transport only decompresses when it
// negotiated the encoding itself) are decompressed first. The returned size
// is the true byte size of the decoded body.
func DecodeBody(body []byte, contentType, contentEncoding string) (text string, isBase64 bool, size int) {
	if strings.Contains(strings.ToLower(contentEncoding), "gzip") {
		if inflated, err := gunzip(body); err == nil {
			body = inflated
		}
	}

	if len(body) == 0 {
		return "", false, 0
	}

	ct := contentType
	if ct == "" {
		ct = mimetype.Detect(body).String()
	}

	if isTextual(ct) {
		return string(body), false, len(body)
	}
	return base64.StdEncoding.EncodeToString(body), true, len(body)
}

func gunzip(data []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}
