package fetcher

import (
	"mime"
	"net/url"
	"strings"

	"github.com/mfenderov/pdf-rag/internal/extractor"
)

// IsPDFContentType checks if the Content-Type header indicates a PDF.
func IsPDFContentType(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "application/pdf" || mediaType == "application/x-pdf"
}

// IsPDFURL checks if the URL path names a PDF file.
func IsPDFURL(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return strings.HasSuffix(strings.ToLower(u.Path), ".pdf")
}

// isGenericContentType reports labels servers use for arbitrary downloads.
func isGenericContentType(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return contentType == ""
	}
	switch mediaType {
	case "application/octet-stream", "binary/octet-stream",
		"application/download", "application/x-download", "application/force-download":
		return true
	}
	return false
}

// Detect reports whether a response is a PDF. The body must carry the PDF
// header; beyond that either the Content-Type, the URL, or a generic
// download label must agree.
func Detect(rawURL, contentType string, body []byte) bool {
	if !extractor.HasPDFHeader(body) {
		return false
	}
	return IsPDFContentType(contentType) || IsPDFURL(rawURL) || isGenericContentType(contentType)
}
