package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/pocketbase/pocketbase/core"

	"budgetledger/services"
)

// parseUpload reads the multipart "file" field, bounded to maxBytes, and
// parses it into estimate sheets.
func parseUpload(e *core.RequestEvent, maxBytes int64, opts services.ParseOptions) (string, []services.Sheet, error) {
	if e.Request.ContentLength > maxBytes {
		return "", nil, &http.MaxBytesError{Limit: maxBytes}
	}
	e.Request.Body = http.MaxBytesReader(e.Response, e.Request.Body, maxBytes)
	if err := e.Request.ParseMultipartForm(maxBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return "", nil, err
		}
		return "", nil, &services.InvalidInputError{Reason: fmt.Sprintf("invalid form data: %v", err)}
	}

	file, header, err := e.Request.FormFile("file")
	if err != nil {
		return "", nil, &services.InvalidInputError{Reason: `missing multipart field "file"`}
	}
	defer file.Close()

	sheets, err := services.ParseEstimateFile(file, header.Filename, opts)
	if err != nil {
		return "", nil, err
	}
	return header.Filename, sheets, nil
}
