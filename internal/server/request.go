// internal/server/request.go
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"

	apperrors "lead-capture/internal/common/errors"
	"lead-capture/internal/common/metrics"
	"lead-capture/internal/common/validation"
	validatesubmission "lead-capture/internal/workers/roi/validate-submission"
)

// decodeBody reads a single JSON document, keeping numbers as json.Number so
// the validator sees the caller's exact text.
func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request) (interface{}, error) {
	body := http.MaxBytesReader(w, r.Body, s.config.MaxBodyBytes)
	dec := json.NewDecoder(body)
	dec.UseNumber()

	var doc interface{}
	if err := dec.Decode(&doc); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, apperrors.NewInvalidRequestBodyError(fmt.Errorf("body exceeds %d bytes", tooLarge.Limit))
		}
		return nil, apperrors.NewInvalidRequestBodyError(err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, apperrors.NewInvalidRequestBodyError(errors.New("trailing data after JSON object"))
	}
	return doc, nil
}

// readObject decodes the body and checks it against schema. A non-object body
// is rejected outright; type mismatches come back as field errors.
func (s *Server) readObject(w http.ResponseWriter, r *http.Request, schema *validation.Validator) (map[string]interface{}, map[string]string, error) {
	doc, err := s.decodeBody(w, r)
	if err != nil {
		return nil, nil, err
	}

	result := schema.Validate(doc)
	if result.RootInvalid() {
		return nil, nil, apperrors.NewInvalidRequestBodyError(errors.New(strings.Join(result.GetErrorMessages(), "; ")))
	}

	raw, ok := doc.(map[string]interface{})
	if !ok {
		return nil, nil, apperrors.NewInvalidRequestBodyError(nil)
	}

	shapeErrors := map[string]string{}
	for field, msg := range result.FieldErrors() {
		top := field
		if i := strings.IndexByte(field, '.'); i > 0 {
			top = field[:i]
		}
		if _, exists := shapeErrors[top]; !exists {
			shapeErrors[top] = msg
		}
	}
	return raw, shapeErrors, nil
}

// mergeFieldErrors folds schema findings into the validator's result. The
// validator's message wins for a field both of them reject.
func mergeFieldErrors(err error, shapeErrors map[string]string) error {
	if len(shapeErrors) == 0 {
		return err
	}
	var verr *validatesubmission.ValidationError
	switch {
	case err == nil:
		verr = &validatesubmission.ValidationError{Fields: map[string]string{}}
	case !errors.As(err, &verr):
		return err
	}
	for field, msg := range shapeErrors {
		if _, exists := verr.Fields[field]; !exists {
			verr.Fields[field] = msg
		}
	}
	return verr
}

func countValidationFailures(operation string, err error) {
	var verr *validatesubmission.ValidationError
	if !errors.As(err, &verr) {
		return
	}
	for field := range verr.Fields {
		metrics.ValidationFailures.WithLabelValues(operation, field).Inc()
	}
}

// clientIP strips the port from RemoteAddr. RealIP has already rewritten it
// when proxy headers are trusted.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
