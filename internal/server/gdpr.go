// internal/server/gdpr.go
package server

import (
	"errors"
	"net/http"

	validatesubmission "lead-capture/internal/workers/roi/validate-submission"
)

func (s *Server) gdprEmail(w http.ResponseWriter, r *http.Request) (string, bool) {
	reqID := requestIDFrom(r.Context())

	raw, shapeErrors, err := s.readObject(w, r, s.schemas.gdpr)
	if err != nil {
		s.errors.Handle(w, reqID, err)
		return "", false
	}
	if len(shapeErrors) > 0 {
		err := &validatesubmission.ValidationError{Fields: shapeErrors}
		countValidationFailures("gdpr", err)
		s.errors.Handle(w, reqID, err)
		return "", false
	}
	email, _ := raw[validatesubmission.FieldEmail].(string)
	return email, true
}

// gdprExport returns every stored submission for the requested email.
func (s *Server) gdprExport(w http.ResponseWriter, r *http.Request) {
	email, ok := s.gdprEmail(w, r)
	if !ok {
		return
	}
	out, err := s.deps.GDPR.Export(r.Context(), email)
	if err != nil {
		s.errors.Handle(w, requestIDFrom(r.Context()), gdprError(err))
		return
	}
	s.errors.Respond(w, requestIDFrom(r.Context()), http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    out,
	})
}

// gdprDelete erases every stored submission for the requested email.
func (s *Server) gdprDelete(w http.ResponseWriter, r *http.Request) {
	email, ok := s.gdprEmail(w, r)
	if !ok {
		return
	}
	out, err := s.deps.GDPR.Delete(r.Context(), email)
	if err != nil {
		s.errors.Handle(w, requestIDFrom(r.Context()), gdprError(err))
		return
	}
	s.errors.Respond(w, requestIDFrom(r.Context()), http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Your data has been deleted",
		"deleted": out.Deleted,
	})
}

func gdprError(err error) error {
	var verr *validatesubmission.ValidationError
	if errors.As(err, &verr) {
		return verr
	}
	return storeError("", err)
}
