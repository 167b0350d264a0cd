package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"driveupload/internal/tree"
	"driveupload/internal/upload"
	"driveupload/pkg/types"

	"github.com/sirupsen/logrus"
)

var errMissingBody = errors.New("missing request body")

func (s *Service) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Service) handleUpload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := s.logger.WithField("request_id", requestIDFromContext(ctx))

	if s.config.MaxBodyBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxBodyBytes)
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		logger.WithError(err).Error("failed to read request body")
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}

	if len(body) == 0 {
		s.writeError(w, http.StatusInternalServerError, errMissingBody)
		return
	}

	var req = new(types.UploadRequest)
	if err := json.Unmarshal(body, req); err != nil {
		logger.WithError(err).Error("failed to decode upload request")
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}

	// The pipeline runs to completion even if the caller goes away, so a
	// stored file is never left without its notification.
	res := s.uploads.Handle(context.WithoutCancel(ctx), req)

	status, payload := upload.Response(res)
	s.writeJSON(w, status, payload)
}

func (s *Service) handleTree(w http.ResponseWriter, r *http.Request) {
	err := r.ParseForm()
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	var query = new(types.TreeQuery)
	err = decoder.Decode(query, r.Form)
	if err != nil {
		s.logger.WithError(err).Error("failed to decode tree query")
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	if query.Organization == "" || query.Module == "" || query.ServiceDate == "" {
		s.writeError(w, http.StatusBadRequest, upload.ErrMissingParams)
		return
	}

	date, err := tree.ParseServiceDate(query.ServiceDate)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	path, err := s.resolver.Resolve(query.Organization, query.Module, date)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	s.writeJSON(w, http.StatusOK, types.TreeResponse{
		Success:  true,
		RootID:   path.RootID,
		Year:     path.Year,
		Module:   path.Module,
		Month:    path.Month,
		Segments: path.Children(),
	})
}

func (s *Service) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, types.ErrorResponse{Success: false, Error: err.Error()})
}

func (s *Service) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{"status": status}).Error("failed to write response")
	}
}
