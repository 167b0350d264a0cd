package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"driveupload/internal/tree"
	"driveupload/internal/upload"
	"driveupload/pkg/types"

	"github.com/alexedwards/flow"
	"github.com/go-playground/form/v4"
	"github.com/sirupsen/logrus"
)

var decoder = form.NewDecoder()

type Service struct {
	logger   *logrus.Logger
	config   *types.Config
	uploads  *upload.Service
	resolver *tree.Resolver

	server *http.Server
}

func New(
	config *types.Config,
	logger *logrus.Logger,
	uploads *upload.Service,
	resolver *tree.Resolver,
) *Service {
	mux := flow.New()

	s := &Service{
		logger:   logger,
		config:   config,
		uploads:  uploads,
		resolver: resolver,
		server: &http.Server{
			Addr:              fmt.Sprintf(":%d", config.ServerPort),
			ReadTimeout:       time.Duration(config.ReadTimeoutSec) * time.Second,
			ReadHeaderTimeout: time.Duration(config.ReadTimeoutSec) * time.Second,
			WriteTimeout:      time.Duration(config.WriteTimeoutSec) * time.Second,
			MaxHeaderBytes:    1 << 20,
		},
	}

	s.buildRouter(mux)

	// flow only runs middleware on matched routes, so slash stripping
	// has to sit in front of the router.
	s.server.Handler = s.StripTrailingSlash(mux)

	return s
}

func (s *Service) Start() error {
	return s.server.ListenAndServe()
}

func (s *Service) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Handler exposes the routed handler, mainly for tests.
func (s *Service) Handler() http.Handler {
	return s.server.Handler
}

func (s *Service) buildRouter(r *flow.Mux) {
	r.Use(s.RequestID)
	r.Use(s.LoggingMiddleware)

	r.HandleFunc("/healthz", s.handleHealth, http.MethodGet)

	r.HandleFunc("/upload-drive", s.handleUpload, http.MethodPost)
	// Legacy path still used by deployed form clients.
	r.HandleFunc("/.netlify/functions/upload-drive", s.handleUpload, http.MethodPost)

	r.HandleFunc("/tree", s.handleTree, http.MethodGet)
}
