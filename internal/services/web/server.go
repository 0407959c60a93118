// Package web exposes the ingestion engine over HTTP.
package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/repodigest/repodigest/internal/ingest"
	"github.com/repodigest/repodigest/internal/services/store"
)

const (
	defaultListenAddress    = "127.0.0.1:8000"
	defaultShutdownDuration = 5 * time.Second
	maxRequestBodyBytes     = 1 << 20

	headerContentType        = "Content-Type"
	headerContentDisposition = "Content-Disposition"
	mimeTypeJSON             = "application/json"
	mimeTypeText             = "text/plain; charset=utf-8"

	healthRoutePath        = "/"
	ingestRoutePath        = "/api/ingest"
	downloadRoutePath      = "/api/digest/:id"
	downloadRouteParameter = "id"

	errorFieldName    = "error"
	categoryFieldName = "category"

	attachmentDispositionFormat = "attachment; filename=%q"
	attachmentFileName          = "digest.txt"
	errorUnknownDigestMessage   = "digest not found or expired"
)

// Config defines runtime options for the web service.
type Config struct {
	Address         string
	Engine          *ingest.Engine
	Store           *store.Store
	Logger          *zap.Logger
	ShutdownTimeout time.Duration
}

// Server serves ingestion requests and stored digests over HTTP.
type Server struct {
	config Config
}

// NewServer creates a Server with defaults applied. An Engine built without
// a clone transport serves local sources only.
func NewServer(config Config) Server {
	normalized := config
	if normalized.Address == "" {
		normalized.Address = defaultListenAddress
	}
	if normalized.ShutdownTimeout <= 0 {
		normalized.ShutdownTimeout = defaultShutdownDuration
	}
	if normalized.Engine == nil {
		normalized.Engine = ingest.NewEngine(ingest.Config{})
	}
	if normalized.Store == nil {
		normalized.Store = store.New(store.Config{})
	}
	if normalized.Logger == nil {
		normalized.Logger = zap.NewNop()
	}
	return Server{config: normalized}
}

// Run starts the web service and blocks until the provided context is
// canceled. The notify callback receives the bound address once the listener
// is active.
func (server Server) Run(ctx context.Context, notify func(string)) error {
	listener, listenError := net.Listen("tcp", server.config.Address)
	if listenError != nil {
		return fmt.Errorf("listen on %s: %w", server.config.Address, listenError)
	}
	actualAddress := listener.Addr().String()

	router := httprouter.New()
	router.GET(healthRoutePath, server.handleHealth)
	router.POST(ingestRoutePath, server.handleIngest)
	router.GET(downloadRoutePath, server.handleDownload)

	httpServer := &http.Server{Handler: router}
	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		serveError := httpServer.Serve(listener)
		if serveError != nil && !errors.Is(serveError, http.ErrServerClosed) {
			return fmt.Errorf("serve http: %w", serveError)
		}
		return nil
	})

	if notify != nil {
		notify(actualAddress)
	}

	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), server.config.ShutdownTimeout)
		defer cancelShutdown()
		shutdownError := httpServer.Shutdown(shutdownCtx)
		if shutdownError != nil && !errors.Is(shutdownError, context.Canceled) && !errors.Is(shutdownError, http.ErrServerClosed) {
			return fmt.Errorf("shutdown http: %w", shutdownError)
		}
		return nil
	})

	return group.Wait()
}

func (server Server) handleHealth(writer http.ResponseWriter, request *http.Request, _ httprouter.Params) {
	writer.WriteHeader(http.StatusOK)
}

func (server Server) handleDownload(writer http.ResponseWriter, request *http.Request, params httprouter.Params) {
	handle := params.ByName(downloadRouteParameter)
	entry, found := server.config.Store.Get(handle)
	if !found {
		server.writeError(writer, http.StatusNotFound, categoryNotFound, errors.New(errorUnknownDigestMessage))
		return
	}
	writer.Header().Set(headerContentDisposition, fmt.Sprintf(attachmentDispositionFormat, attachmentFileName))
	server.writeText(writer, http.StatusOK, entry.Digest.Text())
}

func (server Server) writeJSON(writer http.ResponseWriter, statusCode int, payload interface{}) {
	var buffer bytes.Buffer
	if encodeError := json.NewEncoder(&buffer).Encode(payload); encodeError != nil {
		fallback := map[string]string{
			errorFieldName:    fmt.Sprintf("encode response: %v", encodeError),
			categoryFieldName: categoryInternal,
		}
		writer.Header().Set(headerContentType, mimeTypeJSON)
		writer.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(writer).Encode(fallback)
		return
	}
	writer.Header().Set(headerContentType, mimeTypeJSON)
	writer.WriteHeader(statusCode)
	_, _ = writer.Write(buffer.Bytes())
}

func (server Server) writeText(writer http.ResponseWriter, statusCode int, text string) {
	writer.Header().Set(headerContentType, mimeTypeText)
	writer.WriteHeader(statusCode)
	_, _ = io.WriteString(writer, text)
}

func (server Server) writeError(writer http.ResponseWriter, statusCode int, category string, err error) {
	server.config.Logger.Warn("request failed",
		zap.Int("status", statusCode),
		zap.String("category", category),
		zap.Error(err),
	)
	server.writeJSON(writer, statusCode, map[string]string{
		errorFieldName:    err.Error(),
		categoryFieldName: category,
	})
}
