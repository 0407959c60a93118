package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/julienschmidt/httprouter"

	"github.com/repodigest/repodigest/internal/ingest"
)

// Error categories reported alongside HTTP error responses.
const (
	categoryBadPattern        = "bad-pattern"
	categoryBadRequest        = "bad-request"
	categoryNotFound          = "not-found"
	categorySourceUnreachable = "source-unreachable"
	categoryInternal          = "internal"
)

const (
	patternTypeInclude = "include"
	patternTypeExclude = "exclude"

	formatParameterName = "format"
	formatValueJSON     = "json"
	formatValueText     = "text"

	headerAccept    = "Accept"
	headerUserAgent = "User-Agent"
)

// browserIdentifiers mark user agents that receive plain text regardless of
// any format or Accept preference, so a pasted URL stays readable.
var browserIdentifiers = []string{
	"mozilla", "chrome", "safari", "edge", "firefox", "webkit", "opera",
}

// ingestRequest is the JSON body of POST /api/ingest. SizePosition, when
// present, overrides MaxFileSize with the logarithmic slider mapping.
type ingestRequest struct {
	Source       string `json:"source"`
	Branch       string `json:"branch"`
	Subpath      string `json:"subpath"`
	MaxFileSize  int64  `json:"max_file_size"`
	SizePosition *int   `json:"size_position"`
	PatternType  string `json:"pattern_type"`
	Pattern      string `json:"pattern"`
	Format       string `json:"format"`
}

// ingestResponse is the JSON shape of a successful ingestion. IngestID keys
// the stored digest for later download.
type ingestResponse struct {
	Summary  string `json:"summary"`
	Tree     string `json:"tree"`
	Content  string `json:"content"`
	IngestID string `json:"ingest_id"`
}

func (server Server) handleIngest(writer http.ResponseWriter, request *http.Request, _ httprouter.Params) {
	var payload ingestRequest
	decoder := json.NewDecoder(http.MaxBytesReader(writer, request.Body, maxRequestBodyBytes))
	if decodeError := decoder.Decode(&payload); decodeError != nil {
		server.writeError(writer, http.StatusBadRequest, categoryBadRequest, fmt.Errorf("decode request body: %w", decodeError))
		return
	}

	query, queryError := queryFromRequest(payload)
	if queryError != nil {
		server.writeError(writer, statusCodeFromError(queryError), errorCategory(queryError), queryError)
		return
	}

	digest, ingestError := server.config.Engine.Ingest(request.Context(), query)
	if ingestError != nil {
		server.writeError(writer, statusCodeFromError(ingestError), errorCategory(ingestError), ingestError)
		return
	}

	handle := server.config.Store.Put(query.Source, digest)
	if respondJSON(request, payload.Format) {
		server.writeJSON(writer, http.StatusOK, ingestResponse{
			Summary:  digest.Summary,
			Tree:     digest.Tree,
			Content:  digest.Content,
			IngestID: handle,
		})
		return
	}
	server.writeText(writer, http.StatusOK, digest.Text())
}

// queryFromRequest maps the wire payload onto an engine query. Validation
// beyond the slider bounds and pattern type is left to query construction.
func queryFromRequest(payload ingestRequest) (ingest.Query, error) {
	query := ingest.Query{
		Source:      payload.Source,
		Branch:      payload.Branch,
		Subpath:     payload.Subpath,
		MaxFileSize: payload.MaxFileSize,
	}
	if payload.SizePosition != nil {
		position := *payload.SizePosition
		if position < 0 || position > SliderMaxPosition {
			return ingest.Query{}, fmt.Errorf("%w: size_position %d outside 0..%d", ingest.ErrInvalidQuery, position, SliderMaxPosition)
		}
		query.MaxFileSize = SliderPositionToBytes(position)
	}

	patterns := ingest.SplitPatterns(payload.Pattern)
	switch payload.PatternType {
	case patternTypeInclude:
		query.IncludePatterns = patterns
	case patternTypeExclude, "":
		query.ExcludePatterns = patterns
	default:
		return ingest.Query{}, fmt.Errorf("%w: unknown pattern_type %q", ingest.ErrInvalidQuery, payload.PatternType)
	}
	return query, nil
}

// respondJSON decides the response encoding. Browsers always receive text;
// otherwise an explicit format value wins over the Accept header, with the
// URL parameter taking precedence over the body field.
func respondJSON(request *http.Request, bodyFormat string) bool {
	if isBrowserRequest(request) {
		return false
	}
	formatValue := request.URL.Query().Get(formatParameterName)
	if formatValue == "" {
		formatValue = bodyFormat
	}
	switch strings.ToLower(strings.TrimSpace(formatValue)) {
	case formatValueJSON:
		return true
	case formatValueText:
		return false
	}
	return strings.Contains(request.Header.Get(headerAccept), mimeTypeJSON)
}

// isBrowserRequest reports whether the user agent looks like an interactive
// browser rather than an API client.
func isBrowserRequest(request *http.Request) bool {
	userAgent := strings.ToLower(request.Header.Get(headerUserAgent))
	for _, identifier := range browserIdentifiers {
		if strings.Contains(userAgent, identifier) {
			return true
		}
	}
	return false
}

// statusCodeFromError maps engine failures onto HTTP status codes. Unknown
// failures are reported as internal errors.
func statusCodeFromError(err error) int {
	var patternError *ingest.PatternError
	if errors.As(err, &patternError) {
		return http.StatusBadRequest
	}
	if errors.Is(err, ingest.ErrInvalidQuery) {
		return http.StatusBadRequest
	}
	var notFoundError *ingest.SourceNotFoundError
	if errors.As(err, &notFoundError) {
		return http.StatusNotFound
	}
	var cloneError *ingest.CloneError
	if errors.As(err, &cloneError) {
		if cloneError.Timeout {
			return http.StatusGatewayTimeout
		}
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// errorCategory labels engine failures for machine-readable error payloads.
func errorCategory(err error) string {
	var patternError *ingest.PatternError
	if errors.As(err, &patternError) {
		return categoryBadPattern
	}
	if errors.Is(err, ingest.ErrInvalidQuery) {
		return categoryBadRequest
	}
	var notFoundError *ingest.SourceNotFoundError
	if errors.As(err, &notFoundError) {
		return categoryNotFound
	}
	var cloneError *ingest.CloneError
	if errors.As(err, &cloneError) {
		return categorySourceUnreachable
	}
	return categoryInternal
}
