package web_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/repodigest/repodigest/internal/services/web"
)

const testRequestTimeout = 5 * time.Second

func startDigestServer(t *testing.T, config web.Config) (string, func()) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	server := web.NewServer(config)
	addressCh := make(chan string, 1)
	errorCh := make(chan error, 1)

	go func() {
		errorCh <- server.Run(ctx, func(address string) {
			addressCh <- address
		})
	}()

	select {
	case address := <-addressCh:
		return address, func() {
			cancel()
			if runError := <-errorCh; runError != nil {
				t.Errorf("server error: %v", runError)
			}
		}
	case <-time.After(2 * time.Second):
		cancel()
		t.Fatalf("server did not start")
	}
	return "", nil
}

func writeSourceFixture(t *testing.T) string {
	t.Helper()
	fixtureDir := t.TempDir()
	filePath := filepath.Join(fixtureDir, "main.go")
	if writeError := os.WriteFile(filePath, []byte("package main\n"), 0o644); writeError != nil {
		t.Fatalf("write fixture: %v", writeError)
	}
	return fixtureDir
}

func postIngest(t *testing.T, address string, payload map[string]interface{}, headers map[string]string, rawQuery string) *http.Response {
	t.Helper()

	body, marshalError := json.Marshal(payload)
	if marshalError != nil {
		t.Fatalf("marshal payload: %v", marshalError)
	}
	requestURL := "http://" + address + "/api/ingest"
	if rawQuery != "" {
		requestURL += "?" + rawQuery
	}
	request, requestError := http.NewRequest(http.MethodPost, requestURL, bytes.NewReader(body))
	if requestError != nil {
		t.Fatalf("new request: %v", requestError)
	}
	for headerName, headerValue := range headers {
		request.Header.Set(headerName, headerValue)
	}
	client := http.Client{Timeout: testRequestTimeout}
	response, doError := client.Do(request)
	if doError != nil {
		t.Fatalf("perform request: %v", doError)
	}
	return response
}

func TestServerHealthEndpoint(t *testing.T) {
	t.Parallel()

	address, stopServer := startDigestServer(t, web.Config{Address: "127.0.0.1:0"})
	defer stopServer()

	client := http.Client{Timeout: testRequestTimeout}
	response, requestError := client.Get("http://" + address + "/")
	if requestError != nil {
		t.Fatalf("perform request: %v", requestError)
	}
	defer response.Body.Close()
	if response.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status: %d", response.StatusCode)
	}
}

func TestServerIngestFormatNegotiation(t *testing.T) {
	t.Parallel()

	fixtureDir := writeSourceFixture(t)
	address, stopServer := startDigestServer(t, web.Config{Address: "127.0.0.1:0"})
	t.Cleanup(stopServer)

	testCases := []struct {
		name        string
		bodyFormat  string
		queryString string
		accept      string
		userAgent   string
		expectJSON  bool
	}{
		{name: "accept header selects json", accept: "application/json", expectJSON: true},
		{name: "body format selects json", bodyFormat: "json", expectJSON: true},
		{name: "url format overrides body format", bodyFormat: "json", queryString: "format=text", expectJSON: false},
		{name: "explicit text wins over accept", bodyFormat: "text", accept: "application/json", expectJSON: false},
		{name: "browser receives text regardless", bodyFormat: "json", accept: "application/json", userAgent: "Mozilla/5.0 (X11; Linux x86_64)", expectJSON: false},
		{name: "default is text", expectJSON: false},
	}

	for _, testCase := range testCases {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			payload := map[string]interface{}{"source": fixtureDir}
			if testCase.bodyFormat != "" {
				payload["format"] = testCase.bodyFormat
			}
			headers := map[string]string{}
			if testCase.accept != "" {
				headers["Accept"] = testCase.accept
			}
			if testCase.userAgent != "" {
				headers["User-Agent"] = testCase.userAgent
			}

			response := postIngest(t, address, payload, headers, testCase.queryString)
			defer response.Body.Close()

			if response.StatusCode != http.StatusOK {
				t.Fatalf("unexpected status: %d", response.StatusCode)
			}
			contentType := response.Header.Get("Content-Type")
			if testCase.expectJSON {
				if !strings.HasPrefix(contentType, "application/json") {
					t.Fatalf("expected json response, got content type %q", contentType)
				}
				var decoded struct {
					Summary  string `json:"summary"`
					Tree     string `json:"tree"`
					Content  string `json:"content"`
					IngestID string `json:"ingest_id"`
				}
				if decodeError := json.NewDecoder(response.Body).Decode(&decoded); decodeError != nil {
					t.Fatalf("decode response: %v", decodeError)
				}
				if !strings.Contains(decoded.Summary, "Source: ") {
					t.Fatalf("summary missing source line: %q", decoded.Summary)
				}
				if !strings.Contains(decoded.Tree, "main.go") {
					t.Fatalf("tree missing fixture file: %q", decoded.Tree)
				}
				if decoded.IngestID == "" {
					t.Fatalf("expected a non-empty ingest id")
				}
				return
			}
			if !strings.HasPrefix(contentType, "text/plain") {
				t.Fatalf("expected text response, got content type %q", contentType)
			}
			bodyBytes, readError := io.ReadAll(response.Body)
			if readError != nil {
				t.Fatalf("read response: %v", readError)
			}
			if !strings.HasPrefix(string(bodyBytes), "Source: ") {
				t.Fatalf("text response missing summary header: %q", string(bodyBytes))
			}
		})
	}
}

func TestServerDigestDownloadRoundTrip(t *testing.T) {
	t.Parallel()

	fixtureDir := writeSourceFixture(t)
	address, stopServer := startDigestServer(t, web.Config{Address: "127.0.0.1:0"})
	defer stopServer()

	response := postIngest(t, address, map[string]interface{}{"source": fixtureDir}, map[string]string{"Accept": "application/json"}, "")
	defer response.Body.Close()
	if response.StatusCode != http.StatusOK {
		t.Fatalf("unexpected ingest status: %d", response.StatusCode)
	}
	var ingestBody struct {
		IngestID string `json:"ingest_id"`
	}
	if decodeError := json.NewDecoder(response.Body).Decode(&ingestBody); decodeError != nil {
		t.Fatalf("decode ingest response: %v", decodeError)
	}
	if ingestBody.IngestID == "" {
		t.Fatalf("expected a non-empty ingest id")
	}

	client := http.Client{Timeout: testRequestTimeout}
	downloadResponse, downloadError := client.Get("http://" + address + "/api/digest/" + ingestBody.IngestID)
	if downloadError != nil {
		t.Fatalf("perform download: %v", downloadError)
	}
	defer downloadResponse.Body.Close()
	if downloadResponse.StatusCode != http.StatusOK {
		t.Fatalf("unexpected download status: %d", downloadResponse.StatusCode)
	}
	if disposition := downloadResponse.Header.Get("Content-Disposition"); !strings.Contains(disposition, "digest.txt") {
		t.Fatalf("unexpected content disposition: %q", disposition)
	}
	downloadBytes, readError := io.ReadAll(downloadResponse.Body)
	if readError != nil {
		t.Fatalf("read download: %v", readError)
	}
	if !strings.Contains(string(downloadBytes), "Directory structure:") {
		t.Fatalf("download missing tree section")
	}
}

func TestServerDigestDownloadUnknownHandle(t *testing.T) {
	t.Parallel()

	address, stopServer := startDigestServer(t, web.Config{Address: "127.0.0.1:0"})
	defer stopServer()

	client := http.Client{Timeout: testRequestTimeout}
	response, requestError := client.Get("http://" + address + "/api/digest/not-a-real-handle")
	if requestError != nil {
		t.Fatalf("perform request: %v", requestError)
	}
	defer response.Body.Close()
	if response.StatusCode != http.StatusNotFound {
		t.Fatalf("unexpected status: %d", response.StatusCode)
	}
	var errorBody struct {
		Error    string `json:"error"`
		Category string `json:"category"`
	}
	if decodeError := json.NewDecoder(response.Body).Decode(&errorBody); decodeError != nil {
		t.Fatalf("decode error response: %v", decodeError)
	}
	if errorBody.Category != "not-found" {
		t.Fatalf("unexpected error category: %q", errorBody.Category)
	}
}

func TestServerIngestErrorMapping(t *testing.T) {
	t.Parallel()

	fixtureDir := writeSourceFixture(t)
	address, stopServer := startDigestServer(t, web.Config{Address: "127.0.0.1:0"})
	t.Cleanup(stopServer)

	testCases := []struct {
		name             string
		payload          map[string]interface{}
		expectedStatus   int
		expectedCategory string
	}{
		{
			name:             "empty source",
			payload:          map[string]interface{}{"source": ""},
			expectedStatus:   http.StatusBadRequest,
			expectedCategory: "bad-request",
		},
		{
			name:             "invalid pattern",
			payload:          map[string]interface{}{"source": fixtureDir, "pattern_type": "include", "pattern": "["},
			expectedStatus:   http.StatusBadRequest,
			expectedCategory: "bad-pattern",
		},
		{
			name:             "unknown pattern type",
			payload:          map[string]interface{}{"source": fixtureDir, "pattern_type": "keep", "pattern": "*.go"},
			expectedStatus:   http.StatusBadRequest,
			expectedCategory: "bad-request",
		},
		{
			name:             "slider position out of range",
			payload:          map[string]interface{}{"source": fixtureDir, "size_position": 501},
			expectedStatus:   http.StatusBadRequest,
			expectedCategory: "bad-request",
		},
		{
			name:             "missing local source",
			payload:          map[string]interface{}{"source": "/no/such/path/anywhere"},
			expectedStatus:   http.StatusNotFound,
			expectedCategory: "not-found",
		},
	}

	for _, testCase := range testCases {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			response := postIngest(t, address, testCase.payload, nil, "")
			defer response.Body.Close()

			if response.StatusCode != testCase.expectedStatus {
				t.Fatalf("unexpected status: got %d, want %d", response.StatusCode, testCase.expectedStatus)
			}
			var errorBody struct {
				Error    string `json:"error"`
				Category string `json:"category"`
			}
			if decodeError := json.NewDecoder(response.Body).Decode(&errorBody); decodeError != nil {
				t.Fatalf("decode error response: %v", decodeError)
			}
			if errorBody.Category != testCase.expectedCategory {
				t.Fatalf("unexpected category: got %q, want %q", errorBody.Category, testCase.expectedCategory)
			}
			if errorBody.Error == "" {
				t.Fatalf("expected a non-empty error message")
			}
		})
	}
}

func TestServerRejectsMalformedBody(t *testing.T) {
	t.Parallel()

	address, stopServer := startDigestServer(t, web.Config{Address: "127.0.0.1:0"})
	defer stopServer()

	request, requestError := http.NewRequest(http.MethodPost, "http://"+address+"/api/ingest", strings.NewReader("{not json"))
	if requestError != nil {
		t.Fatalf("new request: %v", requestError)
	}
	client := http.Client{Timeout: testRequestTimeout}
	response, doError := client.Do(request)
	if doError != nil {
		t.Fatalf("perform request: %v", doError)
	}
	defer response.Body.Close()
	if response.StatusCode != http.StatusBadRequest {
		t.Fatalf("unexpected status: %d", response.StatusCode)
	}
}
