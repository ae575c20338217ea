// Package api provides HTTP client plumbing shared by the wallpaper
// source providers.
package api

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/http/httputil"
	"os"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

var (
	activeTransportsMu sync.Mutex
	activeTransports   []*LoggingTransport
)

// CloseAllLoggingTransports flushes and closes every transport created
// by NewLoggingTransport. Called once from main on exit.
func CloseAllLoggingTransports() {
	activeTransportsMu.Lock()
	defer activeTransportsMu.Unlock()
	for _, t := range activeTransports {
		if err := t.Close(); err != nil {
			log.WithError(err).Warn("Failed to close API log transport")
		}
	}
	activeTransports = nil
}

// LoggingTransport wraps an http.RoundTripper and appends a dump of
// every API request and response to a log file. Image bodies are large
// and binary, so only JSON response bodies are captured.
type LoggingTransport struct {
	Transport http.RoundTripper
	logFile   *os.File
	mu        sync.Mutex
	writer    *bufio.Writer
}

// NewLoggingTransport opens logFilePath for appending and returns a
// transport that logs through it. A nil transport means
// http.DefaultTransport.
func NewLoggingTransport(transport http.RoundTripper, logFilePath string) (*LoggingTransport, error) {
	f, err := os.OpenFile(logFilePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open API log file %s: %w", logFilePath, err)
	}

	if transport == nil {
		transport = http.DefaultTransport
	}

	t := &LoggingTransport{
		Transport: transport,
		logFile:   f,
		writer:    bufio.NewWriter(f),
	}

	activeTransportsMu.Lock()
	activeTransports = append(activeTransports, t)
	activeTransportsMu.Unlock()

	return t, nil
}

// RoundTrip executes a single HTTP transaction, logging details.
func (t *LoggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	startTime := time.Now()

	reqDump, err := httputil.DumpRequestOut(req, true)
	if err != nil {
		log.WithError(err).Error("Failed to dump API request for logging")
	} else {
		t.writeLog(fmt.Sprintf("--- Request (%s) ---\n%s\n", startTime.Format(time.RFC3339), string(reqDump)))
	}

	resp, err := t.Transport.RoundTrip(req)

	duration := time.Since(startTime)

	if err != nil {
		t.writeLog(fmt.Sprintf("--- Response Error (%s, Duration: %v) ---\n%s\n", time.Now().Format(time.RFC3339), duration, err.Error()))
		t.writer.Flush()
		return resp, err
	}

	contentType := resp.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "application/json") {
		bodyBytes, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			log.WithError(readErr).Error("Failed to read response body for logging")
			t.writeLog(fmt.Sprintf("--- Response Headers (%s, Duration: %v) ---\nStatus: %s\n(Body read failed)\n", time.Now().Format(time.RFC3339), duration, resp.Status))
		} else {
			// Restore the body so the caller can still read it.
			resp.Body.Close()
			resp.Body = io.NopCloser(bytes.NewReader(bodyBytes))

			respDumpHeader, dumpErr := httputil.DumpResponse(resp, false)
			if dumpErr != nil {
				log.WithError(dumpErr).Error("Failed to dump response headers for logging")
				t.writeLog(fmt.Sprintf("--- Response (%s, Duration: %v) ---\nStatus: %s\n%s\n", time.Now().Format(time.RFC3339), duration, resp.Status, string(bodyBytes)))
			} else {
				t.writeLog(fmt.Sprintf("--- Response Headers (%s, Duration: %v) ---\n%s\n--- Response Body (%s) ---\n%s\n", time.Now().Format(time.RFC3339), duration, string(respDumpHeader), contentType, string(bodyBytes)))
			}
		}
	} else {
		// Headers only for image downloads and other non-JSON bodies.
		respDump, dumpErr := httputil.DumpResponse(resp, false)
		if dumpErr != nil {
			log.WithError(dumpErr).Error("Failed to dump response headers for logging")
			t.writeLog(fmt.Sprintf("--- Response Headers (%s, Duration: %v, Type: %s) ---\nStatus: %s\n(Failed to dump headers)\n", time.Now().Format(time.RFC3339), duration, contentType, resp.Status))
		} else {
			t.writeLog(fmt.Sprintf("--- Response Headers (%s, Duration: %v, Type: %s) ---\n%s\n(Body not logged)\n", time.Now().Format(time.RFC3339), duration, contentType, string(respDump)))
		}
	}

	t.writer.Flush()

	return resp, nil
}

func (t *LoggingTransport) writeLog(logString string) {
	_, err := t.writer.WriteString(logString + "\n\n")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error writing to API log file: %v\nLog message: %s\n", err, logString)
	}
}

// Close flushes any buffered log output and closes the log file.
func (t *LoggingTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	errFlush := t.writer.Flush()
	errClose := t.logFile.Close()
	if errFlush != nil {
		return fmt.Errorf("failed to flush API log buffer: %w", errFlush)
	}
	return errClose
}
