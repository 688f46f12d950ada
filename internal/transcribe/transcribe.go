// Package transcribe is the boundary to the external speech-to-text
// service. The core never retries failures; they come back as one
// described error.
package transcribe

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// ProgressFunc receives upload progress in [0, 1].
type ProgressFunc func(fraction float64)

// Transcriber turns a recorded audio file into plain text.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath, language string, progress ProgressFunc) (string, error)
}

// HTTPClient posts audio files to a transcription endpoint and returns
// the plain-text response body.
type HTTPClient struct {
	Endpoint string
	Client   *http.Client
}

// NewHTTPClient builds a client for the given endpoint.
func NewHTTPClient(endpoint string) *HTTPClient {
	return &HTTPClient{
		Endpoint: endpoint,
		Client:   &http.Client{Timeout: 5 * time.Minute},
	}
}

// Transcribe uploads the audio file with a language hint and returns
// the transcript. progress may be nil.
func (c *HTTPClient) Transcribe(ctx context.Context, audioPath, language string, progress ProgressFunc) (string, error) {
	if c.Endpoint == "" {
		return "", fmt.Errorf("transcribe: no endpoint configured")
	}
	data, err := os.ReadFile(audioPath)
	if err != nil {
		return "", fmt.Errorf("transcribe: read audio: %w", err)
	}

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	if language != "" {
		if err := w.WriteField("language", language); err != nil {
			return "", fmt.Errorf("transcribe: build request: %w", err)
		}
	}
	part, err := w.CreateFormFile("audio", filepath.Base(audioPath))
	if err != nil {
		return "", fmt.Errorf("transcribe: build request: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return "", fmt.Errorf("transcribe: build request: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("transcribe: build request: %w", err)
	}

	reader := &progressReader{r: &body, total: int64(body.Len()), progress: progress}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint, reader)
	if err != nil {
		return "", fmt.Errorf("transcribe: build request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.ContentLength = reader.total

	resp, err := c.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("transcribe: request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("transcribe: service returned HTTP %d", resp.StatusCode)
	}
	text, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("transcribe: read response: %w", err)
	}
	if progress != nil {
		progress(1)
	}
	return string(text), nil
}

type progressReader struct {
	r        io.Reader
	total    int64
	sent     int64
	progress ProgressFunc
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	p.sent += int64(n)
	if p.progress != nil && p.total > 0 {
		f := float64(p.sent) / float64(p.total)
		if f > 1 {
			f = 1
		}
		p.progress(f)
	}
	return n, err
}
