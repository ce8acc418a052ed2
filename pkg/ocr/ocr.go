// Package ocr extracts text from receipt photos and documents via the
// ocr.space HTTP API.
package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
)

const apiURL = "https://api.ocr.space/parse/image"

type Client struct {
	apiKey string
}

func NewClient(apiKey string) *Client {
	return &Client{apiKey: apiKey}
}

type parseResponse struct {
	ParsedResults []struct {
		ParsedText string `json:"ParsedText"`
	} `json:"ParsedResults"`
	IsErroredOnProcessing bool            `json:"IsErroredOnProcessing"`
	ErrorMessage          json.RawMessage `json:"ErrorMessage"`
}

// ExtractText runs OCR over image bytes. Language is an ocr.space
// language code ("spa", "eng"). Empty extracted text is an error so
// callers always hold usable text on success.
func (c *Client) ExtractText(ctx context.Context, data []byte, filename, language string) (string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	if err := w.WriteField("language", language); err != nil {
		return "", err
	}
	if err := w.WriteField("isOverlayRequired", "false"); err != nil {
		return "", err
	}
	if err := w.WriteField("scale", "true"); err != nil {
		return "", err
	}

	fw, err := w.CreateFormFile("file", filename)
	if err != nil {
		return "", err
	}
	if _, err = fw.Write(data); err != nil {
		return "", err
	}
	if err = w.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, &buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("apikey", c.apiKey)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("api error: %s", string(body))
	}

	var result parseResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("failed to parse ocr response: %w", err)
	}
	if result.IsErroredOnProcessing {
		return "", fmt.Errorf("ocr processing failed: %s", string(result.ErrorMessage))
	}

	var parts []string
	for _, r := range result.ParsedResults {
		if t := strings.TrimSpace(r.ParsedText); t != "" {
			parts = append(parts, t)
		}
	}
	text := strings.TrimSpace(strings.Join(parts, "\n"))
	if text == "" {
		return "", errors.New("no text recognized")
	}
	return text, nil
}
