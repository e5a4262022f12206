package artwork

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

const (
	tmpfilesPrefix   = "https://tmpfiles.org/"
	tmpfilesDownload = "https://tmpfiles.org/dl/"
)

// TmpfilesUploader uploads images to tmpfiles.org, or any endpoint speaking
// the same multipart API.
type TmpfilesUploader struct {
	client   *http.Client
	endpoint string
}

// NewTmpfilesUploader creates an uploader posting to endpoint
func NewTmpfilesUploader(endpoint string) *TmpfilesUploader {
	return &TmpfilesUploader{
		client: &http.Client{
			Timeout: 20 * time.Second,
		},
		endpoint: endpoint,
	}
}

type tmpfilesResponse struct {
	Status string `json:"status"`
	Data   struct {
		URL string `json:"url"`
	} `json:"data"`
}

// Upload sends data as a multipart file and returns a direct download URL
func (u *TmpfilesUploader) Upload(ctx context.Context, name string, data []byte) (string, error) {
	body := new(bytes.Buffer)
	form := multipart.NewWriter(body)
	part, err := form.CreateFormFile("file", name)
	if err != nil {
		return "", fmt.Errorf("failed to create form: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return "", fmt.Errorf("failed to write form: %w", err)
	}
	if err := form.Close(); err != nil {
		return "", fmt.Errorf("failed to finish form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.endpoint, body)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())
	req.Header.Set("User-Agent", "tunecord/1.0")

	resp, err := u.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("network error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return "", fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var result tmpfilesResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64*1024)).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if result.Status != "success" {
		return "", fmt.Errorf("upload rejected: status %q", result.Status)
	}
	if result.Data.URL == "" {
		return "", fmt.Errorf("upload response has no url")
	}

	// The page URL serves HTML; the /dl/ form serves the image itself.
	return strings.Replace(result.Data.URL, tmpfilesPrefix, tmpfilesDownload, 1), nil
}
