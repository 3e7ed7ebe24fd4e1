package clients

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// RembgClient calls the background-removal service:
// POST {base}/remove-bg with a multipart image file, raw PNG response.
type RembgClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewRembgClient(rawURL string, timeout time.Duration) *RembgClient {
	return &RembgClient{
		baseURL:    NormalizeSpaceURL(rawURL),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// NormalizeSpaceURL rewrites a Hugging Face Space page URL
// (huggingface.co/spaces/{owner}/{space}) to its hf.space runtime
// domain and strips a trailing /remove-bg so the endpoint can be
// appended uniformly.
func NormalizeSpaceURL(raw string) string {
	if raw == "" {
		return raw
	}

	raw = strings.TrimRight(raw, "/")
	parsed, err := url.Parse(raw)
	if err != nil {
		return raw
	}

	if !strings.Contains(parsed.Host, "huggingface.co") {
		if strings.HasSuffix(parsed.Path, "/remove-bg") {
			return strings.TrimSuffix(raw, "/remove-bg")
		}
		return raw
	}

	parts := strings.Split(strings.Trim(parsed.Path, "/"), "/")
	if len(parts) >= 3 && parts[0] == "spaces" {
		return fmt.Sprintf("https://%s-%s.hf.space", parts[1], parts[2])
	}

	return raw
}

// Remove returns the input image with its background made transparent.
func (c *RembgClient) Remove(ctx context.Context, imageBytes []byte) ([]byte, error) {
	resp, err := postImage(ctx, c.httpClient, c.baseURL+"/remove-bg", "file", "image.png", imageBytes, nil)
	if err != nil {
		return nil, fmt.Errorf("background removal request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, readError(resp)
	}

	out, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read background removal response: %w", err)
	}
	if len(out) < 100 {
		return nil, fmt.Errorf("background removal returned invalid image data (%d bytes)", len(out))
	}
	return out, nil
}
