package extractor

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/skipperr254/passai-backend/config"
)

// OCRClient drives a PaddleOCR-style HTTP endpoint: the image goes out as
// multipart/form-data, recognized lines come back as JSON.
type OCRClient struct {
	endpoint   string
	httpClient *http.Client
}

func NewOCRClient(cfg config.OCRConfig) *OCRClient {
	return &OCRClient{
		endpoint:   cfg.Endpoint,
		httpClient: &http.Client{Timeout: time.Duration(cfg.TimeoutSecond) * time.Second},
	}
}

func (c *OCRClient) Recognize(data []byte, filename string) (string, error) {
	if c.endpoint == "" {
		return "", fmt.Errorf("OCR endpoint not configured")
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	fw, err := writer.CreateFormFile("image", filename)
	if err != nil {
		return "", err
	}
	if _, err := fw.Write(data); err != nil {
		return "", err
	}
	writer.Close()

	req, err := http.NewRequest(http.MethodPost, c.endpoint, &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("ocr http %d: %s", resp.StatusCode, string(b))
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	return parseOCRResponse(raw)
}

// parseOCRResponse handles the common PaddleOCR response shapes. The result
// is usually an array of objects whose "res" (sometimes "data") field holds
// items of the form [ polygon_points, [text, score] ]; some deployments
// return a single object instead of an array.
func parseOCRResponse(raw []byte) (string, error) {
	var arr []map[string]interface{}
	if err := json.Unmarshal(raw, &arr); err != nil {
		var obj map[string]interface{}
		if err2 := json.Unmarshal(raw, &obj); err2 != nil {
			return "", fmt.Errorf("decode ocr response: %v; raw=%s", err, string(raw))
		}
		arr = []map[string]interface{}{obj}
	}

	var texts []string
	for _, it := range arr {
		var res interface{}
		if v, ok := it["res"]; ok {
			res = v
		} else if v, ok := it["data"]; ok {
			res = v
		}
		list, _ := res.([]interface{})
		for _, item := range list {
			if text := firstString(item); text != "" {
				texts = append(texts, text)
			}
		}
	}

	return strings.Join(texts, "\n"), nil
}

// firstString walks a result item depth-first and returns the first string it
// finds, which in every known response shape is the recognized text.
func firstString(v interface{}) string {
	switch vv := v.(type) {
	case string:
		return vv
	case []interface{}:
		for _, sub := range vv {
			if s := firstString(sub); s != "" {
				return s
			}
		}
	case map[string]interface{}:
		if s, ok := vv["text"].(string); ok {
			return s
		}
	}
	return ""
}
