// Package sms delivers step-up OTP codes to staff phones.
package sms

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultTimeout = 15 * time.Second

// Sender delivers a one-time code to a phone number. Implementations must not
// log the code.
type Sender interface {
	SendOTP(phone, otp string) error
}

// HTTPClient sends OTP SMS through a bulk-SMS HTTP API.
type HTTPClient struct {
	APIKey     string
	BaseURL    string
	Sender     string
	HTTPClient *http.Client
}

// NewHTTPClient returns a client that uses the given API key, base URL, and
// optional sender ID.
func NewHTTPClient(apiKey, baseURL, sender string) *HTTPClient {
	return &HTTPClient{
		APIKey:     apiKey,
		BaseURL:    baseURL,
		Sender:     sender,
		HTTPClient: &http.Client{Timeout: defaultTimeout},
	}
}

// SendOTP sends the OTP to the given phone number. phone should be digits
// only (country code + number). Does not log the OTP.
func (c *HTTPClient) SendOTP(phone, otp string) error {
	if c.APIKey == "" || c.BaseURL == "" {
		return fmt.Errorf("sms: provider not configured")
	}
	body := map[string]interface{}{
		"route":     "otp",
		"numbers":   phone,
		"variables": otp,
		"sender":    c.Sender,
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequest(http.MethodPost, c.BaseURL, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", c.APIKey)
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("sms: request failed status=%d body=%s", resp.StatusCode, string(b))
	}
	return nil
}
