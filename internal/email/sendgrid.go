package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	defaultTimeout = 15 * time.Second
	defaultBaseURL = "https://api.sendgrid.com/v3/mail/send"
	defaultFrom    = "noreply@handshake.app"
	defaultCodeTTL = 10 * time.Minute
)

// SendGridClient sends OTP emails via the SendGrid v3 mail send API.
type SendGridClient struct {
	APIKey     string
	BaseURL    string
	From       string
	Subject    string
	HTTPClient *http.Client
}

// NewSendGridClient returns a client that uses the given API key and optional base URL/sender address.
func NewSendGridClient(apiKey, baseURL, from string) *SendGridClient {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if from == "" {
		from = defaultFrom
	}
	return &SendGridClient{
		APIKey:     apiKey,
		BaseURL:    baseURL,
		From:       from,
		Subject:    DefaultSubject,
		HTTPClient: &http.Client{Timeout: defaultTimeout},
	}
}

type sgAddress struct {
	Email string `json:"email"`
}

type sgPersonalization struct {
	To []sgAddress `json:"to"`
}

type sgContent struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type sgMail struct {
	Personalizations []sgPersonalization `json:"personalizations"`
	From             sgAddress           `json:"from"`
	Subject          string              `json:"subject"`
	Content          []sgContent         `json:"content"`
}

// Send posts the message to SendGrid. Any non-2xx response is an error. Does not log the code.
func (c *SendGridClient) Send(ctx context.Context, msg OTPMessage) error {
	if c.APIKey == "" {
		return fmt.Errorf("email: SendGrid API key not configured")
	}
	ttl := defaultCodeTTL
	if !msg.ExpiresAt.IsZero() {
		if d := time.Until(msg.ExpiresAt).Round(time.Minute); d > 0 {
			ttl = d
		}
	}
	raw, err := json.Marshal(sgMail{
		Personalizations: []sgPersonalization{{To: []sgAddress{{Email: msg.To}}}},
		From:             sgAddress{Email: c.From},
		Subject:          c.Subject,
		Content: []sgContent{
			{Type: "text/plain", Value: PlainTextBody(msg, ttl)},
			{Type: "text/html", Value: HTMLBody(msg, ttl)},
		},
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("email: send failed status=%d body=%s", resp.StatusCode, string(b))
	}
	return nil
}
