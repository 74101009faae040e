package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"raid-dashboard/apperrors"
	"raid-dashboard/logger"
	"raid-dashboard/utils"
)

// EmailMessage is the relay's input. To wins over Email, Body over Message.
// HTML is an optional HTML body sent alongside (or instead of) the text.
type EmailMessage struct {
	To      string `json:"to"`
	Email   string `json:"email"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
	Message string `json:"message"`
	HTML    string `json:"html"`
}

func (m EmailMessage) Recipient() string {
	if strings.TrimSpace(m.To) != "" {
		return strings.TrimSpace(m.To)
	}
	return strings.TrimSpace(m.Email)
}

func (m EmailMessage) Content() string {
	if m.Body != "" {
		return m.Body
	}
	return m.Message
}

// EmailService sends mail through the Resend REST API.
type EmailService struct {
	APIKey  string
	BaseURL string
	From    string
	Client  *http.Client
}

func NewEmailService(apiKey, baseURL, from string) *EmailService {
	if baseURL == "" {
		baseURL = "https://api.resend.com"
	}
	return &EmailService{
		APIKey:  apiKey,
		BaseURL: strings.TrimRight(baseURL, "/"),
		From:    from,
		Client:  utils.HTTPClient,
	}
}

// Enabled mirrors config.EmailConfig.Enabled: Resend rejects mail without a sender.
func (s *EmailService) Enabled() bool {
	return s != nil && s.APIKey != "" && strings.TrimSpace(s.From) != ""
}

// Send validates msg and posts it to /emails. The decoded Resend response is
// returned on success.
func (s *EmailService) Send(ctx context.Context, msg EmailMessage) (map[string]interface{}, error) {
	to, text, subject := msg.Recipient(), msg.Content(), strings.TrimSpace(msg.Subject)
	html := strings.TrimSpace(msg.HTML)
	if to == "" || subject == "" || (text == "" && html == "") {
		return nil, apperrors.Invalid("missing required fields: to, subject, body")
	}
	if !s.Enabled() {
		return nil, apperrors.Unavailable("email is not configured")
	}

	payload := map[string]interface{}{
		"from":    s.From,
		"to":      []string{to},
		"subject": subject,
	}
	if html != "" {
		payload["html"] = html
	}
	if text != "" {
		payload["text"] = text
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.BaseURL+"/emails", bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.APIKey)

	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, apperrors.New(apperrors.KindUpstream, "email provider unreachable", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 16<<10))
	var out map[string]interface{}
	_ = json.Unmarshal(body, &out)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		reason := strings.TrimSpace(string(body))
		if m, ok := out["message"].(string); ok && m != "" {
			reason = m
		}
		logger.Errorf("[EMAIL] resend returned %d: %s", resp.StatusCode, reason)
		return nil, apperrors.New(apperrors.KindUpstream, fmt.Sprintf("resend returned %d: %s", resp.StatusCode, reason), nil)
	}
	return out, nil
}
