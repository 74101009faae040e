package services

import (
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

// SupabaseAdminClient calls the Supabase Auth admin API with the service-role
// key. The key never leaves the server.
type SupabaseAdminClient struct {
	BaseURL        string
	ServiceRoleKey string
	Client         *http.Client
}

func NewSupabaseAdminClient(baseURL, serviceRoleKey string) *SupabaseAdminClient {
	return &SupabaseAdminClient{
		BaseURL:        strings.TrimRight(baseURL, "/"),
		ServiceRoleKey: serviceRoleKey,
		Client:         utils.HTTPClient,
	}
}

// DeleteUser removes the auth user via DELETE /auth/v1/admin/users/{id}.
func (c *SupabaseAdminClient) DeleteUser(ctx context.Context, userID string) error {
	if c.BaseURL == "" || c.ServiceRoleKey == "" {
		return apperrors.Unavailable("supabase admin credentials are not configured")
	}

	url := fmt.Sprintf("%s/auth/v1/admin/users/%s", c.BaseURL, userID)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("apikey", c.ServiceRoleKey)
	req.Header.Set("Authorization", "Bearer "+c.ServiceRoleKey)

	resp, err := c.Client.Do(req)
	if err != nil {
		return apperrors.New(apperrors.KindUpstream, "supabase request failed", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		logger.Errorf("[ADMIN] supabase delete user %s returned %d: %s", userID, resp.StatusCode, string(body))
		return apperrors.New(apperrors.KindUpstream,
			fmt.Sprintf("supabase returned %d: %s", resp.StatusCode, supabaseErrorMessage(body)), nil)
	}
	return nil
}

// supabaseErrorMessage extracts msg/message/error_description from an error body.
func supabaseErrorMessage(body []byte) string {
	var payload struct {
		Msg              string `json:"msg"`
		Message          string `json:"message"`
		ErrorDescription string `json:"error_description"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		for _, m := range []string{payload.Msg, payload.Message, payload.ErrorDescription} {
			if m != "" {
				return m
			}
		}
	}
	return strings.TrimSpace(string(body))
}
