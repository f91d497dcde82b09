package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// WorkspaceClient handles communication with workspace-service
type WorkspaceClient interface {
	ValidateMember(ctx context.Context, workspaceID, userID, token string) (bool, error)
}

// MemberValidationResponse represents the response from the membership endpoint
type MemberValidationResponse struct {
	WorkspaceID string `json:"workspaceId"`
	UserID      string `json:"userId"`
	Valid       bool   `json:"valid"`
	IsValid     bool   `json:"isValid"`
	IsMember    bool   `json:"isMember"`
}

type workspaceClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewWorkspaceClient creates a new workspace-service client
func NewWorkspaceClient(baseURL string, logger *zap.Logger) WorkspaceClient {
	return &workspaceClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
		logger: logger,
	}
}

// ValidateMember checks if a user is a member of a workspace before the hub
// lets a device subscribe to that workspace's channels.
func (c *workspaceClient) ValidateMember(ctx context.Context, workspaceID, userID, token string) (bool, error) {
	url := fmt.Sprintf("%s/workspaces/%s/validate-member/%s", c.baseURL, workspaceID, userID)

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return false, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("Failed to call workspace-service",
			zap.Error(err),
			zap.String("url", url),
		)
		return false, fmt.Errorf("failed to call workspace-service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// 403 = not a member, 404 = workspace not found
		if resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusNotFound {
			return false, nil
		}
		return false, fmt.Errorf("workspace-service returned status %d", resp.StatusCode)
	}

	var validation MemberValidationResponse
	if err := json.NewDecoder(resp.Body).Decode(&validation); err != nil {
		return false, fmt.Errorf("failed to decode response: %w", err)
	}

	isMember := validation.Valid || validation.IsValid || validation.IsMember

	c.logger.Debug("Workspace member validation result",
		zap.Bool("is_member", isMember),
		zap.String("workspace_id", workspaceID),
		zap.String("user_id", userID),
	)

	return isMember, nil
}
