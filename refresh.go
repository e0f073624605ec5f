package sessionkit

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/loqui-app/sessionkit/httpc"
	"github.com/loqui-app/sessionkit/token"
)

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type refreshResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// newRefreshFunc binds the refresh endpoint against the raw transport. The
// authenticated client is deliberately bypassed: the refresh call itself
// must never trigger another refresh.
func newRefreshFunc(transport httpc.Transport, path string) token.RefreshFunc {
	return func(ctx context.Context, refreshToken string) (string, string, error) {
		body, err := json.Marshal(refreshRequest{RefreshToken: refreshToken})
		if err != nil {
			return "", "", err
		}
		resp, err := transport.Request(ctx, http.MethodPost, path, body, nil)
		if err != nil {
			return "", "", err
		}
		if resp.Status < 200 || resp.Status > 299 {
			return "", "", fmt.Errorf("refresh endpoint returned status %d", resp.Status)
		}

		var out refreshResponse
		if err := json.Unmarshal(resp.Body, &out); err != nil {
			return "", "", fmt.Errorf("decode refresh response: %w", err)
		}
		if out.AccessToken == "" {
			return "", "", fmt.Errorf("refresh response missing access token")
		}
		return out.AccessToken, out.RefreshToken, nil
	}
}
