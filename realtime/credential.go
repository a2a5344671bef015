package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/voiceweb/internal/tlsutil"
	"github.com/BaSui01/voiceweb/types"
)

// Connection stages reported by ConnectionError.
const (
	StageCredential = "credential"
	StageDial       = "dial"
	StageSession    = "session"
)

// ConnectionError reports a failure while establishing the realtime session.
type ConnectionError struct {
	Stage      string
	StatusCode int
	Err        error
}

func (e *ConnectionError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("realtime %s failed (status %d): %v", e.Stage, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("realtime %s failed: %v", e.Stage, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// AsTypesError converts the failure into the shared error model.
func (e *ConnectionError) AsTypesError() *types.Error {
	return types.NewError(types.ErrConnection, e.Error()).
		WithCause(e.Err).
		WithHTTPStatus(http.StatusBadGateway).
		WithRetryable(e.StatusCode == 0 || e.StatusCode >= 500)
}

// Credential is an ephemeral client secret minted by the session endpoint.
type Credential struct {
	Value     string
	ExpiresAt time.Time
}

// Expired reports whether the credential is no longer usable at now.
func (c Credential) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && !now.Before(c.ExpiresAt)
}

// sessionEnvelope is the body served by the session endpoint:
// {"result": {"client_secret": {"value": "...", "expires_at": 123}}}.
type sessionEnvelope struct {
	Result struct {
		ClientSecret struct {
			Value     string `json:"value"`
			ExpiresAt int64  `json:"expires_at"`
		} `json:"client_secret"`
	} `json:"result"`
}

// CredentialClient fetches ephemeral credentials from the session endpoint.
type CredentialClient struct {
	endpoint string
	client   *http.Client
	logger   *zap.Logger
}

// NewCredentialClient creates a client for endpoint. A nil httpClient uses a
// client with a 15s timeout.
func NewCredentialClient(endpoint string, httpClient *http.Client, logger *zap.Logger) *CredentialClient {
	if httpClient == nil {
		httpClient = tlsutil.HTTPClient(15 * time.Second)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CredentialClient{
		endpoint: endpoint,
		client:   httpClient,
		logger:   logger.With(zap.String("component", "realtime_credential")),
	}
}

// Fetch retrieves a fresh credential.
func (c *CredentialClient) Fetch(ctx context.Context) (Credential, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint, nil)
	if err != nil {
		return Credential{}, &ConnectionError{Stage: StageCredential, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return Credential{}, &ConnectionError{Stage: StageCredential, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Credential{}, &ConnectionError{Stage: StageCredential, StatusCode: resp.StatusCode, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Credential{}, &ConnectionError{
			Stage:      StageCredential,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected response: %s", strings.TrimSpace(string(body))),
		}
	}

	var env sessionEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return Credential{}, &ConnectionError{Stage: StageCredential, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode session: %w", err)}
	}
	secret := env.Result.ClientSecret
	if secret.Value == "" {
		return Credential{}, &ConnectionError{Stage: StageCredential, StatusCode: resp.StatusCode, Err: errors.New("session response has no client secret")}
	}

	cred := Credential{Value: secret.Value}
	if secret.ExpiresAt > 0 {
		cred.ExpiresAt = time.Unix(secret.ExpiresAt, 0)
	}
	c.logger.Debug("credential fetched", zap.Time("expires_at", cred.ExpiresAt))
	return cred, nil
}
