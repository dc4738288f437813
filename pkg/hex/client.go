// Package hex talks to the Hex package registry: the HTTP API for publishing
// and ownership operations, and the repository for release metadata and
// package tarballs.
package hex

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"github.com/brightly-salty/gleam/pkg/engine"
	"github.com/brightly-salty/gleam/pkg/telemetry"
)

const userAgent = "gleam-build-tool"

// ClientConfig configures a registry client.
type ClientConfig struct {
	APIURL  string
	RepoURL string

	// APIKey takes precedence over a key stored by Authenticate.
	APIKey string

	// CredentialsFile is where Authenticate stores the key it creates.
	CredentialsFile string

	RetryCount int
	Timeout    time.Duration
}

// Prompter asks the user questions on the terminal.
type Prompter interface {
	Ask(question string) (string, error)
	AskPassword(question string) (string, error)
	Confirm(question string) (bool, error)
}

// Client is a Hex API and repository client. It implements engine.Registry.
type Client struct {
	cfg    ClientConfig
	api    *resty.Client
	repo   *resty.Client
	prompt Prompter
	logger zerolog.Logger
}

var _ engine.Registry = (*Client)(nil)

// NewClient creates a client. Requests failing with a transport error or a
// 5xx status are retried.
func NewClient(cfg ClientConfig, prompt Prompter) *Client {
	if cfg.RetryCount == 0 {
		cfg.RetryCount = 3
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}

	return &Client{
		cfg:    cfg,
		api:    newRestyClient(cfg, cfg.APIURL),
		repo:   newRestyClient(cfg, cfg.RepoURL),
		prompt: prompt,
		logger: telemetry.Component("hex"),
	}
}

func newRestyClient(cfg ClientConfig, baseURL string) *resty.Client {
	return resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetHeader("User-Agent", userAgent).
		SetHeader("Accept", "application/json").
		SetRetryCount(cfg.RetryCount).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(5 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() >= http.StatusInternalServerError
		})
}

// apiError is the body of a failed API response.
type apiError struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
}

// APIKey returns the configured key, falling back to the stored one.
func (c *Client) APIKey() (string, error) {
	if c.cfg.APIKey != "" {
		return c.cfg.APIKey, nil
	}

	if c.cfg.CredentialsFile != "" {
		data, err := os.ReadFile(c.cfg.CredentialsFile)
		if err == nil && strings.TrimSpace(string(data)) != "" {
			return strings.TrimSpace(string(data)), nil
		}
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("failed to read stored credentials: %w", err)
		}
	}

	return "", engine.NewError(engine.ErrorKindRegistry, "HEXPM_API_KEY is not set", nil).
		WithHint("Set HEXPM_API_KEY or run `gleam hex authenticate` to create a key.")
}

func (c *Client) authed(ctx context.Context) (*resty.Request, error) {
	key, err := c.APIKey()
	if err != nil {
		return nil, err
	}
	return c.api.R().SetContext(ctx).SetHeader("Authorization", key), nil
}

// check converts a failed response into a registry error.
func check(resp *resty.Response, err error, action string) error {
	if err != nil {
		return engine.NewError(engine.ErrorKindRegistry, "failed to "+action, err)
	}
	if !resp.IsError() {
		return nil
	}

	message := http.StatusText(resp.StatusCode())
	if e, ok := resp.Error().(*apiError); ok && e.Message != "" {
		message = e.Message
	}

	regErr := engine.NewError(engine.ErrorKindRegistry, "failed to "+action,
		fmt.Errorf("hex responded with %d: %s", resp.StatusCode(), message))
	switch resp.StatusCode() {
	case http.StatusUnauthorized:
		regErr.WithHint("Check that your Hex API key is valid.")
	case http.StatusForbidden:
		regErr.WithHint("Your Hex API key does not have permission for this action.")
	}
	return regErr
}

func releasePath(pkg, version string) string {
	return "/packages/" + url.PathEscape(pkg) + "/releases/" + url.PathEscape(version)
}

// Retire marks a release as retired.
func (c *Client) Retire(ctx context.Context, pkg, version string, reason engine.RetirementReason, message string) error {
	req, err := c.authed(ctx)
	if err != nil {
		return err
	}

	resp, err := req.
		SetBody(map[string]string{"reason": string(reason), "message": message}).
		SetError(&apiError{}).
		Post(releasePath(pkg, version) + "/retire")
	if err := check(resp, err, "retire "+pkg+" "+version); err != nil {
		return err
	}

	c.logger.Info().Str("package", pkg).Str("version", version).Str("reason", string(reason)).Msg("Retired release")
	return nil
}

// Unretire clears the retirement of a release.
func (c *Client) Unretire(ctx context.Context, pkg, version string) error {
	req, err := c.authed(ctx)
	if err != nil {
		return err
	}

	resp, err := req.SetError(&apiError{}).Delete(releasePath(pkg, version) + "/retire")
	return check(resp, err, "unretire "+pkg+" "+version)
}

// Revert removes a recently published release.
func (c *Client) Revert(ctx context.Context, pkg, version string) error {
	req, err := c.authed(ctx)
	if err != nil {
		return err
	}

	resp, err := req.SetError(&apiError{}).Delete(releasePath(pkg, version))
	if err := check(resp, err, "revert "+pkg+" "+version); err != nil {
		return err
	}

	c.logger.Info().Str("package", pkg).Str("version", version).Msg("Reverted release")
	return nil
}

// TransferOwner makes newOwner the sole owner of pkg.
func (c *Client) TransferOwner(ctx context.Context, pkg, newOwner string) error {
	req, err := c.authed(ctx)
	if err != nil {
		return err
	}

	resp, err := req.
		SetBody(map[string]any{"level": "full", "transfer": true}).
		SetError(&apiError{}).
		Put("/packages/" + url.PathEscape(pkg) + "/owners/" + url.PathEscape(newOwner))
	return check(resp, err, "transfer "+pkg+" to "+newOwner)
}

// RemoveDocs deletes the documentation of a release from HexDocs.
func (c *Client) RemoveDocs(ctx context.Context, pkg, version string) error {
	req, err := c.authed(ctx)
	if err != nil {
		return err
	}

	resp, err := req.SetError(&apiError{}).Delete(releasePath(pkg, version) + "/docs")
	return check(resp, err, "remove docs for "+pkg+" "+version)
}

// PublishDocs uploads a gzipped documentation tarball for a release.
func (c *Client) PublishDocs(ctx context.Context, pkg, version string, tarball []byte) error {
	req, err := c.authed(ctx)
	if err != nil {
		return err
	}

	resp, err := req.
		SetHeader("Content-Type", "application/x-tar").
		SetHeader("Content-Encoding", "x-gzip").
		SetBody(tarball).
		SetError(&apiError{}).
		Post(releasePath(pkg, version) + "/docs")
	return check(resp, err, "publish docs for "+pkg+" "+version)
}

// PublishRelease uploads a package tarball.
func (c *Client) PublishRelease(ctx context.Context, tarball []byte, replace bool) error {
	req, err := c.authed(ctx)
	if err != nil {
		return err
	}

	resp, err := req.
		SetQueryParam("replace", fmt.Sprint(replace)).
		SetHeader("Content-Type", "application/octet-stream").
		SetBody(tarball).
		SetError(&apiError{}).
		Post("/publish")
	return check(resp, err, "publish package")
}

// Authenticate creates an API key from the user's credentials and stores it
// in the credentials file.
func (c *Client) Authenticate(ctx context.Context) error {
	if c.prompt == nil {
		return engine.NewError(engine.ErrorKindRegistry, "cannot authenticate without a terminal", nil)
	}

	username, err := c.prompt.Ask("https://hex.pm username: ")
	if err != nil {
		return engine.NewError(engine.ErrorKindIO, "failed to read username", err)
	}
	password, err := c.prompt.AskPassword("https://hex.pm password: ")
	if err != nil {
		return engine.NewError(engine.ErrorKindIO, "failed to read password", err)
	}

	hostname, _ := os.Hostname()
	name := fmt.Sprintf("%s-%s", userAgent, hostname)

	var key struct {
		Name   string `json:"name"`
		Secret string `json:"secret"`
	}
	resp, err := c.api.R().
		SetContext(ctx).
		SetBasicAuth(username, password).
		SetBody(map[string]any{
			"name": name,
			"permissions": []map[string]string{
				{"domain": "api", "resource": "write"},
			},
		}).
		SetResult(&key).
		SetError(&apiError{}).
		Post("/keys")
	if err := check(resp, err, "create API key"); err != nil {
		return err
	}
	if key.Secret == "" {
		return engine.NewError(engine.ErrorKindRegistry, "hex returned an API key without a secret", nil)
	}

	if err := c.storeKey(key.Secret); err != nil {
		return engine.NewError(engine.ErrorKindIO, "failed to store API key", err)
	}

	c.logger.Info().Str("key", key.Name).Msg("Created API key")
	return nil
}

func (c *Client) storeKey(secret string) error {
	if c.cfg.CredentialsFile == "" {
		return errors.New("no credentials file configured")
	}
	if err := os.MkdirAll(filepath.Dir(c.cfg.CredentialsFile), 0o700); err != nil {
		return err
	}
	return os.WriteFile(c.cfg.CredentialsFile, []byte(secret+"\n"), 0o600)
}
