package easee

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/pkg/errors"

	"github.com/futurehomeno/edge-vwarmup/internal/rest"
)

const (
	loginURI        = "/api/accounts/login"
	tokenRefreshURI = "/api/accounts/refresh_token" //nolint:gosec
	sitesURI        = "/api/sites"

	siteURITemplate            = "/api/sites/%d?detailed=true"
	chargerStateURITemplate    = "/api/chargers/%s/state"
	chargerSettingsURITemplate = "/api/chargers/%s/settings"

	jsonContentType = "application/*+json"
)

// HTTPClient represents Easee HTTP API Client.
type HTTPClient interface {
	// Login logs the user in the Easee API and retrieves credentials.
	Login(ctx context.Context, userName, password string) (*Credentials, error)
	// RefreshToken retrieves new credentials based on an access token and a refresh token.
	RefreshToken(ctx context.Context, accessToken, refreshToken string) (*Credentials, error)
	// Sites returns all sites available to the account.
	Sites(ctx context.Context, accessToken string) ([]Site, error)
	// Site returns the site with its circuits and chargers.
	Site(ctx context.Context, accessToken string, siteID int) (*Site, error)
	// ChargerState returns the current state of the charger.
	ChargerState(ctx context.Context, accessToken, chargerID string) (*ChargerState, error)
	// UpdateSmartCharging enables or disables smart charging on the charger.
	UpdateSmartCharging(ctx context.Context, accessToken, chargerID string, enabled bool) error
	// CloseIdleConnections releases connections kept alive by the underlying transport.
	CloseIdleConnections()
}

type httpClient struct {
	httpClient *http.Client
	baseURL    string
}

// NewHTTPClient returns a new instance of Easee HTTPClient.
func NewHTTPClient(http *http.Client, baseURL string) HTTPClient {
	return &httpClient{
		httpClient: http,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
	}
}

func (c *httpClient) Login(ctx context.Context, userName, password string) (*Credentials, error) {
	body := loginBody{
		Username: strings.TrimSpace(userName),
		Password: strings.TrimSpace(password),
	}

	req, err := rest.NewRequestBuilder(http.MethodPost, c.buildURL(loginURI)).
		WithBody(body).
		AddHeader(rest.ContentTypeHeader, jsonContentType).
		Build(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create login request")
	}

	resp, err := rest.Do(c.httpClient, req, http.StatusOK)
	if err != nil {
		return nil, errors.Wrap(err, "login request failed")
	}

	defer resp.Body.Close()

	credentials := &Credentials{}

	err = rest.DecodeBody(resp, credentials)
	if err != nil {
		return nil, errors.Wrap(err, "could not read login response body")
	}

	return credentials, nil
}

func (c *httpClient) RefreshToken(ctx context.Context, accessToken, refreshToken string) (*Credentials, error) {
	body := refreshBody{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}

	req, err := rest.NewRequestBuilder(http.MethodPost, c.buildURL(tokenRefreshURI)).
		WithBody(body).
		AddHeader(rest.ContentTypeHeader, jsonContentType).
		Build(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create token refresh request")
	}

	resp, err := rest.Do(c.httpClient, req, http.StatusOK)
	if err != nil {
		return nil, errors.Wrap(err, "token refresh request failed")
	}

	defer resp.Body.Close()

	credentials := &Credentials{}

	err = rest.DecodeBody(resp, credentials)
	if err != nil {
		return nil, errors.Wrap(err, "could not read token refresh response body")
	}

	return credentials, nil
}

func (c *httpClient) Sites(ctx context.Context, accessToken string) ([]Site, error) {
	req, err := rest.NewRequestBuilder(http.MethodGet, c.buildURL(sitesURI)).
		WithBearerToken(accessToken).
		Build(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create sites request")
	}

	resp, err := rest.Do(c.httpClient, req, http.StatusOK)
	if err != nil {
		return nil, errors.Wrap(err, "failed to fetch sites from api")
	}

	defer resp.Body.Close()

	var sites []Site

	if err := json.NewDecoder(resp.Body).Decode(&sites); err != nil {
		return nil, errors.Wrap(err, "could not decode sites response body")
	}

	return sites, nil
}

func (c *httpClient) Site(ctx context.Context, accessToken string, siteID int) (*Site, error) {
	req, err := rest.NewRequestBuilder(http.MethodGet, c.buildURL(siteURITemplate, siteID)).
		WithBearerToken(accessToken).
		Build(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create site request")
	}

	resp, err := rest.Do(c.httpClient, req, http.StatusOK)
	if err != nil {
		return nil, errors.Wrap(err, "could not perform site api call")
	}

	defer resp.Body.Close()

	site := &Site{}

	err = rest.DecodeBody(resp, site)
	if err != nil {
		return nil, errors.Wrap(err, "could not read site response body")
	}

	return site, nil
}

func (c *httpClient) ChargerState(ctx context.Context, accessToken, chargerID string) (*ChargerState, error) {
	req, err := rest.NewRequestBuilder(http.MethodGet, c.buildURL(chargerStateURITemplate, chargerID)).
		WithBearerToken(accessToken).
		Build(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create charger state request")
	}

	resp, err := rest.Do(c.httpClient, req, http.StatusOK)
	if err != nil {
		return nil, errors.Wrap(err, "could not perform charger state api call")
	}

	defer resp.Body.Close()

	state := &ChargerState{}

	if err := json.NewDecoder(resp.Body).Decode(state); err != nil {
		return nil, errors.Wrap(err, "could not decode charger state response body")
	}

	return state, nil
}

func (c *httpClient) UpdateSmartCharging(ctx context.Context, accessToken, chargerID string, enabled bool) error {
	req, err := rest.NewRequestBuilder(http.MethodPost, c.buildURL(chargerSettingsURITemplate, chargerID)).
		WithBody(smartChargingBody{SmartCharging: enabled}).
		WithBearerToken(accessToken).
		AddHeader(rest.ContentTypeHeader, jsonContentType).
		Build(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to create smart charging request")
	}

	resp, err := rest.Do(c.httpClient, req, http.StatusOK, http.StatusAccepted)
	if err != nil {
		return errors.Wrap(err, "update smart charging request failed")
	}

	defer resp.Body.Close()

	return nil
}

func (c *httpClient) CloseIdleConnections() {
	c.httpClient.CloseIdleConnections()
}

func (c *httpClient) buildURL(path string, args ...interface{}) string {
	return c.baseURL + fmt.Sprintf(path, args...)
}
