package weconnect

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/pkg/errors"

	"github.com/futurehomeno/edge-vwarmup/internal/rest"
)

const (
	// loginURI exchanges a username and password for a bearer token. The vehicle service itself
	// only offers a browser based identity flow, so this endpoint is served by a token proxy in
	// front of it, answering with {"accessToken", "refreshToken", "expiresIn"}.
	loginURI    = "/login/v1/token"
	vehiclesURI = "/vehicle/v1/vehicles"

	selectiveStatusURITemplate = "/vehicle/v1/vehicles/%s/selectivestatus"

	jsonContentType = "application/json"
)

// JobClimatisation is the selective status job carrying the climatisation state.
const JobClimatisation = "climatisation"

// HTTPError carries the status code and the body of an unexpected response.
type HTTPError = rest.HTTPError

// HTTPClient represents the vehicle service HTTP API client.
type HTTPClient interface {
	// Login exchanges the account credentials for a token.
	Login(ctx context.Context, username, password string) (*Token, error)
	// Vehicles returns the vehicles assigned to the account.
	Vehicles(ctx context.Context, accessToken string) ([]Vehicle, error)
	// SelectiveStatus returns the requested status jobs of the vehicle.
	SelectiveStatus(ctx context.Context, accessToken, vin string, jobs ...string) (*VehicleStatus, error)
}

type httpClient struct {
	httpClient *http.Client
	baseURL    string
}

// NewHTTPClient returns a new instance of the vehicle service HTTPClient.
func NewHTTPClient(http *http.Client, baseURL string) HTTPClient {
	return &httpClient{
		httpClient: http,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
	}
}

func (c *httpClient) Login(ctx context.Context, username, password string) (*Token, error) {
	req, err := c.newRequestBuilder(http.MethodPost, c.baseURL+loginURI).
		WithBody(loginBody{
			Username: strings.TrimSpace(username),
			Password: password,
		}).
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

	token := &Token{}

	if err := rest.DecodeBody(resp, token); err != nil {
		return nil, errors.Wrap(err, "could not read login response body")
	}

	if token.AccessToken == "" {
		return nil, errors.New("login response does not contain an access token")
	}

	return token, nil
}

func (c *httpClient) Vehicles(ctx context.Context, accessToken string) ([]Vehicle, error) {
	req, err := c.newRequestBuilder(http.MethodGet, c.baseURL+vehiclesURI).
		WithBearerToken(accessToken).
		Build(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create vehicles request")
	}

	resp, err := rest.Do(c.httpClient, req, http.StatusOK)
	if err != nil {
		return nil, errors.Wrap(err, "failed to fetch vehicles from api")
	}

	defer resp.Body.Close()

	body := &vehiclesResponse{}

	if err := json.NewDecoder(resp.Body).Decode(body); err != nil {
		return nil, errors.Wrap(err, "could not decode vehicles response body")
	}

	return body.Data, nil
}

func (c *httpClient) SelectiveStatus(ctx context.Context, accessToken, vin string, jobs ...string) (*VehicleStatus, error) {
	u := c.baseURL + fmt.Sprintf(selectiveStatusURITemplate, url.PathEscape(vin)) +
		"?" + url.Values{"jobs": {strings.Join(jobs, ",")}}.Encode()

	req, err := c.newRequestBuilder(http.MethodGet, u).
		WithBearerToken(accessToken).
		Build(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create selective status request")
	}

	resp, err := rest.Do(c.httpClient, req, http.StatusOK, http.StatusMultiStatus)
	if err != nil {
		return nil, errors.Wrap(err, "could not perform selective status api call")
	}

	defer resp.Body.Close()

	status := &VehicleStatus{}

	if err := rest.DecodeBody(resp, status); err != nil {
		return nil, errors.Wrap(err, "could not read selective status response body")
	}

	return status, nil
}

func (c *httpClient) newRequestBuilder(method, u string) *rest.RequestBuilder {
	return rest.NewRequestBuilder(method, u).
		AddHeader(rest.AcceptHeader, jsonContentType)
}
