package rest

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	pkgerrors "github.com/pkg/errors"
	"github.com/thoas/go-funk"
)

const maxErrorBodySize = 4096

// HTTPError carries the status code and the body of an unexpected response.
type HTTPError struct {
	Err    error
	Status int
	Body   []byte
}

func (e HTTPError) Error() string {
	return fmt.Sprintf("%s, status code: %d, body: %s", e.Err, e.Status, string(e.Body))
}

func (e HTTPError) Unwrap() error {
	return e.Err
}

// HasStatus checks if the error was caused by a response with the status code.
func HasStatus(err error, status int) bool {
	var httpErr HTTPError

	return errors.As(err, &httpErr) && httpErr.Status == status
}

// Do performs the request and returns an HTTPError when the response code is none of the expected ones.
// On success the caller must close the response body.
func Do(client *http.Client, req *http.Request, wantResponseCodes ...int) (*http.Response, error) {
	resp, err := client.Do(req)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "could not perform http call")
	}

	for _, code := range wantResponseCodes {
		if resp.StatusCode == code {
			return resp, nil
		}
	}

	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))

	return nil, HTTPError{
		Err:    pkgerrors.Errorf("expected response code to be one of %v, but got %d instead", wantResponseCodes, resp.StatusCode),
		Status: resp.StatusCode,
		Body:   body,
	}
}

// DecodeBody decodes the JSON response body and rejects an empty result.
func DecodeBody(r *http.Response, body interface{}) error {
	err := json.NewDecoder(r.Body).Decode(body)
	if err != nil {
		return pkgerrors.Wrap(err, "could not decode response body")
	}

	if funk.IsEmpty(body) {
		return pkgerrors.New("response body does not contain expected data")
	}

	return nil
}
