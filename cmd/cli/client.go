package main

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/and161185/grocer/internal/convert"
	httpserver "github.com/and161185/grocer/internal/server/http"
)

// apiError is a non-2xx answer of the server.
type apiError struct {
	Status  int
	Code    string
	Message string
}

func (e *apiError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("http %d", e.Status)
	}
	return fmt.Sprintf("http %d: %s %s", e.Status, e.Code, e.Message)
}

type client struct {
	base  string
	hc    *http.Client
	token string
}

func newClient(base, token string) *client {
	return &client{
		base:  strings.TrimRight(base, "/"),
		hc:    &http.Client{Timeout: 15 * time.Second},
		token: token,
	}
}

// do sends body as JSON and decodes a 2xx answer into out (if non-nil).
func (c *client) do(ctx context.Context, method, path string, body, out any, hdr http.Header) (http.Header, error) {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, rd)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	for k, v := range hdr {
		req.Header[k] = v
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		var e convert.ErrorResponse
		_ = json.NewDecoder(resp.Body).Decode(&e)
		return resp.Header, &apiError{Status: resp.StatusCode, Code: e.Code, Message: e.Message}
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.Header, fmt.Errorf("decode response: %w", err)
		}
	}
	return resp.Header, nil
}

func (c *client) signup(ctx context.Context, req convert.SignupRequest) (convert.StatusResponse, error) {
	var out convert.StatusResponse
	_, err := c.do(ctx, http.MethodPost, "/customer/signup", req, &out, nil)
	return out, err
}

// login returns the issued token together with the account summary.
func (c *client) login(ctx context.Context, contact, password string) (string, convert.LoginResponse, error) {
	var out convert.LoginResponse
	cred := base64.StdEncoding.EncodeToString([]byte(contact + ":" + password))
	h, err := c.do(ctx, http.MethodPost, "/customer/login", nil, &out,
		http.Header{"Authorization": {"Basic " + cred}})
	if err != nil {
		return "", out, err
	}
	tok := h.Get(httpserver.AccessTokenHeader)
	if tok == "" {
		return "", out, fmt.Errorf("server did not return %s header", httpserver.AccessTokenHeader)
	}
	return tok, out, nil
}

func (c *client) logout(ctx context.Context) (convert.LogoutResponse, error) {
	var out convert.LogoutResponse
	_, err := c.do(ctx, http.MethodPost, "/customer/logout", nil, &out, nil)
	return out, err
}

func (c *client) customer(ctx context.Context) (convert.CustomerResponse, error) {
	var out convert.CustomerResponse
	_, err := c.do(ctx, http.MethodGet, "/customer", nil, &out, nil)
	return out, err
}

func (c *client) updateCustomer(ctx context.Context, first, last string) (convert.CustomerResponse, error) {
	var out convert.CustomerResponse
	_, err := c.do(ctx, http.MethodPut, "/customer",
		convert.UpdateCustomerRequest{FirstName: first, LastName: last}, &out, nil)
	return out, err
}

func (c *client) changePassword(ctx context.Context, oldPw, newPw string) (convert.StatusResponse, error) {
	var out convert.StatusResponse
	_, err := c.do(ctx, http.MethodPut, "/customer/password",
		convert.UpdatePasswordRequest{OldPassword: oldPw, NewPassword: newPw}, &out, nil)
	return out, err
}

func (c *client) sessions(ctx context.Context) (convert.SessionListResponse, error) {
	var out convert.SessionListResponse
	_, err := c.do(ctx, http.MethodGet, "/customer/sessions", nil, &out, nil)
	return out, err
}

func (c *client) saveAddress(ctx context.Context, req convert.SaveAddressRequest) (convert.StatusResponse, error) {
	var out convert.StatusResponse
	_, err := c.do(ctx, http.MethodPost, "/address", req, &out, nil)
	return out, err
}

func (c *client) listAddresses(ctx context.Context) (convert.AddressListResponse, error) {
	var out convert.AddressListResponse
	_, err := c.do(ctx, http.MethodGet, "/address/customer", nil, &out, nil)
	return out, err
}

func (c *client) deleteAddress(ctx context.Context, id string) (convert.StatusResponse, error) {
	var out convert.StatusResponse
	_, err := c.do(ctx, http.MethodDelete, "/address/"+url.PathEscape(id), nil, &out, nil)
	return out, err
}
