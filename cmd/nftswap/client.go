package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const requestTimeout = 15 * time.Second

type daemonClient struct {
	baseURL    string
	adminToken string
	httpClient *http.Client
}

func getDaemonClient() (*daemonClient, error) {
	state, err := getState()
	if err != nil {
		return nil, err
	}
	address, ok := state[daemonURLKey]
	if !ok || len(address) <= 0 {
		return nil, errors.New("set daemon_url with `config set daemon_url`")
	}
	return newDaemonClient(address, state[adminTokenKey]), nil
}

func newDaemonClient(baseURL, adminToken string) *daemonClient {
	return &daemonClient{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		adminToken: adminToken,
		httpClient: &http.Client{Timeout: requestTimeout},
	}
}

func (c *daemonClient) get(path string, query url.Values) ([]byte, error) {
	if len(query) > 0 {
		path = fmt.Sprintf("%s?%s", path, query.Encode())
	}
	return c.do(http.MethodGet, path, nil, false)
}

func (c *daemonClient) adminGet(path string, query url.Values) ([]byte, error) {
	if len(query) > 0 {
		path = fmt.Sprintf("%s?%s", path, query.Encode())
	}
	return c.do(http.MethodGet, path, nil, true)
}

func (c *daemonClient) adminDelete(path string) ([]byte, error) {
	return c.do(http.MethodDelete, path, nil, true)
}

func (c *daemonClient) post(path string, body interface{}) ([]byte, error) {
	return c.do(http.MethodPost, path, body, false)
}

func (c *daemonClient) adminPost(path string, body interface{}) ([]byte, error) {
	return c.do(http.MethodPost, path, body, true)
}

func (c *daemonClient) adminPut(path string, body interface{}) ([]byte, error) {
	return c.do(http.MethodPut, path, body, true)
}

func (c *daemonClient) do(
	method, path string, body interface{}, admin bool,
) ([]byte, error) {
	var reqBody io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reqBody = bytes.NewReader(buf)
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if admin {
		if len(c.adminToken) <= 0 {
			return nil, errors.New(
				"set admin_token with `config set admin_token`",
			)
		}
		req.Header.Set("Authorization", "Bearer "+c.adminToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to daemon: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= http.StatusBadRequest {
		errResp := struct {
			Code  string `json:"code"`
			Error string `json:"error"`
		}{}
		if err := json.Unmarshal(respBody, &errResp); err != nil ||
			len(errResp.Error) <= 0 {
			return nil, fmt.Errorf("%s", resp.Status)
		}
		return nil, fmt.Errorf("%s (%s)", errResp.Error, errResp.Code)
	}

	return respBody, nil
}
