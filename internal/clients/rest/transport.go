package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// maxBody - предел чтения тела ответа.
const maxBody = 8 << 20

// Transport - конечный Invoker поверх net/http.
type Transport struct {
	baseURL string
	client  *http.Client
}

func NewTransport(baseURL string, client *http.Client) *Transport {
	if client == nil {
		client = &http.Client{}
	}

	return &Transport{baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

type errorEnvelope struct {
	Errors []struct {
		Message    string `json:"message"`
		Extensions struct {
			Code string `json:"code"`
		} `json:"extensions"`
	} `json:"errors"`
}

type dataEnvelope struct {
	Data json.RawMessage `json:"data"`
}

func (t *Transport) Invoke(ctx context.Context, call *Call) error {
	const op = "rest.Transport.Invoke"

	target := t.baseURL + "/" + strings.TrimLeft(call.Path, "/")
	if len(call.Query) > 0 {
		target += "?" + call.Query.Encode()
	}

	// Тело пересоздаётся на каждую попытку.
	var body io.Reader
	if call.Body != nil {
		body = bytes.NewReader(call.Body)
	}

	req, err := http.NewRequestWithContext(ctx, call.Method, target, body)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	for k, vs := range call.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if call.ContentType != "" {
		req.Header.Set("Content-Type", call.ContentType)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		call.Status = 0
		return fmt.Errorf("%s: %w: %w", op, ErrNetwork, err)
	}
	defer resp.Body.Close()

	call.Status = resp.StatusCode

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return fmt.Errorf("%s: %w: %w", op, ErrNetwork, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp.StatusCode, raw)
	}

	if call.Out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}

	var env dataEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("%s: %w: %w", op, ErrMalformedResponse, err)
	}
	if len(env.Data) == 0 {
		return fmt.Errorf("%s: %w: no data field", op, ErrMalformedResponse)
	}

	if err := json.Unmarshal(env.Data, call.Out); err != nil {
		return fmt.Errorf("%s: %w: %w", op, ErrMalformedResponse, err)
	}

	return nil
}

func decodeAPIError(status int, raw []byte) *APIError {
	apiErr := &APIError{Status: status}

	var env errorEnvelope
	if err := json.Unmarshal(raw, &env); err == nil && len(env.Errors) > 0 {
		apiErr.Message = env.Errors[0].Message
		apiErr.Code = env.Errors[0].Extensions.Code
	}

	return apiErr
}
