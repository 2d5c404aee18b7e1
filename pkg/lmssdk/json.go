package lmssdk

import (
	"context"
	"net/http"
	"net/url"
)

type validator interface {
	validate() error
}

// GetJSON issues a GET and decodes the response into a T.
func GetJSON[T any](ctx context.Context, c *Client, path string, query url.Values) (T, error) {
	return SendJSON[T](ctx, c, &Request{Method: http.MethodGet, Path: path, Query: query})
}

// SendJSON issues req and decodes the 2xx response into a T, running its
// validate method when it has one.
func SendJSON[T any](ctx context.Context, c *Client, req *Request) (T, error) {
	var out T

	resp, err := c.Do(ctx, req)
	if err != nil {
		return out, err
	}

	var check func() error
	if v, ok := any(&out).(validator); ok {
		check = v.validate
	}
	if err := decodeInto(resp, req.Path, &out, check); err != nil {
		return out, err
	}
	return out, nil
}

// sendNoContent issues req and discards any body.
func sendNoContent(ctx context.Context, c *Client, req *Request) error {
	_, err := c.Do(ctx, req)
	return err
}
