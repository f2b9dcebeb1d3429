package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	syncdomain "threegen/internal/domain/sync"
)

const (
	defaultTimeout  = 15 * time.Second
	defaultPageSize = 200
	maxErrorBody    = 4 << 10
)

var errUnexpectedStatus = errors.New("unexpected response status")

// TokenSource returns the bearer token of the signed-in user.
type TokenSource interface {
	Token() (string, error)
}

// Client talks to the member document API.
type Client struct {
	baseURL  string
	client   *http.Client
	tokens   TokenSource
	pageSize int
}

type putRequest struct {
	Fields syncdomain.DocumentFields `json:"fields"`
}

type documentPayload struct {
	ID        string          `json:"id"`
	Fields    json.RawMessage `json:"fields"`
	UpdatedAt int64           `json:"updatedAt"`
	Deleted   bool            `json:"deleted"`
}

type listPayload struct {
	Items             []documentPayload `json:"items"`
	NextModifiedSince int64             `json:"next_modified_since"`
	NextAfterID       string            `json:"next_after_id"`
	HasMore           bool              `json:"has_more"`
}

type errorEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func NewClient(baseURL string, tokens TokenSource, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		client:   &http.Client{Timeout: timeout},
		tokens:   tokens,
		pageSize: defaultPageSize,
	}
}

func (c *Client) Put(ctx context.Context, id string, fields syncdomain.DocumentFields) error {
	body, err := json.Marshal(putRequest{Fields: fields})
	if err != nil {
		return fmt.Errorf("%w: %v", syncdomain.ErrInvalidDocument, err)
	}

	resp, err := c.do(ctx, http.MethodPut, memberPath(id), nil, body)
	if err != nil {
		return err
	}
	defer drain(resp)

	if resp.StatusCode != http.StatusOK {
		return statusError(resp)
	}
	return nil
}

// Get returns nil when the document does not exist or was deleted.
func (c *Client) Get(ctx context.Context, id string) (*syncdomain.Document, error) {
	resp, err := c.do(ctx, http.MethodGet, memberPath(id), nil, nil)
	if err != nil {
		return nil, err
	}
	defer drain(resp)

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, nil
	default:
		return nil, statusError(resp)
	}

	var payload documentPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: decode document: %v", syncdomain.ErrRemoteUnavailable, err)
	}
	doc := payload.toDocument()
	return &doc, nil
}

// QueryModifiedSince follows the listing cursor until every page is read.
func (c *Client) QueryModifiedSince(ctx context.Context, since int64) ([]syncdomain.Document, error) {
	result := make([]syncdomain.Document, 0)
	cursor := since
	afterID := ""

	for {
		query := url.Values{}
		query.Set("modified_since", strconv.FormatInt(cursor, 10))
		query.Set("limit", strconv.Itoa(c.pageSize))
		if afterID != "" {
			query.Set("after_id", afterID)
		}

		page, err := c.listPage(ctx, query)
		if err != nil {
			return nil, err
		}
		for _, item := range page.Items {
			result = append(result, item.toDocument())
		}
		if !page.HasMore {
			return result, nil
		}
		if page.NextModifiedSince == cursor && page.NextAfterID == afterID {
			return nil, fmt.Errorf("%w: listing cursor did not advance", syncdomain.ErrRemoteUnavailable)
		}
		cursor = page.NextModifiedSince
		afterID = page.NextAfterID
	}
}

// Delete treats a missing document as already deleted.
func (c *Client) Delete(ctx context.Context, id string) error {
	resp, err := c.do(ctx, http.MethodDelete, memberPath(id), nil, nil)
	if err != nil {
		return err
	}
	defer drain(resp)

	switch resp.StatusCode {
	case http.StatusOK, http.StatusNoContent, http.StatusNotFound:
		return nil
	default:
		return statusError(resp)
	}
}

// Ping checks that the service answers. It needs no token.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/health", nil)
	if err != nil {
		return err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", syncdomain.ErrRemoteUnavailable, err)
	}
	defer drain(resp)

	if resp.StatusCode != http.StatusOK {
		return statusError(resp)
	}
	return nil
}

func (c *Client) listPage(ctx context.Context, query url.Values) (*listPayload, error) {
	resp, err := c.do(ctx, http.MethodGet, "/api/members", query, nil)
	if err != nil {
		return nil, err
	}
	defer drain(resp)

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp)
	}

	var page listPayload
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("%w: decode listing: %v", syncdomain.ErrRemoteUnavailable, err)
	}
	return &page, nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body []byte) (*http.Response, error) {
	token, err := c.tokens.Token()
	if err != nil || token == "" {
		return nil, fmt.Errorf("%w: no session token", syncdomain.ErrNotAuthenticated)
	}

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %v", syncdomain.ErrRemoteUnavailable, err)
	}
	return resp, nil
}

func (p documentPayload) toDocument() syncdomain.Document {
	doc := syncdomain.Document{
		ID:        p.ID,
		UpdatedAt: p.UpdatedAt,
		Deleted:   p.Deleted,
	}
	var fields syncdomain.DocumentFields
	if err := json.Unmarshal(p.Fields, &fields); err == nil {
		doc.Fields = fields
	}
	return doc
}

func statusError(resp *http.Response) error {
	message := http.StatusText(resp.StatusCode)
	var envelope errorEnvelope
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err := json.Unmarshal(raw, &envelope); err == nil && envelope.Error.Message != "" {
		message = envelope.Error.Message
	}

	var kind error
	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		kind = syncdomain.ErrNotAuthenticated
	case resp.StatusCode == http.StatusForbidden:
		kind = syncdomain.ErrPermissionDenied
	case resp.StatusCode == http.StatusBadRequest, resp.StatusCode == http.StatusUnprocessableEntity,
		resp.StatusCode == http.StatusRequestEntityTooLarge:
		kind = syncdomain.ErrInvalidDocument
	case resp.StatusCode == http.StatusTooManyRequests, resp.StatusCode >= http.StatusInternalServerError:
		kind = syncdomain.ErrRemoteUnavailable
	default:
		kind = errUnexpectedStatus
	}
	return fmt.Errorf("%w: %d %s", kind, resp.StatusCode, message)
}

func memberPath(id string) string {
	return "/api/members/" + url.PathEscape(id)
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
	_ = resp.Body.Close()
}
