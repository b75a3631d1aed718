package helpdesk

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/deskwatch/backend/internal/models"
)

var ErrUnavailable = errors.New("helpdesk unavailable")

// ThrottleError signals upstream rate exhaustion (HTTP 429). RetryAfter
// carries the server hint when one was sent, zero otherwise.
type ThrottleError struct {
	RetryAfter time.Duration
}

func (e *ThrottleError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("helpdesk throttled, retry after %s", e.RetryAfter)
	}
	return "helpdesk throttled"
}

func IsThrottled(err error) bool {
	var throttle *ThrottleError
	return errors.As(err, &throttle)
}

// ThrottleHint extracts the server retry-after hint from a throttle
// error chain, zero when absent.
func ThrottleHint(err error) time.Duration {
	var throttle *ThrottleError
	if errors.As(err, &throttle) {
		return throttle.RetryAfter
	}
	return 0
}

// Page carries one page of records plus the pagination metadata the
// upstream exposes via response headers. TotalPages/TotalCount are zero
// when the upstream omits them.
type Page[T any] struct {
	Records    []T
	TotalPages int
	TotalCount int
}

// Client talks to a Freshservice-compatible helpdesk REST API. Zero-value
// fields are defaulted on first use.
type Client struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
}

const requestTimeout = 20 * time.Second

func (c *Client) get(ctx context.Context, path string, out any) (http.Header, error) {
	if c.Client == nil {
		c.Client = &http.Client{Timeout: requestTimeout}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(c.APIKey, "X")
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		throttle := &ThrottleError{}
		if hint, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && hint > 0 {
			throttle.RetryAfter = time.Duration(hint) * time.Second
		}
		return nil, throttle
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: %s %s", ErrUnavailable, path, resp.Status)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return nil, err
	}
	return resp.Header, nil
}

func pageMeta(h http.Header) (totalPages, totalCount int) {
	totalPages, _ = strconv.Atoi(h.Get("X-Total-Pages"))
	totalCount, _ = strconv.Atoi(h.Get("X-Total-Count"))
	return totalPages, totalCount
}

func (c *Client) ListTickets(ctx context.Context, page, perPage int) (Page[models.Ticket], error) {
	var body struct {
		Tickets []models.Ticket `json:"tickets"`
	}
	path := fmt.Sprintf("/api/v2/tickets?page=%d&per_page=%d&include=stats", page, perPage)
	headers, err := c.get(ctx, path, &body)
	if err != nil {
		return Page[models.Ticket]{}, err
	}
	totalPages, totalCount := pageMeta(headers)
	return Page[models.Ticket]{Records: body.Tickets, TotalPages: totalPages, TotalCount: totalCount}, nil
}

func (c *Client) ListAgents(ctx context.Context, page, perPage int) (Page[models.Agent], error) {
	var body struct {
		Agents []models.Agent `json:"agents"`
	}
	headers, err := c.get(ctx, fmt.Sprintf("/api/v2/agents?page=%d&per_page=%d", page, perPage), &body)
	if err != nil {
		return Page[models.Agent]{}, err
	}
	totalPages, totalCount := pageMeta(headers)
	return Page[models.Agent]{Records: body.Agents, TotalPages: totalPages, TotalCount: totalCount}, nil
}

func (c *Client) ListDepartments(ctx context.Context, page, perPage int) (Page[models.Department], error) {
	var body struct {
		Departments []models.Department `json:"departments"`
	}
	headers, err := c.get(ctx, fmt.Sprintf("/api/v2/departments?page=%d&per_page=%d", page, perPage), &body)
	if err != nil {
		return Page[models.Department]{}, err
	}
	totalPages, totalCount := pageMeta(headers)
	return Page[models.Department]{Records: body.Departments, TotalPages: totalPages, TotalCount: totalCount}, nil
}

func (c *Client) ListGroups(ctx context.Context, page, perPage int) (Page[models.Group], error) {
	var body struct {
		Groups []models.Group `json:"groups"`
	}
	headers, err := c.get(ctx, fmt.Sprintf("/api/v2/groups?page=%d&per_page=%d", page, perPage), &body)
	if err != nil {
		return Page[models.Group]{}, err
	}
	totalPages, totalCount := pageMeta(headers)
	return Page[models.Group]{Records: body.Groups, TotalPages: totalPages, TotalCount: totalCount}, nil
}

func (c *Client) ListContacts(ctx context.Context, page, perPage int) (Page[models.Contact], error) {
	var body struct {
		Requesters []models.Contact `json:"requesters"`
	}
	headers, err := c.get(ctx, fmt.Sprintf("/api/v2/requesters?page=%d&per_page=%d", page, perPage), &body)
	if err != nil {
		return Page[models.Contact]{}, err
	}
	totalPages, totalCount := pageMeta(headers)
	return Page[models.Contact]{Records: body.Requesters, TotalPages: totalPages, TotalCount: totalCount}, nil
}

func (c *Client) ListConversations(ctx context.Context, ticketID int64) ([]models.Conversation, error) {
	var body struct {
		Conversations []models.Conversation `json:"conversations"`
	}
	_, err := c.get(ctx, fmt.Sprintf("/api/v2/tickets/%d/conversations", ticketID), &body)
	if err != nil {
		return nil, err
	}
	return body.Conversations, nil
}
