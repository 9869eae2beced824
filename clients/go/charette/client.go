// Package charette provides a client for the Charette REST API.
package charette

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

	"github.com/eldtechnologies/charette/internal/models"
	"github.com/eldtechnologies/charette/internal/phase"
)

// DefaultURL is used when no base URL is given.
const DefaultURL = "http://localhost:8080"

// ErrForbidden matches 403 responses.
var ErrForbidden = errors.New("forbidden")

// APIError is a non-2xx response from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("charette error %d: %s", e.Status, e.Message)
}

// Is lets callers match server errors against the model sentinels, so
// errors.Is(err, models.ErrNotFound) works the same over HTTP as in process.
func (e *APIError) Is(target error) bool {
	switch e.Status {
	case http.StatusNotFound:
		return target == models.ErrNotFound
	case http.StatusForbidden:
		return target == ErrForbidden
	case http.StatusBadRequest:
		return models.IsValidation(target) && strings.HasPrefix(e.Message, target.Error())
	}
	return false
}

// Client is a Charette API client.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client

	// UserName and Role identify the caller. Role is required for phase changes.
	UserName string
	Role     models.Role
}

// NewClient creates a new Charette client.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultURL
	}
	return &Client{
		BaseURL:    strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// doRequest performs an HTTP request, encoding in and decoding the response into out.
func (c *Client) doRequest(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.UserName != "" {
		req.Header.Set("X-Charette-User", c.UserName)
	}
	if c.Role != "" {
		req.Header.Set("X-Charette-Role", string(c.Role))
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode >= 400 {
		var errResp struct {
			Error string `json:"error"`
		}
		json.Unmarshal(respBody, &errResp)
		if errResp.Error == "" {
			errResp.Error = http.StatusText(resp.StatusCode)
		}
		return &APIError{Status: resp.StatusCode, Message: errResp.Error}
	}

	if out == nil || len(respBody) == 0 {
		return nil
	}
	return json.Unmarshal(respBody, out)
}

func charettePath(id string, parts ...string) string {
	p := "/api/charettes/" + url.PathEscape(id)
	for _, part := range parts {
		p += "/" + url.PathEscape(part)
	}
	return p
}

// ListSessions lists every charette.
func (c *Client) ListSessions(ctx context.Context) ([]models.Session, error) {
	var sessions []models.Session
	if err := c.doRequest(ctx, http.MethodGet, "/api/charettes", nil, &sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}

// CreateSession creates a charette.
func (c *Client) CreateSession(ctx context.Context, fields models.SessionFields) (*models.Session, error) {
	var sess models.Session
	if err := c.doRequest(ctx, http.MethodPost, "/api/charettes", fields, &sess); err != nil {
		return nil, err
	}
	return &sess, nil
}

// GetSession fetches a charette with its participants and rooms.
func (c *Client) GetSession(ctx context.Context, id string) (*models.Session, error) {
	var sess models.Session
	if err := c.doRequest(ctx, http.MethodGet, charettePath(id), nil, &sess); err != nil {
		return nil, err
	}
	return &sess, nil
}

// UpdateSession applies a partial update.
func (c *Client) UpdateSession(ctx context.Context, id string, patch models.SessionPatch) error {
	return c.doRequest(ctx, http.MethodPatch, charettePath(id), patch, nil)
}

// DeleteSession removes a charette.
func (c *Client) DeleteSession(ctx context.Context, id string) error {
	return c.doRequest(ctx, http.MethodDelete, charettePath(id), nil, nil)
}

// AddParticipant registers a user on a charette.
func (c *Client) AddParticipant(ctx context.Context, sessionID, userName string, role models.Role) error {
	req := struct {
		UserName string      `json:"userName"`
		Role     models.Role `json:"role"`
	}{userName, role}
	return c.doRequest(ctx, http.MethodPost, charettePath(sessionID, "participants"), req, nil)
}

// ListMessages fetches the messages of a room newer than since (Unix ms).
func (c *Client) ListMessages(ctx context.Context, sessionID, roomID string, since int64) ([]models.Message, error) {
	path := charettePath(sessionID, "rooms", roomID, "messages")
	if since > 0 {
		path += "?since=" + strconv.FormatInt(since, 10)
	}

	var messages []models.Message
	if err := c.doRequest(ctx, http.MethodGet, path, nil, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

// SendMessage posts a message to a room.
func (c *Client) SendMessage(ctx context.Context, sessionID, roomID, userName string, role models.Role, text string) (*models.Message, error) {
	req := struct {
		UserName string      `json:"userName"`
		Role     models.Role `json:"role"`
		Text     string      `json:"text"`
	}{userName, role, text}

	var msg models.Message
	if err := c.doRequest(ctx, http.MethodPost, charettePath(sessionID, "rooms", roomID, "messages"), req, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// CreateBreakoutRooms creates count rooms sharing questions.
func (c *Client) CreateBreakoutRooms(ctx context.Context, sessionID string, count int, questions []string) ([]models.BreakoutRoom, error) {
	req := struct {
		Count     int      `json:"count"`
		Questions []string `json:"questions"`
	}{count, questions}

	var rooms []models.BreakoutRoom
	if err := c.doRequest(ctx, http.MethodPost, charettePath(sessionID, "breakout-rooms"), req, &rooms); err != nil {
		return nil, err
	}
	return rooms, nil
}

// JoinRoom moves a user into a breakout room.
func (c *Client) JoinRoom(ctx context.Context, sessionID, roomID, userName string) error {
	return c.membership(ctx, sessionID, roomID, userName, "join")
}

// LeaveRoom removes a user from a breakout room.
func (c *Client) LeaveRoom(ctx context.Context, sessionID, roomID, userName string) error {
	return c.membership(ctx, sessionID, roomID, userName, "leave")
}

func (c *Client) membership(ctx context.Context, sessionID, roomID, userName, op string) error {
	req := struct {
		UserName string `json:"userName"`
	}{userName}
	return c.doRequest(ctx, http.MethodPost, charettePath(sessionID, "breakout-rooms", roomID, op), req, nil)
}

// AdvancePhase moves the charette one phase. The client's Role must be a
// facilitating role or the server answers 403.
func (c *Client) AdvancePhase(ctx context.Context, sessionID string, d phase.Direction) (int, error) {
	req := struct {
		Direction phase.Direction `json:"direction"`
	}{d}

	var resp struct {
		CurrentPhase int `json:"currentPhase"`
	}
	if err := c.doRequest(ctx, http.MethodPost, charettePath(sessionID, "phase"), req, &resp); err != nil {
		return 0, err
	}
	return resp.CurrentPhase, nil
}

// Analyze requests an analysis of a room's discussion.
func (c *Client) Analyze(ctx context.Context, sessionID, roomID string) (*models.AnalysisResult, error) {
	var result models.AnalysisResult
	if err := c.doRequest(ctx, http.MethodPost, charettePath(sessionID, "rooms", roomID, "analysis"), nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// SearchResult is a message matching a search.
type SearchResult struct {
	ID        string `json:"id"`
	RoomID    string `json:"roomId"`
	RoomName  string `json:"roomName"`
	UserName  string `json:"userName"`
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"`
	Score     int    `json:"score"`
}

// SearchResponse is the response from searching a charette.
type SearchResponse struct {
	Query   string         `json:"query"`
	Results []SearchResult `json:"results"`
	Total   int            `json:"total"`
}

// Search finds messages in any room of a charette.
func (c *Client) Search(ctx context.Context, sessionID, query string, limit int) (*SearchResponse, error) {
	path := charettePath(sessionID, "search") + "?q=" + url.QueryEscape(query)
	if limit > 0 {
		path += "&limit=" + strconv.Itoa(limit)
	}

	var resp SearchResponse
	if err := c.doRequest(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// HealthResponse is the health check response.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Checks  map[string]struct {
		Status  string `json:"status"`
		Latency string `json:"latency,omitempty"`
		Message string `json:"message,omitempty"`
	} `json:"checks"`
}

// Health checks server health. A degraded server answers 503, which is
// returned as an *APIError.
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	var resp HealthResponse
	if err := c.doRequest(ctx, http.MethodGet, "/health", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Info is the API info response.
type Info struct {
	Name           string   `json:"name"`
	Version        string   `json:"version"`
	Phases         []string `json:"phases"`
	PollIntervalMS int64    `json:"pollIntervalMs"`
}

// PollInterval returns the advertised polling cadence, or zero.
func (i *Info) PollInterval() time.Duration {
	return time.Duration(i.PollIntervalMS) * time.Millisecond
}

// Info fetches the API info.
func (c *Client) Info(ctx context.Context) (*Info, error) {
	var info Info
	if err := c.doRequest(ctx, http.MethodGet, "/api", nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}
