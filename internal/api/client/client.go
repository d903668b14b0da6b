package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"time"

	"github.com/siteeye/internal/models"
)

type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func NewClient() (*Client, error) {
	baseURL := os.Getenv("SITEEYE_API_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}

	token := os.Getenv("SITEEYE_TOKEN")
	if token == "" {
		return nil, fmt.Errorf("SITEEYE_TOKEN environment variable is not set")
	}

	return &Client{
		baseURL: baseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}, nil
}

func (c *Client) ListAlerts(priority string, unreadOnly bool) ([]models.Alert, error) {
	query := url.Values{}
	if priority != "" {
		query.Set("priority", priority)
	}
	if unreadOnly {
		query.Set("unread", "true")
	}

	var alerts []models.Alert
	if err := c.get("/api/v1/alerts?"+query.Encode(), &alerts); err != nil {
		return nil, err
	}
	return alerts, nil
}

func (c *Client) AcknowledgeAlert(alertID string) (*models.Alert, error) {
	var alert models.Alert
	if err := c.put(fmt.Sprintf("/api/v1/alerts/%s/acknowledge", alertID), nil, &alert); err != nil {
		return nil, err
	}
	return &alert, nil
}

func (c *Client) ListAlertEscalations(alertID string) ([]models.EscalationEvent, error) {
	var events []models.EscalationEvent
	if err := c.get(fmt.Sprintf("/api/v1/alerts/%s/escalations", alertID), &events); err != nil {
		return nil, err
	}
	return events, nil
}

func (c *Client) ListEscalations() ([]models.EscalationEvent, error) {
	var events []models.EscalationEvent
	if err := c.get("/api/v1/escalations", &events); err != nil {
		return nil, err
	}
	return events, nil
}

func (c *Client) AcknowledgeEscalation(escalationID string) (*models.EscalationEvent, error) {
	var event models.EscalationEvent
	if err := c.put(fmt.Sprintf("/api/v1/escalations/%s/acknowledge", escalationID), nil, &event); err != nil {
		return nil, err
	}
	return &event, nil
}

func (c *Client) ResolveEscalation(escalationID, resolution string) (*models.EscalationEvent, error) {
	data := map[string]string{"resolution": resolution}
	var event models.EscalationEvent
	if err := c.put(fmt.Sprintf("/api/v1/escalations/%s/resolve", escalationID), data, &event); err != nil {
		return nil, err
	}
	return &event, nil
}

func (c *Client) CheckIn(projectID, workerID uint, lat, lon float64) (*models.AttendanceRecord, error) {
	return c.attendance("/api/v1/attendance/checkin", projectID, workerID, lat, lon)
}

func (c *Client) CheckOut(projectID, workerID uint, lat, lon float64) (*models.AttendanceRecord, error) {
	return c.attendance("/api/v1/attendance/checkout", projectID, workerID, lat, lon)
}

func (c *Client) attendance(endpoint string, projectID, workerID uint, lat, lon float64) (*models.AttendanceRecord, error) {
	data := map[string]interface{}{
		"project_id": projectID,
		"worker_id":  workerID,
		"latitude":   lat,
		"longitude":  lon,
	}
	var record models.AttendanceRecord
	if err := c.post(endpoint, data, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

func (c *Client) get(endpoint string, v interface{}) error {
	resp, err := c.doRequest(http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return json.NewDecoder(resp.Body).Decode(v)
}

func (c *Client) post(endpoint string, data, v interface{}) error {
	return c.send(http.MethodPost, endpoint, data, v)
}

func (c *Client) put(endpoint string, data, v interface{}) error {
	return c.send(http.MethodPut, endpoint, data, v)
}

func (c *Client) send(method, endpoint string, data, v interface{}) error {
	var body io.Reader
	if data != nil {
		jsonData, err := json.Marshal(data)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		body = bytes.NewReader(jsonData)
	}

	resp, err := c.doRequest(method, endpoint, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if v != nil {
		return json.NewDecoder(resp.Body).Decode(v)
	}
	return nil
}

func (c *Client) doRequest(method, endpoint string, body io.Reader) (*http.Response, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	parsed, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint: %w", err)
	}
	u.Path = path.Join(u.Path, parsed.Path)
	u.RawQuery = parsed.RawQuery

	req, err := http.NewRequest(method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		var errResp struct {
			Error string `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&errResp); err == nil && errResp.Error != "" {
			return nil, fmt.Errorf("API error: %s", errResp.Error)
		}
		return nil, fmt.Errorf("request failed with status %d", resp.StatusCode)
	}

	return resp, nil
}
