package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/TWRT/tasksync/internal/client"
	"github.com/TWRT/tasksync/internal/models"
)

var ErrMissingTodos = errors.New("response has no todos array")

// Envelope is the body of both /pull responses and /push requests.
type Envelope struct {
	Todos models.Collection `json:"todos"`
}

type pullEnvelope struct {
	Todos *[]json.RawMessage `json:"todos"`
}

type RemoteClient struct {
	baseUrl    string
	httpClient *http.Client
}

func NewRemoteClient(baseUrl string, timeout time.Duration) *RemoteClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &RemoteClient{
		baseUrl:    strings.TrimRight(baseUrl, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

var _ client.RemoteClient = (*RemoteClient)(nil)

func (c *RemoteClient) Pull(ctx context.Context) (models.Collection, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseUrl+"/pull", nil)
	if err != nil {
		return nil, &client.NetworkError{Op: "pull", Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &client.NetworkError{Op: "pull", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &client.NetworkError{Op: "pull", Err: fmt.Errorf("read body: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &client.NetworkError{Op: "pull", StatusCode: resp.StatusCode, Err: errorMessage(body)}
	}

	var envelope pullEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, &client.NetworkError{Op: "pull", Err: fmt.Errorf("decode body: %w", err)}
	}
	if envelope.Todos == nil {
		return nil, &client.NetworkError{Op: "pull", Err: ErrMissingTodos}
	}

	tasks := make(models.Collection, 0, len(*envelope.Todos))
	for i, raw := range *envelope.Todos {
		var task models.Task
		if err := json.Unmarshal(raw, &task); err != nil {
			return nil, &client.NetworkError{Op: "pull", Err: fmt.Errorf("decode todo %d: %w", i, err)}
		}
		tasks = append(tasks, task)
	}

	return tasks, nil
}

func (c *RemoteClient) Push(ctx context.Context, tasks models.Collection) error {
	if tasks == nil {
		tasks = models.Collection{}
	}
	payload, err := json.Marshal(Envelope{Todos: tasks})
	if err != nil {
		return &client.NetworkError{Op: "push", Err: fmt.Errorf("encode body: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseUrl+"/push", bytes.NewReader(payload))
	if err != nil {
		return &client.NetworkError{Op: "push", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &client.NetworkError{Op: "push", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(resp.Body)
		return &client.NetworkError{Op: "push", StatusCode: resp.StatusCode, Err: errorMessage(body)}
	}

	io.Copy(io.Discard, resp.Body)
	return nil
}

type errorBody struct {
	Error string `json:"error"`
}

func errorMessage(body []byte) error {
	var e errorBody
	if err := json.Unmarshal(body, &e); err == nil && e.Error != "" {
		return errors.New(e.Error)
	}
	if len(body) == 0 {
		return errors.New("empty response")
	}
	return fmt.Errorf("unexpected response: %.200s", body)
}
