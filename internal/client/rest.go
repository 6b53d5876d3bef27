package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"canvas-backend/internal/model"
)

// CanvasStore loads and persists canvas state. The HTTP implementation
// talks to the REST API; tests substitute an in-memory one.
type CanvasStore interface {
	Load(ctx context.Context, canvasID int64) (model.CanvasState, error)
	Save(ctx context.Context, canvasID int64, state model.CanvasState) error
}

// HTTPCanvasStore CanvasStore backed by the canvas REST API
type HTTPCanvasStore struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewHTTPCanvasStore creates a store for the API at baseURL (no trailing
// slash), authenticating with the given bearer token
func NewHTTPCanvasStore(baseURL, token string) *HTTPCanvasStore {
	return &HTTPCanvasStore{
		baseURL: baseURL,
		token:   token,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

// Load fetches the full canvas state
func (s *HTTPCanvasStore) Load(ctx context.Context, canvasID int64) (model.CanvasState, error) {
	url := fmt.Sprintf("%s/api/v1/canvas/%d/load", s.baseURL, canvasID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return model.CanvasState{}, err
	}
	s.authorize(req)

	resp, err := s.client.Do(req)
	if err != nil {
		return model.CanvasState{}, fmt.Errorf("canvas load failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return model.CanvasState{}, apiError("load", resp)
	}

	var state model.CanvasState
	if err := json.NewDecoder(resp.Body).Decode(&state); err != nil {
		return model.CanvasState{}, fmt.Errorf("canvas load failed: %w", err)
	}
	return state, nil
}

// Save writes the full canvas state
func (s *HTTPCanvasStore) Save(ctx context.Context, canvasID int64, state model.CanvasState) error {
	url := fmt.Sprintf("%s/api/v1/canvas/%d/save", s.baseURL, canvasID)

	body, err := json.Marshal(struct {
		Objects  []model.CanvasObject      `json:"objects"`
		Areas    []model.CollaborationArea `json:"areas"`
		Viewport *model.Viewport           `json:"viewport"`
	}{
		Objects:  state.Objects,
		Areas:    state.Areas,
		Viewport: &state.Viewport,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	s.authorize(req)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("canvas save failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return apiError("save", resp)
	}
	return nil
}

func (s *HTTPCanvasStore) authorize(req *http.Request) {
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}
}

func apiError(op string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return fmt.Errorf("canvas %s failed: status %d: %s", op, resp.StatusCode, bytes.TrimSpace(body))
}
