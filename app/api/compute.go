package api

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"matrixdesk/app/mtx"
)

type matrixNameRequest struct {
	MatrixName string `json:"matrix_name"`
}

type decomposeByNameRequest struct {
	MatrixName string    `json:"matrix_name"`
	Algorithm  Algorithm `json:"algorithm"`
}

type decomposeGridRequest struct {
	InputMatrix *mtx.Grid `json:"input_matrix"`
	Algorithm   Algorithm `json:"algorithm"`
}

func requireName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", &ValidationError{Field: "matrix_name", Message: "is required"}
	}
	return name, nil
}

// Invert asks the service to invert a stored matrix. A singular matrix comes
// back as a ServerError carrying the service's detail.
func (c *Client) Invert(ctx context.Context, matrixName string) (*InverseResult, error) {
	name, err := requireName(matrixName)
	if err != nil {
		return nil, err
	}
	resp, err := c.doJSON(ctx, http.MethodPost, "/calculate_invertible_matrix_by_matrix_name", matrixNameRequest{MatrixName: name})
	if err != nil {
		return nil, err
	}
	obj, ok := object(resp.doc)
	if !ok {
		return nil, missingField(resp.status, "inverse_matrix")
	}
	inverse, err := requireGrid(resp.status, obj, "inverse_matrix")
	if err != nil {
		return nil, err
	}
	original, err := requireGrid(resp.status, obj, "original_matrix")
	if err != nil {
		return nil, err
	}
	return &InverseResult{Name: name, Original: original, Inverse: inverse}, nil
}

// Decompose asks the workers to decompose a stored matrix. The service
// answers either with a single result object or with one object per worker.
func (c *Client) Decompose(ctx context.Context, matrixName string, algorithm Algorithm) ([]WorkerResult, error) {
	name, err := requireName(matrixName)
	if err != nil {
		return nil, err
	}
	if _, err := ParseAlgorithm(string(algorithm)); err != nil {
		return nil, err
	}
	resp, err := c.doJSON(ctx, http.MethodPost, "/decompose_matrix_by_matrix_name", decomposeByNameRequest{MatrixName: name, Algorithm: algorithm})
	if err != nil {
		return nil, err
	}
	return parseDecomposition(resp, algorithm)
}

// DecomposeGrid sends an already loaded square grid to a worker.
func (c *Client) DecomposeGrid(ctx context.Context, grid *mtx.Grid, algorithm Algorithm) (*WorkerResult, error) {
	if grid == nil {
		return nil, &ValidationError{Field: "input_matrix", Message: "is required"}
	}
	if rows, cols := grid.Dims(); rows == 0 || rows != cols {
		return nil, &ValidationError{Field: "input_matrix", Message: fmt.Sprintf("must be a non-empty square matrix, got %dx%d", rows, cols)}
	}
	if _, err := ParseAlgorithm(string(algorithm)); err != nil {
		return nil, err
	}
	resp, err := c.doJSON(ctx, http.MethodPost, "/decompose_matrix", decomposeGridRequest{InputMatrix: grid, Algorithm: algorithm})
	if err != nil {
		return nil, err
	}
	obj, ok := object(resp.doc)
	if !ok {
		return nil, missingField(resp.status, "result")
	}
	w, err := parseWorker("worker", obj, algorithm)
	if err != nil {
		return nil, workerError(resp.status, "worker", err)
	}
	return &w, nil
}

func parseDecomposition(resp *response, requested Algorithm) ([]WorkerResult, error) {
	obj, ok := object(resp.doc)
	if !ok {
		return nil, missingField(resp.status, "result")
	}
	if _, flat := obj["result"]; flat {
		w, err := parseWorker("server", obj, requested)
		if err != nil {
			return nil, workerError(resp.status, "server", err)
		}
		return []WorkerResult{w}, nil
	}

	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var out []WorkerResult
	for _, k := range keys {
		wobj, ok := object(obj[k])
		if !ok {
			continue
		}
		// Entries without a status are not worker reports.
		if s, _ := stringValue(wobj["status"]); s == "" {
			continue
		}
		w, err := parseWorker(k, wobj, requested)
		if err != nil {
			// A malformed entry fails only its own worker.
			w.Status = StatusError
			w.Message = err.Error()
			w.Blocks = nil
		}
		out = append(out, w)
	}
	if len(out) == 0 {
		return nil, missingField(resp.status, "result")
	}
	return out, nil
}

func workerError(status int, name string, err error) error {
	return &ServerError{StatusCode: status, Detail: fmt.Sprintf("worker %s: %v", name, err)}
}

// parseWorker reads one worker report. Any status other than success is a
// failed worker, not a malformed response.
func parseWorker(name string, obj map[string]any, requested Algorithm) (WorkerResult, error) {
	w := WorkerResult{Worker: name, Algorithm: requested}
	w.Status, _ = stringValue(obj["status"])
	if a, ok := stringValue(obj["algorithm"]); ok && a != "" {
		w.Algorithm = Algorithm(strings.ToLower(a))
	}
	w.TimeTaken, _ = numberValue(obj["time_taken"])
	w.Message, _ = stringValue(obj["message"])

	switch w.Status {
	case "", StatusSuccess:
	case StatusError:
		if w.Message == "" {
			w.Message = "unknown error"
		}
		return w, nil
	default:
		if w.Message == "" {
			w.Message = "worker reported status " + w.Status
		}
		return w, nil
	}

	blocks, ok := obj["result"].([]any)
	if !ok {
		return w, fmt.Errorf("response is missing %q", "result")
	}
	for i, b := range blocks {
		g, err := gridValue(b)
		if err != nil {
			return w, fmt.Errorf("malformed block %d: %v", i, err)
		}
		w.Blocks = append(w.Blocks, g)
	}
	if in, ok := obj["input_matrix"]; ok && in != nil {
		if g, err := gridValue(in); err == nil {
			w.Input = g
		}
	}
	if w.Status == "" {
		w.Status = StatusSuccess
	}
	return w, nil
}

// Status reports service health.
func (c *Client) Status(ctx context.Context) (*ServiceStatus, error) {
	resp, err := c.doJSON(ctx, http.MethodGet, "/status", nil)
	if err != nil {
		return nil, err
	}
	obj, ok := object(resp.doc)
	if !ok {
		return nil, missingField(resp.status, "status")
	}
	st := &ServiceStatus{Components: map[string]bool{}, Details: map[string]string{}}
	st.Status, ok = stringValue(obj["status"])
	if !ok {
		return nil, missingField(resp.status, "status")
	}
	for k, v := range obj {
		if k == "status" {
			continue
		}
		switch t := v.(type) {
		case bool:
			st.Components[k] = t
		default:
			if s, ok := stringValue(t); ok {
				st.Details[k] = s
			}
		}
	}
	return st, nil
}

// Healthy reports whether the service is running and every component check passed.
func (s *ServiceStatus) Healthy() bool {
	if s == nil || s.Status != "running" {
		return false
	}
	for _, ok := range s.Components {
		if !ok {
			return false
		}
	}
	return true
}
