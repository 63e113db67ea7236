package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
)

// resolveLogin falls back to the session login when login is empty.
func (c *Client) resolveLogin(login string) (string, error) {
	if l := strings.TrimSpace(login); l != "" {
		return l, nil
	}
	if s := c.Session(); s != nil && s.Login != "" {
		return s.Login, nil
	}
	return "", &ValidationError{Field: "login", Message: "is required (log in first or pass a login)"}
}

// SaveMatrix uploads the raw file bytes as the matrix_file part of a
// multipart form, next to the owner's login.
func (c *Client) SaveMatrix(ctx context.Context, login string, file io.Reader, filename string) (*SaveResponse, error) {
	login, err := c.resolveLogin(login)
	if err != nil {
		return nil, err
	}
	filename = filepath.Base(strings.TrimSpace(filename))
	if filename == "" || filename == "." || filename == string(filepath.Separator) {
		return nil, &ValidationError{Field: "filename", Message: "is required"}
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if err := mw.WriteField("login", login); err != nil {
		return nil, fmt.Errorf("failed to write form field: %w", err)
	}
	part, err := mw.CreateFormFile("matrix_file", filename)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	n, err := io.Copy(part, file)
	if err != nil {
		return nil, fmt.Errorf("failed to read matrix file: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish form: %w", err)
	}

	resp, err := c.do(ctx, http.MethodPost, "/save_matrix", &body, mw.FormDataContentType())
	if err != nil {
		return nil, err
	}
	out := &SaveResponse{}
	if obj, ok := object(resp.doc); ok {
		out.Message, _ = stringValue(obj["message"])
		out.UserID, _ = stringValue(obj["user_id"])
	}
	c.log.Info("matrix uploaded", "login", login, "file", filename, "bytes", n)
	return out, nil
}

type loginOnlyRequest struct {
	Login string `json:"login"`
}

// ListMatrices returns the names of the matrices stored for login. The
// service answers 404 when the user has none; that is an empty list here.
func (c *Client) ListMatrices(ctx context.Context, login string) ([]StoredMatrix, error) {
	login, err := c.resolveLogin(login)
	if err != nil {
		return nil, err
	}
	resp, err := c.doJSON(ctx, http.MethodPost, "/get_matrix_names_by_user_login", loginOnlyRequest{Login: login})
	if err != nil {
		var se *ServerError
		if errors.As(err, &se) && se.StatusCode == http.StatusNotFound {
			return []StoredMatrix{}, nil
		}
		return nil, err
	}
	obj, ok := object(resp.doc)
	if !ok {
		return nil, missingField(resp.status, "matrices")
	}
	items, ok := obj["matrices"].([]any)
	if !ok {
		return nil, missingField(resp.status, "matrices")
	}

	out := make([]StoredMatrix, 0, len(items))
	for _, item := range items {
		switch t := item.(type) {
		case string:
			out = append(out, StoredMatrix{Filename: t})
		case map[string]any:
			m := StoredMatrix{}
			m.Filename, _ = stringValue(t["filename"])
			if m.Filename == "" {
				m.Filename, _ = stringValue(t["name"])
			}
			m.FileID, _ = stringValue(t["file_id"])
			if m.Filename != "" {
				out = append(out, m)
			}
		}
	}
	return out, nil
}
