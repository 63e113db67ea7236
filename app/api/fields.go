package api

import (
	"fmt"
	"strconv"

	"matrixdesk/app/mtx"
)

// Helpers over the generic trees oj.Parse produces: objects are
// map[string]any, arrays []any, numbers int64 or float64.

func object(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	return m, ok
}

func stringValue(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case int64:
		return strconv.FormatInt(t, 10), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	default:
		return "", false
	}
}

func numberValue(v any) (float64, bool) {
	switch t := v.(type) {
	case int64:
		return float64(t), true
	case float64:
		return t, true
	case int:
		return float64(t), true
	default:
		return 0, false
	}
}

// gridValue converts an array of numeric rows to a grid.
func gridValue(v any) (*mtx.Grid, error) {
	rowsIn, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("expected an array of rows, got %T", v)
	}
	rows := make([][]float64, len(rowsIn))
	for i, r := range rowsIn {
		cells, ok := r.([]any)
		if !ok {
			return nil, fmt.Errorf("row %d: expected an array, got %T", i, r)
		}
		row := make([]float64, len(cells))
		for j, cell := range cells {
			f, ok := numberValue(cell)
			if !ok {
				return nil, fmt.Errorf("row %d column %d: expected a number, got %T", i, j, cell)
			}
			row[j] = f
		}
		rows[i] = row
	}
	return mtx.GridFromRows(rows)
}

// requireGrid reads key from obj as a grid, reporting a missing or
// malformed value as a ServerError.
func requireGrid(status int, obj map[string]any, key string) (*mtx.Grid, error) {
	v, ok := obj[key]
	if !ok || v == nil {
		return nil, missingField(status, key)
	}
	g, err := gridValue(v)
	if err != nil {
		return nil, &ServerError{StatusCode: status, Detail: fmt.Sprintf("malformed %q: %v", key, err)}
	}
	return g, nil
}
