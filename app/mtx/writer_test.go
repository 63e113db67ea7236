package mtx

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"matrixdesk/shared/types"
)

func TestWriteArrayRoundTrip(t *testing.T) {
	const rows, cols = 3, 4
	cells := make([][]float64, rows)
	for i := range cells {
		cells[i] = make([]float64, cols)
		for j := range cells[i] {
			cells[i][j] = float64(i*cols + j)
		}
	}
	g, err := GridFromRows(cells)
	if err != nil {
		t.Fatal(err)
	}

	for _, field := range []Field{FieldReal, FieldInteger} {
		var buf bytes.Buffer
		if err := WriteArray(&buf, g, field); err != nil {
			t.Fatalf("write %s: %v", field, err)
		}
		res, err := Parse(context.Background(), &buf, types.LoadOptions{ElementPolicy: types.ElementPolicyStrict})
		if err != nil {
			t.Fatalf("parse %s: %v", field, err)
		}
		if res.Header.Field() != field {
			t.Errorf("field = %s, want %s", res.Header.Field(), field)
		}
		for i := 0; i < rows; i++ {
			for j := 0; j < cols; j++ {
				if got := res.Grid.At(i, j); got != float64(i*cols+j) {
					t.Errorf("%s: cell (%d,%d) = %v, want %d", field, i, j, got, i*cols+j)
				}
			}
		}
	}
}

func TestWriteArrayRejectsPattern(t *testing.T) {
	if err := WriteArray(&bytes.Buffer{}, newGrid(1, 1), FieldPattern); err == nil {
		t.Error("expected an error for a pattern field")
	}
}

func TestRandomGrid(t *testing.T) {
	opts := RandomOptions{Density: 0.5, Min: 1, Max: 25, Seed: 42}
	a, err := RandomGrid(6, 6, opts)
	if err != nil {
		t.Fatal(err)
	}
	b, _ := RandomGrid(6, 6, opts)
	if !a.Equal(b) {
		t.Error("same seed produced different grids")
	}
	for _, v := range a.RawData() {
		if v != 0 && (v < 1 || v > 25) {
			t.Errorf("value %v outside [1, 25]", v)
		}
	}

	opts.Symmetric = true
	s, err := RandomGrid(5, 5, opts)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 5; i++ {
		for j := 0; j < 5; j++ {
			if s.At(i, j) != s.At(j, i) {
				t.Fatalf("not symmetric at (%d,%d)", i, j)
			}
		}
	}

	if _, err := RandomGrid(2, 3, opts); err == nil {
		t.Error("symmetric non-square grid should fail")
	}
	if _, err := RandomGrid(2, 2, RandomOptions{Min: 5, Max: 1}); err == nil {
		t.Error("inverted range should fail")
	}
}

func TestGridJSON(t *testing.T) {
	var g Grid
	if err := json.Unmarshal([]byte(`[[1,2],[3,4]]`), &g); err != nil {
		t.Fatal(err)
	}
	if r, c := g.Dims(); r != 2 || c != 2 || g.At(1, 0) != 3 {
		t.Errorf("decoded grid = %v", g.Rows())
	}
	out, err := json.Marshal(&g)
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != `[[1,2],[3,4]]` {
		t.Errorf("encoded = %s", out)
	}
	if err := json.Unmarshal([]byte(`[[1,2],[3]]`), &g); err == nil {
		t.Error("ragged rows should fail")
	}
}
