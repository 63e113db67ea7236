package fileloader

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/ulikunitz/xz"

	"matrixdesk/app/mtx"
	"matrixdesk/shared/types"
)

const sampleMatrix = "%%MatrixMarket matrix array real general\n2 2\n1.0\n2.0\n3.0\n4.0\n"

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("Failed to create dir: %v", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", name, err)
	}
	return path
}

func gzipBytes(t *testing.T, s string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write([]byte(s)); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func xzBytes(t *testing.T, s string) []byte {
	t.Helper()
	var buf bytes.Buffer
	xw, err := xz.NewWriter(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := xw.Write([]byte(s)); err != nil {
		t.Fatal(err)
	}
	if err := xw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestDetectFileTypeAndCompression(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name     string
		data     []byte
		wantType FileType
		wantComp CompressionType
	}{
		{"a.mtx", []byte(sampleMatrix), FileTypeMatrixMarket, CompressionNone},
		{"b.MM", []byte(sampleMatrix), FileTypeMatrixMarket, CompressionNone},
		{"c.mtx.gz", gzipBytes(t, sampleMatrix), FileTypeMatrixMarket, CompressionGzip},
		{"d.mtx.xz", xzBytes(t, sampleMatrix), FileTypeMatrixMarket, CompressionXZ},
		{"e.bin", gzipBytes(t, sampleMatrix), FileTypeMatrixMarket, CompressionGzip},
		{"f.txt", []byte(sampleMatrix), FileTypeMatrixMarket, CompressionNone},
		{"g.txt", []byte("hello\n"), FileTypeUnknown, CompressionNone},
		{"h.dat", []byte("BZh91AY"), FileTypeMatrixMarket, CompressionBzip2},
		{"i.txt", []byte("\ufeff" + sampleMatrix), FileTypeMatrixMarket, CompressionNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, dir, tt.name, tt.data)
			gotType, gotComp := DetectFileTypeAndCompression(path)
			if gotType != tt.wantType || gotComp != tt.wantComp {
				t.Errorf("got %s/%s, want %s/%s", gotType, gotComp, tt.wantType, tt.wantComp)
			}
		})
	}
}

func TestGetUncompressedExtension(t *testing.T) {
	cases := map[string]string{
		"data.mtx.gz":    ".mtx",
		"data.MM.bz2":    ".mm",
		"data.mtx":       ".mtx",
		"noextension":    "",
		"archive.tar.xz": ".tar",
	}
	for in, want := range cases {
		if got := GetUncompressedExtension(in); got != want {
			t.Errorf("GetUncompressedExtension(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestHashFile(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.mtx", []byte(sampleMatrix))
	b := writeFile(t, dir, "b.mtx", []byte(sampleMatrix))
	c := writeFile(t, dir, "c.mtx", []byte(sampleMatrix+"% trailing\n"))

	ha, err := HashFile(a)
	if err != nil {
		t.Fatalf("HashFile failed: %v", err)
	}
	hb, _ := HashFile(b)
	hc, _ := HashFile(c)
	if ha != hb {
		t.Error("identical content hashed differently")
	}
	if ha == hc {
		t.Error("different content hashed the same")
	}
	if len(ha) != 64 {
		t.Errorf("hash length = %d, want 64 hex chars", len(ha))
	}

	if _, err := HashReaderWithKey(strings.NewReader("x"), []byte("short")); err == nil {
		t.Error("expected an error for a short key")
	}
	if _, err := HashFile(filepath.Join(dir, "missing.mtx")); !errors.Is(err, ErrFileUnreadable) {
		t.Errorf("err = %v, want ErrFileUnreadable", err)
	}
}

func TestRawMatrixFileHandles(t *testing.T) {
	dir := t.TempDir()
	raw := gzipBytes(t, sampleMatrix)
	path := writeFile(t, dir, "m.mtx.gz", raw)

	f, err := NewRawMatrixFile(path)
	if err != nil {
		t.Fatalf("NewRawMatrixFile failed: %v", err)
	}
	if f.Name != "m.mtx.gz" || f.Size != int64(len(raw)) || f.Compression != CompressionGzip {
		t.Errorf("unexpected handle: %+v", f)
	}

	// Two handles read independently; Open yields the bytes as stored.
	r1, err := f.Open()
	if err != nil {
		t.Fatal(err)
	}
	defer r1.Close()
	r2, err := f.OpenDecoded()
	if err != nil {
		t.Fatal(err)
	}
	defer r2.Close()

	decoded, err := io.ReadAll(r2)
	if err != nil {
		t.Fatal(err)
	}
	stored, err := io.ReadAll(r1)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(stored, raw) {
		t.Error("Open did not return the raw bytes")
	}
	if string(decoded) != sampleMatrix {
		t.Errorf("OpenDecoded = %q", decoded)
	}
}

func TestNewRawMatrixFileErrors(t *testing.T) {
	dir := t.TempDir()
	for _, path := range []string{dir, filepath.Join(dir, "nope.mtx")} {
		_, err := NewRawMatrixFile(path)
		var fu *FileUnreadableError
		if !errors.As(err, &fu) || !errors.Is(err, ErrFileUnreadable) {
			t.Errorf("%s: err = %v, want FileUnreadableError", path, err)
		}
	}
}

func TestReadMatrix(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"plain.mtx", "packed.mtx.gz", "packed.mtx.xz"} {
		data := []byte(sampleMatrix)
		switch {
		case strings.HasSuffix(name, ".gz"):
			data = gzipBytes(t, sampleMatrix)
		case strings.HasSuffix(name, ".xz"):
			data = xzBytes(t, sampleMatrix)
		}
		f, err := NewRawMatrixFile(writeFile(t, dir, name, data))
		if err != nil {
			t.Fatal(err)
		}

		res, err := ReadMatrix(context.Background(), f, types.DefaultLoadOptions(), nil)
		if err != nil {
			t.Fatalf("%s: ReadMatrix failed: %v", name, err)
		}
		if got := res.Grid.Rows(); !reflect.DeepEqual(got, [][]float64{{1, 2}, {3, 4}}) {
			t.Errorf("%s: grid = %v", name, got)
		}
	}
}

func TestReadMatrixErrors(t *testing.T) {
	dir := t.TempDir()

	bad, _ := NewRawMatrixFile(writeFile(t, dir, "bad.mtx", []byte("%%MatrixMarket matrix array real general\n3\n")))
	if _, err := ReadMatrix(context.Background(), bad, types.DefaultLoadOptions(), nil); !errors.Is(err, mtx.ErrMalformedHeader) {
		t.Errorf("err = %v, want ErrMalformedHeader", err)
	}

	// A .gz name over plain text: the gzip header check fails.
	fake, _ := NewRawMatrixFile(writeFile(t, dir, "fake.mtx.gz", []byte(sampleMatrix)))
	_, err := ReadMatrix(context.Background(), fake, types.DefaultLoadOptions(), nil)
	var fu *FileUnreadableError
	if !errors.As(err, &fu) || fu.Op != "decompress" {
		t.Errorf("err = %v, want a decompress failure", err)
	}
}

func TestReadMatrixStreamSniffsCompression(t *testing.T) {
	res, err := ReadMatrixStream(context.Background(), "stdin", bytes.NewReader(gzipBytes(t, sampleMatrix)), types.DefaultLoadOptions(), nil)
	if err != nil {
		t.Fatalf("ReadMatrixStream failed: %v", err)
	}
	if res.Grid.At(1, 1) != 4 {
		t.Errorf("grid = %v", res.Grid.Rows())
	}

	res, err = ReadMatrixStream(context.Background(), "stdin", strings.NewReader("1 1\n7\n"), types.DefaultLoadOptions(), nil)
	if err != nil || res.Grid.At(0, 0) != 7 {
		t.Errorf("plain stream: %v, %v", res, err)
	}
}

func TestDiscoverMatrixFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.mtx", []byte(sampleMatrix))
	writeFile(t, dir, "nested/b.mtx.gz", gzipBytes(t, sampleMatrix))
	writeFile(t, dir, "nested/deeper/c.mm", []byte(sampleMatrix))
	writeFile(t, dir, "nested/skip_me.mtx", []byte(sampleMatrix))
	writeFile(t, dir, "notes.txt", []byte("x"))

	var progressCalls int
	info, err := DiscoverMatrixFiles(dir, DirectoryDiscoveryOptions{ExcludePatterns: []string{"skip_*"}},
		func(p DiscoveryProgress) { progressCalls++ })
	if err != nil {
		t.Fatalf("DiscoverMatrixFiles failed: %v", err)
	}

	var rel []string
	for _, f := range info.Files {
		r, _ := filepath.Rel(info.RootPath, f)
		rel = append(rel, filepath.ToSlash(r))
	}
	want := []string{"a.mtx", "nested/b.mtx.gz", "nested/deeper/c.mm"}
	if !reflect.DeepEqual(rel, want) {
		t.Errorf("files = %v, want %v", rel, want)
	}
	if info.TotalFiles != 3 || progressCalls != 3 {
		t.Errorf("total/progress = %d/%d, want 3/3", info.TotalFiles, progressCalls)
	}

	limited, err := DiscoverMatrixFiles(dir, DirectoryDiscoveryOptions{MaxFiles: 1}, nil)
	if err != nil || limited.TotalFiles != 1 {
		t.Errorf("MaxFiles not honoured: %+v, %v", limited, err)
	}

	if _, err := DiscoverMatrixFiles(dir, DirectoryDiscoveryOptions{Pattern: "[unclosed"}, nil); err == nil {
		t.Error("expected an error for an invalid pattern")
	}
}

func TestCalculateDirectoryHash(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.mtx", []byte(sampleMatrix))
	info, err := DiscoverMatrixFiles(dir, DirectoryDiscoveryOptions{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	h1, err := CalculateDirectoryHash(info)
	if err != nil {
		t.Fatal(err)
	}

	writeFile(t, dir, "b.mtx", []byte(sampleMatrix))
	info, _ = DiscoverMatrixFiles(dir, DirectoryDiscoveryOptions{}, nil)
	h2, _ := CalculateDirectoryHash(info)
	if h1 == h2 {
		t.Error("adding a file did not change the directory hash")
	}

	if _, err := CalculateDirectoryHash(&DirectoryInfo{}); err == nil {
		t.Error("expected an error for an empty directory")
	}
}
