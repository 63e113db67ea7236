package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"matrixdesk/app/mtx"
)

func newTestClient(t *testing.T, h http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(Config{BaseURL: srv.URL + "/", InstanceID: "inst-1", Timeout: 5 * time.Second})
	require.NoError(t, err)
	return c, srv
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func TestNewValidatesBaseURL(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
	_, err = New(Config{BaseURL: "localhost:8002"})
	assert.Error(t, err)

	c, err := New(Config{BaseURL: " http://localhost:8002// "})
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8002", c.BaseURL())
}

func TestHashPassword(t *testing.T) {
	// sha256("secret")
	want := "2bb80d537b1da3e38bd30361aa855686bde0eacd7162fef6a25fe97bf527a25b"
	assert.Equal(t, want, HashPassword("secret"))
	assert.Equal(t, want, HashPassword("  secret\n"))
}

func TestLoginSendsHashAndStoresSession(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "42",
		"exp": exp.Unix(),
	}).SignedString([]byte("server-key"))
	require.NoError(t, err)

	var gotHeaders http.Header
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/login":
			gotHeaders = r.Header.Clone()
			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "alice", body["login"])
			assert.Equal(t, HashPassword("secret"), body["password"])
			writeJSON(w, 200, `{"message":"Login successful","user_id":42,"access_token":"`+token+`"}`)
		case "/status":
			assert.Equal(t, "Bearer "+token, r.Header.Get("Authorization"))
			writeJSON(w, 200, `{"status":"running"}`)
		default:
			http.NotFound(w, r)
		}
	})

	s, err := c.Login(context.Background(), " alice ", "secret")
	require.NoError(t, err)
	assert.Equal(t, "alice", s.Login)
	assert.Equal(t, "42", s.UserID)
	assert.Equal(t, "42", s.Subject)
	assert.True(t, s.ExpiresAt.Equal(exp))
	assert.False(t, s.Expired())
	assert.Same(t, s, c.Session())

	assert.Equal(t, "application/json", gotHeaders.Get("Content-Type"))
	assert.Equal(t, "inst-1", gotHeaders.Get(headerClientInstance))
	assert.Len(t, gotHeaders.Get(headerRequestID), 36)
	assert.Empty(t, gotHeaders.Get("Authorization"))

	_, err = c.Status(context.Background())
	require.NoError(t, err)

	c.Logout()
	assert.Nil(t, c.Session())
}

func TestSessionExpiry(t *testing.T) {
	now := time.Now()
	s := newSession("bob", "1", "", now)
	assert.False(t, s.Expired())

	s = newSession("bob", "1", "not-a-jwt", now)
	assert.False(t, s.Expired())
	assert.True(t, s.ExpiresAt.IsZero())

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": now.Add(-time.Minute).Unix(),
	}).SignedString([]byte("k"))
	require.NoError(t, err)
	s = newSession("bob", "1", token, now)
	assert.True(t, s.Expired())

	var nilSession *Session
	assert.False(t, nilSession.Expired())
}

func TestLoginFailureDetail(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 401, `{"detail":"Ошибка входа"}`)
	})
	_, err := c.Login(context.Background(), "alice", "wrong")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrServer)

	var se *ServerError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, 401, se.StatusCode)
	assert.Equal(t, "Ошибка входа", se.Detail)
	assert.Nil(t, c.Session())
}

func TestLoginValidation(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request to %s", r.URL.Path)
	})
	_, err := c.Login(context.Background(), "", "x")
	assert.ErrorIs(t, err, ErrValidation)
	_, err = c.Login(context.Background(), "alice", "   ")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestServerErrorDetailExtraction(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"detail string", 400, `{"detail":"Matrix is not invertible"}`, "Matrix is not invertible"},
		{"fastapi list", 422, `{"detail":[{"loc":["body","login"],"msg":"field required"},{"msg":"value is not a valid email"}]}`, "field required; value is not a valid email"},
		{"message", 500, `{"message":"boom"}`, "boom"},
		{"nested error", 502, `{"error":{"message":"upstream down"}}`, "upstream down"},
		{"error string", 503, `{"error":"maintenance"}`, "maintenance"},
		{"not json", 500, `<html>oops</html>`, "request failed: internal server error"},
		{"empty", 404, ``, "request failed: not found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			se := parseServerError(tt.status, []byte(tt.body))
			assert.Equal(t, tt.status, se.StatusCode)
			assert.Equal(t, tt.want, se.Detail)
		})
	}
}

func TestNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, err := New(Config{BaseURL: url})
	require.NoError(t, err)
	_, err = c.Status(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNetwork)
	assert.NotErrorIs(t, err, ErrServer)

	var ne *NetworkError
	require.ErrorAs(t, err, &ne)
	assert.Equal(t, http.MethodGet, ne.Method)
}

func TestCanceledContext(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 200, `{"status":"running"}`)
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Status(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, err, ErrNetwork)
}

func TestRegister(t *testing.T) {
	var got map[string]string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/register", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		writeJSON(w, 200, `{"message":"Registration successful","user_id":7}`)
	})

	req := RegisterRequest{Name: "Alice", Email: "alice@example.com", Login: "alice", Password: "secret"}
	resp, err := c.Register(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "7", resp.UserID)
	assert.Equal(t, "Registration successful", resp.Message)
	assert.Equal(t, HashPassword("secret"), got["password"])
	assert.Equal(t, "alice@example.com", got["email"])
	assert.Nil(t, c.Session(), "register must not log in")
}

func TestRegisterValidation(t *testing.T) {
	valid := RegisterRequest{Name: "A", Email: "a.b+c@mail-host.co.uk", Login: "a", Password: "p"}
	require.NoError(t, valid.Validate())

	tests := []struct {
		name  string
		mut   func(r *RegisterRequest)
		field string
	}{
		{"no name", func(r *RegisterRequest) { r.Name = " " }, "name"},
		{"no email", func(r *RegisterRequest) { r.Email = "" }, "email"},
		{"no login", func(r *RegisterRequest) { r.Login = "" }, "login"},
		{"no password", func(r *RegisterRequest) { r.Password = "" }, "password"},
		{"no at", func(r *RegisterRequest) { r.Email = "alice.example.com" }, "email"},
		{"no tld", func(r *RegisterRequest) { r.Email = "alice@example" }, "email"},
		{"space", func(r *RegisterRequest) { r.Email = "al ice@example.com" }, "email"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := valid
			tt.mut(&r)
			err := r.Validate()
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)
		})
	}
}

func TestSaveMatrixMultipart(t *testing.T) {
	content := "%%MatrixMarket matrix array real general\n2 2\n1\n2\n3\n4\n"
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/save_matrix", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "alice", r.FormValue("login"))
		f, hdr, err := r.FormFile("matrix_file")
		require.NoError(t, err)
		defer f.Close()
		assert.Equal(t, "m.mtx", hdr.Filename)
		b, _ := io.ReadAll(f)
		assert.Equal(t, content, string(b))
		writeJSON(w, 200, `{"message":"Matrix saved successfully","user_id":3}`)
	})

	c.SetSession(&Session{Login: "alice"})
	resp, err := c.SaveMatrix(context.Background(), "", strings.NewReader(content), "/tmp/data/m.mtx")
	require.NoError(t, err)
	assert.Equal(t, "Matrix saved successfully", resp.Message)
	assert.Equal(t, "3", resp.UserID)
}

func TestSaveMatrixNeedsLogin(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request")
	})
	_, err := c.SaveMatrix(context.Background(), "", strings.NewReader("x"), "m.mtx")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestListMatrices(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		switch body["login"] {
		case "alice":
			writeJSON(w, 200, `{"matrices":[{"file_id":"65a1","filename":"a.mtx"},"b.mtx",{"file_id":"x"}]}`)
		case "nobody":
			writeJSON(w, 404, `{"detail":"No matrices found for this user"}`)
		default:
			writeJSON(w, 200, `{"files":[]}`)
		}
	})

	got, err := c.ListMatrices(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, []StoredMatrix{{FileID: "65a1", Filename: "a.mtx"}, {Filename: "b.mtx"}}, got)

	got, err = c.ListMatrices(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = c.ListMatrices(context.Background(), "other")
	var se *ServerError
	require.ErrorAs(t, err, &se)
	assert.Contains(t, se.Detail, "matrices")
}

func TestInvert(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		switch body["matrix_name"] {
		case "ok.mtx":
			writeJSON(w, 200, `{"original_matrix":[[4,7],[2,6]],"inverse_matrix":[[0.6,-0.7],[-0.2,0.4]]}`)
		case "singular.mtx":
			writeJSON(w, 400, `{"detail":"Singular matrix"}`)
		default:
			writeJSON(w, 200, `{"original_matrix":[[1]]}`)
		}
	})

	res, err := c.Invert(context.Background(), "ok.mtx")
	require.NoError(t, err)
	assert.Equal(t, "ok.mtx", res.Name)
	assert.Equal(t, [][]float64{{4, 7}, {2, 6}}, res.Original.Rows())
	assert.Equal(t, [][]float64{{0.6, -0.7}, {-0.2, 0.4}}, res.Inverse.Rows())

	_, err = c.Invert(context.Background(), "singular.mtx")
	var se *ServerError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, 400, se.StatusCode)
	assert.Equal(t, "Singular matrix", se.Detail)

	_, err = c.Invert(context.Background(), "partial.mtx")
	require.ErrorAs(t, err, &se)
	assert.Contains(t, se.Detail, "inverse_matrix")

	_, err = c.Invert(context.Background(), " ")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestDecomposeFlatResponse(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/decompose_matrix_by_matrix_name", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "ldl", body["algorithm"])
		writeJSON(w, 200, `{"algorithm":"ldl","time_taken":0.012,"result":[[[1,0],[0.5,1]],[[4,0],[0,2]],[[1,0.5],[0,1]]]}`)
	})

	got, err := c.Decompose(context.Background(), "s.mtx", AlgorithmLDL)
	require.NoError(t, err)
	require.Len(t, got, 1)
	w := got[0]
	assert.True(t, w.OK())
	assert.Equal(t, AlgorithmLDL, w.Algorithm)
	assert.InDelta(t, 0.012, w.TimeTaken, 1e-12)
	require.Len(t, w.Blocks, 3)
	assert.Equal(t, [][]float64{{4, 0}, {0, 2}}, w.Blocks[1].Rows())
}

func TestDecomposePerWorkerResponse(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 200, `{
			"worker_2": {"status":"error","algorithm":"lu","message":"Matrix must be square."},
			"worker_1": {"status":"success","algorithm":"lu","time_taken":1,"result":[[[1,0],[3,1]],[[1,2],[0,-2]]]},
			"note": "ignored",
			"worker_3": {"algorithm":"lu"}
		}`)
	})

	got, err := c.Decompose(context.Background(), "m.mtx", AlgorithmLU)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "worker_1", got[0].Worker)
	assert.True(t, got[0].OK())
	assert.Len(t, got[0].Blocks, 2)
	assert.Equal(t, 1.0, got[0].TimeTaken)

	assert.Equal(t, "worker_2", got[1].Worker)
	assert.False(t, got[1].OK())
	assert.Equal(t, "Matrix must be square.", got[1].Message)
	assert.Empty(t, got[1].Blocks)
}

func TestDecomposeOddWorkerEntryKeepsOthers(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 200, `{
			"worker_1": {"status":"success","algorithm":"lu","result":[[[1]],[[2]]]},
			"worker_2": {"status":"timeout","message":"no answer"},
			"worker_3": {"status":"success","algorithm":"lu"},
			"worker_4": {"status":"success","algorithm":"lu","result":[[[1,2],[3]]]}
		}`)
	})

	got, err := c.Decompose(context.Background(), "m.mtx", AlgorithmLU)
	require.NoError(t, err)
	require.Len(t, got, 4)

	assert.True(t, got[0].OK())
	assert.Len(t, got[0].Blocks, 2)

	assert.False(t, got[1].OK())
	assert.Equal(t, "timeout", got[1].Status)
	assert.Equal(t, "no answer", got[1].Message)

	assert.False(t, got[2].OK())
	assert.Equal(t, `response is missing "result"`, got[2].Message)

	assert.False(t, got[3].OK())
	assert.Contains(t, got[3].Message, "malformed block 0")
	assert.Empty(t, got[3].Blocks)
}

func TestDecomposeMalformed(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 200, `{"algorithm":"qr","result":[[[1,2],[3]]]}`)
	})
	_, err := c.Decompose(context.Background(), "m.mtx", AlgorithmQR)
	assert.ErrorIs(t, err, ErrServer)

	_, err = c.Decompose(context.Background(), "m.mtx", Algorithm("svd"))
	assert.ErrorIs(t, err, ErrValidation)
}

func TestDecomposeGrid(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/decompose_matrix", r.URL.Path)
		var body struct {
			InputMatrix [][]float64 `json:"input_matrix"`
			Algorithm   string      `json:"algorithm"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, [][]float64{{1, 2}, {3, 4}}, body.InputMatrix)
		assert.Equal(t, "qr", body.Algorithm)
		writeJSON(w, 200, `{"input_matrix":[[1,2],[3,4]],"algorithm":"qr","result":[[[1,0],[0,1]],[[1,2],[3,4]]],"time_taken":0.001}`)
	})

	g, err := mtx.GridFromRows([][]float64{{1, 2}, {3, 4}})
	require.NoError(t, err)
	w, err := c.DecomposeGrid(context.Background(), g, AlgorithmQR)
	require.NoError(t, err)
	assert.True(t, w.OK())
	assert.Len(t, w.Blocks, 2)

	rect, err := mtx.GridFromRows([][]float64{{1, 2, 3}})
	require.NoError(t, err)
	_, err = c.DecomposeGrid(context.Background(), rect, AlgorithmQR)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestStatus(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		writeJSON(w, 200, `{"status":"running","SQLITE_URL":"http://sqlite:8000","sqlite_status":true,"mongo_server_status":false}`)
	})
	st, err := c.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "running", st.Status)
	assert.Equal(t, map[string]bool{"sqlite_status": true, "mongo_server_status": false}, st.Components)
	assert.Equal(t, "http://sqlite:8000", st.Details["SQLITE_URL"])
	assert.False(t, st.Healthy())
}

func TestParseAlgorithm(t *testing.T) {
	a, err := ParseAlgorithm(" LU ")
	require.NoError(t, err)
	assert.Equal(t, AlgorithmLU, a)
	assert.Equal(t, []string{"L", "D", "Lt"}, AlgorithmLDL.BlockNames())

	_, err = ParseAlgorithm("cholesky")
	assert.True(t, errors.Is(err, ErrValidation))
}
