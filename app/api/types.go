package api

import (
	"fmt"
	"strings"

	"matrixdesk/app/mtx"
)

// Algorithm names a server-side decomposition.
type Algorithm string

const (
	AlgorithmLU  Algorithm = "lu"
	AlgorithmQR  Algorithm = "qr"
	AlgorithmLDL Algorithm = "ldl"
)

// Algorithms lists the decompositions the workers implement.
var Algorithms = []Algorithm{AlgorithmLU, AlgorithmQR, AlgorithmLDL}

// ParseAlgorithm accepts any casing of a known algorithm name.
func ParseAlgorithm(s string) (Algorithm, error) {
	a := Algorithm(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Algorithms {
		if a == known {
			return a, nil
		}
	}
	return "", &ValidationError{Field: "algorithm", Message: fmt.Sprintf("unsupported algorithm %q (want lu, qr or ldl)", s)}
}

// BlockNames returns the conventional names of the factors a decomposition
// produces, in the order the workers return them.
func (a Algorithm) BlockNames() []string {
	switch a {
	case AlgorithmLU:
		return []string{"L", "U"}
	case AlgorithmQR:
		return []string{"Q", "R"}
	case AlgorithmLDL:
		return []string{"L", "D", "Lt"}
	default:
		return nil
	}
}

// LoginResponse is the body returned by /login and /register.
type LoginResponse struct {
	Message     string
	UserID      string
	AccessToken string
}

// RegisterRequest carries the registration form fields. Password is the
// plain password; it is hashed before it leaves the client.
type RegisterRequest struct {
	Name     string
	Email    string
	Login    string
	Password string
}

// SaveResponse is the body returned by /save_matrix.
type SaveResponse struct {
	Message string
	UserID  string
}

// StoredMatrix is one entry of the user's matrix list. Older servers return
// bare names, newer ones {file_id, filename} objects.
type StoredMatrix struct {
	FileID   string `json:"file_id,omitempty"`
	Filename string `json:"filename"`
}

// InverseResult holds the matrix the server loaded and its inverse.
type InverseResult struct {
	Name     string
	Original *mtx.Grid
	Inverse  *mtx.Grid
}

// WorkerResult is one worker's answer to a decomposition request. A worker
// that failed has Status "error", a Message and no blocks.
type WorkerResult struct {
	Worker    string
	Status    string
	Algorithm Algorithm
	TimeTaken float64
	Blocks    []*mtx.Grid
	Message   string
	// Input is the matrix the worker decomposed, when it echoes it back.
	Input *mtx.Grid
}

// OK reports whether the worker produced a decomposition.
func (w WorkerResult) OK() bool {
	return w.Status == StatusSuccess
}

// Worker status values.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// ServiceStatus is the /status payload: the overall state plus whatever
// boolean component checks the server reports.
type ServiceStatus struct {
	Status     string            `json:"status"`
	Components map[string]bool   `json:"components"`
	Details    map[string]string `json:"details,omitempty"`
}
