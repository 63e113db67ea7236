package interfaces

// ProgressCallback provides real-time feedback during long running work
// (file ingestion, uploads, server calls). total is -1 when unknown.
type ProgressCallback func(stage string, current, total int64, message string)

// Logger is the minimal logging surface shared by packages that must not
// depend on the concrete logger (cache, fileloader).
type Logger interface {
	Log(level, message string)
}

// Progress stage names reported by the ingestion pipeline and the app.
const (
	StageComments = "comments"
	StageHeader   = "header"
	StageShape    = "shape"
	StageElements = "elements"
	StageComplete = "complete"
	StageUpload   = "upload"
	StageError    = "error"
)

// Constants for file loading
const (
	// ProgressUpdateInterval defines how often (in elements) to report progress
	ProgressUpdateInterval = 1000
)
