package config

// Server holds the ComfyUI server endpoint settings.
type Server struct {
	// Host is the host:port of the ComfyUI HTTP API.
	Host string `yaml:"host"`
}

// Workflow holds prompt graph settings.
type Workflow struct {
	// TemplatePath points at a JSON prompt graph file. Empty means the
	// embedded default graph.
	TemplatePath string `yaml:"template"`
	// InputNode is the graph node whose image input receives the uploaded
	// frame name.
	InputNode string `yaml:"input_node"`
	// OutputNode is the graph node whose outputs the poller watches.
	OutputNode string `yaml:"output_node"`
	// ClientID overrides the per-process correlation token. Empty means a
	// random token is generated at startup.
	ClientID string `yaml:"client_id"`
}

// Capture holds frame source settings.
type Capture struct {
	// Source selects the frame source: "pattern" or "directory".
	Source string `yaml:"source"`
	// Directory is the image directory for the directory source.
	Directory string `yaml:"directory"`
	// SaveDir is where captured frames are persisted before upload.
	SaveDir string `yaml:"save_dir"`
}

// Config represents the comfycam.yaml file.
type Config struct {
	Server   Server   `yaml:"server"`
	Workflow Workflow `yaml:"workflow"`
	Capture  Capture  `yaml:"capture"`
	// Verbose enables debug logging.
	Verbose bool `yaml:"verbose"`
}

// Capture source values.
const (
	SourcePattern   = "pattern"
	SourceDirectory = "directory"
)
