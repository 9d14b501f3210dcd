package launcher

import (
	"encoding/json"
	"os"

	"github.com/tidwall/jsonc"

	"github.com/mkraev/freedom-calculator/internal/config"
	"github.com/mkraev/freedom-calculator/internal/model"
)

// ManifestName is the launch manifest looked up in the current
// directory when no explicit path is given.
const ManifestName = "freedom.jsonc"

// Manifest declares what a launch needs and what it runs. Every field
// is optional; the zero manifest launches the embedded web server with
// the configuration defaults.
type Manifest struct {
	// Requires lists tools that must resolve on PATH before any setup
	// happens. The first missing tool aborts the launch.
	Requires []string `json:"requires"`

	// Workdir is the report workspace, created when absent.
	Workdir string `json:"workdir"`

	// Command, when present, is executed instead of the embedded server.
	// The first element is the binary, the rest are its arguments.
	Command []string `json:"command"`

	// Port and Host override the embedded server's bind address.
	Port int    `json:"port"`
	Host string `json:"host"`
}

// LoadManifest reads a JSONC manifest. A missing file at the default
// path is not an error; the zero manifest is returned. An explicit path
// that does not exist is.
func LoadManifest(path string) (*Manifest, error) {
	explicit := path != ""
	if !explicit {
		path = ManifestName
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && os.IsNotExist(err) {
			return &Manifest{}, nil
		}
		return nil, model.WrapCLIError(model.ExitInputNotFound, "failed to read launch manifest", err)
	}

	var m Manifest
	if err := json.Unmarshal(jsonc.ToJSON(data), &m); err != nil {
		return nil, model.WrapCLIError(model.ExitParseError, "invalid launch manifest", err)
	}
	return &m, nil
}

// Resolve merges the manifest over the configuration and returns the
// effective workdir and bind address.
func (m *Manifest) Resolve(cfg *config.Config) (workdir string, listen config.ListenConfig) {
	workdir = cfg.Workdir
	if m.Workdir != "" {
		workdir = m.Workdir
	}

	listen = cfg.Listen
	if m.Host != "" {
		listen.Host = m.Host
	}
	if m.Port != 0 {
		listen.Port = m.Port
	}
	return workdir, listen
}
