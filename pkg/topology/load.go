package topology

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/adsim-project/adsim-go/pkg/waveform"
)

// ErrInvalidTopology is wrapped by every validation failure.
var ErrInvalidTopology = errors.New("invalid topology")

// LoadError describes a failure to load a topology file.
type LoadError struct {
	Path    string
	Message string
	Cause   error
}

func (e *LoadError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Path, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

func (e *LoadError) Unwrap() error {
	return e.Cause
}

// validate is the shared validator instance with the topology rules registered.
var validate *validator.Validate

func init() {
	validate = validator.New()
	_ = validate.RegisterValidation("waveform", validateWaveformKind)
	validate.RegisterStructValidation(validateSensorRange, SensorTemplate{})
}

func validateWaveformKind(fl validator.FieldLevel) bool {
	_, err := waveform.ParseKind(fl.Field().String())
	return err == nil
}

func validateSensorRange(sl validator.StructLevel) {
	s := sl.Current().Interface().(SensorTemplate)
	if s.MinValue != nil && s.MaxValue != nil && *s.MinValue > *s.MaxValue {
		sl.ReportError(s.MaxValue, "MaxValue", "maxValue", "gtefield", "MinValue")
	}
}

// Validate checks a topology against the structural rules.
func Validate(t *Topology) error {
	if t == nil {
		return fmt.Errorf("%w: nil topology", ErrInvalidTopology)
	}
	if err := validate.Struct(t); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidTopology, err)
	}
	return nil
}

// Parse decodes and validates a topology document.
func Parse(data []byte) (*Topology, error) {
	var t Topology
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("failed to parse topology: %w", err)
	}
	if err := Validate(&t); err != nil {
		return nil, err
	}
	return &t, nil
}

// Load reads, parses and validates a topology file.
func Load(path string) (*Topology, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Path: path, Message: "failed to read file", Cause: err}
	}
	t, err := Parse(data)
	if err != nil {
		return nil, &LoadError{Path: path, Message: "failed to load topology", Cause: err}
	}
	return t, nil
}

// Write encodes a topology as YAML.
func Write(w io.Writer, t *Topology) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(t); err != nil {
		return err
	}
	return enc.Close()
}

// Store loads a topology once and caches the first successful result.
// Load never fails; failures fall back to Default.
type Store struct {
	path   string
	logger *slog.Logger

	mu     sync.Mutex
	cached *Topology
}

// NewStore creates a store for the given file path. An empty path always
// yields the default topology. A nil logger discards log output.
func NewStore(path string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Store{path: path, logger: logger}
}

// Path returns the configured file path.
func (s *Store) Path() string {
	return s.path
}

// Load returns the cached topology, loading it on first use.
func (s *Store) Load() *Topology {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cached != nil {
		return s.cached
	}

	if s.path == "" {
		s.logger.Info("no topology file configured, using built-in default")
		return Default()
	}

	t, err := Load(s.path)
	if err != nil {
		s.logger.Warn("topology load failed, using built-in default", "path", s.path, "error", err)
		return Default()
	}

	s.logger.Info("topology loaded",
		"path", s.path,
		"modules", t.ModuleCount,
		"templates", len(t.Templates),
		"updateInterval", t.UpdateInterval())
	s.cached = t
	return t
}
