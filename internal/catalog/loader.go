// Package catalog loads simulado definitions from JSON or YAML catalog
// documents.
package catalog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/mod/semver"
	"gopkg.in/yaml.v3"

	"github.com/belmiro-kunga/certquest/internal/exam"
)

// SupportedMajor is the only catalog format major version this build reads.
const SupportedMajor = "v1"

// ErrInvalidCatalog is returned for any catalog that cannot be imported.
var ErrInvalidCatalog = errors.New("catalog: invalid document")

// ValidationError describes why a catalog was rejected.
type ValidationError struct {
	// Simulado is the id of the offending simulado, empty for
	// document-level problems.
	Simulado string
	Err      error
}

func (e *ValidationError) Error() string {
	if e.Simulado != "" {
		return fmt.Sprintf("catalog: simulado %q: %v", e.Simulado, e.Err)
	}
	return fmt.Sprintf("catalog: %v", e.Err)
}

func (e *ValidationError) Unwrap() []error { return []error{ErrInvalidCatalog, e.Err} }

// Document is a decoded catalog.
type Document struct {
	Version   string
	Simulados []exam.Simulado
}

type rawDocument struct {
	Version   string        `json:"version"`
	Simulados []rawSimulado `json:"simulados"`
}

type rawSimulado struct {
	ID               string          `json:"id"`
	Title            string          `json:"title"`
	DurationMinutes  int             `json:"duration_minutes"`
	Difficulty       exam.Difficulty `json:"difficulty_level"`
	Active           *bool           `json:"active"`
	PassingThreshold int             `json:"passing_threshold"`
	Questions        []exam.Question `json:"questions"`
}

var (
	compileOnce sync.Once
	compiled    *jsonschema.Schema
	compileErr  error
)

func schema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		// The compiler wants a value shaped like decoded JSON.
		defBytes, err := json.Marshal(catalogSchema)
		if err != nil {
			compileErr = fmt.Errorf("marshal catalog schema: %w", err)
			return
		}
		var def any
		if err := json.Unmarshal(defBytes, &def); err != nil {
			compileErr = fmt.Errorf("parse catalog schema: %w", err)
			return
		}

		c := jsonschema.NewCompiler()
		const url = "schema://certquest/catalog.json"
		if err := c.AddResource(url, def); err != nil {
			compileErr = fmt.Errorf("add catalog schema: %w", err)
			return
		}
		compiled, compileErr = c.Compile(url)
	})
	return compiled, compileErr
}

// Load reads and validates a catalog document from r.
func Load(r io.Reader) (*Document, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}

	var parsed any
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, &ValidationError{Err: fmt.Errorf("invalid JSON: %w", err)}
	}

	sch, err := schema()
	if err != nil {
		return nil, err
	}
	if err := sch.Validate(parsed); err != nil {
		return nil, &ValidationError{Err: fmt.Errorf("schema validation failed: %w", err)}
	}

	var doc rawDocument
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&doc); err != nil {
		return nil, &ValidationError{Err: fmt.Errorf("decode: %w", err)}
	}

	if !semver.IsValid(doc.Version) {
		return nil, &ValidationError{Err: fmt.Errorf("version %q is not valid semver", doc.Version)}
	}
	if major := semver.Major(doc.Version); major != SupportedMajor {
		return nil, &ValidationError{Err: fmt.Errorf("unsupported catalog version %s (want %s.x.y)", doc.Version, SupportedMajor)}
	}

	out := &Document{Version: semver.Canonical(doc.Version)}
	seen := make(map[string]bool, len(doc.Simulados))
	for _, rs := range doc.Simulados {
		if seen[rs.ID] {
			return nil, &ValidationError{Simulado: rs.ID, Err: errors.New("duplicate simulado id")}
		}
		seen[rs.ID] = true

		sim := rs.toSimulado()
		if err := sim.Validate(); err != nil {
			return nil, &ValidationError{Simulado: rs.ID, Err: err}
		}
		out.Simulados = append(out.Simulados, sim)
	}
	return out, nil
}

// LoadYAML reads a catalog written in YAML. The document is converted to
// JSON and goes through the same checks as Load.
func LoadYAML(r io.Reader) (*Document, error) {
	var parsed any
	if err := yaml.NewDecoder(r).Decode(&parsed); err != nil {
		return nil, &ValidationError{Err: fmt.Errorf("invalid YAML: %w", err)}
	}
	raw, err := json.Marshal(parsed)
	if err != nil {
		return nil, &ValidationError{Err: fmt.Errorf("convert YAML: %w", err)}
	}
	return Load(bytes.NewReader(raw))
}

// LoadFile reads a catalog document from path. Files ending in .yaml or
// .yml are read as YAML, anything else as JSON.
func LoadFile(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return LoadYAML(f)
	}
	return Load(f)
}

func (rs rawSimulado) toSimulado() exam.Simulado {
	active := true
	if rs.Active != nil {
		active = *rs.Active
	}
	difficulty := rs.Difficulty
	if difficulty == "" {
		difficulty = exam.DifficultyIntermediate
	}

	questions := make([]exam.Question, len(rs.Questions))
	for i, q := range rs.Questions {
		q.SimuladoID = rs.ID
		questions[i] = q
	}
	return exam.Simulado{
		ID:               rs.ID,
		Title:            rs.Title,
		DurationMinutes:  rs.DurationMinutes,
		Difficulty:       difficulty,
		Active:           active,
		PassingThreshold: rs.PassingThreshold,
		Questions:        questions,
	}
}
