package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Parser loads and validates instance files.
type Parser struct {
	ctx       *cue.Context
	schema    cue.Value
	validator *validator.Validate
}

// NewParser creates a parser with the builtin schema compiled.
func NewParser() (*Parser, error) {
	ctx := cuecontext.New()
	schema := ctx.CompileString(builtinInstanceSchema)
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("failed to compile instance schema: %w", err)
	}
	return &Parser{
		ctx:       ctx,
		schema:    schema,
		validator: validator.New(),
	}, nil
}

// Load reads an instance file, dispatching on extension: .cue files are
// unified with the builtin schema, .yaml/.yml files are decoded directly.
func (p *Parser) Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read instance file: %w", err)
	}

	var file File
	switch strings.ToLower(filepath.Ext(path)) {
	case ".cue":
		if err := p.parseCUE(path, data, &file); err != nil {
			return nil, err
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("invalid YAML instance file %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("unsupported instance file extension %q (want .cue, .yaml or .yml)", filepath.Ext(path))
	}

	if err := p.validator.Struct(file); err != nil {
		return nil, fmt.Errorf("instance file %s failed validation: %w", path, err)
	}
	return &file, nil
}

func (p *Parser) parseCUE(path string, data []byte, file *File) error {
	val := p.ctx.CompileBytes(data, cue.Filename(path))
	if err := val.Err(); err != nil {
		return fmt.Errorf("invalid CUE instance file %s: %w", path, err)
	}

	unified := p.schema.Unify(val)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("instance file %s violates schema: %w", path, err)
	}
	if err := unified.Decode(file); err != nil {
		return fmt.Errorf("failed to decode instance file %s: %w", path, err)
	}
	return nil
}
