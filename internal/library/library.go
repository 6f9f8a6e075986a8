// Package library loads custom chain definitions from YAML files.
//
// Each file in the chains directory defines one chain. The library can watch
// the directory and hot-reload definitions when files change.
package library

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/fathomlabs/chaind/internal/chain"
)

// ErrWatcherFailed indicates the filesystem watcher failed to initialize.
var ErrWatcherFailed = errors.New("failed to initialize filesystem watcher")

// chainFile is the YAML schema for one custom chain.
type chainFile struct {
	Name         string         `yaml:"name"`
	Description  string         `yaml:"description"`
	Steps        []stepFile     `yaml:"steps"`
	InitialState map[string]any `yaml:"initial_state"`
}

type stepFile struct {
	TaskName          string `yaml:"task_name"`
	InputMapping      string `yaml:"input_mapping"`
	OutputKey         string `yaml:"output_key"`
	ContinueOnFailure bool   `yaml:"continue_on_failure"`
}

// Library holds the custom chain definitions loaded from a directory.
type Library struct {
	dir    string
	logger *zap.Logger

	mu   sync.RWMutex
	defs map[string]*chain.Definition
}

// New creates a library over dir and performs the initial load. A missing
// directory yields an empty library, not an error.
func New(dir string, logger *zap.Logger) (*Library, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	l := &Library{
		dir:    dir,
		logger: logger,
		defs:   make(map[string]*chain.Definition),
	}
	if err := l.Reload(); err != nil {
		return nil, err
	}
	return l, nil
}

// Reload re-reads every chain file in the directory. Invalid files are
// logged and skipped; they never poison previously loaded definitions of
// other files.
func (l *Library) Reload() error {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading chains directory: %w", err)
	}

	defs := make(map[string]*chain.Definition)
	for _, entry := range entries {
		if entry.IsDir() || !isChainFile(entry.Name()) {
			continue
		}
		path := filepath.Join(l.dir, entry.Name())

		def, err := LoadFile(path)
		if err != nil {
			l.logger.Warn("skipping invalid chain file",
				zap.String("path", path),
				zap.Error(err),
			)
			continue
		}
		if slices.Contains(chain.TemplateNames(), def.Name) {
			l.logger.Warn("chain file shadows a built-in template, skipping",
				zap.String("path", path),
				zap.String("chain", def.Name),
			)
			continue
		}
		if _, dup := defs[def.Name]; dup {
			l.logger.Warn("duplicate chain name, keeping first",
				zap.String("path", path),
				zap.String("chain", def.Name),
			)
			continue
		}
		defs[def.Name] = def
	}

	l.mu.Lock()
	l.defs = defs
	l.mu.Unlock()

	l.logger.Info("chain library loaded",
		zap.String("dir", l.dir),
		zap.Int("chains", len(defs)),
	)
	return nil
}

// Lookup returns the definition for name, if loaded.
func (l *Library) Lookup(name string) (*chain.Definition, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	def, ok := l.defs[name]
	return def, ok
}

// Names returns the loaded chain names, sorted.
func (l *Library) Names() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	names := make([]string, 0, len(l.defs))
	for name := range l.defs {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func isChainFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".yaml" || ext == ".yml"
}

// LoadFile parses and validates a single chain definition file.
func LoadFile(path string) (*chain.Definition, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}

	var cf chainFile
	if err := yaml.Unmarshal(content, &cf); err != nil {
		return nil, fmt.Errorf("parsing yaml: %w", err)
	}

	if cf.Name == "" {
		// Fall back to the file name without extension.
		base := filepath.Base(path)
		cf.Name = strings.TrimSuffix(base, filepath.Ext(base))
	}

	steps := make([]chain.Step, len(cf.Steps))
	for i, s := range cf.Steps {
		steps[i] = chain.Step{
			TaskName:          s.TaskName,
			InputMapping:      s.InputMapping,
			OutputKey:         s.OutputKey,
			ContinueOnFailure: s.ContinueOnFailure,
		}
	}

	def := &chain.Definition{
		Name:         cf.Name,
		Description:  cf.Description,
		Steps:        steps,
		InitialState: cf.InitialState,
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}
	return def, nil
}
