package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
)

// defaultTargetPhenomena are the short-fused convective codes the relay
// tracks when no override file is given.
var defaultTargetPhenomena = []string{"TO", "SV", "FF", "SS", "SPS"}

// Phenomena holds the target phenomenon list with support for runtime reload
// from a JSON override file, so coverage can change without a restart.
type Phenomena struct {
	mu    sync.RWMutex
	codes []string
	path  string
}

type phenomenaFile struct {
	TargetPhenomena []string `json:"target_phenomena"`
}

// NewPhenomena builds the holder. An empty path keeps the defaults; a set path
// is loaded immediately and again on each Reload.
func NewPhenomena(path string) (*Phenomena, error) {
	p := &Phenomena{
		codes: append([]string(nil), defaultTargetPhenomena...),
		path:  path,
	}
	if path != "" {
		if err := p.Reload(); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Reload re-reads the override file. The current list is kept on failure.
func (p *Phenomena) Reload() error {
	if p.path == "" {
		return nil
	}

	data, err := os.ReadFile(p.path)
	if err != nil {
		return fmt.Errorf("read phenomena file: %w", err)
	}
	var f phenomenaFile
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("parse phenomena file %s: %w", p.path, err)
	}

	var codes []string
	for _, code := range f.TargetPhenomena {
		code = strings.ToUpper(strings.TrimSpace(code))
		if code != "" {
			codes = append(codes, code)
		}
	}
	if len(codes) == 0 {
		codes = append([]string(nil), defaultTargetPhenomena...)
	}

	p.mu.Lock()
	p.codes = codes
	p.mu.Unlock()
	return nil
}

// List returns a copy of the current target phenomena.
func (p *Phenomena) List() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]string(nil), p.codes...)
}
