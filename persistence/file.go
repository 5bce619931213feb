package persistence

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/driftwood-labs/sigengine/signal"
)

// FileAdapter is the default Adapter: one JSON file per record under
// {root}/signal/{symbol}_{strategyName}.json (active) and
// {root}/schedule/{symbol}_{strategyName}.json (scheduled), exactly as
// spec.md §6 lays out. Writes stage to a temp file in the same directory
// and rename(2) over the destination, so a crash mid-write leaves either
// the previous file or the new one, never a partial one.
type FileAdapter struct {
	Root string
}

// NewFileAdapter returns a FileAdapter rooted at root, creating the
// signal/ and schedule/ subdirectories if they do not exist.
func NewFileAdapter(root string) (*FileAdapter, error) {
	for _, sub := range []string{"signal", "schedule"} {
		if err := os.MkdirAll(filepath.Join(root, sub), 0755); err != nil {
			return nil, fmt.Errorf("persistence: create %s dir: %w", sub, err)
		}
	}
	return &FileAdapter{Root: root}, nil
}

func (f *FileAdapter) activePath(symbol, strategyName string) string {
	return filepath.Join(f.Root, "signal", symbol+"_"+strategyName+".json")
}

func (f *FileAdapter) scheduledPath(symbol, strategyName string) string {
	return filepath.Join(f.Root, "schedule", symbol+"_"+strategyName+".json")
}

func atomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("persistence: create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("persistence: write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("persistence: sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("persistence: close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("persistence: rename temp file: %w", err)
	}
	return nil
}

func atomicRemove(path string) error {
	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("persistence: remove %s: %w", path, err)
	}
	return nil
}

func (f *FileAdapter) LoadActive(symbol, strategyName string) (signal.ActiveSignal, bool, error) {
	data, err := os.ReadFile(f.activePath(symbol, strategyName))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return signal.ActiveSignal{}, false, nil
		}
		return signal.ActiveSignal{}, false, fmt.Errorf("persistence: read active: %w", err)
	}
	sig, err := signal.DecodeActive(data)
	if err != nil {
		return signal.ActiveSignal{}, false, fmt.Errorf("persistence: decode active: %w", err)
	}
	return sig, true, nil
}

func (f *FileAdapter) SaveActive(sig signal.ActiveSignal) error {
	data, err := signal.EncodeActive(sig)
	if err != nil {
		return fmt.Errorf("persistence: encode active: %w", err)
	}
	return atomicWrite(f.activePath(sig.Symbol, sig.StrategyName), data)
}

func (f *FileAdapter) DeleteActive(symbol, strategyName string) error {
	return atomicRemove(f.activePath(symbol, strategyName))
}

func (f *FileAdapter) LoadScheduled(symbol, strategyName string) (signal.ScheduledSignal, bool, error) {
	data, err := os.ReadFile(f.scheduledPath(symbol, strategyName))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return signal.ScheduledSignal{}, false, nil
		}
		return signal.ScheduledSignal{}, false, fmt.Errorf("persistence: read scheduled: %w", err)
	}
	sig, err := signal.DecodeScheduled(data)
	if err != nil {
		return signal.ScheduledSignal{}, false, fmt.Errorf("persistence: decode scheduled: %w", err)
	}
	return sig, true, nil
}

func (f *FileAdapter) SaveScheduled(sig signal.ScheduledSignal) error {
	data, err := signal.EncodeScheduled(sig)
	if err != nil {
		return fmt.Errorf("persistence: encode scheduled: %w", err)
	}
	return atomicWrite(f.scheduledPath(sig.Symbol, sig.StrategyName), data)
}

func (f *FileAdapter) DeleteScheduled(symbol, strategyName string) error {
	return atomicRemove(f.scheduledPath(symbol, strategyName))
}
