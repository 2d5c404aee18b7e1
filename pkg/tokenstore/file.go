package tokenstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/ministrylearn/ministrylearn/pkg/cryptox"
)

// File persists tokens as a small JSON document. Writes go to a temporary
// file that is renamed over the target, so readers never see a torn file.
type File struct {
	path       string
	passphrase string

	mu sync.Mutex
}

type FileOption func(*File)

// WithPassphrase seals the document with cryptox before writing it.
func WithPassphrase(passphrase string) FileOption {
	return func(f *File) { f.passphrase = passphrase }
}

func NewFile(path string, opts ...FileOption) *File {
	f := &File{path: path}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Path returns the location of the backing file.
func (f *File) Path() string { return f.path }

func (f *File) Get(_ context.Context, key Key) (string, error) {
	if err := key.Validate(); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.read()
	if err != nil {
		return "", err
	}
	return doc[key], nil
}

func (f *File) Set(_ context.Context, key Key, value string) error {
	if err := key.Validate(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.read()
	if err != nil {
		return err
	}
	if value == "" {
		delete(doc, key)
	} else {
		doc[key] = value
	}
	return f.write(doc)
}

func (f *File) Delete(_ context.Context, keys ...Key) error {
	if err := validateKeys(keys...); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.read()
	if err != nil {
		return err
	}
	for _, k := range keys {
		delete(doc, k)
	}
	if len(doc) == 0 {
		if err := os.Remove(f.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("remove token file: %w", err)
		}
		return nil
	}
	return f.write(doc)
}

func (f *File) read() (map[Key]string, error) {
	raw, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return make(map[Key]string, len(Keys)), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read token file: %w", err)
	}

	if f.passphrase != "" {
		raw, err = cryptox.Open(f.passphrase, raw)
		if err != nil {
			return nil, fmt.Errorf("open token file: %w", err)
		}
	}

	doc := make(map[Key]string, len(Keys))
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode token file: %w", err)
	}
	return doc, nil
}

func (f *File) write(doc map[Key]string) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode token file: %w", err)
	}

	if f.passphrase != "" {
		raw, err = cryptox.Seal(f.passphrase, raw)
		if err != nil {
			return fmt.Errorf("seal token file: %w", err)
		}
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create token dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".tokens-*")
	if err != nil {
		return fmt.Errorf("create temp token file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("chmod temp token file: %w", err)
	}
	if _, err := tmp.Write(raw); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp token file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp token file: %w", err)
	}

	if err := os.Rename(tmpName, f.path); err != nil {
		return fmt.Errorf("replace token file: %w", err)
	}
	return nil
}
