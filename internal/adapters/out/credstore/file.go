// Package credstore implements registry credential storage on the local
// filesystem.
package credstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/bnema/dockmaster/internal/domain"
	"github.com/bnema/dockmaster/internal/logging"
)

// DefaultFileName is the credential file name inside the data directory.
const DefaultFileName = "registries.json"

// record is the on-disk form of a credential. The file is a JSON array of
// records, indented with four spaces.
type record struct {
	Name     string `json:"name"`
	URL      string `json:"url"`
	Login    string `json:"login"`
	Password string `json:"password"`
}

// FileStore implements out.CredentialStorage over a single JSON file.
// A missing file is an empty store.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore creates a store backed by path. The file is created on the
// first write.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the backing file.
func (s *FileStore) Path() string {
	return s.path
}

// Get returns the credential named name.
func (s *FileStore) Get(_ context.Context, name string) (*domain.RegistryCredential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		return nil, err
	}
	for _, r := range records {
		if r.Name == name {
			cred := r.toDomain()
			return &cred, nil
		}
	}
	return nil, domain.ErrRegistryNotFound
}

// List returns every stored credential in file order.
func (s *FileStore) List(_ context.Context) ([]domain.RegistryCredential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		return nil, err
	}
	creds := make([]domain.RegistryCredential, 0, len(records))
	for _, r := range records {
		creds = append(creds, r.toDomain())
	}
	return creds, nil
}

// Put inserts cred, replacing any credential with the same name.
func (s *FileStore) Put(ctx context.Context, cred domain.RegistryCredential) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		return err
	}

	rec := fromDomain(cred)
	replaced := false
	for i := range records {
		if records[i].Name == cred.Name {
			records[i] = rec
			replaced = true
			break
		}
	}
	if !replaced {
		records = append(records, rec)
	}

	if err := s.save(records); err != nil {
		return err
	}

	logging.FromCtx(ctx).Debug().
		Str(logging.FieldLayer, "adapter").
		Str(logging.FieldAdapter, "credstore").
		Str("name", cred.Name).
		Bool("replaced", replaced).
		Msg("credential written")
	return nil
}

// Delete removes the credential named name.
func (s *FileStore) Delete(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		return err
	}

	kept := records[:0]
	for _, r := range records {
		if r.Name != name {
			kept = append(kept, r)
		}
	}
	if len(kept) == len(records) {
		return domain.ErrRegistryNotFound
	}
	return s.save(kept)
}

func (s *FileStore) load() ([]record, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read credential file: %w", err)
	}
	if len(data) == 0 {
		return nil, nil
	}

	var records []record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to parse credential file %s: %w", s.path, err)
	}
	return records, nil
}

// save replaces the file atomically.
func (s *FileStore) save(records []record) error {
	if records == nil {
		records = []record{}
	}
	data, err := json.MarshalIndent(records, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to encode credentials: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("failed to create credential directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp credential file: %w", err)
	}
	tmpPath := tmp.Name()

	if err := tmp.Chmod(0600); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to restrict credential file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to write credential file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp credential file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to finalize credential file: %w", err)
	}
	return nil
}

func (r record) toDomain() domain.RegistryCredential {
	return domain.RegistryCredential{Name: r.Name, URL: r.URL, Login: r.Login, Password: r.Password}
}

func fromDomain(c domain.RegistryCredential) record {
	return record{Name: c.Name, URL: c.URL, Login: c.Login, Password: c.Password}
}
