// Copyright 2026 Edge Climate Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package maintenance

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// FileStore persists tracker state as a small JSON document under dir, keyed
// by a stable identifier (one file per configured device).
type FileStore struct {
	path string
}

type fileState struct {
	LastReplacement string `json:"last_replacement"`
}

// NewFileStore creates a file store at dir/<key>.json.
func NewFileStore(dir, key string) *FileStore {
	return &FileStore{path: filepath.Join(dir, key+".json")}
}

// Path returns the backing file path.
func (s *FileStore) Path() string { return s.path }

// Load implements Store.
func (s *FileStore) Load() (time.Time, bool, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("maintenance: read %s: %w", s.path, err)
	}

	var st fileState
	if err := json.Unmarshal(data, &st); err != nil {
		return time.Time{}, false, fmt.Errorf("maintenance: parse %s: %w", s.path, err)
	}
	if st.LastReplacement == "" {
		return time.Time{}, false, nil
	}
	last, err := time.Parse(time.RFC3339, st.LastReplacement)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("maintenance: parse %s: %w", s.path, err)
	}
	return last, true, nil
}

// Save implements Store.
func (s *FileStore) Save(last time.Time) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("maintenance: mkdir for %s: %w", s.path, err)
	}
	data, err := json.Marshal(fileState{LastReplacement: last.Format(time.RFC3339)})
	if err != nil {
		return err
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("maintenance: write %s: %w", s.path, err)
	}
	return nil
}
