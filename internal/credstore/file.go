package credstore

import (
	"context"
	"path/filepath"
	"sync"

	"golang.org/x/oauth2"

	"github.com/dankgo/dank/internal/tokenfile"
)

// FileStore keeps one token file per account context in a directory.
type FileStore struct {
	dir string
	mu  sync.Mutex
}

// NewFileStore creates a store rooted at dir. The directory is created on
// first Save.
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

// Path returns the token file path for an account context.
func (s *FileStore) Path(account AccountContext) string {
	return filepath.Join(s.dir, "token_"+account.String()+".json")
}

func (s *FileStore) Load(_ context.Context, account AccountContext) (*oauth2.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return tokenfile.Load(s.Path(account), account.String())
}

func (s *FileStore) Save(_ context.Context, account AccountContext, tok *oauth2.Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return tokenfile.Save(s.Path(account), account.String(), tok)
}

func (s *FileStore) Clear(_ context.Context, account AccountContext) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return tokenfile.Remove(s.Path(account))
}
