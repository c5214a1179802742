package document

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/mindshear/mindshear-api/internal/apperr"
)

const maxNameAttempts = 3

// Store persists a rendered artifact and returns its reference.
type Store interface {
	Save(ctx context.Context, data []byte) (string, error)
}

// FileStore writes artifacts into Dir. References are URLPrefix/<name>.
type FileStore struct {
	Dir       string
	URLPrefix string
}

// NewFileStore creates dir if needed.
func NewFileStore(dir, urlPrefix string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, apperr.Wrap(apperr.ErrStorageFailure, err, "create artifact directory")
	}
	return &FileStore{Dir: dir, URLPrefix: urlPrefix}, nil
}

// Save writes data under a fresh random name. The file is created
// exclusively so concurrent saves can never overwrite each other.
func (s *FileStore) Save(ctx context.Context, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	for attempt := 0; attempt < maxNameAttempts; attempt++ {
		name := fmt.Sprintf("notes_%s.pdf", uuid.NewString())
		full := filepath.Join(s.Dir, name)

		f, err := os.OpenFile(full, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, os.ErrExist) {
			continue
		}
		if err != nil {
			return "", apperr.Wrap(apperr.ErrStorageFailure, err, "create artifact")
		}

		_, werr := f.Write(data)
		cerr := f.Close()
		if werr == nil {
			werr = cerr
		}
		if werr != nil {
			_ = os.Remove(full)
			return "", apperr.Wrap(apperr.ErrStorageFailure, werr, "write artifact")
		}

		slog.Debug("Stored artifact", "path", full, "bytes", len(data))
		return path.Join(s.URLPrefix, name), nil
	}
	return "", apperr.Wrap(apperr.ErrStorageFailure, nil, "could not allocate a unique artifact name")
}

// Publisher renders documents and hands the bytes to a Store.
type Publisher struct {
	store Store
}

func NewPublisher(store Store) *Publisher {
	return &Publisher{store: store}
}

// Publish renders doc to PDF and stores it, returning the artifact reference.
func (p *Publisher) Publish(ctx context.Context, doc Document) (string, error) {
	var buf bytes.Buffer
	if err := Render(doc, &buf); err != nil {
		return "", apperr.Wrap(apperr.ErrStorageFailure, err, "render notes")
	}
	return p.store.Save(ctx, buf.Bytes())
}
