// Package agreement renders and archives the signed-agreement document for a
// dual-agreed booking. Rendering and storage are external collaborators; this
// package keeps them behind narrow interfaces and ships local
// implementations good enough for development and tests.
package agreement

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"taskbroker/internal/domain"

	"github.com/google/uuid"
)

// Renderer turns booking fields into a document blob.
type Renderer interface {
	Render(ctx context.Context, b *domain.Booking) ([]byte, error)
}

// Storage persists a blob under a path and returns its durable public URL.
type Storage interface {
	Store(ctx context.Context, path string, data []byte) (string, error)
}

// Archiver renders a booking agreement and archives it, producing a stable
// reference.
type Archiver struct {
	renderer Renderer
	storage  Storage
}

func NewArchiver(renderer Renderer, storage Storage) *Archiver {
	return &Archiver{renderer: renderer, storage: storage}
}

func (a *Archiver) RenderAndStore(ctx context.Context, b *domain.Booking) (string, error) {
	data, err := a.renderer.Render(ctx, b)
	if err != nil {
		return "", fmt.Errorf("render agreement: %w", err)
	}

	path := fmt.Sprintf("agreements/%d-%s.txt", b.ID, uuid.NewString())
	url, err := a.storage.Store(ctx, path, data)
	if err != nil {
		return "", fmt.Errorf("store agreement: %w", err)
	}
	return url, nil
}

// TextRenderer produces a plain-text agreement summary.
type TextRenderer struct{}

func (TextRenderer) Render(_ context.Context, b *domain.Booking) ([]byte, error) {
	if b.Price == nil {
		return nil, fmt.Errorf("booking %d has no agreed price", b.ID)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Service Agreement — booking #%d\n\n", b.ID)
	fmt.Fprintf(&sb, "Client:    %d\n", b.ClientID)
	fmt.Fprintf(&sb, "Provider:  %d\n", b.ProviderID)
	fmt.Fprintf(&sb, "Scheduled: %s\n", b.ScheduledAt.Format(time.RFC3339))
	fmt.Fprintf(&sb, "Price:     %.2f\n", *b.Price)
	if b.Notes != "" {
		fmt.Fprintf(&sb, "Notes:     %s\n", b.Notes)
	}
	sb.WriteString("\nBoth parties have agreed to the terms above.\n")
	return []byte(sb.String()), nil
}

// LocalStorage writes blobs under a base directory and addresses them with a
// base URL, standing in for an object-storage service.
type LocalStorage struct {
	dir     string
	baseURL string
}

func NewLocalStorage(dir, baseURL string) *LocalStorage {
	return &LocalStorage{dir: dir, baseURL: strings.TrimRight(baseURL, "/")}
}

func (s *LocalStorage) Store(_ context.Context, path string, data []byte) (string, error) {
	full := filepath.Join(s.dir, filepath.FromSlash(path))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return "", err
	}
	return s.baseURL + "/" + path, nil
}
