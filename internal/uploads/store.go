package uploads

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/Hazher89/oppdrag-app/pkg/config"
	pkgerrors "github.com/Hazher89/oppdrag-app/pkg/errors"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// Kind selects the storage bucket and the allowed content types.
type Kind string

const (
	KindAssignmentPDF Kind = "pdfs"
	KindChatFile      Kind = "chat"
)

var allowedByKind = map[Kind][]string{
	KindAssignmentPDF: {"application/pdf"},
	KindChatFile:      {"application/pdf", "image/jpeg", "image/png", "image/webp", "image/gif"},
}

// StoredFile describes a file persisted to disk.
type StoredFile struct {
	FileName  string
	Path      string
	PublicURL string
	Size      int64
	MIMEType  string
}

// Store writes uploads to the local filesystem. Content types are sniffed
// from the bytes, never trusted from the request.
type Store struct {
	cfg config.UploadsConfig
}

// NewStore prepares the upload directories and returns a store.
func NewStore(cfg config.UploadsConfig) (*Store, error) {
	for _, kind := range []Kind{KindAssignmentPDF, KindChatFile} {
		dir := filepath.Join(cfg.BaseDir, string(kind))
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating upload dir %s: %w", dir, err)
		}
	}
	return &Store{cfg: cfg}, nil
}

// MaxSize returns the byte cap for the given kind.
func (s *Store) MaxSize(kind Kind) int64 {
	switch kind {
	case KindAssignmentPDF:
		return int64(s.cfg.MaxPDFSizeMB) << 20
	default:
		return int64(s.cfg.MaxChatFileSizeMB) << 20
	}
}

// Save sniffs, validates, and persists the upload under a random name.
func (s *Store) Save(kind Kind, originalName string, r io.Reader) (*StoredFile, error) {
	limit := s.MaxSize(kind)
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "read upload")
	}
	if int64(len(data)) > limit {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("file exceeds the %d MB limit", limit>>20))
	}
	if len(data) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "file is empty")
	}

	mtype := mimetype.Detect(data)
	if !kindAllows(kind, mtype.String()) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("unsupported content type %s", mtype.String()))
	}

	name := uuid.NewString() + extensionFor(originalName, mtype.Extension())
	relPath := filepath.Join(string(kind), name)
	fullPath := filepath.Join(s.cfg.BaseDir, relPath)

	if err := os.WriteFile(fullPath, data, 0o644); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "write upload")
	}

	return &StoredFile{
		FileName:  sanitizeName(originalName, name),
		Path:      fullPath,
		PublicURL: strings.TrimRight(s.cfg.PublicBaseURL, "/") + "/" + filepath.ToSlash(relPath),
		Size:      int64(len(data)),
		MIMEType:  mtype.String(),
	}, nil
}

// Remove deletes a stored file, ignoring files that are already gone.
func (s *Store) Remove(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing upload: %w", err)
	}
	return nil
}

// RemoveByPublicURL maps a file's public URL back to its disk path and removes
// it. Records only persist the public URL.
func (s *Store) RemoveByPublicURL(publicURL string) error {
	base := strings.TrimRight(s.cfg.PublicBaseURL, "/")
	rel := strings.TrimPrefix(publicURL, base)
	rel = strings.TrimPrefix(rel, "/")
	if rel == "" || strings.Contains(rel, "..") {
		return fmt.Errorf("unrecognized upload path %q", publicURL)
	}
	return s.Remove(filepath.Join(s.cfg.BaseDir, filepath.FromSlash(rel)))
}

func kindAllows(kind Kind, mime string) bool {
	for _, allowed := range allowedByKind[kind] {
		if mime == allowed {
			return true
		}
	}
	return false
}

func extensionFor(originalName, sniffed string) string {
	if ext := strings.ToLower(filepath.Ext(originalName)); ext != "" {
		return ext
	}
	return sniffed
}

func sanitizeName(originalName, fallback string) string {
	base := filepath.Base(strings.TrimSpace(originalName))
	if base == "" || base == "." || base == string(filepath.Separator) {
		return fallback
	}
	return base
}
