package uploads

import (
	"bytes"
	"strings"
	"testing"

	"github.com/Hazher89/oppdrag-app/pkg/config"
	pkgerrors "github.com/Hazher89/oppdrag-app/pkg/errors"
)

// Minimal but valid single-page PDF header; mimetype sniffs the magic bytes.
var pdfBytes = []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\ntrailer\n<< /Root 1 0 R >>\n%%EOF\n")

var pngBytes = []byte{
	0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a,
	0x00, 0x00, 0x00, 0x0d, 'I', 'H', 'D', 'R',
	0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x02, 0x00, 0x00, 0x00,
}

func testStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(config.UploadsConfig{
		BaseDir:           t.TempDir(),
		PublicBaseURL:     "/uploads",
		MaxPDFSizeMB:      1,
		MaxChatFileSizeMB: 1,
	})
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return store
}

func TestSavePDF(t *testing.T) {
	store := testStore(t)

	stored, err := store.Save(KindAssignmentPDF, "fraktbrev.pdf", bytes.NewReader(pdfBytes))
	if err != nil {
		t.Fatalf("save pdf: %v", err)
	}
	if stored.MIMEType != "application/pdf" {
		t.Fatalf("expected pdf mime got %s", stored.MIMEType)
	}
	if stored.FileName != "fraktbrev.pdf" {
		t.Fatalf("expected original name kept got %s", stored.FileName)
	}
	if !strings.HasPrefix(stored.PublicURL, "/uploads/pdfs/") {
		t.Fatalf("unexpected public url %s", stored.PublicURL)
	}
	if stored.Size != int64(len(pdfBytes)) {
		t.Fatalf("expected size %d got %d", len(pdfBytes), stored.Size)
	}

	if err := store.Remove(stored.Path); err != nil {
		t.Fatalf("remove: %v", err)
	}
	// Removing again is a no-op.
	if err := store.Remove(stored.Path); err != nil {
		t.Fatalf("remove missing: %v", err)
	}
}

func TestSaveRejectsWrongTypeForKind(t *testing.T) {
	store := testStore(t)

	_, err := store.Save(KindAssignmentPDF, "bilde.png", bytes.NewReader(pngBytes))
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for png as pdf got %v", err)
	}

	// The same bytes are fine for chat uploads.
	stored, err := store.Save(KindChatFile, "bilde.png", bytes.NewReader(pngBytes))
	if err != nil {
		t.Fatalf("save chat png: %v", err)
	}
	if stored.MIMEType != "image/png" {
		t.Fatalf("expected png mime got %s", stored.MIMEType)
	}
}

func TestSaveRejectsEmptyAndOversized(t *testing.T) {
	store := testStore(t)

	_, err := store.Save(KindAssignmentPDF, "tom.pdf", bytes.NewReader(nil))
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for empty file got %v", err)
	}

	big := append(append([]byte{}, pdfBytes...), bytes.Repeat([]byte{'x'}, 2<<20)...)
	_, err = store.Save(KindAssignmentPDF, "stor.pdf", bytes.NewReader(big))
	typed = pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for oversized file got %v", err)
	}
}

func TestSaveSniffsContentNotExtension(t *testing.T) {
	store := testStore(t)

	// A text file renamed to .pdf still gets rejected.
	_, err := store.Save(KindAssignmentPDF, "notat.pdf", strings.NewReader("bare tekst"))
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for renamed text file got %v", err)
	}
}
