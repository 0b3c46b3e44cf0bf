package index

import "github.com/starford/wikiplugin/internal/models"

// NoteIndex defines the interface for note indexing operations.
type NoteIndex interface {
	UpsertNote(n models.IndexedNote, body string) error
	DeleteNote(path string) error
	GetChecksum(path string) (string, error)
	GetNote(path string) (*models.IndexedNote, error)
	NotesWithTag(tag string) ([]models.IndexedNote, error)
	Search(query string, limit int) ([]SearchResult, error)
	AllChecksums() (map[string]string, error)
	Close() error
}

var _ NoteIndex = (*DB)(nil)
