// Package storage defines the wiki file-system abstraction.
package storage

import "github.com/starford/wikiplugin/internal/models"

// Provider is the interface for wiki file operations. Paths are relative to
// the wiki home.
type Provider interface {
	// Root returns the absolute wiki home the provider is rooted at.
	Root() string
	// List returns every .md file under dir in lexical walk order.
	List(dir string) ([]models.NoteFile, error)
	// Exists reports whether a file exists at path.
	Exists(path string) (bool, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Write atomically writes content to path, creating parent directories.
	Write(path string, content []byte) error
	// Delete removes the file at path.
	Delete(path string) error
}
