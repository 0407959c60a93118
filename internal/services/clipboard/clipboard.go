// Package clipboard places generated digests on the system clipboard.
package clipboard

import "github.com/atotto/clipboard"

// Copier copies digest text to the system clipboard.
type Copier interface {
	Copy(text string) error
}

// Service implements Copier. The write function is swappable so tests can
// observe copies without a real clipboard.
type Service struct {
	writeAll func(text string) error
}

// NewService constructs a Service backed by github.com/atotto/clipboard.
func NewService() *Service {
	return &Service{writeAll: clipboard.WriteAll}
}

// Copy places text on the system clipboard.
func (service *Service) Copy(text string) error {
	return service.writeAll(text)
}

var _ Copier = (*Service)(nil)
