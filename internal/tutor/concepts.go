package tutor

import "github.com/pavelanni/tutor/internal/model"

// ConceptExtractor finds concept names taught in an assistant reply.
type ConceptExtractor interface {
	Extract(session model.Session, reply string) []string
}

// NopExtractor never reports concepts, so concepts_covered stays as created.
type NopExtractor struct{}

// Extract returns nil.
func (NopExtractor) Extract(model.Session, string) []string { return nil }
