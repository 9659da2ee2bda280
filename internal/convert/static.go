// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"context"
	"sync"

	"github.com/pdiddy/paper-reader/pkg/types"
)

// StaticParser is an in-process StructuralParser that returns a fixed
// document. It stands in for the remote service in offline runs and tests.
type StaticParser struct {
	Document   types.StructuredDocument
	TriggerErr error
	ResultErr  error

	mu       sync.Mutex
	triggers []string
}

// Trigger records the submitted path and returns TriggerErr.
func (s *StaticParser) Trigger(_ context.Context, sourcePath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.triggers = append(s.triggers, sourcePath)
	return s.TriggerErr
}

// Result returns Document, or ResultErr when set.
func (s *StaticParser) Result(context.Context) (types.StructuredDocument, error) {
	if s.ResultErr != nil {
		return types.StructuredDocument{}, s.ResultErr
	}
	return s.Document, nil
}

// Triggered returns the paths passed to Trigger so far.
func (s *StaticParser) Triggered() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.triggers...)
}
