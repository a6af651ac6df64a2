package rules

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/jonesrussell/north-cloud/huginn/internal/models"
)

// Source provides the active rules and profiles.
type Source interface {
	ActiveForbiddenWords(ctx context.Context) ([]models.ForbiddenWord, error)
	ActiveMCCCodes(ctx context.Context) ([]models.MCCCode, error)
}

// Snapshot is an immutable copy of the rule set taken when a run starts.
// Edits made while the run is in flight never reach it.
type Snapshot struct {
	Words    []models.ForbiddenWord
	Profiles []models.MCCCode
	TakenAt  time.Time
}

// TakeSnapshot copies the active rules and profiles out of src.
func TakeSnapshot(ctx context.Context, src Source) (*Snapshot, error) {
	words, err := src.ActiveForbiddenWords(ctx)
	if err != nil {
		return nil, fmt.Errorf("load forbidden words: %w", err)
	}
	profiles, err := src.ActiveMCCCodes(ctx)
	if err != nil {
		return nil, fmt.Errorf("load mcc codes: %w", err)
	}

	snap := &Snapshot{
		Words:    slices.Clone(words),
		Profiles: make([]models.MCCCode, len(profiles)),
		TakenAt:  time.Now().UTC(),
	}
	for i, p := range profiles {
		p.Keywords = slices.Clone(p.Keywords)
		p.Tags = slices.Clone(p.Tags)
		snap.Profiles[i] = p
	}
	return snap, nil
}
