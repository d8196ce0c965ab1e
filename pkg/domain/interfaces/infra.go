package interfaces

import (
	"context"

	"github.com/ccdrover/ccdrover/pkg/domain/model"
)

// CaseStore persists found cases and their pipeline timings
type CaseStore interface {
	PutCase(ctx context.Context, c *model.Case) (string, error)
	UpdateCase(ctx context.Context, id string, c *model.Case) error
	GetCase(ctx context.Context, id string) (*model.CaseRecord, error)
	ListCases(ctx context.Context) ([]*model.CaseRecord, error)
	RecordTiming(ctx context.Context, caseID string, t *model.Timings) error
	GetTiming(ctx context.Context, caseID string) (*model.Timings, error)
	Close() error
}

// CompilerProvider resolves a compiler revision to an executable path
type CompilerProvider interface {
	Provide(ctx context.Context, project model.CompilerProject, rev string) (string, error)
}

// Notifier announces newly found cases
type Notifier interface {
	NotifyNewCase(ctx context.Context, rec *model.CaseRecord) error
}
