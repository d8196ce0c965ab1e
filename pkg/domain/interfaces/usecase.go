package interfaces

import (
	"context"

	"github.com/ccdrover/ccdrover/pkg/domain/model"
)

// CaseChecker decides whether a case is still interesting: the marker
// survives under the bad setting and dies under every good one
type CaseChecker interface {
	IsInteresting(ctx context.Context, c *model.Case) (bool, error)
}

// CaseLister feeds the HTTP controller with stored cases
type CaseLister interface {
	GetCase(ctx context.Context, id string) (*model.CaseRecord, error)
	ListCases(ctx context.Context) ([]*model.CaseRecord, error)
}
