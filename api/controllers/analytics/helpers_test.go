package analytics

import (
	"context"

	"github.com/angelmondragon/dealercrm-backend/internal/funnel"
)

type testFunnelService struct {
	last   funnel.Params
	calls  int
	report *funnel.Report
	err    error
}

func (s *testFunnelService) Aggregate(ctx context.Context, params funnel.Params) (*funnel.Report, error) {
	s.calls++
	s.last = params
	if s.err != nil {
		return nil, s.err
	}
	if s.report == nil {
		s.report = &funnel.Report{}
	}
	return s.report, nil
}
