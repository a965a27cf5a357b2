package rategate

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"custodia/internal/autoverify/models"
)

type RateGateSuite struct {
	suite.Suite
	gate *InMemory
	ctx  context.Context
	now  time.Time
}

func TestRateGateSuite(t *testing.T) {
	suite.Run(t, new(RateGateSuite))
}

func (s *RateGateSuite) SetupTest() {
	s.gate = NewInMemory()
	s.ctx = context.Background()
	s.now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
}

func (s *RateGateSuite) TestCeiling() {
	for i := 0; i < 3; i++ {
		allowed, err := s.gate.Reserve(s.ctx, 1, models.TriggerTimeBased, s.now, 3)
		s.Require().NoError(err)
		s.True(allowed)
	}
	allowed, err := s.gate.Reserve(s.ctx, 1, models.TriggerTimeBased, s.now, 3)
	s.Require().NoError(err)
	s.False(allowed)

	// Other documents are unaffected.
	allowed, err = s.gate.Reserve(s.ctx, 2, models.TriggerTimeBased, s.now, 3)
	s.Require().NoError(err)
	s.True(allowed)
}

func (s *RateGateSuite) TestImplicitReset() {
	allowed, err := s.gate.Reserve(s.ctx, 1, models.TriggerTimeBased, s.now, 1)
	s.Require().NoError(err)
	s.True(allowed)

	// Still inside the window.
	allowed, err = s.gate.Reserve(s.ctx, 1, models.TriggerTimeBased, s.now.Add(Window), 1)
	s.Require().NoError(err)
	s.False(allowed)

	// Past the window the counter resets.
	allowed, err = s.gate.Reserve(s.ctx, 1, models.TriggerConsensusBased, s.now.Add(Window+time.Second), 1)
	s.Require().NoError(err)
	s.True(allowed)
}

func (s *RateGateSuite) TestHistory() {
	_, err := s.gate.Reserve(s.ctx, 1, models.TriggerTimeBased, s.now, 5)
	s.Require().NoError(err)
	_, err = s.gate.Reserve(s.ctx, 1, models.TriggerConsensusBased, s.now.Add(time.Hour), 5)
	s.Require().NoError(err)

	history, err := s.gate.History(s.ctx, 1)
	s.Require().NoError(err)
	s.Require().Len(history, 2)
	s.Equal(models.TriggerTimeBased, history[0].Kind)
	s.Equal(models.TriggerConsensusBased, history[1].Kind)

	// Denied reservations leave no trace.
	history, err = s.gate.History(s.ctx, 2)
	s.Require().NoError(err)
	s.Empty(history)
}
