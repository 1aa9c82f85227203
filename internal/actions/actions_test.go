package actions

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/openclaw/fleet-worker-go/internal/model"
	"github.com/openclaw/fleet-worker-go/internal/service"
	"github.com/openclaw/fleet-worker-go/internal/session"
)

type mockPerformer struct {
	mock.Mock
}

func (m *mockPerformer) Discover(ctx context.Context, s session.Session, class string) ([]string, error) {
	args := m.Called(ctx, s, class)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *mockPerformer) Perform(ctx context.Context, s session.Session, verb string, resourceID string) error {
	args := m.Called(ctx, s, verb, resourceID)
	return args.Error(0)
}

func newRunContext(t *testing.T, remainder string) *service.RunContext {
	t.Helper()
	s, err := session.NewLocalProvider().Acquire(context.Background(), "acc-1", nil)
	require.NoError(t, err)
	return &service.RunContext{
		Session:   s,
		Pool:      service.NewResourcePool(16, time.Hour),
		Remainder: remainder,
		Skip:      func(string) bool { return false },
		Logger:    zerolog.Nop(),
	}
}

func groupPost() service.Candidate {
	return service.Candidate{Kind: model.ActionKind{Code: "post:group", Weight: 1, QuotaClass: "group_post"}}
}

func TestFamily_ExecuteWithPooledResource(t *testing.T) {
	ctx := context.Background()
	rc := newRunContext(t, "group")
	performer := new(mockPerformer)
	performer.On("Perform", ctx, rc.Session, "group", "g7").Return(nil)

	c := groupPost()
	c.ResourceID = "g7"
	result := NewFamily(performer, session.CapabilityBrowser).Execute(ctx, model.Account{ID: "acc-1"}, rc, c)

	assert.True(t, result.Success)
	assert.Equal(t, "g7", result.ResourceID)
	performer.AssertExpectations(t)
	performer.AssertNotCalled(t, "Discover", mock.Anything, mock.Anything, mock.Anything)
}

func TestFamily_ExecuteDiscoversIntoPool(t *testing.T) {
	ctx := context.Background()
	rc := newRunContext(t, "group")
	rc.Skip = func(id string) bool { return id == "g1" }
	performer := new(mockPerformer)
	performer.On("Discover", ctx, rc.Session, "group_post").Return([]string{"g1", "g2"}, nil)
	performer.On("Perform", ctx, rc.Session, "group", "g2").Return(nil)

	result := NewFamily(performer).Execute(ctx, model.Account{ID: "acc-1"}, rc, groupPost())

	assert.True(t, result.Success)
	assert.Equal(t, "g2", result.ResourceID)
	assert.Equal(t, 2, rc.Pool.Len("group_post"))
	performer.AssertExpectations(t)
}

func TestFamily_ExecuteFailures(t *testing.T) {
	ctx := context.Background()

	t.Run("resource rejected", func(t *testing.T) {
		rc := newRunContext(t, "group")
		performer := new(mockPerformer)
		performer.On("Perform", ctx, rc.Session, "group", "g1").
			Return(fmt.Errorf("posting closed: %w", ErrResourceRejected))

		c := groupPost()
		c.ResourceID = "g1"
		result := NewFamily(performer).Execute(ctx, model.Account{ID: "acc-1"}, rc, c)

		assert.False(t, result.Success)
		assert.True(t, result.ResourceFailed)
		assert.Equal(t, "g1", result.ResourceID)
	})

	t.Run("generic failure is not blamed on the resource", func(t *testing.T) {
		rc := newRunContext(t, "group")
		performer := new(mockPerformer)
		performer.On("Perform", ctx, rc.Session, "group", "g1").Return(errors.New("timeout"))

		c := groupPost()
		c.ResourceID = "g1"
		result := NewFamily(performer).Execute(ctx, model.Account{ID: "acc-1"}, rc, c)

		assert.False(t, result.Success)
		assert.False(t, result.ResourceFailed)
		assert.Equal(t, "timeout", result.Reason)
	})

	t.Run("nothing discovered", func(t *testing.T) {
		rc := newRunContext(t, "group")
		performer := new(mockPerformer)
		performer.On("Discover", ctx, rc.Session, "group_post").Return(nil, nil)

		result := NewFamily(performer).Execute(ctx, model.Account{ID: "acc-1"}, rc, groupPost())

		assert.False(t, result.Success)
		assert.Empty(t, result.ResourceID)
	})

	t.Run("discovery error", func(t *testing.T) {
		rc := newRunContext(t, "group")
		performer := new(mockPerformer)
		performer.On("Discover", ctx, rc.Session, "group_post").Return(nil, errors.New("page did not load"))

		result := NewFamily(performer).Execute(ctx, model.Account{ID: "acc-1"}, rc, groupPost())

		assert.False(t, result.Success)
		assert.Contains(t, result.Reason, "page did not load")
	})
}

func TestFamily_VerifyReadiness(t *testing.T) {
	ctx := context.Background()
	f := NewFamily(LogPerformer{}, session.CapabilityBrowser)
	assert.True(t, f.Requirements().Has(session.CapabilityBrowser))

	rc := newRunContext(t, "group")
	assert.True(t, f.VerifyReadiness(ctx, model.Account{}, rc).Ready)

	rc.Remainder = ""
	readiness := f.VerifyReadiness(ctx, model.Account{}, rc)
	assert.False(t, readiness.Ready)
	assert.True(t, readiness.Critical)

	rc = newRunContext(t, "group")
	rc.Session.(*session.LocalSession).Terminate()
	readiness = f.VerifyReadiness(ctx, model.Account{}, rc)
	assert.False(t, readiness.Ready)
	assert.True(t, readiness.Critical)
}

func TestRest(t *testing.T) {
	ctx := context.Background()
	rc := newRunContext(t, "")
	rest := &Rest{}

	assert.Empty(t, rest.Requirements())
	assert.True(t, rest.VerifyReadiness(ctx, model.Account{}, rc).Ready)
	assert.True(t, rest.Execute(ctx, model.Account{}, rc, service.Candidate{}).Success)

	dwell := &Rest{Dwell: 10 * time.Millisecond}
	assert.True(t, dwell.Execute(ctx, model.Account{}, rc, service.Candidate{}).Success)

	long := &Rest{Dwell: time.Hour}
	rc.Session.(*session.LocalSession).Terminate()
	result := long.Execute(ctx, model.Account{}, rc, service.Candidate{})
	assert.False(t, result.Success)
}

func TestFamily_LogPerformerDryRun(t *testing.T) {
	f := NewFamily(LogPerformer{}, session.CapabilityBrowser)
	rc := newRunContext(t, "scroll")
	c := service.Candidate{Kind: model.ActionKind{Code: "feed:scroll", Weight: 1}}

	result := f.Execute(context.Background(), model.Account{}, rc, c)

	assert.True(t, result.Success)
	assert.Equal(t, "dry-run:scroll", result.ResourceID)
	assert.Equal(t, 1, rc.Pool.Len("scroll"))
}
