package scheduler

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeJob struct {
	name string
	ran  int
	err  error
}

func (f *fakeJob) Name() string { return f.name }
func (f *fakeJob) Run() error {
	f.ran++
	return f.err
}

func TestRunNowInvokesJobImmediately(t *testing.T) {
	s := New(zerolog.Nop())
	job := &fakeJob{name: "test"}

	err := s.RunNow(job)
	require.NoError(t, err)
	assert.Equal(t, 1, job.ran)
}

func TestAddJobRejectsInvalidSchedule(t *testing.T) {
	s := New(zerolog.Nop())
	err := s.AddJob("not a cron expression", &fakeJob{name: "test"})
	require.Error(t, err)
}

func TestRunNowPropagatesJobError(t *testing.T) {
	s := New(zerolog.Nop())
	job := &fakeJob{name: "failing", err: errors.New("boom")}

	err := s.RunNow(job)
	require.Error(t, err)
}
