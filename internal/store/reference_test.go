package store

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/livability/internal/livability"
)

func snapshot(at time.Time) *livability.Reference {
	return &livability.Reference{
		Zips:     livability.NewZipIndex([]livability.ZipRecord{{Zipcode: 94103}}),
		Source:   "test",
		LoadedAt: at,
	}
}

func TestCurrentBeforeLoad(t *testing.T) {
	s := NewReferenceStore(10, 0)
	_, err := s.Current()
	assert.ErrorIs(t, err, ErrNotLoaded)
}

func TestSwapReplacesSnapshot(t *testing.T) {
	s := NewReferenceStore(10, 0)
	first := snapshot(time.Now())
	second := snapshot(time.Now())

	s.Swap(first)
	got, err := s.Current()
	require.NoError(t, err)
	assert.Same(t, first, got)

	s.Swap(second)
	got, err = s.Current()
	require.NoError(t, err)
	assert.Same(t, second, got)

	s.Swap(nil)
	got, _ = s.Current()
	assert.Same(t, second, got)

	h := s.History()
	require.Len(t, h, 2)
	assert.Equal(t, 1, h[1].Stats.Zipcodes)
}

func TestRecordFailureKeepsSnapshot(t *testing.T) {
	s := NewReferenceStore(10, 0)
	ref := snapshot(time.Now())
	s.Swap(ref)
	s.RecordFailure(errors.New("s3 unavailable"))

	got, err := s.Current()
	require.NoError(t, err)
	assert.Same(t, ref, got)

	h := s.History()
	require.Len(t, h, 2)
	assert.Equal(t, "s3 unavailable", h[1].Error)
	assert.Nil(t, h[1].Stats)
}

func TestHistoryRetention(t *testing.T) {
	s := NewReferenceStore(3, 0)
	for i := 0; i < 5; i++ {
		s.Swap(snapshot(time.Now()))
	}
	assert.Len(t, s.History(), 3)

	aged := NewReferenceStore(0, time.Hour)
	aged.Swap(snapshot(time.Now().Add(-3 * time.Hour)))
	aged.Swap(snapshot(time.Now().Add(-2 * time.Hour)))
	aged.Swap(snapshot(time.Now()))
	assert.Len(t, aged.History(), 1)

	stale := NewReferenceStore(0, time.Hour)
	stale.Swap(snapshot(time.Now().Add(-5 * time.Hour)))
	assert.Len(t, stale.History(), 1)
}

func TestConcurrentAccess(t *testing.T) {
	s := NewReferenceStore(5, 0)
	s.Swap(snapshot(time.Now()))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			s.Swap(snapshot(time.Now()))
		}()
		go func() {
			defer wg.Done()
			ref, err := s.Current()
			assert.NoError(t, err)
			assert.NotNil(t, ref)
		}()
	}
	wg.Wait()
	assert.Len(t, s.History(), 5)
}
