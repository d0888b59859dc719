package scraper

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWithRetrySucceedsWithinBudget(t *testing.T) {
	attempts := 0
	result, err := WithRetry(3, time.Millisecond, func() (string, error) {
		attempts++
		if attempts < 3 {
			return "", &FetchError{URL: "x", Transient: true, Err: errors.New("timeout")}
		}
		return "content", nil
	})

	require.NoError(t, err)
	require.Equal(t, "content", result)
	require.Equal(t, 3, attempts)
}

func TestWithRetryStopsOnPermanentError(t *testing.T) {
	attempts := 0
	permanent := &FetchError{URL: "x", StatusCode: 404, Err: errors.New("gone")}

	_, err := WithRetry(3, time.Millisecond, func() (string, error) {
		attempts++
		return "", permanent
	})

	require.ErrorIs(t, err, permanent)
	require.Equal(t, 1, attempts)
}

func TestWithRetryExhaustsBudget(t *testing.T) {
	attempts := 0
	_, err := WithRetry(3, time.Millisecond, func() (string, error) {
		attempts++
		return "", &FetchError{URL: "x", Transient: true, Err: errors.New("timeout")}
	})

	require.Error(t, err)
	require.True(t, IsTransient(err))
	require.Equal(t, 3, attempts)
}
