package failure

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKindOf(t *testing.T) {
	err := New(KindBackend, "boom")
	require.Equal(t, KindBackend, KindOf(err))
	require.Equal(t, Kind(""), KindOf(errors.New("plain")))
	require.Equal(t, Kind(""), KindOf(nil))
}

func TestKindSurvivesWrapping(t *testing.T) {
	inner := New(KindPermissionDenied, "denied")
	outer := fmt.Errorf("enable: %w", inner)
	require.True(t, IsKind(outer, KindPermissionDenied))
	require.Equal(t, KindPermissionDenied, KindOf(outer))
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(cause, KindTransientProvider, "mint token")
	require.ErrorIs(t, err, cause)
	require.Contains(t, err.Error(), "mint token")
	require.Contains(t, err.Error(), "connection refused")
}

func TestIsTerminal(t *testing.T) {
	require.True(t, IsTerminal(New(KindPermissionDenied, "no")))
	require.True(t, IsTerminal(New(KindUnsupported, "no")))
	require.False(t, IsTerminal(New(KindTransientProvider, "retry me")))
	require.False(t, IsTerminal(New(KindBackend, "http 500")))
	require.False(t, IsTerminal(errors.New("plain")))
}
