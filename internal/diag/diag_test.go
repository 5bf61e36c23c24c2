package diag

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestErrorWithExitCodePropagatesThroughWrap(t *testing.T) {
	cause := errors.New("wat2wasm exited with status 2")
	e := (&Error{Kind: Assembler, Path: "out.wasm", Message: "bad module"}).
		Wrap(cause).
		WithExitCode(2)

	require.Equal(t, 2, e.ExitCode)
	require.Equal(t, "bad module", e.Error())
	require.Equal(t, cause, errors.Unwrap(e))

	var de *Error
	require.True(t, errors.As(e, &de))
	require.Equal(t, Assembler, de.Kind)
	require.Equal(t, 2, de.ExitCode)
}

func TestErrorExitCodeDefaultsToZero(t *testing.T) {
	e := Errorf(Semantic, Position{}, "boom")
	require.Equal(t, 0, e.ExitCode)
}
