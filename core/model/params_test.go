package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/autotune/pkg/errors"
)

func TestParamConversions(t *testing.T) {
	n, err := ParamInt("max_depth", 5.0)
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	n, err = ParamInt("max_depth", nil)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	_, err = ParamInt("max_depth", 2.5)
	var valErr *errors.ValidationError
	require.True(t, errors.As(err, &valErr))
	assert.Equal(t, "max_depth", valErr.ParamName)

	f, err := ParamFloat("alpha", 3)
	require.NoError(t, err)
	assert.Equal(t, 3.0, f)
	_, err = ParamFloat("alpha", "big")
	assert.Error(t, err)

	s, err := ParamString("weights", "distance")
	require.NoError(t, err)
	assert.Equal(t, "distance", s)
	_, err = ParamString("weights", 1)
	assert.Error(t, err)

	b, err := ParamBool("fit_intercept", true)
	require.NoError(t, err)
	assert.True(t, b)

	assert.Error(t, UnknownParam("Ridge", "gamma"))
}
