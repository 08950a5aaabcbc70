package main

import (
	"bytes"
	"flag"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	var stderr bytes.Buffer

	opts, err := parseFlags(nil, &stderr)
	require.NoError(t, err)
	assert.False(t, opts.record)

	opts, err = parseFlags([]string{"-record"}, &stderr)
	require.NoError(t, err)
	assert.True(t, opts.record)

	_, err = parseFlags([]string{"-bogus"}, &stderr)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, flag.ErrHelp)
}
