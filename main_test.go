// Copyright ©2022 Evolution. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Tests for top level command dispatch.
package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_root_Negative(t *testing.T) {
	tests := map[string]struct {
		args    []string
		wantMsg string
	}{
		"No command": {
			args:    []string{},
			wantMsg: "please, specify command",
		},
		"Unknown command": {
			args:    []string{"frobnicate"},
			wantMsg: "unknown command/flag",
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			err := root(tc.args)
			require.Error(t, err)

			appErr, ok := err.(*AppError)
			require.True(t, ok, "Expecting error of type AppError, got %T", err)
			assert.Equal(t, exitCodeUsageError, appErr.ExitCode())
			assert.ErrorContains(t, err, tc.wantMsg)
		})
	}
}

func Test_root_Version(t *testing.T) {
	assert.NoError(t, root([]string{"version"}))
}
