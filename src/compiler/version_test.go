package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectVersion(t *testing.T) {
	tests := []struct {
		name    string
		source  string
		def     string
		want    string
		wantErr bool
	}{
		{name: "pragma with caret", source: "# pragma version ^0.4.0\n", want: "0.4.0"},
		{name: "pragma exact", source: "#pragma version 0.4.1\n", want: "0.4.1"},
		{name: "pragma range", source: "# pragma version >=0.3.10\n", want: "0.3.10"},
		{name: "legacy at-version", source: "# @version 0.3.7\n", want: "0.3.7"},
		{name: "pragma later in file", source: "# a comment\n# pragma version ^0.4.0\n", want: "0.4.0"},
		{name: "no pragma with default", source: "x: uint256\n", def: "0.4.0", want: "0.4.0"},
		{name: "no pragma no default", source: "x: uint256\n", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DetectVersion(tt.source, tt.def)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrVersionNotFound)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
