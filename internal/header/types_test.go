package header

import (
	"testing"

	"github.com/retroenv/retrogolib/assert"
)

func TestProgramTypeString(t *testing.T) {
	tests := []struct {
		typ  ProgramType
		want string
	}{
		{Program, "program"},
		{EditLockedProgram, "locked"},
		{Group, "group"},
		{FlashApplication, "app"},
		{ProgramType(0x00), "unknown(0x00)"},
		{ProgramType(0xFC), "unknown(0xFC)"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.typ.String())
			assert.Equal(t, tt.typ.Known(), tt.want[0] != 'u')
		})
	}
}

func TestParseProgramType(t *testing.T) {
	for _, typ := range []ProgramType{Program, EditLockedProgram, Group, FlashApplication} {
		got, err := ParseProgramType(typ.String())
		assert.NoError(t, err)
		assert.Equal(t, typ, got)
	}

	got, err := ParseProgramType(" APP ")
	assert.NoError(t, err)
	assert.Equal(t, FlashApplication, got)

	_, err = ParseProgramType("basic")
	assert.ErrorContains(t, err, "unsupported program type")
}
