package header

import (
	"fmt"
	"strings"
)

// ProgramType is the type tag of a program record. Values that are not
// listed below are kept as they are and reported as unknown.
type ProgramType uint8

// Known program types.
const (
	Program           ProgramType = 0x05
	EditLockedProgram ProgramType = 0x06
	Group             ProgramType = 0x17
	FlashApplication  ProgramType = 0x24
)

var programTypeNames = map[ProgramType]string{
	Program:           "program",
	EditLockedProgram: "locked",
	Group:             "group",
	FlashApplication:  "app",
}

// Known returns whether the type is one of the known program types.
func (t ProgramType) Known() bool {
	_, ok := programTypeNames[t]
	return ok
}

func (t ProgramType) String() string {
	if name, ok := programTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("unknown(0x%02X)", uint8(t))
}

// ParseProgramType parses a program type name as returned by String.
func ParseProgramType(s string) (ProgramType, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for typ, name := range programTypeNames {
		if name == s {
			return typ, nil
		}
	}
	return 0, fmt.Errorf("unsupported program type '%s'", s)
}
