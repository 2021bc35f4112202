package xpipe

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// DialectFamily groups shell dialects by their quoting rules.
type DialectFamily int

const (
	FamilyPosix DialectFamily = iota
	FamilyCmd
	FamilyPowerShell
)

func (f DialectFamily) String() string {
	switch f {
	case FamilyCmd:
		return "cmd"
	case FamilyPowerShell:
		return "powershell"
	default:
		return "posix"
	}
}

// ShellDialect identifies the remote shell. The daemon reports it either as
// a numeric id, as a name, or as an object carrying both.
type ShellDialect struct {
	ID   int    `json:"id"`
	Name string `json:"name,omitempty"`
}

func (d *ShellDialect) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*d = ShellDialect{}
		return nil
	case data[0] == '"':
		var name string
		if err := json.Unmarshal(data, &name); err != nil {
			return err
		}
		*d = ShellDialect{Name: name}
		return nil
	case data[0] == '{':
		type plain ShellDialect
		var p plain
		if err := json.Unmarshal(data, &p); err != nil {
			return err
		}
		*d = ShellDialect(p)
		return nil
	default:
		id, err := strconv.Atoi(string(data))
		if err != nil {
			return fmt.Errorf("xpipe: invalid shell dialect %s", data)
		}
		*d = ShellDialect{ID: id}
		return nil
	}
}

func (d ShellDialect) String() string {
	if d.Name != "" {
		return d.Name
	}
	return strconv.Itoa(d.ID)
}

// Family derives the quoting family from the dialect name. ok is false when
// the name is empty or unrecognised.
func (d ShellDialect) Family() (family DialectFamily, ok bool) {
	name := strings.ToLower(d.Name)
	switch {
	case name == "":
		return FamilyPosix, false
	case strings.Contains(name, "powershell"), strings.Contains(name, "pwsh"):
		return FamilyPowerShell, true
	case name == "cmd", strings.HasPrefix(name, "cmd"):
		return FamilyCmd, true
	case strings.Contains(name, "sh"), name == "fish", name == "nushell":
		return FamilyPosix, true
	}
	return FamilyPosix, false
}

// QuoteForExec quotes path so that passing the result to Exec runs the file.
func QuoteForExec(family DialectFamily, path string) string {
	switch family {
	case FamilyCmd:
		return `"` + strings.ReplaceAll(path, `"`, "") + `"`
	case FamilyPowerShell:
		return "& '" + strings.ReplaceAll(path, "'", "''") + "'"
	default:
		return "'" + strings.ReplaceAll(path, "'", `'\''`) + "'"
	}
}
