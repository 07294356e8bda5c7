package udf

import (
	"errors"
	"fmt"
	"strings"
)

// MacroType selects how the host lists a registered procedure.
type MacroType int

const (
	// MacroHidden registers a function that is callable but not listed.
	MacroHidden MacroType = 0
	// MacroFunction registers a worksheet function.
	MacroFunction MacroType = 1
	// MacroCommand registers a command.
	MacroCommand MacroType = 2
)

func (m MacroType) String() string {
	switch m {
	case MacroHidden:
		return "hidden"
	case MacroFunction:
		return "function"
	case MacroCommand:
		return "command"
	default:
		return fmt.Sprintf("MacroType(%d)", int(m))
	}
}

// Definition is the registration metadata of one procedure. Field order
// follows the arguments of the host's register call.
type Definition struct {
	// Procedure is the exported symbol the host calls.
	Procedure string
	// Signature lists the return type followed by one type code per argument,
	// e.g. "QQQ$".
	Signature string
	// Name is the worksheet name of the function. Defaults to Procedure.
	Name string
	// ArgNames is the comma separated argument list shown by the function
	// wizard.
	ArgNames  string
	MacroType MacroType
	Category  string
	Shortcut  string
	Topic     string
	Help      string
	ArgHelp   []string
}

// WorksheetName returns Name, or Procedure when Name is empty.
func (d Definition) WorksheetName() string {
	if d.Name != "" {
		return d.Name
	}
	return d.Procedure
}

// MaxArgHelp is the number of argument help strings that fit in one register
// call: the host accepts 255 arguments and ten of them are fixed.
const MaxArgHelp = 255 - 10

// ArgCount returns the number of arguments declared by the signature, or -1
// if the signature does not parse.
func (d Definition) ArgCount() int {
	sig, err := ParseSignature(d.Signature)
	if err != nil {
		return -1
	}
	return len(sig.Args)
}

// Validate checks the fields the host rejects.
func (d Definition) Validate() error {
	var errs []error
	if d.Procedure == "" {
		errs = append(errs, errors.New("procedure is required"))
	}
	sig, err := ParseSignature(d.Signature)
	if err != nil {
		errs = append(errs, err)
	} else if len(d.ArgHelp) > len(sig.Args) {
		errs = append(errs, fmt.Errorf("%d argument help strings for %d arguments", len(d.ArgHelp), len(sig.Args)))
	}
	if len(d.ArgHelp) > MaxArgHelp {
		errs = append(errs, fmt.Errorf("%d argument help strings exceed %d", len(d.ArgHelp), MaxArgHelp))
	}
	if d.MacroType < MacroHidden || d.MacroType > MacroCommand {
		errs = append(errs, fmt.Errorf("invalid macro type %d", int(d.MacroType)))
	}
	if len([]rune(d.Shortcut)) > 1 {
		errs = append(errs, fmt.Errorf("shortcut %q must be a single character", d.Shortcut))
	}
	if len(errs) > 0 {
		return fmt.Errorf("definition %q: %w", d.WorksheetName(), errors.Join(errs...))
	}
	return nil
}

// Signature is a parsed type text.
type Signature struct {
	Return string
	Args   []string
	// Volatile functions recalculate on every recalculation ("!").
	Volatile bool
	// MacroEquivalent functions may call macro-sheet functions ("#").
	MacroEquivalent bool
	// ThreadSafe functions may run on several calculation threads ("$").
	ThreadSafe bool
	// ClusterSafe functions may be offloaded to a compute cluster ("&").
	ClusterSafe bool
}

// Type codes accepted in a signature. Codes in wideCodes may be followed by
// "%" to select their wide form.
const (
	typeCodes = "ABCDEFGHIJKLMNOPQRUX"
	wideCodes = "CDFGK"
	modifiers = "!#$&"
)

// ParseSignature splits a signature into its return and argument type codes
// and trailing modifiers.
func ParseSignature(s string) (Signature, error) {
	var sig Signature
	var codes []string

	i := 0
	for i < len(s) && !strings.ContainsRune(modifiers, rune(s[i])) {
		c := s[i]
		if !strings.ContainsRune(typeCodes, rune(c)) {
			return Signature{}, fmt.Errorf("signature %q: invalid type code %q at %d", s, c, i)
		}
		code := string(c)
		if i+1 < len(s) && s[i+1] == '%' {
			if !strings.ContainsRune(wideCodes, rune(c)) {
				return Signature{}, fmt.Errorf("signature %q: type %q has no wide form", s, c)
			}
			code += "%"
			i++
		}
		codes = append(codes, code)
		i++
	}
	for ; i < len(s); i++ {
		switch s[i] {
		case '!':
			sig.Volatile = true
		case '#':
			sig.MacroEquivalent = true
		case '$':
			sig.ThreadSafe = true
		case '&':
			sig.ClusterSafe = true
		default:
			return Signature{}, fmt.Errorf("signature %q: type code %q after modifiers", s, s[i])
		}
	}

	if len(codes) == 0 {
		return Signature{}, fmt.Errorf("signature %q: missing return type", s)
	}
	// The host accepts at most 255 arguments.
	if len(codes)-1 > 255 {
		return Signature{}, fmt.Errorf("signature %q: %d arguments exceed 255", s, len(codes)-1)
	}
	sig.Return = codes[0]
	sig.Args = codes[1:]
	return sig, nil
}

// String reassembles the type text.
func (s Signature) String() string {
	var b strings.Builder
	b.WriteString(s.Return)
	for _, a := range s.Args {
		b.WriteString(a)
	}
	if s.Volatile {
		b.WriteByte('!')
	}
	if s.MacroEquivalent {
		b.WriteByte('#')
	}
	if s.ThreadSafe {
		b.WriteByte('$')
	}
	if s.ClusterSafe {
		b.WriteByte('&')
	}
	return b.String()
}
