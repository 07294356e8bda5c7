package manifest

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/reglet-dev/reglet-xll/oper"
	"github.com/reglet-dev/reglet-xll/udf"
)

// validate is a package-level singleton; building a validator is expensive.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()

	// Report fields by their file key rather than the Go name.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	mustRegister(v, "xlsig", func(fl validator.FieldLevel) bool {
		_, err := udf.ParseSignature(fl.Field().String())
		return err == nil
	})
	mustRegister(v, "encoding", func(fl validator.FieldLevel) bool {
		_, err := oper.EncodingByName(fl.Field().String())
		return err == nil
	})

	v.RegisterStructValidation(validateFunction, Function{})
	v.RegisterStructValidation(validateManifest, Manifest{})
	return v
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(err)
	}
}

// validateFunction checks that documented arguments match the signature.
func validateFunction(sl validator.StructLevel) {
	f := sl.Current().Interface().(Function)
	sig, err := udf.ParseSignature(f.Signature)
	if err != nil || len(f.Args) == 0 {
		return
	}
	if len(f.Args) != len(sig.Args) {
		sl.ReportError(f.Args, "args", "Args", "argcount", strconv.Itoa(len(sig.Args)))
	}
}

// validateManifest rejects function names that differ only in case.
func validateManifest(sl validator.StructLevel) {
	m := sl.Current().Interface().(Manifest)
	seen := make(map[string]bool, len(m.Functions))
	for i, f := range m.Functions {
		key := strings.ToUpper(f.Name)
		if seen[key] {
			sl.ReportError(f.Name, fmt.Sprintf("functions[%d].name", i), "Name", "unique", "")
		}
		seen[key] = true
	}
}

// FieldError is one validation failure.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError lists every validation failure of a manifest.
type ValidationError struct {
	Errors []FieldError
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	b.WriteString("manifest validation failed:")
	for _, fe := range e.Errors {
		fmt.Fprintf(&b, "\n- %s: %s", fe.Field, fe.Message)
	}
	return b.String()
}

// Validate checks m against its field rules. It returns a *ValidationError
// listing every failure.
func (m *Manifest) Validate() error {
	err := validate.Struct(m)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("manifest validation failed: %w", err)
	}
	out := &ValidationError{}
	for _, fe := range verrs {
		out.Errors = append(out.Errors, FieldError{
			Field:   fieldPath(fe.Namespace()),
			Message: message(fe),
		})
	}
	return out
}

// fieldPath drops the root struct name from a namespace.
func fieldPath(ns string) string {
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return ns
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "xlsig":
		_, err := udf.ParseSignature(fmt.Sprint(fe.Value()))
		return err.Error()
	case "encoding":
		return fmt.Sprintf("unknown encoding %q", fe.Value())
	case "oneof":
		return "must be one of: " + fe.Param()
	case "max":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("must have at most %s entries", fe.Param())
		}
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "min":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("must have at least %s entries", fe.Param())
		}
		return "must be at least " + fe.Param()
	case "argcount":
		return fmt.Sprintf("signature declares %s arguments", fe.Param())
	case "unique":
		return fmt.Sprintf("duplicate function name %q", fe.Value())
	default:
		return fmt.Sprintf("failed %q validation", fe.Tag())
	}
}
