package research

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

const rawPreviewLen = 500

var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidationError reports LLM output that does not match a stage's schema.
// Raw holds the start of the offending payload.
type ValidationError struct {
	Stage string
	Raw   string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("research: %s output failed validation: %v", e.Stage, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// decodeStrict decodes raw into T, rejecting unknown fields and missing keys,
// and runs the struct validation tags.
func decodeStrict[T any](stage string, raw json.RawMessage) (*T, error) {
	var out T
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&out); err != nil {
		return nil, &ValidationError{Stage: stage, Raw: preview(raw), Err: err}
	}
	var tree any
	if err := json.Unmarshal(raw, &tree); err != nil {
		return nil, &ValidationError{Stage: stage, Raw: preview(raw), Err: err}
	}
	if err := requireKeys(reflect.TypeOf(out), tree, ""); err != nil {
		return nil, &ValidationError{Stage: stage, Raw: preview(raw), Err: err}
	}
	if err := validate.Struct(&out); err != nil {
		return nil, &ValidationError{Stage: stage, Raw: preview(raw), Err: err}
	}
	return &out, nil
}

// requireKeys walks the decoded JSON alongside t and reports the first
// object key that t declares without omitempty but the payload lacks.
// Empty values are allowed; only absence is an error.
func requireKeys(t reflect.Type, v any, path string) error {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.Struct:
		obj, ok := v.(map[string]any)
		if !ok {
			return nil
		}
		return requireStructKeys(t, obj, path)
	case reflect.Slice, reflect.Array:
		items, ok := v.([]any)
		if !ok {
			return nil
		}
		for i, item := range items {
			if err := requireKeys(t.Elem(), item, fmt.Sprintf("%s[%d]", path, i)); err != nil {
				return err
			}
		}
	}
	return nil
}

func requireStructKeys(t reflect.Type, obj map[string]any, path string) error {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		tag := f.Tag.Get("json")
		if tag == "-" {
			continue
		}
		name, opts, _ := strings.Cut(tag, ",")
		if f.Anonymous && name == "" {
			if err := requireKeys(f.Type, obj, path); err != nil {
				return err
			}
			continue
		}
		if !f.IsExported() {
			continue
		}
		if name == "" {
			name = f.Name
		}
		key := joinKey(path, name)
		child, ok := lookupKey(obj, name)
		if !ok {
			if hasOption(opts, "omitempty") {
				continue
			}
			return fmt.Errorf("missing key %q", key)
		}
		if err := requireKeys(f.Type, child, key); err != nil {
			return err
		}
	}
	return nil
}

// lookupKey matches the way encoding/json resolves field names: exact first,
// then case-insensitive.
func lookupKey(obj map[string]any, name string) (any, bool) {
	if v, ok := obj[name]; ok {
		return v, true
	}
	for k, v := range obj {
		if strings.EqualFold(k, name) {
			return v, true
		}
	}
	return nil, false
}

func hasOption(opts, want string) bool {
	for opts != "" {
		var o string
		o, opts, _ = strings.Cut(opts, ",")
		if o == want {
			return true
		}
	}
	return false
}

func joinKey(path, name string) string {
	if path == "" {
		return name
	}
	return path + "." + name
}

func preview(raw []byte) string {
	if len(raw) <= rawPreviewLen {
		return string(raw)
	}
	return string(raw[:rawPreviewLen])
}
