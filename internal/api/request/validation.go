package request

import (
	"encoding/json"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/edvin/filevault/internal/model"
)

var validate = validator.New()

func init() {
	// kind validates a storage backend kind.
	validate.RegisterValidation("kind", func(fl validator.FieldLevel) bool {
		return model.ValidKind(fl.Field().String())
	})
}

func Decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	if err := validate.Struct(v); err != nil {
		return fmt.Errorf("validation error: %w", err)
	}
	return nil
}

func RequireID(s string) (string, error) {
	if s == "" {
		return "", fmt.Errorf("missing required ID")
	}
	return s, nil
}

// ParseKind reads the kind query parameter. An empty value is allowed
// when optional, anything else must be a known backend kind.
func ParseKind(r *http.Request, optional bool) (string, error) {
	kind := r.URL.Query().Get("kind")
	if kind == "" {
		if optional {
			return "", nil
		}
		return "", fmt.Errorf("missing required kind parameter")
	}
	if !model.ValidKind(kind) {
		return "", fmt.Errorf("unknown backend kind %q", kind)
	}
	return kind, nil
}

// SafeJoin joins a client-supplied subpath onto base, rejecting absolute
// paths and anything that escapes base.
func SafeJoin(base, sub string) (string, error) {
	if filepath.IsAbs(sub) {
		return "", fmt.Errorf("target_dir must be relative")
	}
	clean := filepath.Clean(sub)
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("target_dir escapes the working directory")
	}
	return filepath.Join(base, clean), nil
}
