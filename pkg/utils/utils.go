package utils

import (
	"encoding/json"
	"strings"

	"github.com/JZJJake/AkBack/pkg/errors"
	"github.com/go-playground/validator/v10"
	"github.com/invopop/jsonschema"
)

// GetSchemaFromConfig reflects a strategy config into an indented draft-07 JSON schema.
// Only fields tagged jsonschema:"required" are required; unknown fields are rejected.
func GetSchemaFromConfig(config any, title string) (string, error) {
	reflector := jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
		ExpandedStruct:             true,
		AllowAdditionalProperties:  false,
	}

	schema := reflector.Reflect(config)
	schema.Title = title
	schema.Version = "http://json-schema.org/draft-07/schema#"

	jsonSchemaBytes, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return "", err
	}

	return string(jsonSchemaBytes), nil
}

// ValidateConfig checks the validate tags of a strategy config. Every failing
// field is named in the returned ErrCodeStrategyConfigError.
func ValidateConfig(config any) error {
	err := validator.New().Struct(config)
	if err == nil {
		return nil
	}

	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) {
		return errors.Wrap(errors.ErrCodeStrategyConfigError, "invalid strategy config", err)
	}

	fields := make([]string, 0, len(fieldErrors))
	for _, fieldError := range fieldErrors {
		fields = append(fields, fieldError.Field()+" "+fieldError.Tag())
	}

	return errors.Wrapf(errors.ErrCodeStrategyConfigError, err, "invalid strategy config: %s", strings.Join(fields, ", "))
}
