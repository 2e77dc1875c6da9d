package config

import (
	"bytes"
	_ "embed"
	"log/slog"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

//go:embed schema.json
var schemaJSON []byte

// documentSchema is the fixed schema every configuration file is validated
// against. It is process-wide configuration, compiled once at startup.
var documentSchema = mustCompileSchema()

func mustCompileSchema() *jsonschema.Schema {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaJSON))
	if err != nil {
		panic("config: parse embedded schema: " + err.Error())
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("config.schema.json", doc); err != nil {
		panic("config: add schema resource: " + err.Error())
	}
	schema, err := compiler.Compile("config.schema.json")
	if err != nil {
		panic("config: compile schema: " + err.Error())
	}
	return schema
}

// validateDocument checks value against the document schema. All validation
// errors are logged before the whole set is reported as a single failure.
func validateDocument(value any) error {
	plain := toPlainValue(value)
	err := documentSchema.Validate(plain)
	if err == nil {
		return nil
	}
	if verr, ok := err.(*jsonschema.ValidationError); ok {
		logValidationErrors(verr)
	}
	return ErrValidation
}

var errPrinter = message.NewPrinter(language.English)

func logValidationErrors(verr *jsonschema.ValidationError) {
	if len(verr.Causes) == 0 {
		slog.Error("config file validation error",
			"location", "/"+strings.Join(verr.InstanceLocation, "/"),
			"error", verr.ErrorKind.LocalizedString(errPrinter))
		return
	}
	for _, cause := range verr.Causes {
		logValidationErrors(cause)
	}
}
