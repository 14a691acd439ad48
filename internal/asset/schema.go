package asset

import (
	"bytes"
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	apperrors "github.com/satlaunch/payloadledger/internal/errors"
)

//go:embed details.schema.json
var detailsSchemaJSON []byte

const detailsSchemaURL = "details.schema.json"

var (
	detailsSchemaOnce sync.Once
	detailsSchema     *jsonschema.Schema
	detailsSchemaErr  error
)

func compileDetailsSchema() (*jsonschema.Schema, error) {
	detailsSchemaOnce.Do(func() {
		parsed, err := jsonschema.UnmarshalJSON(bytes.NewReader(detailsSchemaJSON))
		if err != nil {
			detailsSchemaErr = fmt.Errorf("parse details schema: %w", err)
			return
		}
		compiler := jsonschema.NewCompiler()
		compiler.DefaultDraft(jsonschema.Draft7)
		if err := compiler.AddResource(detailsSchemaURL, parsed); err != nil {
			detailsSchemaErr = fmt.Errorf("add details schema: %w", err)
			return
		}
		detailsSchema, detailsSchemaErr = compiler.Compile(detailsSchemaURL)
	})
	return detailsSchema, detailsSchemaErr
}

// validateDocument checks a details document against the embedded schema.
func validateDocument(raw []byte) error {
	schema, err := compileDetailsSchema()
	if err != nil {
		return apperrors.Wrap(apperrors.CodeUnknown, err, "load details schema")
	}
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return apperrors.Validation("payload details are not valid JSON: %v", err)
	}
	if err := schema.Validate(inst); err != nil {
		return apperrors.Validation("payload details %s", describeViolation(err))
	}
	return nil
}

// describeViolation renders the deepest failing location as a JSON path.
func describeViolation(err error) string {
	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return err.Error()
	}
	for len(ve.Causes) > 0 {
		ve = ve.Causes[0]
	}
	path := "$"
	if len(ve.InstanceLocation) > 0 {
		path = "$." + strings.Join(ve.InstanceLocation, ".")
	}
	return fmt.Sprintf("invalid at '%s': %s", path, ve.ErrorKind.LocalizedString(message.NewPrinter(language.English)))
}
