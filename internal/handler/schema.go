package handler

import (
	"fmt"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	"github.com/xeipuuv/gojsonschema"
)

const optionsSchemaJSON = `{
  "type": "object",
  "additionalProperties": false,
  "properties": {
    "searchScope": {"type": "string"},
    "driveId": {"type": "string"},
    "showThumbnails": {"type": "boolean"},
    "eagerContentFiles": {"type": "integer", "minimum": 0}
  }
}`

const lookupSchemaJSON = `{
  "type": "object",
  "required": ["entities"],
  "additionalProperties": false,
  "properties": {
    "entities": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["value"],
        "properties": {
          "type": {"type": "string"},
          "value": {"type": "string", "minLength": 1}
        }
      }
    },
    "options": ` + optionsSchemaJSON + `
  }
}`

var (
	lookupSchema  = mustSchema(lookupSchemaJSON)
	optionsSchema = mustSchema(optionsSchemaJSON)
)

func mustSchema(src string) *gojsonschema.Schema {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(src))
	if err != nil {
		panic(fmt.Sprintf("invalid request schema: %v", err))
	}
	return s
}

// validateBody checks a JSON request body against schema. It returns the
// violations, or an error when the body is not JSON.
func validateBody(schema *gojsonschema.Schema, body string) ([]string, error) {
	result, err := schema.Validate(gojsonschema.NewStringLoader(body))
	if err != nil {
		return nil, fmt.Errorf("invalid JSON body: %w", err)
	}
	if result.Valid() {
		return nil, nil
	}
	msgs := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		msgs = append(msgs, desc.String())
	}
	return msgs, nil
}

// checkBody validates body against schema and builds the 400 response on failure.
func checkBody(schema *gojsonschema.Schema, body string) (events.APIGatewayProxyResponse, bool) {
	msgs, err := validateBody(schema, body)
	if err != nil {
		return events.APIGatewayProxyResponse{StatusCode: http.StatusBadRequest, Body: "Invalid request body"}, false
	}
	if len(msgs) > 0 {
		return jsonResponse(http.StatusBadRequest, struct {
			Errors []string `json:"errors"`
		}{msgs}), false
	}
	return events.APIGatewayProxyResponse{}, true
}
