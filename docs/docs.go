// Package docs registers the OpenAPI description served at /swagger.
// Keep it in step with the handler annotations (regenerate with swag init).
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/health": {"get": {"tags": ["system"], "summary": "Health check", "responses": {"200": {"description": "OK"}}}},
        "/metrics": {"get": {"tags": ["system"], "summary": "Prometheus metrics", "responses": {"200": {"description": "OK"}}}},
        "/auth/sign-up": {"post": {"tags": ["auth"], "summary": "Register an operator", "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/Credentials"}}], "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}, "409": {"description": "Conflict"}}}},
        "/auth/sign-in": {"post": {"tags": ["auth"], "summary": "Sign in and obtain a bearer token", "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/Credentials"}}], "responses": {"200": {"description": "OK"}, "401": {"description": "Unauthorized"}, "500": {"description": "Internal Server Error"}}}},
        "/api/v1/datasets": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["datasets"], "summary": "List datasets", "responses": {"200": {"description": "OK"}}},
            "post": {"security": [{"BearerAuth": []}], "tags": ["datasets"], "summary": "Upload a telemetry dataset", "consumes": ["multipart/form-data"], "parameters": [{"in": "formData", "name": "file", "type": "file", "required": true}], "responses": {"201": {"description": "Created"}, "400": {"description": "Bad Request"}}}
        },
        "/api/v1/sessions": {"post": {"security": [{"BearerAuth": []}], "tags": ["sessions"], "summary": "Open a replay session", "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/CreateSessionRequest"}}], "responses": {"201": {"description": "Created"}, "404": {"description": "Not Found"}}}},
        "/api/v1/sessions/{id}": {"delete": {"security": [{"BearerAuth": []}], "tags": ["sessions"], "summary": "Close a session", "parameters": [{"$ref": "#/parameters/SessionID"}], "responses": {"204": {"description": "No Content"}, "404": {"description": "Not Found"}}}},
        "/api/v1/sessions/{id}/load": {"post": {"security": [{"BearerAuth": []}], "tags": ["sessions"], "summary": "Reload a session with another dataset", "parameters": [{"$ref": "#/parameters/SessionID"}, {"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/ReloadRequest"}}], "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}, "409": {"description": "Unexported history"}}}},
        "/api/v1/sessions/{id}/advance": {"post": {"security": [{"BearerAuth": []}], "tags": ["sessions"], "summary": "Advance one row", "parameters": [{"$ref": "#/parameters/SessionID"}], "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}}},
        "/api/v1/sessions/{id}/summary": {"get": {"security": [{"BearerAuth": []}], "tags": ["sessions"], "summary": "Session summary", "parameters": [{"$ref": "#/parameters/SessionID"}], "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}}},
        "/api/v1/sessions/{id}/status": {"get": {"security": [{"BearerAuth": []}], "tags": ["sessions"], "summary": "Session status", "parameters": [{"$ref": "#/parameters/SessionID"}], "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}}},
        "/api/v1/sessions/{id}/rows": {"get": {"security": [{"BearerAuth": []}], "tags": ["sessions"], "summary": "Annotated rows", "parameters": [{"$ref": "#/parameters/SessionID"}, {"in": "query", "name": "from", "type": "integer"}], "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}}},
        "/api/v1/sessions/{id}/export": {"get": {"security": [{"BearerAuth": []}], "tags": ["sessions"], "summary": "Export the annotated dataset", "produces": ["application/octet-stream"], "parameters": [{"$ref": "#/parameters/SessionID"}, {"in": "query", "name": "format", "type": "string", "enum": ["csv", "xlsx"]}], "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}, "404": {"description": "Not Found"}}}},
        "/api/v1/sessions/{id}/events": {"get": {"security": [{"BearerAuth": []}], "tags": ["sessions"], "summary": "List session events", "parameters": [{"$ref": "#/parameters/SessionID"}, {"in": "query", "name": "from", "type": "string"}, {"in": "query", "name": "to", "type": "string"}, {"in": "query", "name": "type", "type": "string", "enum": ["LOAD", "ALERT", "VALIDATION", "DONE", "EXPORT", "PLAYBACK"]}], "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}}}},
        "/api/v1/sessions/{id}/play": {"post": {"security": [{"BearerAuth": []}], "tags": ["playback"], "summary": "Start playback", "parameters": [{"$ref": "#/parameters/SessionID"}, {"in": "body", "name": "body", "schema": {"$ref": "#/definitions/IntervalRequest"}}], "responses": {"200": {"description": "OK"}, "409": {"description": "Exhausted"}}}},
        "/api/v1/sessions/{id}/pause": {"post": {"security": [{"BearerAuth": []}], "tags": ["playback"], "summary": "Pause playback", "parameters": [{"$ref": "#/parameters/SessionID"}], "responses": {"200": {"description": "OK"}}}},
        "/api/v1/sessions/{id}/speed": {"put": {"security": [{"BearerAuth": []}], "tags": ["playback"], "summary": "Change playback speed", "parameters": [{"$ref": "#/parameters/SessionID"}, {"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/IntervalRequest"}}], "responses": {"200": {"description": "OK"}}}},
        "/ws": {"get": {"tags": ["sessions"], "summary": "Live row stream (WebSocket)", "parameters": [{"in": "query", "name": "session", "type": "string", "required": true}, {"in": "query", "name": "from", "type": "integer"}, {"in": "query", "name": "interval_ms", "type": "integer"}], "responses": {"101": {"description": "Switching Protocols"}, "400": {"description": "Bad Request"}}}}
    },
    "parameters": {
        "SessionID": {"in": "path", "name": "id", "type": "string", "required": true}
    },
    "definitions": {
        "Credentials": {"type": "object", "properties": {"username": {"type": "string"}, "password": {"type": "string"}}},
        "CreateSessionRequest": {"type": "object", "properties": {"dataset_id": {"type": "string"}, "interval_ms": {"type": "integer"}}},
        "ReloadRequest": {"type": "object", "properties": {"dataset_id": {"type": "string"}, "discard": {"type": "boolean"}}},
        "IntervalRequest": {"type": "object", "properties": {"interval_ms": {"type": "integer"}}}
    },
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "gridreplay API",
	Description:      "Replays smart-grid telemetry row by row and annotates each row with an energy-management decision.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
