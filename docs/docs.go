// Package docs registers the OpenAPI document served by the swagger build.
// Regenerate with `swag init -g cmd/lmrelay/docs.go`.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "license": {
            "name": "MIT",
            "url": "https://opensource.org/licenses/MIT"
        },
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/api/health": {
            "get": {
                "produces": ["application/json"],
                "tags": ["health"],
                "summary": "Liveness probe",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.HealthResponse"}}
                }
            }
        },
        "/api/models/available": {
            "get": {
                "produces": ["application/json"],
                "tags": ["models"],
                "summary": "List models the backend can serve",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.ModelsResponse"}}
                }
            }
        },
        "/api/models/status": {
            "get": {
                "produces": ["application/json"],
                "tags": ["models"],
                "summary": "Current lifecycle snapshot",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.StatusResponse"}}
                }
            }
        },
        "/api/models/load": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["models"],
                "summary": "Start loading a model",
                "parameters": [
                    {"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/types.LoadRequest"}}
                ],
                "responses": {
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/types.AcceptedResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}
                }
            }
        },
        "/api/models/unload": {
            "post": {
                "produces": ["application/json"],
                "tags": ["models"],
                "summary": "Unload the active model",
                "responses": {
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/types.AcceptedResponse"}}
                }
            }
        },
        "/api/chat": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["text/event-stream"],
                "tags": ["chat"],
                "summary": "Send a message and stream the reply",
                "parameters": [
                    {"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/types.ChatRequest"}}
                ],
                "responses": {
                    "200": {"description": "event stream", "schema": {"type": "string"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/types.NeedModelLoadResponse"}}
                }
            }
        }
    },
    "definitions": {
        "types.AcceptedResponse": {
            "type": "object",
            "properties": {"statusUrl": {"type": "string", "example": "/api/models/status"}}
        },
        "types.ChatRequest": {
            "type": "object",
            "properties": {"chatId": {"type": "string"}, "message": {"type": "string"}}
        },
        "types.ErrorResponse": {
            "type": "object",
            "properties": {"error": {"type": "string"}, "code": {"type": "integer"}}
        },
        "types.HealthResponse": {
            "type": "object",
            "properties": {"ok": {"type": "boolean"}}
        },
        "types.LoadRequest": {
            "type": "object",
            "properties": {"name": {"type": "string"}}
        },
        "types.ModelsResponse": {
            "type": "object",
            "properties": {
                "models": {"type": "array", "items": {"type": "string"}},
                "note": {"type": "string"}
            }
        },
        "types.NeedModelLoadResponse": {
            "type": "object",
            "properties": {"needModelLoad": {"type": "boolean"}}
        },
        "types.StatusResponse": {
            "type": "object",
            "properties": {
                "model": {"type": "string"},
                "status": {"type": "string", "enum": ["idle", "loading", "unloading"]},
                "progress": {"type": "integer"},
                "lastError": {"type": "string"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{"http"},
	Title:            "lmrelay API",
	Description:      "Chat relay between a browser client and an LM Studio compatible backend.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
