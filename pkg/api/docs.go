package api

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
        "/health": {
            "get": {
                "security": [{"ApiKeyAuth": []}],
                "description": "Report that the server is up along with its run id",
                "produces": ["application/json"],
                "tags": ["health"],
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/api.APIResponse"}}
                }
            }
        },
        "/replays": {
            "post": {
                "security": [{"ApiKeyAuth": []}],
                "description": "Decode an uploaded capture (raw or zstd) into a JSON document, analysis or settings",
                "consumes": ["application/octet-stream"],
                "produces": ["application/json"],
                "tags": ["replays"],
                "summary": "Decode a capture",
                "parameters": [
                    {"description": "Capture bytes", "name": "body", "in": "body", "required": true, "schema": {"type": "string", "format": "binary"}},
                    {"enum": ["document", "analysis", "settings"], "type": "string", "description": "Response format", "name": "format", "in": "query"},
                    {"type": "boolean", "description": "Write every frame field instead of deltas", "name": "full", "in": "query"},
                    {"type": "integer", "description": "First frame to include", "name": "frameStart", "in": "query"},
                    {"type": "integer", "description": "Last frame to include", "name": "frameEnd", "in": "query"},
                    {"type": "boolean", "description": "Record the match in the catalog", "name": "catalog", "in": "query"},
                    {"type": "string", "description": "Capture name recorded in the catalog", "name": "name", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/api.APIResponse"}},
                    "413": {"description": "Request Entity Too Large", "schema": {"$ref": "#/definitions/api.APIResponse"}},
                    "422": {"description": "Unprocessable Entity", "schema": {"$ref": "#/definitions/api.DecodeError"}}
                }
            }
        },
        "/matches": {
            "get": {
                "security": [{"ApiKeyAuth": []}],
                "description": "List every cataloged match",
                "produces": ["application/json"],
                "tags": ["matches"],
                "summary": "List matches",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/api.APIResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/api.APIResponse"}}
                }
            }
        },
        "/matches/{matchID}": {
            "get": {
                "security": [{"ApiKeyAuth": []}],
                "description": "Get one cataloged match by its match id",
                "produces": ["application/json"],
                "tags": ["matches"],
                "summary": "Get a match",
                "parameters": [
                    {"type": "string", "description": "Match id", "name": "matchID", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/api.APIResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/api.APIResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/api.APIResponse"}}
                }
            }
        }
    },
    "definitions": {
        "api.APIResponse": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean"},
                "data": {},
                "error": {"type": "string"}
            }
        },
        "api.DecodeError": {
            "type": "object",
            "properties": {
                "kind": {"type": "string"},
                "offset": {"type": "integer"},
                "detail": {"type": "string"}
            }
        }
    },
    "securityDefinitions": {
        "ApiKeyAuth": {"type": "apiKey", "name": "X-API-Key", "in": "header"}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0.0",
	Host:             "localhost:8080",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "slippc REST API",
	Description:      "Decodes Slippi replays and serves the match catalog.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
