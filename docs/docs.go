// Package docs holds the OpenAPI document served at /swagger.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "paths": {
        "/register": {
            "post": {
                "tags": ["auth"],
                "summary": "Register an editor account",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/RegisterRequest"}}],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/Editor"}},
                    "422": {"description": "Validation error", "schema": {"$ref": "#/definitions/ValidationError"}}
                }
            }
        },
        "/auth/login": {
            "post": {
                "tags": ["auth"],
                "summary": "Exchange credentials for a token",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/Token"}},
                    "401": {"description": "Bad credentials", "schema": {"$ref": "#/definitions/Error"}},
                    "429": {"description": "Rate limited", "schema": {"$ref": "#/definitions/Error"}}
                }
            }
        },
        "/auth/refresh": {
            "post": {
                "tags": ["auth"],
                "summary": "Issue a fresh token for the bearer",
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/Token"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/Error"}}
                }
            }
        },
        "/content": {
            "get": {
                "tags": ["content"],
                "summary": "List content sorted by category",
                "produces": ["application/json"],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/Content"}}}
                }
            }
        },
        "/content/{id}": {
            "get": {
                "tags": ["content"],
                "summary": "Get one content record",
                "produces": ["application/json"],
                "parameters": [{"in": "path", "name": "id", "type": "string", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/Content"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/Error"}}
                }
            }
        },
        "/content/files/{key}": {
            "get": {
                "tags": ["content"],
                "summary": "Stream a stored file by blob id or stored name",
                "produces": ["application/octet-stream"],
                "parameters": [{"in": "path", "name": "key", "type": "string", "required": true}],
                "responses": {
                    "200": {"description": "File bytes"},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/Error"}}
                }
            }
        },
        "/protected/content": {
            "post": {
                "tags": ["content"],
                "summary": "Create content with files",
                "security": [{"BearerAuth": []}],
                "consumes": ["multipart/form-data", "application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"in": "formData", "name": "artistName", "type": "string", "required": true},
                    {"in": "formData", "name": "title", "type": "string", "required": true},
                    {"in": "formData", "name": "description", "type": "string"},
                    {"in": "formData", "name": "category", "type": "array", "items": {"type": "string"}, "collectionFormat": "multi", "required": true},
                    {"in": "formData", "name": "tags", "type": "array", "items": {"type": "string"}, "collectionFormat": "multi", "required": true},
                    {"in": "formData", "name": "fileUrls", "type": "array", "items": {"type": "string"}, "collectionFormat": "multi"},
                    {"in": "formData", "name": "files", "type": "file"}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/Content"}},
                    "422": {"description": "Validation error", "schema": {"$ref": "#/definitions/ValidationError"}},
                    "500": {"description": "Store error", "schema": {"$ref": "#/definitions/Error"}}
                }
            }
        },
        "/protected/content/{id}": {
            "patch": {
                "tags": ["content"],
                "summary": "Update text fields",
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"in": "path", "name": "id", "type": "string", "required": true},
                    {"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/ContentPatch"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/Content"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/Error"}},
                    "422": {"description": "Validation error", "schema": {"$ref": "#/definitions/ValidationError"}}
                }
            },
            "delete": {
                "tags": ["content"],
                "summary": "Delete content and its stored files",
                "security": [{"BearerAuth": []}],
                "parameters": [{"in": "path", "name": "id", "type": "string", "required": true}],
                "responses": {
                    "204": {"description": "Deleted"},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/Error"}},
                    "500": {"description": "Some blobs were not deleted", "schema": {"$ref": "#/definitions/Error"}}
                }
            }
        },
        "/protected/files/{id}": {
            "patch": {
                "tags": ["content"],
                "summary": "Add and remove files",
                "security": [{"BearerAuth": []}],
                "consumes": ["multipart/form-data", "application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"in": "path", "name": "id", "type": "string", "required": true},
                    {"in": "formData", "name": "files", "type": "file"},
                    {"in": "formData", "name": "fileUrls", "type": "array", "items": {"type": "string"}, "collectionFormat": "multi"},
                    {"in": "formData", "name": "removeFileIds", "type": "array", "items": {"type": "string"}, "collectionFormat": "multi"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/Content"}},
                    "422": {"description": "Validation error", "schema": {"$ref": "#/definitions/ValidationError"}},
                    "500": {"description": "Store error", "schema": {"$ref": "#/definitions/Error"}}
                }
            }
        },
        "/health": {
            "get": {
                "tags": ["ops"],
                "summary": "Database and blob store readiness",
                "responses": {"200": {"description": "Healthy"}, "503": {"description": "Unavailable"}}
            }
        }
    },
    "definitions": {
        "RegisterRequest": {
            "type": "object",
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string", "minLength": 10, "maxLength": 72},
                "firstName": {"type": "string"},
                "lastName": {"type": "string"}
            }
        },
        "LoginRequest": {
            "type": "object",
            "properties": {"email": {"type": "string"}, "password": {"type": "string"}}
        },
        "Token": {
            "type": "object",
            "properties": {"authToken": {"type": "string"}}
        },
        "Editor": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "email": {"type": "string"},
                "firstName": {"type": "string"},
                "lastName": {"type": "string"}
            }
        },
        "FileRef": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "fileType": {"type": "string"},
                "fileName": {"type": "string"},
                "fileId": {"type": "string"},
                "fileUrl": {"type": "string"}
            }
        },
        "Content": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "artistName": {"type": "string"},
                "title": {"type": "string"},
                "description": {"type": "string"},
                "category": {"type": "array", "items": {"type": "string"}},
                "tags": {"type": "array", "items": {"type": "string"}},
                "files": {"type": "array", "items": {"$ref": "#/definitions/FileRef"}},
                "createdAt": {"type": "string", "format": "date-time"},
                "updatedAt": {"type": "string", "format": "date-time"}
            }
        },
        "ContentPatch": {
            "type": "object",
            "properties": {
                "artistName": {"type": "string"},
                "title": {"type": "string"},
                "description": {"type": "string"},
                "category": {"type": "array", "items": {"type": "string"}},
                "tags": {"type": "array", "items": {"type": "string"}}
            }
        },
        "ValidationError": {
            "type": "object",
            "properties": {
                "code": {"type": "integer"},
                "reason": {"type": "string"},
                "message": {"type": "string"},
                "location": {"type": "string"}
            }
        },
        "Error": {
            "type": "object",
            "properties": {
                "request_id": {"type": "string"},
                "error": {
                    "type": "object",
                    "properties": {"code": {"type": "string"}, "message": {"type": "string"}}
                },
                "failedBlobIds": {"type": "array", "items": {"type": "string"}}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Seepage Content API",
	Description:      "Editor accounts and content entries with stored media files.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
