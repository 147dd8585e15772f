// Package swagger registers the OpenAPI document served under /swagger.
// Refresh it with: swag init -g cmd/api/main.go -o api/swagger
package swagger

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
    "paths": {
        "/auth/register": {"post": {"tags": ["auth"], "summary": "Register profile", "responses": {"201": {"description": "Created"}}}},
        "/auth/login": {"post": {"tags": ["auth"], "summary": "Login", "responses": {"200": {"description": "OK"}}}},
        "/auth/logout": {"post": {"tags": ["auth"], "summary": "Logout", "responses": {"200": {"description": "OK"}}}},
        "/me": {"get": {"security": [{"BearerAuth": []}], "tags": ["auth"], "summary": "Current profile", "responses": {"200": {"description": "OK"}}}},
        "/api/profiles": {"get": {"security": [{"BearerAuth": []}], "tags": ["profiles"], "summary": "List profiles", "responses": {"200": {"description": "OK"}}}},
        "/api/profiles/{id}/approve": {"put": {"security": [{"BearerAuth": []}], "tags": ["profiles"], "summary": "Approve profile", "responses": {"200": {"description": "OK"}}}},
        "/api/profiles/{id}/status": {"put": {"security": [{"BearerAuth": []}], "tags": ["profiles"], "summary": "Change profile status", "responses": {"200": {"description": "OK"}}}},
        "/api/profiles/{id}/role": {"put": {"security": [{"BearerAuth": []}], "tags": ["profiles"], "summary": "Change profile role", "responses": {"200": {"description": "OK"}}}},
        "/api/peritagens": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["peritagens"], "summary": "List peritagens", "responses": {"200": {"description": "OK"}}},
            "post": {"security": [{"BearerAuth": []}], "tags": ["peritagens"], "summary": "Create peritagem", "responses": {"201": {"description": "Created"}}}
        },
        "/api/peritagens/pending": {"get": {"security": [{"BearerAuth": []}], "tags": ["peritagens"], "summary": "Pending for my role", "responses": {"200": {"description": "OK"}}}},
        "/api/peritagens/{id}": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["peritagens"], "summary": "Get peritagem", "responses": {"200": {"description": "OK"}}},
            "delete": {"security": [{"BearerAuth": []}], "tags": ["peritagens"], "summary": "Delete peritagem", "responses": {"200": {"description": "OK"}}}
        },
        "/api/peritagens/{id}/timeline": {"get": {"security": [{"BearerAuth": []}], "tags": ["peritagens"], "summary": "Stage timeline", "responses": {"200": {"description": "OK"}}}},
        "/api/peritagens/{id}/items": {"put": {"security": [{"BearerAuth": []}], "tags": ["peritagens"], "summary": "Edit items", "responses": {"200": {"description": "OK"}}}},
        "/api/peritagens/{id}/transitions": {"post": {"security": [{"BearerAuth": []}], "tags": ["peritagens"], "summary": "Apply workflow action", "responses": {"200": {"description": "OK"}}}},
        "/api/peritagens/{id}/report": {"get": {"security": [{"BearerAuth": []}], "tags": ["peritagens"], "summary": "Download report", "responses": {"200": {"description": "OK"}}}},
        "/api/dashboard": {"get": {"security": [{"BearerAuth": []}], "tags": ["dashboard"], "summary": "Dashboard statistics", "responses": {"200": {"description": "OK"}}}},
        "/api/dashboard/pending": {"get": {"security": [{"BearerAuth": []}], "tags": ["dashboard"], "summary": "Pending counts per role", "responses": {"200": {"description": "OK"}}}},
        "/api/navigation": {"get": {"security": [{"BearerAuth": []}], "tags": ["navigation"], "summary": "Navigation menu", "responses": {"200": {"description": "OK"}}}},
        "/api/simulation": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["simulation"], "summary": "Simulation status", "responses": {"200": {"description": "OK"}}},
            "post": {"security": [{"BearerAuth": []}], "tags": ["simulation"], "summary": "Start simulation", "responses": {"200": {"description": "OK"}}},
            "delete": {"security": [{"BearerAuth": []}], "tags": ["simulation"], "summary": "Stop simulation", "responses": {"200": {"description": "OK"}}}
        },
        "/api/audit-logs": {"get": {"security": [{"BearerAuth": []}], "tags": ["audit"], "summary": "Get audit logs", "responses": {"200": {"description": "OK"}}}},
        "/api/audit-logs/{entityId}": {"get": {"security": [{"BearerAuth": []}], "tags": ["audit"], "summary": "Entity history", "responses": {"200": {"description": "OK"}}}}
    },
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Peritagem API",
	Description:      "Inspection workflow for hydraulic equipment: peritagens, profiles, dashboard and reports.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
