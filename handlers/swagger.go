package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterSwagger registers minimal Swagger/OpenAPI endpoints for the funnel service.
// - GET /swagger/index.html  -> a small HTML page that loads the OpenAPI JSON
// - GET /swagger/doc.json    -> machine-readable OpenAPI JSON
func RegisterSwagger(rg gin.IRouter) {
	rg.GET("/swagger/index.html", func(c *gin.Context) {
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(swaggerHTML))
	})

	rg.GET("/swagger/doc.json", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(swaggerJSON))
	})
}

const swaggerHTML = `<!doctype html>
<html>
  <head>
    <meta charset="utf-8" />
    <title>funnel-service Swagger UI</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@4/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@4/swagger-ui-bundle.js"></script>
    <script>
      window.ui = SwaggerUIBundle({
        url: '/swagger/doc.json',
        dom_id: '#swagger-ui',
      })
    </script>
  </body>
</html>`

const swaggerJSON = `{
  "openapi": "3.0.0",
  "info": { "title": "funnel-service", "version": "v0.1.0" },
  "components": {
    "schemas": {
      "Funnel": { "type": "object", "required": ["id", "name", "product", "blocks"], "properties": {
        "id": { "type": "string", "format": "uuid" },
        "name": { "type": "string" },
        "product": { "type": "object", "required": ["title", "description", "price"], "properties": {
          "title": { "type": "string" }, "description": { "type": "string" },
          "price": { "type": "number", "exclusiveMinimum": 0 }, "currency": { "type": "string", "default": "USD" } } },
        "blocks": { "type": "array", "minItems": 1, "items": { "$ref": "#/components/schemas/Block" } } } },
      "Block": { "type": "object", "required": ["id", "type", "props"], "properties": {
        "id": { "type": "string" },
        "type": { "type": "string", "enum": ["Banner", "Callout", "Text", "Reviews", "IconGroup", "Media", "MediaCarousel", "Accordions", "ProductGrid", "VariantSelector", "ProductImageCarousel", "AddToCartButton", "UpsellCarousel"] },
        "props": { "type": "object" } } },
      "Issue": { "type": "object", "properties": { "path": { "type": "string" }, "message": { "type": "string" } } },
      "Report": { "type": "object", "properties": {
        "valid": { "type": "boolean" },
        "warnings": { "type": "array", "items": { "type": "string" } },
        "errors": { "type": "array", "items": { "type": "string" } } } },
      "Session": { "type": "object", "properties": {
        "funnel": { "$ref": "#/components/schemas/Funnel" },
        "metadata": { "type": "object", "properties": {
          "createdAt": { "type": "string", "format": "date-time", "nullable": true },
          "lastModified": { "type": "string", "format": "date-time", "nullable": true },
          "iterations": { "type": "integer" } } },
        "validation": { "$ref": "#/components/schemas/Report" } } }
    }
  },
  "paths": {
    "/api/validate": { "post": { "summary": "Validate and lint a funnel", "responses": { "200": { "description": "valid funnel with lint report" }, "422": { "description": "schema issues" } } } },
    "/api/funnels": {
      "get": { "summary": "List stored funnels", "parameters": [{ "name": "status", "in": "query", "schema": { "type": "string", "enum": ["draft", "published", "archived"] } }], "responses": { "200": { "description": "funnel summaries" } } },
      "post": { "summary": "Store a funnel", "responses": { "201": { "description": "created" }, "409": { "description": "id already stored" }, "422": { "description": "schema issues" } } }
    },
    "/api/funnels/{id}": {
      "get": { "summary": "Get a stored funnel", "responses": { "200": { "description": "funnel with lint report" }, "404": { "description": "not found" } } },
      "put": { "summary": "Replace a stored funnel", "responses": { "200": { "description": "saved" }, "400": { "description": "id mismatch" }, "422": { "description": "schema issues" } } },
      "patch": { "summary": "Rename a stored funnel", "responses": { "200": { "description": "renamed" } } },
      "delete": { "summary": "Delete a stored funnel", "responses": { "204": { "description": "deleted" } } }
    },
    "/api/funnels/{id}/publish": { "post": { "summary": "Publish and upload the rendered page", "responses": { "200": { "description": "published" } } } },
    "/api/funnels/{id}/archive": { "post": { "summary": "Archive", "responses": { "200": { "description": "archived" } } } },
    "/api/funnels/{id}/duplicate": { "post": { "summary": "Copy as a new draft", "responses": { "201": { "description": "copy created" } } } },
    "/api/funnels/{id}/preview": { "get": { "summary": "Rendered HTML page", "responses": { "200": { "description": "text/html" } } } },
    "/api/sessions/{sid}/ingest": { "post": { "summary": "Ingest a model completion into the session (rate limited)", "responses": { "200": { "description": "outcome" }, "429": { "description": "rate limited" } } } },
    "/api/sessions/{sid}/funnel": {
      "get": { "summary": "Current session funnel", "responses": { "200": { "description": "session" } } },
      "put": { "summary": "Replace the session funnel", "responses": { "200": { "description": "session" }, "422": { "description": "schema issues" } } },
      "delete": { "summary": "Clear the session", "responses": { "200": { "description": "session" } } }
    },
    "/api/sessions/{sid}/funnel/blocks": { "post": { "summary": "Insert a block", "responses": { "201": { "description": "session" }, "409": { "description": "duplicate block id" }, "422": { "description": "invalid block" } } } },
    "/api/sessions/{sid}/funnel/blocks/{blockId}": {
      "patch": { "summary": "Shallow-merge block props", "responses": { "200": { "description": "session" }, "422": { "description": "invalid props" } } },
      "delete": { "summary": "Delete a block", "responses": { "200": { "description": "session" } } }
    },
    "/api/sessions/{sid}/funnel/reorder": { "post": { "summary": "Move a block", "responses": { "200": { "description": "session" }, "400": { "description": "index out of range" } } } },
    "/api/sessions/{sid}/funnel/render": { "get": { "summary": "Rendered nodes", "responses": { "200": { "description": "nodes" } } } },
    "/api/sessions/{sid}/funnel/preview": { "get": { "summary": "Rendered HTML page", "responses": { "200": { "description": "text/html" } } } },
    "/api/sessions/{sid}/funnel/save": { "post": { "summary": "Store the session funnel", "responses": { "200": { "description": "saved" }, "201": { "description": "created" } } } },
    "/api/sessions/{sid}/funnel/open": { "post": { "summary": "Load a stored funnel into the session", "responses": { "200": { "description": "session" } } } },
    "/health": { "get": { "summary": "Liveness check", "responses": { "200": { "description": "healthy" } } } },
    "/ready": { "get": { "summary": "Readiness check", "responses": { "200": { "description": "ready" }, "503": { "description": "not ready" } } } },
    "/metrics": { "get": { "summary": "Prometheus metrics", "responses": { "200": { "description": "text exposition" } } } }
  }
}`
