package httpapi

import "net/http"

func openapiSpec() map[string]any {
	return map[string]any{
		"openapi": "3.0.3",
		"info": map[string]any{
			"title":   "dcortex-dashboard",
			"version": "0.1.0",
		},
		"paths": map[string]any{
			"/": map[string]any{
				"get": map[string]any{
					"summary": "Dashboard page",
					"responses": map[string]any{
						"200": map[string]any{"description": "HTML page"},
					},
				},
			},
			"/health": map[string]any{
				"get": map[string]any{
					"summary": "Health check",
					"responses": map[string]any{
						"200": map[string]any{"description": "OK"},
					},
				},
			},
			"/ws/dashboard": map[string]any{
				"get": map[string]any{
					"summary":     "Live dashboard channel",
					"description": "WebSocket. Server pushes a snapshot then dashboard events; pages send refresh, select_category and toggle_theme commands.",
					"responses": map[string]any{
						"101": map[string]any{"description": "Switching protocols"},
					},
				},
			},
			"/api/dashboard/state": map[string]any{
				"get": map[string]any{
					"summary": "Current dashboard snapshot",
					"responses": map[string]any{
						"200": map[string]any{"description": "OK"},
					},
				},
			},
			"/api/dashboard/refresh": map[string]any{
				"post": map[string]any{
					"summary": "Start a cycle for the current source",
					"responses": map[string]any{
						"202": map[string]any{"description": "Cycle started"},
						"429": map[string]any{"description": "Rate limited"},
						"503": map[string]any{"description": "Shutting down"},
					},
				},
			},
			"/api/dashboard/category": map[string]any{
				"post": map[string]any{
					"summary": "Start a cycle for a category URL",
					"parameters": []any{map[string]any{
						"name":     "url",
						"in":       "query",
						"required": true,
						"schema":   map[string]any{"type": "string", "format": "uri"},
					}},
					"responses": map[string]any{
						"202": map[string]any{"description": "Cycle started"},
						"400": map[string]any{"description": "Invalid URL"},
						"429": map[string]any{"description": "Rate limited"},
						"503": map[string]any{"description": "Shutting down"},
					},
				},
			},
			"/api/theme": map[string]any{
				"get": map[string]any{
					"summary": "Current theme",
					"responses": map[string]any{
						"200": map[string]any{"description": "OK"},
					},
				},
			},
			"/api/theme/toggle": map[string]any{
				"post": map[string]any{
					"summary": "Flip and persist the theme",
					"responses": map[string]any{
						"200": map[string]any{"description": "OK"},
						"500": map[string]any{"description": "Store write failed"},
					},
				},
			},
			"/api/categories": map[string]any{
				"get": map[string]any{
					"summary": "Sidebar categories",
					"responses": map[string]any{
						"200": map[string]any{"description": "OK"},
					},
				},
			},
		},
	}
}

func swaggerUIHTML(openapiURL string) string {
	return `<!doctype html>
<html>
  <head>
    <meta charset="utf-8"/>
    <meta name="viewport" content="width=device-width, initial-scale=1"/>
    <title>dcortex-dashboard docs</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css"/>
    <style>html,body{margin:0;padding:0}</style>
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
    <script>
      window.ui = SwaggerUIBundle({
        url: "` + openapiURL + `",
        dom_id: '#swagger-ui',
        deepLinking: true,
        presets: [SwaggerUIBundle.presets.apis],
        layout: "BaseLayout"
      });
    </script>
  </body>
</html>`
}

func allowOnlyGet(w http.ResponseWriter, r *http.Request) bool {
	if r.Method == http.MethodGet {
		return true
	}
	w.Header().Set("allow", http.MethodGet)
	http.NotFound(w, r)
	return false
}

func allowOnlyPost(w http.ResponseWriter, r *http.Request) bool {
	if r.Method == http.MethodPost {
		return true
	}
	w.Header().Set("allow", http.MethodPost)
	writeJSON(w, http.StatusMethodNotAllowed, map[string]any{"error": "method_not_allowed"})
	return false
}
