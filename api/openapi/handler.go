// Package openapi configures the OpenAPI 3.1 document Huma generates for the
// mock API and serves the Swagger UI page over it.
package openapi

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/labstack/echo/v4"
)

// Title is the document title.
const Title = "Car Marketplace Mock API"

// Document paths. Huma serves DocumentPath with .json and .yaml suffixes.
const (
	DocumentPath = "/swagger/openapi"
	SchemasPath  = "/swagger/schemas"
)

const swaggerUIHTML = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <title>Car Marketplace Mock API</title>
  <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css">
</head>
<body>
  <div id="swagger-ui"></div>
  <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
  <script>
    SwaggerUIBundle({
      url: "/swagger/openapi.json",
      dom_id: "#swagger-ui",
      presets: [SwaggerUIBundle.presets.apis, SwaggerUIBundle.SwaggerUIStandalonePreset],
      layout: "BaseLayout",
    });
  </script>
</body>
</html>`

// Config returns the Huma configuration shared by the server, the handler
// tests and the document generator.
func Config(version string) huma.Config {
	if version == "" {
		version = "dev"
	}
	cfg := huma.DefaultConfig(Title, version)
	cfg.Info.Description = "Listings, favorites, accounts, recommendations and the loan calculator."
	cfg.OpenAPIPath = DocumentPath
	cfg.SchemasPath = SchemasPath
	// The Swagger UI page below replaces Huma's docs renderer.
	cfg.DocsPath = ""
	// Responses keep their wire shape: no $schema links.
	cfg.CreateHooks = nil
	cfg.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"bearer": {
			Type:         "http",
			Scheme:       "bearer",
			BearerFormat: "JWT",
		},
	}
	return cfg
}

// RegisterRoutes adds the Swagger UI page to the Echo instance.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/swagger/index.html", serveUI)
	e.GET("/swagger", redirectToUI)
	e.GET("/swagger/", redirectToUI)
}

// Write renders the document of api as json or yaml.
func Write(w io.Writer, api huma.API, format string) error {
	var (
		data []byte
		err  error
	)
	switch format {
	case "json":
		data, err = json.MarshalIndent(api.OpenAPI(), "", "  ")
	case "yaml":
		data, err = api.OpenAPI().YAML()
	default:
		return fmt.Errorf("unknown format %q (want json or yaml)", format)
	}
	if err != nil {
		return fmt.Errorf("rendering openapi %s: %w", format, err)
	}
	_, err = w.Write(data)
	return err
}

func serveUI(c echo.Context) error {
	return c.HTML(http.StatusOK, swaggerUIHTML)
}

func redirectToUI(c echo.Context) error {
	return c.Redirect(http.StatusMovedPermanently, "/swagger/index.html")
}
