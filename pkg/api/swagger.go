package api

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gopkg.in/yaml.v2"
)

// SwaggerInfo holds the swagger specification info
var SwaggerInfo = struct {
	Version     string
	BasePath    string
	Title       string
	Description string
}{
	Version:     "1.0.0",
	BasePath:    "/api",
	Title:       "PolyMerit API",
	Description: "Analytics proxy over Polymarket market, trade and activity data",
}

// SpecPath is where the OpenAPI document is read from
var SpecPath = filepath.Join("docs", "swagger.yaml")

// setupSwagger configures Swagger documentation routes
func setupSwagger(r *gin.Engine) {
	// Serve the static OpenAPI YAML file
	r.GET("/api/openapi.yaml", func(c *gin.Context) {
		yamlData, err := os.ReadFile(SpecPath)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to read OpenAPI specification",
			})
			return
		}

		c.Data(http.StatusOK, "application/yaml", yamlData)
	})

	// Serve JSON version of the spec
	r.GET("/api/openapi.json", func(c *gin.Context) {
		spec, err := loadSpec(SpecPath)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to parse OpenAPI specification",
			})
			return
		}

		c.JSON(http.StatusOK, spec)
	})

	// Serve Swagger UI
	r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/api/openapi.json")))

	r.GET("/docs", func(c *gin.Context) {
		c.Redirect(http.StatusMovedPermanently, "/docs/index.html")
	})

	// API documentation info endpoint
	r.GET("/api/docs", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"data": gin.H{
				"title":       SwaggerInfo.Title,
				"description": SwaggerInfo.Description,
				"version":     SwaggerInfo.Version,
				"docs_url":    "/docs/index.html",
				"openapi_url": "/api/openapi.json",
				"endpoints": gin.H{
					"swagger_ui":   "/docs/index.html",
					"openapi_json": "/api/openapi.json",
					"openapi_yaml": "/api/openapi.yaml",
				},
			},
		})
	})
}

// loadSpec reads the YAML document and converts it to JSON-encodable maps
func loadSpec(path string) (interface{}, error) {
	yamlData, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var spec interface{}
	if err := yaml.Unmarshal(yamlData, &spec); err != nil {
		return nil, err
	}
	return jsonCompatible(spec), nil
}

// jsonCompatible rewrites yaml.v2's map[interface{}]interface{} nodes with
// string keys
func jsonCompatible(node interface{}) interface{} {
	switch v := node.(type) {
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(v))
		for key, value := range v {
			out[fmt.Sprint(key)] = jsonCompatible(value)
		}
		return out
	case []interface{}:
		for i := range v {
			v[i] = jsonCompatible(v[i])
		}
		return v
	default:
		return v
	}
}
