package handlers

import (
	"encoding/json"
	"net/http"

	"bikeshare-platform/internal/services"
)

type schema = map[string]interface{}

func queryParam(name, description string, s schema) schema {
	return schema{
		"name":        name,
		"in":          "query",
		"description": description,
		"required":    false,
		"schema":      s,
	}
}

func pathParam(name, description string, s schema) schema {
	return schema{
		"name":        name,
		"in":          "path",
		"description": description,
		"required":    true,
		"schema":      s,
	}
}

func jsonResponse(description string, s schema) schema {
	return schema{
		"description": description,
		"content": schema{
			"application/json": schema{"schema": s},
		},
	}
}

func object(properties schema) schema {
	return schema{"type": "object", "properties": properties}
}

var (
	stringType  = schema{"type": "string"}
	integerType = schema{"type": "integer"}
	numberType  = schema{"type": "number"}

	errorRef  = schema{"$ref": "#/components/schemas/ErrorResponse"}
	cityParam = pathParam("city", "City name, e.g. chicago or new york city", stringType)

	selectorParams = []schema{
		queryParam("month", "Month name or all (default: all)", schema{"type": "string", "default": "all"}),
		queryParam("day", "Day of week or all (default: all)", schema{"type": "string", "default": "all"}),
	}

	errorResponses = schema{
		"400": jsonResponse("Unknown city or invalid month/day", errorRef),
		"404": jsonResponse("No trips match the selection (EMPTY_DATASET) or city data missing", errorRef),
		"500": jsonResponse("Internal error", errorRef),
	}
)

func withErrors(ok schema) schema {
	responses := schema{"200": ok}
	for code, r := range errorResponses {
		responses[code] = r
	}
	return responses
}

func openAPIDocument() schema {
	return schema{
		"openapi": "3.0.0",
		"info": schema{
			"title":       "Bikeshare Platform API",
			"description": "Trip statistics for US bike-share systems, filtered by month and day of week",
			"version":     "1.0.0",
		},
		"servers": []schema{
			{"url": "http://localhost:8080", "description": "Local development server"},
		},
		"paths": schema{
			"/api/cities": schema{
				"get": schema{
					"summary": "List supported cities",
					"responses": schema{
						"200": jsonResponse("Supported cities", object(schema{
							"cities": schema{"type": "array", "items": stringType},
						})),
					},
				},
			},
			"/api/cities/{city}/stats": schema{
				"get": schema{
					"summary":     "Full statistics report",
					"description": "Computes every statistics section; a failing section is reported under errors",
					"parameters":  append([]schema{cityParam}, selectorParams...),
					"responses":   withErrors(jsonResponse("Statistics report", schema{"$ref": "#/components/schemas/Report"})),
				},
			},
			"/api/cities/{city}/stats/{section}": schema{
				"get": schema{
					"summary": "One statistics section",
					"parameters": append([]schema{
						cityParam,
						pathParam("section", "Statistics section", schema{"type": "string", "enum": services.Sections}),
					}, selectorParams...),
					"responses": withErrors(jsonResponse("Section result", object(schema{
						"city":       stringType,
						"month":      stringType,
						"day":        stringType,
						"section":    stringType,
						"trip_count": integerType,
						"elapsed":    stringType,
						"data":       schema{"type": "object"},
					}))),
				},
			},
			"/api/cities/{city}/trips": schema{
				"get": schema{
					"summary":     "Raw trip rows",
					"description": "Five filtered rows per page in source order",
					"parameters": append([]schema{
						cityParam,
						queryParam("page", "Page number (default: 1)", schema{"type": "integer", "default": 1}),
					}, selectorParams...),
					"responses": withErrors(jsonResponse("Trip page", object(schema{
						"data":        schema{"type": "array", "items": schema{"$ref": "#/components/schemas/Trip"}},
						"total":       integerType,
						"page":        integerType,
						"limit":       integerType,
						"total_pages": integerType,
						"has_more":    schema{"type": "boolean"},
					}))),
				},
			},
			"/health": schema{
				"get": schema{
					"summary": "Health check",
					"responses": schema{
						"200": jsonResponse("Trip source reachable", object(schema{"status": stringType})),
						"503": jsonResponse("Trip source unavailable", object(schema{"status": stringType})),
					},
				},
			},
			"/metrics": schema{
				"get": schema{
					"summary": "Prometheus metrics",
					"responses": schema{
						"200": schema{
							"description": "Prometheus metrics in text format",
							"content":     schema{"text/plain": schema{"schema": stringType}},
						},
					},
				},
			},
		},
		"components": schema{
			"schemas": schema{
				"ErrorResponse": object(schema{
					"error":      stringType,
					"message":    stringType,
					"code":       integerType,
					"error_code": stringType,
				}),
				"Trip": object(schema{
					"start_time":    schema{"type": "string", "format": "date-time"},
					"end_time":      schema{"type": "string", "format": "date-time"},
					"trip_duration": numberType,
					"start_station": stringType,
					"end_station":   stringType,
					"user_type":     stringType,
					"gender":        schema{"type": "string", "nullable": true},
					"birth_year":    schema{"type": "integer", "nullable": true},
					"month":         integerType,
					"day_of_week":   stringType,
					"start_hour":    integerType,
				}),
				"Report": object(schema{
					"city":       stringType,
					"month":      stringType,
					"day":        stringType,
					"trip_count": integerType,
					"time":       schema{"type": "object", "nullable": true},
					"stations":   schema{"type": "object", "nullable": true},
					"duration":   schema{"type": "object"},
					"users":      schema{"type": "object"},
					"errors":     schema{"type": "object", "additionalProperties": stringType},
					"timings":    schema{"type": "object", "additionalProperties": stringType},
				}),
			},
		},
	}
}

// OpenAPISpec serves the OpenAPI 3.0 document for the Bikeshare Platform API
func OpenAPISpec(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(openAPIDocument())
}
