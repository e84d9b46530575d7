package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// filterProperties are shared by search_files and catalog_stats
func filterProperties() map[string]interface{} {
	stringList := func(desc string) map[string]interface{} {
		return map[string]interface{}{
			"type":        "array",
			"items":       map[string]interface{}{"type": "string"},
			"description": desc,
		}
	}
	number := func(desc string) map[string]interface{} {
		return map[string]interface{}{
			"type":        "number",
			"description": desc,
		}
	}
	date := func(desc string) map[string]interface{} {
		return map[string]interface{}{
			"type":        "string",
			"format":      "date",
			"description": desc,
		}
	}

	return map[string]interface{}{
		"object": map[string]interface{}{
			"type":        "string",
			"description": "Case-insensitive substring of the OBJECT name",
		},
		"names":         stringList("Exact object names"),
		"observatories": stringList("Observatory names from the OBSERVAT card"),
		"clients":       stringList("MAC addresses of the machines that indexed the files"),
		"exptimes": map[string]interface{}{
			"type":        "array",
			"items":       map[string]interface{}{"type": "number"},
			"description": "Exact exposure times in seconds",
		},
		"min_exptime":  number("Minimum exposure time in seconds"),
		"min_altitude": number("Minimum altitude in degrees (-90 to 90)"),
		"max_altitude": number("Maximum altitude in degrees (-90 to 90)"),
		"date_from":    date("First observation day, YYYY-MM-DD (UTC, inclusive)"),
		"date_to":      date("Last observation day, YYYY-MM-DD (UTC, inclusive)"),
	}
}

// indexDirectoryTool returns the tool definition for index_directory
func indexDirectoryTool() mcp.Tool {
	return mcp.Tool{
		Name:        "index_directory",
		Description: "Index every FITS file below a directory into the catalog",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Absolute path of the directory to scan",
				},
				"workers": map[string]interface{}{
					"type":        "integer",
					"description": "Number of files processed concurrently (1-64)",
					"minimum":     1,
					"maximum":     64,
				},
			},
			Required: []string{"path"},
		},
	}
}

// searchFilesTool returns the tool definition for search_files
func searchFilesTool() mcp.Tool {
	props := filterProperties()
	props["limit"] = map[string]interface{}{
		"type":        "integer",
		"description": "Maximum number of results to return (1-1000)",
		"default":     DefaultSearchLimit,
		"minimum":     1,
		"maximum":     MaxSearchLimit,
	}
	props["offset"] = map[string]interface{}{
		"type":        "integer",
		"description": "Number of matches to skip",
		"default":     0,
		"minimum":     0,
	}

	return mcp.Tool{
		Name:        "search_files",
		Description: "Search the FITS catalog by object, observatory, exposure, altitude and date. Newest observations first.",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: props,
		},
	}
}

// getHeaderTool returns the tool definition for get_header
func getHeaderTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_header",
		Description: "Return every header card stored for one indexed file",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Absolute path of an indexed file",
				},
			},
			Required: []string{"path"},
		},
	}
}

// catalogStatsTool returns the tool definition for catalog_stats
func catalogStatsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "catalog_stats",
		Description: "Summarize matching files: exposure hours, nights, objects, observatories and monthly totals",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: filterProperties(),
		},
	}
}

// listClientsTool returns the tool definition for list_clients
func listClientsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "list_clients",
		Description: "List the machines that have written to the catalog",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}
