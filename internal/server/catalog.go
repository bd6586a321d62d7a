// catalog.go — static tool descriptors for tools/list.
package server

import "github.com/browserlink/browserlink/internal/mcp"

func schema(props map[string]any, required ...string) map[string]any {
	s := map[string]any{"type": "object", "properties": props}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

func prop(typ, desc string) map[string]any {
	return map[string]any{"type": typ, "description": desc}
}

var tabIDProp = map[string]any{
	"type":        "number",
	"description": "Target tab id; defaults to the most recently active tab",
}

func toolCatalog() []mcp.Tool {
	return []mcp.Tool{
		{
			Name:        "get_page_content",
			Description: "Extract the text content of a page, optionally with metadata and raw HTML",
			InputSchema: schema(map[string]any{
				"tabId":           tabIDProp,
				"includeMetadata": prop("boolean", "Include page metadata (default true)"),
				"includeHtml":     prop("boolean", "Include raw HTML, size-capped (default false)"),
				"maxTextLength":   prop("number", "Cap on extracted text length (default 30000)"),
			}),
		},
		{
			Name:        "get_dom_snapshot",
			Description: "Fetch a pruned DOM tree, optionally scoped to a selector (#id, .class, or tag)",
			InputSchema: schema(map[string]any{
				"tabId":          tabIDProp,
				"selector":       prop("string", "Scope to the first element matching #id, .class, or tag"),
				"maxDepth":       prop("number", "Tree depth requested from the browser (default 5, max 15)"),
				"maxNodes":       prop("number", "Node-count cap after shaping (default 500, max 2000)"),
				"includeStyles":  prop("boolean", "Keep computed styles (default false)"),
				"excludeScripts": prop("boolean", "Prune script elements (default true)"),
				"excludeStyles":  prop("boolean", "Prune style elements (default true)"),
			}),
		},
		{
			Name:        "get_console_messages",
			Description: "List console messages with level/search/time filters and cursor pagination",
			InputSchema: schema(map[string]any{
				"tabId": tabIDProp,
				"logLevels": map[string]any{
					"type":        "array",
					"items":       map[string]any{"type": "string", "enum": []string{"error", "warn", "info", "log", "debug"}},
					"description": "Levels to include (default [\"error\",\"warn\"])",
				},
				"searchTerm": prop("string", "Case-insensitive substring match on message text"),
				"since":      prop("number", "Only messages at or after this Unix-ms timestamp"),
				"pageSize":   prop("number", "Page size (default 50, max 200)"),
				"cursor":     prop("string", "Continuation cursor from a previous page"),
			}),
		},
		{
			Name:        "get_network_requests",
			Description: "List captured network requests; failed requests sort first unless a structural filter is set",
			InputSchema: schema(map[string]any{
				"tabId":  tabIDProp,
				"method": prop("string", "HTTP method filter"),
				"status": map[string]any{
					"description": "Status code or list of status codes",
					"oneOf": []map[string]any{
						{"type": "number"},
						{"type": "array", "items": map[string]any{"type": "number"}},
					},
				},
				"resourceType": map[string]any{
					"description": "Resource type or list of resource types",
					"oneOf": []map[string]any{
						{"type": "string"},
						{"type": "array", "items": map[string]any{"type": "string"}},
					},
				},
				"domain":                prop("string", "Substring match on the request host"),
				"failedOnly":            prop("boolean", "Only requests with status >= 400 or no status (default false)"),
				"pageSize":              prop("number", "Page size (default 50, max 200)"),
				"cursor":                prop("string", "Continuation cursor from a previous page"),
				"includeResponseBodies": prop("boolean", "Inline response bodies, size-capped (default false)"),
				"includeRequestBodies":  prop("boolean", "Inline request bodies, size-capped (default false)"),
			}),
		},
		{
			Name:        "capture_screenshot",
			Description: "Capture a screenshot of the tab's visible viewport",
			InputSchema: schema(map[string]any{
				"tabId":   tabIDProp,
				"format":  map[string]any{"type": "string", "enum": []string{"png", "jpeg"}, "description": "Image format"},
				"quality": prop("number", "JPEG quality, 0-100"),
			}),
		},
		{
			Name:        "execute_javascript",
			Description: "Run JavaScript in the page context and return the result",
			InputSchema: schema(map[string]any{
				"tabId": tabIDProp,
				"code":  prop("string", "JavaScript source to evaluate"),
			}, "code"),
		},
		{
			Name:        "get_performance_metrics",
			Description: "Collect page performance metrics",
			InputSchema: schema(map[string]any{"tabId": tabIDProp}),
		},
		{
			Name:        "get_accessibility_tree",
			Description: "Fetch the accessibility tree; slow on large pages",
			InputSchema: schema(map[string]any{
				"tabId":   tabIDProp,
				"timeout": prop("number", "Reply timeout in ms, 5000-120000"),
			}),
		},
		{
			Name:        "get_browser_tabs",
			Description: "List all open browser tabs",
			InputSchema: schema(map[string]any{}),
		},
		{
			Name:        "attach_debugger",
			Description: "Attach the browser debugger to a tab to stream devtools events",
			InputSchema: schema(map[string]any{"tabId": tabIDProp}, "tabId"),
		},
		{
			Name:        "detach_debugger",
			Description: "Detach the browser debugger from a tab",
			InputSchema: schema(map[string]any{"tabId": tabIDProp}, "tabId"),
		},
		{
			Name:        "get_cookies",
			Description: "Read cookies visible to the tab",
			InputSchema: schema(map[string]any{"tabId": tabIDProp}),
		},
		{
			Name:        "get_storage_data",
			Description: "Read localStorage or sessionStorage for the tab",
			InputSchema: schema(map[string]any{
				"tabId": tabIDProp,
				"storageType": map[string]any{
					"type": "string", "enum": []string{"local", "session"},
					"description": "Storage area to read (default local)",
				},
			}),
		},
		{
			Name:        "emulate_device",
			Description: "Emulate a named device profile in the tab",
			InputSchema: schema(map[string]any{
				"tabId":  tabIDProp,
				"device": prop("string", "Device profile name"),
			}, "device"),
		},
		{
			Name:        "set_user_agent",
			Description: "Override the tab's user agent string",
			InputSchema: schema(map[string]any{
				"tabId":     tabIDProp,
				"userAgent": prop("string", "User agent value to apply"),
			}, "userAgent"),
		},
	}
}
