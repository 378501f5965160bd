package dashboard

import (
	"time"

	"github.com/go-echarts/go-echarts/v2/types"
)

// Dashboard area codes.
const (
	AreaMain    = "voice.dashboard.main"
	AreaSidebar = "voice.dashboard.sidebar"
	AreaFooter  = "voice.dashboard.footer"
)

// Built-in widget definition codes.
const (
	WidgetCallVolumeHeatmap  = "voice.widget.call_volume_heatmap"
	WidgetCallHeatmap        = "voice.widget.call_heatmap"
	WidgetFrictionHeatmap    = "voice.widget.friction_heatmap"
	WidgetLiveActivity       = "voice.widget.live_activity"
	WidgetGeographicActivity = "voice.widget.geographic_activity"
	WidgetSentimentDonut     = "voice.widget.sentiment_donut"
	WidgetLeaderboard        = "voice.widget.leaderboard"
	WidgetCallTrend          = "voice.widget.call_trend"
)

var defaultAreaDefinitions = []WidgetAreaDefinition{
	{Code: AreaMain, Name: "Voice Dashboard (Main)", Description: "Primary dashboard canvas"},
	{Code: AreaSidebar, Name: "Voice Dashboard (Sidebar)", Description: "Secondary widgets"},
	{Code: AreaFooter, Name: "Voice Dashboard (Footer)", Description: "Footer widgets"},
}

var chartThemes = []string{
	types.ThemeWesteros,
	types.ThemeWalden,
	types.ThemeWonderland,
	types.ThemeChalk,
}

var defaultWidgetDefinitions = []WidgetDefinition{
	{
		Code:        WidgetCallVolumeHeatmap,
		Name:        "Call Volume",
		Description: "Inbound and outbound calls per weekday.",
		Category:    "heatmaps",
		Schema: objectSchema(map[string]any{
			"title": map[string]any{"type": "string"},
			"range": map[string]any{"type": "string", "enum": []string{"7d", "live"}, "default": "7d"},
		}),
	},
	{
		Code:        WidgetCallHeatmap,
		Name:        "Call Activity Heatmap",
		Description: "Calls per hour over the trailing days.",
		Category:    "heatmaps",
		Schema: objectSchema(map[string]any{
			"title": map[string]any{"type": "string"},
			"days":  map[string]any{"type": "integer", "minimum": 1, "maximum": 90, "default": 30},
			"chart": map[string]any{"type": "boolean", "default": false},
		}),
	},
	{
		Code:        WidgetFrictionHeatmap,
		Name:        "Friction Heatmap",
		Description: "Friction call counts by topic and time of day.",
		Category:    "heatmaps",
		Schema: objectSchema(map[string]any{
			"title":      map[string]any{"type": "string"},
			"topics":     stringArraySchema(),
			"time_slots": stringArraySchema(),
			"export_url": map[string]any{"type": "string"},
		}),
	},
	{
		Code:        WidgetLiveActivity,
		Name:        "Live Activity",
		Description: "Call activity with sentiment per weekday hour or per five minute slot.",
		Category:    "heatmaps",
		Schema: objectSchema(map[string]any{
			"title": map[string]any{"type": "string"},
			"view":  map[string]any{"type": "string", "enum": []string{ActivityViewWeek, ActivityViewDay}, "default": ActivityViewWeek},
		}),
	},
	{
		Code:        WidgetGeographicActivity,
		Name:        "Geographic Activity",
		Description: "Per-state call volume, SDOH risk and access barriers.",
		Category:    "heatmaps",
		Schema: objectSchema(map[string]any{
			"title": map[string]any{"type": "string"},
			"mode":  map[string]any{"type": "string", "enum": []string{GeoModeVolume, GeoModeSDOH, GeoModeBarriers}, "default": GeoModeVolume},
		}),
	},
	{
		Code:        WidgetSentimentDonut,
		Name:        "Sentiment Donut",
		Description: "Share of positive, neutral and negative calls.",
		Category:    "charts",
		Schema: objectSchema(map[string]any{
			"title":        map[string]any{"type": "string"},
			"range":        map[string]any{"type": "string"},
			"size":         map[string]any{"type": "number", "minimum": 60},
			"inner_ratio":  map[string]any{"type": "number", "exclusiveMinimum": 0, "exclusiveMaximum": 1},
			"center_label": map[string]any{"type": "string"},
			"center_value": map[string]any{"type": "string"},
			"colors":       stringArraySchema(),
			"chart":        map[string]any{"type": "boolean", "default": false},
			"theme":        map[string]any{"type": "string", "enum": chartThemes},
			"segments": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type":     "object",
					"required": []string{"label", "value"},
					"properties": map[string]any{
						"label": map[string]any{"type": "string"},
						"value": map[string]any{"type": "number", "minimum": 0},
						"color": map[string]any{"type": "string"},
					},
				},
			},
		}),
	},
	{
		Code:        WidgetLeaderboard,
		Name:        "Agent Leaderboard",
		Description: "Top voice agents ranked by a metric.",
		Category:    "stats",
		Schema: objectSchema(map[string]any{
			"title":  map[string]any{"type": "string"},
			"metric": map[string]any{"type": "string", "enum": []string{"conversion", "calls", "sentiment"}, "default": "conversion"},
			"limit":  map[string]any{"type": "integer", "minimum": 1, "maximum": MaxLeaderboardEntries, "default": 5},
		}),
	},
	{
		Code:        WidgetCallTrend,
		Name:        "Call Trend",
		Description: "Daily call metric over a trailing period.",
		Category:    "charts",
		Schema:      callTrendSchema(),
	},
	{
		Code:        "voice.widget.bar_chart",
		Name:        "Bar Chart",
		Description: "Interactive bar chart visualization.",
		Category:    "charts",
		Schema:      chartConfigSchema(true),
	},
	{
		Code:        "voice.widget.line_chart",
		Name:        "Line Chart",
		Description: "Interactive line chart visualization.",
		Category:    "charts",
		Schema:      chartConfigSchema(true),
	},
	{
		Code:        "voice.widget.pie_chart",
		Name:        "Pie Chart",
		Description: "Interactive pie chart visualization.",
		Category:    "charts",
		Schema:      chartConfigSchema(false),
	},
	{
		Code:        "voice.widget.donut_chart",
		Name:        "Donut Chart",
		Description: "Pie chart with a hollow center.",
		Category:    "charts",
		Schema:      chartConfigSchema(false),
	},
	{
		Code:        "voice.widget.heatmap_chart",
		Name:        "Heatmap Chart",
		Description: "Category heatmap rendered with echarts.",
		Category:    "charts",
		Schema:      heatmapChartSchema(),
	},
	{
		Code:        "voice.widget.gauge_chart",
		Name:        "Gauge Chart",
		Description: "Single-value gauge visualization.",
		Category:    "charts",
		Schema:      chartConfigSchema(false),
	},
}

func objectSchema(props map[string]any) map[string]any {
	return map[string]any{
		"type":                 "object",
		"properties":           props,
		"additionalProperties": false,
	}
}

func stringArraySchema() map[string]any {
	return map[string]any{
		"type":  "array",
		"items": map[string]any{"type": "string"},
	}
}

func chartSeriesSchema() map[string]any {
	return map[string]any{
		"type":     "object",
		"required": []string{"name", "data"},
		"properties": map[string]any{
			"name": map[string]any{
				"type":    "string",
				"default": "Series",
			},
			"data": map[string]any{
				"type":     "array",
				"minItems": 1,
				"items": map[string]any{
					"oneOf": []map[string]any{
						{"type": "number"},
						{
							"type":     "object",
							"required": []string{"value"},
							"properties": map[string]any{
								"name":  map[string]any{"type": "string"},
								"value": map[string]any{"type": "number"},
							},
						},
						{
							"type":     "array",
							"minItems": 2,
							"items":    map[string]any{"type": "number"},
						},
					},
				},
			},
		},
	}
}

func chartBaseProps() map[string]any {
	return map[string]any{
		"title":            map[string]any{"type": "string", "default": "Chart"},
		"subtitle":         map[string]any{"type": "string"},
		"theme":            map[string]any{"type": "string", "enum": chartThemes},
		"dynamic":          map[string]any{"type": "boolean", "default": false},
		"refresh_endpoint": map[string]any{"type": "string"},
		"colors":           stringArraySchema(),
	}
}

func chartConfigSchema(includeAxis bool) map[string]any {
	props := chartBaseProps()
	props["series"] = map[string]any{
		"type":     "array",
		"items":    chartSeriesSchema(),
		"minItems": 1,
	}
	if includeAxis {
		axis := stringArraySchema()
		axis["default"] = []string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}
		props["x_axis"] = axis
	}
	return map[string]any{
		"type":       "object",
		"required":   []string{"series"},
		"properties": props,
	}
}

func heatmapChartSchema() map[string]any {
	props := chartBaseProps()
	props["x_axis"] = stringArraySchema()
	props["y_axis"] = stringArraySchema()
	props["max"] = map[string]any{"type": "number", "minimum": 0}
	props["cells"] = map[string]any{
		"type":     "array",
		"minItems": 1,
		"items": map[string]any{
			"type":     "array",
			"minItems": 3,
			"maxItems": 3,
			"items":    map[string]any{"type": "number"},
		},
	}
	return map[string]any{
		"type":       "object",
		"required":   []string{"cells", "x_axis", "y_axis"},
		"properties": props,
	}
}

func callTrendSchema() map[string]any {
	metrics := []string{TrendMetricCalls, TrendMetricDuration, TrendMetricConversion, TrendMetricSentiment}
	return objectSchema(map[string]any{
		"title":             map[string]any{"type": "string"},
		"period":            map[string]any{"type": "string", "enum": []string{"7d", "14d", "30d", "60d", "90d"}, "default": "30d"},
		"metric":            map[string]any{"type": "string", "enum": metrics, "default": TrendMetricCalls},
		"comparison_metric": map[string]any{"type": "string", "enum": metrics},
		"dynamic":           map[string]any{"type": "boolean", "default": false},
		"refresh_endpoint":  map[string]any{"type": "string"},
		"theme":             map[string]any{"type": "string", "enum": chartThemes},
	})
}

var defaultSeedConfigs = []AddWidgetRequest{
	{
		DefinitionID:  WidgetCallVolumeHeatmap,
		AreaCode:      AreaMain,
		Configuration: map[string]any{"range": "7d"},
	},
	{
		DefinitionID:  WidgetFrictionHeatmap,
		AreaCode:      AreaMain,
		Configuration: map[string]any{"export_url": "/voice/dashboard/friction.csv"},
	},
	{
		DefinitionID:  WidgetLiveActivity,
		AreaCode:      AreaMain,
		Configuration: map[string]any{"view": ActivityViewWeek},
	},
	{
		DefinitionID:  WidgetSentimentDonut,
		AreaCode:      AreaSidebar,
		Configuration: map[string]any{"center_label": "Calls"},
	},
	{
		DefinitionID:  WidgetLeaderboard,
		AreaCode:      AreaSidebar,
		Configuration: map[string]any{"limit": 5},
	},
	{
		DefinitionID:  WidgetGeographicActivity,
		AreaCode:      AreaFooter,
		Configuration: map[string]any{"mode": GeoModeVolume},
	},
}

// DefaultAreaDefinitions returns copies of built-in area definitions.
func DefaultAreaDefinitions() []WidgetAreaDefinition {
	out := make([]WidgetAreaDefinition, len(defaultAreaDefinitions))
	copy(out, defaultAreaDefinitions)
	return out
}

// DefaultAreaCodes lists the built-in area codes in render order.
func DefaultAreaCodes() []string {
	out := make([]string, len(defaultAreaDefinitions))
	for i, def := range defaultAreaDefinitions {
		out[i] = def.Code
	}
	return out
}

// DefaultWidgetDefinitions returns copies of built-in widget definitions.
func DefaultWidgetDefinitions() []WidgetDefinition {
	out := make([]WidgetDefinition, len(defaultWidgetDefinitions))
	copy(out, defaultWidgetDefinitions)
	return out
}

// DefaultSeedWidgets returns starter widget configurations.
func DefaultSeedWidgets() []AddWidgetRequest {
	out := make([]AddWidgetRequest, len(defaultSeedConfigs))
	for i, cfg := range defaultSeedConfigs {
		c := cfg
		c.Configuration = cloneConfig(cfg.Configuration)
		out[i] = c
	}
	return out
}

// DefaultWidgetVisibility returns a permissive visibility configuration for seeds.
func DefaultWidgetVisibility() WidgetVisibility {
	now := time.Now().UTC()
	return WidgetVisibility{
		StartAt: &now,
	}
}
