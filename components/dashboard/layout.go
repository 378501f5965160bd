package dashboard

import "sort"

func applyOrderOverride(widgets []WidgetInstance, order []string) []WidgetInstance {
	if len(order) == 0 {
		return widgets
	}
	index := make(map[string]WidgetInstance, len(widgets))
	for _, w := range widgets {
		index[w.ID] = w
	}
	result := make([]WidgetInstance, 0, len(widgets))
	seen := make(map[string]struct{}, len(order))
	for _, id := range order {
		if w, ok := index[id]; ok {
			result = append(result, w)
			seen[id] = struct{}{}
		}
	}
	for _, w := range widgets {
		if _, ok := seen[w.ID]; !ok {
			result = append(result, w)
		}
	}
	return result
}

func applyHiddenFilter(widgets []WidgetInstance, hidden map[string]bool) []WidgetInstance {
	if len(hidden) == 0 {
		return widgets
	}
	out := make([]WidgetInstance, 0, len(widgets))
	for _, w := range widgets {
		if !hidden[w.ID] {
			out = append(out, w)
		}
	}
	return out
}

// captureWidgets flattens a layout into saved-layout placements ordered by
// area then position.
func captureWidgets(areas []string, layout Layout) []LayoutWidget {
	var out []LayoutWidget
	for _, area := range areas {
		for i, w := range layout.Areas[area] {
			out = append(out, LayoutWidget{
				DefinitionID:  w.DefinitionID,
				AreaCode:      area,
				Configuration: cloneConfig(w.Configuration),
				Position:      i,
			})
		}
	}
	return out
}

// orderedPlacements sorts placements by area then position without mutating in.
func orderedPlacements(in []LayoutWidget) []LayoutWidget {
	out := cloneLayoutWidgets(in)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].AreaCode != out[j].AreaCode {
			return out[i].AreaCode < out[j].AreaCode
		}
		return out[i].Position < out[j].Position
	})
	return out
}
