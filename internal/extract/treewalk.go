package extract

import (
	"github.com/platelog/backend/internal/domain"
)

// Vendor JSON payloads bury menu items at unpredictable depths. walkJSON
// visits every object in a decoded document with an explicit stack and a
// hard visit bound, so a hostile or cyclic-looking payload can't wedge an
// ingestion run.
const maxTreeVisits = 100000

var nestedNutritionKeys = []string{"nutrition", "nutritionfacts", "nutritionalinfo", "nutritioninformation", "nutrients", "nutritionals"}

func walkJSON(root interface{}, visit func(map[string]interface{})) {
	stack := []interface{}{root}
	visits := 0
	for len(stack) > 0 && visits < maxTreeVisits {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		visits++

		switch n := node.(type) {
		case map[string]interface{}:
			visit(n)
			for _, v := range n {
				stack = append(stack, v)
			}
		case []interface{}:
			for _, v := range n {
				stack = append(stack, v)
			}
		}
	}
}

// FromTree walks a decoded JSON document and collects every named object
// that carries a full set of macros, whether the values sit on the object
// itself, in a nested nutrition object, or in a nutrient entry array.
func FromTree(p Payload) []domain.ExtractedNutrition {
	if p.JSON == nil {
		return nil
	}

	var out []domain.ExtractedNutrition
	seen := make(map[string]bool)

	walkJSON(p.JSON, func(obj map[string]interface{}) {
		name := nodeName(obj)
		if name == "" {
			return
		}

		record := nutritionFromMap(obj)
		for _, key := range nestedNutritionKeys {
			nested, ok := lookupValue(obj, []string{key})
			if !ok {
				continue
			}
			switch n := nested.(type) {
			case map[string]interface{}:
				mergeNutrition(&record, nutritionFromMap(n))
			case []interface{}:
				if looksLikeNutrientList(n) {
					mergeNutrition(&record, nutritionFromNutrientList(n))
				}
			}
		}
		for _, child := range obj {
			if list, ok := child.([]interface{}); ok && looksLikeNutrientList(list) {
				mergeNutrition(&record, nutritionFromNutrientList(list))
			}
		}

		if !record.Usable() {
			return
		}
		record.Name = name
		record.ServingSize = buildServingSize(obj)
		record.ItemID = lookupString(obj, idKeys)

		key := NormalizeKey(name) + ":" + record.ItemID
		if seen[key] {
			return
		}
		seen[key] = true
		out = append(out, record)
	})
	return out
}
