package extract

import (
	"strings"

	"github.com/platelog/backend/internal/domain"
)

// Some vendor APIs ship nutrition as an array of nutrient entries
// ({"nutrient_name_id": "total_fat", "value": 26}) instead of a flat
// object. These helpers index such arrays and read macros out of them.

var nutrientEntryNameKeys = []string{"nutrientnameid", "nutrientname", "nutrientid", "name"}
var nutrientEntryValueKeys = []string{"value", "amount", "quantity"}

func looksLikeNutrientEntry(v interface{}) bool {
	obj, ok := v.(map[string]interface{})
	if !ok {
		return false
	}
	if _, ok := lookupValue(obj, nutrientEntryNameKeys); !ok {
		return false
	}
	_, ok = lookupValue(obj, nutrientEntryValueKeys)
	return ok
}

func looksLikeNutrientList(list []interface{}) bool {
	if len(list) == 0 {
		return false
	}
	shaped := 0
	for _, v := range list {
		if looksLikeNutrientEntry(v) {
			shaped++
		}
	}
	return shaped*2 > len(list)
}

// indexNutrientList builds a value map keyed by the normalized nutrient
// id and the normalized nutrient name of each entry.
func indexNutrientList(list []interface{}) map[string]interface{} {
	byKey := make(map[string]interface{}, len(list)*2)
	for _, v := range list {
		obj, ok := v.(map[string]interface{})
		if !ok || !looksLikeNutrientEntry(obj) {
			continue
		}
		value, _ := lookupValue(obj, nutrientEntryValueKeys)
		for _, keyAlias := range nutrientEntryNameKeys {
			if raw, ok := lookupValue(obj, []string{keyAlias}); ok {
				if s, ok := raw.(string); ok {
					nk := NormalizeKey(s)
					if nk != "" {
						if _, seen := byKey[nk]; !seen {
							byKey[nk] = value
						}
					}
				}
			}
		}
	}
	return byKey
}

// listNutrient resolves one macro from an indexed nutrient list: exact
// alias hit first, then alias-substring containment for keys like
// "totalcarbohydrateg".
func listNutrient(byKey map[string]interface{}, aliases []string) *int {
	for _, alias := range aliases {
		if v, ok := byKey[alias]; ok {
			return ExtractNumber(v)
		}
	}
	for _, alias := range aliases {
		for k, v := range byKey {
			if strings.Contains(k, alias) {
				return ExtractNumber(v)
			}
		}
	}
	return nil
}

func nutritionFromNutrientList(list []interface{}) domain.ExtractedNutrition {
	byKey := indexNutrientList(list)
	return domain.ExtractedNutrition{
		Calories:     listNutrient(byKey, caloriesKeys),
		Protein:      listNutrient(byKey, proteinKeys),
		Carbs:        listNutrient(byKey, carbsKeys),
		Fat:          listNutrient(byKey, fatKeys),
		SaturatedFat: listNutrient(byKey, saturatedFatKeys),
		TransFat:     listNutrient(byKey, transFatKeys),
		Cholesterol:  listNutrient(byKey, cholesterolKeys),
		Sodium:       listNutrient(byKey, sodiumKeys),
		Fiber:        listNutrient(byKey, fiberKeys),
		Sugars:       listNutrient(byKey, sugarsKeys),
	}
}

// FromNutrientList extracts items whose nutrition lives in a nutrient
// entry array next to the item name. All four required macros must come
// from the array itself; partial arrays are left for looser strategies.
func FromNutrientList(p Payload) []domain.ExtractedNutrition {
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
		for _, child := range obj {
			list, ok := child.([]interface{})
			if !ok || !looksLikeNutrientList(list) {
				continue
			}
			record := nutritionFromNutrientList(list)
			if !record.Usable() {
				continue
			}
			record.Name = name
			record.ServingSize = buildServingSize(obj)
			record.ItemID = lookupString(obj, idKeys)

			key := NormalizeKey(name) + ":" + record.ItemID
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, record)
		}
	})
	return out
}
