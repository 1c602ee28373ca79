package extract

import (
	"fmt"
	"strings"

	"github.com/platelog/backend/internal/domain"
)

// Key aliases observed across vendor payloads. Lookup keys are compared
// after NormalizeKey, so "Total Fat (g)" and "total_fat_g" both land on
// the fat aliases.
var (
	nameKeys = []string{"foodname", "itemname", "name", "displayname", "title"}

	caloriesKeys = []string{"nfcalories", "calories", "calorieskcal", "energy", "kcal", "energykcal"}
	proteinKeys  = []string{"nfprotein", "protein", "proteincontent", "proteing"}
	carbsKeys    = []string{"nftotalcarbohydrate", "totalcarbohydrate", "carbohydrates", "carbohydrate", "carbs", "carbohydratecontent", "totalcarbs"}
	fatKeys      = []string{"nftotalfat", "totalfat", "fat", "fatcontent", "totalfatg"}

	saturatedFatKeys = []string{"nfsaturatedfat", "saturatedfat", "satfat", "saturatedfatcontent"}
	transFatKeys     = []string{"transfat", "transfatcontent", "transfattyacid"}
	cholesterolKeys  = []string{"nfcholesterol", "cholesterol", "cholesterolcontent"}
	sodiumKeys       = []string{"nfsodium", "sodium", "sodiumcontent", "salt"}
	fiberKeys        = []string{"nfdietaryfiber", "dietaryfiber", "fiber", "fibre", "fibercontent", "fibrecontent"}
	sugarsKeys       = []string{"nfsugars", "totalsugars", "sugars", "sugar", "sugarcontent"}
	servingKeys      = []string{"servingsize", "nfservingsize", "serving"}
	idKeys           = []string{"id", "itemid", "externalid", "productid"}
)

// lookupValue finds the first alias present in the map, with keys
// compared in normalized form.
func lookupValue(obj map[string]interface{}, aliases []string) (interface{}, bool) {
	if len(obj) == 0 {
		return nil, false
	}
	normalized := make(map[string]interface{}, len(obj))
	for k, v := range obj {
		nk := NormalizeKey(k)
		if _, seen := normalized[nk]; !seen {
			normalized[nk] = v
		}
	}
	for _, alias := range aliases {
		if v, ok := normalized[alias]; ok {
			return v, true
		}
	}
	return nil, false
}

func lookupNumber(obj map[string]interface{}, aliases []string) *int {
	v, ok := lookupValue(obj, aliases)
	if !ok {
		return nil
	}
	return ExtractNumber(v)
}

func lookupString(obj map[string]interface{}, aliases []string) string {
	v, ok := lookupValue(obj, aliases)
	if !ok {
		return ""
	}
	switch s := v.(type) {
	case string:
		return strings.TrimSpace(s)
	case float64, int, int64:
		return strings.TrimSpace(fmt.Sprintf("%v", s))
	}
	return ""
}

// nodeName returns the display name of a JSON node, trying the known
// name keys in priority order.
func nodeName(obj map[string]interface{}) string {
	for _, key := range nameKeys {
		if v, ok := lookupValue(obj, []string{key}); ok {
			if s, ok := v.(string); ok {
				if trimmed := strings.TrimSpace(s); trimmed != "" {
					return trimmed
				}
			}
		}
	}
	return ""
}

// nutritionFromMap reads every known nutrient field out of a flat map.
// Missing fields stay nil.
func nutritionFromMap(obj map[string]interface{}) domain.ExtractedNutrition {
	return domain.ExtractedNutrition{
		Calories:     lookupNumber(obj, caloriesKeys),
		Protein:      lookupNumber(obj, proteinKeys),
		Carbs:        lookupNumber(obj, carbsKeys),
		Fat:          lookupNumber(obj, fatKeys),
		SaturatedFat: lookupNumber(obj, saturatedFatKeys),
		TransFat:     lookupNumber(obj, transFatKeys),
		Cholesterol:  lookupNumber(obj, cholesterolKeys),
		Sodium:       lookupNumber(obj, sodiumKeys),
		Fiber:        lookupNumber(obj, fiberKeys),
		Sugars:       lookupNumber(obj, sugarsKeys),
	}
}

// mergeNutrition fills nil fields of dst from src, never overwriting a
// value an earlier, more specific source already produced.
func mergeNutrition(dst *domain.ExtractedNutrition, src domain.ExtractedNutrition) {
	fill := func(d **int, s *int) {
		if *d == nil && s != nil {
			*d = s
		}
	}
	fill(&dst.Calories, src.Calories)
	fill(&dst.Protein, src.Protein)
	fill(&dst.Carbs, src.Carbs)
	fill(&dst.Fat, src.Fat)
	fill(&dst.SaturatedFat, src.SaturatedFat)
	fill(&dst.TransFat, src.TransFat)
	fill(&dst.Cholesterol, src.Cholesterol)
	fill(&dst.Sodium, src.Sodium)
	fill(&dst.Fiber, src.Fiber)
	fill(&dst.Sugars, src.Sugars)
}

// buildServingSize assembles a human-readable serving description from
// the quantity/unit/weight fields a vendor payload may carry.
func buildServingSize(obj map[string]interface{}) string {
	qty := lookupString(obj, []string{"servingqty", "servingquantity"})
	unit := lookupString(obj, []string{"servingunit", "servingsizeunit"})
	grams := lookupString(obj, []string{"servingweightgrams", "servingweight"})

	parts := make([]string, 0, 2)
	if qty != "" && unit != "" {
		parts = append(parts, qty+" "+unit)
	} else if unit != "" {
		parts = append(parts, unit)
	}
	if grams != "" {
		parts = append(parts, "("+grams+" g)")
	}
	if len(parts) == 0 {
		return lookupString(obj, servingKeys)
	}
	return strings.Join(parts, " ")
}
