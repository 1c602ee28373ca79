package extract

import (
	"encoding/json"
	"testing"
)

func decodeJSON(t *testing.T, raw string) interface{} {
	t.Helper()
	var v interface{}
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		t.Fatalf("bad test fixture: %v", err)
	}
	return v
}

func TestFromTreeNestedItems(t *testing.T) {
	payload := decodeJSON(t, `{
		"data": {
			"menu": {
				"sections": [
					{"items": [
						{"item_name": "Turkey Club", "serving_qty": 1, "serving_unit": "sandwich",
						 "nutrition": {"calories": 620, "protein": 34, "total_carbohydrate": 58, "total_fat": 28, "sodium": 1480}},
						{"item_name": "Broken Item", "nutrition": {"calories": 100}}
					]}
				]
			}
		}
	}`)

	records := FromTree(Payload{JSON: payload})
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}
	r := records[0]
	if r.Name != "Turkey Club" {
		t.Errorf("name = %q", r.Name)
	}
	if *r.Calories != 620 || *r.Protein != 34 || *r.Carbs != 58 || *r.Fat != 28 {
		t.Errorf("macros = %v %v %v %v", *r.Calories, *r.Protein, *r.Carbs, *r.Fat)
	}
	if r.Sodium == nil || *r.Sodium != 1480 {
		t.Errorf("sodium not carried through")
	}
	if r.ServingSize != "1 sandwich" {
		t.Errorf("serving = %q", r.ServingSize)
	}
}

func TestFromTreeFlatFields(t *testing.T) {
	payload := decodeJSON(t, `{"foods": [
		{"food_name": "Oatmeal", "nf_calories": 158.4, "nf_protein": 5.5, "nf_total_carbohydrate": 27, "nf_total_fat": 3.2}
	]}`)

	records := FromTree(Payload{JSON: payload})
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}
	if got := *records[0].Calories; got != 158 {
		t.Errorf("calories = %d, want 158", got)
	}
}

func TestFromTreeDedupesByNameAndID(t *testing.T) {
	payload := decodeJSON(t, `{"a": {"name": "Fries", "id": "7", "calories": 320, "protein": 4, "carbs": 42, "fat": 15},
		"b": {"name": "Fries", "id": "7", "calories": 320, "protein": 4, "carbs": 42, "fat": 15}}`)

	records := FromTree(Payload{JSON: payload})
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}
}

func TestFromNutrientList(t *testing.T) {
	payload := decodeJSON(t, `{"item": {
		"name": "Double Cheeseburger",
		"nutrient_facts": [
			{"nutrient_name_id": "calories", "value": 450},
			{"nutrient_name_id": "protein", "value": 25},
			{"nutrient_name_id": "total_carbohydrate", "value": 34},
			{"nutrient_name_id": "total_fat", "value": 24},
			{"nutrient_name_id": "sodium", "value": "1,120 mg"}
		]
	}}`)

	records := FromNutrientList(Payload{JSON: payload})
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}
	r := records[0]
	if *r.Calories != 450 || *r.Protein != 25 || *r.Carbs != 34 || *r.Fat != 24 {
		t.Errorf("macros wrong: %+v", r)
	}
	if r.Sodium == nil || *r.Sodium != 1120 {
		t.Errorf("sodium = %v, want 1120", fmtIntPtr(r.Sodium))
	}
}

func TestFromNutrientListSubstringAliases(t *testing.T) {
	payload := decodeJSON(t, `{"item": {
		"name": "Hashbrown",
		"facts": [
			{"name": "Calories (kcal)", "value": 140},
			{"name": "Protein (g)", "value": 2},
			{"name": "Total Carbohydrate (g)", "value": 18},
			{"name": "Total Fat (g)", "value": 8}
		]
	}}`)

	records := FromNutrientList(Payload{JSON: payload})
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}
	if *records[0].Carbs != 18 {
		t.Errorf("carbs = %d, want 18", *records[0].Carbs)
	}
}

func TestFromTables(t *testing.T) {
	page := `<html><body><table>
		<thead><tr><th>Menu Item</th><th>Serving Size</th><th>Calories</th><th>Calories From Fat</th><th>Total Fat (g)</th><th>Protein (g)</th><th>Total Carbohydrate (g)</th><th>Sodium (mg)</th></tr></thead>
		<tbody>
			<tr><td>A Wreck</td><td>1 original</td><td>590</td><td>250</td><td>28</td><td>37</td><td>49</td><td>1890</td></tr>
			<tr><td>Calories and Nutrition</td><td></td><td></td><td></td><td></td><td></td><td></td><td></td></tr>
			<tr><td>Smoked Ham</td><td>1 original</td><td>480</td><td>160</td><td>18</td><td>28</td><td>52</td><td>1450</td></tr>
		</tbody>
	</table></body></html>`

	records := FromTables(Payload{HTML: page})
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	r := records[0]
	if r.Name != "A Wreck" || *r.Calories != 590 || *r.Fat != 28 || *r.Protein != 37 || *r.Carbs != 49 {
		t.Errorf("first row wrong: %+v", r)
	}
	if r.ServingSize != "1 original" {
		t.Errorf("serving = %q", r.ServingSize)
	}
}

func TestFromPDFTextPositionalRow(t *testing.T) {
	text := "Nutrition Guide\n" +
		"Serving Size  Calories  Total Fat (g)  Protein (g)\n" +
		"Classic Chicken Sandwich  1 each  550 26 24 5 1 65 1150 45 3 9 28\n"

	records := FromPDFText(Payload{PDFText: text})
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}
	r := records[0]
	if r.Name != "Classic Chicken Sandwich" {
		t.Errorf("name = %q", r.Name)
	}
	if r.ServingSize != "1 each" {
		t.Errorf("serving = %q", r.ServingSize)
	}
	if *r.Calories != 550 || *r.Fat != 24 || *r.Protein != 28 || *r.Carbs != 45 {
		t.Errorf("macros = %d %d %d %d", *r.Calories, *r.Fat, *r.Protein, *r.Carbs)
	}
	if *r.Sodium != 1150 || *r.SaturatedFat != 5 || *r.Sugars != 9 {
		t.Errorf("secondary fields wrong: %+v", r)
	}
}

func TestFromPDFTextMergesWrappedName(t *testing.T) {
	text := "Spicy Chicken Sandwich Deluxe\n" +
		"1 each  700 35 32 6 0 80 1520 52 4 10 30\n"

	records := FromPDFText(Payload{PDFText: text})
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}
	if records[0].Name != "Spicy Chicken Sandwich Deluxe" {
		t.Errorf("name = %q", records[0].Name)
	}
}

func TestFromStructuredLDJSON(t *testing.T) {
	page := `<html><head>
		<script type="application/ld+json">
		{"@type": "Product", "name": "Big Breakfast",
		 "nutrition": {"calories": "760 calories", "proteinContent": "28 g", "carbohydrateContent": "51 g", "fatContent": "49 g"}}
		</script>
	</head><body></body></html>`

	records := FromStructured(Payload{HTML: page})
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}
	r := records[0]
	if r.Name != "Big Breakfast" || *r.Calories != 760 || *r.Protein != 28 || *r.Carbs != 51 || *r.Fat != 49 {
		t.Errorf("record wrong: %+v", r)
	}
}

func TestFromLabelPage(t *testing.T) {
	page := `<html><head><title>Menu</title></head><body>
		<h1>Herb Roasted Chicken</h1>
		<span class="nutfactsservsize">1 each</span>
		<p>Calories per serving 280</p>
		<p>Total Fat 12g</p><p>Saturated Fat 3g</p>
		<p>Cholesterol 125mg</p><p>Sodium 540mg</p>
		<p>Total Carbohydrate 2g</p><p>Protein 39g</p>
		<p>Ingredients: chicken, olive oil, rosemary</p>
		<p>Allergens: none</p>
	</body></html>`

	records := FromLabelPage(Payload{HTML: page})
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}
	r := records[0]
	if r.Name != "Herb Roasted Chicken" {
		t.Errorf("name = %q", r.Name)
	}
	if *r.Calories != 280 || *r.Protein != 39 || *r.Carbs != 2 || *r.Fat != 12 {
		t.Errorf("macros = %d %d %d %d", *r.Calories, *r.Protein, *r.Carbs, *r.Fat)
	}
	if r.ServingSize != "1 each" {
		t.Errorf("serving = %q", r.ServingSize)
	}
	if r.Ingredients == "" {
		t.Error("ingredients missing")
	}
}

func TestRunStopsAtFirstUsable(t *testing.T) {
	payload := decodeJSON(t, `{"name": "Side Salad", "calories": 20, "protein": 1, "carbs": 4, "fat": 0}`)
	records := Run(Payload{JSON: payload})
	if len(records) != 1 || records[0].Name != "Side Salad" {
		t.Fatalf("unexpected records: %+v", records)
	}
	if *records[0].Fat != 0 {
		t.Error("explicit zero fat must survive as zero, not nil")
	}
}

func TestRunEmptyPayload(t *testing.T) {
	if records := Run(Payload{}); records != nil {
		t.Errorf("expected nil, got %+v", records)
	}
}
