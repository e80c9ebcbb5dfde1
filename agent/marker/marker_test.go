package marker

import (
	"errors"
	"testing"
)

func mealSpec() Spec {
	return Spec{
		Header: "**MEAL_LOG:**",
		Fields: []Field{
			{Label: "meal_details"},
			{Label: "calories", Numeric: true},
			{Label: "protein", Numeric: true},
			{Label: "carbs", Numeric: true},
			{Label: "fats", Numeric: true},
		},
	}
}

func TestExtractCompleteBlock(t *testing.T) {
	t.Parallel()

	reply := "Sounds like a solid lunch!\n\n" +
		"**MEAL_LOG:**\n" +
		"- meal_details: Grilled chicken with rice\n" +
		"- calories: 520\n" +
		"- protein: 42\n" +
		"- carbs: 55\n" +
		"- fats: 12\n\n" +
		"Keep it up."

	got, err := mealSpec().Extract(reply)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if got["meal_details"] != "Grilled chicken with rice" {
		t.Fatalf("meal_details = %q, want %q", got["meal_details"], "Grilled chicken with rice")
	}
	if got["calories"] != "520" {
		t.Fatalf("calories = %q, want %q", got["calories"], "520")
	}

	n, err := got.Int("protein")
	if err != nil {
		t.Fatalf("Int(protein) error = %v", err)
	}
	if n != 42 {
		t.Fatalf("Int(protein) = %d, want 42", n)
	}
}

func TestExtractStopsAtBlankLine(t *testing.T) {
	t.Parallel()

	reply := "**MEAL_LOG:**\n" +
		"- meal_details: Oatmeal\n" +
		"- calories: 300\n\n" +
		"- protein: 10\n" +
		"- carbs: 50\n" +
		"- fats: 5\n"

	_, err := mealSpec().Extract(reply)
	if !errors.Is(err, ErrMissingField) {
		t.Fatalf("Extract() error = %v, want ErrMissingField", err)
	}
}

func TestExtractMissingHeader(t *testing.T) {
	t.Parallel()

	_, err := mealSpec().Extract("just a friendly reply, nothing structured")
	if !errors.Is(err, ErrNoBlock) {
		t.Fatalf("Extract() error = %v, want ErrNoBlock", err)
	}
}

func TestExtractMissingOneFieldYieldsNothing(t *testing.T) {
	t.Parallel()

	reply := "**MEAL_LOG:**\n" +
		"- meal_details: Salad\n" +
		"- calories: 180\n" +
		"- protein: 6\n" +
		"- carbs: 20\n"
	// fats absent

	values, err := mealSpec().Extract(reply)
	if !errors.Is(err, ErrMissingField) {
		t.Fatalf("Extract() error = %v, want ErrMissingField", err)
	}
	if values != nil {
		t.Fatalf("Extract() values = %v, want nil on failure", values)
	}
}

func TestExtractNumericValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		calories string
		want     string
		wantErr  error
	}{
		{name: "plain integer", calories: "450", want: "450"},
		{name: "trailing unit dropped", calories: "450 kcal", want: "450"},
		{name: "non numeric", calories: "plenty", wantErr: ErrBadNumber},
		{name: "negative rejected", calories: "-450", wantErr: ErrBadNumber},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			reply := "**MEAL_LOG:**\n" +
				"- meal_details: Something\n" +
				"- calories: " + tc.calories + "\n" +
				"- protein: 10\n" +
				"- carbs: 10\n" +
				"- fats: 10\n"

			values, err := mealSpec().Extract(reply)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("Extract() error = %v, want %v", err, tc.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Extract() error = %v", err)
			}
			if values["calories"] != tc.want {
				t.Fatalf("calories = %q, want %q", values["calories"], tc.want)
			}
		})
	}
}

func TestExtractLabelMatchingIsCaseInsensitive(t *testing.T) {
	t.Parallel()

	spec := Spec{
		Header: "**EQUIPMENT_ADD:**",
		Fields: []Field{
			{Label: "item_name"},
			{Label: "item_description"},
			{Label: "equipment_group_id"},
		},
	}

	reply := "**EQUIPMENT_ADD:**\n" +
		"Item_Name: Adjustable dumbbells\n" +
		"ITEM_DESCRIPTION: 5-50 lb pair\n" +
		"equipment_group_id: 7f3a\n"

	got, err := spec.Extract(reply)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if got["item_name"] != "Adjustable dumbbells" {
		t.Fatalf("item_name = %q, want %q", got["item_name"], "Adjustable dumbbells")
	}
	if got["equipment_group_id"] != "7f3a" {
		t.Fatalf("equipment_group_id = %q, want %q", got["equipment_group_id"], "7f3a")
	}
}

func TestExtractHeaderIsCaseSensitive(t *testing.T) {
	t.Parallel()

	reply := "**meal_log:**\n- meal_details: x\n- calories: 1\n- protein: 1\n- carbs: 1\n- fats: 1\n"
	if _, err := mealSpec().Extract(reply); !errors.Is(err, ErrNoBlock) {
		t.Fatalf("Extract() error = %v, want ErrNoBlock", err)
	}
}

func TestExtractEmptyValueCountsAsMissing(t *testing.T) {
	t.Parallel()

	reply := "**MEAL_LOG:**\n" +
		"- meal_details:\n" +
		"- calories: 100\n" +
		"- protein: 5\n" +
		"- carbs: 10\n" +
		"- fats: 2\n"

	if _, err := mealSpec().Extract(reply); !errors.Is(err, ErrMissingField) {
		t.Fatalf("Extract() error = %v, want ErrMissingField", err)
	}
}
