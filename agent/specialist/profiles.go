package specialist

import (
	"fmt"
	"time"

	contractx "github.com/tanpawarit/Chative-Hierarchical-Agent-Director/agent/contract"
	markerx "github.com/tanpawarit/Chative-Hierarchical-Agent-Director/agent/marker"
	storex "github.com/tanpawarit/Chative-Hierarchical-Agent-Director/agent/store"
)

const (
	MealName      = "meal_specialist"
	EquipmentName = "equipment_specialist"
)

const (
	queryCurrentDate     QueryID = "current_date"
	queryHealthGoals     QueryID = "health_goals"
	queryMealTypes       QueryID = "meal_types"
	queryCookbook        QueryID = "cookbook"
	queryMealsToday      QueryID = "meals_today"
	queryMealsRecent     QueryID = "meals_recent"
	queryEquipmentGroups QueryID = "equipment_groups"
	queryEquipmentItems  QueryID = "equipment_items"
)

// NewMeal builds the meal-logging specialist: nutrition advice, recipes,
// and MEAL_LOG side effects into the food log.
func NewMeal(llm contractx.Completer, records storex.Store, systemPrompt string, cfg Config) (*Specialist, error) {
	return New(mealProfile(systemPrompt), llm, records, cfg)
}

// NewEquipment builds the equipment-tracking specialist: inventory answers
// and EQUIPMENT_ADD side effects into the equipment items table.
func NewEquipment(llm contractx.Completer, records storex.Store, systemPrompt string, cfg Config) (*Specialist, error) {
	return New(equipmentProfile(systemPrompt), llm, records, cfg)
}

func mealProfile(systemPrompt string) Profile {
	return Profile{
		Name:         MealName,
		Role:         "Logs meals with nutrition estimates and advises on recipes, cooking, and meal planning",
		SystemPrompt: systemPrompt,
		Rules: []ContextRule{
			{Query: queryCurrentDate},
			{Keywords: []string{"goal", "health", "target", "objective"}, Query: queryHealthGoals},
			{Keywords: []string{"meal type", "breakfast", "lunch", "dinner", "snack"}, Query: queryMealTypes},
			{Keywords: []string{"recipe", "cook", "how to make", "cookbook", "dish"}, Query: queryCookbook},
			{Keywords: []string{"today", "eaten today", "meals today"}, Query: queryMealsToday},
			{Keywords: []string{"recent", "last few days", "past days", "history"}, Query: queryMealsRecent},
		},
		Defaults: []QueryID{queryCurrentDate, queryMealTypes},
		Queries: map[QueryID]QueryFunc{
			queryCurrentDate: currentDateQuery,
			queryHealthGoals: healthGoalsQuery,
			queryMealTypes:   mealTypesQuery,
			queryCookbook:    cookbookQuery,
			queryMealsToday:  mealsTodayQuery,
			queryMealsRecent: mealsRecentQuery,
		},
		Marker: markerx.Spec{
			Header: "**MEAL_LOG:**",
			Fields: []markerx.Field{
				{Label: "meal_details"},
				{Label: "calories", Numeric: true},
				{Label: "protein", Numeric: true},
				{Label: "carbs", Numeric: true},
				{Label: "fats", Numeric: true},
			},
		},
		Apply: applyMealLog,
	}
}

func applyMealLog(values markerx.Values, env Env) (storex.Kind, storex.Record, error) {
	calories, err := values.Int("calories")
	if err != nil {
		return "", nil, fmt.Errorf("calories: %w", err)
	}
	protein, err := values.Int("protein")
	if err != nil {
		return "", nil, fmt.Errorf("protein: %w", err)
	}
	carbs, err := values.Int("carbs")
	if err != nil {
		return "", nil, fmt.Errorf("carbs: %w", err)
	}
	fats, err := values.Int("fats")
	if err != nil {
		return "", nil, fmt.Errorf("fats: %w", err)
	}

	return storex.KindFoodLog, storex.Record{
		"meal_details": values["meal_details"],
		"calories":     calories,
		"protein":      protein,
		"carbs":        carbs,
		"fats":         fats,
		"meal_time":    env.Now.UTC().Format(time.RFC3339),
	}, nil
}

func equipmentProfile(systemPrompt string) Profile {
	return Profile{
		Name:         EquipmentName,
		Role:         "Tracks exercise equipment inventory, organized into groups",
		SystemPrompt: systemPrompt,
		Rules: []ContextRule{
			{Keywords: []string{"groups", "locations", "categories", "where", "group"}, Query: queryEquipmentGroups},
			{Keywords: []string{"equipment", "items", "what equipment", "show me", "list"}, Query: queryEquipmentItems},
			{Keywords: []string{"add", "new", "buy", "got", "purchased", "bought"}, Query: queryEquipmentGroups},
			{Query: queryCurrentDate},
		},
		Defaults: []QueryID{queryEquipmentGroups},
		Queries: map[QueryID]QueryFunc{
			queryCurrentDate:     currentDateQuery,
			queryEquipmentGroups: equipmentGroupsQuery,
			queryEquipmentItems:  equipmentItemsQuery,
		},
		Marker: markerx.Spec{
			Header: "**EQUIPMENT_ADD:**",
			Fields: []markerx.Field{
				{Label: "item_name"},
				{Label: "item_description"},
				{Label: "equipment_group_id"},
			},
		},
		Apply: applyEquipmentAdd,
	}
}

func applyEquipmentAdd(values markerx.Values, _ Env) (storex.Kind, storex.Record, error) {
	return storex.KindEquipmentItems, storex.Record{
		"item_name":        values["item_name"],
		"item_description": values["item_description"],
		"equipment_group":  values["equipment_group_id"],
	}, nil
}
