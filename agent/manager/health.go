package manager

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/Chative-Hierarchical-Agent-Director/agent/contract"
	specialistx "github.com/tanpawarit/Chative-Hierarchical-Agent-Director/agent/specialist"
	storex "github.com/tanpawarit/Chative-Hierarchical-Agent-Director/agent/store"
)

const HealthName = "health_manager"

// NewHealth builds the health and wellness coordinator over the meal and
// equipment specialists. The fitness and tracking destinations are declared
// but unstaffed, so their traffic is served locally for now.
func NewHealth(llm contractx.Completer, records storex.Store, systemPrompt string, cfg Config, meal, equipment contractx.Agent) (*Manager, error) {
	if meal == nil {
		return nil, errors.New("meal specialist is required")
	}
	if equipment == nil {
		return nil, errors.New("equipment specialist is required")
	}
	return New(healthProfile(systemPrompt, meal, equipment), llm, records, cfg)
}

func healthProfile(systemPrompt string, meal, equipment contractx.Agent) Profile {
	return Profile{
		Name:         HealthName,
		Role:         "Coordinates health and wellness: nutrition, meal planning, and exercise equipment",
		SystemPrompt: systemPrompt,
		Routes: []Route{
			{
				Name:  specialistx.MealName,
				Title: "Meal Planning",
				Keywords: []string{
					"meal", "food", "eat", "cook", "recipe", "nutrition", "calories",
					"protein", "carbs", "fats", "breakfast", "lunch", "dinner", "snack",
					"hungry", "diet", "cookbook", "ingredient", "log meal",
				},
				Agent: meal,
			},
			{
				Name:  specialistx.EquipmentName,
				Title: "Equipment Management",
				Keywords: []string{
					"equipment", "gym equipment", "weights", "dumbbells", "treadmill",
					"bike", "home gym", "office gym", "gear", "machine", "barbell",
					"kettlebell", "yoga mat", "bench", "rack", "add equipment",
					"buy equipment", "new equipment", "equipment list", "what equipment",
				},
				Agent: equipment,
			},
			{
				Name:  "fitness_trainer",
				Title: "Fitness Trainer",
				Keywords: []string{
					"workout", "exercise", "cardio", "strength", "training",
					"fitness", "muscle", "weight lifting", "run", "jog",
				},
			},
			{
				Name:  "health_tracker",
				Title: "Health Tracker",
				Keywords: []string{
					"weight", "blood pressure", "heart rate", "sleep", "steps",
					"vitals", "measurement", "progress", "tracking",
				},
			},
		},
		TriggerWords: []string{"progress", "analysis", "goals", "overview", "summary"},
		Context:      healthContext,
		Details:      healthDetails,
	}
}

type nutritionSummary struct {
	Meals    int
	Calories int
	Protein  int
	Carbs    int
	Fats     int
}

func (n nutritionSummary) dailyAvgCalories() int {
	return n.Calories / 7
}

// nutritionWindow sums the food log over the trailing 7 days. A store
// failure degrades to an empty summary.
func nutritionWindow(ctx context.Context, st storex.Store, now time.Time) nutritionSummary {
	since := now.AddDate(0, 0, -7).UTC().Format(time.RFC3339)
	meals, err := st.Query(ctx, storex.KindFoodLog, &storex.Filter{
		Field: "meal_time",
		Op:    storex.FilterSince,
		Value: since,
	})
	if err != nil {
		log.Warn().Err(err).Msg("nutrition window degraded to empty")
		return nutritionSummary{}
	}

	sum := nutritionSummary{Meals: len(meals)}
	for _, meal := range meals {
		sum.Calories += meal.Int("calories")
		sum.Protein += meal.Int("protein")
		sum.Carbs += meal.Int("carbs")
		sum.Fats += meal.Int("fats")
	}
	return sum
}

func healthGoals(ctx context.Context, st storex.Store, areaID string) []storex.Record {
	var filter *storex.Filter
	if areaID != "" {
		filter = &storex.Filter{Field: "area", Value: areaID}
	}
	goals, err := st.Query(ctx, storex.KindGoals, filter)
	if err != nil {
		log.Warn().Err(err).Msg("health goals degraded to empty")
		return nil
	}
	return goals
}

// healthContext renders the trigger-word context for local handling: the
// 7-day nutrition picture plus the leading active goals.
func healthContext(ctx context.Context, st storex.Store, now time.Time, areaID string) string {
	sum := nutritionWindow(ctx, st, now)
	goals := healthGoals(ctx, st, areaID)

	var parts []string
	if sum.Meals > 0 {
		parts = append(parts, strings.Join([]string{
			"**Nutrition Analysis (Last 7 Days):**",
			fmt.Sprintf("- Total Calories: %d", sum.Calories),
			fmt.Sprintf("- Daily Average: %d calories", sum.dailyAvgCalories()),
			fmt.Sprintf("- Protein: %dg | Carbs: %dg | Fats: %dg", sum.Protein, sum.Carbs, sum.Fats),
			fmt.Sprintf("- Meals Logged: %d", sum.Meals),
		}, "\n"))
	}
	if len(goals) > 0 {
		lines := []string{fmt.Sprintf("**Active Health Goals:** %d goals tracked", len(goals))}
		for i, goal := range goals {
			if i == 3 {
				break
			}
			desc := goal.Text("description")
			if desc == "" {
				desc = goal.Text("name")
			}
			lines = append(lines, "- "+desc)
		}
		parts = append(parts, strings.Join(lines, "\n"))
	}

	if len(parts) == 0 {
		return "No health data available for analysis."
	}
	return strings.Join(parts, "\n\n")
}

func healthDetails(ctx context.Context, st storex.Store, now time.Time, areaID string) map[string]any {
	sum := nutritionWindow(ctx, st, now)
	return map[string]any{
		"meals_logged_7d":    sum.Meals,
		"calories_7d":        sum.Calories,
		"protein_7d":         sum.Protein,
		"carbs_7d":           sum.Carbs,
		"fats_7d":            sum.Fats,
		"daily_avg_calories": sum.dailyAvgCalories(),
		"goals_tracked":      len(healthGoals(ctx, st, areaID)),
	}
}
