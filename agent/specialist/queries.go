package specialist

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	storex "github.com/tanpawarit/Chative-Hierarchical-Agent-Director/agent/store"
)

// fetch runs one store read, degrading a failure to an empty result so the
// request keeps flowing with whatever context did resolve.
func fetch(ctx context.Context, st storex.Store, kind storex.Kind, filter *storex.Filter) []storex.Record {
	records, err := st.Query(ctx, kind, filter)
	if err != nil {
		log.Warn().Err(err).Str("kind", string(kind)).Msg("context query degraded to empty")
		return nil
	}
	return records
}

// renderRecords lists records as one JSON object per line under a title.
// Field sets differ per table, so rows are shown whole rather than picked
// apart column by column.
func renderRecords(title string, records []storex.Record) string {
	if len(records) == 0 {
		return title + ": no records found"
	}
	lines := make([]string, 0, len(records)+1)
	lines = append(lines, title+":")
	for _, rec := range records {
		raw, err := json.Marshal(rec)
		if err != nil {
			continue
		}
		lines = append(lines, "- "+string(raw))
	}
	return strings.Join(lines, "\n")
}

func areaFilter(areaID string) *storex.Filter {
	if areaID == "" {
		return nil
	}
	return &storex.Filter{Field: "area", Value: areaID}
}

func currentDateQuery(_ context.Context, _ storex.Store, env Env) string {
	return "Today's date: " + env.Now.Format("Monday, January 2, 2006")
}

func healthGoalsQuery(ctx context.Context, st storex.Store, env Env) string {
	return renderRecords("Health goals", fetch(ctx, st, storex.KindGoals, areaFilter(env.AreaID)))
}

func mealTypesQuery(ctx context.Context, st storex.Store, _ Env) string {
	return renderRecords("Available meal types", fetch(ctx, st, storex.KindMealTypes, nil))
}

func cookbookQuery(ctx context.Context, st storex.Store, _ Env) string {
	return renderRecords("Cookbook entries", fetch(ctx, st, storex.KindCookbook, nil))
}

func mealsTodayQuery(ctx context.Context, st storex.Store, env Env) string {
	start := time.Date(env.Now.Year(), env.Now.Month(), env.Now.Day(), 0, 0, 0, 0, env.Now.Location())
	filter := &storex.Filter{Field: "meal_time", Op: storex.FilterSince, Value: start.UTC().Format(time.RFC3339)}
	return renderRecords("Meals logged today", fetch(ctx, st, storex.KindFoodLog, filter))
}

func mealsRecentQuery(ctx context.Context, st storex.Store, env Env) string {
	start := env.Now.AddDate(0, 0, -3)
	filter := &storex.Filter{Field: "meal_time", Op: storex.FilterSince, Value: start.UTC().Format(time.RFC3339)}
	return renderRecords("Meals logged in the last 3 days", fetch(ctx, st, storex.KindFoodLog, filter))
}

// equipmentGroupsQuery renders groups with their ids so the model can name
// the group id in an EQUIPMENT_ADD block.
func equipmentGroupsQuery(ctx context.Context, st storex.Store, env Env) string {
	groups := fetch(ctx, st, storex.KindEquipmentGroups, areaFilter(env.AreaID))
	if len(groups) == 0 {
		return "Equipment groups: none recorded"
	}
	lines := make([]string, 0, len(groups)+1)
	lines = append(lines, "Equipment groups:")
	for _, group := range groups {
		line := fmt.Sprintf("- %s (id: %s)", group.Text("name"), group.Text("id"))
		if desc := group.Text("description"); desc != "" {
			line += ": " + desc
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

// equipmentItemsQuery narrows to a single group when the utterance names
// one, otherwise lists the full inventory.
func equipmentItemsQuery(ctx context.Context, st storex.Store, env Env) string {
	groups := fetch(ctx, st, storex.KindEquipmentGroups, areaFilter(env.AreaID))

	text := strings.ToLower(env.Utterance)
	title := "Equipment items"
	var filter *storex.Filter
	for _, group := range groups {
		name := strings.TrimSpace(group.Text("name"))
		if name != "" && strings.Contains(text, strings.ToLower(name)) {
			filter = &storex.Filter{Field: "equipment_group", Value: group.Text("id")}
			title = "Equipment items in " + name
			break
		}
	}

	items := fetch(ctx, st, storex.KindEquipmentItems, filter)
	if len(items) == 0 {
		return title + ": none recorded"
	}
	lines := make([]string, 0, len(items)+1)
	lines = append(lines, title+":")
	for _, item := range items {
		line := "- " + item.Text("item_name")
		if desc := item.Text("item_description"); desc != "" {
			line += ": " + desc
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}
