package prompt

import (
	_ "embed"
	"strings"
)

var (
	//go:embed template/director.txt
	directorRaw string

	//go:embed template/health_manager.txt
	healthManagerRaw string

	//go:embed template/meal_specialist.txt
	mealSpecialistRaw string

	//go:embed template/equipment_specialist.txt
	equipmentSpecialistRaw string

	//go:embed template/synthesis.txt
	synthesisRaw string
)

// PromptSet holds loaded prompt content.
type PromptSet struct {
	Director            string
	HealthManager       string
	MealSpecialist      string
	EquipmentSpecialist string
	Synthesis           string
}

// LoadPromptSet returns the embedded prompt templates with surrounding
// whitespace trimmed.
func LoadPromptSet() PromptSet {
	return PromptSet{
		Director:            strings.TrimSpace(directorRaw),
		HealthManager:       strings.TrimSpace(healthManagerRaw),
		MealSpecialist:      strings.TrimSpace(mealSpecialistRaw),
		EquipmentSpecialist: strings.TrimSpace(equipmentSpecialistRaw),
		Synthesis:           strings.TrimSpace(synthesisRaw),
	}
}
