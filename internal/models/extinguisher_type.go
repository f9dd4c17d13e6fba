package models

import (
	"time"

	"github.com/google/uuid"
)

// Agent types
const (
	AgentABC         = "ABC"
	AgentBC          = "BC"
	AgentCO2         = "CO2"
	AgentWater       = "Water"
	AgentFoam        = "Foam"
	AgentWetChemical = "WetChemical"
	AgentClassD      = "ClassD"
	AgentCleanAgent  = "CleanAgent"
)

type ExtinguisherType struct {
	ID                  uuid.UUID `json:"id" db:"id"`
	TenantID            uuid.UUID `json:"tenant_id" db:"tenant_id"`
	Code                string    `json:"code" db:"code"`
	Name                string    `json:"name" db:"name"`
	AgentType           string    `json:"agent_type" db:"agent_type"`
	MonthlyInspection   bool      `json:"monthly_inspection" db:"monthly_inspection"`
	AnnualServiceMonths int       `json:"annual_service_months" db:"annual_service_months"`
	HydroTestYears      int       `json:"hydro_test_years" db:"hydro_test_years"`
	SixYearMaintenance  bool      `json:"six_year_maintenance" db:"six_year_maintenance"`
	CreatedAt           time.Time `json:"created_at" db:"created_at"`
	UpdatedAt           time.Time `json:"updated_at" db:"updated_at"`
}

type ExtinguisherTypeRequest struct {
	Code                string `json:"code" validate:"required,max=50"`
	Name                string `json:"name" validate:"required,max=200"`
	AgentType           string `json:"agent_type" validate:"required,oneof=ABC BC CO2 Water Foam WetChemical ClassD CleanAgent"`
	MonthlyInspection   *bool  `json:"monthly_inspection"`
	AnnualServiceMonths *int   `json:"annual_service_months" validate:"omitempty,min=1,max=120"`
	HydroTestYears      *int   `json:"hydro_test_years" validate:"omitempty,min=1,max=30"`
	SixYearMaintenance  *bool  `json:"six_year_maintenance"`
}

// DefaultHydroTestYears returns the hydrostatic test interval for an agent:
// 5 years for water, foam, wet chemical and CO2 units, 12 for dry chemical and clean agents.
func DefaultHydroTestYears(agentType string) int {
	switch agentType {
	case AgentWater, AgentFoam, AgentWetChemical, AgentCO2:
		return 5
	default:
		return 12
	}
}

// DefaultSixYearMaintenance reports whether stored-pressure dry chemical and
// clean agent units need six-year internal maintenance.
func DefaultSixYearMaintenance(agentType string) bool {
	switch agentType {
	case AgentABC, AgentBC, AgentClassD, AgentCleanAgent:
		return true
	default:
		return false
	}
}
