/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication, decoupling the
  engine's domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - schedule/generator.go: the domain types behind them
*/
package api

import (
	"github.com/warp/payroll-engine/calendar"
	"github.com/warp/payroll-engine/schedule"
)

// ScheduleConfigDTO is a legal entity's stored schedule configuration.
// The milestone set is referenced by ID; its contents live in the
// milestone-set resource.
type ScheduleConfigDTO struct {
	EntityID           string                     `json:"entity_id"`
	EntityType         string                     `json:"entity_type,omitempty"`
	Countries          []string                   `json:"countries"`
	Frequency          schedule.Frequency         `json:"frequency"`
	TaxYear            schedule.TaxYearConvention `json:"tax_year"`
	DueRule            schedule.DueRule           `json:"due_rule"`
	MilestoneSetID     string                     `json:"milestone_set_id"`
	PeriodEndReference *calendar.Date             `json:"period_end_reference,omitempty"`
}

func (d ScheduleConfigDTO) toDomain() schedule.Config {
	return schedule.Config{
		EntityID:           d.EntityID,
		EntityType:         d.EntityType,
		Countries:          d.Countries,
		Frequency:          d.Frequency,
		TaxYear:            d.TaxYear,
		DueRule:            d.DueRule,
		Milestones:         schedule.MilestoneSet{ID: d.MilestoneSetID},
		PeriodEndReference: d.PeriodEndReference,
	}
}

func configDTO(cfg schedule.Config) ScheduleConfigDTO {
	return ScheduleConfigDTO{
		EntityID:           cfg.EntityID,
		EntityType:         cfg.EntityType,
		Countries:          cfg.Countries,
		Frequency:          cfg.Frequency,
		TaxYear:            cfg.TaxYear,
		DueRule:            cfg.DueRule,
		MilestoneSetID:     cfg.Milestones.ID,
		PeriodEndReference: cfg.PeriodEndReference,
	}
}

// CreateHolidayRequest declares one custom holiday for an organization.
type CreateHolidayRequest struct {
	OrgID   string `json:"org_id"`
	Country string `json:"country"`
	Date    string `json:"date"`
	Name    string `json:"name"`
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error string `json:"error"`
}
