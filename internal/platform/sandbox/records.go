package sandbox

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/ehr/demodata/internal/domain/terminology"
	"github.com/ehr/demodata/internal/platform/scheduling"
	"github.com/ehr/demodata/pkg/fhirmodels"
)

// ErrUnknownCategory is returned for a category name the generator does not
// produce.
var ErrUnknownCategory = errors.New("unknown record category")

// Category names one output collection.
type Category string

const (
	CategoryAllergies         Category = "allergies"
	CategoryPrescriptions     Category = "prescriptions"
	CategoryAdministrations   Category = "prescription_administration"
	CategoryObservations      Category = "observations"
	CategoryDiagnosticHistory Category = "diagnostic_history"
	CategoryFinancials        Category = "financials"
	CategoryEpisodesOfCare    Category = "episodes_of_care"
	CategoryCarePlans         Category = "care_plans"
	CategoryCarePlanTasks     Category = "care_plan_tasks"
)

// Categories lists every category in output order.
var Categories = []Category{
	CategoryAllergies,
	CategoryPrescriptions,
	CategoryAdministrations,
	CategoryObservations,
	CategoryDiagnosticHistory,
	CategoryFinancials,
	CategoryEpisodesOfCare,
	CategoryCarePlans,
	CategoryCarePlanTasks,
}

// ParseCategory validates a category name.
func ParseCategory(name string) (Category, error) {
	for _, c := range Categories {
		if string(c) == name {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownCategory, name)
}

// Owned is implemented by every record payload.
type Owned interface {
	Resident() string
}

// Record is one generated fixture: an id plus its category payload.
type Record[T Owned] struct {
	ID   string `json:"id"`
	Data T      `json:"data"`
}

// RecordID returns the record id.
func (r Record[T]) RecordID() string { return r.ID }

// ResidentID returns the id of the resident the record belongs to.
func (r Record[T]) ResidentID() string { return r.Data.Resident() }

// Payload returns the record data.
func (r Record[T]) Payload() any { return r.Data }

// Item is the category-independent view of a Record.
type Item interface {
	RecordID() string
	ResidentID() string
	Payload() any
}

// ---------------------------------------------------------------------------
// Payloads
// ---------------------------------------------------------------------------

// Reaction is an allergy reaction with its severity.
type Reaction struct {
	SNOMED   terminology.Concept `json:"snomed"`
	Severity string              `json:"severity"`
}

type AllergyData struct {
	ResidentID         string                `json:"resident_id"`
	RecorderID         string                `json:"recorder_id"`
	ClinicalStatus     string                `json:"clinical_status"`
	VerificationStatus string                `json:"verification_status"`
	Name               terminology.SNOMEDRef `json:"name"`
	Type               string                `json:"type"`
	RecordedDate       fhirmodels.DateTime   `json:"recorded_date"`
	Substance          terminology.SNOMEDRef `json:"substance"`
	Reaction           Reaction              `json:"reaction"`
}

func (d AllergyData) Resident() string { return d.ResidentID }

type DoseAndRate struct {
	DoseQuantity terminology.Quantity `json:"dose_quantity"`
}

type Dosage struct {
	Timing      scheduling.Timing     `json:"timing"`
	Site        terminology.SNOMEDRef `json:"site"`
	Route       terminology.SNOMEDRef `json:"route"`
	Method      terminology.SNOMEDRef `json:"method"`
	DoseAndRate []DoseAndRate         `json:"dose_and_rate"`
}

type PrescriptionData struct {
	ResidentID           string                 `json:"resident_id"`
	RecorderID           string                 `json:"recorder_id"`
	EffectivePeriodStart fhirmodels.DateTime    `json:"effective_period_start"`
	EffectivePeriodEnd   fhirmodels.DateTime    `json:"effective_period_end"`
	Status               string                 `json:"status"`
	Adherence            string                 `json:"adherence"`
	Medication           terminology.Medication `json:"medication"`
	DosageInstruction    []Dosage               `json:"dosage_instruction"`
}

func (d PrescriptionData) Resident() string { return d.ResidentID }

type AdministeredDosage struct {
	Route            terminology.SNOMEDRef `json:"route"`
	AdministeredDose terminology.Quantity  `json:"administered_dose"`
}

type AdministrationData struct {
	ResidentID        string                 `json:"resident_id"`
	PrescriptionID    string                 `json:"prescription_id"`
	Medication        terminology.Medication `json:"medication"`
	RecorderID        string                 `json:"recorder_id"`
	Status            string                 `json:"status"`
	EffectiveDatetime fhirmodels.DateTime    `json:"effective_datetime"`
	Dosage            AdministeredDosage     `json:"dosage"`
}

func (d AdministrationData) Resident() string { return d.ResidentID }

// ObservationData is a vital-sign reading. Measurement context is null for
// codes without a configured vital.
type ObservationData struct {
	ResidentID        string                 `json:"resident_id"`
	RecorderID        string                 `json:"recorder_id"`
	Status            string                 `json:"status"`
	EffectiveDatetime fhirmodels.DateTime    `json:"effective_datetime"`
	LOINC             terminology.Concept    `json:"loinc"`
	Value             float64                `json:"value"`
	Unit              string                 `json:"unit"`
	BodySite          *terminology.SNOMEDRef `json:"body_site"`
	Method            *terminology.SNOMEDRef `json:"method"`
	Device            *terminology.UDIRef    `json:"device"`
}

func (d ObservationData) Resident() string { return d.ResidentID }

type DiagnosisData struct {
	ResidentID        string               `json:"resident_id"`
	RecorderID        string               `json:"recorder_id"`
	ClinicalStatus    string               `json:"clinical_status"`
	RecordedDate      fhirmodels.DateTime  `json:"recorded_date"`
	OnsetDatetime     fhirmodels.DateTime  `json:"onset_datetime"`
	AbatementDatetime *fhirmodels.DateTime `json:"abatement_datetime"`
	SNOMED            terminology.Concept  `json:"snomed"`
}

func (d DiagnosisData) Resident() string { return d.ResidentID }

type FinancialData struct {
	ResidentID         string              `json:"resident_id"`
	Amount             float64             `json:"amount"`
	OccurrenceDatetime fhirmodels.DateTime `json:"occurrence_datetime"`
	Type               string              `json:"type"`
	Description        string              `json:"description"`
}

func (d FinancialData) Resident() string { return d.ResidentID }

type EpisodeData struct {
	ResidentID           string               `json:"resident_id"`
	Status               string               `json:"status"`
	Type                 terminology.Coding   `json:"type"`
	EffectivePeriodStart fhirmodels.DateTime  `json:"effective_period_start"`
	EffectivePeriodEnd   *fhirmodels.DateTime `json:"effective_period_end"`
	ManagingOrganization string               `json:"managing_organization"`
}

func (d EpisodeData) Resident() string { return d.ResidentID }

type CarePlanActivity struct {
	ID                string              `json:"id"`
	SNOMED            terminology.Concept `json:"snomed"`
	Status            string              `json:"status"`
	Timing            scheduling.Timing   `json:"timing"`
	StaffInstructions string              `json:"staff_instructions"`
}

type CarePlanData struct {
	ResidentID  string              `json:"resident_id"`
	Status      string              `json:"status"`
	Title       string              `json:"title"`
	AuthorID    string              `json:"author_id"`
	CreatedDate fhirmodels.DateTime `json:"created_date"`
	Goals       []terminology.Goal  `json:"goals"`
	Activities  []CarePlanActivity  `json:"activities"`
}

func (d CarePlanData) Resident() string { return d.ResidentID }

// CarePlanTaskData is one scheduled occurrence of a care-plan activity.
type CarePlanTaskData struct {
	ResidentID        string              `json:"resident_id"`
	CarePlanID        string              `json:"care_plan_id"`
	ActivityID        string              `json:"activity_id"`
	PerformerID       string              `json:"performer_id"`
	Status            string              `json:"status"`
	SNOMED            terminology.Concept `json:"snomed"`
	ScheduledDatetime fhirmodels.DateTime `json:"scheduled_datetime"`
}

func (d CarePlanTaskData) Resident() string { return d.ResidentID }

// ---------------------------------------------------------------------------
// Collections
// ---------------------------------------------------------------------------

// Collections accumulates the records of one generation run.
type Collections struct {
	Allergies         []Record[AllergyData]
	Prescriptions     []Record[PrescriptionData]
	Administrations   []Record[AdministrationData]
	Observations      []Record[ObservationData]
	DiagnosticHistory []Record[DiagnosisData]
	Financials        []Record[FinancialData]
	EpisodesOfCare    []Record[EpisodeData]
	CarePlans         []Record[CarePlanData]
	CarePlanTasks     []Record[CarePlanTaskData]
}

// Records returns the typed slice for category, suitable for JSON encoding.
// Empty categories return an empty, non-nil slice.
func (c *Collections) Records(cat Category) (any, error) {
	switch cat {
	case CategoryAllergies:
		return nonNil(c.Allergies), nil
	case CategoryPrescriptions:
		return nonNil(c.Prescriptions), nil
	case CategoryAdministrations:
		return nonNil(c.Administrations), nil
	case CategoryObservations:
		return nonNil(c.Observations), nil
	case CategoryDiagnosticHistory:
		return nonNil(c.DiagnosticHistory), nil
	case CategoryFinancials:
		return nonNil(c.Financials), nil
	case CategoryEpisodesOfCare:
		return nonNil(c.EpisodesOfCare), nil
	case CategoryCarePlans:
		return nonNil(c.CarePlans), nil
	case CategoryCarePlanTasks:
		return nonNil(c.CarePlanTasks), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownCategory, cat)
}

// Items returns the records of category as Items.
func (c *Collections) Items(cat Category) ([]Item, error) {
	switch cat {
	case CategoryAllergies:
		return items(c.Allergies), nil
	case CategoryPrescriptions:
		return items(c.Prescriptions), nil
	case CategoryAdministrations:
		return items(c.Administrations), nil
	case CategoryObservations:
		return items(c.Observations), nil
	case CategoryDiagnosticHistory:
		return items(c.DiagnosticHistory), nil
	case CategoryFinancials:
		return items(c.Financials), nil
	case CategoryEpisodesOfCare:
		return items(c.EpisodesOfCare), nil
	case CategoryCarePlans:
		return items(c.CarePlans), nil
	case CategoryCarePlanTasks:
		return items(c.CarePlanTasks), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownCategory, cat)
}

// Len returns the number of records in category, or 0 for unknown
// categories.
func (c *Collections) Len(cat Category) int {
	its, err := c.Items(cat)
	if err != nil {
		return 0
	}
	return len(its)
}

// Counts returns the record count per category.
func (c *Collections) Counts() map[Category]int {
	counts := make(map[Category]int, len(Categories))
	for _, cat := range Categories {
		counts[cat] = c.Len(cat)
	}
	return counts
}

// Decode replaces the records of category with data, which is either a JSON
// array or newline-delimited JSON objects.
func (c *Collections) Decode(cat Category, data []byte) error {
	switch cat {
	case CategoryAllergies:
		return decodeInto(data, &c.Allergies)
	case CategoryPrescriptions:
		return decodeInto(data, &c.Prescriptions)
	case CategoryAdministrations:
		return decodeInto(data, &c.Administrations)
	case CategoryObservations:
		return decodeInto(data, &c.Observations)
	case CategoryDiagnosticHistory:
		return decodeInto(data, &c.DiagnosticHistory)
	case CategoryFinancials:
		return decodeInto(data, &c.Financials)
	case CategoryEpisodesOfCare:
		return decodeInto(data, &c.EpisodesOfCare)
	case CategoryCarePlans:
		return decodeInto(data, &c.CarePlans)
	case CategoryCarePlanTasks:
		return decodeInto(data, &c.CarePlanTasks)
	}
	return fmt.Errorf("%w: %q", ErrUnknownCategory, cat)
}

func decodeInto[T Owned](data []byte, dst *[]Record[T]) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var rs []Record[T]
		if err := json.Unmarshal(data, &rs); err != nil {
			return fmt.Errorf("decode records: %w", err)
		}
		*dst = rs
		return nil
	}

	rs := []Record[T]{}
	dec := json.NewDecoder(bytes.NewReader(data))
	for {
		var r Record[T]
		err := dec.Decode(&r)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("decode record %d: %w", len(rs)+1, err)
		}
		rs = append(rs, r)
	}
	*dst = rs
	return nil
}

func nonNil[T Owned](rs []Record[T]) []Record[T] {
	if rs == nil {
		return []Record[T]{}
	}
	return rs
}

func items[T Owned](rs []Record[T]) []Item {
	out := make([]Item, len(rs))
	for i, r := range rs {
		out[i] = r
	}
	return out
}
