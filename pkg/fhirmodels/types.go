package fhirmodels

// Common FHIR value set constants used by the demo-data generators.

// ObservationStatus values per FHIR R4.
const (
	ObservationRegistered     = "registered"
	ObservationPreliminary    = "preliminary"
	ObservationFinal          = "final"
	ObservationAmended        = "amended"
	ObservationCorrected      = "corrected"
	ObservationCancelled      = "cancelled"
	ObservationEnteredInError = "entered-in-error"
	ObservationUnknown        = "unknown"
)

// AllergyIntolerance clinical and verification status codes.
const (
	AllergyClinicalActive   = "active"
	AllergyClinicalInactive = "inactive"
	AllergyClinicalResolved = "resolved"

	AllergyVerificationUnconfirmed    = "unconfirmed"
	AllergyVerificationPresumed       = "presumed"
	AllergyVerificationConfirmed      = "confirmed"
	AllergyVerificationRefuted        = "refuted"
	AllergyVerificationEnteredInError = "entered-in-error"
)

// AllergyIntolerance type codes.
const (
	AllergyTypeAllergy     = "allergy"
	AllergyTypeIntolerance = "intolerance"
)

// ConditionClinicalStatus codes.
const (
	ConditionActive     = "active"
	ConditionRecurrence = "recurrence"
	ConditionRemission  = "remission"
	ConditionResolved   = "resolved"
)

// MedicationStatement status codes used for prescriptions.
const (
	PrescriptionRecorded       = "recorded"
	PrescriptionEnteredInError = "entered-in-error"
	PrescriptionDraft          = "draft"
)

// MedicationStatement adherence codes.
const (
	AdherenceTaking               = "taking"
	AdherenceTakingAsDirected     = "taking-as-directed"
	AdherenceTakingNotAsDirected  = "taking-not-as-directed"
	AdherenceNotTaking            = "not-taking"
	AdherenceOnHold               = "on-hold"
	AdherenceOnHoldAsDirected     = "on-hold-as-directed"
	AdherenceOnHoldNotAsDirected  = "on-hold-not-as-directed"
	AdherenceStopped              = "stopped"
	AdherenceStoppedAsDirected    = "stopped-as-directed"
	AdherenceStoppedNotAsDirected = "stopped-not-as-directed"
	AdherenceUnknown              = "unknown"
)

// MedicationAdministration status codes.
const (
	AdministrationInProgress     = "in-progress"
	AdministrationNotDone        = "not-done"
	AdministrationOnHold         = "on-hold"
	AdministrationCompleted      = "completed"
	AdministrationEnteredInError = "entered-in-error"
	AdministrationStopped        = "stopped"
	AdministrationUnknown        = "unknown"
)

// EpisodeOfCare status codes.
const (
	EpisodeActive    = "active"
	EpisodeFinished  = "finished"
	EpisodeCancelled = "cancelled"
	EpisodeWaitlist  = "waitlist"
)

// CarePlan and activity status codes.
const (
	CarePlanDraft     = "draft"
	CarePlanActive    = "active"
	CarePlanOnHold    = "on-hold"
	CarePlanCompleted = "completed"
	CarePlanRevoked   = "revoked"

	ActivityScheduled = "scheduled"
)

// Task status codes for expanded care-plan activities.
const (
	TaskCompleted = "completed"
	TaskCancelled = "cancelled"
	TaskFailed    = "failed"
)

// Financial transaction types.
const (
	FinancialCharge     = "CHARGE"
	FinancialPayment    = "PAYMENT"
	FinancialAdjustment = "ADJUSTMENT"
)

// Coding system URIs.
const (
	SystemSNOMED        = "http://snomed.info/sct"
	SystemLOINC         = "http://loinc.org"
	SystemRxNorm        = "http://www.nlm.nih.gov/research/umls/rxnorm"
	SystemUCUM          = "http://unitsofmeasure.org"
	SystemEpisodeOfCare = "http://terminology.hl7.org/CodeSystem/episodeofcare-type"
)

var (
	ObservationStatuses = []string{
		ObservationRegistered, ObservationPreliminary, ObservationFinal, ObservationAmended,
		ObservationCorrected, ObservationCancelled, ObservationEnteredInError, ObservationUnknown,
	}
	AllergyClinicalStatuses = []string{
		AllergyClinicalActive, AllergyClinicalInactive, AllergyClinicalResolved,
	}
	AllergyVerificationStatuses = []string{
		AllergyVerificationUnconfirmed, AllergyVerificationPresumed, AllergyVerificationConfirmed,
		AllergyVerificationRefuted, AllergyVerificationEnteredInError,
	}
	AllergyTypes = []string{AllergyTypeAllergy, AllergyTypeIntolerance}

	ConditionStatuses = []string{ConditionActive, ConditionRecurrence, ConditionRemission, ConditionResolved}

	PrescriptionStatuses = []string{PrescriptionRecorded, PrescriptionEnteredInError, PrescriptionDraft}

	AdherenceStatuses = []string{
		AdherenceTaking, AdherenceTakingAsDirected, AdherenceTakingNotAsDirected, AdherenceNotTaking,
		AdherenceOnHold, AdherenceOnHoldAsDirected, AdherenceOnHoldNotAsDirected, AdherenceStopped,
		AdherenceStoppedAsDirected, AdherenceStoppedNotAsDirected, AdherenceUnknown,
	}
	AdministrationStatuses = []string{
		AdministrationInProgress, AdministrationNotDone, AdministrationOnHold, AdministrationCompleted,
		AdministrationEnteredInError, AdministrationStopped, AdministrationUnknown,
	}

	HistoricalEpisodeStatuses = []string{EpisodeFinished, EpisodeCancelled}
	FinancialTypes            = []string{FinancialCharge, FinancialPayment, FinancialAdjustment}
	TaskStatuses              = []string{TaskCompleted, TaskCancelled, TaskFailed}
)
