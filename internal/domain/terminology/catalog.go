package terminology

import (
	"github.com/ehr/demodata/internal/platform/scheduling"
	"github.com/ehr/demodata/pkg/fhirmodels"
)

// FallbackVital is used for observation codes with no configured range.
var FallbackVital = VitalSign{
	Unit: "10^3/uL",
	Min:  10,
	Max:  100,
	Type: ValueInt,
}

// Activity is a care-plan activity template with its schedule.
type Activity struct {
	SNOMED Concept
	Timing scheduling.Timing
}

// Catalog holds the built-in reference tables the generators sample from.
// It is built once per run and never mutated.
type Catalog struct {
	Vitals                []VitalSign
	Medications           []Medication
	DosageTimings         []scheduling.Timing
	AdministrationSites   []SNOMEDRef
	AdministrationRoutes  []SNOMEDRef
	AdministrationMethods []SNOMEDRef
	CarePlanGoals         []Goal
	CarePlanActivities    []Activity
	EpisodeTypes          []Coding
	FinancialDescriptions []string
}

// Vital returns the vital-sign definition for a LOINC code, or FallbackVital
// (with the code filled in) when the code is not configured.
func (c Catalog) Vital(code string) (VitalSign, bool) {
	for _, v := range c.Vitals {
		if v.LOINC.Code == code {
			return v, true
		}
	}
	fb := FallbackVital
	fb.LOINC = Concept{Code: code}
	return fb, false
}

func tod(h, m int) fhirmodels.TimeOfDay { return fhirmodels.At(h, m) }

func daily(code string, freq int, times ...fhirmodels.TimeOfDay) scheduling.Timing {
	return scheduling.Timing{Code: code, Repeat: scheduling.Repeat{
		Frequency:  freq,
		Period:     1,
		PeriodUnit: scheduling.UnitDay,
		TimeOfDay:  times,
	}}
}

func hourly(code string, hours int) scheduling.Timing {
	return scheduling.Timing{Code: code, Repeat: scheduling.Repeat{
		Frequency:  1,
		Period:     hours,
		PeriodUnit: scheduling.UnitHour,
	}}
}

var (
	bpSite     = Snomed("40983000", "upper arm")
	bpMethod   = Snomed("371911009", "Measurement of blood pressure using cuff method")
	bpDevice   = UDIRef{UDI: Concept{Code: "00616784710716", Display: "Aneroid manual sphygmomanometer"}}
	fingerSite = Snomed("182266005", "Structure of tip of index finger")
	oximetry   = Snomed("252465000", "Pulse oximetry")
	oximeter   = UDIRef{UDI: Concept{Code: "06924054300456", Display: "Pulse Oximeter"}}
)

// DefaultCatalog returns the reference tables used for assisted-living demo
// data.
func DefaultCatalog() Catalog {
	qd := daily("qd", 1, tod(9, 0))
	qd.Repeat.Count = 20
	bid := daily("bid", 2, tod(9, 0), tod(21, 0))
	bid.Repeat.Count = 100
	qod := daily("qod", 1, tod(9, 0))
	qod.Repeat.Period = 2

	return Catalog{
		Vitals: []VitalSign{
			{LOINC: Concept{"8480-6", "Systolic Blood Pressure"}, Unit: "mmHg", Min: 100, Max: 140, Type: ValueInt,
				BodySite: bpSite, Method: bpMethod, Device: bpDevice},
			{LOINC: Concept{"8462-4", "Diastolic Blood Pressure"}, Unit: "mmHg", Min: 60, Max: 90, Type: ValueInt,
				BodySite: bpSite, Method: bpMethod, Device: bpDevice},
			{LOINC: Concept{"8867-4", "Heart Rate"}, Unit: "/min", Min: 60, Max: 100, Type: ValueInt,
				BodySite: fingerSite, Method: oximetry, Device: oximeter},
			{LOINC: Concept{"2708-6", "Oxygen Saturation in Arterial Blood"}, Unit: "%", Min: 94, Max: 100, Type: ValueInt,
				BodySite: fingerSite, Method: oximetry, Device: oximeter},
			{LOINC: Concept{"8310-5", "Body Temperature"}, Unit: "Cel", Min: 36.4, Max: 37.5, Type: ValueFloat,
				BodySite: Snomed("25342003", "Middle ear structure"),
				Method:   Snomed("448093005", "Measurement of temperature using tympanic thermometer"),
				Device:   UDIRef{UDI: Concept{Code: "06947468554666", Display: "Thermometer"}}},
			{LOINC: Concept{"29463-7", "Body Weight"}, Unit: "kg", Min: 54.4, Max: 113.4, Type: ValueFloat,
				BodySite: Snomed("38266002", "Entire body as a whole"),
				Method:   Snomed("39857003", "Weighing patient"),
				Device:   UDIRef{UDI: Concept{Code: "00809161310108", Display: "DIG MEDICAL SCALE W/HEIGHT ROD"}}},
		},
		Medications: []Medication{
			{RxNorm: Concept{"316151", "lisinopril 10 MG"}, SNOMED: Concept{"318859000", "Lisinopril"}, Strength: Quantity{10, "mg"}},
			{RxNorm: Concept{"860974", "metFORMIN hydrochloride 500 MG"}, SNOMED: Concept{"325278007", "Metformin hydrochloride"}, Strength: Quantity{500, "mg"}},
			{RxNorm: Concept{"597966", "atorvastatin 20 MG"}, SNOMED: Concept{"1145420004", "Atorvastatin"}, Strength: Quantity{20, "mg"}},
			{RxNorm: Concept{"315369", "amoxicillin 250 MG"}, SNOMED: Concept{"323509004", "Amoxicillin"}, Strength: Quantity{250, "mg"}},
			{RxNorm: Concept{"343226", "insulin glargine 100 UNT/ML"}, SNOMED: Concept{"789679003", "Insulin Glargine"}, Strength: Quantity{100, "unt/ml"}},
		},
		DosageTimings: []scheduling.Timing{
			qd,
			bid,
			daily("tid", 3, tod(8, 0), tod(14, 0), tod(20, 0)),
			daily("qid", 4, tod(6, 0), tod(12, 0), tod(18, 0), tod(22, 0)),
			daily("am", 1, tod(8, 0)),
			daily("pm", 1, tod(20, 0)),
			qod,
			hourly("q1h", 1),
			hourly("q2h", 2),
			hourly("q3h", 3),
			hourly("q4h", 4),
			hourly("q6h", 6),
			hourly("q8h", 8),
			daily("bed", 1, tod(22, 0)),
		},
		AdministrationSites: []SNOMEDRef{
			Snomed("123851003", "mouth"),
			Snomed("20699002", "cephalic vein"),
			Snomed("102291007", "gluteal muscle"),
		},
		AdministrationRoutes: []SNOMEDRef{
			Snomed("26643006", "oral"),
			Snomed("47625008", "intravenous"),
			Snomed("78421000", "intramuscular"),
			Snomed("34206005", "subcutaneous"),
			Snomed("6064005", "topical"),
		},
		AdministrationMethods: []SNOMEDRef{
			Snomed("738991002", "Apply"),
			Snomed("740685003", "Inject"),
			Snomed("738995006", "Swallow"),
			Snomed("738992009", "Chew"),
		},
		CarePlanGoals: []Goal{
			{Title: "Maintain independence in bathing and dressing.", SNOMED: Concept{"284774007", "Able to perform personal care activity"}},
			{Title: "Reduce risk of fall injuries (using mobility aids).", SNOMED: Concept{"301570003", "Able to mobilize using mobility aids"}},
			{Title: "Improve social engagement and decrease isolation."},
			{Title: "Maintain current nutritional status/weight.", SNOMED: Concept{"1156958007", "Promotion of food and nutrient intake to support target weight and body mass"}},
			{Title: "Effective management of chronic pain."},
		},
		CarePlanActivities: []Activity{
			{SNOMED: Concept{"386420003", "Self-care assistance: bathing/hygiene"}, Timing: daily("bid", 2, tod(8, 0), tod(21, 0))},
			{SNOMED: Concept{"1230050000", "Assisting with dressing activity"}, Timing: daily("qd", 1, tod(8, 30))},
			{SNOMED: Concept{Display: "Daily 15-minute ambulation/walk"}, Timing: daily("bid", 2, tod(10, 0), tod(16, 0))},
			{SNOMED: Concept{"435441000124107", "Medication reminder device set-up"}, Timing: scheduling.Timing{Code: "once", Repeat: scheduling.Repeat{
				Frequency: 1, Period: 1, PeriodUnit: scheduling.UnitWeek, TimeOfDay: []fhirmodels.TimeOfDay{tod(9, 0)},
			}}},
			{SNOMED: Concept{Display: "Attend Thursday social group"}, Timing: scheduling.Timing{Code: "weekly", Repeat: scheduling.Repeat{
				Frequency: 1, Period: 1, PeriodUnit: scheduling.UnitWeek, DayOfWeek: []string{"thu"}, TimeOfDay: []fhirmodels.TimeOfDay{tod(14, 0)},
			}}},
			{SNOMED: Concept{Display: "Ensure pureed diet and fluid intake"}, Timing: daily("tid", 3, tod(8, 0), tod(12, 0), tod(18, 0))},
			{SNOMED: Concept{Display: "Check skin integrity (daily)"}, Timing: daily("qd", 1, tod(9, 0))},
		},
		EpisodeTypes: []Coding{
			{System: fhirmodels.SystemEpisodeOfCare, Code: "pac", Display: "Post-acute Care"},
			{System: fhirmodels.SystemEpisodeOfCare, Code: "hacc", Display: "Home and Community Care"},
			{System: fhirmodels.SystemEpisodeOfCare, Code: "cacp", Display: "Community-based aged Care"},
			{System: fhirmodels.SystemEpisodeOfCare, Code: "diab", Display: "Post coordinated diabetes program"},
		},
		FinancialDescriptions: []string{
			"Monthly Rent", "Prescription Fee", "Therapy Session", "Payment Received", "Co-pay", "Late Fee",
		},
	}
}

// LongTermCare is the episode type of every resident's current admission.
var LongTermCare = Coding{System: fhirmodels.SystemEpisodeOfCare, Display: "Long Term Care"}
