// Package sandbox generates synthetic assisted-living records for demo and
// developer environments. Output is reproducible for a fixed seed and run
// boundary.
package sandbox

import (
	"fmt"
	"math"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ehr/demodata/internal/domain/resident"
	"github.com/ehr/demodata/internal/domain/terminology"
	"github.com/ehr/demodata/pkg/fhirmodels"
)

// ---------------------------------------------------------------------------
// Configuration
// ---------------------------------------------------------------------------

// Config bounds one generation run. It is never mutated by the generator.
type Config struct {
	Start                time.Time
	Intermediary         time.Time
	Now                  time.Time
	Seed                 int64
	StaffCount           int
	ExpandActivities     bool
	ManagingOrganization string
}

// DefaultConfig returns the standard demo boundaries ending at now.
func DefaultConfig(now time.Time) Config {
	return Config{
		Start:                time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
		Intermediary:         time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Now:                  now.UTC(),
		StaffCount:           6,
		ManagingOrganization: "Golden Years Retreat Homes",
	}
}

// Validate checks the date boundaries and staff pool size.
func (c Config) Validate() error {
	if c.Intermediary.Before(c.Start) {
		return fmt.Errorf("intermediary date %s is before start date %s", c.Intermediary.Format(time.DateOnly), c.Start.Format(time.DateOnly))
	}
	if c.Now.Before(c.Intermediary) {
		return fmt.Errorf("now %s is before intermediary date %s", c.Now.Format(time.RFC3339), c.Intermediary.Format(time.DateOnly))
	}
	if c.StaffCount < 1 {
		return fmt.Errorf("staff count must be at least 1, got %d", c.StaffCount)
	}
	return nil
}

// Per-resident record count ranges, inclusive.
const (
	minAllergies, maxAllergies         = 0, 2
	minPrescriptions, maxPrescriptions = 1, 3
	minObservations, maxObservations   = 3, 8
	minDiagnoses, maxDiagnoses         = 1, 3
	minFinancials, maxFinancials       = 0, 5
	minEpisodes, maxEpisodes           = 0, 1
	minGoals, maxGoals                 = 2, 3
	minActivities, maxActivities       = 3, 5
)

var (
	diagnosisRecordedFrom = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	onsetFrom             = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	onsetTo               = time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	carePlanCreatedFrom   = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
)

// ---------------------------------------------------------------------------
// Summary
// ---------------------------------------------------------------------------

// Summary reports the outcome of a generation run.
type Summary struct {
	Seed      int64            `json:"seed"`
	Now       string           `json:"now"`
	Residents int              `json:"residents"`
	Staff     int              `json:"staff"`
	Counts    map[Category]int `json:"counts"`
	Total     int              `json:"total"`
	Duration  time.Duration    `json:"duration"`
}

// ---------------------------------------------------------------------------
// Generator
// ---------------------------------------------------------------------------

// Generator produces per-resident record sets from terminology tables.
type Generator struct {
	cfg     Config
	catalog terminology.Catalog
	terms   terminology.Set
	logger  zerolog.Logger

	rng   *rand.Rand
	staff []string
}

// NewGenerator returns a generator for cfg. If cfg.Seed is 0 a time-based
// seed is chosen and reported in the Summary.
func NewGenerator(cfg Config, catalog terminology.Catalog, terms terminology.Set, logger zerolog.Logger) *Generator {
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}
	if cfg.StaffCount < 1 {
		cfg.StaffCount = 1
	}
	return &Generator{cfg: cfg, catalog: catalog, terms: terms, logger: logger}
}

// Config returns the effective configuration, including the resolved seed.
func (g *Generator) Config() Config { return g.cfg }

// Staff returns the staff pool of the last run.
func (g *Generator) Staff() []string { return g.staff }

// Generate builds every category for every resident in roster. Each call
// restarts from the configured seed, so repeated calls return equal
// collections.
func (g *Generator) Generate(roster resident.Roster) (*Collections, Summary) {
	start := time.Now()
	g.rng = rand.New(rand.NewSource(g.cfg.Seed))
	g.staff = make([]string, g.cfg.StaffCount)
	for i := range g.staff {
		g.staff[i] = g.newID()
	}

	c := &Collections{}
	for _, res := range roster {
		g.generateResident(c, res.ID)
	}

	summary := Summary{
		Seed:      g.cfg.Seed,
		Now:       fhirmodels.NewDateTime(g.cfg.Now).String(),
		Residents: len(roster),
		Staff:     len(g.staff),
		Counts:    c.Counts(),
	}
	for _, n := range summary.Counts {
		summary.Total += n
	}
	summary.Duration = time.Since(start)

	g.logger.Info().
		Int64("seed", summary.Seed).
		Int("residents", summary.Residents).
		Int("records", summary.Total).
		Dur("duration", summary.Duration).
		Msg("demo data generated")
	return c, summary
}

func (g *Generator) generateResident(c *Collections, residentID string) {
	plan := g.carePlan(residentID)
	c.CarePlans = append(c.CarePlans, plan)
	if g.cfg.ExpandActivities {
		c.CarePlanTasks = append(c.CarePlanTasks, g.carePlanTasks(plan)...)
	}

	c.EpisodesOfCare = append(c.EpisodesOfCare, g.episodes(residentID)...)
	c.Allergies = append(c.Allergies, g.allergies(residentID)...)

	prescriptions := g.prescriptions(residentID)
	c.Prescriptions = append(c.Prescriptions, prescriptions...)
	for _, rx := range prescriptions {
		c.Administrations = append(c.Administrations, g.administrations(rx)...)
	}

	c.Observations = append(c.Observations, g.observations(residentID)...)
	c.DiagnosticHistory = append(c.DiagnosticHistory, g.diagnoses(residentID)...)
	c.Financials = append(c.Financials, g.financials(residentID)...)
}

// ---------------------------------------------------------------------------
// Sampling helpers
// ---------------------------------------------------------------------------

func (g *Generator) newID() string {
	return uuid.Must(uuid.NewRandomFromReader(g.rng)).String()
}

func (g *Generator) between(lo, hi int) int {
	return lo + g.rng.Intn(hi-lo+1)
}

func (g *Generator) pick(pool []string) string {
	return pool[g.rng.Intn(len(pool))]
}

func (g *Generator) staffID() string {
	return g.pick(g.staff)
}

func pickOne[T any](rng *rand.Rand, pool []T) T {
	return pool[rng.Intn(len(pool))]
}

// sample returns k distinct elements of pool in random order.
func sample[T any](rng *rand.Rand, pool []T, k int) []T {
	if k > len(pool) {
		k = len(pool)
	}
	out := make([]T, k)
	for i, j := range rng.Perm(len(pool))[:k] {
		out[i] = pool[j]
	}
	return out
}

// randomTime returns a second-aligned instant in [from, to]. An inverted
// range collapses to from.
func (g *Generator) randomTime(from, to time.Time) time.Time {
	span := int64(to.Sub(from) / time.Second)
	if span <= 0 {
		return from
	}
	return from.Add(time.Duration(g.rng.Int63n(span+1)) * time.Second)
}

func earliest(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}

func (g *Generator) randomDateTime(from, to time.Time) fhirmodels.DateTime {
	return fhirmodels.NewDateTime(g.randomTime(from, to))
}

// dayIn returns midnight UTC of a random day in year, limited to the first
// 28 days of a month in [firstMonth, lastMonth].
func (g *Generator) dayIn(year, firstMonth, lastMonth int) time.Time {
	month := time.Month(g.between(firstMonth, lastMonth))
	return time.Date(year, month, g.between(1, 28), 0, 0, 0, 0, time.UTC)
}

// ---------------------------------------------------------------------------
// Categories
// ---------------------------------------------------------------------------

func (g *Generator) carePlan(residentID string) Record[CarePlanData] {
	goals := sample(g.rng, g.catalog.CarePlanGoals, g.between(minGoals, maxGoals))
	selected := sample(g.rng, g.catalog.CarePlanActivities, g.between(minActivities, maxActivities))

	activities := make([]CarePlanActivity, len(selected))
	for i, act := range selected {
		activities[i] = CarePlanActivity{
			ID:                g.newID(),
			SNOMED:            act.SNOMED,
			Status:            fhirmodels.ActivityScheduled,
			Timing:            act.Timing,
			StaffInstructions: staffInstructions(act.SNOMED.Display),
		}
	}

	return Record[CarePlanData]{
		ID: g.newID(),
		Data: CarePlanData{
			ResidentID:  residentID,
			Status:      fhirmodels.CarePlanActive,
			Title:       fmt.Sprintf("Personalized Care Plan - %d", g.cfg.Now.Year()),
			AuthorID:    g.staffID(),
			CreatedDate: g.randomDateTime(earliest(carePlanCreatedFrom, g.cfg.Now), g.cfg.Now),
			Goals:       goals,
			Activities:  activities,
		},
	}
}

func staffInstructions(display string) string {
	subject, _, _ := strings.Cut(display, "(")
	return fmt.Sprintf("Ensure resident comfort during %s.", strings.ToLower(strings.TrimSpace(subject)))
}

func (g *Generator) carePlanTasks(plan Record[CarePlanData]) []Record[CarePlanTaskData] {
	var tasks []Record[CarePlanTaskData]
	from := plan.Data.CreatedDate.Time
	for _, act := range plan.Data.Activities {
		for at := range act.Timing.Occurrences(from, g.cfg.Now, g.rng) {
			tasks = append(tasks, Record[CarePlanTaskData]{
				ID: g.newID(),
				Data: CarePlanTaskData{
					ResidentID:        plan.Data.ResidentID,
					CarePlanID:        plan.ID,
					ActivityID:        act.ID,
					PerformerID:       g.staffID(),
					Status:            g.pick(fhirmodels.TaskStatuses),
					SNOMED:            act.SNOMED,
					ScheduledDatetime: fhirmodels.NewDateTime(at),
				},
			})
		}
	}
	return tasks
}

func (g *Generator) episodes(residentID string) []Record[EpisodeData] {
	var out []Record[EpisodeData]
	week := 7 * 24 * time.Hour

	for range g.between(minEpisodes, maxEpisodes) {
		startYear := g.between(2018, 2022)
		endYear := g.between(startYear+1, 2023)
		begin := g.dayIn(startYear, 1, 12)
		end := g.dayIn(endYear, 1, 12)
		if !end.After(begin.Add(week)) {
			end = begin.AddDate(0, 0, g.between(30, 365))
		}

		out = append(out, Record[EpisodeData]{
			ID: g.newID(),
			Data: EpisodeData{
				ResidentID:           residentID,
				Status:               g.pick(fhirmodels.HistoricalEpisodeStatuses),
				Type:                 pickOne(g.rng, g.catalog.EpisodeTypes),
				EffectivePeriodStart: g.randomDateTime(begin, begin.Add(week)),
				EffectivePeriodEnd:   fhirmodels.NewDateTimePtr(g.randomTime(end, end.Add(week))),
				ManagingOrganization: g.cfg.ManagingOrganization,
			},
		})
	}

	current := g.dayIn(2023, 1, 6)
	out = append(out, Record[EpisodeData]{
		ID: g.newID(),
		Data: EpisodeData{
			ResidentID:           residentID,
			Status:               fhirmodels.EpisodeActive,
			Type:                 terminology.LongTermCare,
			EffectivePeriodStart: g.randomDateTime(current, current.AddDate(0, 0, 30)),
			ManagingOrganization: g.cfg.ManagingOrganization,
		},
	})
	return out
}

func (g *Generator) allergies(residentID string) []Record[AllergyData] {
	n := g.between(minAllergies, maxAllergies)
	t := g.terms
	if t.AllergyNames.Empty() || t.AllergyReactions.Empty() || t.AllergySubstances.Empty() {
		return nil
	}

	out := make([]Record[AllergyData], 0, n)
	for range n {
		name := t.AllergyNames.Pick(g.rng)
		reaction := t.AllergyReactions.Pick(g.rng)
		substance := t.AllergySubstances.Pick(g.rng)
		out = append(out, Record[AllergyData]{
			ID: g.newID(),
			Data: AllergyData{
				ResidentID:         residentID,
				RecorderID:         g.staffID(),
				ClinicalStatus:     g.pick(fhirmodels.AllergyClinicalStatuses),
				VerificationStatus: g.pick(fhirmodels.AllergyVerificationStatuses),
				Name:               terminology.SNOMEDRef{SNOMED: name.Concept()},
				Type:               g.pick(fhirmodels.AllergyTypes),
				RecordedDate:       g.randomDateTime(g.cfg.Start, g.cfg.Now),
				Substance:          terminology.SNOMEDRef{SNOMED: substance.Concept()},
				Reaction:           Reaction{SNOMED: reaction.Concept(), Severity: reaction.Severity},
			},
		})
	}
	return out
}

func (g *Generator) prescriptions(residentID string) []Record[PrescriptionData] {
	n := g.between(minPrescriptions, maxPrescriptions)
	if len(g.catalog.Medications) == 0 || len(g.catalog.DosageTimings) == 0 {
		return nil
	}

	out := make([]Record[PrescriptionData], 0, n)
	for range n {
		med := pickOne(g.rng, g.catalog.Medications)
		dosage := Dosage{
			Timing:      pickOne(g.rng, g.catalog.DosageTimings),
			Site:        pickOne(g.rng, g.catalog.AdministrationSites),
			Route:       pickOne(g.rng, g.catalog.AdministrationRoutes),
			Method:      pickOne(g.rng, g.catalog.AdministrationMethods),
			DoseAndRate: []DoseAndRate{{DoseQuantity: med.Strength}},
		}
		out = append(out, Record[PrescriptionData]{
			ID: g.newID(),
			Data: PrescriptionData{
				ResidentID:           residentID,
				RecorderID:           g.staffID(),
				EffectivePeriodStart: g.randomDateTime(g.cfg.Start, g.cfg.Intermediary),
				EffectivePeriodEnd:   g.randomDateTime(g.cfg.Intermediary, g.cfg.Now),
				Status:               g.pick(fhirmodels.PrescriptionStatuses),
				Adherence:            g.pick(fhirmodels.AdherenceStatuses),
				Medication:           med,
				DosageInstruction:    []Dosage{dosage},
			},
		})
	}
	return out
}

// administrations expands the prescription's dosage timing from its start
// date up to the run boundary.
func (g *Generator) administrations(rx Record[PrescriptionData]) []Record[AdministrationData] {
	if len(rx.Data.DosageInstruction) == 0 {
		return nil
	}
	dosage := rx.Data.DosageInstruction[0]
	dose := dosage.DoseAndRate[0].DoseQuantity

	var out []Record[AdministrationData]
	for at := range dosage.Timing.Occurrences(rx.Data.EffectivePeriodStart.Time, g.cfg.Now, g.rng) {
		out = append(out, Record[AdministrationData]{
			ID: g.newID(),
			Data: AdministrationData{
				ResidentID:        rx.Data.ResidentID,
				PrescriptionID:    rx.ID,
				Medication:        rx.Data.Medication,
				RecorderID:        g.staffID(),
				Status:            g.pick(fhirmodels.AdministrationStatuses),
				EffectiveDatetime: fhirmodels.NewDateTime(at),
				Dosage:            AdministeredDosage{Route: dosage.Route, AdministeredDose: dose},
			},
		})
	}
	return out
}

func (g *Generator) observations(residentID string) []Record[ObservationData] {
	n := g.between(minObservations, maxObservations)
	if len(g.catalog.Vitals) == 0 {
		return nil
	}

	out := make([]Record[ObservationData], 0, n)
	for range n {
		code := pickOne(g.rng, g.catalog.Vitals).LOINC.Code
		out = append(out, g.observation(residentID, code))
	}
	return out
}

// observation records one reading of the vital with the given LOINC code.
// Unconfigured codes use FallbackVital and carry no measurement context.
func (g *Generator) observation(residentID, code string) Record[ObservationData] {
	vital, known := g.catalog.Vital(code)
	data := ObservationData{
		ResidentID:        residentID,
		RecorderID:        g.staffID(),
		Status:            g.pick(fhirmodels.ObservationStatuses),
		EffectiveDatetime: g.randomDateTime(g.cfg.Start, g.cfg.Now),
		LOINC:             vital.LOINC,
		Value:             g.vitalValue(vital),
		Unit:              vital.Unit,
	}
	if known {
		data.BodySite = &vital.BodySite
		data.Method = &vital.Method
		data.Device = &vital.Device
	}
	return Record[ObservationData]{ID: g.newID(), Data: data}
}

func (g *Generator) vitalValue(v terminology.VitalSign) float64 {
	value := v.Min + g.rng.Float64()*(v.Max-v.Min)
	if v.Type == terminology.ValueFloat {
		value = math.Round(value*10) / 10
	} else {
		value = math.Round(value)
	}
	return math.Max(v.Min, math.Min(v.Max, value))
}

func (g *Generator) diagnoses(residentID string) []Record[DiagnosisData] {
	n := g.between(minDiagnoses, maxDiagnoses)
	if g.terms.Disorders.Empty() {
		return nil
	}

	out := make([]Record[DiagnosisData], 0, n)
	for range n {
		disorder := g.terms.Disorders.Pick(g.rng)
		status := g.pick(fhirmodels.ConditionStatuses)
		var abatement *fhirmodels.DateTime
		if status == fhirmodels.ConditionResolved {
			abatement = fhirmodels.NewDateTimePtr(g.randomTime(g.cfg.Start, g.cfg.Now))
		}
		out = append(out, Record[DiagnosisData]{
			ID: g.newID(),
			Data: DiagnosisData{
				ResidentID:        residentID,
				RecorderID:        g.staffID(),
				ClinicalStatus:    status,
				RecordedDate:      g.randomDateTime(earliest(diagnosisRecordedFrom, g.cfg.Now), g.cfg.Now),
				OnsetDatetime:     g.randomDateTime(onsetFrom, onsetTo),
				AbatementDatetime: abatement,
				SNOMED:            disorder.Concept(),
			},
		})
	}
	return out
}

func (g *Generator) financials(residentID string) []Record[FinancialData] {
	n := g.between(minFinancials, maxFinancials)
	if len(g.catalog.FinancialDescriptions) == 0 {
		return nil
	}

	out := make([]Record[FinancialData], 0, n)
	for range n {
		amount := 50 + g.rng.Float64()*(5000-50)
		out = append(out, Record[FinancialData]{
			ID: g.newID(),
			Data: FinancialData{
				ResidentID:         residentID,
				Amount:             math.Round(amount*100) / 100,
				OccurrenceDatetime: g.randomDateTime(g.cfg.Start, g.cfg.Now),
				Type:               g.pick(fhirmodels.FinancialTypes),
				Description:        g.pick(g.catalog.FinancialDescriptions),
			},
		})
	}
	return out
}
