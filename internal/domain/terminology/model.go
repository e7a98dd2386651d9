package terminology

import (
	"encoding/json"
	"math/rand"
)

// Concept is a flat code/display pair from SNOMED CT, LOINC, RxNorm or a UDI
// catalog. Empty fields serialize as JSON null.
type Concept struct {
	Code    string
	Display string
}

type conceptJSON struct {
	Code    *string `json:"code"`
	Display *string `json:"display"`
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func (c Concept) MarshalJSON() ([]byte, error) {
	return json.Marshal(conceptJSON{Code: nullable(c.Code), Display: nullable(c.Display)})
}

func (c *Concept) UnmarshalJSON(data []byte) error {
	var raw conceptJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	c.Code, c.Display = "", ""
	if raw.Code != nil {
		c.Code = *raw.Code
	}
	if raw.Display != nil {
		c.Display = *raw.Display
	}
	return nil
}

// SNOMEDRef wraps a Concept under a "snomed" key.
type SNOMEDRef struct {
	SNOMED Concept `json:"snomed"`
}

// Snomed is a shorthand constructor for SNOMEDRef.
func Snomed(code, display string) SNOMEDRef {
	return SNOMEDRef{SNOMED: Concept{Code: code, Display: display}}
}

// UDIRef wraps a device Concept under a "udi" key.
type UDIRef struct {
	UDI Concept `json:"udi"`
}

// Coding is a Concept qualified by its code system URI.
type Coding struct {
	System  string `json:"system"`
	Code    string `json:"code,omitempty"`
	Display string `json:"display"`
}

// Quantity is a value with a UCUM-ish unit.
type Quantity struct {
	Value float64 `json:"value"`
	Unit  string  `json:"unit"`
}

// Entry is one line of a pipe-delimited terminology file.
type Entry struct {
	Code     string `json:"code"`
	Display  string `json:"display"`
	Severity string `json:"severity,omitempty"`
}

// Concept drops the auxiliary attributes.
func (e Entry) Concept() Concept {
	return Concept{Code: e.Code, Display: e.Display}
}

// Table is an immutable, ordered terminology table.
type Table []Entry

// Len returns the number of entries.
func (t Table) Len() int { return len(t) }

// Empty reports whether the table has no entries.
func (t Table) Empty() bool { return len(t) == 0 }

// Pick returns a uniformly random entry. The table must not be empty.
func (t Table) Pick(rng *rand.Rand) Entry {
	return t[rng.Intn(len(t))]
}

// Lookup finds an entry by code.
func (t Table) Lookup(code string) (Entry, bool) {
	for _, e := range t {
		if e.Code == code {
			return e, true
		}
	}
	return Entry{}, false
}

// ValueType controls how a sampled vital-sign value is rounded.
type ValueType string

const (
	ValueInt   ValueType = "int"
	ValueFloat ValueType = "float"
)

// VitalSign describes a LOINC vital with its plausible range and the
// measurement context recorded alongside it.
type VitalSign struct {
	LOINC    Concept
	Unit     string
	Min      float64
	Max      float64
	Type     ValueType
	BodySite SNOMEDRef
	Method   SNOMEDRef
	Device   UDIRef
}

// Medication is a prescribable product template.
type Medication struct {
	RxNorm   Concept  `json:"rxnorm"`
	SNOMED   Concept  `json:"snomed"`
	Strength Quantity `json:"strength"`
}

// Goal is a care-plan goal template.
type Goal struct {
	Title  string  `json:"title"`
	SNOMED Concept `json:"snomed"`
}
