// Package fhir emits FHIR R4-shaped JSON documents for screening encounters.
// The structures follow the resource shapes (Patient, Observation,
// RiskAssessment, Bundle) but are not validated against the FHIR schemas;
// they exist for interoperability demonstration only.
package fhir

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/Breeganzo/RMD-Agent-Demo/internal/screening"
)

type Coding struct {
	System  string `json:"system"`
	Code    string `json:"code"`
	Display string `json:"display,omitempty"`
}

type CodeableConcept struct {
	Coding []Coding `json:"coding,omitempty"`
	Text   string   `json:"text,omitempty"`
}

type Reference struct {
	Reference string `json:"reference"`
	Display   string `json:"display,omitempty"`
}

type Identifier struct {
	System string `json:"system,omitempty"`
	Value  string `json:"value"`
}

type Quantity struct {
	Value  float64 `json:"value"`
	Unit   string  `json:"unit,omitempty"`
	System string  `json:"system,omitempty"`
	Code   string  `json:"code,omitempty"`
}

type Extension struct {
	URL          string `json:"url"`
	ValueInteger *int   `json:"valueInteger,omitempty"`
	ValueString  string `json:"valueString,omitempty"`
}

// snomedCodes maps the symptom vocabulary onto SNOMED CT codes.
var snomedCodes = map[string]Coding{
	screening.SymptomJointPain:        {System: snomedSystem, Code: "57676002", Display: "Joint pain"},
	screening.SymptomMultipleJoints:   {System: snomedSystem, Code: "202322003", Display: "Polyarthralgia"},
	screening.SymptomMorningStiffness: {System: snomedSystem, Code: "271706000", Display: "Morning stiffness"},
	screening.SymptomJointSwelling:    {System: snomedSystem, Code: "298158008", Display: "Joint swelling"},
	screening.SymptomJointRedness:     {System: snomedSystem, Code: "248491001", Display: "Redness of joint"},
	screening.SymptomFatigue:          {System: snomedSystem, Code: "84229001", Display: "Fatigue"},
	screening.SymptomReducedMobility:  {System: snomedSystem, Code: "8510008", Display: "Reduced mobility"},
	screening.SymptomFever:            {System: snomedSystem, Code: "386661006", Display: "Fever"},
	screening.SymptomWeightLoss:       {System: snomedSystem, Code: "89362005", Display: "Weight loss"},
	screening.SymptomSkinRash:         {System: snomedSystem, Code: "271807003", Display: "Skin rash"},
}

// conditionCodes maps likely-condition names onto SNOMED CT codes.
var conditionCodes = map[string]Coding{
	"Rheumatoid Arthritis":         {System: snomedSystem, Code: "69896004", Display: "Rheumatoid arthritis"},
	"Osteoarthritis":               {System: snomedSystem, Code: "396275006", Display: "Osteoarthritis"},
	"Psoriatic Arthritis":          {System: snomedSystem, Code: "33339001", Display: "Psoriatic arthritis"},
	"Ankylosing Spondylitis":       {System: snomedSystem, Code: "9631008", Display: "Ankylosing spondylitis"},
	"Gout":                         {System: snomedSystem, Code: "90560007", Display: "Gout"},
	"Systemic Lupus Erythematosus": {System: snomedSystem, Code: "55464009", Display: "Systemic lupus erythematosus"},
	"Fibromyalgia":                 {System: snomedSystem, Code: "203082005", Display: "Fibromyalgia"},
	"Polymyalgia Rheumatica":       {System: snomedSystem, Code: "65323003", Display: "Polymyalgia rheumatica"},
}

const (
	snomedSystem       = "http://snomed.info/sct"
	riskProbabilitySys = "http://terminology.hl7.org/CodeSystem/risk-probability"
)

// Patient is a FHIR R4 Patient resource carrying only pseudonymized
// demographics: no name, no direct identifiers.
type Patient struct {
	ResourceType string         `json:"resourceType"`
	ID           string         `json:"id"`
	Identifier   []Identifier   `json:"identifier,omitempty"`
	Gender       string         `json:"gender,omitempty"`
	Extension    []Extension    `json:"extension,omitempty"`
	Meta         map[string]any `json:"meta,omitempty"`
}

func NewPatient(p *screening.PatientScreening) Patient {
	genderMap := map[string]string{
		screening.SexMale:        "male",
		screening.SexFemale:      "female",
		screening.SexOther:       "other",
		screening.SexUndisclosed: "unknown",
	}
	gender, ok := genderMap[p.Sex]
	if !ok {
		gender = "unknown"
	}
	age := p.Age
	pseudo := p.Pseudonym()
	return Patient{
		ResourceType: "Patient",
		ID:           pseudo,
		Identifier: []Identifier{
			{System: "https://fhir.nhs.uk/Id/nhs-number", Value: "DEMO-" + pseudo},
			{System: "urn:rmd-health:patient-ref", Value: pseudo},
		},
		Gender: gender,
		Extension: []Extension{
			{URL: "http://hl7.org/fhir/StructureDefinition/patient-age", ValueInteger: &age},
		},
		Meta: map[string]any{
			"tag": []map[string]string{{
				"system":  "urn:rmd-health:data-classification",
				"code":    "PSEUDONYMIZED",
				"display": "Pseudonymized Patient Data",
			}},
		},
	}
}

type ObservationComponent struct {
	Code          CodeableConcept `json:"code"`
	ValueInteger  *int            `json:"valueInteger,omitempty"`
	ValueQuantity *Quantity       `json:"valueQuantity,omitempty"`
}

// Observation is a FHIR R4 Observation resource for one symptom.
type Observation struct {
	ResourceType      string                 `json:"resourceType"`
	ID                string                 `json:"id"`
	Status            string                 `json:"status"`
	Category          []CodeableConcept      `json:"category,omitempty"`
	Code              CodeableConcept        `json:"code"`
	Subject           *Reference             `json:"subject,omitempty"`
	EffectiveDateTime string                 `json:"effectiveDateTime,omitempty"`
	ValueBoolean      *bool                  `json:"valueBoolean,omitempty"`
	Component         []ObservationComponent `json:"component,omitempty"`
}

func NewObservation(s screening.Symptom, patientID string, effective time.Time) Observation {
	code, ok := snomedCodes[s.Name]
	if !ok {
		code = Coding{System: snomedSystem, Code: "unknown", Display: s.Name}
	}
	present := s.Present
	obs := Observation{
		ResourceType: "Observation",
		ID:           uuid.NewString(),
		Status:       "final",
		Category: []CodeableConcept{{
			Coding: []Coding{{
				System:  "http://terminology.hl7.org/CodeSystem/observation-category",
				Code:    "exam",
				Display: "Exam",
			}},
			Text: "Clinical Examination",
		}},
		Code:              CodeableConcept{Coding: []Coding{code}, Text: code.Display},
		Subject:           &Reference{Reference: "Patient/" + patientID},
		EffectiveDateTime: effective.Format(time.RFC3339),
		ValueBoolean:      &present,
	}
	if s.Severity != nil {
		obs.Component = append(obs.Component, ObservationComponent{
			Code: CodeableConcept{Coding: []Coding{{
				System: snomedSystem, Code: "246112005", Display: "Severity",
			}}},
			ValueInteger: s.Severity,
		})
	}
	if s.DurationDays != nil {
		obs.Component = append(obs.Component, ObservationComponent{
			Code: CodeableConcept{Coding: []Coding{{
				System: snomedSystem, Code: "103335007", Display: "Duration",
			}}},
			ValueQuantity: &Quantity{
				Value:  float64(*s.DurationDays),
				Unit:   "days",
				System: "http://unitsofmeasure.org",
				Code:   "d",
			},
		})
	}
	if s.DurationMinutes != nil {
		obs.Component = append(obs.Component, ObservationComponent{
			Code: CodeableConcept{Coding: []Coding{{
				System: snomedSystem, Code: "103335007", Display: "Duration",
			}}},
			ValueQuantity: &Quantity{
				Value:  float64(*s.DurationMinutes),
				Unit:   "minutes",
				System: "http://unitsofmeasure.org",
				Code:   "min",
			},
		})
	}
	return obs
}

type RiskAssessmentPrediction struct {
	Outcome            *CodeableConcept `json:"outcome,omitempty"`
	QualitativeRisk    *CodeableConcept `json:"qualitativeRisk,omitempty"`
	ProbabilityDecimal float64          `json:"probabilityDecimal"`
	Rationale          string           `json:"rationale,omitempty"`
}

// RiskAssessment is a FHIR R4 RiskAssessment resource for one assessment.
type RiskAssessment struct {
	ResourceType       string                     `json:"resourceType"`
	ID                 string                     `json:"id"`
	Status             string                     `json:"status"`
	Subject            *Reference                 `json:"subject,omitempty"`
	OccurrenceDateTime string                     `json:"occurrenceDateTime,omitempty"`
	Performer          *Reference                 `json:"performer,omitempty"`
	Basis              []Reference                `json:"basis,omitempty"`
	Prediction         []RiskAssessmentPrediction `json:"prediction,omitempty"`
	Mitigation         string                     `json:"mitigation,omitempty"`
	Note               []map[string]string        `json:"note,omitempty"`
	Extension          []Extension                `json:"extension,omitempty"`
}

func riskCoding(level screening.RiskLevel) *CodeableConcept {
	switch level {
	case screening.RiskHigh:
		return &CodeableConcept{
			Coding: []Coding{{System: riskProbabilitySys, Code: "high", Display: "High likelihood"}},
			Text:   "High Risk",
		}
	case screening.RiskModerate:
		return &CodeableConcept{
			Coding: []Coding{{System: riskProbabilitySys, Code: "moderate", Display: "Moderate likelihood"}},
			Text:   "Moderate Risk",
		}
	default:
		return &CodeableConcept{
			Coding: []Coding{{System: riskProbabilitySys, Code: "low", Display: "Low likelihood"}},
			Text:   "Low Risk",
		}
	}
}

// RiskLevelFromCoding reads a qualitative risk coding back into the domain
// enum, the inverse of riskCoding.
func RiskLevelFromCoding(c *CodeableConcept) (screening.RiskLevel, bool) {
	if c == nil {
		return "", false
	}
	for _, coding := range c.Coding {
		if coding.System != riskProbabilitySys {
			continue
		}
		switch coding.Code {
		case "high":
			return screening.RiskHigh, true
		case "moderate":
			return screening.RiskModerate, true
		case "low":
			return screening.RiskLow, true
		}
	}
	return "", false
}

func NewRiskAssessment(a *screening.Assessment, patientID string, observationIDs []string) RiskAssessment {
	rationale := a.Reasoning
	if len(rationale) > 200 {
		rationale = rationale[:200]
	}

	var predictions []RiskAssessmentPrediction
	for _, condition := range a.LikelyConditions {
		outcome, ok := conditionCodes[condition]
		if !ok {
			outcome = Coding{System: snomedSystem, Code: "unknown", Display: condition}
		}
		predictions = append(predictions, RiskAssessmentPrediction{
			Outcome:            &CodeableConcept{Coding: []Coding{outcome}, Text: condition},
			QualitativeRisk:    riskCoding(a.RiskLevel),
			ProbabilityDecimal: a.ConfidenceScore,
			Rationale:          rationale,
		})
	}
	if len(predictions) == 0 {
		predictions = []RiskAssessmentPrediction{{
			QualitativeRisk:    riskCoding(a.RiskLevel),
			ProbabilityDecimal: a.ConfidenceScore,
			Rationale:          rationale,
		}}
	}

	ra := RiskAssessment{
		ResourceType:       "RiskAssessment",
		ID:                 a.ID.String(),
		Status:             "final",
		Subject:            &Reference{Reference: "Patient/" + patientID},
		OccurrenceDateTime: a.CreatedAt.Format(time.RFC3339),
		Performer: &Reference{
			Reference: "Device/rmd-health-ai-agent",
			Display:   "RMD-Health AI Screening Agent",
		},
		Prediction: predictions,
		Mitigation: a.RecommendedNextStep,
		Note:       []map[string]string{{"text": a.Reasoning}},
	}
	for _, id := range observationIDs {
		ra.Basis = append(ra.Basis, Reference{Reference: "Observation/" + id})
	}
	if len(a.RedFlagsIdentified) > 0 {
		flags := ""
		for i, f := range a.RedFlagsIdentified {
			if i > 0 {
				flags += "; "
			}
			flags += f
		}
		ra.Extension = append(ra.Extension, Extension{
			URL:         "http://rmd-health.demo/fhir/StructureDefinition/red-flags",
			ValueString: flags,
		})
	}
	return ra
}

type BundleEntry struct {
	FullURL  string `json:"fullUrl,omitempty"`
	Resource any    `json:"resource"`
}

// Bundle is a FHIR R4 collection Bundle.
type Bundle struct {
	ResourceType string        `json:"resourceType"`
	ID           string        `json:"id"`
	Type         string        `json:"type"`
	Timestamp    string        `json:"timestamp"`
	Entry        []BundleEntry `json:"entry"`
}

// NewScreeningBundle packages the complete encounter: one Patient, one
// Observation per symptom, and the RiskAssessment when present.
func NewScreeningBundle(p *screening.PatientScreening, a *screening.Assessment) Bundle {
	bundle := Bundle{
		ResourceType: "Bundle",
		ID:           uuid.NewString(),
		Type:         "collection",
		Timestamp:    time.Now().Format(time.RFC3339),
	}

	patient := NewPatient(p)
	bundle.Entry = append(bundle.Entry, BundleEntry{
		FullURL:  "urn:uuid:" + patient.ID,
		Resource: patient,
	})

	var observationIDs []string
	for _, s := range p.Symptoms {
		obs := NewObservation(s, patient.ID, p.ScreeningDate)
		observationIDs = append(observationIDs, obs.ID)
		bundle.Entry = append(bundle.Entry, BundleEntry{
			FullURL:  "urn:uuid:" + obs.ID,
			Resource: obs,
		})
	}

	if a != nil {
		ra := NewRiskAssessment(a, patient.ID, observationIDs)
		bundle.Entry = append(bundle.Entry, BundleEntry{
			FullURL:  "urn:uuid:" + ra.ID,
			Resource: ra,
		})
	}
	return bundle
}

// RiskAssessmentEntry returns the bundle's RiskAssessment resource, if any.
// Bundles decoded from JSON carry their entries as generic maps, so those
// are rehydrated by resourceType.
func (b Bundle) RiskAssessmentEntry() (RiskAssessment, bool) {
	for _, entry := range b.Entry {
		switch res := entry.Resource.(type) {
		case RiskAssessment:
			return res, true
		case map[string]any:
			if res["resourceType"] != "RiskAssessment" {
				continue
			}
			raw, err := json.Marshal(res)
			if err != nil {
				continue
			}
			var ra RiskAssessment
			if err := json.Unmarshal(raw, &ra); err != nil {
				continue
			}
			return ra, true
		}
	}
	return RiskAssessment{}, false
}
