package model

import (
	"encoding/json"
	"time"
)

// UnknownName is the sentinel used when no name could be extracted
const UnknownName = "Unknown"

// Seniority tiers the model is asked to choose from
const (
	SeniorityJunior     = "Junior"
	SenioritySemiSenior = "Semi-Senior"
	SenioritySenior     = "Senior"
)

// Identity is the best-effort name/contact pair read directly from the document
type Identity struct {
	Name  string `json:"nombre"` // UnknownName when not found
	Email string `json:"email"`  // Empty when not found
}

// Record is the final analysis of one document.
// A failed record carries Error and Raw instead of the model-provided fields,
// but Nombre and Email are always set.
type Record struct {
	ID              string    `json:"-"`
	Source          string    `json:"-"` // Path or URL of the analyzed document
	Role            string    `json:"-"` // Target role, empty for automatic detection
	AnalyzedAt      time.Time `json:"-"`
	Perfil          string
	Skills          []string
	Experiencia     string
	Seniority       string
	AreaProfesional string
	Match           float64
	Nombre          string
	Email           string
	Extra           map[string]any // Keys returned by the model that are not part of the field set

	Error string // Non-empty marks the record as failed
	Raw   string // Truncated model output kept for diagnostics
}

// Failed reports whether structured recovery failed for this record
func (r *Record) Failed() bool {
	return r.Error != ""
}

// Identity returns the identity fields carried by the record
func (r *Record) Identity() Identity {
	return Identity{Name: r.Nombre, Email: r.Email}
}

// MarshalJSON emits the flat key set: the model fields plus nombre/email on
// success, or error/raw plus nombre/email on failure.
func (r Record) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(r.Extra)+8)
	if r.Failed() {
		out["error"] = r.Error
		out["raw"] = r.Raw
		out["nombre"] = r.Nombre
		out["email"] = r.Email
		return json.Marshal(out)
	}

	for k, v := range r.Extra {
		if k == "error" || k == "raw" {
			continue
		}
		out[k] = v
	}
	skills := r.Skills
	if skills == nil {
		skills = []string{}
	}
	out["perfil"] = r.Perfil
	out["skills"] = skills
	out["experiencia"] = r.Experiencia
	out["seniority"] = r.Seniority
	out["area_profesional"] = r.AreaProfesional
	out["match"] = r.Match
	out["nombre"] = r.Nombre
	out["email"] = r.Email
	return json.Marshal(out)
}
