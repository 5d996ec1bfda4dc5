// types.go - Request- und Response-Typen der GQCNN-API
// Haupttypen: CompileRequest, CompileResponse, ValidateRequest,
// ValidateResponse, ListResponse, StatusError
package api

import (
	"errors"
	"fmt"
	"time"

	"github.com/moliushang/gqcnn/arch"
)

// StatusError - HTTP-Fehler des Servers mit dekodierter Fehlermeldung
type StatusError struct {
	StatusCode   int    `json:"-"`
	Status       string `json:"-"`
	ErrorMessage string `json:"error"`
}

func (e StatusError) Error() string {
	switch {
	case e.Status != "" && e.ErrorMessage != "":
		return fmt.Sprintf("%s: %s", e.Status, e.ErrorMessage)
	case e.Status != "":
		return e.Status
	case e.ErrorMessage != "":
		return e.ErrorMessage
	default:
		return "something went wrong, please see the gqcnn server logs for details"
	}
}

// =============================================================================
// Kompilieren und Validieren
// =============================================================================

// CompileRequest - YAML-Konfiguration, optional mit Registrierung
type CompileRequest struct {
	// Config ist die vollstaendige Training-Konfiguration (YAML).
	Config string `json:"config"`

	// Save registriert das Kompilat unter Name in der Registry.
	Save bool   `json:"save,omitempty"`
	Name string `json:"name,omitempty"`
}

// CompileResponse - das Kompilat samt Registry-Metadaten
type CompileResponse struct {
	Graph      *arch.GraphDescription `json:"graph"`
	OutputSize int                    `json:"output_size"`

	// Gesetzt wenn das Kompilat registriert wurde.
	ID   string `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
}

// ValidateRequest - nur strukturelle Pruefung, kein Kompilat
type ValidateRequest struct {
	Config string `json:"config"`
}

// ErrorDetail lokalisiert einen Strukturfehler in der Quell-Konfiguration.
type ErrorDetail struct {
	Message   string `json:"message"`
	Stream    string `json:"stream,omitempty"`
	Layer     string `json:"layer,omitempty"`
	Attribute string `json:"attribute,omitempty"`
}

// DetailFromError extrahiert die Fundstelle aus einem Compiler-Fehler.
func DetailFromError(err error) *ErrorDetail {
	if err == nil {
		return nil
	}
	d := &ErrorDetail{Message: err.Error()}
	var ce *arch.CompileError
	if errors.As(err, &ce) {
		d.Stream = ce.Stream
		d.Layer = ce.Layer
		d.Attribute = ce.Attribute
	}
	return d
}

// ValidateResponse - Ergebnis der Pruefung
type ValidateResponse struct {
	Valid bool         `json:"valid"`
	Error *ErrorDetail `json:"error,omitempty"`
}

// =============================================================================
// Registry
// =============================================================================

// ArchitectureSummary - Listeneintrag ohne Graph
type ArchitectureSummary struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	CreatedAt   time.Time `json:"created_at"`
	GripperMode string    `json:"gripper_mode,omitempty"`
	OutputSize  int       `json:"output_size"`
}

// ListResponse - alle registrierten Architekturen
type ListResponse struct {
	Architectures []ArchitectureSummary `json:"architectures"`
}

// ShowResponse - ein registrierter Eintrag samt Kompilat
type ShowResponse struct {
	ArchitectureSummary
	Graph *arch.GraphDescription `json:"graph"`
}

// VersionResponse - Server-Version
type VersionResponse struct {
	Version string `json:"version"`
}
