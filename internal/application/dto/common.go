package dto

import (
	"fmt"
	"strings"
	"time"

	"github.com/jhoicas/Inventario-ledger/internal/domain"
	"github.com/jhoicas/Inventario-ledger/internal/domain/entity"
)

// DateLayout formato de fechas en query strings y cuerpos JSON.
const DateLayout = "2006-01-02"

// ErrorResponse cuerpo de error HTTP. Retryable indica que la misma petición puede reintentarse.
type ErrorResponse struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable,omitempty"`
}

// ParseDate acepta YYYY-MM-DD; vacío devuelve la fecha cero.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.ParseInLocation(DateLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, domain.Invalid("fecha %q: se espera %s", s, DateLayout)
	}
	return t, nil
}

// ParseLocation acepta "hub", "" o "project:<id>".
func ParseLocation(s string) (entity.Location, error) {
	loc, err := entity.ParseLocation(s)
	if err != nil {
		return entity.Location{}, domain.Invalid("%v", err)
	}
	return loc, nil
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(DateLayout)
}

func projectLocation(projectID string) (entity.Location, error) {
	if strings.TrimSpace(projectID) == "" {
		return entity.Location{}, fmt.Errorf("%w: project_id requerido", domain.ErrInvalidArgument)
	}
	return entity.Project(projectID), nil
}
