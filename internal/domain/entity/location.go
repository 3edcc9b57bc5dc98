package entity

import (
	"fmt"
	"sort"
	"strings"
)

// LocationKind distingue el almacén central de los proyectos.
type LocationKind int

const (
	LocationHub LocationKind = iota
	LocationProject
)

// Location es Hub o Project(id). El valor cero es el Hub.
type Location struct {
	kind      LocationKind
	projectID string
}

// Hub devuelve la ubicación del almacén central.
func Hub() Location { return Location{kind: LocationHub} }

// Project devuelve la ubicación de un proyecto.
func Project(id string) Location { return Location{kind: LocationProject, projectID: id} }

func (l Location) Kind() LocationKind { return l.kind }

func (l Location) IsHub() bool { return l.kind == LocationHub }

// ProjectID devuelve el id del proyecto y false si la ubicación es el Hub.
func (l Location) ProjectID() (string, bool) {
	if l.kind != LocationProject {
		return "", false
	}
	return l.projectID, true
}

func (l Location) Equal(o Location) bool {
	return l.kind == o.kind && l.projectID == o.projectID
}

// Validate exige un id no vacío para ubicaciones de proyecto.
func (l Location) Validate() error {
	if l.kind == LocationProject && strings.TrimSpace(l.projectID) == "" {
		return fmt.Errorf("ubicación de proyecto sin id")
	}
	return nil
}

// String produce "hub" o "project:<id>".
func (l Location) String() string {
	if l.kind == LocationProject {
		return "project:" + l.projectID
	}
	return "hub"
}

// ParseLocation interpreta "hub" o "project:<id>". La cadena vacía es el Hub.
func ParseLocation(s string) (Location, error) {
	s = strings.TrimSpace(s)
	switch {
	case s == "" || strings.EqualFold(s, "hub"):
		return Hub(), nil
	case strings.HasPrefix(s, "project:"):
		loc := Project(strings.TrimPrefix(s, "project:"))
		if err := loc.Validate(); err != nil {
			return Location{}, err
		}
		return loc, nil
	default:
		return Location{}, fmt.Errorf("ubicación desconocida %q", s)
	}
}

// StockKey identifica el saldo de un recurso en una ubicación; es la unidad de bloqueo.
type StockKey struct {
	ResourceID string
	Location   Location
}

func (k StockKey) String() string { return k.ResourceID + "@" + k.Location.String() }

// LockNames devuelve las claves ordenadas y sin duplicados, en el orden en que deben bloquearse.
func LockNames(keys []StockKey) []string {
	seen := make(map[string]struct{}, len(keys))
	names := make([]string, 0, len(keys))
	for _, k := range keys {
		n := k.String()
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
