package entity

import "time"

// Resource es un material inventariable. BaseUnit no cambia una vez que existen lotes.
type Resource struct {
	ID        string
	Name      string
	SKU       string
	BaseUnit  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ProjectInfo son los datos maestros de un proyecto; su ubicación es Project(ID).
type ProjectInfo struct {
	ID        string
	Code      string
	Name      string
	CreatedAt time.Time
}
