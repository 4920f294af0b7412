// Package datasets holds the static chart data shown next to the chat:
// growth by sector and by economic activity for each Costa Rican
// administration.
package datasets

import (
	"errors"
	"sort"
)

var ErrUnknownDataset = errors.New("unknown dataset")

const (
	NamePIBSectores      = "pib-sectores"
	NameAdminActividades = "admin-actividades"
	NameAdministrations  = "administraciones"
	NamePIBAnual         = "pib-anual"
	NameRegimen          = "regimen-definitivo"
)

// SectorGrowth is the average GDP growth of one sector under one administration.
type SectorGrowth struct {
	Sector string  `json:"sector"`
	Admin  string  `json:"admin"`
	Growth float64 `json:"growth"`
	Rank   int     `json:"rank"`
}

// AdminActivity is the best and worst performing activity of an administration.
type AdminActivity struct {
	Admin       string  `json:"admin"`
	MaxActivity string  `json:"maxActivity"`
	MaxGrowth   float64 `json:"maxGrowth"`
	MinActivity string  `json:"minActivity"`
	MinGrowth   float64 `json:"minGrowth"`
}

// YearGrowth is the average year-on-year growth of a series in one year,
// tagged with the administration in office.
type YearGrowth struct {
	Year   int     `json:"year"`
	Growth float64 `json:"growth"`
	Admin  string  `json:"admin"`
}

// Administration is a presidential term with its chart color.
type Administration struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

// CanonicalOrder is the chronological order of administrations.
var CanonicalOrder = []string{
	"Olsen",
	"Rodríguez",
	"Pacheco",
	"Arias",
	"Chinchilla",
	"Solís",
	"Alvarado",
	"Chaves",
}

var presidentialColors = map[string]string{
	"Olsen":      "#f97316",
	"Rodríguez":  "#fed7aa",
	"Pacheco":    "#a855f7",
	"Arias":      "#22c55e",
	"Chinchilla": "#fb923c",
	"Solís":      "#9ca3af",
	"Alvarado":   "#ec4899",
	"Chaves":     "#38bdf8",
}

var pibSectores = []SectorGrowth{
	{"Agro", "Olsen", 5.9, 1},
	{"Agro", "Pacheco", 3.2, 2},
	{"Agro", "Chinchilla", 2.7, 3},
	{"Agro", "Solís", 2.2, 4},
	{"Agro", "Rodríguez", 1.9, 5},
	{"Agro", "Arias", 1.8, 6},
	{"Agro", "Chaves", 0.7, 7},
	{"Agro", "Alvarado", 0.2, 8},

	{"Servicios", "Arias", 6.0, 1},
	{"Servicios", "Pacheco", 5.2, 2},
	{"Servicios", "Solís", 4.6, 3},
	{"Servicios", "Chinchilla", 4.6, 4},
	{"Servicios", "Olsen", 4.4, 5},
	{"Servicios", "Rodríguez", 4.3, 6},
	{"Servicios", "Alvarado", 3.0, 7},
	{"Servicios", "Chaves", 1.9, 8},

	{"Industria", "Chinchilla", 5.5, 1},
	{"Industria", "Rodríguez", 4.0, 2},
	{"Industria", "Pacheco", 3.9, 3},
	{"Industria", "Solís", 3.5, 4},
	{"Industria", "Arias", 3.5, 5},
	{"Industria", "Chaves", 2.4, 6},
	{"Industria", "Olsen", 2.1, 7},
	{"Industria", "Alvarado", 1.2, 8},
}

var adminActividades = []AdminActivity{
	{"Arias", "Finanzas", 14.4, "Manuf.", -0.4},
	{"Chaves", "Prof.", 8.0, "Adm. P.", 0.4},
	{"Rodríguez", "Info.", 19.0, "Come.", 0.7},
	{"Pacheco", "Info.", 18.4, "Adm. P.", 1.2},
	{"Chinchilla", "Info.", 11.5, "Const.", -2.0},
	{"Olsen", "Inmob.", 12.6, "Transp.", -2.8},
	{"Solís", "Info.", 10.0, "Adm. P.", 1.1},
	{"Alvarado", "Manuf.", 6.9, "Const.", -2.5},
}

// Annual average GDP growth, 1994-2025.
var pibAnual = []float64{
	5.42, 3.64, 1.35, 5.08, 6.84, 4.18, 3.31, 3.35, 3.09, 4.27, 3.75, 4.24, 6.29, 8.06, 5.48, -0.36,
	4.94, 4.62, 4.41, 2.8, 3.33, 3.67, 2.94, 2.4, 2.06, 1.66, -6.34, 6.94, 4.93, 3.89, 3.79, 3.07,
}

// Annual average growth of the Régimen Definitivo (PIB_RegDef_TC), 1994-2025.
var regimenDefinitivo = []float64{
	4.88, 3.17, 1.6, 5.08, 6.26, 4.18, 3.32, 3.35, 3.18, 4.27, 4.0, 4.24, 7.19, 8.56, 4.98, -0.36,
	4.94, 4.62, 4.91, 2.8, 3.34, 3.67, 2.94, 2.4, 2.05, 1.59, -6.09, 6.94, 4.28, 3.89, 3.79, 3.07,
}

const firstYear = 1994

// Names lists every dataset Get accepts.
func Names() []string {
	return []string{NamePIBSectores, NameAdminActividades, NameAdministrations, NamePIBAnual, NameRegimen}
}

// Get returns a copy of the named dataset.
func Get(name string) (any, error) {
	switch name {
	case NamePIBSectores:
		return PIBSectores(), nil
	case NameAdminActividades:
		return AdminActividades(), nil
	case NameAdministrations:
		return Administrations(), nil
	case NamePIBAnual:
		return PIBAnual(), nil
	case NameRegimen:
		return RegimenDefinitivo(), nil
	default:
		return nil, ErrUnknownDataset
	}
}

func PIBSectores() []SectorGrowth {
	return append([]SectorGrowth(nil), pibSectores...)
}

// AdminActividades returns the rows in canonical administration order.
func AdminActividades() []AdminActivity {
	out := append([]AdminActivity(nil), adminActividades...)
	sort.SliceStable(out, func(i, j int) bool {
		return orderOf(out[i].Admin) < orderOf(out[j].Admin)
	})
	return out
}

func Administrations() []Administration {
	out := make([]Administration, len(CanonicalOrder))
	for i, name := range CanonicalOrder {
		out[i] = Administration{Name: name, Color: presidentialColors[name]}
	}
	return out
}

func PIBAnual() []YearGrowth {
	return yearly(pibAnual)
}

func RegimenDefinitivo() []YearGrowth {
	return yearly(regimenDefinitivo)
}

func yearly(series []float64) []YearGrowth {
	out := make([]YearGrowth, len(series))
	for i, g := range series {
		year := firstYear + i
		out[i] = YearGrowth{Year: year, Growth: g, Admin: AdminByYear(year)}
	}
	return out
}

// AdminByYear names the administration in office during year. Terms start
// in 1994 and last four years; years outside every term yield "".
func AdminByYear(year int) string {
	if year < firstYear {
		return ""
	}
	i := (year - firstYear) / 4
	if i >= len(CanonicalOrder) {
		if year <= 2026 {
			return CanonicalOrder[len(CanonicalOrder)-1]
		}
		return ""
	}
	return CanonicalOrder[i]
}

// Sector returns one sector's rows sorted by rank. Unknown sectors yield nil.
func Sector(name string) []SectorGrowth {
	var out []SectorGrowth
	for _, row := range pibSectores {
		if row.Sector == name {
			out = append(out, row)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Rank < out[j].Rank })
	return out
}

func orderOf(admin string) int {
	for i, name := range CanonicalOrder {
		if name == admin {
			return i
		}
	}
	return len(CanonicalOrder)
}
