package auth

import "strings"

// Destination identifies the dashboard a session lands on after login.
type Destination string

const (
	DestSuperAdmin            Destination = "SUPER_ADMIN"
	DestAdminBP               Destination = "ADMIN_BP"
	DestKepalaWorkshop        Destination = "KEPALA_WORKSHOP"
	DestKepalaMekanik         Destination = "KEPALA_MEKANIK"
	DestMekanik               Destination = "MEKANIK"
	DestSopir                 Destination = "SOPIR"
	DestQC                    Destination = "QC"
	DestBongkarSemen          Destination = "BONGKAR_SEMEN"
	DestAdminLogistikMaterial Destination = "ADMIN_LOGISTIK_MATERIAL"
	DestOwner                 Destination = "OWNER"
	DestHRDPusat              Destination = "HRD_PUSAT"
	DestHSEK3                 Destination = "HSE_K3"
	DestDefault               Destination = "DEFAULT"
)

type routeRule struct {
	keyword     string
	destination Destination
}

// routeRules is matched by substring containment against the upper-cased
// jabatan, first match wins. Order matters: "KEPALA MEKANIK" shadows the
// broader "MEKANIK" rule and "SUPER ADMIN" must precede the other admin
// keywords.
var routeRules = []routeRule{
	{"SUPER ADMIN", DestSuperAdmin},
	{"ADMIN BP", DestAdminBP},
	{"KEPALA WORKSHOP", DestKepalaWorkshop},
	{"KEPALA MEKANIK", DestKepalaMekanik},
	{"MEKANIK", DestMekanik},
	{"SOPIR", DestSopir},
	{"QC", DestQC},
	{"PEKERJA BONGKAR SEMEN", DestBongkarSemen},
	{"ADMIN LOGISTIK MATERIAL", DestAdminLogistikMaterial},
	{"OWNER", DestOwner},
	{"HRD PUSAT", DestHRDPusat},
	{"HSE K3", DestHSEK3},
}

// Route resolves a jabatan string to its dashboard destination.
func Route(jabatan string) Destination {
	upper := strings.ToUpper(jabatan)
	for _, rule := range routeRules {
		if strings.Contains(upper, rule.keyword) {
			return rule.destination
		}
	}
	return DestDefault
}
