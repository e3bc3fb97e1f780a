package directory

import "strings"

const (
	CollectionUsers     = "users"
	CollectionEquipment = "alat"
	CollectionLocations = "locations"
)

const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// ProtectedUsername is the root account; it can never be deleted.
const ProtectedUsername = "SUPERADMIN"

type UserRecord struct {
	ID           string `json:"id"`
	Username     string `json:"username"`
	PasswordHash string `json:"-"`
	NIK          string `json:"nik"`
	Jabatan      string `json:"jabatan"`
	Lokasi       string `json:"lokasi"`
	Role         string `json:"role"`
}

type EquipmentRecord struct {
	ID             string `json:"id"`
	NomorLambung   string `json:"nomorLambung"`
	NomorPolisi    string `json:"nomorPolisi"`
	JenisKendaraan string `json:"jenisKendaraan"`
	Lokasi         string `json:"lokasi"`
}

type LocationRecord struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

// JabatanOptions is the fixed set of job titles assignable to users.
var JabatanOptions = []string{
	"OPRATOR BP",
	"OPRATOR CP",
	"OPRATOR LOADER",
	"PEKERJA BONGKAR SEMEN",
	"SOPIR",
	"SOPIR DT",
	"ADMIN BP",
	"ADMIN LOGISTIK SPARE PART",
	"ADMIN LOGISTIK MATERIAL",
	"SUPER ADMIN",
	"QC",
	"MARKETING",
	"KEPALA MEKANIK",
	"KEPALA WORKSHOP",
	"OWNER",
	"HRD PUSAT",
	"HSE K3",
}

// RoleFromUsername derives the stored role at creation time.
func RoleFromUsername(username string) string {
	if strings.EqualFold(username, "admin") {
		return RoleAdmin
	}
	return RoleUser
}

func IsProtectedUser(username string) bool {
	return strings.EqualFold(username, ProtectedUsername)
}

func NormalizeUsername(username string) string {
	return strings.ToUpper(strings.TrimSpace(username))
}

func NormalizeNIK(nik string) string {
	return strings.ToUpper(strings.TrimSpace(nik))
}
