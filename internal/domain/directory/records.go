package directory

import "frpops/internal/platform/store"

func docString(doc store.Document, field string) string {
	if value, ok := doc[field].(string); ok {
		return value
	}
	return ""
}

func docFloat(doc store.Document, field string) *float64 {
	if value, ok := doc[field].(float64); ok {
		return &value
	}
	return nil
}

func UserFromRecord(rec store.Record) UserRecord {
	return UserRecord{
		ID:           rec.ID,
		Username:     docString(rec.Doc, "username"),
		PasswordHash: docString(rec.Doc, "password"),
		NIK:          docString(rec.Doc, "nik"),
		Jabatan:      docString(rec.Doc, "jabatan"),
		Lokasi:       docString(rec.Doc, "lokasi"),
		Role:         docString(rec.Doc, "role"),
	}
}

func EquipmentFromRecord(rec store.Record) EquipmentRecord {
	return EquipmentRecord{
		ID:             rec.ID,
		NomorLambung:   docString(rec.Doc, "nomorLambung"),
		NomorPolisi:    docString(rec.Doc, "nomorPolisi"),
		JenisKendaraan: docString(rec.Doc, "jenisKendaraan"),
		Lokasi:         docString(rec.Doc, "lokasi"),
	}
}

func LocationFromRecord(rec store.Record) LocationRecord {
	return LocationRecord{
		ID:        rec.ID,
		Name:      docString(rec.Doc, "name"),
		Latitude:  docFloat(rec.Doc, "latitude"),
		Longitude: docFloat(rec.Doc, "longitude"),
	}
}
