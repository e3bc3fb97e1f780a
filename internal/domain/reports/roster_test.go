package reports

import (
	"bytes"
	"testing"

	"frpops/internal/domain/directory"
)

func TestRostersRenderPDF(t *testing.T) {
	lat, lng := 0.51, 101.44

	tests := []struct {
		name   string
		render func(buf *bytes.Buffer) error
	}{
		{
			name: "user roster",
			render: func(buf *bytes.Buffer) error {
				return UserRoster(buf, []directory.UserRecord{
					{Username: "BUDI", NIK: "NIK-007", Jabatan: "SOPIR", Lokasi: "BP PEKANBARU"},
				})
			},
		},
		{
			name: "equipment roster",
			render: func(buf *bytes.Buffer) error {
				return EquipmentRoster(buf, []directory.EquipmentRecord{
					{NomorLambung: "TM-01", NomorPolisi: "BM 1234 AB", JenisKendaraan: "TRUK MIXER", Lokasi: "BP PEKANBARU"},
				})
			},
		},
		{
			name: "location roster with missing coordinates",
			render: func(buf *bytes.Buffer) error {
				return LocationRoster(buf, []directory.LocationRecord{
					{Name: "BP PEKANBARU", Latitude: &lat, Longitude: &lng},
					{Name: "BP DUMAI"},
				})
			},
		},
		{
			name: "empty roster still renders",
			render: func(buf *bytes.Buffer) error {
				return UserRoster(buf, nil)
			},
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := tc.render(&buf); err != nil {
				t.Fatalf("render: %v", err)
			}
			if !bytes.HasPrefix(buf.Bytes(), []byte("%PDF")) {
				t.Fatal("output is not a pdf document")
			}
		})
	}
}

func TestFormatCoord(t *testing.T) {
	if got := formatCoord(nil); got != "-" {
		t.Fatalf("formatCoord(nil) = %q, want %q", got, "-")
	}
	value := 0.51
	if got := formatCoord(&value); got != "0.510000" {
		t.Fatalf("formatCoord(0.51) = %q, want %q", got, "0.510000")
	}
}
