package reports

import (
	"fmt"
	"io"

	"github.com/jung-kurt/gofpdf"

	"frpops/internal/domain/directory"
)

// UserRoster renders the registered user accounts as a PDF table.
func UserRoster(w io.Writer, users []directory.UserRecord) error {
	pdf := newRosterPDF("Daftar Pengguna")
	writeRow(pdf, true, "Nama Pengguna", "NIK", "Jabatan", "Lokasi")
	for _, rec := range users {
		writeRow(pdf, false, rec.Username, rec.NIK, rec.Jabatan, rec.Lokasi)
	}
	return pdf.Output(w)
}

// EquipmentRoster renders the equipment fleet as a PDF table.
func EquipmentRoster(w io.Writer, equipment []directory.EquipmentRecord) error {
	pdf := newRosterPDF("Daftar Alat")
	writeRow(pdf, true, "Nomor Lambung", "Nomor Polisi", "Jenis Kendaraan", "Lokasi")
	for _, rec := range equipment {
		writeRow(pdf, false, rec.NomorLambung, rec.NomorPolisi, rec.JenisKendaraan, rec.Lokasi)
	}
	return pdf.Output(w)
}

// LocationRoster renders the registered sites as a PDF table.
func LocationRoster(w io.Writer, locations []directory.LocationRecord) error {
	pdf := newRosterPDF("Daftar Lokasi")
	writeRow(pdf, true, "Nama", "Latitude", "Longitude", "")
	for _, rec := range locations {
		writeRow(pdf, false, rec.Name, formatCoord(rec.Latitude), formatCoord(rec.Longitude), "")
	}
	return pdf.Output(w)
}

func newRosterPDF(title string) *gofpdf.Fpdf {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(40, 10, "PT Farika Riau Perkasa")
	pdf.Ln(10)
	pdf.SetFont("Helvetica", "", 13)
	pdf.Cell(40, 8, title)
	pdf.Ln(12)
	return pdf
}

func writeRow(pdf *gofpdf.Fpdf, header bool, cells ...string) {
	if header {
		pdf.SetFont("Helvetica", "B", 10)
	} else {
		pdf.SetFont("Helvetica", "", 10)
	}
	for _, cell := range cells {
		pdf.CellFormat(47, 7, cell, "1", 0, "L", false, 0, "")
	}
	pdf.Ln(-1)
}

func formatCoord(value *float64) string {
	if value == nil {
		return "-"
	}
	return fmt.Sprintf("%.6f", *value)
}
