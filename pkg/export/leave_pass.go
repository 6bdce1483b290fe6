package export

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// PassDocument carries everything the printed leave pass shows.
type PassDocument struct {
	LeaveID       string
	StudentName   string
	RollNumber    string
	Department    string
	Year          string
	LeaveType     string
	Reason        string
	StartDate     time.Time
	EndDate       time.Time
	Status        string
	ApprovedStamp time.Time
	QRPNG         []byte
	VerifyHint    string
}

// PassRenderer renders approved leave requests into a printable PDF pass.
type PassRenderer struct {
	institution string
}

// NewPassRenderer constructs a pass renderer with the institution name used
// in the document header.
func NewPassRenderer(institution string) *PassRenderer {
	if institution == "" {
		institution = "Campus Leave Office"
	}
	return &PassRenderer{institution: institution}
}

// Render creates the PDF bytes for a single leave pass.
func (r *PassRenderer) Render(doc PassDocument) ([]byte, error) {
	if doc.LeaveID == "" {
		return nil, fmt.Errorf("pass requires a leave id")
	}
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 10, strings.ToUpper(r.institution), "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(0, 8, "LEAVE PASS", "", 1, "C", false, 0, "")
	pdf.Ln(4)

	pdf.SetDrawColor(60, 60, 60)
	pdf.Line(15, pdf.GetY(), 195, pdf.GetY())
	pdf.Ln(6)

	labelValue := func(label, value string) {
		pdf.SetFont("Arial", "B", 10)
		pdf.CellFormat(45, 7, label, "", 0, "L", false, 0, "")
		pdf.SetFont("Arial", "", 10)
		pdf.CellFormat(0, 7, value, "", 1, "L", false, 0, "")
	}

	labelValue("Pass Ref", doc.LeaveID)
	labelValue("Student", doc.StudentName)
	if doc.RollNumber != "" {
		labelValue("Roll Number", doc.RollNumber)
	}
	if doc.Department != "" {
		labelValue("Department", doc.Department)
	}
	if doc.Year != "" {
		labelValue("Year", doc.Year)
	}
	labelValue("Leave Type", doc.LeaveType)
	labelValue("From", doc.StartDate.Format("02 Jan 2006"))
	labelValue("To", doc.EndDate.Format("02 Jan 2006"))
	if doc.Reason != "" {
		labelValue("Reason", doc.Reason)
	}
	pdf.Ln(3)

	status := strings.ToUpper(doc.Status)
	if status == "APPROVED" {
		pdf.SetTextColor(22, 120, 44)
	} else {
		pdf.SetTextColor(170, 30, 30)
	}
	pdf.SetFont("Arial", "B", 13)
	pdf.CellFormat(0, 9, status, "", 1, "L", false, 0, "")
	pdf.SetTextColor(0, 0, 0)
	if !doc.ApprovedStamp.IsZero() {
		pdf.SetFont("Arial", "", 9)
		pdf.CellFormat(0, 6, "Issued "+doc.ApprovedStamp.Format("02 Jan 2006 15:04 MST"), "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)

	if len(doc.QRPNG) > 0 {
		opts := gofpdf.ImageOptions{ImageType: "PNG", ReadDpi: false}
		pdf.RegisterImageOptionsReader("pass-qr", opts, bytes.NewReader(doc.QRPNG))
		pdf.ImageOptions("pass-qr", 75, pdf.GetY(), 60, 60, false, opts, 0, "")
		pdf.SetY(pdf.GetY() + 64)
	}

	pdf.SetFont("Arial", "I", 8)
	hint := doc.VerifyHint
	if hint == "" {
		hint = "Scan the code or present this pass at the gate for verification."
	}
	pdf.CellFormat(0, 6, hint, "", 1, "C", false, 0, "")
	pdf.CellFormat(0, 6, "This document is system generated and valid only for the dates shown.", "", 1, "C", false, 0, "")

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pass pdf: %w", err)
	}
	return buf.Bytes(), nil
}
