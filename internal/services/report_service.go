package services

import (
	"bytes"
	"context"
	"fmt"

	"fireproof/internal/apperrors"
	"fireproof/internal/common"
	"fireproof/internal/models"
	"fireproof/internal/repositories"

	"github.com/google/uuid"
	"github.com/jung-kurt/gofpdf"
)

type ReportService interface {
	// InspectionCertificate renders a completed inspection as a PDF.
	InspectionCertificate(ctx context.Context, tenantID, inspectionID uuid.UUID) ([]byte, string, error)
}

type reportService struct {
	inspectionSvc    InspectionService
	extinguisherRepo repositories.ExtinguisherRepository
	locationRepo     repositories.LocationRepository
	tenantRepo       repositories.TenantRepository
	checklistRepo    repositories.ChecklistRepository
	userRepo         repositories.UserRepository
}

func NewReportService(
	inspectionSvc InspectionService,
	extinguisherRepo repositories.ExtinguisherRepository,
	locationRepo repositories.LocationRepository,
	tenantRepo repositories.TenantRepository,
	checklistRepo repositories.ChecklistRepository,
	userRepo repositories.UserRepository,
) ReportService {
	return &reportService{
		inspectionSvc:    inspectionSvc,
		extinguisherRepo: extinguisherRepo,
		locationRepo:     locationRepo,
		tenantRepo:       tenantRepo,
		checklistRepo:    checklistRepo,
		userRepo:         userRepo,
	}
}

type certificate struct {
	tenant       *models.Tenant
	inspection   *models.Inspection
	extinguisher *models.Extinguisher
	location     *models.Location
	template     *models.ChecklistTemplate
	inspector    string
	verification *models.VerificationResult
}

func (s *reportService) InspectionCertificate(ctx context.Context, tenantID, inspectionID uuid.UUID) ([]byte, string, error) {
	insp, err := s.inspectionSvc.Get(ctx, tenantID, inspectionID)
	if err != nil {
		return nil, "", err
	}
	if insp.Status != models.InspectionCompleted {
		return nil, "", apperrors.Conflict("a certificate is only available for completed inspections")
	}

	cert := &certificate{inspection: insp, inspector: "-"}
	if cert.tenant, err = s.tenantRepo.GetByID(ctx, tenantID); err != nil {
		return nil, "", err
	}
	if cert.extinguisher, err = s.extinguisherRepo.GetByID(ctx, tenantID, insp.ExtinguisherID); err != nil {
		return nil, "", err
	}
	if cert.location, err = s.locationRepo.GetByID(ctx, tenantID, cert.extinguisher.LocationID); err != nil {
		return nil, "", err
	}
	if cert.template, err = s.checklistRepo.GetByID(ctx, tenantID, insp.TemplateID); err != nil {
		return nil, "", err
	}
	if insp.InspectorID != nil {
		if u, err := s.userRepo.GetByID(ctx, tenantID, *insp.InspectorID); err == nil {
			cert.inspector = fmt.Sprintf("%s <%s>", u.FullName(), u.Email)
		}
	}
	if cert.verification, err = s.inspectionSvc.Verify(ctx, tenantID, inspectionID); err != nil {
		return nil, "", err
	}

	body, err := renderCertificate(cert)
	if err != nil {
		return nil, "", apperrors.Internal("failed to render certificate", err)
	}
	filename := fmt.Sprintf("inspection-%s-%s.pdf", cert.extinguisher.AssetTag, insp.CompletedAt.Format(common.DateLayout))
	return body, filename, nil
}

func renderCertificate(c *certificate) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	marginX := 15.0
	marginY := 15.0
	pdf.SetMargins(marginX, marginY, marginX)
	pdf.SetAutoPageBreak(true, marginY)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont("Arial", "B", 16)
	pdf.SetTextColor(33, 37, 41)
	pdf.SetXY(marginX, marginY)
	pdf.Cell(0, 10, "FIRE EXTINGUISHER INSPECTION CERTIFICATE")
	pdf.Ln(12)

	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, tr(c.tenant.Name))
	pdf.Ln(10)

	insp := c.inspection
	ext := c.extinguisher
	rows := [][2]string{
		{"Inspection", insp.ID.String()},
		{"Type", insp.InspectionType},
		{"Checklist", fmt.Sprintf("%s (%s)", c.template.Name, c.template.Standard)},
		{"Completed", insp.CompletedAt.UTC().Format("02-Jan-2006 15:04 MST")},
		{"Inspector", c.inspector},
		{"Location", fmt.Sprintf("%s %s", c.location.Code, c.location.Name)},
		{"Asset tag", ext.AssetTag},
		{"Serial number", common.SafeString(ext.SerialNumber)},
		{"Placement", fmt.Sprintf("Floor %s, Room %s", common.SafeString(ext.Floor), common.SafeString(ext.Room))},
	}
	if ext.NextInspectionDue != nil {
		rows = append(rows, [2]string{"Next inspection due", ext.NextInspectionDue.Format(common.DateLayout)})
	}
	pdf.SetFont("Arial", "", 10)
	for _, r := range rows {
		pdf.SetFont("Arial", "B", 10)
		pdf.CellFormat(45, 6, r[0]+":", "", 0, "L", false, 0, "")
		pdf.SetFont("Arial", "", 10)
		pdf.CellFormat(0, 6, tr(r[1]), "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)

	result := common.SafeString(insp.OverallResult)
	pdf.SetFont("Arial", "B", 14)
	if result == models.ResultPass {
		pdf.SetTextColor(25, 135, 84)
	} else {
		pdf.SetTextColor(220, 20, 60)
	}
	pdf.Cell(0, 10, "RESULT: "+result)
	pdf.Ln(12)
	pdf.SetTextColor(33, 37, 41)

	texts := make(map[uuid.UUID]string, len(c.template.Items))
	for _, item := range c.template.Items {
		texts[item.ID] = item.Text
	}

	colWidths := []float64{110, 20, 50}
	pdf.SetFont("Arial", "B", 10)
	pdf.SetFillColor(240, 240, 240)
	for i, header := range []string{"Checklist item", "Result", "Comment"} {
		pdf.CellFormat(colWidths[i], 8, header, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(8)

	pdf.SetFont("Arial", "", 9)
	for _, r := range insp.Responses {
		text := texts[r.ItemID]
		if len(text) > 70 {
			text = text[:67] + "..."
		}
		comment := r.Comment
		if len(comment) > 30 {
			comment = comment[:27] + "..."
		}
		pdf.CellFormat(colWidths[0], 7, tr(text), "1", 0, "L", false, 0, "")
		pdf.CellFormat(colWidths[1], 7, r.Result, "1", 0, "C", false, 0, "")
		pdf.CellFormat(colWidths[2], 7, tr(comment), "1", 0, "L", false, 0, "")
		pdf.Ln(7)
	}
	pdf.Ln(5)

	if len(insp.Deficiencies) > 0 {
		pdf.SetFont("Arial", "B", 11)
		pdf.Cell(0, 8, "Deficiencies")
		pdf.Ln(8)
		pdf.SetFont("Arial", "", 9)
		for _, d := range insp.Deficiencies {
			due := ""
			if d.DueDate != nil {
				due = ", due " + d.DueDate.Format(common.DateLayout)
			}
			pdf.MultiCell(0, 5, tr(fmt.Sprintf("[%s] %s: %s (%s%s)", d.Severity, d.DeficiencyType, d.Description, d.Status, due)), "", "L", false)
		}
		pdf.Ln(4)
	}

	if insp.Notes != nil && *insp.Notes != "" {
		pdf.SetFont("Arial", "B", 10)
		pdf.Cell(0, 6, "Notes")
		pdf.Ln(6)
		pdf.SetFont("Arial", "", 9)
		pdf.MultiCell(0, 5, tr(*insp.Notes), "", "L", false)
		pdf.Ln(4)
	}

	pdf.SetFont("Courier", "", 7)
	pdf.SetTextColor(128, 128, 128)
	pdf.Cell(0, 4, "hash      "+common.SafeString(insp.Hash))
	pdf.Ln(4)
	pdf.Cell(0, 4, "previous  "+common.SafeString(insp.PreviousHash))
	pdf.Ln(4)
	pdf.Cell(0, 4, "signature "+common.SafeString(insp.Signature))
	pdf.Ln(6)

	pdf.SetFont("Arial", "I", 8)
	status := "Record verified: hash, signature and chain intact."
	if !c.verification.Valid() {
		pdf.SetTextColor(220, 20, 60)
		status = fmt.Sprintf("RECORD FAILED VERIFICATION (hash %t, signature %t, chain %t)",
			c.verification.HashValid, c.verification.SignatureValid, c.verification.ChainValid)
	}
	pdf.Cell(0, 5, status)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
