package document

import (
	"fmt"
	"io"

	"github.com/go-pdf/fpdf"
)

const (
	pageMargin  = 12.0
	fieldHeight = 6.0
	labelSize   = 7.0
)

// Renderer writes service orders as A4 PDF documents.
type Renderer struct {
	compress bool
}

func NewRenderer() *Renderer {
	return &Renderer{compress: true}
}

// Write renders o to w.
func (r *Renderer) Write(w io.Writer, o ServiceOrder) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetCompression(r.compress)
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(true, pageMargin)
	pdf.SetTitle(fmt.Sprintf("Ordem de Serviço %s", o.Number), true)
	pdf.SetCreator(SystemName, false)
	pdf.AddPage()

	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pageW, _ := pdf.GetPageSize()
	width := pageW - 2*pageMargin

	// letterhead
	top := pdf.GetY()
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(width*0.65, 6, tr(o.OrgName), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(width*0.65, 5, tr(o.UnitName), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 8)
	pdf.CellFormat(width*0.65, 5, tr(o.SectionName), "", 1, "L", false, 0, "")
	bottom := pdf.GetY()

	pdf.SetXY(pageMargin+width*0.65, top)
	pdf.SetFont("Helvetica", "", 8)
	pdf.CellFormat(width*0.35, 5, SystemName, "", 2, "R", false, 0, "")
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(width*0.35, 6, tr("O.S. Nº "+o.Number), "", 2, "R", false, 0, "")
	pdf.SetFont("Helvetica", "", 8)
	pdf.CellFormat(width*0.35, 5, o.IssuedOn, "", 2, "R", false, 0, "")

	pdf.SetY(bottom + 2)
	pdf.SetLineWidth(0.6)
	pdf.Line(pageMargin, pdf.GetY(), pageMargin+width, pdf.GetY())
	pdf.SetLineWidth(0.2)
	pdf.Ln(6)

	// title
	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(width, 9, tr("ORDEM DE SERVIÇO"), "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(width, 5, tr("Manutenção de Próprio Nacional Residencial"), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	// priority badge
	if o.Urgent {
		pdf.SetFillColor(220, 38, 38)
	} else {
		pdf.SetFillColor(21, 128, 61)
	}
	pdf.SetTextColor(255, 255, 255)
	pdf.SetFont("Helvetica", "B", 10)
	badgeW := 70.0
	pdf.SetX(pageMargin + (width-badgeW)/2)
	pdf.CellFormat(badgeW, 8, "PRIORIDADE: "+o.Priority, "", 1, "C", true, 0, "")
	pdf.SetTextColor(0, 0, 0)
	pdf.Ln(5)

	// fields
	half := (width - 3) / 2
	y := pdf.GetY()
	field(pdf, tr, pageMargin, y, half, "IDENTIFICAÇÃO DA PNR", o.PNRNumber, 12)
	field(pdf, tr, pageMargin+half+3, y, half, "DATA DA SOLICITAÇÃO", o.RequestedOn, 10)
	pdf.SetY(y + 16)

	box(pdf, tr, width, "ENDEREÇO COMPLETO", o.Address, 0)
	box(pdf, tr, width, "TIPO DE SERVIÇO", o.ServiceType, 0)
	box(pdf, tr, width, "SOLICITANTE", o.Requester, 0)
	box(pdf, tr, width, "DESCRIÇÃO DO SERVIÇO SOLICITADO", o.Description, 0)
	box(pdf, tr, width, "OBSERVAÇÕES DA EXECUÇÃO (A SER PREENCHIDO PELO PRESTADOR)", "", 24)
	box(pdf, tr, width, "MATERIAL UTILIZADO", "", 18)
	pdf.Ln(14)

	// signatures
	y = pdf.GetY()
	signature(pdf, tr, pageMargin+4, y, half-8, "Fiscal Administrativo", "Assinatura e Carimbo")
	signature(pdf, tr, pageMargin+half+7, y, half-8, "Responsável pela Execução", "Assinatura")
	pdf.SetY(y + 14)

	// resident confirmation
	y = pdf.GetY()
	pdf.Rect(pageMargin, y, width, 30, "D")
	pdf.SetXY(pageMargin+2, y+2)
	pdf.SetFont("Helvetica", "", labelSize)
	pdf.SetTextColor(90, 90, 90)
	pdf.CellFormat(width-4, 4, "ATESTO QUE O SERVIÇO FOI EXECUTADO CONFORME SOLICITADO", "", 2, "L", false, 0, "")
	pdf.CellFormat(40, 6, tr("Data de Conclusão:"), "", 0, "L", false, 0, "")
	pdf.SetTextColor(0, 0, 0)
	pdf.Line(pageMargin+2, y+20, pageMargin+40, y+20)
	signature(pdf, tr, pageMargin+half+7, y+20, half-12, "", "Morador - Assinatura")
	pdf.SetY(y + 36)

	// footer
	pdf.SetDrawColor(200, 200, 200)
	pdf.Line(pageMargin, pdf.GetY(), pageMargin+width, pdf.GetY())
	pdf.SetDrawColor(0, 0, 0)
	pdf.Ln(2)
	pdf.SetFont("Helvetica", "", 7)
	pdf.SetTextColor(110, 110, 110)
	pdf.CellFormat(width, 4, tr(fmt.Sprintf("Documento gerado pelo %s em %s", SystemName, o.GeneratedAt)), "", 1, "C", false, 0, "")
	pdf.CellFormat(width, 4, tr(o.FooterLine()), "", 1, "C", false, 0, "")

	if err := pdf.Error(); err != nil {
		return fmt.Errorf("render service order %s: %w", o.Number, err)
	}

	return pdf.Output(w)
}

func field(pdf *fpdf.Fpdf, tr func(string) string, x, y, w float64, label, value string, size float64) {
	pdf.Rect(x, y, w, 14, "D")
	pdf.SetXY(x+2, y+1.5)
	pdf.SetFont("Helvetica", "", labelSize)
	pdf.SetTextColor(90, 90, 90)
	pdf.CellFormat(w-4, 4, tr(label), "", 2, "L", false, 0, "")
	pdf.SetTextColor(0, 0, 0)
	pdf.SetFont("Helvetica", "B", size)
	pdf.CellFormat(w-4, fieldHeight, tr(value), "", 0, "L", false, 0, "")
}

// box prints a full-width labelled box. A positive blank height leaves an
// empty area to be filled in by hand.
func box(pdf *fpdf.Fpdf, tr func(string) string, w float64, label, value string, blank float64) {
	x, y := pdf.GetX(), pdf.GetY()

	pdf.SetXY(x+2, y+1.5)
	pdf.SetFont("Helvetica", "", labelSize)
	pdf.SetTextColor(90, 90, 90)
	pdf.CellFormat(w-4, 4, tr(label), "", 2, "L", false, 0, "")
	pdf.SetTextColor(0, 0, 0)
	pdf.SetFont("Helvetica", "", 10)
	if value != "" {
		pdf.MultiCell(w-4, 5, tr(value), "", "L", false)
	}
	if blank > 0 {
		pdf.SetDashPattern([]float64{1, 1}, 0)
		pdf.Line(x+2, pdf.GetY()+1, x+w-2, pdf.GetY()+1)
		pdf.SetDashPattern([]float64{}, 0)
		pdf.SetY(pdf.GetY() + blank)
	}
	end := pdf.GetY() + 1.5

	pdf.Rect(x, y, w, end-y, "D")
	pdf.SetXY(x, end+2)
}

func signature(pdf *fpdf.Fpdf, tr func(string) string, x, y, w float64, title, caption string) {
	pdf.SetLineWidth(0.5)
	pdf.Line(x, y, x+w, y)
	pdf.SetLineWidth(0.2)
	pdf.SetXY(x, y+1)
	if title != "" {
		pdf.SetFont("Helvetica", "B", 9)
		pdf.CellFormat(w, 5, tr(title), "", 2, "C", false, 0, "")
	}
	pdf.SetFont("Helvetica", "", 7)
	pdf.SetTextColor(90, 90, 90)
	pdf.CellFormat(w, 4, tr(caption), "", 2, "C", false, 0, "")
	pdf.SetTextColor(0, 0, 0)
}
