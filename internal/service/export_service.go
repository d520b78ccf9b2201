package service

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/google/uuid"
	"github.com/jung-kurt/gofpdf"

	"essay-tutor-backend/internal/apierr"
	"essay-tutor-backend/internal/model"
	"essay-tutor-backend/internal/repository"
)

const exportFont = "cjk"

type ExportService interface {
	RenderPDF(ctx context.Context, essayID, userID uuid.UUID) ([]byte, error)
}

type exportService struct {
	essayRepo repository.EssayRepository
	fontPath  string
}

// NewExportService renders essays with the TrueType font at fontPath. The
// font must cover CJK glyphs; the core PDF fonts do not.
func NewExportService(essayRepo repository.EssayRepository, fontPath string) ExportService {
	return &exportService{essayRepo: essayRepo, fontPath: fontPath}
}

func (s *exportService) RenderPDF(ctx context.Context, essayID, userID uuid.UUID) ([]byte, error) {
	essay, err := s.essayRepo.GetOwnedEssay(ctx, essayID, userID)
	if err != nil {
		return nil, mapEssayErr(err)
	}

	font, err := s.loadFont()
	if err != nil {
		return nil, err
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddUTF8FontFromBytes(exportFont, "", font)
	// A font gofpdf cannot parse is silently skipped; selecting it is what fails.
	pdf.SetFont(exportFont, "", 16)
	if pdf.Err() {
		return nil, unusableFont()
	}
	pdf.SetTitle(essay.Prompt, true)
	pdf.SetCreationDate(essay.UpdatedAt)
	pdf.AddPage()

	pdf.MultiCell(0, 9, essay.Prompt, "", "L", false)
	pdf.Ln(2)

	pdf.SetFont(exportFont, "", 10)
	pdf.MultiCell(0, 6, essayMeta(essay), "", "L", false)
	pdf.MultiCell(0, 6, "寫作要求："+essay.Requirements, "", "L", false)
	pdf.Ln(4)

	pdf.SetFont(exportFont, "", 12)
	pdf.MultiCell(0, 7, essay.CurrentText, "", "L", false)

	if essay.AICommentary != nil {
		pdf.Ln(6)
		pdf.SetFont(exportFont, "", 11)
		pdf.MultiCell(0, 6, *essay.AICommentary, "", "L", false)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func (s *exportService) loadFont() ([]byte, error) {
	if s.fontPath == "" {
		return nil, apierr.Unavailable("export_unavailable", "PDF export is not configured")
	}
	font, err := os.ReadFile(s.fontPath)
	if err != nil {
		return nil, apierr.Unavailable("export_unavailable", "PDF export font cannot be read")
	}
	if !isTrueType(font) {
		return nil, unusableFont()
	}
	return font, nil
}

func unusableFont() error {
	return apierr.Unavailable("export_unavailable", "PDF export font is not a usable TrueType font")
}

// isTrueType checks the sfnt version tag of a TrueType outline font.
func isTrueType(font []byte) bool {
	return bytes.HasPrefix(font, []byte{0x00, 0x01, 0x00, 0x00}) || bytes.HasPrefix(font, []byte("true"))
}

func essayMeta(essay *model.Essay) string {
	meta := fmt.Sprintf("年級：%s　文體：%s　狀態：%s", essay.GradeLevel, essay.EssayType, essay.Status)
	if essay.StudentRating != nil {
		meta += "　學生評分：" + strconv.Itoa(*essay.StudentRating)
	}
	if essay.AIRating != nil {
		meta += "　AI 評分：" + strconv.Itoa(*essay.AIRating)
	}
	return meta
}
