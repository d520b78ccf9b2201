package controller

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"essay-tutor-backend/internal/service"
	"essay-tutor-backend/utilities"
)

type generateEssayRequest struct {
	GradeLevel   string `json:"gradeLevel" binding:"required,min=1"`
	EssayType    string `json:"essayType" binding:"required,min=1"`
	Requirements string `json:"requirements" binding:"required,min=1"`
	Prompt       string `json:"prompt" binding:"required,min=1"`
}

type reviewEssayRequest struct {
	Rating   *int   `json:"rating" binding:"required,min=0,max=100"`
	Feedback string `json:"feedback" binding:"required,min=1"`
}

type reviseEssayRequest struct {
	Instructions string `json:"instructions" binding:"required,min=1"`
}

type EssayController struct {
	EssayService  service.EssayService
	ExportService service.ExportService
	Log           *utilities.Logger
}

func NewEssayController(essayService service.EssayService, exportService service.ExportService, log *utilities.Logger) *EssayController {
	return &EssayController{EssayService: essayService, ExportService: exportService, Log: log}
}

// ids pulls the caller and the essay id from the request. It writes the
// error response itself and reports false when either is missing.
func (ec *EssayController) ids(c *gin.Context) (userID, essayID uuid.UUID, ok bool) {
	userID, ok = utilities.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Unauthorized"})
		return uuid.Nil, uuid.Nil, false
	}
	essayID, err := uuid.Parse(c.Param("essayId"))
	if err != nil {
		respondInvalidField(c, "essayId", "Invalid uuid")
		return uuid.Nil, uuid.Nil, false
	}
	return userID, essayID, true
}

func (ec *EssayController) Generate(c *gin.Context) {
	userID, ok := utilities.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Unauthorized"})
		return
	}
	var req generateEssayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalid(c, err)
		return
	}

	essay, err := ec.EssayService.Create(c.Request.Context(), userID, service.CreateEssayInput{
		GradeLevel:   req.GradeLevel,
		EssayType:    req.EssayType,
		Requirements: req.Requirements,
		Prompt:       req.Prompt,
	})
	if err != nil {
		respondError(c, ec.Log, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"essay": essay})
}

func (ec *EssayController) List(c *gin.Context) {
	userID, ok := utilities.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Unauthorized"})
		return
	}
	essays, err := ec.EssayService.List(c.Request.Context(), userID)
	if err != nil {
		respondError(c, ec.Log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"essays": essays})
}

func (ec *EssayController) Get(c *gin.Context) {
	userID, essayID, ok := ec.ids(c)
	if !ok {
		return
	}
	essay, err := ec.EssayService.Get(c.Request.Context(), essayID, userID)
	if err != nil {
		respondError(c, ec.Log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"essay": essay})
}

func (ec *EssayController) Review(c *gin.Context) {
	userID, essayID, ok := ec.ids(c)
	if !ok {
		return
	}
	var req reviewEssayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalid(c, err)
		return
	}

	essay, err := ec.EssayService.Review(c.Request.Context(), essayID, userID, *req.Rating, req.Feedback)
	if err != nil {
		respondError(c, ec.Log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"essay": essay})
}

func (ec *EssayController) Revise(c *gin.Context) {
	userID, essayID, ok := ec.ids(c)
	if !ok {
		return
	}
	var req reviseEssayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalid(c, err)
		return
	}

	essay, err := ec.EssayService.Revise(c.Request.Context(), essayID, userID, req.Instructions)
	if err != nil {
		respondError(c, ec.Log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"essay": essay})
}

func (ec *EssayController) Finalize(c *gin.Context) {
	userID, essayID, ok := ec.ids(c)
	if !ok {
		return
	}
	essay, err := ec.EssayService.Finalize(c.Request.Context(), essayID, userID)
	if err != nil {
		respondError(c, ec.Log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"essay": essay})
}

func (ec *EssayController) Export(c *gin.Context) {
	userID, essayID, ok := ec.ids(c)
	if !ok {
		return
	}
	pdf, err := ec.ExportService.RenderPDF(c.Request.Context(), essayID, userID)
	if err != nil {
		respondError(c, ec.Log, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="essay-%s.pdf"`, essayID))
	c.Data(http.StatusOK, "application/pdf", pdf)
}
