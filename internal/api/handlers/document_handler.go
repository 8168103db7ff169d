package handlers

import (
	"errors"
	"strconv"

	"finscan/internal/blobstore"
	"finscan/internal/dto"
	"finscan/internal/models"
	"finscan/internal/repository"
	"finscan/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type DocumentHandler struct {
	uploads *service.UploadService
	txs     *service.TransactionService
	docs    repository.DocumentRepository
	blobs   blobstore.Store
	logger  *zap.Logger
}

func NewDocumentHandler(
	uploads *service.UploadService,
	txs *service.TransactionService,
	docs repository.DocumentRepository,
	blobs blobstore.Store,
	logger *zap.Logger,
) *DocumentHandler {
	return &DocumentHandler{
		uploads: uploads,
		txs:     txs,
		docs:    docs,
		blobs:   blobs,
		logger:  logger,
	}
}

// UploadDocument accepts exactly one file per request and answers with the
// created document in status uploaded. Extraction runs in the background.
func (h *DocumentHandler) UploadDocument(c *fiber.Ctx) error {
	ownerID, err := getOwnerID(c)
	if err != nil {
		return unauthorized(c)
	}

	form, err := c.MultipartForm()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Multipart form is required",
		})
	}
	files := form.File["file"]
	if len(files) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "File is required",
		})
	}
	if len(files) > 1 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Exactly one file per upload",
		})
	}
	file := files[0]

	src, err := file.Open()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Failed to open file",
		})
	}
	defer src.Close()

	doc, err := h.uploads.Upload(c.Context(), ownerID, src, file.Filename, file.Header.Get("Content-Type"), file.Size)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUnsupportedFileType):
			return c.Status(fiber.StatusUnsupportedMediaType).JSON(fiber.Map{
				"error": "Only PNG, JPEG and PDF uploads are accepted",
			})
		case errors.Is(err, service.ErrStorageFailure):
			h.logger.Error("upload storage failure", zap.Error(err))
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
				"error": "Failed to store file, please retry",
			})
		default:
			h.logger.Error("upload failed", zap.Error(err))
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to upload document",
			})
		}
	}

	return c.Status(fiber.StatusCreated).JSON(dto.NewDocumentResponse(doc))
}

// ListDocuments lists the caller's documents, newest first.
func (h *DocumentHandler) ListDocuments(c *fiber.Ctx) error {
	ownerID, err := getOwnerID(c)
	if err != nil {
		return unauthorized(c)
	}

	limit := c.QueryInt("limit", 20)
	if limit <= 0 {
		limit = 20
	}
	offset := c.QueryInt("offset", 0)
	if offset < 0 {
		offset = 0
	}

	docs, err := h.docs.ListByOwner(c.Context(), ownerID, limit, offset)
	if err != nil {
		h.logger.Error("failed to list documents", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to list documents",
		})
	}

	responses := make([]*dto.DocumentResponse, len(docs))
	for i, doc := range docs {
		responses[i] = dto.NewDocumentResponse(doc)
	}
	return c.JSON(responses)
}

// GetDocument returns the authoritative state of one document.
func (h *DocumentHandler) GetDocument(c *fiber.Ctx) error {
	ownerID, err := getOwnerID(c)
	if err != nil {
		return unauthorized(c)
	}
	doc, err := h.ownedDocument(c, ownerID)
	if err != nil {
		return documentLookupError(c, err)
	}
	return c.JSON(dto.NewDocumentResponse(doc))
}

// GetDocumentFile streams the stored blob back to its owner.
func (h *DocumentHandler) GetDocumentFile(c *fiber.Ctx) error {
	ownerID, err := getOwnerID(c)
	if err != nil {
		return unauthorized(c)
	}
	doc, err := h.ownedDocument(c, ownerID)
	if err != nil {
		return documentLookupError(c, err)
	}

	rc, err := h.blobs.Get(c.Context(), doc.StorageKey)
	if err != nil {
		h.logger.Error("failed to open blob",
			zap.Int64("document_id", doc.ID),
			zap.Error(err),
		)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to read stored file",
		})
	}

	c.Set(fiber.HeaderContentType, doc.MimeType)
	return c.SendStream(rc)
}

// ConfirmDocument materializes a parsed document into a transaction.
func (h *DocumentHandler) ConfirmDocument(c *fiber.Ctx) error {
	ownerID, err := getOwnerID(c)
	if err != nil {
		return unauthorized(c)
	}
	docID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid document ID",
		})
	}

	var req dto.ConfirmDocumentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	input := service.MaterializeInput{
		CategoryID:      req.CategoryID,
		CategoryKind:    req.CategoryKind,
		PaymentMethodID: req.PaymentMethodID,
		Description:     req.Description,
	}
	if req.Amount != nil {
		amount, err := decimal.NewFromString(*req.Amount)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid amount",
			})
		}
		input.Amount = &amount
	}

	tx, err := h.txs.Materialize(c.Context(), ownerID, docID, input)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Document not found",
			})
		case errors.Is(err, service.ErrNotOwner):
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Document belongs to another user",
			})
		case errors.Is(err, service.ErrAlreadyMaterialized):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": "Transaction already created for this document",
			})
		case errors.Is(err, service.ErrInvalidState):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": err.Error(),
			})
		default:
			h.logger.Error("confirmation failed",
				zap.Int64("document_id", docID),
				zap.Error(err),
			)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to create transaction",
			})
		}
	}

	return c.Status(fiber.StatusCreated).JSON(dto.NewTransactionResponse(tx))
}

func (h *DocumentHandler) ownedDocument(c *fiber.Ctx, ownerID int64) (*models.Document, error) {
	docID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return nil, errBadID
	}
	doc, err := h.docs.GetByID(c.Context(), docID)
	if err != nil {
		return nil, err
	}
	if doc.OwnerID != ownerID {
		return nil, service.ErrNotOwner
	}
	return doc, nil
}

var errBadID = errors.New("invalid document id")

func documentLookupError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, errBadID):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid document ID",
		})
	case errors.Is(err, repository.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Document not found",
		})
	case errors.Is(err, service.ErrNotOwner):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Document belongs to another user",
		})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load document",
		})
	}
}

func getOwnerID(c *fiber.Ctx) (int64, error) {
	ownerID, ok := c.Locals("ownerID").(int64)
	if !ok || ownerID == 0 {
		return 0, fiber.ErrUnauthorized
	}
	return ownerID, nil
}

func unauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"error": "Unauthorized",
	})
}
