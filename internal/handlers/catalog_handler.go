package handlers

import (
	"net/http"
	"strconv"

	"github.com/abdullah-koca/lunora/internal/dto"
	"github.com/abdullah-koca/lunora/internal/repository"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CatalogHandler — чтение витрины. Каталог публичный, identity не требуется.
type CatalogHandler struct {
	products repository.ProductRepo
	log      *zap.Logger
}

func NewCatalogHandler(products repository.ProductRepo, log *zap.Logger) *CatalogHandler {
	return &CatalogHandler{products: products, log: log}
}

func (h *CatalogHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	list, total, err := h.products.ListActive(c.Request.Context(), limit, offset)
	if err != nil {
		h.log.Error("product list failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, dto.NewInternalError(""))
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": list, "total": total})
}

func (h *CatalogHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.NewValidationError("invalid product id", nil))
		return
	}
	p, err := h.products.GetByID(c.Request.Context(), id)
	if err != nil {
		h.log.Error("product lookup failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, dto.NewInternalError(""))
		return
	}
	if p == nil || !p.IsActive {
		c.JSON(http.StatusNotFound, dto.NewNotFoundError("product not found"))
		return
	}
	c.JSON(http.StatusOK, p)
}
