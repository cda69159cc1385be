package handlers

import (
	"errors"
	"net/http"

	"github.com/abdullah-koca/lunora/internal/dto"
	"github.com/abdullah-koca/lunora/internal/models"
	"github.com/abdullah-koca/lunora/internal/repository"
	"github.com/abdullah-koca/lunora/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type AddressHandler struct {
	addresses repository.AddressRepo
	log       *zap.Logger
}

func NewAddressHandler(addresses repository.AddressRepo, log *zap.Logger) *AddressHandler {
	return &AddressHandler{addresses: addresses, log: log}
}

func (h *AddressHandler) List(c *gin.Context) {
	user, ok := service.IdentityFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, dto.NewUnauthorizedError("identity required"))
		return
	}
	list, err := h.addresses.ListByUser(c.Request.Context(), user.ID)
	if err != nil {
		h.log.Error("address list failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, dto.NewInternalError(""))
		return
	}
	c.JSON(http.StatusOK, gin.H{"addresses": list})
}

func (h *AddressHandler) Create(c *gin.Context) {
	user, ok := service.IdentityFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, dto.NewUnauthorizedError("identity required"))
		return
	}

	var req dto.AddressCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.NewValidationError("invalid request body", nil))
		return
	}

	// новый адрес-по-умолчанию снимает флаг с предыдущего
	if req.IsDefault {
		if err := h.addresses.ClearDefault(c.Request.Context(), user.ID); err != nil {
			h.log.Error("clear default address failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, dto.NewInternalError(""))
			return
		}
	}

	addr := &models.Address{
		UserID:      user.ID,
		Title:       req.Title,
		FullName:    req.FullName,
		Phone:       req.Phone,
		AddressLine: req.AddressLine,
		City:        req.City,
		District:    req.District,
		PostalCode:  req.PostalCode,
		IsDefault:   req.IsDefault,
	}
	if err := h.addresses.Create(c.Request.Context(), addr); err != nil {
		h.log.Error("address create failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, dto.NewInternalError(""))
		return
	}
	c.JSON(http.StatusCreated, addr)
}

func (h *AddressHandler) SetDefault(c *gin.Context) {
	user, ok := service.IdentityFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, dto.NewUnauthorizedError("identity required"))
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.NewValidationError("invalid address id", nil))
		return
	}

	if err := h.addresses.SetDefault(c.Request.Context(), id, user.ID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, dto.NewNotFoundError("address not found"))
			return
		}
		h.log.Error("set default address failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, dto.NewInternalError(""))
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
