package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/tordlabs/tordlabs-defi-intelligence-web-app/repository"
	"github.com/tordlabs/tordlabs-defi-intelligence-web-app/utils"
)

// RegisterValidators adds the wallet and txhash binding tags to gin's validator.
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return errors.New("unexpected binding validator engine")
	}
	if err := v.RegisterValidation("wallet", func(fl validator.FieldLevel) bool {
		return utils.IsAddress(fl.Field().String())
	}); err != nil {
		return err
	}
	return v.RegisterValidation("txhash", func(fl validator.FieldLevel) bool {
		return utils.IsTxHash(fl.Field().String())
	})
}

// bindError turns a binding failure into a client-facing message.
func bindError(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		switch verrs[0].Tag() {
		case "wallet":
			return "invalid wallet address"
		case "txhash":
			return "invalid transaction hash"
		case "required":
			return "missing " + strings.ToLower(verrs[0].Field())
		}
	}
	return "invalid request"
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}

func serverError(c *gin.Context, err error) {
	_ = c.Error(err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
}

// notFoundOr writes 404 for repository.ErrNotFound and 500 otherwise.
func notFoundOr(c *gin.Context, err error, what string) {
	if errors.Is(err, repository.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": what + " not found"})
		return
	}
	serverError(c, err)
}

// walletQuery reads and normalizes ?wallet=, writing 400 when it is malformed.
func walletQuery(c *gin.Context) (string, bool) {
	w := strings.TrimSpace(c.Query("wallet"))
	if !utils.IsAddress(w) {
		badRequest(c, "invalid wallet address")
		return "", false
	}
	return utils.NormalizeAddress(w), true
}

func walletParam(c *gin.Context) string {
	return utils.NormalizeAddress(c.Param("wallet"))
}

func idParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return uint(id), true
}

func pageQuery(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 500 {
		limit = 50
	}
	return page, limit
}

func num(d decimal.Decimal) float64 {
	return d.InexactFloat64()
}

func bearerToken(c *gin.Context) string {
	h := c.GetHeader("Authorization")
	if strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return ""
}
