package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/esa0624/CU-Blueboard/models"
	"github.com/esa0624/CU-Blueboard/utils"
)

// TaxonomyController serves the topic and tag vocabularies. Both change
// rarely, so responses are cached in Redis.
type TaxonomyController struct {
	db *gorm.DB
}

// NewTaxonomyController creates a TaxonomyController.
func NewTaxonomyController(db *gorm.DB) *TaxonomyController {
	return &TaxonomyController{db: db}
}

// Topics lists all topics.
func (t *TaxonomyController) Topics(ctx *gin.Context) {
	if b, ok := utils.CacheGetBytes("cache:topics"); ok {
		ctx.Data(http.StatusOK, "application/json", b)
		return
	}

	var topics []models.Topic
	if err := t.db.Order("name ASC").Find(&topics).Error; err != nil {
		serviceError(ctx, err)
		return
	}
	payload := gin.H{"items": topics}
	utils.CacheSetJSON("cache:topics", utils.JSONResponse{Code: 0, Message: "success", Data: payload}, time.Hour)
	utils.Success(ctx, payload)
}

// Tags lists all tags.
func (t *TaxonomyController) Tags(ctx *gin.Context) {
	if b, ok := utils.CacheGetBytes("cache:tags"); ok {
		ctx.Data(http.StatusOK, "application/json", b)
		return
	}

	var tags []models.Tag
	if err := t.db.Order("name ASC").Find(&tags).Error; err != nil {
		serviceError(ctx, err)
		return
	}
	payload := gin.H{"items": tags}
	utils.CacheSetJSON("cache:tags", utils.JSONResponse{Code: 0, Message: "success", Data: payload}, time.Hour)
	utils.Success(ctx, payload)
}
