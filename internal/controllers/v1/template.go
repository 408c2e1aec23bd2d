package v1

import (
	"net/http"

	"github.com/centsible/backend/internal/httputil"
	"github.com/centsible/backend/internal/models"
	"github.com/gin-gonic/gin"
)

// RegisterTemplateRoutes registers the routes for recurring expense
// templates with the RouterGroup that is passed.
func RegisterTemplateRoutes(r *gin.RouterGroup) {
	{
		r.OPTIONS("", OptionsTemplateList)
		r.GET("", GetTemplates)
		r.POST("", CreateTemplate)
	}

	{
		r.OPTIONS("/:id", OptionsTemplateDetail)
		r.GET("/:id", GetTemplate)
		r.PATCH("/:id", UpdateTemplate)
		r.DELETE("/:id", DeleteTemplate)
	}

	{
		r.OPTIONS("/:id/repair", OptionsTemplateRepair)
		r.POST("/:id/repair", RepairTemplate)
	}
}

// @Summary      Allowed HTTP verbs
// @Description  Returns an empty response with the HTTP Header "allow" set to the allowed HTTP verbs
// @Tags         Templates
// @Success      204
// @Router       /v1/users/{userId}/templates [options]
func OptionsTemplateList(c *gin.Context) {
	httputil.OptionsGetPost(c)
}

// @Summary      Allowed HTTP verbs
// @Description  Returns an empty response with the HTTP Header "allow" set to the allowed HTTP verbs
// @Tags         Templates
// @Success      204
// @Router       /v1/users/{userId}/templates/{id} [options]
func OptionsTemplateDetail(c *gin.Context) {
	httputil.OptionsGetPatchDelete(c)
}

// @Summary      Allowed HTTP verbs
// @Description  Returns an empty response with the HTTP Header "allow" set to the allowed HTTP verbs
// @Tags         Templates
// @Success      204
// @Router       /v1/users/{userId}/templates/{id}/repair [options]
func OptionsTemplateRepair(c *gin.Context) {
	httputil.OptionsPost(c)
}

// @Summary      Create template
// @Description  Creates a new recurring expense template
// @Tags         Templates
// @Accept       json
// @Produce      json
// @Success      201  {object}  models.Template
// @Failure      400  {object}  httpError
// @Router       /v1/users/{userId}/templates [post]
func CreateTemplate(c *gin.Context) {
	user, err := userID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, httpError{Error: err.Error()})
		return
	}

	var template models.Template
	if err := httputil.BindData(c, &template); err != nil {
		c.JSON(http.StatusBadRequest, httpError{Error: err.Error()})
		return
	}
	template.UserID = user

	if err := models.DB.Create(&template).Error; err != nil {
		c.JSON(status(err), httpError{Error: err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": template})
}

// @Summary      List templates
// @Description  Returns all recurring expense templates for the user
// @Tags         Templates
// @Produce      json
// @Success      200  {object}  []models.Template
// @Router       /v1/users/{userId}/templates [get]
// @Param        status  query  string  false  "Filter by template status"
func GetTemplates(c *gin.Context) {
	user, err := userID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, httpError{Error: err.Error()})
		return
	}

	q := models.DB.Where("templates.user_id = ?", user).Order("templates.name ASC")

	if s, ok := c.GetQuery("status"); ok {
		q = q.Where("templates.status = ?", s)
	}

	var templates []models.Template
	if err := q.Find(&templates).Error; err != nil {
		c.JSON(status(err), httpError{Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": templates})
}

// @Summary      Get template
// @Description  Returns a specific template
// @Tags         Templates
// @Produce      json
// @Success      200  {object}  models.Template
// @Failure      404  {object}  httpError
// @Router       /v1/users/{userId}/templates/{id} [get]
func GetTemplate(c *gin.Context) {
	template, ok := fetchTemplate(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": template})
}

// @Summary      Update template
// @Description  Updates a template. Existing expenses keep their snapshot amounts, only future materialization sees the change
// @Tags         Templates
// @Accept       json
// @Produce      json
// @Success      200  {object}  models.Template
// @Failure      400  {object}  httpError
// @Failure      404  {object}  httpError
// @Router       /v1/users/{userId}/templates/{id} [patch]
func UpdateTemplate(c *gin.Context) {
	template, ok := fetchTemplate(c)
	if !ok {
		return
	}

	// A struct-based update skips zero values, so the fields to write are
	// selected from the body keys. This makes clearing the end date or a
	// note through an explicit null work.
	updateFields, err := httputil.GetBodyFields(c, models.Template{})
	if err != nil {
		c.JSON(http.StatusBadRequest, httpError{Error: err.Error()})
		return
	}

	var data models.Template
	if err := httputil.BindData(c, &data); err != nil {
		c.JSON(http.StatusBadRequest, httpError{Error: err.Error()})
		return
	}

	// The user and identity of a template never change
	data.ID = template.ID
	data.UserID = template.UserID

	if err := models.DB.Model(&template).Select("", updateFields...).Updates(data).Error; err != nil {
		c.JSON(status(err), httpError{Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": template})
}

type TemplateDeleteResponse struct {
	DeletedInstances int `json:"deletedInstances"` // Number of expenses deleted together with the template
}

// @Summary      Delete template
// @Description  Deletes a template and all expenses materialized from it
// @Tags         Templates
// @Produce      json
// @Success      200  {object}  TemplateDeleteResponse
// @Failure      404  {object}  httpError
// @Router       /v1/users/{userId}/templates/{id} [delete]
func DeleteTemplate(c *gin.Context) {
	user, err := userID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, httpError{Error: err.Error()})
		return
	}

	id, err := resourceID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, httpError{Error: err.Error()})
		return
	}

	deleted, err := engine.DeleteTemplate(user, id)
	if err != nil {
		c.JSON(status(err), httpError{Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": TemplateDeleteResponse{DeletedInstances: deleted}})
}

type RepairResponse struct {
	DeletedCount int `json:"deletedCount"` // Number of duplicate expenses removed
}

// @Summary      Repair duplicates
// @Description  Collapses months with more than one expense for this template down to a single one
// @Tags         Templates
// @Produce      json
// @Success      200  {object}  RepairResponse
// @Failure      400  {object}  httpError
// @Router       /v1/users/{userId}/templates/{id}/repair [post]
func RepairTemplate(c *gin.Context) {
	user, err := userID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, httpError{Error: err.Error()})
		return
	}

	id, err := resourceID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, httpError{Error: err.Error()})
		return
	}

	deleted, err := engine.RepairDuplicates(user, id)
	if err != nil {
		c.JSON(status(err), httpError{Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": RepairResponse{DeletedCount: deleted}})
}

// fetchTemplate loads the template referenced in the request URI. On
// failure it writes the error response and reports false.
func fetchTemplate(c *gin.Context) (models.Template, bool) {
	var template models.Template

	user, err := userID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, httpError{Error: err.Error()})
		return template, false
	}

	id, err := resourceID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, httpError{Error: err.Error()})
		return template, false
	}

	err = models.DB.
		Where("templates.user_id = ?", user).
		First(&template, "templates.id = ?", id).Error
	if err != nil {
		c.JSON(status(err), httpError{Error: err.Error()})
		return template, false
	}

	return template, true
}
