package v1

import (
	"net/http"

	"github.com/centsible/backend/internal/httputil"
	"github.com/centsible/backend/internal/models"
	"github.com/centsible/backend/internal/types"
	"github.com/gin-gonic/gin"
)

// RegisterExpenseRoutes registers the routes for expenses with the
// RouterGroup that is passed.
func RegisterExpenseRoutes(r *gin.RouterGroup) {
	{
		r.OPTIONS("", OptionsExpenseList)
		r.GET("", GetExpenses)
		r.POST("", CreateExpense)
	}

	{
		r.OPTIONS("/:id", OptionsExpenseDetail)
		r.GET("/:id", GetExpense)
		r.PATCH("/:id", UpdateExpense)
		r.DELETE("/:id", DeleteExpense)
	}
}

// @Summary      Allowed HTTP verbs
// @Description  Returns an empty response with the HTTP Header "allow" set to the allowed HTTP verbs
// @Tags         Expenses
// @Success      204
// @Router       /v1/users/{userId}/expenses [options]
func OptionsExpenseList(c *gin.Context) {
	httputil.OptionsGetPost(c)
}

// @Summary      Allowed HTTP verbs
// @Description  Returns an empty response with the HTTP Header "allow" set to the allowed HTTP verbs
// @Tags         Expenses
// @Success      204
// @Router       /v1/users/{userId}/expenses/{id} [options]
func OptionsExpenseDetail(c *gin.Context) {
	httputil.OptionsGetPatchDelete(c)
}

// @Summary      Create expense
// @Description  Creates a new manual expense. Materialized expenses are created by the engine, not this endpoint
// @Tags         Expenses
// @Accept       json
// @Produce      json
// @Success      201  {object}  models.Expense
// @Failure      400  {object}  httpError
// @Router       /v1/users/{userId}/expenses [post]
func CreateExpense(c *gin.Context) {
	user, err := userID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, httpError{Error: err.Error()})
		return
	}

	var expense models.Expense
	if err := httputil.BindData(c, &expense); err != nil {
		c.JSON(http.StatusBadRequest, httpError{Error: err.Error()})
		return
	}
	expense.UserID = user

	// Manual entries never carry a template reference or a
	// materialization key
	expense.TemplateID = nil
	expense.MaterializationKey = nil

	if err := models.DB.Create(&expense).Error; err != nil {
		c.JSON(status(err), httpError{Error: err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": expense})
}

// @Summary      List expenses
// @Description  Returns the user's expenses, optionally filtered by month
// @Tags         Expenses
// @Produce      json
// @Success      200  {object}  []models.Expense
// @Failure      400  {object}  httpError
// @Router       /v1/users/{userId}/expenses [get]
// @Param        month  query  string  false  "Only expenses due in this month (YYYY-MM)"
func GetExpenses(c *gin.Context) {
	user, err := userID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, httpError{Error: err.Error()})
		return
	}

	q := models.DB.Where("expenses.user_id = ?", user).Order("expenses.due_date ASC")

	if s, ok := c.GetQuery("month"); ok {
		month, err := types.ParseMonth(s)
		if err != nil {
			c.JSON(http.StatusBadRequest, httpError{Error: err.Error()})
			return
		}

		q = q.Where("expenses.due_date >= date(?) AND expenses.due_date < date(?)", month, month.AddDate(0, 1))
	}

	var expenses []models.Expense
	if err := q.Find(&expenses).Error; err != nil {
		c.JSON(status(err), httpError{Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": expenses})
}

// @Summary      Get expense
// @Description  Returns a specific expense
// @Tags         Expenses
// @Produce      json
// @Success      200  {object}  models.Expense
// @Failure      404  {object}  httpError
// @Router       /v1/users/{userId}/expenses/{id} [get]
func GetExpense(c *gin.Context) {
	expense, ok := fetchExpense(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": expense})
}

// @Summary      Update expense
// @Description  Updates an expense, e.g. to mark it as paid
// @Tags         Expenses
// @Accept       json
// @Produce      json
// @Success      200  {object}  models.Expense
// @Failure      400  {object}  httpError
// @Failure      404  {object}  httpError
// @Router       /v1/users/{userId}/expenses/{id} [patch]
func UpdateExpense(c *gin.Context) {
	expense, ok := fetchExpense(c)
	if !ok {
		return
	}

	// A struct-based update skips zero values, so the fields to write are
	// selected from the body keys. This makes clearing a note through an
	// explicit null work.
	updateFields, err := httputil.GetBodyFields(c, models.Expense{})
	if err != nil {
		c.JSON(http.StatusBadRequest, httpError{Error: err.Error()})
		return
	}

	var data models.Expense
	if err := httputil.BindData(c, &data); err != nil {
		c.JSON(http.StatusBadRequest, httpError{Error: err.Error()})
		return
	}

	// The identity and materialization bookkeeping of an expense never
	// change through the API
	data.ID = expense.ID
	data.UserID = expense.UserID
	data.TemplateID = expense.TemplateID
	data.MaterializationKey = expense.MaterializationKey

	if err := models.DB.Model(&expense).Select("", updateFields...).Updates(data).Error; err != nil {
		c.JSON(status(err), httpError{Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": expense})
}

type ExpenseDeleteResponse struct {
	Deleted int `json:"deleted"` // Number of expenses deleted, including carried-forward ones
}

// @Summary      Delete expense
// @Description  Deletes an expense. With carryForward=true, expenses carried forward from it with a later due date are deleted as well
// @Tags         Expenses
// @Produce      json
// @Success      200  {object}  ExpenseDeleteResponse
// @Failure      404  {object}  httpError
// @Router       /v1/users/{userId}/expenses/{id} [delete]
// @Param        carryForward  query  bool  false  "Also delete later expenses carried forward from this one"
func DeleteExpense(c *gin.Context) {
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

	carryForward := c.Query("carryForward") == "true"

	deleted, err := engine.DeleteInstance(user, id, carryForward)
	if err != nil {
		c.JSON(status(err), httpError{Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": ExpenseDeleteResponse{Deleted: deleted}})
}

// fetchExpense loads the expense referenced in the request URI. On
// failure it writes the error response and reports false.
func fetchExpense(c *gin.Context) (models.Expense, bool) {
	var expense models.Expense

	user, err := userID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, httpError{Error: err.Error()})
		return expense, false
	}

	id, err := resourceID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, httpError{Error: err.Error()})
		return expense, false
	}

	err = models.DB.
		Where("expenses.user_id = ?", user).
		First(&expense, "expenses.id = ?", id).Error
	if err != nil {
		c.JSON(status(err), httpError{Error: err.Error()})
		return expense, false
	}

	return expense, true
}
