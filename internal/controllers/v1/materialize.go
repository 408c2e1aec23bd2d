package v1

import (
	"net/http"

	"github.com/centsible/backend/internal/httputil"
	"github.com/gin-gonic/gin"
)

// @Summary      Allowed HTTP verbs
// @Description  Returns an empty response with the HTTP Header "allow" set to the allowed HTTP verbs
// @Tags         Materialization
// @Success      204
// @Router       /v1/users/{userId}/materialize [options]
func OptionsMaterialize(c *gin.Context) {
	httputil.OptionsPost(c)
}

// @Summary      Materialize recurring expenses
// @Description  Creates all missing expenses for the user's active templates. Safe to call repeatedly, existing occurrences are skipped
// @Tags         Materialization
// @Produce      json
// @Success      200  {object}  recurring.Result
// @Failure      400  {object}  httpError
// @Router       /v1/users/{userId}/materialize [post]
func Materialize(c *gin.Context) {
	user, err := userID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, httpError{Error: err.Error()})
		return
	}

	result, err := engine.Materialize(user)
	if err != nil {
		c.JSON(status(err), httpError{Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": result})
}
