package v1_test

import (
	"net/http"

	"github.com/centsible/backend/internal/models"
	"github.com/centsible/backend/internal/recurring"
	"github.com/centsible/backend/test"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func (suite *TestSuiteStandard) TestMaterialize() {
	user := uuid.New()

	// A bounded template makes the expected count independent of the
	// wall clock.
	created := suite.createTestTemplate(user, models.Template{
		Name:      "Rent",
		Amount:    decimal.NewFromInt(1200),
		DueDay:    1,
		StartDate: date(2024, 1, 1),
		EndDate:   datePtr(2024, 3, 31),
	})

	r := test.Request(suite.T(), http.MethodPost, userURL(user, "/materialize"), nil)
	test.AssertHTTPStatus(suite.T(), &r, http.StatusOK)

	var response struct {
		Data recurring.Result `json:"data"`
	}
	test.DecodeResponse(suite.T(), &r, &response)
	suite.Assert().Equal(3, response.Data.Created)
	suite.Assert().Equal(0, response.Data.Skipped)
	suite.Assert().Empty(response.Data.Errors)

	// The second run skips everything.
	r = test.Request(suite.T(), http.MethodPost, userURL(user, "/materialize"), nil)
	test.AssertHTTPStatus(suite.T(), &r, http.StatusOK)

	test.DecodeResponse(suite.T(), &r, &response)
	suite.Assert().Equal(0, response.Data.Created)
	suite.Assert().Equal(3, response.Data.Skipped)

	expenses, err := models.ExpensesByTemplate(models.DB, user, created.Data.ID)
	suite.Require().NoError(err)
	suite.Assert().Len(expenses, 3)
}

func (suite *TestSuiteStandard) TestMaterializeInvalidUser() {
	r := test.Request(suite.T(), http.MethodPost, "http://example.com/v1/users/not-a-uuid/materialize", nil)
	test.AssertHTTPStatus(suite.T(), &r, http.StatusBadRequest)
}

func (suite *TestSuiteStandard) TestMaterializeOptions() {
	r := test.Request(suite.T(), http.MethodOptions, userURL(uuid.New(), "/materialize"), nil)
	test.AssertHTTPStatus(suite.T(), &r, http.StatusNoContent)
	suite.Assert().Equal("POST", r.Header().Get("allow"))
}
