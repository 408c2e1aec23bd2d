package recurring_test

import (
	"github.com/centsible/backend/internal/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func (suite *TestSuiteStandard) TestMaterializeCreatesWindow() {
	user := uuid.New()
	template := suite.createTestTemplate(models.Template{
		UserID:    user,
		Name:      "Rent",
		Category:  "Housing",
		Amount:    decimal.NewFromInt(1200),
		DueDay:    1,
		StartDate: date(2024, 1, 1),
	})

	engine := testEngine(date(2024, 3, 10))
	result, err := engine.Materialize(user)
	suite.Require().NoError(err)

	// 2024-01 through 2025-03: the start month up to twelve months past
	// the pinned clock, inclusive.
	suite.Assert().Equal(15, result.Created)
	suite.Assert().Equal(0, result.Skipped)
	suite.Assert().Empty(result.Errors)

	expenses, err := models.ExpensesByTemplate(models.DB, user, template.ID)
	suite.Require().NoError(err)
	suite.Require().Len(expenses, 15)

	suite.Assert().Equal(date(2024, 1, 1), expenses[0].DueDate)
	suite.Assert().Equal(date(2024, 2, 1), expenses[1].DueDate)
	suite.Assert().Equal(date(2024, 3, 1), expenses[2].DueDate)
	suite.Assert().Equal(date(2025, 3, 1), expenses[14].DueDate)

	for _, expense := range expenses {
		suite.Assert().Equal(models.ExpenseStatusPending, expense.Status)
		suite.Assert().Equal("Rent", expense.Name)
		suite.Assert().True(expense.Amount.Equal(decimal.NewFromInt(1200)), "amount is %s", expense.Amount)
		suite.Require().NotNil(expense.TemplateID)
		suite.Assert().Equal(template.ID, *expense.TemplateID)
		suite.Assert().NotNil(expense.MaterializationKey)
	}
}

func (suite *TestSuiteStandard) TestMaterializeIdempotent() {
	user := uuid.New()
	template := suite.createTestTemplate(models.Template{
		UserID:    user,
		Name:      "Netflix",
		Amount:    decimal.NewFromInt(13),
		DueDay:    15,
		StartDate: date(2024, 1, 1),
	})

	engine := testEngine(date(2024, 3, 10))

	first, err := engine.Materialize(user)
	suite.Require().NoError(err)
	suite.Assert().Equal(15, first.Created)

	second, err := engine.Materialize(user)
	suite.Require().NoError(err)
	suite.Assert().Equal(0, second.Created)
	suite.Assert().Equal(15, second.Skipped)

	expenses, err := models.ExpensesByTemplate(models.DB, user, template.ID)
	suite.Require().NoError(err)
	suite.Assert().Len(expenses, 15)
}

func (suite *TestSuiteStandard) TestMaterializeClampsDueDay() {
	user := uuid.New()
	template := suite.createTestTemplate(models.Template{
		UserID:    user,
		Name:      "Credit card",
		Amount:    decimal.NewFromInt(400),
		DueDay:    31,
		StartDate: date(2024, 1, 1),
		EndDate:   datePtr(2024, 4, 30),
	})

	engine := testEngine(date(2024, 6, 15))
	result, err := engine.Materialize(user)
	suite.Require().NoError(err)
	suite.Assert().Equal(4, result.Created)

	expenses, err := models.ExpensesByTemplate(models.DB, user, template.ID)
	suite.Require().NoError(err)
	suite.Require().Len(expenses, 4)

	suite.Assert().Equal(date(2024, 1, 31), expenses[0].DueDate)
	suite.Assert().Equal(date(2024, 2, 29), expenses[1].DueDate) // leap year
	suite.Assert().Equal(date(2024, 3, 31), expenses[2].DueDate)
	suite.Assert().Equal(date(2024, 4, 30), expenses[3].DueDate)
}

func (suite *TestSuiteStandard) TestMaterializeClampsNonLeapFebruary() {
	user := uuid.New()
	template := suite.createTestTemplate(models.Template{
		UserID:    user,
		Name:      "Insurance",
		Amount:    decimal.NewFromInt(80),
		DueDay:    30,
		StartDate: date(2023, 2, 1),
		EndDate:   datePtr(2023, 2, 28),
	})

	engine := testEngine(date(2023, 2, 10))
	result, err := engine.Materialize(user)
	suite.Require().NoError(err)
	suite.Assert().Equal(1, result.Created)

	expenses, err := models.ExpensesByTemplate(models.DB, user, template.ID)
	suite.Require().NoError(err)
	suite.Require().Len(expenses, 1)
	suite.Assert().Equal(date(2023, 2, 28), expenses[0].DueDate)
}

func (suite *TestSuiteStandard) TestMaterializeRollsForward() {
	user := uuid.New()
	template := suite.createTestTemplate(models.Template{
		UserID:    user,
		Name:      "Gym",
		Amount:    decimal.NewFromInt(30),
		DueDay:    5,
		StartDate: date(2024, 1, 1),
	})

	first, err := testEngine(date(2024, 3, 10)).Materialize(user)
	suite.Require().NoError(err)
	suite.Assert().Equal(15, first.Created)

	// The template amount changes. Existing expenses keep their snapshot,
	// only the newly uncovered month gets the new amount.
	template.Amount = decimal.NewFromInt(35)
	suite.Require().NoError(models.DB.Save(&template).Error)

	second, err := testEngine(date(2024, 4, 10)).Materialize(user)
	suite.Require().NoError(err)
	suite.Assert().Equal(1, second.Created)
	suite.Assert().Equal(15, second.Skipped)

	expenses, err := models.ExpensesByTemplate(models.DB, user, template.ID)
	suite.Require().NoError(err)
	suite.Require().Len(expenses, 16)

	suite.Assert().True(expenses[0].Amount.Equal(decimal.NewFromInt(30)), "amount is %s", expenses[0].Amount)
	suite.Assert().Equal(date(2025, 4, 5), expenses[15].DueDate)
	suite.Assert().True(expenses[15].Amount.Equal(decimal.NewFromInt(35)), "amount is %s", expenses[15].Amount)
}

func (suite *TestSuiteStandard) TestMaterializeSkipsLegacyExpense() {
	user := uuid.New()
	template := suite.createTestTemplate(models.Template{
		UserID:    user,
		Name:      "Internet",
		Amount:    decimal.NewFromInt(50),
		DueDay:    20,
		StartDate: date(2024, 1, 1),
		EndDate:   datePtr(2024, 2, 29),
	})

	// An expense written before materialization keys existed: linked to
	// the template by reference and due date only.
	suite.createTestExpense(models.Expense{
		UserID:     user,
		Name:       "Internet",
		Amount:     decimal.NewFromInt(50),
		DueDate:    date(2024, 1, 20),
		TemplateID: &template.ID,
	})

	result, err := testEngine(date(2024, 2, 10)).Materialize(user)
	suite.Require().NoError(err)
	suite.Assert().Equal(1, result.Created)
	suite.Assert().Equal(1, result.Skipped)

	expenses, err := models.ExpensesByTemplate(models.DB, user, template.ID)
	suite.Require().NoError(err)
	suite.Assert().Len(expenses, 2)
}

func (suite *TestSuiteStandard) TestMaterializeIgnoresFinishedTemplates() {
	user := uuid.New()
	suite.createTestTemplate(models.Template{
		UserID:    user,
		Name:      "Old subscription",
		Amount:    decimal.NewFromInt(10),
		DueDay:    1,
		StartDate: date(2024, 1, 1),
		Status:    models.TemplateStatusFinished,
	})

	result, err := testEngine(date(2024, 3, 10)).Materialize(user)
	suite.Require().NoError(err)
	suite.Assert().Equal(0, result.Created)
	suite.Assert().Equal(0, result.Skipped)
}

func (suite *TestSuiteStandard) TestMaterializeScopedToUser() {
	alice := uuid.New()
	bob := uuid.New()

	suite.createTestTemplate(models.Template{
		UserID:    alice,
		Name:      "Rent",
		Amount:    decimal.NewFromInt(900),
		DueDay:    1,
		StartDate: date(2024, 1, 1),
	})
	bobTemplate := suite.createTestTemplate(models.Template{
		UserID:    bob,
		Name:      "Rent",
		Amount:    decimal.NewFromInt(700),
		DueDay:    1,
		StartDate: date(2024, 1, 1),
	})

	result, err := testEngine(date(2024, 1, 10)).Materialize(alice)
	suite.Require().NoError(err)
	suite.Assert().Equal(13, result.Created)

	expenses, err := models.ExpensesByTemplate(models.DB, bob, bobTemplate.ID)
	suite.Require().NoError(err)
	suite.Assert().Empty(expenses)
}

func (suite *TestSuiteStandard) TestMaterializeBadTemplateDoesNotAbortRun() {
	user := uuid.New()

	// A malformed row written without the model hooks, as old data
	// predating validation would look.
	broken := models.Template{
		DefaultModel: models.DefaultModel{ID: uuid.New()},
		UserID:       user,
		Name:         "Broken",
		Amount:       decimal.NewFromInt(10),
		DueDay:       0,
		StartDate:    date(2024, 1, 1),
		Status:       models.TemplateStatusActive,
	}
	err := models.DB.Session(&gorm.Session{SkipHooks: true}).Create(&broken).Error
	suite.Require().NoError(err)

	good := suite.createTestTemplate(models.Template{
		UserID:    user,
		Name:      "Water",
		Amount:    decimal.NewFromInt(25),
		DueDay:    3,
		StartDate: date(2024, 1, 1),
	})

	result, err := testEngine(date(2024, 1, 10)).Materialize(user)
	suite.Require().NoError(err)
	suite.Assert().Equal(13, result.Created)
	suite.Assert().Equal([]uuid.UUID{broken.ID}, result.Errors)

	expenses, err := models.ExpensesByTemplate(models.DB, user, good.ID)
	suite.Require().NoError(err)
	suite.Assert().Len(expenses, 13)
}

func (suite *TestSuiteStandard) TestMaterializeGuard() {
	user := uuid.New()
	other := uuid.New()
	suite.createTestTemplate(models.Template{
		UserID:    user,
		Name:      "Rent",
		Amount:    decimal.NewFromInt(1200),
		DueDay:    1,
		StartDate: date(2024, 1, 1),
	})
	suite.createTestTemplate(models.Template{
		UserID:    other,
		Name:      "Rent",
		Amount:    decimal.NewFromInt(800),
		DueDay:    1,
		StartDate: date(2024, 1, 1),
	})

	engine := testEngine(date(2024, 1, 10))

	// While a run for the user is marked in progress, another call for
	// the same user is a no-op. Other users are unaffected.
	suite.Require().True(engine.TryAcquire(user))

	result, err := engine.Materialize(user)
	suite.Require().NoError(err)
	suite.Assert().Equal(0, result.Created)
	suite.Assert().Equal(0, result.Skipped)
	suite.Assert().Empty(result.Errors)

	result, err = engine.Materialize(other)
	suite.Require().NoError(err)
	suite.Assert().Equal(13, result.Created)

	engine.Release(user)

	result, err = engine.Materialize(user)
	suite.Require().NoError(err)
	suite.Assert().Equal(13, result.Created)
}

func (suite *TestSuiteStandard) TestMaterializeLeavesManualExpensesAlone() {
	user := uuid.New()
	template := suite.createTestTemplate(models.Template{
		UserID:    user,
		Name:      "Rent",
		Amount:    decimal.NewFromInt(1200),
		DueDay:    1,
		StartDate: date(2024, 1, 1),
		EndDate:   datePtr(2024, 1, 31),
	})

	// A manual expense with the same name and date is not linked to the
	// template and never counts as its occurrence.
	manual := suite.createTestExpense(models.Expense{
		UserID:  user,
		Name:    "Rent",
		Amount:  decimal.NewFromInt(1200),
		DueDate: date(2024, 1, 1),
	})
	suite.Assert().Nil(manual.MaterializationKey)

	result, err := testEngine(date(2024, 1, 10)).Materialize(user)
	suite.Require().NoError(err)
	suite.Assert().Equal(1, result.Created)

	expenses, err := models.ExpensesByTemplate(models.DB, user, template.ID)
	suite.Require().NoError(err)
	suite.Assert().Len(expenses, 1)

	var all []models.Expense
	suite.Require().NoError(models.DB.Where("expenses.user_id = ?", user).Find(&all).Error)
	suite.Assert().Len(all, 2)
}
