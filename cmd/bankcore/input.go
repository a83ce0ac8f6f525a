package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"bankcore/internal/core"
	"bankcore/internal/services"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("category", func(fl validator.FieldLevel) bool {
		_, err := core.ParseCategory(fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation("amount", func(fl validator.FieldLevel) bool {
		_, err := core.ParseMoney(fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation("date", func(fl validator.FieldLevel) bool {
		_, err := core.ParseDate(fl.Field().String())
		return err == nil
	})
	return v
}

// validateInput checks the struct tags of in and folds every failing field
// into one error.
func validateInput(in any) error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, fmt.Sprintf("-%s: %s", strings.ToLower(fe.Field()), fieldErrorMsg(fe)))
	}
	return fmt.Errorf("invalid input: %s", strings.Join(msgs, "; "))
}

func fieldErrorMsg(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "invalid email format"
	case "max":
		return "is too long"
	case "gt":
		return "must be greater than " + fe.Param()
	case "gte":
		return "must be greater than or equal to " + fe.Param()
	case "ltefield":
		return "must not exceed -" + strings.ToLower(fe.Param())
	case "category":
		return "unknown category, want one of " + categoryList()
	case "amount":
		return "must be a positive amount like 12.50"
	case "date":
		return "must be a date like 2024-03-31"
	default:
		return "invalid value"
	}
}

func categoryList() string {
	cats := core.Categories()
	names := make([]string, len(cats))
	for i, c := range cats {
		names[i] = string(c)
	}
	return strings.Join(names, ", ")
}

type accountInput struct {
	Number  string `validate:"required,max=34"`
	Name    string `validate:"required,max=200"`
	Email   string `validate:"omitempty,email"`
	Balance string `validate:"omitempty,amount"`
}

func (in accountInput) account() core.Account {
	a := core.Account{
		AccountNumber: strings.TrimSpace(in.Number),
		FullName:      strings.TrimSpace(in.Name),
		Email:         strings.TrimSpace(in.Email),
	}
	if in.Balance != "" {
		a.Balance, _ = core.ParseMoney(in.Balance)
	}
	return a
}

type transferInput struct {
	From     int64  `validate:"gt=0"`
	Amount   string `validate:"required,amount"`
	Category string `validate:"required,category"`
	Title    string `validate:"required,max=200"`
	Receiver string `validate:"required"`
	To       string `validate:"required"`
}

func (in transferInput) request(at time.Time) services.TransferRequest {
	amount, _ := core.ParseMoney(in.Amount)
	category, _ := core.ParseCategory(in.Category)
	return services.TransferRequest{
		SenderID:           in.From,
		Amount:             amount,
		Category:           category,
		Title:              in.Title,
		ReceiverName:       in.Receiver,
		DestinationAccount: strings.TrimSpace(in.To),
		RealizedAt:         at,
	}
}

type installmentInput struct {
	Owner int64  `validate:"gt=0"`
	Loan  int64  `validate:"gt=0"`
	Rate  string `validate:"required,amount"`
	Rates int    `validate:"gt=0"`
	Left  int    `validate:"gt=0,ltefield=Rates"`
}

func (in installmentInput) loan() core.Loan {
	rate, _ := core.ParseMoney(in.Rate)
	return core.Loan{
		ID:             in.Loan,
		OwnerID:        in.Owner,
		RateAmount:     rate,
		NumOfRates:     in.Rates,
		RatesLeftToPay: in.Left,
	}
}

// orderInput holds the standing-order fields shared by create and update.
type orderInput struct {
	Amount   string `validate:"required,amount"`
	Receiver string `validate:"required"`
	To       string `validate:"required"`
	Category string `validate:"required,category"`
	Title    string `validate:"required,max=200"`
	Due      string `validate:"required,date"`
}

func (in orderInput) definition(ownerID int64) core.RecurringDefinition {
	amount, _ := core.ParseMoney(in.Amount)
	category, _ := core.ParseCategory(in.Category)
	due, _ := core.ParseDate(in.Due)
	return core.RecurringDefinition{
		OwnerID:            ownerID,
		Amount:             amount,
		ReceiverName:       in.Receiver,
		DestinationAccount: strings.TrimSpace(in.To),
		Category:           category,
		Title:              in.Title,
		NextDueDate:        due,
	}
}

type definitionInput struct {
	Owner int64 `validate:"gt=0"`
	orderInput
}

type definitionUpdateInput struct {
	ID int64 `validate:"gt=0"`
	orderInput
}
