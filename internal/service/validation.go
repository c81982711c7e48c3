package service

import (
	"errors"
	"fmt"
	"strings"

	"rfq/internal/models"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

func (s *Service) validateCreate(data models.CreateRFQData) error {
	var problems []string

	err := s.validate.Struct(data)
	if err != nil {
		problems = append(problems, describeValidation(err)...)
	}

	if data.TargetPrice.Valid {
		if data.TargetPrice.Decimal.IsNegative() {
			problems = append(problems, "targetPrice must not be negative")
		}
		problems = append(problems, checkAmount("targetPrice", data.TargetPrice.Decimal)...)
	}

	if len(problems) > 0 {
		return models.NewRFQError(models.ErrValidation, "", errors.New(strings.Join(problems, "; ")))
	}
	return nil
}

func (s *Service) validateQuote(data models.QuoteData) error {
	var problems []string

	err := s.validate.Struct(data)
	if err != nil {
		problems = append(problems, describeValidation(err)...)
	}

	if !data.Price.IsPositive() {
		problems = append(problems, "price must be positive")
	}
	problems = append(problems, checkAmount("price", data.Price)...)

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

// Amounts are stored as NUMERIC(18, 4).
const amountScale = 4

var maxAmount = decimal.New(1, 18-amountScale)

func checkAmount(field string, d decimal.Decimal) []string {
	var problems []string
	if d.Abs().GreaterThanOrEqual(maxAmount) {
		problems = append(problems, fmt.Sprintf("%s must be less than %s", field, maxAmount))
	}
	if !d.Equal(d.Truncate(amountScale)) {
		problems = append(problems, fmt.Sprintf("%s must have at most %d decimal places", field, amountScale))
	}
	return problems
}

func describeValidation(err error) []string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []string{err.Error()}
	}

	problems := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := fe.Namespace()
		if i := strings.IndexByte(field, '.'); i >= 0 {
			field = field[i+1:]
		}

		switch fe.Tag() {
		case "required":
			problems = append(problems, fmt.Sprintf("%s is required", field))
		case "min":
			problems = append(problems, fmt.Sprintf("%s must have at least %s entries", field, fe.Param()))
		case "max":
			problems = append(problems, fmt.Sprintf("%s exceeds length limit %s", field, fe.Param()))
		case "gt":
			problems = append(problems, fmt.Sprintf("%s must be greater than %s", field, fe.Param()))
		case "lte":
			problems = append(problems, fmt.Sprintf("%s must not exceed %s", field, fe.Param()))
		case "uuid":
			problems = append(problems, fmt.Sprintf("%s is not a valid id", field))
		default:
			problems = append(problems, fmt.Sprintf("%s failed %s", field, fe.Tag()))
		}
	}
	return problems
}
