package handlers

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/donaldgifford/auto-marketplace/internal/api/apierror"
	"github.com/donaldgifford/auto-marketplace/pkg/loan"
)

// CalculatorInput is the financing request.
type CalculatorInput struct {
	Body loan.Request
}

// CalculatorOutput is the financing plan.
type CalculatorOutput struct {
	Body loan.Result
}

// Calculator computes a financing plan.
func Calculator(_ context.Context, in *CalculatorInput) (*CalculatorOutput, error) {
	res, err := loan.Calculate(in.Body)
	if err != nil {
		return nil, apierror.Message(http.StatusBadRequest, err.Error())
	}
	return &CalculatorOutput{Body: *res}, nil
}

// RegisterCalculatorRoutes registers the loan calculator with the Huma API.
func RegisterCalculatorRoutes(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "calculate-loan",
		Method:      http.MethodPost,
		Path:        "/api/listings/calculator/",
		Summary:     "Calculate a car loan",
		Description: "Down payment, term and rate default to 0, 60 months and 7.5%. " +
			"The schedule lists months 1 to 12, every twelfth month, and the last month.",
		Tags:             []string{"calculator"},
		SkipValidateBody: true,
		Errors:           []int{http.StatusBadRequest},
	}, Calculator)
}
