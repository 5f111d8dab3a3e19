package validator

import (
	"errors"
	"fmt"
	"strings"

	"orderhub/internal/usecase"
)

var (
	// 入力が不正
	ErrInvalidInput = errors.New("invalid input")
)

type orderValidator struct{}

// Usecaseは interface を依存注入
func NewOrderValidator() usecase.OrderValidator {
	return &orderValidator{}
}

// 注文の入力を検証（存在や在庫はusecase側でDBを見てチェックする）
func (v *orderValidator) ValidatePlaceOrder(in usecase.PlaceOrderInput) error {
	// 必須チェック
	if strings.TrimSpace(in.CustomerID) == "" {
		return fmt.Errorf("%w: customerId required", ErrInvalidInput)
	}
	if len(in.Lines) == 0 {
		return fmt.Errorf("%w: at least one product required", ErrInvalidInput)
	}

	for i, line := range in.Lines {
		if strings.TrimSpace(line.ProductID) == "" {
			return fmt.Errorf("%w: products[%d].productId required", ErrInvalidInput, i)
		}
		// 数量は1以上
		if line.Quantity < 1 {
			return fmt.Errorf("%w: products[%d].quantity must be >= 1", ErrInvalidInput, i)
		}
	}
	return nil
}
