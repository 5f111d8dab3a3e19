package usecase

import (
	"errors"
	"fmt"
)

// エラーの種類。Handlerがこれを見てレスポンスを決める
type ErrorKind string

const (
	KindCustomerNotFound  ErrorKind = "CustomerNotFound"
	KindProductNotFound   ErrorKind = "ProductNotFound"
	KindInsufficientStock ErrorKind = "InsufficientStock"
	KindInvalidStatus     ErrorKind = "InvalidStatus"
	KindOrderNotFound     ErrorKind = "OrderNotFound"
	KindInvalidInput      ErrorKind = "InvalidInput"
	KindStorageFailure    ErrorKind = "StorageFailure"
)

type AppError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NewAppError(kind ErrorKind, message string) error {
	return &AppError{
		Kind:    kind,
		Message: message,
	}
}

func AsAppError(err error) (*AppError, bool) {
	var ae *AppError
	ok := errors.As(err, &ae)
	return ae, ok
}

func IsKind(err error, kind ErrorKind) bool {
	ae, ok := AsAppError(err)
	return ok && ae.Kind == kind
}

// AppError はそのまま、それ以外（DBエラー、commit失敗など）は StorageFailure で包む
func storageFailure(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := AsAppError(err); ok {
		return err
	}
	return &AppError{
		Kind:    KindStorageFailure,
		Message: "storage failure",
		Err:     err,
	}
}
