package handler

import (
	"errors"

	"github.com/hitoshi/btcdash/internal/model"
)

// asValidationError はerrが画面にインライン表示すべき入力エラーであればそれを返す。
func asValidationError(err error) (*model.APIError, bool) {
	if !model.IsValidationError(err) {
		return nil, false
	}
	var apiErr *model.APIError
	errors.As(err, &apiErr)
	return apiErr, true
}
